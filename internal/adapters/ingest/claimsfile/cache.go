package claimsfile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	perr "claimguard/internal/platform/errors"
	"claimguard/internal/platform/logger"
)

const (
	dataSuffix = ".data"
	metaSuffix = ".meta"

	// pruneEvery throttles retention sweeps
	pruneEvery = 10 * time.Minute
)

// CachedFetcher keeps downloaded extracts on disk and revalidates them with
// conditional GETs. An origin that fails revalidation is answered from the copy
type CachedFetcher struct {
	dir        string
	client     *http.Client
	revalidate bool
	maxAge     time.Duration
	maxBytes   int64
	lastPrune  atomic.Int64
}

// sidecar is stored beside each extract as json
type sidecar struct {
	URI          string    `json:"uri"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	Size         int64     `json:"size,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
	CheckedAt    time.Time `json:"checked_at"`
}

type CachedOption func(*CachedFetcher)

// WithRevalidate toggles conditional GETs for extracts already on disk
func WithRevalidate(on bool) CachedOption { return func(c *CachedFetcher) { c.revalidate = on } }

// WithRetention drops extracts older than maxAge, then the oldest until the cache fits maxBytes. Zero disables either
func WithRetention(maxAge time.Duration, maxBytes int64) CachedOption {
	return func(c *CachedFetcher) { c.maxAge, c.maxBytes = maxAge, maxBytes }
}

// NewCachedFetcher caches under dir using base's client, or the default client when base is nil
func NewCachedFetcher(dir string, base *HTTPFetcher, opts ...CachedOption) *CachedFetcher {
	_ = os.MkdirAll(dir, 0o755)
	c := &CachedFetcher{dir: dir, client: base.client(), revalidate: true}
	for _, o := range opts {
		o(c)
	}
	return c
}

// file returns the data path for uri: a hash prefix keeps names unique, the base name keeps them readable
func (c *CachedFetcher) file(uri string) string {
	sum := sha256.Sum256([]byte(uri))
	name := path.Base(pathOf(uri))
	if name == "." || name == "/" {
		name = "object"
	}
	return filepath.Join(c.dir, hex.EncodeToString(sum[:8])+"-"+name+dataSuffix)
}

// Fetch implements Fetcher
func (c *CachedFetcher) Fetch(ctx context.Context, uri string) (io.ReadCloser, error) {
	defer c.maybePrune()
	data := c.file(uri)

	if fi, err := os.Stat(data); err != nil || !fi.Mode().IsRegular() {
		resp, err := c.get(ctx, uri, nil)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeSource, "claimsfile: get %s", uri)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, perr.Sourcef("claimsfile: %s answered %d", uri, resp.StatusCode)
		}
		return c.save(resp, uri, data)
	}

	if c.revalidate {
		rc, err := c.refresh(ctx, uri, data)
		if err == nil {
			return rc, nil
		}
		logger.Named("claimsfile").Warn().Err(err).Str("uri", uri).Msg("revalidation failed, serving the cached copy")
	}
	return openCached(data)
}

// get issues a GET, conditional on sc's validators when sc is set
func (c *CachedFetcher) get(ctx context.Context, uri string, sc *sidecar) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	if sc != nil && sc.ETag != "" {
		req.Header.Set("If-None-Match", sc.ETag)
	}
	if sc != nil && sc.LastModified != "" {
		req.Header.Set("If-Modified-Since", sc.LastModified)
	}
	return c.client.Do(req)
}

func (c *CachedFetcher) refresh(ctx context.Context, uri, data string) (io.ReadCloser, error) {
	sc := readSidecar(data + metaSuffix)
	resp, err := c.get(ctx, uri, sc)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return c.save(resp, uri, data)
	case http.StatusNotModified:
		_ = resp.Body.Close()
		if sc == nil {
			sc = &sidecar{URI: uri}
		}
		sc.CheckedAt = time.Now().UTC()
		_ = writeAtomic(data+metaSuffix, func(w io.Writer) error { return json.NewEncoder(w).Encode(sc) })
		logger.Named("claimsfile").Debug().Str("uri", uri).Msg("cached extract still current")
		return openCached(data)
	}
	_ = resp.Body.Close()
	return nil, perr.Sourcef("claimsfile: %s answered %d", uri, resp.StatusCode)
}

// save stores the body, then its sidecar, and hands back the stored file
func (c *CachedFetcher) save(resp *http.Response, uri, data string) (io.ReadCloser, error) {
	defer func() { _ = resp.Body.Close() }()
	var n int64
	err := writeAtomic(data, func(w io.Writer) (err error) {
		n, err = io.Copy(w, resp.Body)
		return err
	})
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeSource, "claimsfile: store %s", uri)
	}
	now := time.Now().UTC()
	sc := sidecar{
		URI:          uri,
		ETag:         strings.TrimSpace(resp.Header.Get("ETag")),
		LastModified: strings.TrimSpace(resp.Header.Get("Last-Modified")),
		Size:         n,
		FetchedAt:    now,
		CheckedAt:    now,
	}
	_ = writeAtomic(data+metaSuffix, func(w io.Writer) error { return json.NewEncoder(w).Encode(sc) })
	return openCached(data)
}

func openCached(data string) (io.ReadCloser, error) {
	f, err := os.Open(data)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeSource, "claimsfile: open cached %s", data)
	}
	return f, nil
}

func readSidecar(p string) *sidecar {
	b, err := os.ReadFile(p)
	if err != nil {
		return nil
	}
	var sc sidecar
	if json.Unmarshal(b, &sc) != nil {
		return nil
	}
	return &sc
}

// writeAtomic fills a temp file through fill and renames it over dst
func writeAtomic(dst string, fill func(io.Writer) error) error {
	tmp := dst + ".part"
	defer func() { _ = os.Remove(tmp) }()

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := fill(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

func (c *CachedFetcher) maybePrune() {
	if c.maxAge <= 0 && c.maxBytes <= 0 {
		return
	}
	now := time.Now().UnixNano()
	last := c.lastPrune.Load()
	if last != 0 && time.Duration(now-last) < pruneEvery {
		return
	}
	if c.lastPrune.CompareAndSwap(last, now) {
		_ = c.prune()
	}
}

// prune applies retention once
func (c *CachedFetcher) prune() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	type extract struct {
		data string
		size int64
		mod  time.Time
	}
	drop := func(data string) {
		_ = os.Remove(data)
		_ = os.Remove(data + metaSuffix)
	}

	var (
		kept  []extract
		total int64
	)
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), dataSuffix) {
			continue
		}
		fi, err := e.Info()
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		data := filepath.Join(c.dir, e.Name())
		if c.maxAge > 0 && time.Since(fi.ModTime()) > c.maxAge {
			drop(data)
			continue
		}
		kept = append(kept, extract{data: data, size: fi.Size(), mod: fi.ModTime()})
		total += fi.Size()
	}
	if c.maxBytes <= 0 {
		return nil
	}

	slices.SortFunc(kept, func(a, b extract) int { return a.mod.Compare(b.mod) })
	for _, x := range kept {
		if total <= c.maxBytes {
			break
		}
		drop(x.data)
		total -= x.size
	}
	return nil
}
