package claimsfile

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	perr "claimguard/internal/platform/errors"
)

// Fetcher opens a claims source for reading
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (io.ReadCloser, error)
}

// IsNetwork reports whether uri names a remote object
func IsNetwork(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// FileFetcher opens local paths, a file:// prefix is accepted
type FileFetcher struct{}

// Fetch opens the file at uri
func (FileFetcher) Fetch(_ context.Context, uri string) (io.ReadCloser, error) {
	path := strings.TrimPrefix(uri, "file://")
	f, err := os.Open(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeSource, "claimsfile: open %s", path)
	}
	return f, nil
}

// HTTPFetcher streams objects over http(s)
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcherWithTimeout builds an HTTPFetcher, zero means no client timeout
func NewHTTPFetcherWithTimeout(d time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: d}}
}

// Fetch issues a GET for uri
func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeSource, "claimsfile: request %s", uri)
	}
	resp, err := f.client().Do(req)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeSource, "claimsfile: get %s", uri)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, perr.Sourcef("claimsfile: unexpected status %d for %s", resp.StatusCode, uri)
	}
	return resp.Body, nil
}

func (f *HTTPFetcher) client() *http.Client {
	if f == nil || f.Client == nil {
		return http.DefaultClient
	}
	return f.Client
}

// SchemeFetcher routes by uri scheme and unwraps gzip by suffix
type SchemeFetcher struct {
	Local  Fetcher
	Remote Fetcher
}

// Fetch delegates to Local or Remote
func (s SchemeFetcher) Fetch(ctx context.Context, uri string) (io.ReadCloser, error) {
	var (
		rc  io.ReadCloser
		err error
	)
	if IsNetwork(uri) {
		if s.Remote == nil {
			return nil, perr.Sourcef("claimsfile: no remote fetcher for %s", uri)
		}
		rc, err = s.Remote.Fetch(ctx, uri)
	} else {
		local := s.Local
		if local == nil {
			local = FileFetcher{}
		}
		rc, err = local.Fetch(ctx, uri)
	}
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(strings.ToLower(pathOf(uri)), ".gz") {
		return rc, nil
	}
	gz, err := gzip.NewReader(rc)
	if err != nil {
		_ = rc.Close()
		return nil, perr.Wrapf(err, perr.ErrorCodeSource, "claimsfile: gzip %s", uri)
	}
	return &gzipBody{gz: gz, under: rc}, nil
}

func pathOf(uri string) string {
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		return u.Path
	}
	return uri
}

type gzipBody struct {
	gz    *gzip.Reader
	under io.ReadCloser
}

func (g *gzipBody) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipBody) Close() error {
	gerr := g.gz.Close()
	uerr := g.under.Close()
	if gerr != nil {
		return fmt.Errorf("claimsfile: close gzip: %w", gerr)
	}
	return uerr
}
