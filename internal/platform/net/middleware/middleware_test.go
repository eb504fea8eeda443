package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	perr "claimguard/internal/platform/errors"
	pnet "claimguard/internal/platform/net"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePort struct {
	client string
	err    error
}

func (f fakePort) Parse(*http.Request) (string, error) { return f.client, f.err }

func run(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func envelope(t *testing.T, rec *httptest.ResponseRecorder) pnet.Envelope {
	t.Helper()
	var e pnet.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}

func TestAuth(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = pnet.ClientID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/x", nil)

	rec := run(Auth(nil)(next), req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, seen)

	rec = run(Auth(fakePort{client: "ops"})(next), req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "ops", seen)

	seen = ""
	rec = run(Auth(fakePort{err: perr.Unauthorizedf("invalid bearer token")})(next), req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, seen)
	e := envelope(t, rec)
	assert.Equal(t, perr.ErrorCodeUnauthorized, e.Code)
	assert.Equal(t, "invalid bearer token", e.Error)

	rec = run(Auth(fakePort{err: errors.New("key store down")})(next), req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecoverJSON(t *testing.T) {
	h := RequestID(RecoverJSON(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil entity aggregate")
	})))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-5")

	rec := run(h, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	e := envelope(t, rec)
	assert.Equal(t, perr.ErrorCodePanic, e.Code)
	assert.Equal(t, "internal error", e.Error)
	assert.Equal(t, "req-5", e.RequestID)
}

func TestRecoverJSON_ReraisesAbort(t *testing.T) {
	h := RecoverJSON(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		run(h, httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestAccessLog_PassesThrough(t *testing.T) {
	h := AccessLog(time.Nanosecond)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(time.Millisecond)
		_, _ = w.Write([]byte("ok"))
	}))
	rec := run(h, httptest.NewRequest(http.MethodGet, "/api/v1/meta/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	fail := AccessLog(0)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	assert.Equal(t, http.StatusBadGateway, run(fail, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestTimeout(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, has := r.Context().Deadline()
		if has {
			w.Header().Set("X-Deadline", "1")
		}
	})
	assert.Empty(t, run(Timeout(0)(next), httptest.NewRequest(http.MethodGet, "/", nil)).Header().Get("X-Deadline"))
	assert.Equal(t, "1", run(Timeout(time.Minute)(next), httptest.NewRequest(http.MethodGet, "/", nil)).Header().Get("X-Deadline"))
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS([]string{"https://ops.example.org"})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/runs", nil)
	req.Header.Set("Origin", "https://ops.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	rec := run(h, req)
	assert.Equal(t, "https://ops.example.org", rec.Header().Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://elsewhere.example.com")
	rec = run(h, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCompress(t *testing.T) {
	body := strings.Repeat(`{"entity_id":"1234567890","risk":88},`, 200)
	h := Compress()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := run(h, req)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	assert.Less(t, rec.Body.Len(), len(body))
	assert.False(t, bytes.Contains(rec.Body.Bytes(), []byte("entity_id")))
}
