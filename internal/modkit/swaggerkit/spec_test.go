package swaggerkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	phttp "claimguard/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const generated = `{
 "swagger": "2.0",
 "info": {"title": "Claimguard API"},
 "securityDefinitions": {"BearerAuth": {"type": "apiKey"}},
 "paths": {"/runs": {"post": {"responses": {"201": {"description": "created"}, "400": {"description": "kept"}}}}}
}`

func TestPatch(t *testing.T) {
	var spec map[string]any
	require.NoError(t, json.Unmarshal([]byte(generated), &spec))
	patch(spec, "(staging)")

	assert.Equal(t, "3.0.3", spec["openapi"])
	assert.NotContains(t, spec, "swagger")
	assert.NotContains(t, spec, "securityDefinitions")
	assert.Equal(t, []any{map[string]any{"url": "/api/v1"}}, spec["servers"])
	assert.Equal(t, "Claimguard API (staging)", spec["info"].(map[string]any)["title"])

	comps := spec["components"].(map[string]any)
	assert.Contains(t, comps["schemas"], "Envelope")
	assert.Contains(t, comps["securitySchemes"], "BearerAuth")

	resps := spec["paths"].(map[string]any)["/runs"].(map[string]any)["post"].(map[string]any)["responses"].(map[string]any)
	assert.Equal(t, map[string]any{"description": "kept"}, resps["400"])
	assert.Contains(t, resps, "401")
	assert.Contains(t, resps, "500")
	assert.Contains(t, resps, "201")
}

func TestPatch_DowngradesOpenAPI31(t *testing.T) {
	spec := map[string]any{"openapi": "3.1.0", "servers": []any{}}
	patch(spec, "")
	assert.Equal(t, "3.0.3", spec["openapi"])
	assert.Equal(t, []any{}, spec["servers"])
}

func TestServeDoc(t *testing.T) {
	rec := httptest.NewRecorder()
	serveDoc(func() string { return "{" }, "")(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	serveDoc(func() string { return generated }, "")(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	var spec map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spec))
	assert.Equal(t, "3.0.3", spec["openapi"])
}

func TestMount(t *testing.T) {
	mux := chi.NewRouter()
	Mount(phttp.AdaptChi(mux), false)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/docs/doc.json", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	mux = chi.NewRouter()
	Mount(phttp.AdaptChi(mux), true)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/docs", nil))
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/docs/doc.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Envelope"`)
}
