// Package swaggerkit serves the api's OpenAPI document and the swagger ui
package swaggerkit

import (
	"net/http"

	"claimguard/internal/platform/config"
	phttp "claimguard/internal/platform/net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Mount serves /api/docs when enabled. CORE_API_DOCS_TITLE_SUFFIX is appended to the title
func Mount(r phttp.Router, enabled bool) {
	if !enabled {
		return
	}
	suffix := config.New().Prefix("CORE_API_").MayString("DOCS_TITLE_SUFFIX", "")

	r.Get("/api/docs", http.RedirectHandler("/api/docs/", http.StatusPermanentRedirect).ServeHTTP)
	r.Get("/api/docs/doc.json", serveDoc(docReader, suffix))
	r.Handle("/api/docs/*", httpSwagger.Handler(
		httpSwagger.InstanceName("api"),
		httpSwagger.URL("/api/docs/doc.json"),
	))
}
