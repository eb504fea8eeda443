// Package middleware holds the api's request middleware. Generic concerns come from
// chi and go-chi/cors, auth and access logging are our own
package middleware

import (
	"compress/flate"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	chicors "github.com/go-chi/cors"
)

// Middleware wraps a handler
type Middleware = func(http.Handler) http.Handler

var (
	// RequestID reuses an inbound X-Request-Id or mints one
	RequestID Middleware = chimw.RequestID

	// RealIP trusts X-Forwarded-For and X-Real-IP for RemoteAddr
	RealIP Middleware = chimw.RealIP

	NoCache      Middleware = chimw.NoCache
	StripSlashes Middleware = chimw.StripSlashes
)

// Compress gzips and deflates responses at flate.BestSpeed
func Compress() Middleware { return chimw.Compress(flate.BestSpeed) }

// Timeout cancels the request context after d, 0 disables it
func Timeout(d time.Duration) Middleware {
	if d <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return chimw.Timeout(d)
}

// CORS allows origins to call the api with a bearer token. An empty list allows any origin
func CORS(origins []string) Middleware {
	return chicors.Handler(chicors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	})
}
