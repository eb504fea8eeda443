package httpkit

import (
	"time"

	"claimguard/internal/platform/net/middleware"
)

// StackOptions tunes CommonStack
type StackOptions struct {
	// CORSOrigins may call the api from a browser, empty allows any
	CORSOrigins []string

	// SlowRequest marks access log lines at warn
	SlowRequest time.Duration

	// Timeout bounds each request's context, 0 disables it
	Timeout time.Duration
}

// CommonStack is the middleware every api route runs behind, outermost first
func CommonStack(o StackOptions) []middleware.Middleware {
	return []middleware.Middleware{
		middleware.RequestID,
		middleware.RealIP,
		middleware.AccessLog(o.SlowRequest),
		middleware.RecoverJSON,
		middleware.NoCache,
		middleware.CORS(o.CORSOrigins),
		middleware.Compress(),
		middleware.StripSlashes,
		middleware.Timeout(o.Timeout),
	}
}
