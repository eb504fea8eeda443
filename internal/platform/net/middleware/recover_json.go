package middleware

import (
	"net/http"
	"runtime/debug"

	perr "claimguard/internal/platform/errors"
	"claimguard/internal/platform/logger"
	pnet "claimguard/internal/platform/net"
)

// RecoverJSON turns a handler panic into a 500 envelope and logs the stack.
// http.ErrAbortHandler is re-raised so the server can drop the connection
func RecoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			logger.C(r.Context()).Error().
				Interface("panic", v).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			pnet.WriteEnvelope(w, pnet.Failure(perr.PanicErrf("internal error"), pnet.RequestID(r.Context())))
		}()
		next.ServeHTTP(w, r)
	})
}
