package middleware

import (
	"net/http"

	pnet "claimguard/internal/platform/net"
)

// AuthPort resolves the calling api client from a request
type AuthPort interface {
	Parse(r *http.Request) (clientID string, err error)
}

// Auth rejects requests p refuses with its error envelope and puts the client id
// on the context of the rest. A nil p lets everything through
func Auth(p AuthPort) Middleware {
	return func(next http.Handler) http.Handler {
		if p == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client, err := p.Parse(r)
			if err != nil {
				pnet.WriteEnvelope(w, pnet.Failure(err, pnet.RequestID(r.Context())))
				return
			}
			next.ServeHTTP(w, r.WithContext(pnet.WithClient(r.Context(), client)))
		})
	}
}
