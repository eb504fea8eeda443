package httpkit

import (
	"crypto/subtle"
	"net/http"
	"strings"

	perrs "claimguard/internal/platform/errors"
	pnet "claimguard/internal/platform/net"
)

// TokenFunc resolves a bearer token to the API client that owns it
type TokenFunc func(token string) (clientID string, err error)

// Port implements middleware.AuthPort by reading Authorization and delegating to a TokenFunc
type Port struct {
	parse TokenFunc
}

// NewPortFunc builds a Port from a simple parser function
func NewPortFunc(fn TokenFunc) *Port {
	return &Port{parse: fn}
}

// Parse extracts the client id from an Authorization Bearer token.
// Returns unauthorized when the header is missing, malformed, or the parser refuses the token
func (p *Port) Parse(r *http.Request) (string, error) {
	raw, err := Bearer(r)
	if err != nil {
		return "", err
	}
	if p.parse == nil {
		return "", perrs.Unauthorizedf("invalid bearer token")
	}
	client, err := p.parse(raw)
	if err != nil || client == "" {
		return "", perrs.Unauthorizedf("invalid bearer token")
	}
	return client, nil
}

// StaticKeys accepts the tokens in keys, mapped client name to secret
func StaticKeys(keys map[string]string) TokenFunc {
	return func(token string) (string, error) {
		found := ""
		for client, secret := range keys {
			if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1 {
				found = client
			}
		}
		if found == "" {
			return "", perrs.Unauthorizedf("unknown api key")
		}
		return found, nil
	}
}

// ParseKeys reads a comma separated list of client:secret pairs
func ParseKeys(list string) (map[string]string, error) {
	keys := map[string]string{}
	for _, pair := range strings.Split(list, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		client, secret, ok := strings.Cut(pair, ":")
		client, secret = strings.TrimSpace(client), strings.TrimSpace(secret)
		if !ok || client == "" || secret == "" {
			return nil, perrs.InvalidArgf("api key %q must be client:secret", client)
		}
		if _, dup := keys[client]; dup {
			return nil, perrs.InvalidArgf("api key client %q listed twice", client)
		}
		keys[client] = secret
	}
	return keys, nil
}

// ClientOr is the authenticated client, def on open routes
func ClientOr(r *http.Request, def string) string {
	if id := pnet.ClientID(r.Context()); id != "" {
		return id
	}
	return def
}

// Bearer reads the token from "Authorization: Bearer <token>", scheme case insensitive
func Bearer(r *http.Request) (string, error) {
	scheme, token, _ := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	token = strings.TrimSpace(token)
	if !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", perrs.Unauthorizedf("missing bearer token")
	}
	return token, nil
}
