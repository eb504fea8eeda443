package httpkit

import (
	"net/http"
	"strconv"
	"strings"

	perrs "claimguard/internal/platform/errors"
	"claimguard/internal/platform/net/http/bind"

	"github.com/go-chi/chi/v5"
)

// Param returns a trimmed path parameter, empty when the route has none by that name
func Param(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}

// MustParam returns a path parameter or an invalid argument error naming it
func MustParam(r *http.Request, name string) (string, error) {
	v := Param(r, name)
	if v == "" {
		return "", perrs.WithField(perrs.InvalidArgf("missing %s", name), name)
	}
	return v, nil
}

// QueryInt reads an integer query parameter, def when absent
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, perrs.WithField(perrs.InvalidArgf("%s must be an integer", name), name)
	}
	return n, nil
}

// QueryString reads a trimmed query parameter
func QueryString(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}

// Validate runs struct validation tags and maps the first failure to a validation error
func Validate(v any) error {
	return bind.Struct(v)
}
