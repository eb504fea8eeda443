package httpkit

import (
	"net/http"

	phttp "claimguard/internal/platform/net/http"
	"claimguard/internal/platform/net/middleware"
)

// Get mounts a body-less handler. Return a Response to pick the status, anything else is a 200
func Get(r Router, path string, h func(*http.Request) (any, error)) { r.Get(path, phttp.NoBody(h)) }

// Post mounts a body-less POST, e.g. a cancel action
func Post(r Router, path string, h func(*http.Request) (any, error)) { r.Post(path, phttp.NoBody(h)) }

// PostJSON mounts a POST whose body is decoded and validated into T first
func PostJSON[T any](r Router, path string, h func(*http.Request, T) (any, error)) {
	r.Post(path, phttp.JSONHandler(h))
}

// MountUnder mounts a module's routes at prefix behind mw
func MountUnder(r Router, prefix string, mw []middleware.Middleware, mount func(Router)) {
	r.Route(prefix, func(sub Router) {
		sub.Use(mw...)
		mount(sub)
	})
}

// MountAPIV1 mounts the versioned api at /api/v1 behind mw
func MountAPIV1(r Router, mw []middleware.Middleware, mount func(Router)) {
	MountUnder(r, "/api/v1", mw, mount)
}

// Protected mounts fn's routes behind bearer auth. A nil port leaves them open
func Protected(r Router, p middleware.AuthPort, fn func(Router)) {
	r.Group(func(g Router) {
		g.Use(middleware.Auth(p))
		fn(g)
	})
}
