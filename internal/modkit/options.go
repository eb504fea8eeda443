package modkit

import (
	"claimguard/internal/modkit/httpkit"
	"claimguard/internal/platform/net/middleware"
	str "claimguard/internal/platform/strings"
)

// Option adjusts how a module is built
type Option func(*Built)

// Built is a module's resolved name, mount point, middleware and injected ports
type Built struct {
	Name   string
	Prefix string
	Mw     []middleware.Middleware
	Ports  any
}

// Build applies opts in order, later options win
func Build(opts ...Option) Built {
	var b Built
	for _, o := range opts {
		o(&b)
	}
	b.Mw = append([]middleware.Middleware(nil), b.Mw...)
	return b
}

func WithName(name string) Option     { return func(b *Built) { b.Name = name } }
func WithPrefix(prefix string) Option { return func(b *Built) { b.Prefix = prefix } }

// WithMiddlewares appends module scoped middleware
func WithMiddlewares(mw ...middleware.Middleware) Option {
	return func(b *Built) { b.Mw = append(b.Mw, mw...) }
}

// WithPorts injects another module's ports, typed by the receiving module
func WithPorts[T any](p T) Option { return func(b *Built) { b.Ports = p } }

// Mount registers routes under the built prefix behind the built middleware
func (b Built) Mount(r httpkit.Router, register func(httpkit.Router)) {
	httpkit.MountUnder(r, str.MustPrefix(b.Prefix), b.Mw, register)
}
