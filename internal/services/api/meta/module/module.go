// Package module exposes the meta endpoints: liveness, readiness, build and engine setup
package module

import (
	"time"

	"claimguard/internal/core/version"
	"claimguard/internal/modkit"
	"claimguard/internal/modkit/httpkit"

	metahttp "claimguard/internal/services/api/meta/http"
)

type Module struct {
	b    modkit.Built
	deps metahttp.Deps
}

// New builds the meta module, engine is what /meta/engine reports
func New(deps modkit.Deps, engine metahttp.Engine, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("meta"), modkit.WithPrefix("/meta")}, opts...)...)

	d := metahttp.Deps{
		ServiceName: version.Service + "-api",
		StartedAt:   time.Now(),
		Engine:      engine,
	}
	// typed nils would read as configured
	if deps.PG != nil {
		d.PG = deps.PG
	}
	if deps.CH != nil {
		d.CH = deps.CH
	}
	return &Module{b: b, deps: d}
}

func (m *Module) Name() string { return m.b.Name }
func (m *Module) Ports() any   { return nil }

func (m *Module) MountRoutes(r httpkit.Router) {
	m.b.Mount(r, func(rr httpkit.Router) { metahttp.Register(rr, m.deps) })
}
