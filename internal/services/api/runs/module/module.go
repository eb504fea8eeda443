// Package module mounts the run lifecycle and result routes over the analysis ports
package module

import (
	"claimguard/internal/modkit"
	"claimguard/internal/modkit/httpkit"
	analysis "claimguard/internal/services/analysis/domain"
	runshttp "claimguard/internal/services/api/runs/http"
	runssvc "claimguard/internal/services/api/runs/service"
)

// EntitiesPrefix is where the cross run entity lookup is mounted
const EntitiesPrefix = "/entities"

type Module struct {
	b   modkit.Built
	svc runssvc.Service
}

// Ports is what the module needs from the analysis module, passed with modkit.WithPorts
type Ports struct {
	Runner analysis.RunnerPort
	Query  analysis.QueryPort
}

// New panics without both analysis ports
func New(_ modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("runs"), modkit.WithPrefix("/runs")}, opts...)...)

	p, _ := b.Ports.(Ports)
	if p.Runner == nil || p.Query == nil {
		panic("runs: module needs the analysis Runner and Query ports")
	}
	return &Module{b: b, svc: runssvc.New(p.Runner, p.Query)}
}

func (m *Module) Name() string { return m.b.Name }

// MountRoutes mounts the run routes under the module prefix and the entity lookup beside them
func (m *Module) MountRoutes(r httpkit.Router) {
	m.b.Mount(r, func(rr httpkit.Router) { runshttp.Register(rr, m.svc) })
	httpkit.MountUnder(r, EntitiesPrefix, m.b.Mw, func(rr httpkit.Router) {
		runshttp.RegisterEntities(rr, m.svc)
	})
}
