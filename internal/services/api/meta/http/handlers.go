// Package http serves the meta endpoints
package http

import (
	"context"
	"net/http"
	"time"

	"claimguard/internal/core/version"
	"claimguard/internal/modkit/httpkit"

	"golang.org/x/sync/errgroup"
)

// ProbeTimeout bounds every dependency ping made by /ready
const ProbeTimeout = 2 * time.Second

// Pinger is a backend /ready can probe
type Pinger interface {
	Ping(context.Context) error
}

// Engine is the scoring setup reported on /meta/engine
type Engine struct {
	Trees      int     `json:"trees"       example:"100"`
	SampleCap  int     `json:"sample_cap"  example:"256"`
	Threshold  float64 `json:"threshold"   example:"0.6"`
	RecordSink string  `json:"record_sink" example:"pg"`
}

// Deps is what the meta routes report on. PG and CH stay nil when disabled
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	PG          any
	CH          any
	Engine      Engine
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	OK      bool   `json:"ok"      example:"true"`
	Service string `json:"service" example:"claimguard-api"`
	Started string `json:"started" example:"2026-10-19T13:00:00Z"`
	Uptime  int64  `json:"uptime"  example:"300"`
}

// Probe is one backend's readiness: ok, fail, skipped (disabled) or unknown (cannot be pinged)
type Probe struct {
	Name   string `json:"name"   example:"pg"`
	Status string `json:"status" example:"ok"`
	Error  string `json:"error,omitempty"`
}

// ReadyResponse is ok, degraded or fail
type ReadyResponse struct {
	Status string  `json:"status" example:"ok"`
	Checks []Probe `json:"checks"`
}

// EngineResponse pairs the scoring setup with the build
type EngineResponse struct {
	Engine Engine            `json:"engine"`
	Build  version.BuildInfo `json:"build"`
}

type handlers struct{ d Deps }

// Register mounts health, ready, version and engine on r
func Register(r httpkit.Router, d Deps) {
	h := handlers{d: d}
	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", func(*http.Request) (any, error) { return version.Info(), nil })
	httpkit.Get(r, "/engine", h.engine)
}

// @Summary Liveness and uptime
// @Tags Meta
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /meta/health [get]
func (h handlers) health(*http.Request) (any, error) {
	return HealthResponse{
		OK:      true,
		Service: h.d.ServiceName,
		Started: h.d.StartedAt.UTC().Format(time.RFC3339),
		Uptime:  int64(time.Since(h.d.StartedAt) / time.Second),
	}, nil
}

// @Summary Readiness of the configured stores
// @Description A disabled store is skipped. Any failed ping answers 503
// @Tags Meta
// @Produce json
// @Success 200 {object} ReadyResponse
// @Failure 503 {object} ReadyResponse
// @Router /meta/ready [get]
func (h handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), ProbeTimeout)
	defer cancel()

	probes := []Probe{{Name: "pg"}, {Name: "ch"}}
	var g errgroup.Group
	for i, backend := range []any{h.d.PG, h.d.CH} {
		g.Go(func() error {
			probes[i] = probe(ctx, probes[i].Name, backend)
			return nil
		})
	}
	_ = g.Wait()

	res := ReadyResponse{Status: "ok", Checks: probes}
	for _, p := range probes {
		switch {
		case p.Status == "fail":
			res.Status = "fail"
		case p.Status == "unknown" && res.Status == "ok":
			res.Status = "degraded"
		}
	}
	if res.Status == "fail" {
		return httpkit.Response{Status: http.StatusServiceUnavailable, Body: res}, nil
	}
	return res, nil
}

func probe(ctx context.Context, name string, backend any) Probe {
	p := Probe{Name: name, Status: "skipped"}
	if backend == nil {
		return p
	}
	pinger, ok := backend.(Pinger)
	if !ok {
		p.Status = "unknown"
		return p
	}
	if err := pinger.Ping(ctx); err != nil {
		p.Status, p.Error = "fail", err.Error()
		return p
	}
	p.Status = "ok"
	return p
}

// @Summary Scoring engine setup and build
// @Tags Meta
// @Produce json
// @Success 200 {object} EngineResponse
// @Router /meta/engine [get]
func (h handlers) engine(*http.Request) (any, error) {
	return EngineResponse{Engine: h.d.Engine, Build: version.Info()}, nil
}
