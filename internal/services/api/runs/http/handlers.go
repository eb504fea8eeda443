// Package http provides http transport for analysis runs
package http

import (
	stdhttp "net/http"

	"claimguard/internal/modkit/httpkit"
	"claimguard/internal/platform/logger"
	"claimguard/internal/services/api/runs/domain"
	svc "claimguard/internal/services/api/runs/service"
)

// Register mounts run endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	// lifecycle
	httpkit.PostJSON[domain.StartInput](r, "/", h.start)
	httpkit.Get(r, "/{id}", h.get)
	httpkit.Post(r, "/{id}/cancel", h.cancel)

	// results
	httpkit.Get(r, "/{id}/entities", h.entities)
	httpkit.Get(r, "/{id}/alerts", h.alerts)
	httpkit.Get(r, "/{id}/records", h.records)
}

// RegisterEntities mounts the cross run entity lookup
func RegisterEntities(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}
	httpkit.Get(r, "/{id}", h.entity)
}

type handlers struct{ svc svc.Service }

// swagger:route POST /runs Runs runsStart
// @Summary Queue an analysis run
// @Tags Runs
// @Accept json
// @Produce json
// @Param payload body domain.StartInput true "Run"
// @Success 201 {object} domain.RunView "queued"
// @Failure 400 {object} httpkit.Envelope "validation"
// @Failure 401 {object} httpkit.Envelope "missing or unknown api key"
// @Security BearerAuth
// @Router /runs [post]
func (h *handlers) start(r *stdhttp.Request, in domain.StartInput) (any, error) {
	if err := httpkit.Validate(in); err != nil {
		return nil, err
	}
	v, err := h.svc.Start(r.Context(), in)
	if err != nil {
		return nil, err
	}
	logger.C(r.Context()).Info().Str("run_id", v.ID).Str("client", httpkit.ClientOr(r, "anonymous")).
		Str("source", v.Source).Msg("run queued")
	return httpkit.Created(v), nil
}

// swagger:route GET /runs/{id} Runs runsGet
// @Summary Run status and summary
// @Tags Runs
// @Produce json
// @Param id path string true "Run id"
// @Success 200 {object} domain.RunView "ok"
// @Failure 404 {object} httpkit.Envelope "not found"
// @Router /runs/{id} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	id, err := httpkit.MustParam(r, "id")
	if err != nil {
		return nil, err
	}
	return h.svc.Get(r.Context(), id)
}

// swagger:route POST /runs/{id}/cancel Runs runsCancel
// @Summary Cancel a run after its in flight batch
// @Tags Runs
// @Produce json
// @Param id path string true "Run id"
// @Success 200 {object} domain.RunView "ok"
// @Failure 409 {object} httpkit.Envelope "already finished"
// @Router /runs/{id}/cancel [post]
func (h *handlers) cancel(r *stdhttp.Request) (any, error) {
	id, err := httpkit.MustParam(r, "id")
	if err != nil {
		return nil, err
	}
	return h.svc.Cancel(r.Context(), id)
}

// swagger:route GET /runs/{id}/entities Runs runsEntities
// @Summary Entity aggregates of a run ordered by risk
// @Tags Runs
// @Produce json
// @Param id path string true "Run id"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} domain.EntityRow "ok"
// @Router /runs/{id}/entities [get]
func (h *handlers) entities(r *stdhttp.Request) (any, error) {
	id, err := httpkit.MustParam(r, "id")
	if err != nil {
		return nil, err
	}
	var in domain.PageInput
	if in.Limit, err = httpkit.QueryInt(r, "limit", 0); err != nil {
		return nil, err
	}
	if in.Offset, err = httpkit.QueryInt(r, "offset", 0); err != nil {
		return nil, err
	}
	if err := httpkit.Validate(in); err != nil {
		return nil, err
	}
	return h.svc.Entities(r.Context(), id, in)
}

// swagger:route GET /runs/{id}/alerts Runs runsAlerts
// @Summary Alerts of a run, most severe first
// @Tags Runs
// @Produce json
// @Param id path string true "Run id"
// @Param min_severity query string false "low, medium, high or critical"
// @Param limit query int false "Max rows"
// @Success 200 {array} domain.AlertRow "ok"
// @Router /runs/{id}/alerts [get]
func (h *handlers) alerts(r *stdhttp.Request) (any, error) {
	id, err := httpkit.MustParam(r, "id")
	if err != nil {
		return nil, err
	}
	in := domain.AlertFilter{MinSeverity: httpkit.QueryString(r, "min_severity")}
	if in.Limit, err = httpkit.QueryInt(r, "limit", 0); err != nil {
		return nil, err
	}
	if err := httpkit.Validate(in); err != nil {
		return nil, err
	}
	return h.svc.Alerts(r.Context(), id, in)
}

// swagger:route GET /runs/{id}/records Runs runsRecords
// @Summary Enriched records of a run, highest risk first
// @Tags Runs
// @Produce json
// @Param id path string true "Run id"
// @Param min_score query int false "Minimum risk score"
// @Param limit query int false "Max rows"
// @Success 200 {array} domain.RecordRow "ok"
// @Router /runs/{id}/records [get]
func (h *handlers) records(r *stdhttp.Request) (any, error) {
	id, err := httpkit.MustParam(r, "id")
	if err != nil {
		return nil, err
	}
	var in domain.RecordFilter
	if in.MinScore, err = httpkit.QueryInt(r, "min_score", 0); err != nil {
		return nil, err
	}
	if in.Limit, err = httpkit.QueryInt(r, "limit", 0); err != nil {
		return nil, err
	}
	if err := httpkit.Validate(in); err != nil {
		return nil, err
	}
	return h.svc.Records(r.Context(), id, in)
}

// swagger:route GET /entities/{id} Entities entitiesGet
// @Summary Latest aggregate of a billing entity
// @Tags Entities
// @Produce json
// @Param id path string true "Billing entity id"
// @Success 200 {object} domain.EntityRow "ok"
// @Failure 404 {object} httpkit.Envelope "not found"
// @Router /entities/{id} [get]
func (h *handlers) entity(r *stdhttp.Request) (any, error) {
	id, err := httpkit.MustParam(r, "id")
	if err != nil {
		return nil, err
	}
	return h.svc.Entity(r.Context(), id)
}
