package module

import (
	"context"

	"claimguard/internal/services/api/runs/domain"
	runssvc "claimguard/internal/services/api/runs/service"
)

// Ports returns the module ports
func (m *Module) Ports() any { return adaptRunsPort{svc: m.svc} }

type adaptRunsPort struct{ svc runssvc.Service }

var _ domain.ServicePort = adaptRunsPort{}

// Start queues a run
func (a adaptRunsPort) Start(ctx context.Context, in domain.StartInput) (domain.RunView, error) {
	return a.svc.Start(ctx, in)
}

// Get returns a run view
func (a adaptRunsPort) Get(ctx context.Context, id string) (domain.RunView, error) {
	return a.svc.Get(ctx, id)
}

// Cancel stops a run
func (a adaptRunsPort) Cancel(ctx context.Context, id string) (domain.RunView, error) {
	return a.svc.Cancel(ctx, id)
}

// Entities pages entity aggregates of a run
func (a adaptRunsPort) Entities(ctx context.Context, runID string, in domain.PageInput) ([]domain.EntityRow, error) {
	return a.svc.Entities(ctx, runID, in)
}

// Alerts lists alerts of a run
func (a adaptRunsPort) Alerts(ctx context.Context, runID string, in domain.AlertFilter) ([]domain.AlertRow, error) {
	return a.svc.Alerts(ctx, runID, in)
}

// Records lists enriched records of a run
func (a adaptRunsPort) Records(ctx context.Context, runID string, in domain.RecordFilter) ([]domain.RecordRow, error) {
	return a.svc.Records(ctx, runID, in)
}

// Entity returns the latest aggregate of one entity
func (a adaptRunsPort) Entity(ctx context.Context, entityID string) (domain.EntityRow, error) {
	return a.svc.Entity(ctx, entityID)
}
