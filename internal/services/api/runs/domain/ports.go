package domain

import "context"

// ServicePort is consumed by handlers and other modules
type ServicePort interface {
	Start(ctx context.Context, in StartInput) (RunView, error)
	Get(ctx context.Context, id string) (RunView, error)
	Cancel(ctx context.Context, id string) (RunView, error)

	Entities(ctx context.Context, runID string, in PageInput) ([]EntityRow, error)
	Alerts(ctx context.Context, runID string, in AlertFilter) ([]AlertRow, error)
	Records(ctx context.Context, runID string, in RecordFilter) ([]RecordRow, error)
	Entity(ctx context.Context, entityID string) (EntityRow, error)
}
