// Package service maps the runs api onto the analysis module ports
package service

import (
	"context"
	"strings"

	"claimguard/internal/core/claims"
	perr "claimguard/internal/platform/errors"
	analysis "claimguard/internal/services/analysis/domain"
	"claimguard/internal/services/api/runs/domain"

	"github.com/google/uuid"
)

// Service defines the runs service contract
type Service interface {
	domain.ServicePort
}

// Svc implements the runs service
type Svc struct {
	runner analysis.RunnerPort
	query  analysis.QueryPort
}

// New constructs a runs service
func New(runner analysis.RunnerPort, query analysis.QueryPort) *Svc {
	if runner == nil {
		panic("runs.Service requires a non nil RunnerPort")
	}
	if query == nil {
		panic("runs.Service requires a non nil QueryPort")
	}
	return &Svc{runner: runner, query: query}
}

// Start queues a run and returns its initial view
func (s *Svc) Start(ctx context.Context, in domain.StartInput) (domain.RunView, error) {
	r, err := s.runner.Start(ctx, analysis.StartInput{
		Source:       strings.TrimSpace(in.Source),
		ExpectedRows: in.ExpectedRows,
		Seed:         in.Seed,
	})
	if err != nil {
		return domain.RunView{}, err
	}
	return runView(r), nil
}

// Get returns the live or persisted view of a run
func (s *Svc) Get(ctx context.Context, id string) (domain.RunView, error) {
	if err := checkID(id); err != nil {
		return domain.RunView{}, err
	}
	r, err := s.runner.Status(ctx, id)
	if err != nil {
		return domain.RunView{}, err
	}
	return runView(r), nil
}

// Cancel stops a non terminal run after its in flight batch
func (s *Svc) Cancel(ctx context.Context, id string) (domain.RunView, error) {
	if err := checkID(id); err != nil {
		return domain.RunView{}, err
	}
	r, err := s.runner.Cancel(ctx, id)
	if err != nil {
		return domain.RunView{}, err
	}
	return runView(r), nil
}

// Entities pages the entity aggregates of a run
func (s *Svc) Entities(ctx context.Context, runID string, in domain.PageInput) ([]domain.EntityRow, error) {
	if err := s.known(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.query.Entities(ctx, analysis.EntityQuery{RunID: runID, Limit: in.Limit, Offset: in.Offset})
	if err != nil {
		return nil, err
	}
	out := make([]domain.EntityRow, 0, len(rows))
	for _, e := range rows {
		out = append(out, entityRow(e))
	}
	return out, nil
}

// Alerts lists alerts of a run at or above a severity
func (s *Svc) Alerts(ctx context.Context, runID string, in domain.AlertFilter) ([]domain.AlertRow, error) {
	if err := s.known(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.query.Alerts(ctx, analysis.AlertQuery{
		RunID:       runID,
		MinSeverity: claims.Severity(strings.ToLower(in.MinSeverity)),
		Limit:       in.Limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.AlertRow, 0, len(rows))
	for _, a := range rows {
		out = append(out, domain.AlertRow{
			ID:          a.ID,
			EntityID:    a.EntityID,
			Kind:        string(a.Kind),
			Severity:    string(a.Severity),
			Title:       a.Title,
			Description: a.Description,
			RiskScore:   a.RiskScore,
			TotalPaid:   a.TotalPaid,
			Status:      string(a.Status),
		})
	}
	return out, nil
}

// Records lists enriched records of a run at or above a risk score
func (s *Svc) Records(ctx context.Context, runID string, in domain.RecordFilter) ([]domain.RecordRow, error) {
	if err := s.known(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.query.Records(ctx, analysis.RecordQuery{RunID: runID, MinScore: in.MinScore, Limit: in.Limit})
	if err != nil {
		return nil, err
	}
	out := make([]domain.RecordRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.RecordRow{
			BillingID:        r.BillingID,
			ServicingID:      r.ServicingID,
			Code:             r.Code,
			Period:           r.Period,
			Units:            r.Units,
			Subjects:         r.Subjects,
			Paid:             r.Paid,
			CostPerUnit:      r.CostPerUnit,
			UnitsPerSubject:  r.UnitsPerSubject,
			CostZ:            r.CostZ,
			UnitsZ:           r.UnitsZ,
			AnomalyScore:     r.AnomalyScore,
			Anomalous:        r.Anomalous,
			VolumePercentile: r.VolumePercentile,
			RiskScore:        r.RiskScore,
		})
	}
	return out, nil
}

// Entity returns the latest aggregate of one billing entity across runs
func (s *Svc) Entity(ctx context.Context, entityID string) (domain.EntityRow, error) {
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return domain.EntityRow{}, perr.WithField(perr.InvalidArgf("entity id is required"), "entity_id")
	}
	e, err := s.query.Entity(ctx, entityID)
	if err != nil {
		return domain.EntityRow{}, err
	}
	return entityRow(e), nil
}

// known 404s list queries against runs that do not exist
func (s *Svc) known(ctx context.Context, runID string) error {
	if err := checkID(runID); err != nil {
		return err
	}
	_, err := s.runner.Status(ctx, runID)
	return err
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return perr.WithField(perr.InvalidArgf("run id must be a uuid"), "id")
	}
	return nil
}

func runView(r analysis.Run) domain.RunView {
	return domain.RunView{
		ID:               r.ID,
		Source:           r.Source,
		Status:           string(r.Status),
		Progress:         r.Progress,
		RowsProcessed:    r.RowsProcessed,
		RowsDropped:      r.RowsDropped,
		TotalRecords:     r.TotalRecords,
		AnomalousRecords: r.AnomalousRecords,
		HighRiskEntities: r.HighRiskEntities,
		CriticalAlerts:   r.CriticalAlerts,
		Batches:          r.Batches,
		TotalSpending:    r.TotalSpending,
		PeriodStart:      r.PeriodStart,
		PeriodEnd:        r.PeriodEnd,
		Error:            r.Error,
		CreatedAt:        r.CreatedAt,
		StartedAt:        r.StartedAt,
		FinishedAt:       r.FinishedAt,
	}
}

func entityRow(e claims.EntityAggregate) domain.EntityRow {
	return domain.EntityRow{
		EntityID:           e.EntityID,
		Records:            e.Records,
		TotalPaid:          e.TotalPaid,
		TotalUnits:         e.TotalUnits,
		TotalSubjects:      e.TotalSubjects,
		UniqueCodes:        e.UniqueCodes,
		AvgRiskScore:       e.AvgRiskScore,
		AvgCostPerUnit:     e.AvgCostPerUnit,
		AvgUnitsPerSubject: e.AvgUnitsPerSubject,
		CostAnomalies:      e.CostAnomalies,
		VolumeAnomalies:    e.VolumeAnomalies,
		ModelAnomalies:     e.ModelAnomalies,
	}
}
