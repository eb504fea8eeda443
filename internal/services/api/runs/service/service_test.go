package service

import (
	"context"
	"testing"

	"claimguard/internal/core/claims"
	perr "claimguard/internal/platform/errors"
	"claimguard/internal/platform/testkit"
	analysis "claimguard/internal/services/analysis/domain"
	"claimguard/internal/services/api/runs/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const runID = "0b7e7c1a-3c55-4a43-9d43-57b4f4a3c001"

type fakeRunner struct {
	started analysis.StartInput
	runs    map[string]analysis.Run
}

func (f *fakeRunner) Start(_ context.Context, in analysis.StartInput) (analysis.Run, error) {
	f.started = in
	return analysis.Run{ID: runID, Source: in.Source, Status: analysis.StatusQueued}, nil
}

func (f *fakeRunner) Run(context.Context, analysis.StartInput) (analysis.Result, error) {
	return analysis.Result{}, perr.Internalf("not used")
}

func (f *fakeRunner) Status(_ context.Context, id string) (analysis.Run, error) {
	if r, ok := f.runs[id]; ok {
		return r, nil
	}
	return analysis.Run{}, perr.NotFoundf("analysis run %s not found", id)
}

func (f *fakeRunner) Cancel(ctx context.Context, id string) (analysis.Run, error) {
	r, err := f.Status(ctx, id)
	if err != nil {
		return r, err
	}
	if r.Status.Terminal() {
		return r, perr.Conflictf("run %s already %s", id, r.Status)
	}
	r.Status = analysis.StatusFailed
	r.Error = analysis.CancelledReason
	return r, nil
}

type fakeQuery struct {
	alertQ  analysis.AlertQuery
	recordQ analysis.RecordQuery
	entityQ analysis.EntityQuery
}

func (f *fakeQuery) Entities(_ context.Context, q analysis.EntityQuery) ([]claims.EntityAggregate, error) {
	f.entityQ = q
	return []claims.EntityAggregate{{EntityID: "E1", Records: 3, TotalPaid: decimal.RequireFromString("10.50"), AvgRiskScore: 80}}, nil
}

func (f *fakeQuery) Alerts(_ context.Context, q analysis.AlertQuery) ([]claims.Alert, error) {
	f.alertQ = q
	return []claims.Alert{{ID: "a1", EntityID: "E1", Kind: claims.AlertCriticalRisk, Severity: claims.SeverityCritical, RiskScore: 91, Status: claims.AlertNew}}, nil
}

func (f *fakeQuery) Records(_ context.Context, q analysis.RecordQuery) ([]claims.EnrichedRecord, error) {
	f.recordQ = q
	rec := claims.EnrichedRecord{RiskScore: 77, Anomalous: true}
	rec.BillingID = "E1"
	rec.Code = "99213"
	return []claims.EnrichedRecord{rec}, nil
}

func (f *fakeQuery) Entity(_ context.Context, id string) (claims.EntityAggregate, error) {
	if id != "E1" {
		return claims.EntityAggregate{}, perr.NotFoundf("entity %s not found", id)
	}
	return claims.EntityAggregate{EntityID: "E1", UniqueCodes: 2}, nil
}

func newSvc() (*Svc, *fakeRunner, *fakeQuery) {
	r := &fakeRunner{runs: map[string]analysis.Run{
		runID: {ID: runID, Status: analysis.StatusCompleted, Progress: 100, TotalSpending: decimal.RequireFromString("99.95")},
	}}
	q := &fakeQuery{}
	return New(r, q), r, q
}

func TestNew_PanicsOnNilPorts(t *testing.T) {
	t.Parallel()
	testkit.MustPanic(t, func() { New(nil, &fakeQuery{}) })
	testkit.MustPanic(t, func() { New(&fakeRunner{}, nil) })
}

func TestStart_TrimsSource(t *testing.T) {
	t.Parallel()
	s, r, _ := newSvc()

	v, err := s.Start(context.Background(), domain.StartInput{Source: "  claims.csv ", ExpectedRows: 10, Seed: 4})
	require.NoError(t, err)
	assert.Equal(t, "claims.csv", r.started.Source)
	assert.Equal(t, int64(10), r.started.ExpectedRows)
	assert.Equal(t, int64(4), r.started.Seed)
	assert.Equal(t, "queued", v.Status)
}

func TestGet_MapsRunAndRejectsBadID(t *testing.T) {
	t.Parallel()
	s, _, _ := newSvc()

	v, err := s.Get(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, "completed", v.Status)
	assert.Equal(t, 100, v.Progress)
	assert.Equal(t, "99.95", v.TotalSpending.StringFixed(2))

	_, err = s.Get(context.Background(), "nope")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeInvalidArgument))
}

func TestCancel_TerminalConflicts(t *testing.T) {
	t.Parallel()
	s, _, _ := newSvc()
	_, err := s.Cancel(context.Background(), runID)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeConflict))
}

func TestLists_UnknownRunIsNotFound(t *testing.T) {
	t.Parallel()
	s, _, _ := newSvc()
	other := "0b7e7c1a-3c55-4a43-9d43-57b4f4a3c002"

	_, err := s.Entities(context.Background(), other, domain.PageInput{})
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))
	_, err = s.Alerts(context.Background(), other, domain.AlertFilter{})
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))
	_, err = s.Records(context.Background(), other, domain.RecordFilter{})
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))
}

func TestLists_PassFiltersAndMapRows(t *testing.T) {
	t.Parallel()
	s, _, q := newSvc()
	ctx := context.Background()

	ents, err := s.Entities(ctx, runID, domain.PageInput{Limit: 5, Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, analysis.EntityQuery{RunID: runID, Limit: 5, Offset: 10}, q.entityQ)
	require.Len(t, ents, 1)
	assert.Equal(t, "10.50", ents[0].TotalPaid.StringFixed(2))

	alerts, err := s.Alerts(ctx, runID, domain.AlertFilter{MinSeverity: "HIGH", Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, claims.SeverityHigh, q.alertQ.MinSeverity)
	assert.Equal(t, 3, q.alertQ.Limit)
	require.Len(t, alerts, 1)
	assert.Equal(t, "critical_risk", alerts[0].Kind)
	assert.Equal(t, "new", alerts[0].Status)

	recs, err := s.Records(ctx, runID, domain.RecordFilter{MinScore: 75})
	require.NoError(t, err)
	assert.Equal(t, 75, q.recordQ.MinScore)
	require.Len(t, recs, 1)
	assert.Equal(t, "E1", recs[0].BillingID)
	assert.True(t, recs[0].Anomalous)
}

func TestEntity(t *testing.T) {
	t.Parallel()
	s, _, _ := newSvc()

	e, err := s.Entity(context.Background(), " E1 ")
	require.NoError(t, err)
	assert.Equal(t, 2, e.UniqueCodes)

	_, err = s.Entity(context.Background(), "  ")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeInvalidArgument))

	_, err = s.Entity(context.Background(), "E9")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))
}
