package repo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"claimguard/internal/core/claims"
	"claimguard/internal/platform/store"
	"claimguard/internal/services/analysis/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeCH struct {
	table    string
	inserted [][]any
	execs    []string
	querySQL string
	args     []any
	rows     store.Rows
	err      error
}

func (f *fakeCH) Insert(_ context.Context, table string, rows [][]any) error {
	f.table, f.inserted = table, rows
	return f.err
}

func (f *fakeCH) Exec(_ context.Context, sql string, _ ...any) error {
	f.execs = append(f.execs, sql)
	return f.err
}

func (f *fakeCH) Query(_ context.Context, sql string, args ...any) (store.Rows, error) {
	f.querySQL, f.args = sql, args
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeCH) Close() error { return nil }

func TestCHRecords_EnsureSchemaUsesTable(t *testing.T) {
	t.Parallel()

	f := &fakeCH{}
	require.NoError(t, NewCHRecords(f, "").EnsureSchema(context.Background()))
	require.Len(t, f.execs, 1)
	require.Contains(t, f.execs[0], "CREATE TABLE IF NOT EXISTS enriched_records")
	require.Contains(t, f.execs[0], "ENGINE = MergeTree")
}

func TestCHRecords_InsertRowShape(t *testing.T) {
	t.Parallel()

	f := &fakeCH{}
	sink := NewCHRecords(f, "claims_enriched")
	rec := claims.EnrichedRecord{
		RawRecord:   claims.RawRecord{BillingID: "B1", Code: "C", Period: "2024-02", Units: 4, Subjects: 2, Paid: decimal.RequireFromString("40.005")},
		CostPerUnit: decimal.RequireFromString("10.00125"),
		Anomalous:   true,
		RiskScore:   71,
	}
	require.NoError(t, sink.InsertRecords(context.Background(), "run-1", []claims.EnrichedRecord{rec}))
	require.True(t, strings.HasPrefix(f.table, "claims_enriched ("))

	rows := f.inserted
	require.Len(t, rows, 1)
	require.Len(t, rows[0], 16)
	require.Equal(t, "run-1", rows[0][0])
	require.Equal(t, "40.01", rows[0][7].(decimal.Decimal).StringFixed(2))
	require.Equal(t, uint8(1), rows[0][13])
	require.Equal(t, int32(71), rows[0][15])
}

func TestCHRecords_InsertEmptyIsNoop(t *testing.T) {
	t.Parallel()

	f := &fakeCH{err: errors.New("boom")}
	require.NoError(t, NewCHRecords(f, "").InsertRecords(context.Background(), "r", nil))
	require.Nil(t, f.inserted)
}

func TestCHRecords_QueryError(t *testing.T) {
	t.Parallel()

	f := &fakeCH{err: errors.New("down")}
	_, err := NewCHRecords(f, "").Records(context.Background(), domain.RecordQuery{RunID: "r"})
	require.Error(t, err)
}

func TestCHRecords_ScansRows(t *testing.T) {
	t.Parallel()

	f := &fakeCH{rows: &fakeRows{idx: -1, data: [][]any{{
		"B1", "", "C", "2024-01", int64(2), int64(1), decimal.NewFromInt(20), decimal.NewFromInt(10),
		2.0, 0.1, 0.2, 0.4, uint8(0), 0.5, int32(33),
	}}}}
	out, err := NewCHRecords(f, "").Records(context.Background(), domain.RecordQuery{RunID: "r", MinScore: 30, Limit: 5})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, 33, out[0].RiskScore)
	require.False(t, out[0].Anomalous)
	require.Equal(t, []any{"r", int32(30), uint64(5)}, f.args)
}

func TestCHRecords_NilClient(t *testing.T) {
	t.Parallel()

	var c *CHRecords
	require.Error(t, c.EnsureSchema(context.Background()))
	_, err := (&CHRecords{}).Records(context.Background(), domain.RecordQuery{})
	require.Error(t, err)
}
