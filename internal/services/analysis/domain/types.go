// Package domain holds the run model and ports for the analysis pipeline
package domain

import (
	"time"

	"claimguard/internal/core/claims"
	"claimguard/internal/core/report"

	"github.com/shopspring/decimal"
)

// RunStatus is the analysis run state machine
type RunStatus string

// Run states, queued -> processing -> analyzing -> completed, failed from any non terminal
const (
	StatusQueued     RunStatus = "queued"
	StatusProcessing RunStatus = "processing"
	StatusAnalyzing  RunStatus = "analyzing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// Terminal reports whether the status can no longer change
func (s RunStatus) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

// rank orders the non terminal states; terminal states share the top rank
func (s RunStatus) rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusProcessing:
		return 1
	case StatusAnalyzing:
		return 2
	case StatusCompleted, StatusFailed:
		return 3
	}
	return -1
}

// CanMoveTo reports whether a transition from s to next keeps the state machine forward only.
// processing and analyzing alternate per batch so analyzing -> processing is refused,
// callers keep analyzing once the first batch has been scored
func (s RunStatus) CanMoveTo(next RunStatus) bool {
	if s.Terminal() {
		return false
	}
	return next.rank() >= s.rank()
}

// CancelledReason is the error text recorded on a cancelled run
const CancelledReason = "cancelled"

// Run is the unit of work and its externally visible summary
type Run struct {
	ID     string    `json:"id"`
	Source string    `json:"source"`
	Status RunStatus `json:"status"`

	// Progress is 0..100 and never decreases
	Progress int `json:"progress"`

	RowsProcessed    int64           `json:"rows_processed"`
	RowsDropped      int64           `json:"rows_dropped"`
	TotalRecords     int64           `json:"total_records"`
	AnomalousRecords int64           `json:"anomalous_records"`
	HighRiskEntities int64           `json:"high_risk_entities"`
	CriticalAlerts   int64           `json:"critical_alerts"`
	Batches          int             `json:"batches"`
	TotalSpending    decimal.Decimal `json:"total_spending"`
	PeriodStart      string          `json:"period_start,omitempty"`
	PeriodEnd        string          `json:"period_end,omitempty"`

	Error string `json:"error,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// StartInput describes a run request
type StartInput struct {
	// Source is a local path, file:// or http(s) uri
	Source string

	// ExpectedRows drives the progress heuristic, 0 uses the configured default
	ExpectedRows int64

	// Seed makes the anomaly forest reproducible when non zero
	Seed int64
}

// Result is what a synchronous Run returns
type Result struct {
	Run      Run
	Summary  report.Summary
	Entities []report.EntityRow
}

// Batch is one scored batch handed to persistence and observers
type Batch struct {
	RunID      string
	Seq        int
	Records    []claims.EnrichedRecord
	Benchmarks map[string]claims.Benchmark
	Entities   []claims.EntityAggregate
	Alerts     []claims.Alert
}

// RecordQuery filters persisted enriched records
type RecordQuery struct {
	RunID    string
	MinScore int
	Limit    int
}

// AlertQuery filters persisted alerts
type AlertQuery struct {
	RunID       string
	MinSeverity claims.Severity
	Limit       int
}

// EntityQuery pages entity aggregates of a run
type EntityQuery struct {
	RunID  string
	Limit  int
	Offset int
}
