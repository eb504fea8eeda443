// Package claims holds the record and result shapes shared by the analysis stages
package claims

import (
	"github.com/shopspring/decimal"
)

// RawRecord is one validated line of claims data
// Units is the claim count and Subjects the unique beneficiary count
type RawRecord struct {
	BillingID   string
	ServicingID string
	Code        string
	Period      string
	Units       int64
	Subjects    int64
	Paid        decimal.Decimal
}

// Benchmark summarizes one category code within a batch
type Benchmark struct {
	Code       string
	SampleSize int

	CostMean   float64
	CostStd    float64
	CostMedian float64

	UnitsMean   float64
	UnitsStd    float64
	UnitsMedian float64
}

// EnrichedRecord is a RawRecord plus every derived signal
// stages fill fields in order and never touch them after risk scoring
type EnrichedRecord struct {
	RawRecord

	CostPerUnit     decimal.Decimal
	UnitsPerSubject float64
	CostZ           float64
	UnitsZ          float64

	AnomalyScore float64
	Anomalous    bool

	VolumePercentile float64
	RiskScore        int
}

// AnomalyFlag returns the 0/1 form of Anomalous used at the persistence boundary
func (r EnrichedRecord) AnomalyFlag() int {
	if r.Anomalous {
		return 1
	}
	return 0
}

// EntityAggregate rolls records up to one billing entity
type EntityAggregate struct {
	EntityID           string
	Records            int
	TotalPaid          decimal.Decimal
	TotalUnits         int64
	TotalSubjects      int64
	UniqueCodes        int
	AvgRiskScore       int
	AvgCostPerUnit     decimal.Decimal
	AvgUnitsPerSubject float64

	CostAnomalies   int
	VolumeAnomalies int
	ModelAnomalies  int
}

// Spike is the temporal output for one entity
type Spike struct {
	EntityID    string
	SpikeMonths []string
	MaxChange   float64
}

// AlertKind names the trigger that raised an alert
type AlertKind string

// Alert kinds
const (
	AlertCriticalRisk     AlertKind = "critical_risk"
	AlertExcessiveBilling AlertKind = "excessive_billing"
	AlertSuddenSpike      AlertKind = "sudden_spike"
)

// Severity is an alert tier
type Severity string

// Severity tiers
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities for threshold queries, unknown values rank 0
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// AlertStatus is the review lifecycle, only external actors move it past new
type AlertStatus string

// Alert statuses
const (
	AlertNew           AlertStatus = "new"
	AlertInvestigating AlertStatus = "investigating"
	AlertResolved      AlertStatus = "resolved"
	AlertDismissed     AlertStatus = "dismissed"
)

// Alert is a human reviewable notice for one entity
type Alert struct {
	ID          string
	EntityID    string
	Kind        AlertKind
	Severity    Severity
	Title       string
	Description string
	RiskScore   int
	TotalPaid   decimal.Decimal
	Status      AlertStatus
}
