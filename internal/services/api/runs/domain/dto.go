// Package domain holds DTOs for the runs http and service contracts
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StartInput queues an analysis run over a claims source
type StartInput struct {
	Source       string `json:"source" validate:"required,max=2048,claims_source" example:"https://data.example.org/claims.csv"`
	ExpectedRows int64  `json:"expected_rows,omitempty" validate:"omitempty,min=1" example:"1000000"`
	Seed         int64  `json:"seed,omitempty" example:"42"`
}

// RunView is the externally visible run summary
type RunView struct {
	ID               string          `json:"id" example:"3f0c9f6e-8b51-4c8e-9d7e-0c1b2a3d4e5f"`
	Source           string          `json:"source" example:"claims.csv"`
	Status           string          `json:"status" example:"analyzing"`
	Progress         int             `json:"progress" example:"45"`
	RowsProcessed    int64           `json:"rows_processed" example:"900000"`
	RowsDropped      int64           `json:"rows_dropped" example:"1200"`
	TotalRecords     int64           `json:"total_records" example:"898800"`
	AnomalousRecords int64           `json:"anomalous_records" example:"8900"`
	HighRiskEntities int64           `json:"high_risk_entities" example:"41"`
	CriticalAlerts   int64           `json:"critical_alerts" example:"12"`
	Batches          int             `json:"batches" example:"18"`
	TotalSpending    decimal.Decimal `json:"total_spending" swaggertype:"string" example:"123456789.12"`
	PeriodStart      string          `json:"period_start,omitempty" example:"2024-01-01"`
	PeriodEnd        string          `json:"period_end,omitempty" example:"2024-06-01"`
	Error            string          `json:"error,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	StartedAt        *time.Time      `json:"started_at,omitempty"`
	FinishedAt       *time.Time      `json:"finished_at,omitempty"`
}

// PageInput pages list endpoints
type PageInput struct {
	Limit  int `json:"limit,omitempty" validate:"omitempty,min=1,max=1000" example:"100"`
	Offset int `json:"offset,omitempty" validate:"omitempty,min=0" example:"0"`
}

// AlertFilter narrows the alert list
type AlertFilter struct {
	MinSeverity string `json:"min_severity,omitempty" validate:"omitempty,oneof=low medium high critical" example:"high"`
	Limit       int    `json:"limit,omitempty" validate:"omitempty,min=1,max=1000" example:"500"`
}

// RecordFilter narrows the enriched record list
type RecordFilter struct {
	MinScore int `json:"min_score,omitempty" validate:"omitempty,min=0,max=100" example:"75"`
	Limit    int `json:"limit,omitempty" validate:"omitempty,min=1,max=5000" example:"1000"`
}

// EntityRow is one entity aggregate
type EntityRow struct {
	EntityID           string          `json:"entity_id" example:"1234567890"`
	Records            int             `json:"records" example:"120"`
	TotalPaid          decimal.Decimal `json:"total_paid" swaggertype:"string" example:"456789.00"`
	TotalUnits         int64           `json:"total_units" example:"9000"`
	TotalSubjects      int64           `json:"total_subjects" example:"800"`
	UniqueCodes        int             `json:"unique_codes" example:"14"`
	AvgRiskScore       int             `json:"avg_risk_score" example:"81"`
	AvgCostPerUnit     decimal.Decimal `json:"avg_cost_per_unit" swaggertype:"string" example:"50.75"`
	AvgUnitsPerSubject float64         `json:"avg_units_per_subject" example:"11.25"`
	CostAnomalies      int             `json:"cost_anomalies" example:"4"`
	VolumeAnomalies    int             `json:"volume_anomalies" example:"2"`
	ModelAnomalies     int             `json:"model_anomalies" example:"7"`
}

// AlertRow is one alert
type AlertRow struct {
	ID          string          `json:"id"`
	EntityID    string          `json:"entity_id" example:"1234567890"`
	Kind        string          `json:"kind" example:"critical_risk"`
	Severity    string          `json:"severity" example:"critical"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	RiskScore   int             `json:"risk_score" example:"92"`
	TotalPaid   decimal.Decimal `json:"total_paid" swaggertype:"string" example:"456789.00"`
	Status      string          `json:"status" example:"new"`
}

// RecordRow is one enriched claims record
type RecordRow struct {
	BillingID        string          `json:"billing_id" example:"1234567890"`
	ServicingID      string          `json:"servicing_id,omitempty"`
	Code             string          `json:"code" example:"T1019"`
	Period           string          `json:"period" example:"2024-01-01"`
	Units            int64           `json:"units" example:"400"`
	Subjects         int64           `json:"subjects" example:"20"`
	Paid             decimal.Decimal `json:"paid" swaggertype:"string" example:"20000.00"`
	CostPerUnit      decimal.Decimal `json:"cost_per_unit" swaggertype:"string" example:"50.0000"`
	UnitsPerSubject  float64         `json:"units_per_subject" example:"20"`
	CostZ            float64         `json:"cost_zscore" example:"3.4"`
	UnitsZ           float64         `json:"units_zscore" example:"1.1"`
	AnomalyScore     float64         `json:"anomaly_score" example:"0.71"`
	Anomalous        bool            `json:"anomalous" example:"true"`
	VolumePercentile float64         `json:"volume_percentile" example:"0.98"`
	RiskScore        int             `json:"risk_score" example:"88"`
}
