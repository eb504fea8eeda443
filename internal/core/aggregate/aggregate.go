// Package aggregate rolls scored records up to billing entities and raises alerts
package aggregate

import (
	"fmt"
	"math"
	"sort"

	"claimguard/internal/core/claims"
	"claimguard/internal/core/stats"

	"github.com/shopspring/decimal"
)

// Alert triggers
const (
	CriticalRiskScore      = 75
	ExcessiveUnitsQuantile = 0.99
	CriticalSpikeChange    = 500.0

	// per record anomaly counters use the one sided z cut
	AnomalyZ = 3.0
)

type acc struct {
	agg     claims.EntityAggregate
	codes   map[string]struct{}
	riskSum int
	cpuSum  decimal.Decimal
	upsSum  float64
}

// Entities groups records by billing entity, ordered by entity id
func Entities(records []claims.EnrichedRecord) []claims.EntityAggregate {
	byID := make(map[string]*acc)
	for _, r := range records {
		a := byID[r.BillingID]
		if a == nil {
			a = &acc{
				agg:    claims.EntityAggregate{EntityID: r.BillingID, TotalPaid: decimal.Zero},
				codes:  make(map[string]struct{}),
				cpuSum: decimal.Zero,
			}
			byID[r.BillingID] = a
		}
		a.agg.Records++
		a.agg.TotalPaid = a.agg.TotalPaid.Add(r.Paid)
		a.agg.TotalUnits += r.Units
		a.agg.TotalSubjects += r.Subjects
		a.codes[r.Code] = struct{}{}
		a.riskSum += r.RiskScore
		a.cpuSum = a.cpuSum.Add(r.CostPerUnit)
		a.upsSum += r.UnitsPerSubject

		if r.CostZ > AnomalyZ {
			a.agg.CostAnomalies++
		}
		if r.UnitsZ > AnomalyZ {
			a.agg.VolumeAnomalies++
		}
		if r.Anomalous {
			a.agg.ModelAnomalies++
		}
	}

	out := make([]claims.EntityAggregate, 0, len(byID))
	for _, a := range byID {
		n := a.agg.Records
		a.agg.UniqueCodes = len(a.codes)
		a.agg.AvgRiskScore = int(math.Round(float64(a.riskSum) / float64(n)))
		a.agg.AvgCostPerUnit = a.cpuSum.Div(decimal.NewFromInt(int64(n))).Round(4)
		a.agg.AvgUnitsPerSubject = a.upsSum / float64(n)
		out = append(out, a.agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

// Alerts evaluates, per entity and in this order, the critical risk, excessive
// billing and sudden spike triggers. Each is independent of the others
func Alerts(aggs []claims.EntityAggregate, spikes map[string]claims.Spike) []claims.Alert {
	units := make([]float64, len(aggs))
	for i, a := range aggs {
		units[i] = float64(a.TotalUnits)
	}
	p99 := stats.Quantile(units, ExcessiveUnitsQuantile)

	var out []claims.Alert
	for _, a := range aggs {
		critical := a.AvgRiskScore > CriticalRiskScore

		if critical {
			out = append(out, newAlert(a, claims.AlertCriticalRisk, claims.SeverityCritical,
				fmt.Sprintf("Critical risk score for entity %s", a.EntityID),
				fmt.Sprintf("Average risk score %d across %d records with total spending %s",
					a.AvgRiskScore, a.Records, a.TotalPaid.StringFixed(2))))
		}

		if float64(a.TotalUnits) > p99 {
			sev := claims.SeverityHigh
			if critical {
				sev = claims.SeverityCritical
			}
			out = append(out, newAlert(a, claims.AlertExcessiveBilling, sev,
				fmt.Sprintf("Excessive billing volume for entity %s", a.EntityID),
				fmt.Sprintf("%d total claims exceed the run's 99th percentile of %.1f", a.TotalUnits, p99)))
		}

		if sp, ok := spikes[a.EntityID]; ok {
			sev := claims.SeverityHigh
			if sp.MaxChange > CriticalSpikeChange {
				sev = claims.SeverityCritical
			}
			out = append(out, newAlert(a, claims.AlertSuddenSpike, sev,
				fmt.Sprintf("Sudden billing spike for entity %s", a.EntityID),
				fmt.Sprintf("Month over month change up to %.1f%% in %v", sp.MaxChange, sp.SpikeMonths)))
		}
	}
	return out
}

func newAlert(a claims.EntityAggregate, kind claims.AlertKind, sev claims.Severity, title, desc string) claims.Alert {
	return claims.Alert{
		EntityID:    a.EntityID,
		Kind:        kind,
		Severity:    sev,
		Title:       title,
		Description: desc,
		RiskScore:   a.AvgRiskScore,
		TotalPaid:   a.TotalPaid,
		Status:      claims.AlertNew,
	}
}
