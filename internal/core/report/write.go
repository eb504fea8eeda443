package report

import (
	"bufio"
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"claimguard/internal/core/claims"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var entityHeader = []string{
	"provider_npi", "avg_fraud_risk_score", "total_spending", "total_claims",
	"total_beneficiaries", "cost_anomaly_count", "volume_anomaly_count",
	"ml_anomaly_count", "total_anomalies",
}

// WriteEntitiesCSV writes the reportable entities in the order given
func WriteEntitiesCSV(w io.Writer, rows []EntityRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(entityHeader); err != nil {
		return err
	}
	for _, r := range Reportable(rows) {
		rec := []string{
			r.EntityID,
			strconv.FormatFloat(r.AvgRiskScore, 'f', 2, 64),
			r.TotalSpending.StringFixed(2),
			strconv.FormatInt(r.TotalUnits, 10),
			strconv.FormatInt(r.TotalSubjects, 10),
			strconv.Itoa(r.CostAnomalies),
			strconv.Itoa(r.VolumeAnomalies),
			strconv.Itoa(r.ModelAnomalies),
			strconv.Itoa(r.TotalAnomalies()),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var anomalyHeader = []string{
	"billing_npi", "servicing_npi", "procedure_code", "claim_month",
	"beneficiaries", "claims", "paid", "cost_per_claim", "claims_per_beneficiary",
	"cost_z_score", "claims_per_ben_z_score", "anomaly_score", "is_ml_anomaly",
	"volume_percentile", "fraud_risk_score",
}

// AnomalyWriter streams detailed anomalies one batch at a time so a run never
// holds more than a batch of records. Rows are ordered by risk within a batch
type AnomalyWriter struct {
	cw     *csv.Writer
	header bool
	n      int
}

// NewAnomalyWriter wraps w
func NewAnomalyWriter(w io.Writer) *AnomalyWriter {
	return &AnomalyWriter{cw: csv.NewWriter(w)}
}

// WriteBatch writes the anomalous records of one batch and returns how many were written
func (a *AnomalyWriter) WriteBatch(records []claims.EnrichedRecord) (int, error) {
	if !a.header {
		if err := a.cw.Write(anomalyHeader); err != nil {
			return 0, err
		}
		a.header = true
	}
	var picked []claims.EnrichedRecord
	for _, r := range records {
		if IsDetailedAnomaly(r) {
			picked = append(picked, r)
		}
	}
	sort.SliceStable(picked, func(i, j int) bool { return picked[i].RiskScore > picked[j].RiskScore })

	for _, r := range picked {
		rec := []string{
			r.BillingID,
			r.ServicingID,
			r.Code,
			r.Period,
			strconv.FormatInt(r.Subjects, 10),
			strconv.FormatInt(r.Units, 10),
			r.Paid.StringFixed(2),
			r.CostPerUnit.StringFixed(4),
			strconv.FormatFloat(r.UnitsPerSubject, 'f', 4, 64),
			strconv.FormatFloat(r.CostZ, 'f', 4, 64),
			strconv.FormatFloat(r.UnitsZ, 'f', 4, 64),
			strconv.FormatFloat(r.AnomalyScore, 'f', 4, 64),
			strconv.Itoa(r.AnomalyFlag()),
			strconv.FormatFloat(r.VolumePercentile, 'f', 2, 64),
			strconv.Itoa(r.RiskScore),
		}
		if err := a.cw.Write(rec); err != nil {
			return 0, err
		}
	}
	a.n += len(picked)
	a.cw.Flush()
	return len(picked), a.cw.Error()
}

// Written is the number of rows written so far, header excluded
func (a *AnomalyWriter) Written() int { return a.n }

// WriteText renders the human readable run report
func WriteText(w io.Writer, s Summary, rows []EntityRow, at time.Time) error {
	p := message.NewPrinter(language.English)
	bw := bufio.NewWriter(w)
	rule := strings.Repeat("=", 80)
	dash := strings.Repeat("-", 80)
	pct := func(n int) float64 {
		if s.Records == 0 {
			return 0
		}
		return float64(n) / float64(s.Records) * 100
	}

	p.Fprintf(bw, "%s\nHEALTHCARE CLAIMS FRAUD DETECTION ANALYSIS REPORT\n%s\n\n", rule, rule)
	p.Fprintf(bw, "Analysis Date: %s\n\n", at.Format("2006-01-02 15:04:05"))

	p.Fprintf(bw, "DATASET SUMMARY\n%s\n", dash)
	p.Fprintf(bw, "Total Transactions: %d\n", s.Records)
	p.Fprintf(bw, "Unique Providers: %d\n", s.UniqueEntities)
	p.Fprintf(bw, "Unique Procedures: %d\n", s.UniqueCodes)
	p.Fprintf(bw, "Total Spending: $%.2f\n", s.TotalSpending.InexactFloat64())
	p.Fprintf(bw, "Date Range: %s to %s\n\n", s.FirstPeriod, s.LastPeriod)

	p.Fprintf(bw, "FRAUD DETECTION RESULTS\n%s\n", dash)
	p.Fprintf(bw, "Cost Anomalies (Z-score > 3): %d (%.2f%%)\n", s.CostAnomalies, pct(s.CostAnomalies))
	p.Fprintf(bw, "Volume Anomalies (Z-score > 3): %d (%.2f%%)\n", s.VolumeAnomalies, pct(s.VolumeAnomalies))
	p.Fprintf(bw, "ML-Detected Anomalies: %d (%.2f%%)\n", s.ModelAnomalies, pct(s.ModelAnomalies))
	p.Fprintf(bw, "High-Risk Transactions (score > %d): %d\n", HighRiskRecord, s.HighRiskRecords)
	p.Fprintf(bw, "Critical-Risk Transactions (score > %d): %d\n\n", CriticalRiskRecord, s.CriticalRiskRecords)

	p.Fprintf(bw, "HIGH-RISK PROVIDERS\n%s\n", dash)
	p.Fprintf(bw, "Providers with avg risk score > 50: %d\n", s.EntitiesOver50)
	p.Fprintf(bw, "Providers with avg risk score > 75: %d\n", s.EntitiesOver75)
	p.Fprintf(bw, "Providers with avg risk score > 90: %d\n\n", s.EntitiesOver90)

	p.Fprintf(bw, "TOP %d HIGHEST RISK PROVIDERS\n%s\n", TopEntities, dash)
	top := Reportable(rows)
	if len(top) > TopEntities {
		top = top[:TopEntities]
	}
	for _, r := range top {
		p.Fprintf(bw, "\nProvider NPI: %s\n", r.EntityID)
		p.Fprintf(bw, "  Risk Score: %.1f\n", r.AvgRiskScore)
		p.Fprintf(bw, "  Total Spending: $%.2f\n", r.TotalSpending.InexactFloat64())
		p.Fprintf(bw, "  Total Claims: %d\n", r.TotalUnits)
		p.Fprintf(bw, "  Anomalies: %d\n", r.TotalAnomalies())
	}

	p.Fprintf(bw, "\n%s\nEND OF REPORT\n%s\n", rule, rule)
	return bw.Flush()
}
