// Package temporal detects month over month spikes in entity billing
package temporal

import (
	"sort"

	"claimguard/internal/core/claims"

	"github.com/shopspring/decimal"
)

// SpikeThreshold is the percent change above which a period counts as a spike
const SpikeThreshold = 200.0

type cell struct {
	paid  decimal.Decimal
	units int64
}

// Detect sums paid and units per (entity, period), walks periods in lexical
// order and records every later period whose paid or units change exceeds
// SpikeThreshold. Comparisons against a zero previous value are skipped.
// Entities with no spike are absent from the result
func Detect(records []claims.EnrichedRecord) map[string]claims.Spike {
	byEntity := make(map[string]map[string]*cell)
	for _, r := range records {
		periods := byEntity[r.BillingID]
		if periods == nil {
			periods = make(map[string]*cell)
			byEntity[r.BillingID] = periods
		}
		c := periods[r.Period]
		if c == nil {
			c = &cell{paid: decimal.Zero}
			periods[r.Period] = c
		}
		c.paid = c.paid.Add(r.Paid)
		c.units += r.Units
	}

	out := make(map[string]claims.Spike)
	for entity, periods := range byEntity {
		if len(periods) < 2 {
			continue
		}
		keys := make([]string, 0, len(periods))
		for k := range periods {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var (
			spikes    []string
			maxChange float64
			seen      bool
		)
		for i := 1; i < len(keys); i++ {
			prev, curr := periods[keys[i-1]], periods[keys[i]]
			spiked := false

			if !prev.paid.IsZero() {
				ch := curr.paid.Sub(prev.paid).Div(prev.paid).Mul(decimal.NewFromInt(100)).InexactFloat64()
				maxChange, seen = track(maxChange, seen, ch)
				spiked = spiked || ch > SpikeThreshold
			}
			if prev.units != 0 {
				ch := float64(curr.units-prev.units) / float64(prev.units) * 100
				maxChange, seen = track(maxChange, seen, ch)
				spiked = spiked || ch > SpikeThreshold
			}
			if spiked {
				spikes = append(spikes, keys[i])
			}
		}
		if len(spikes) > 0 {
			out[entity] = claims.Spike{EntityID: entity, SpikeMonths: spikes, MaxChange: maxChange}
		}
	}
	return out
}

func track(cur float64, seen bool, v float64) (float64, bool) {
	if !seen || v > cur {
		return v, true
	}
	return cur, true
}
