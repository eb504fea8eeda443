package claims

import "testing"

func TestSeverityRank(t *testing.T) {
	order := []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Fatalf("%s should outrank %s", order[i], order[i-1])
		}
	}
	if Severity("bogus").Rank() != 0 {
		t.Fatalf("unknown severity should rank 0")
	}
}

func TestAnomalyFlag(t *testing.T) {
	if (EnrichedRecord{}).AnomalyFlag() != 0 {
		t.Fatalf("zero record should be flag 0")
	}
	if (EnrichedRecord{Anomalous: true}).AnomalyFlag() != 1 {
		t.Fatalf("anomalous record should be flag 1")
	}
}
