package module

import (
	"context"
	"testing"
	"time"

	"claimguard/internal/modkit"
	"claimguard/internal/platform/config"
	"claimguard/internal/platform/testkit"
	"claimguard/internal/services/analysis/domain"
)

func TestFromConfig_Defaults(t *testing.T) {
	for _, k := range []string{"CHUNK_NETWORK", "CHUNK_FILE", "RECORD_SINK", "TREES", "DELIMITER", "SEED"} {
		t.Setenv("CORE_ANALYSIS_"+k, "")
	}
	o := FromConfig(config.New())
	if o.ChunkNetwork != 10_000 || o.ChunkFile != 50_000 {
		t.Fatalf("chunks = %d/%d", o.ChunkNetwork, o.ChunkFile)
	}
	if o.RecordSink != SinkPG || o.Trees != 100 || o.Delimiter != 0 || o.Seed != 0 {
		t.Fatalf("unexpected defaults: %+v", o)
	}
}

func TestFromConfig_Overrides(t *testing.T) {
	t.Setenv("CORE_ANALYSIS_RECORD_SINK", "ClickHouse")
	t.Setenv("CORE_ANALYSIS_SEED", "42")
	t.Setenv("CORE_ANALYSIS_DELIMITER", "pipe")
	t.Setenv("CORE_ANALYSIS_DB_TIMEOUT", "3s")

	o := FromConfig(config.New())
	if o.RecordSink != SinkClickhouse || o.Seed != 42 || o.Delimiter != '|' || o.DBTimeout != 3*time.Second {
		t.Fatalf("overrides not applied: %+v", o)
	}
}

func TestParseDelimiter(t *testing.T) {
	t.Parallel()
	cases := map[string]rune{"": 0, "tab": '\t', `\t`: '\t', "PIPE": '|', "comma": ',', ";": ';'}
	for in, want := range cases {
		if got := ParseDelimiter(in); got != want {
			t.Fatalf("ParseDelimiter(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNew_MemoryFallbackRunsLocalFile(t *testing.T) {
	t.Setenv("CORE_ANALYSIS_CACHE_DIR", "")
	t.Setenv("CORE_ANALYSIS_RECORD_SINK", "clickhouse")

	p := testkit.ClaimsCSV(t, testkit.ShortHeader,
		"1,99213,2024-01-01,5,10,1000",
		"2,99213,2024-01-01,5,12,1100",
		"1,99213,2024-02-01,5,11,1050",
	)

	opts := FromConfig(config.New())
	opts.Seed = 3
	m := NewWithOptions(modkit.Deps{Cfg: config.New()}, opts)
	if err := m.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate without stores: %v", err)
	}
	if m.Name() != "analysis" {
		t.Fatalf("Name = %q", m.Name())
	}

	ports, ok := m.Ports().(Ports)
	if !ok {
		t.Fatalf("Ports type %T", m.Ports())
	}
	res, err := ports.Runner.Run(context.Background(), domain.StartInput{Source: p})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Run.Status != domain.StatusCompleted || res.Run.TotalRecords != 3 {
		t.Fatalf("run = %+v", res.Run)
	}

	ents, err := ports.Query.Entities(context.Background(), domain.EntityQuery{RunID: res.Run.ID})
	if err != nil || len(ents) != 2 {
		t.Fatalf("entities = %v, %v", ents, err)
	}
	recs, err := ports.Query.Records(context.Background(), domain.RecordQuery{RunID: res.Run.ID})
	if err != nil || len(recs) != 3 {
		t.Fatalf("records = %d, %v", len(recs), err)
	}
}
