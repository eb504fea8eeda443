package module

import (
	"strings"
	"time"
	"unicode/utf8"

	"claimguard/internal/platform/config"
)

// Record sinks
const (
	SinkPG         = "pg"
	SinkClickhouse = "clickhouse"
)

// Options holds configuration options for the analysis module
type Options struct {
	ChunkNetwork int
	ChunkFile    int
	BatchSize    int

	Trees     int
	SampleCap int
	Threshold float64
	Seed      int64

	RecordSink  string
	RecordTable string
	InsertChunk int

	RunTimeout   time.Duration
	FetchTimeout time.Duration
	ReadTimeout  time.Duration
	DBTimeout    time.Duration

	MaxConcurrentRuns int
	ExpectedRows      int64

	WebhookURL     string
	WebhookTimeout time.Duration

	// Migrate applies the Postgres schema (and the ClickHouse table) at startup
	Migrate bool

	// Delimiter of the source file, zero keeps comma
	Delimiter rune
}

// FromConfig reads the analysis options from config with CORE_ANALYSIS_ prefix
func FromConfig(cfg config.Conf) Options {
	an := cfg.Prefix("CORE_ANALYSIS_")
	return Options{
		ChunkNetwork:      an.MayInt("CHUNK_NETWORK", 10_000),
		ChunkFile:         an.MayInt("CHUNK_FILE", 50_000),
		BatchSize:         an.MayInt("BATCH_SIZE", 0),
		Trees:             an.MayInt("TREES", 100),
		SampleCap:         an.MayInt("SAMPLE_CAP", 256),
		Threshold:         an.MayFloat64("THRESHOLD", 0.6),
		Seed:              int64(an.MayInt("SEED", 0)),
		RecordSink:        strings.ToLower(an.MayEnum("RECORD_SINK", SinkPG, SinkPG, SinkClickhouse)),
		RecordTable:       an.MayString("RECORD_TABLE", ""),
		InsertChunk:       an.MayInt("INSERT_CHUNK", 1000),
		RunTimeout:        an.MayDuration("RUN_TIMEOUT", 0),
		FetchTimeout:      an.MayDuration("FETCH_TIMEOUT", 0),
		ReadTimeout:       an.MayDuration("READ_TIMEOUT", 5*time.Minute),
		DBTimeout:         an.MayDuration("DB_TIMEOUT", 2*time.Minute),
		MaxConcurrentRuns: an.MayInt("MAX_CONCURRENT_RUNS", 2),
		ExpectedRows:      int64(an.MayInt("EXPECTED_ROWS", 1_000_000)),
		WebhookURL:        an.MayString("WEBHOOK_URL", ""),
		WebhookTimeout:    an.MayDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		Migrate:           an.MayBool("MIGRATE", true),
		Delimiter:         ParseDelimiter(an.MayString("DELIMITER", "")),
	}
}

// ParseDelimiter accepts a single character or the names tab, pipe and comma
func ParseDelimiter(s string) rune {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return 0
	case "tab", `\t`:
		return '\t'
	case "pipe":
		return '|'
	case "comma":
		return ','
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return 0
	}
	return r
}
