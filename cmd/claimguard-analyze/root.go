package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"claimguard/internal/core/report"
	"claimguard/internal/core/version"
	"claimguard/internal/modkit"
	"claimguard/internal/platform/config"
	"claimguard/internal/platform/logger"
	"claimguard/internal/platform/store"
	"claimguard/internal/services/analysis/domain"
	amod "claimguard/internal/services/analysis/module"

	"github.com/spf13/cobra"
)

// Report file names
const (
	ResultsFile   = "fraud_detection_results.csv"
	AnomaliesFile = "detailed_anomalies.csv"
	ReportFile    = "fraud_analysis_report.txt"
	LogFile       = "processing_log.txt"
)

type cliOptions struct {
	outDir    string
	logFile   string
	noStore   bool
	chunk     int
	batch     int
	trees     int
	sampleCap int
	threshold float64
	seed      int64
	expected  int64
	sink      string
	delimiter string
}

func newRootCmd(out io.Writer) *cobra.Command {
	cmd, _ := buildRootCmd(out)
	return cmd
}

func buildRootCmd(out io.Writer) (*cobra.Command, *cliOptions) {
	o := &cliOptions{}
	cmd := &cobra.Command{
		Use:   "claimguard-analyze <source>",
		Short: "Score a claims file for billing fraud and write the reports",
		Long: `Streams a delimited claims file (local path, file:// or http(s) url) through the
fraud engine in chunks and writes three reports into --out:

  fraud_detection_results.csv  entities with average risk above 50, riskiest first
  detailed_anomalies.csv       records with any anomaly or a risk score above 75
  fraud_analysis_report.txt    run summary and the top 10 entities

Results are also persisted when SERVICE_PGSQL_DBURL is set. Flags override
the CORE_ANALYSIS_* environment.`,
		Version:       version.Info().Version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return analyze(cmd.Context(), cmd, out, args[0], o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.outDir, "out", "o", ".", "directory the reports are written to")
	f.StringVar(&o.logFile, "log-file", LogFile, "processing log file inside --out, empty disables it")
	f.BoolVar(&o.noStore, "no-store", false, "skip Postgres and ClickHouse even when configured")
	f.IntVar(&o.chunk, "chunk", 0, "rows per read chunk (default 50000 for files, 10000 for urls)")
	f.IntVar(&o.batch, "batch", 0, "records per scored batch, 0 uses the chunk size")
	f.IntVar(&o.trees, "trees", 0, "isolation trees in the anomaly forest")
	f.IntVar(&o.sampleCap, "sample-cap", 0, "subsample size per isolation tree")
	f.Float64Var(&o.threshold, "threshold", 0, "anomaly score threshold")
	f.Int64Var(&o.seed, "seed", 0, "seed for reproducible anomaly flags")
	f.Int64Var(&o.expected, "expected-rows", 0, "expected row count for progress reporting")
	f.StringVar(&o.sink, "record-sink", "", "enriched record store: pg or clickhouse")
	f.StringVar(&o.delimiter, "delimiter", "", "field delimiter: a character, tab or pipe")
	return cmd, o
}

// applyFlags copies explicitly set flags over the env derived options
func applyFlags(cmd *cobra.Command, o *cliOptions, opts *amod.Options) error {
	changed := cmd.Flags().Changed
	if changed("chunk") {
		opts.ChunkFile, opts.ChunkNetwork = o.chunk, o.chunk
	}
	if changed("batch") {
		opts.BatchSize = o.batch
	}
	if changed("trees") {
		opts.Trees = o.trees
	}
	if changed("sample-cap") {
		opts.SampleCap = o.sampleCap
	}
	if changed("threshold") {
		opts.Threshold = o.threshold
	}
	if changed("seed") {
		opts.Seed = o.seed
	}
	if changed("expected-rows") {
		opts.ExpectedRows = o.expected
	}
	if changed("delimiter") {
		opts.Delimiter = amod.ParseDelimiter(o.delimiter)
	}
	if changed("record-sink") {
		switch o.sink {
		case amod.SinkPG, amod.SinkClickhouse:
			opts.RecordSink = o.sink
		default:
			return fmt.Errorf("--record-sink must be %s or %s, got %q", amod.SinkPG, amod.SinkClickhouse, o.sink)
		}
	}
	return nil
}

func analyze(ctx context.Context, cmd *cobra.Command, out io.Writer, source string, o *cliOptions) error {
	if err := os.MkdirAll(o.outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	lo := logger.FromEnv()
	lo.Service = version.Service + "-analyze"
	if o.logFile != "" {
		lo.File.Path = filepath.Join(o.outDir, o.logFile)
	}
	logger.Init(lo)
	l := logger.Get()

	root := config.New()
	opts := amod.FromConfig(root)
	if err := applyFlags(cmd, o, &opts); err != nil {
		return err
	}

	deps := modkit.Deps{Cfg: root, Log: *l}
	if !o.noStore {
		st, err := store.Open(ctx, store.ConfigFromEnv(root, "analyze"), store.WithLogger(*l))
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() {
			if err := st.Close(context.Background()); err != nil {
				l.Error().Err(err).Msg("failed to close store")
			}
		}()
		deps.PG, deps.CH = st.PG, st.CH
	}

	m := amod.NewWithOptions(deps, opts)
	if err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	af, err := os.Create(filepath.Join(o.outDir, AnomaliesFile))
	if err != nil {
		return fmt.Errorf("create %s: %w", AnomaliesFile, err)
	}
	defer func() { _ = af.Close() }()
	aw := report.NewAnomalyWriter(af)
	m.WithObserver(domain.BatchObserverFunc(func(_ context.Context, b domain.Batch) error {
		_, err := aw.WriteBatch(b.Records)
		return err
	}))

	l.Info().Str("source", source).Str("out", o.outDir).Int("trees", opts.Trees).
		Int64("seed", opts.Seed).Msg("starting analysis")

	ports := m.Ports().(amod.Ports)
	res, err := ports.Runner.Run(ctx, domain.StartInput{Source: source, ExpectedRows: opts.ExpectedRows})
	if err != nil {
		if res.Run.ID != "" {
			return fmt.Errorf("run %s: %w", res.Run.ID, err)
		}
		return err
	}

	if err := writeFile(filepath.Join(o.outDir, ResultsFile), func(w io.Writer) error {
		return report.WriteEntitiesCSV(w, res.Entities)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(o.outDir, ReportFile), func(w io.Writer) error {
		return report.WriteText(w, res.Summary, res.Entities, time.Now())
	}); err != nil {
		return err
	}

	s := res.Summary
	fmt.Fprintf(out, "run %s completed\n", res.Run.ID)
	fmt.Fprintf(out, "  records:            %d (%d rows dropped)\n", s.Records, res.Run.RowsDropped)
	fmt.Fprintf(out, "  anomalous records:  %d\n", s.AnomalousRecords)
	fmt.Fprintf(out, "  entities over 75:   %d\n", s.EntitiesOver75)
	fmt.Fprintf(out, "  detailed anomalies: %d\n", aw.Written())
	fmt.Fprintf(out, "reports written to %s\n", o.outDir)
	return nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
