package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"claimguard/internal/core/aggregate"
	"claimguard/internal/core/benchmark"
	"claimguard/internal/core/claims"
	"claimguard/internal/core/forest"
	"claimguard/internal/core/risk"
	"claimguard/internal/core/temporal"
	perr "claimguard/internal/platform/errors"
	"claimguard/internal/platform/logger"
	"claimguard/internal/platform/metrics"
	ptime "claimguard/internal/platform/time"
	"claimguard/internal/services/analysis/domain"
	"claimguard/internal/services/analysis/guardrails"

	"github.com/google/uuid"
)

// execute owns one run from slot acquisition to its terminal state
func (s *Service) execute(ctx context.Context, st *runState) error {
	ctx = logger.WithRun(ctx, st.id)
	defer close(st.done)
	defer s.forget(st.id)

	if err := s.acquire(ctx, st); err != nil {
		s.finish(ctx, st, err)
		return err
	}
	defer s.release()

	var err error
	if s.Claim != nil {
		err = s.Claim(ctx, st.id, func(c context.Context) error { return s.process(c, st) })
		if errors.Is(err, guardrails.ErrRunClaimed) {
			logger.C(ctx).Warn().Msg("analysis: run claimed by another worker, skipping")
			return err
		}
	} else {
		err = s.process(ctx, st)
	}
	s.finish(ctx, st, err)
	return err
}

// acquire waits for a processing slot while the run stays queued
func (s *Service) acquire(ctx context.Context, st *runState) error {
	select {
	case s.slots <- struct{}{}:
	case <-st.cancelCh:
		return errCancelled
	case <-ctx.Done():
		return perr.Wrap(ctx.Err(), perr.ErrorCodeUnavailable, "analysis: waiting for a processing slot")
	}
	if st.isCancelled() {
		<-s.slots
		return errCancelled
	}
	metrics.RunsActive.Inc()
	return nil
}

func (s *Service) release() {
	metrics.RunsActive.Dec()
	<-s.slots
}

// process streams the source and scores it batch by batch
func (s *Service) process(ctx context.Context, st *runState) (retErr error) {
	tos := s.timeouts()
	runCtx, runCancel := guardrails.WithRun(ctx, tos)
	defer runCancel()

	source := st.snapshot().Source
	processing, zero := domain.StatusProcessing, 0
	if err := s.patch(runCtx, st, domain.RunPatch{Status: &processing, Progress: &zero, StartedAt: ptime.Ptr(s.now().UTC())}); err != nil {
		return err
	}

	// the fetch budget covers opening the source; the body then streams under the run context
	fetchCtx, release, fetchCancel := guardrails.ForFetch(runCtx, tos)
	defer fetchCancel()

	t0 := time.Now()
	rc, err := s.Fetch.Fetch(fetchCtx, source)
	opened := release()
	if err != nil {
		if !opened {
			return perr.Wrap(err, perr.ErrorCodeSource, "analysis: fetch "+source+" timed out")
		}
		return asCode(err, perr.ErrorCodeSource, "analysis: fetch "+source)
	}
	if !opened {
		_ = rc.Close()
		return perr.Sourcef("analysis: fetch %s timed out", source)
	}
	r, err := s.Reader.New(rc)
	if err != nil {
		_ = rc.Close()
		return asCode(err, perr.ErrorCodeParse, "analysis: open reader")
	}
	rd := &closeOnce{ReaderPort: r}
	defer func() {
		if cerr := rd.Close(); cerr != nil && retErr == nil {
			retErr = asCode(cerr, perr.ErrorCodeSource, "analysis: close source")
		}
	}()
	logger.C(ctx).Info().Str("source", source).Dur("open", time.Since(t0)).Msg("analysis: source opened")

	chunk := s.chunkSize(source)
	batchSize := s.Cfg.BatchSize
	if batchSize <= 0 {
		batchSize = chunk
	}

	var pending []claims.RawRecord
	seq := 0
	for {
		if st.isCancelled() {
			return errCancelled
		}
		if err := runCtx.Err(); err != nil {
			return perr.Wrap(err, perr.ErrorCodeUnavailable, "analysis: run budget exhausted")
		}

		readCtx, readCancel := guardrails.ForRead(runCtx, tos)
		c, err := readChunk(readCtx, rd, chunk)
		readCancel()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return asCode(err, perr.ErrorCodeParse, "analysis: read chunk")
		}

		metrics.RowsTotal.WithLabelValues("valid").Add(float64(len(c.Records)))
		metrics.RowsTotal.WithLabelValues("dropped").Add(float64(c.Dropped))
		pending = append(pending, c.Records...)

		rs := rd.Stats()
		rows, dropped := int64(rs.Rows), int64(rs.Dropped)
		prog := progress(rows, st.expected)
		if err := s.patch(runCtx, st, domain.RunPatch{RowsProcessed: &rows, RowsDropped: &dropped, Progress: &prog}); err != nil {
			return err
		}

		for len(pending) >= batchSize {
			if st.isCancelled() {
				return errCancelled
			}
			if err := s.processBatch(runCtx, st, seq, pending[:batchSize]); err != nil {
				return err
			}
			seq++
			pending = pending[batchSize:]
		}
	}

	if len(pending) > 0 {
		if err := s.processBatch(runCtx, st, seq, pending); err != nil {
			return err
		}
	}
	return nil
}

// closeOnce lets a timed out read close the source ahead of the deferred close
type closeOnce struct {
	domain.ReaderPort
	once sync.Once
	err  error
}

func (c *closeOnce) Close() error {
	c.once.Do(func() { c.err = c.ReaderPort.Close() })
	return c.err
}

// readChunk honours a read deadline; without one it reads inline. On timeout
// it closes rd and waits for the pending read to return before giving up
func readChunk(ctx context.Context, rd domain.ReaderPort, n int) (domain.Chunk, error) {
	if _, ok := ctx.Deadline(); !ok {
		return rd.ReadChunk(n)
	}
	type result struct {
		c   domain.Chunk
		err error
	}
	done := make(chan result, 1)
	go func() {
		c, err := rd.ReadChunk(n)
		done <- result{c, err}
	}()
	select {
	case r := <-done:
		return r.c, r.err
	case <-ctx.Done():
		_ = rd.Close()
		<-done
		return domain.Chunk{}, perr.Wrap(ctx.Err(), perr.ErrorCodeSource, "analysis: chunk read timed out")
	}
}

// processBatch scores, persists and folds one batch into the run
func (s *Service) processBatch(ctx context.Context, st *runState, seq int, raw []claims.RawRecord) error {
	t0 := time.Now()
	b, err := scoreBatch(raw, s.forestOptions(st.seed)...)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "analysis: score batch %d", seq)
	}
	b.RunID, b.Seq = st.id, seq
	metrics.BatchDurationSeconds.WithLabelValues("score").Observe(time.Since(t0).Seconds())

	if seq == 0 {
		analyzing := domain.StatusAnalyzing
		if err := s.patch(ctx, st, domain.RunPatch{Status: &analyzing}); err != nil {
			return err
		}
	}

	t1 := time.Now()
	if err := s.persist(ctx, b); err != nil {
		return err
	}
	metrics.BatchDurationSeconds.WithLabelValues("persist").Observe(time.Since(t1).Seconds())

	for _, o := range s.observers {
		if err := o.OnBatch(ctx, b); err != nil {
			return asCode(err, perr.ErrorCodeUnknown, fmt.Sprintf("analysis: batch %d observer", seq))
		}
	}

	st.acc.AddBatch(b.Records)
	sum := st.acc.Summary()
	critical := st.snapshot().CriticalAlerts + countCritical(b.Alerts)
	records, anomalous, highRisk := int64(sum.Records), int64(sum.AnomalousRecords), int64(sum.EntitiesOver75)
	batches := seq + 1
	spend := sum.TotalSpending
	if err := s.patch(ctx, st, domain.RunPatch{
		TotalRecords:     &records,
		AnomalousRecords: &anomalous,
		HighRiskEntities: &highRisk,
		CriticalAlerts:   &critical,
		Batches:          &batches,
		TotalSpending:    &spend,
		PeriodStart:      &sum.FirstPeriod,
		PeriodEnd:        &sum.LastPeriod,
	}); err != nil {
		return err
	}

	observeBatch(b)
	logger.C(ctx).Debug().
		Int("batch", seq).
		Int("records", len(b.Records)).
		Int("entities", len(b.Entities)).
		Int("alerts", len(b.Alerts)).
		Dur("elapsed", time.Since(t0)).
		Dur("run_budget_left", guardrails.Remaining(ctx)).
		Msg("analysis: batch done")
	return nil
}

// scoreBatch runs the chain Benchmark -> Enrich -> Anomaly -> TemporalSpike -> RiskScore -> Aggregate
// over one batch. Benchmarks only see this batch's records
func scoreBatch(raw []claims.RawRecord, opts ...forest.Option) (domain.Batch, error) {
	bms := benchmark.Build(raw)
	recs := benchmark.Enrich(raw, bms)
	if err := forest.Detect(recs, opts...); err != nil {
		return domain.Batch{}, err
	}
	spikes := temporal.Detect(recs)
	risk.ScoreRecords(recs)
	aggs := aggregate.Entities(recs)
	alerts := aggregate.Alerts(aggs, spikes)
	for i := range alerts {
		alerts[i].ID = uuid.NewString()
	}
	return domain.Batch{
		Records:    recs,
		Benchmarks: bms,
		Entities:   aggs,
		Alerts:     alerts,
	}, nil
}

func (s *Service) forestOptions(seed int64) []forest.Option {
	opts := []forest.Option{
		forest.WithTrees(s.Cfg.Trees),
		forest.WithSampleCap(s.Cfg.SampleCap),
		forest.WithThreshold(s.Cfg.Threshold),
	}
	if seed != 0 {
		opts = append(opts, forest.WithSeed(seed))
	}
	return opts
}

func (s *Service) chunkSize(source string) int {
	l := strings.ToLower(source)
	if strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://") {
		if s.Cfg.ChunkNetwork > 0 {
			return s.Cfg.ChunkNetwork
		}
		return 10_000
	}
	if s.Cfg.ChunkFile > 0 {
		return s.Cfg.ChunkFile
	}
	return 50_000
}

// patch applies p to the live state and persists it
func (s *Service) patch(ctx context.Context, st *runState, p domain.RunPatch) error {
	st.apply(p)
	return s.updateRun(ctx, st.id, p)
}

// finish records the terminal state and sends the run notices
func (s *Service) finish(ctx context.Context, st *runState, runErr error) {
	ctx = context.WithoutCancel(ctx)
	status := domain.StatusCompleted
	p := domain.RunPatch{Status: &status, FinishedAt: ptime.Ptr(s.now().UTC())}
	if runErr != nil {
		status = domain.StatusFailed
		msg := runErr.Error()
		if isCancelled(runErr) {
			msg = domain.CancelledReason
		}
		p.Error = &msg
	} else {
		full := 100
		p.Progress = &full
	}
	if err := s.patch(ctx, st, p); err != nil {
		logger.C(ctx).Error().Err(err).Msg("analysis: recording final run state failed")
	}
	metrics.RunsTotal.WithLabelValues(string(status)).Inc()

	run := st.snapshot()
	ev := logger.C(ctx).Info()
	if runErr != nil {
		ev = logger.C(ctx).Error().Err(runErr)
	}
	ev.Str("status", string(run.Status)).
		Int64("rows", run.RowsProcessed).
		Int64("records", run.TotalRecords).
		Int("batches", run.Batches).
		Msg("analysis: run finished")

	s.notify(ctx, run, runErr != nil)
}

// notify sends one critical alert notice when any were raised, then exactly one
// completion or failure notice. Notifier errors are logged, never fatal
func (s *Service) notify(ctx context.Context, run domain.Run, failed bool) {
	send := func(title, body string) {
		if err := s.Notify.Notify(ctx, title, body); err != nil {
			logger.C(ctx).Warn().Err(err).Str("title", title).Msg("analysis: notification failed")
		}
	}
	if run.CriticalAlerts > 0 {
		send("Critical fraud alerts",
			fmt.Sprintf("Run %s raised %d critical alerts, %d high risk entities", run.ID, run.CriticalAlerts, run.HighRiskEntities))
	}
	if failed {
		send("Fraud analysis failed", fmt.Sprintf("Run %s failed: %s", run.ID, run.Error))
		return
	}
	send("Fraud analysis completed",
		fmt.Sprintf("Run %s analyzed %d records, %d anomalous, total spending %s",
			run.ID, run.TotalRecords, run.AnomalousRecords, run.TotalSpending.StringFixed(2)))
}

func countCritical(alerts []claims.Alert) int64 {
	var n int64
	for _, a := range alerts {
		if a.Severity == claims.SeverityCritical {
			n++
		}
	}
	return n
}

func observeBatch(b domain.Batch) {
	metrics.RecordsScored.Add(float64(len(b.Records)))
	var cost, volume, model int
	for _, r := range b.Records {
		if r.CostZ > aggregate.AnomalyZ {
			cost++
		}
		if r.UnitsZ > aggregate.AnomalyZ {
			volume++
		}
		if r.Anomalous {
			model++
		}
	}
	metrics.AnomaliesTotal.WithLabelValues("cost").Add(float64(cost))
	metrics.AnomaliesTotal.WithLabelValues("volume").Add(float64(volume))
	metrics.AnomaliesTotal.WithLabelValues("model").Add(float64(model))
	for _, a := range b.Alerts {
		metrics.AlertsTotal.WithLabelValues(string(a.Kind), string(a.Severity)).Inc()
	}
}

// sortedBenchmarks flattens the per code map in code order
func sortedBenchmarks(m map[string]claims.Benchmark) []claims.Benchmark {
	out := make([]claims.Benchmark, 0, len(m))
	for _, b := range m {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// asCode keeps an already coded error and wraps anything else with code
func asCode(err error, code perr.ErrorCode, msg string) error {
	if _, ok := perr.As(err); ok {
		return err
	}
	return perr.Wrap(err, code, msg)
}
