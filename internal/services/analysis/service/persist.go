package service

import (
	"context"

	"claimguard/internal/core/claims"
	"claimguard/internal/modkit/repokit"
	perr "claimguard/internal/platform/errors"
	"claimguard/internal/platform/logger"
	"claimguard/internal/services/analysis/domain"
	"claimguard/internal/services/analysis/guardrails"

	"golang.org/x/sync/errgroup"
)

// persist writes a scored batch. The four writes run concurrently and the
// first failure fails the batch; rows already committed stay committed and
// nothing is resent
func (s *Service) persist(ctx context.Context, b domain.Batch) error {
	dbCtx, cancel := guardrails.ForDB(ctx, s.timeouts())
	defer cancel()

	g, gctx := errgroup.WithContext(dbCtx)
	g.Go(func() error { return s.insertRecords(gctx, b.RunID, b.Records) })
	g.Go(func() error {
		return s.DB.Tx(gctx, func(q repokit.Queryer) error {
			applyTxTuning(gctx, q)
			return s.Binder.Bind(q).InsertBenchmarks(gctx, b.RunID, b.Seq, sortedBenchmarks(b.Benchmarks))
		})
	})
	g.Go(func() error {
		return s.DB.Tx(gctx, func(q repokit.Queryer) error {
			applyTxTuning(gctx, q)
			return s.Binder.Bind(q).UpsertEntities(gctx, b.RunID, b.Entities)
		})
	})
	g.Go(func() error {
		if len(b.Alerts) == 0 {
			return nil
		}
		return s.DB.Tx(gctx, func(q repokit.Queryer) error {
			applyTxTuning(gctx, q)
			return s.Binder.Bind(q).InsertAlerts(gctx, b.RunID, b.Alerts)
		})
	})
	if err := g.Wait(); err != nil {
		return asCode(err, perr.ErrorCodeDB, "analysis: persist batch")
	}
	return nil
}

// insertRecords writes recs in InsertChunk slices. A failed slice fails the
// batch as is; rerunning is left to the operator
func (s *Service) insertRecords(ctx context.Context, runID string, recs []claims.EnrichedRecord) error {
	chunk := s.Cfg.InsertChunk
	if chunk <= 0 {
		chunk = 1000
	}
	for i := 0; i < len(recs); i += chunk {
		end := min(i+chunk, len(recs))
		if err := s.Sink.InsertRecords(ctx, runID, recs[i:end]); err != nil {
			logger.C(ctx).Warn().Err(err).
				Int("offset", i).
				Bool("transient", perr.Retryable(err)).
				Msg("analysis: record insert failed")
			return err
		}
	}
	return nil
}

// SET LOCAL only lives for the duration of the current transaction
func applyTxTuning(ctx context.Context, q repokit.Queryer) {
	_, _ = q.Exec(ctx, "SET LOCAL statement_timeout = 0")
}
