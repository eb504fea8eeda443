package guardrails

import (
	"context"
	"errors"

	"claimguard/internal/platform/store"
)

// ErrRunClaimed signals the run already left the queued state
var ErrRunClaimed = errors.New("analysis: run already claimed")

// ClaimFunc moves a queued run to processing and runs do when the claim wins
type ClaimFunc func(ctx context.Context, runID string, do func(context.Context) error) error

// MakeRunClaim returns a ClaimFunc backed by a conditional update on analysis_runs.
// Only one caller can flip a run out of queued so two processes never work the same run.
// A lost claim returns ErrRunClaimed without calling do
func MakeRunClaim(db store.TxRunner) ClaimFunc {
	return func(ctx context.Context, runID string, do func(context.Context) error) error {
		var claimed bool
		err := db.Tx(ctx, func(q store.RowQuerier) error {
			rows, err := q.Query(ctx, `
				update analysis_runs
				set status = 'processing', started_at = now(), updated_at = now()
				where id = $1 and status = 'queued'
				returning true
			`, runID)
			if err != nil {
				return err
			}
			defer rows.Close()
			if rows.Next() {
				claimed = true
			}
			return rows.Err()
		})
		if err != nil {
			return err
		}
		if !claimed {
			return ErrRunClaimed
		}
		return do(ctx)
	}
}
