package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Re-running a program is idempotent without a special replay mode:
//
//   - Base tables carry a primary key over all columns, so a derivation
//     that is already committed inserts nothing.
//   - History rows are appended only for facts that reach Delta, and Delta
//     holds only facts absent from Base before the commit.
//   - The clock resumes after the latest recorded timestamp, so a
//     reopened database never reuses one.
//
// A second Run over an unchanged program therefore commits nothing and
// only spends one timestamp per stratum on the round that detects
// convergence.

// resumeClock advances the clock past every timestamp already recorded in
// the store.
func (e *Engine) resumeClock(ctx context.Context) error {
	latest, err := e.store.MaxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("resume clock: %w", err)
	}
	if latest > e.clock.Current() {
		e.clock.Advance(latest)
		e.logger.Debug("clock resumed", zap.Int64("timestamp", latest))
	}
	return nil
}
