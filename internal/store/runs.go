package store

import (
	"context"
	"fmt"
)

// Run is one entry of the run log.
type Run struct {
	ID             string
	ProgramHash    string
	Strategy       string
	FirstTimestamp int64 // first logical timestamp consumed, 0 if none
	LastTimestamp  int64 // last logical timestamp consumed, 0 if none
	Rounds         int
	Facts          int64 // facts committed by the run
	EngineVersion  string
	IRVersion      string
}

// RecordRun appends a run to the run log.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	_, err := execIn(ctx, s.db, `
		INSERT INTO litelog_runs
		(id, program_hash, strategy, first_ts, last_ts, rounds, facts, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.ProgramHash,
		run.Strategy,
		run.FirstTimestamp,
		run.LastTimestamp,
		run.Rounds,
		run.Facts,
		run.EngineVersion,
		run.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// ReadRuns returns the run log, oldest first.
// Ordered by last_ts ASC, id ASC COLLATE BINARY for deterministic output.
func (s *Store) ReadRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, program_hash, strategy, first_ts, last_ts, rounds, facts, engine_version, ir_version
		FROM litelog_runs
		ORDER BY last_ts ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.ID, &r.ProgramHash, &r.Strategy, &r.FirstTimestamp, &r.LastTimestamp,
			&r.Rounds, &r.Facts, &r.EngineVersion, &r.IRVersion,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
