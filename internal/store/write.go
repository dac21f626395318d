package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/litelog/internal/ir"
	"github.com/roach88/litelog/internal/queryir"
	"github.com/roach88/litelog/internal/querysql"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execIn runs one statement, wrapping failures in an ExecError.
func execIn(ctx context.Context, q execer, query string, args ...any) (sql.Result, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, &ExecError{Statement: query, Params: args, Err: err}
	}
	return res, nil
}

// Exec runs a compiled statement and returns the number of rows it
// changed. Failures are reported as ExecError.
func (s *Store) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := execIn(ctx, s.db, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Insert compiles and runs an insert statement.
func (s *Store) Insert(ctx context.Context, stmt queryir.Insert) (int64, error) {
	query, args, err := s.sqlc.Compile(stmt)
	if err != nil {
		return 0, fmt.Errorf("compile insert into %s: %w", stmt.Relation, err)
	}
	return s.Exec(ctx, query, args...)
}

// Prime seeds the first round of a stratum for one relation: delta takes
// the current base contents and new is cleared.
func (s *Store) Prime(ctx context.Context, relation string) error {
	if _, err := s.relation(relation); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("prime %s: begin tx: %w", relation, err)
	}
	defer tx.Rollback() // No-op if committed

	for _, q := range querysql.PrimeStatements(relation) {
		if _, err := execIn(ctx, tx, q); err != nil {
			return fmt.Errorf("prime %s: %w", relation, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("prime %s: commit: %w", relation, err)
	}
	return nil
}

// Commit closes a round for one relation:
//
//  1. delta := new \ base
//  2. base += delta
//  3. history += delta, tagged with ts
//  4. new := {}
//
// Returns the number of facts committed, zero when the round added
// nothing. All four steps run in one transaction.
func (s *Store) Commit(ctx context.Context, relation string, ts int64) (int64, error) {
	rel, err := s.relation(relation)
	if err != nil {
		return 0, err
	}
	stmts := querysql.Commit(rel)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("commit %s: begin tx: %w", relation, err)
	}
	defer tx.Rollback() // No-op if committed

	steps := []struct {
		query string
		args  []any
	}{
		{stmts.ClearDelta, nil},
		{stmts.FillDelta, nil},
		{stmts.MergeBase, nil},
		{stmts.AppendHistory, []any{sql.Named(querysql.TimestampParam, ts)}},
		{stmts.ClearNew, nil},
	}
	for _, step := range steps {
		if _, err := execIn(ctx, tx, step.query, step.args...); err != nil {
			return 0, fmt.Errorf("commit %s: %w", relation, err)
		}
	}

	var n int64
	if err := tx.QueryRowContext(ctx, stmts.CountDelta).Scan(&n); err != nil {
		return 0, fmt.Errorf("commit %s: count delta: %w", relation, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit %s: commit: %w", relation, err)
	}
	return n, nil
}

// ImportFacts loads ground facts produced outside the fixpoint executor
// (for example by an external solver). Facts are staged in the new tables
// of their relations and committed at ts, so set semantics and history
// hold as for derived facts. Returns the number of facts committed.
func (s *Store) ImportFacts(ctx context.Context, facts []ir.Atom, ts int64) (int64, error) {
	var touched []string
	seen := make(map[string]bool)

	for _, f := range facts {
		rel, err := s.relation(f.Relation)
		if err != nil {
			return 0, fmt.Errorf("import: %w", err)
		}
		args, err := factArgs(rel, f)
		if err != nil {
			return 0, fmt.Errorf("import: %w", err)
		}
		if _, err := execIn(ctx, s.db, querysql.InsertRow(rel, queryir.New), args...); err != nil {
			return 0, fmt.Errorf("import: %w", err)
		}
		if !seen[rel.Name] {
			seen[rel.Name] = true
			touched = append(touched, rel.Name)
		}
	}

	var total int64
	for _, name := range touched {
		n, err := s.Commit(ctx, name, ts)
		if err != nil {
			return 0, fmt.Errorf("import: %w", err)
		}
		total += n
	}
	return total, nil
}
