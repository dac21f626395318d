package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/litelog/internal/ir"
	"github.com/roach88/litelog/internal/queryir"
	"github.com/roach88/litelog/internal/querysql"
)

// Query runs a compiled select and returns its rows as raw column values.
// Failures are reported as ExecError.
func (s *Store) Query(ctx context.Context, query string, args ...any) ([][]any, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &ExecError{Statement: query, Params: args, Err: err}
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, &ExecError{Statement: query, Params: args, Err: err}
	}
	return out, nil
}

// Select compiles and runs a select statement.
func (s *Store) Select(ctx context.Context, stmt queryir.Select) ([][]any, error) {
	query, args, err := s.sqlc.Compile(stmt)
	if err != nil {
		return nil, fmt.Errorf("compile select: %w", err)
	}
	return s.Query(ctx, query, args...)
}

// ReadRelation returns the committed facts of a relation ordered by
// column values. Returns an empty slice (not nil) for an empty relation.
func (s *Store) ReadRelation(ctx context.Context, name string) ([]ir.Atom, error) {
	rel, err := s.relation(name)
	if err != nil {
		return nil, err
	}
	rows, err := s.Query(ctx, querysql.SelectAll(rel))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return factsFromRows(rel, rows)
}

// Count returns the number of committed facts of a relation.
func (s *Store) Count(ctx context.Context, name string) (int64, error) {
	if _, err := s.relation(name); err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+name).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", name, err)
	}
	return n, nil
}

// CommitTimestamp returns the logical timestamp at which a fact was first
// committed. ok is false when the fact was never committed.
func (s *Store) CommitTimestamp(ctx context.Context, fact ir.Atom) (ts int64, ok bool, err error) {
	rel, err := s.relation(fact.Relation)
	if err != nil {
		return 0, false, err
	}
	args, err := factArgs(rel, fact)
	if err != nil {
		return 0, false, fmt.Errorf("commit timestamp: %w", err)
	}

	query := querysql.CommitTimestamp(rel)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, &ExecError{Statement: query, Params: args, Err: err}
	}
	return ts, true, nil
}

// Contains reports whether a ground fact is committed.
func (s *Store) Contains(ctx context.Context, fact ir.Atom) (bool, error) {
	_, ok, err := s.CommitTimestamp(ctx, fact)
	return ok, err
}

// MaxTimestamp returns the latest logical timestamp recorded anywhere in
// the database: in any history table or in the run log. Zero for a fresh
// database.
func (s *Store) MaxTimestamp(ctx context.Context) (int64, error) {
	var latest int64
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(last_ts), 0) FROM litelog_runs").Scan(&latest); err != nil {
		return 0, fmt.Errorf("max run timestamp: %w", err)
	}
	for _, name := range s.relationNames() {
		var ts int64
		if err := s.db.QueryRowContext(ctx, querysql.MaxTimestamp(name)).Scan(&ts); err != nil {
			return 0, fmt.Errorf("max timestamp of %s: %w", name, err)
		}
		if ts > latest {
			latest = ts
		}
	}
	return latest, nil
}

// scanRows reads every row into a slice of raw column values.
func scanRows(rows *sql.Rows) ([][]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	out := [][]any{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return out, nil
}

func factsFromRows(rel ir.Relation, rows [][]any) ([]ir.Atom, error) {
	facts := make([]ir.Atom, 0, len(rows))
	for _, row := range rows {
		f, err := factFromRow(rel, row)
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, nil
}
