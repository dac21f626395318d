package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/litelog/internal/ir"
	"github.com/roach88/litelog/internal/querysql"
)

// HistoryEntry is one committed fact with its commit timestamp.
type HistoryEntry struct {
	Fact      ir.Atom
	Timestamp int64
}

// ReadHistory returns the commit history of a relation, oldest first.
// Facts committed in the same round are ordered by column values.
func (s *Store) ReadHistory(ctx context.Context, name string) ([]HistoryEntry, error) {
	rel, err := s.relation(name)
	if err != nil {
		return nil, err
	}
	rows, err := s.Query(ctx, querysql.SelectHistory(rel))
	if err != nil {
		return nil, fmt.Errorf("read history of %s: %w", name, err)
	}

	entries := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		f, err := factFromRow(rel, row)
		if err != nil {
			return nil, err
		}
		ts, ok := row[rel.Arity()].(int64)
		if !ok {
			return nil, fmt.Errorf("%s: timestamp column holds %T", name, row[rel.Arity()])
		}
		entries = append(entries, HistoryEntry{Fact: f, Timestamp: ts})
	}
	return entries, nil
}

// RelationAt replays the history of a relation up to ts: the facts that
// were committed at or before that logical time.
func (s *Store) RelationAt(ctx context.Context, name string, ts int64) ([]ir.Atom, error) {
	rel, err := s.relation(name)
	if err != nil {
		return nil, err
	}
	rows, err := s.Query(ctx, querysql.SelectHistoryAt(rel), sql.Named(querysql.TimestampParam, ts))
	if err != nil {
		return nil, fmt.Errorf("read %s at %d: %w", name, ts, err)
	}
	return factsFromRows(rel, rows)
}
