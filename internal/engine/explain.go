package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/litelog/internal/compiler"
	"github.com/roach88/litelog/internal/ir"
)

// Explain reconstructs a proof tree for a committed fact.
//
// The conclusion's timestamp is the fact's first commit. Each child was
// committed strictly before its parent, so the tree is finite. When
// several rule instances derive a fact, the first clause in assertion
// order that has an instance wins, and within it the earliest commits.
func (e *Engine) Explain(ctx context.Context, fact ir.Atom) (*ir.Proof, error) {
	return e.ExplainAt(ctx, fact, e.clock.Current()+1)
}

// ExplainAt is Explain restricted to facts committed strictly before
// bound. Fails with NO_DERIVATION when the fact was not committed before
// bound or no asserted clause derives it.
func (e *Engine) ExplainAt(ctx context.Context, fact ir.Atom, bound int64) (*ir.Proof, error) {
	if !fact.IsGround() {
		return nil, NewNotGroundError(fact)
	}
	ts, ok, err := e.store.CommitTimestamp(ctx, fact)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewNoDerivationError(fact, bound, "fact was never committed")
	}
	if ts >= bound {
		return nil, NewNoDerivationError(fact, bound, fmt.Sprintf("fact was committed at %d", ts))
	}

	clauses := e.Clauses()
	return e.prove(ctx, clauses, fact, ts)
}

// prove explains fact, committed at ts, using facts committed before ts.
func (e *Engine) prove(ctx context.Context, clauses []ir.Clause, fact ir.Atom, ts int64) (*ir.Proof, error) {
	for idx, c := range clauses {
		if c.Head.Relation != fact.Relation {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		exp, err := compiler.CompileExplain(e.store, idx, c, fact, ts)
		if err != nil {
			return nil, err
		}
		start := time.Now()
		rows, err := e.store.Select(ctx, exp.Select)
		e.observe(kindExplain, time.Since(start))
		if err != nil {
			return nil, fmt.Errorf("explain %s with rule %d: %w", fact, idx, err)
		}
		if len(rows) == 0 {
			continue
		}

		proof := &ir.Proof{Conclusion: fact, Rule: idx, Timestamp: ts}
		children, err := decodePremises(exp, rows[0])
		if err != nil {
			return nil, fmt.Errorf("explain %s with rule %d: %w", fact, idx, err)
		}
		for _, p := range children {
			child, err := e.prove(ctx, clauses, p.fact, p.ts)
			if err != nil {
				return nil, err
			}
			proof.Children = append(proof.Children, child)
		}
		e.logger.Debug("fact explained",
			zap.Stringer("fact", fact),
			zap.Int("rule", idx),
			zap.Int64("timestamp", ts),
		)
		return proof, nil
	}
	return nil, NewNoDerivationError(fact, ts, "no clause derives it from earlier facts")
}

type premise struct {
	fact ir.Atom
	ts   int64
}

// decodePremises splits an explanation row into body facts. Each atom
// contributes its columns followed by its commit timestamp.
func decodePremises(exp *compiler.Explanation, row []any) ([]premise, error) {
	out := make([]premise, 0, len(exp.Atoms))
	pos := 0
	for _, rel := range exp.Atoms {
		if pos+rel.Arity()+1 > len(row) {
			return nil, fmt.Errorf("row has %d columns, premise %s needs more", len(row), rel.Name)
		}
		args := make([]ir.Term, rel.Arity())
		for i, typ := range rel.Types {
			t, err := ir.FromColumn(row[pos+i], typ)
			if err != nil {
				return nil, fmt.Errorf("%s column %d: %w", rel.Name, i, err)
			}
			args[i] = t
		}
		pos += rel.Arity()
		ts, ok := row[pos].(int64)
		if !ok {
			return nil, fmt.Errorf("%s timestamp: unexpected %T", rel.Name, row[pos])
		}
		pos++
		out = append(out, premise{fact: ir.Atom{Relation: rel.Name, Args: args}, ts: ts})
	}
	return out, nil
}
