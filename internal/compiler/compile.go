package compiler

import (
	"fmt"

	"github.com/roach88/litelog/internal/ir"
	"github.com/roach88/litelog/internal/queryir"
)

// Rule is a compiled clause.
//
// The plan is compiled once with every positive body atom reading its
// relation's Base table. Semi-naive variants are derived from it by
// switching one table reference to Delta.
type Rule struct {
	Index  int
	Clause ir.Clause
	Head   ir.Relation

	// Atoms holds the relation of each positive body atom, in body order.
	// Atoms[i] is read through Insert.Plan.From[i].
	Atoms []string

	insert queryir.Insert
}

// Full returns the statement evaluating the rule against Base tables.
// Used for one-shot rules and by the naive strategy.
func (r *Rule) Full() queryir.Insert {
	return r.insert
}

// DeltaVariants returns one statement per positive body atom whose
// relation satisfies recursive, with that atom reading Delta instead of
// Base. Their union covers every derivation that uses at least one fact
// committed in the previous round.
func (r *Rule) DeltaVariants(recursive func(relation string) bool) []queryir.Insert {
	var out []queryir.Insert
	for i, rel := range r.Atoms {
		if !recursive(rel) {
			continue
		}
		stmt := r.insert
		stmt.Plan = stmt.Plan.WithKind(i, queryir.Delta)
		out = append(out, stmt)
	}
	return out
}

// CompileRule validates and compiles clause number index into an insert
// into its head relation's New table.
func CompileRule(schema Schema, index int, clause ir.Clause) (*Rule, error) {
	if err := ValidateClause(schema, index, clause); err != nil {
		return nil, err
	}
	head, _ := schema.Lookup(clause.Head.Relation)

	c := newContext(schema, index, queryir.Base)
	if err := c.compileBody(clause.Body); err != nil {
		return nil, err
	}

	cols := make([]queryir.Expr, len(clause.Head.Args))
	for i, arg := range clause.Head.Args {
		e, err := c.resolveTerm(arg)
		if err != nil {
			return nil, err
		}
		cols[i] = e
	}
	if err := c.finish(); err != nil {
		return nil, err
	}

	return &Rule{
		Index:  index,
		Clause: clause,
		Head:   head,
		Atoms:  c.atoms,
		insert: queryir.Insert{
			Relation: head.Name,
			Kind:     queryir.New,
			Types:    head.Types,
			Columns:  cols,
			Plan:     c.plan(),
		},
	}, nil
}

// Explanation is a compiled provenance query: does an instance of a rule,
// using only facts committed before a bound, derive a given fact?
type Explanation struct {
	Rule int

	// Atoms holds the schema of each positive body atom, in body order.
	// Each selected row carries, per atom, its columns followed by its
	// commit timestamp.
	Atoms []ir.Relation

	Select queryir.Select
}

// BoundParam is the parameter holding the timestamp bound of an
// explanation query.
const BoundParam = "bound"

// CompileExplain compiles the provenance query for fact against clause
// number index. Body atoms read History tables restricted to rows
// committed strictly before bound; head arguments are unified with the
// fact's values. The query returns at most one row, preferring the
// earliest commits.
func CompileExplain(schema Schema, index int, clause ir.Clause, fact ir.Atom, bound int64) (*Explanation, error) {
	if err := ValidateClause(schema, index, clause); err != nil {
		return nil, err
	}
	head, _ := schema.Lookup(clause.Head.Relation)
	if fact.Relation != head.Name || len(fact.Args) != head.Arity() {
		return nil, newError(ErrArityMismatch, index, "fact %s does not match head %s", fact, clause.Head)
	}

	c := newContext(schema, index, queryir.History)
	c.bound = bound
	if err := c.compileBody(clause.Body); err != nil {
		return nil, err
	}

	for i, arg := range clause.Head.Args {
		value, err := c.factParam(fact.Args[i], head.Types[i])
		if err != nil {
			return nil, err
		}
		if err := c.unify(arg, value, head.Types[i]); err != nil {
			return nil, err
		}
	}
	if err := c.finish(); err != nil {
		return nil, err
	}

	var cols, order []queryir.Expr
	atoms := make([]ir.Relation, len(c.from))
	for i, t := range c.from {
		rel, _ := schema.Lookup(t.Relation)
		atoms[i] = rel
		for j, typ := range rel.Types {
			cols = append(cols, queryir.Column{Alias: t.Alias, Index: j, Type: typ})
		}
		ts := queryir.Timestamp{Alias: t.Alias}
		cols = append(cols, ts)
		order = append(order, ts)
	}

	return &Explanation{
		Rule:  index,
		Atoms: atoms,
		Select: queryir.Select{
			Columns: cols,
			Plan:    c.plan(),
			OrderBy: order,
			Limit:   1,
		},
	}, nil
}

// FactParams converts the arguments of a ground fact into database/sql
// parameters for the given schema. Structured terms become canonical JSON.
func FactParams(rel ir.Relation, fact ir.Atom) ([]any, error) {
	if len(fact.Args) != rel.Arity() {
		return nil, fmt.Errorf("%s has arity %d, got %d arguments", rel.Name, rel.Arity(), len(fact.Args))
	}
	out := make([]any, len(fact.Args))
	for i, t := range fact.Args {
		v, err := termParam(t, rel.Types[i])
		if err != nil {
			return nil, fmt.Errorf("%s argument %d: %w", rel.Name, i, err)
		}
		out[i] = v
	}
	return out, nil
}

func termParam(t ir.Term, col ir.ColumnType) (any, error) {
	return ir.ColumnParam(t, col)
}
