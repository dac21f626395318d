package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/roach88/litelog/internal/compiler"
	"github.com/roach88/litelog/internal/ir"
	"github.com/roach88/litelog/internal/querysql"
	"github.com/roach88/litelog/internal/store"
)

// Engine is the embedding surface of litelog: declare relations, assert
// facts and rules, Run to fixpoint, then read relations and explain facts.
//
// Thread-safety model:
//   - Declare/Assert*/Add: safe from any goroutine, must not overlap Run
//   - Run: serialized by an internal mutex
//   - Relation/Contains/Explain: read-only, safe between runs
//
// INVARIANTS:
//   - clauses order NEVER changes; a clause's index is its position
//   - rules[i] is the compilation of clauses[i]
//   - timestamps handed out by clock are never reused
type Engine struct {
	store      *store.Store
	clock      LogicalClock
	logger     *zap.Logger
	registerer prometheus.Registerer
	metrics    *metrics
	stats      stats
	strategy   Strategy
	maxRounds  int
	runIDs     RunIDGenerator
	sqlc       *querysql.SQLCompiler

	runMu sync.Mutex // held for the duration of Run

	mu      sync.Mutex
	clauses []ir.Clause
	rules   []*compiler.Rule
}

// New creates an Engine over a store.
//
// The logical clock is advanced past the latest timestamp already recorded
// in the store, so a reopened database never reuses a timestamp.
// Relations declared in the store are available immediately; clauses are
// not persisted and must be asserted again.
func New(ctx context.Context, st *store.Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:    st,
		clock:    NewClock(),
		logger:   zap.NewNop(),
		strategy: SemiNaive,
		runIDs:   UUIDv7Generator{},
		sqlc:     querysql.NewSQLCompiler(),
	}

	for _, opt := range opts {
		opt(e)
	}
	e.metrics = newMetrics(e.registerer)

	if err := e.resumeClock(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Declare registers a relation and returns its schema.
func (e *Engine) Declare(ctx context.Context, name string, types ...ir.ColumnType) (ir.Relation, error) {
	rel := ir.Relation{Name: name, Types: types}
	if err := e.DeclareRelation(ctx, rel); err != nil {
		return ir.Relation{}, err
	}
	return rel, nil
}

// DeclareRelation registers a relation schema. Declaring an identical
// schema twice is a no-op; a different schema under the same name fails
// with a store.DeclarationError.
func (e *Engine) DeclareRelation(ctx context.Context, rel ir.Relation) error {
	if err := e.store.DeclareRelation(ctx, rel); err != nil {
		return err
	}
	e.logger.Debug("relation declared", zap.Stringer("relation", rel))
	return nil
}

// AssertFact adds a ground fact. The fact becomes a body-less clause and
// is committed by the next Run.
func (e *Engine) AssertFact(fact ir.Atom) error {
	if !fact.IsGround() {
		return NewNotGroundError(fact)
	}
	return e.AssertClause(ir.Fact(fact))
}

// AssertRule adds the rule head :- body. Body parts are combined with
// ir.Conj; an invalid part fails with an ir.CombineError.
func (e *Engine) AssertRule(head ir.Atom, body ...any) error {
	c, err := ir.Implies(head, body...)
	if err != nil {
		return err
	}
	return e.AssertClause(c)
}

// AssertClause validates and compiles a clause and appends it to the
// program. Fails with a compiler.CompileError when a relation is not
// declared, an arity differs, or a variable is unbound.
func (e *Engine) AssertClause(c ir.Clause) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	index := len(e.clauses)
	rule, err := compiler.CompileRule(e.store, index, c)
	if err != nil {
		return err
	}
	e.clauses = append(e.clauses, c)
	e.rules = append(e.rules, rule)
	e.logger.Debug("clause asserted", zap.Int("rule", index), zap.Stringer("clause", c))
	return nil
}

// Add accepts relations, clauses and facts in any mix: ir.Relation,
// []ir.Relation, ir.Clause, []ir.Clause and ir.Atom (a fact).
func (e *Engine) Add(ctx context.Context, items ...any) error {
	for i, item := range items {
		var err error
		switch v := item.(type) {
		case ir.Relation:
			err = e.DeclareRelation(ctx, v)
		case []ir.Relation:
			for _, rel := range v {
				if err = e.DeclareRelation(ctx, rel); err != nil {
					break
				}
			}
		case ir.Clause:
			err = e.AssertClause(v)
		case []ir.Clause:
			for _, c := range v {
				if err = e.AssertClause(c); err != nil {
					break
				}
			}
		case ir.Atom:
			err = e.AssertFact(v)
		default:
			err = fmt.Errorf("cannot add %T", item)
		}
		if err != nil {
			return fmt.Errorf("add item %d: %w", i, err)
		}
	}
	return nil
}

// Clauses returns the asserted clauses in assertion order.
func (e *Engine) Clauses() []ir.Clause {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ir.Clause, len(e.clauses))
	copy(out, e.clauses)
	return out
}

// Strata returns the evaluation order Run would use.
func (e *Engine) Strata() ([]compiler.Stratum, error) {
	return compiler.Stratify(e.Clauses())
}

// ProgramHash identifies the declared relations and asserted clauses.
func (e *Engine) ProgramHash() string {
	return ir.ProgramHash(e.store.Relations(), e.Clauses())
}

// Relation returns the committed facts of a relation, ordered by column
// values.
func (e *Engine) Relation(ctx context.Context, name string) ([]ir.Atom, error) {
	return e.store.ReadRelation(ctx, name)
}

// Contains reports whether a ground fact is committed.
func (e *Engine) Contains(ctx context.Context, fact ir.Atom) (bool, error) {
	if !fact.IsGround() {
		return false, NewNotGroundError(fact)
	}
	return e.store.Contains(ctx, fact)
}

// Store returns the underlying Relation Store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() LogicalClock {
	return e.clock
}

// Strategy returns the configured evaluation strategy.
func (e *Engine) Strategy() Strategy {
	return e.strategy
}

// Stats returns cumulative execution time per statement kind, sorted by
// kind.
func (e *Engine) Stats() []Stat {
	return e.stats.snapshot()
}

// rulesSnapshot returns the compiled rules and their clauses.
func (e *Engine) rulesSnapshot() ([]ir.Clause, []*compiler.Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	clauses := make([]ir.Clause, len(e.clauses))
	copy(clauses, e.clauses)
	rules := make([]*compiler.Rule, len(e.rules))
	copy(rules, e.rules)
	return clauses, rules
}
