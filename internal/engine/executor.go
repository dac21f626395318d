package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/litelog/internal/compiler"
	"github.com/roach88/litelog/internal/ir"
	"github.com/roach88/litelog/internal/queryir"
	"github.com/roach88/litelog/internal/store"
)

// RunResult summarizes one Run.
type RunResult struct {
	RunID       string
	ProgramHash string
	Strategy    Strategy

	// Strata is the number of strata evaluated; strata without clauses
	// are skipped and consume no timestamp.
	Strata int
	Rounds int
	Facts  int64 // facts committed by this run

	// FirstTimestamp and LastTimestamp bound the timestamps this run
	// consumed; both are 0 when it consumed none.
	FirstTimestamp int64
	LastTimestamp  int64
}

// statement is one compiled insert, ready to execute.
type statement struct {
	rule  int
	kind  string
	query string
	args  []any
}

// Run evaluates the program to fixpoint.
//
// Strata run in dependency order; each is primed, then iterated until a
// round commits no fact. Every round consumes one logical timestamp. The
// first error aborts the run; facts committed by earlier rounds stay
// committed.
//
// The run is recorded in the store's run log. Running again without new
// clauses commits nothing.
func (e *Engine) Run(ctx context.Context) (RunResult, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	clauses, rules := e.rulesSnapshot()
	strata, err := compiler.Stratify(clauses)
	if err != nil {
		return RunResult{}, err
	}

	res := RunResult{
		RunID:       e.runIDs.Generate(),
		ProgramHash: ir.ProgramHash(e.store.Relations(), clauses),
		Strategy:    e.strategy,
	}
	log := e.logger.With(zap.String("run_id", res.RunID))
	log.Info("run starting",
		zap.Int("clauses", len(clauses)),
		zap.Int("strata", len(strata)),
		zap.Stringer("strategy", e.strategy),
	)

	for _, s := range strata {
		if err := e.runStratum(ctx, log, s, rules, &res); err != nil {
			log.Error("run aborted", zap.Int("stratum", s.Index), zap.Error(err))
			return res, err
		}
	}

	if err := e.store.RecordRun(ctx, store.Run{
		ID:             res.RunID,
		ProgramHash:    res.ProgramHash,
		Strategy:       res.Strategy.String(),
		FirstTimestamp: res.FirstTimestamp,
		LastTimestamp:  res.LastTimestamp,
		Rounds:         res.Rounds,
		Facts:          res.Facts,
		EngineVersion:  ir.EngineVersion,
		IRVersion:      ir.IRVersion,
	}); err != nil {
		return res, err
	}
	e.metrics.runs.Inc()

	log.Info("run converged",
		zap.Int("rounds", res.Rounds),
		zap.Int64("facts", res.Facts),
		zap.Int64("last_timestamp", res.LastTimestamp),
	)
	return res, nil
}

// runStratum drives one stratum from Priming through Iterating to
// Converged.
func (e *Engine) runStratum(ctx context.Context, log *zap.Logger, s compiler.Stratum, rules []*compiler.Rule, res *RunResult) error {
	if len(s.OneShot)+len(s.Recursive) == 0 {
		return nil
	}
	log = log.With(zap.Int("stratum", s.Index), zap.Strings("relations", s.Relations))

	first, every, err := e.stratumStatements(s, rules)
	if err != nil {
		return err
	}

	for _, rel := range s.Relations {
		start := time.Now()
		err := e.store.Prime(ctx, rel)
		e.observe(kindPrime, time.Since(start))
		if err != nil {
			return fmt.Errorf("stratum %d: %w", s.Index, err)
		}
	}

	quota := NewRoundQuota(e.maxRounds)
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("stratum %d: %w", s.Index, err)
		}
		if err := quota.Check(s.Index, s.Relations); err != nil {
			return err
		}

		ts := e.clock.Next()
		if res.FirstTimestamp == 0 {
			res.FirstTimestamp = ts
		}
		res.LastTimestamp = ts

		stmts := every
		if quota.Current() == 1 {
			stmts = append(append([]statement(nil), first...), every...)
		}
		for _, st := range stmts {
			if err := e.execute(ctx, st); err != nil {
				return fmt.Errorf("stratum %d: %w", s.Index, err)
			}
		}

		committed, err := e.commitRound(ctx, s, ts)
		if err != nil {
			return fmt.Errorf("stratum %d: %w", s.Index, err)
		}
		res.Rounds++
		res.Facts += committed
		e.metrics.rounds.Inc()
		log.Debug("round committed", zap.Int64("timestamp", ts), zap.Int64("facts", committed))

		if committed == 0 {
			res.Strata++
			log.Info("stratum converged", zap.Int("rounds", quota.Current()))
			return nil
		}
	}
}

// stratumStatements compiles the statements of a stratum: those run on
// the first round only, and those run every round.
//
// Semi-naive: one-shot rules run once against base tables; recursive
// rules run every round through their delta variants. Naive: every rule
// runs every round against base tables.
func (e *Engine) stratumStatements(s compiler.Stratum, rules []*compiler.Rule) (first, every []statement, err error) {
	if e.strategy == Naive {
		for _, idx := range s.Rules() {
			st, err := e.compileStatement(idx, kindFull, rules[idx].Full())
			if err != nil {
				return nil, nil, err
			}
			every = append(every, st)
		}
		return nil, every, nil
	}

	for _, idx := range s.OneShot {
		st, err := e.compileStatement(idx, kindOneShot, rules[idx].Full())
		if err != nil {
			return nil, nil, err
		}
		first = append(first, st)
	}
	for _, idx := range s.Recursive {
		for _, variant := range rules[idx].DeltaVariants(s.Contains) {
			st, err := e.compileStatement(idx, kindDelta, variant)
			if err != nil {
				return nil, nil, err
			}
			every = append(every, st)
		}
	}
	return first, every, nil
}

func (e *Engine) compileStatement(rule int, kind string, ins queryir.Insert) (statement, error) {
	query, args, err := e.sqlc.Compile(ins)
	if err != nil {
		return statement{}, fmt.Errorf("rule %d: %w", rule, err)
	}
	return statement{rule: rule, kind: kind, query: query, args: args}, nil
}

// execute runs one statement, recording its duration.
func (e *Engine) execute(ctx context.Context, st statement) error {
	start := time.Now()
	n, err := e.store.Exec(ctx, st.query, st.args...)
	elapsed := time.Since(start)
	e.observe(st.kind, elapsed)
	if err != nil {
		return fmt.Errorf("rule %d: %w", st.rule, err)
	}
	e.logger.Debug("statement executed",
		zap.Int("rule", st.rule),
		zap.String("kind", st.kind),
		zap.String("sql", st.query),
		zap.Any("params", st.args),
		zap.Int64("rows", n),
		zap.Duration("elapsed", elapsed),
	)
	return nil
}

// commitRound commits every relation of the stratum at ts and returns the
// total number of facts committed.
func (e *Engine) commitRound(ctx context.Context, s compiler.Stratum, ts int64) (int64, error) {
	var total int64
	for _, rel := range s.Relations {
		start := time.Now()
		n, err := e.store.Commit(ctx, rel, ts)
		e.observe(kindCommit, time.Since(start))
		if err != nil {
			return 0, err
		}
		if n > 0 {
			e.metrics.committed.WithLabelValues(rel).Add(float64(n))
		}
		total += n
	}
	return total, nil
}

func (e *Engine) observe(kind string, d time.Duration) {
	e.stats.observe(kind, d)
	e.metrics.duration.WithLabelValues(kind).Observe(d.Seconds())
}
