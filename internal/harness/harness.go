package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/litelog/internal/compiler"
	"github.com/roach88/litelog/internal/engine"
	"github.com/roach88/litelog/internal/frontend"
	"github.com/roach88/litelog/internal/store"
	"github.com/roach88/litelog/internal/testutil"
)

// Options configures scenario execution.
type Options struct {
	// Logger receives engine logs. Default: no-op.
	Logger *zap.Logger

	// Parallel bounds how many scenarios RunDir runs at once. Default: 4.
	Parallel int

	// Filter is a glob matched against scenario file names without their
	// extension. Empty matches every file.
	Filter string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs on a fresh in-memory store with a deterministic clock
// and sequential run ids, so timestamps and proofs are reproducible.
//
// Execution flow:
//  1. Create a fresh in-memory store and engine
//  2. Load the program file and rule text, declare and assert
//  3. Run to fixpoint
//  4. Evaluate assertions, reconstructing proofs where asked
//
// A returned error means the harness itself failed; program failures are
// reported in the result.
func Run(ctx context.Context, s *Scenario, opts Options) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	engOpts := []engine.Option{
		engine.WithLogger(logger.With(zap.String("scenario", s.Name))),
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithRunIDGenerator(testutil.NewSequentialRunIDGenerator(s.Name)),
		engine.WithMaxRounds(s.MaxRounds),
	}
	if s.Strategy == engine.Naive.String() {
		engOpts = append(engOpts, engine.WithStrategy(engine.Naive))
	}
	eng, err := engine.New(ctx, st, engOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	result := NewResult(s.Name)
	runErr := load(ctx, eng, s)
	if runErr == nil {
		result.Run, runErr = eng.Run(ctx)
	}
	result.Err = runErr

	if s.ExpectError != "" {
		if code := ErrorCode(runErr); code != s.ExpectError {
			result.AddError(fmt.Sprintf("expected error %s, got %s (%v)", s.ExpectError, code, runErr))
		}
		return result, nil
	}
	if runErr != nil {
		result.AddError(fmt.Sprintf("run failed: %v", runErr))
		return result, nil
	}

	if err := snapshotRelations(ctx, eng, result); err != nil {
		return nil, err
	}
	for _, msg := range EvaluateAssertions(ctx, eng, s.Assertions, result) {
		result.AddError(msg)
	}
	return result, nil
}

// load applies the scenario's program file, then its rule text.
func load(ctx context.Context, eng *engine.Engine, s *Scenario) error {
	if s.Program != "" {
		p, err := frontend.LoadProgram(s.Program)
		if err != nil {
			return err
		}
		if err := p.Apply(ctx, eng); err != nil {
			return err
		}
	}
	if s.Rules != "" {
		rules, err := frontend.ParseRules(s.Rules)
		if err != nil {
			return err
		}
		if err := eng.Add(ctx, rules.Relations, rules.Clauses); err != nil {
			return err
		}
	}
	return nil
}

func snapshotRelations(ctx context.Context, eng *engine.Engine, result *Result) error {
	for _, rel := range eng.Store().Relations() {
		facts, err := eng.Relation(ctx, rel.Name)
		if err != nil {
			return fmt.Errorf("read %s: %w", rel.Name, err)
		}
		rc := RelationContents{Name: rel.Name, Facts: make([]string, len(facts))}
		for i, f := range facts {
			rc.Facts[i] = f.String()
		}
		result.Relations = append(result.Relations, rc)
	}
	return nil
}

// ErrorCode returns the code of a typed litelog error: a compile error
// code, a runtime error code, PARSE, LOAD, DECLARATION or EXEC. Returns ""
// for nil and UNKNOWN for anything else.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return ce.Code
	}
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	var pe *frontend.ParseError
	if errors.As(err, &pe) {
		return "PARSE"
	}
	var le *frontend.LoadError
	if errors.As(err, &le) {
		return "LOAD"
	}
	if store.IsDeclarationError(err) {
		return "DECLARATION"
	}
	if store.IsExecError(err) {
		return "EXEC"
	}
	return "UNKNOWN"
}

// RunDir loads every *.yaml scenario in dir that matches opts.Filter and
// runs them concurrently, each on its own store. Results are returned in
// file name order.
func RunDir(ctx context.Context, dir string, opts Options) ([]*Result, error) {
	all, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, p := range all {
		if opts.Filter != "" {
			ok, err := filepath.Match(opts.Filter, strings.TrimSuffix(filepath.Base(p), ".yaml"))
			if err != nil {
				return nil, fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !ok {
				continue
			}
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("scenario directory: %w", err)
		}
		return nil, fmt.Errorf("no scenarios found in %s", dir)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, len(paths))
	for i, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		scenarios[i] = s
	}

	parallel := opts.Parallel
	if parallel <= 0 {
		parallel = 4
	}
	results := make([]*Result, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, s := range scenarios {
		g.Go(func() error {
			res, err := Run(gctx, s, opts)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", s.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
