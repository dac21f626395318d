package souffle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/roach88/litelog/internal/engine"
	"github.com/roach88/litelog/internal/ir"
	"github.com/roach88/litelog/internal/store"
)

// DefaultExec is the solver binary looked up on PATH.
const DefaultExec = "souffle"

// ErrNotInstalled is returned when the solver binary cannot be found.
var ErrNotInstalled = errors.New("souffle binary not found")

// Runner invokes the Soufflé binary.
type Runner struct {
	// Exec is the binary to run. Default: DefaultExec.
	Exec string

	// Jobs is passed as -j when positive.
	Jobs int

	// Logger receives the solver's output at debug level. Default: no-op.
	Logger *zap.Logger
}

// Result summarizes one Solve.
type Result struct {
	Timestamp int64  // timestamp the imported facts were committed at
	Facts     int64  // facts new to the store
	Output    string // combined solver output
}

// Solve evaluates the engine's program with Soufflé and imports every
// relation into the engine's store at one fresh timestamp.
func (r *Runner) Solve(ctx context.Context, e *engine.Engine) (Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bin := r.Exec
	if bin == "" {
		bin = DefaultExec
	}
	if _, err := exec.LookPath(bin); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrNotInstalled, err)
	}

	dir, err := os.MkdirTemp("", "litelog-souffle-*")
	if err != nil {
		return Result{}, fmt.Errorf("souffle: %w", err)
	}
	defer os.RemoveAll(dir)

	relations := e.Store().Relations()
	programPath := filepath.Join(dir, "program.dl")
	outputDB := filepath.Join(dir, "output.db")

	f, err := os.Create(programPath)
	if err != nil {
		return Result{}, fmt.Errorf("souffle: %w", err)
	}
	if err := Emit(f, relations, e.Clauses(), outputDB); err != nil {
		f.Close()
		return Result{}, err
	}
	if err := f.Close(); err != nil {
		return Result{}, fmt.Errorf("souffle: %w", err)
	}

	args := []string{"-D", dir}
	if r.Jobs > 0 {
		args = append(args, "-j", strconv.Itoa(r.Jobs))
	}
	args = append(args, programPath)

	cmd := exec.CommandContext(ctx, bin, args...)
	out, err := cmd.CombinedOutput()
	logger.Debug("souffle finished", zap.Strings("args", args), zap.ByteString("output", out))
	if err != nil {
		return Result{Output: string(out)}, fmt.Errorf("souffle: %w: %s", err, out)
	}

	ts := e.Clock().Next()
	n, err := ImportOutput(ctx, e.Store(), outputDB, relations, ts)
	if err != nil {
		return Result{Output: string(out)}, err
	}
	logger.Info("souffle output imported", zap.Int64("timestamp", ts), zap.Int64("facts", n))
	return Result{Timestamp: ts, Facts: n, Output: string(out)}, nil
}

// ImportOutput reads relations from a SQLite database written by Soufflé
// and commits their rows into st at ts. Relations absent from the
// database are skipped. Returns the number of facts new to st.
func ImportOutput(ctx context.Context, st *store.Store, dbPath string, relations []ir.Relation, ts int64) (int64, error) {
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return 0, fmt.Errorf("open souffle output: %w", err)
	}
	defer db.Close()

	var facts []ir.Atom
	for _, rel := range relations {
		rows, err := readRelation(ctx, db, rel)
		if err != nil {
			return 0, err
		}
		facts = append(facts, rows...)
	}
	if len(facts) == 0 {
		return 0, nil
	}
	return st.ImportFacts(ctx, facts, ts)
}

func readRelation(ctx context.Context, db *sql.DB, rel ir.Relation) ([]ir.Atom, error) {
	var name string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE name = ? AND type IN ('table', 'view')", rel.Name).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read souffle output %s: %w", rel.Name, err)
	}

	rows, err := db.QueryContext(ctx, "SELECT * FROM "+rel.Name)
	if err != nil {
		return nil, fmt.Errorf("read souffle output %s: %w", rel.Name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(cols) != rel.Arity() {
		return nil, fmt.Errorf("souffle output %s has %d columns, want %d", rel.Name, len(cols), rel.Arity())
	}

	var out []ir.Atom
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		args := make([]ir.Term, len(raw))
		for i, v := range raw {
			t, err := ir.FromColumn(v, rel.Types[i])
			if err != nil {
				return nil, fmt.Errorf("souffle output %s column %d: %w", rel.Name, i, err)
			}
			args[i] = t
		}
		out = append(out, ir.Atom{Relation: rel.Name, Args: args})
	}
	return out, rows.Err()
}
