package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/litelog/internal/ir"
	"github.com/roach88/litelog/internal/store"
	"github.com/roach88/litelog/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	edge   = ir.Relation{Name: "edge", Types: []ir.ColumnType{ir.Integer, ir.Integer}}
	path   = ir.Relation{Name: "path", Types: []ir.ColumnType{ir.Integer, ir.Integer}}
	verts  = ir.Relation{Name: "verts", Types: []ir.ColumnType{ir.Integer}}
	nopath = ir.Relation{Name: "nopath", Types: []ir.ColumnType{ir.Integer, ir.Integer}}
	nats   = ir.Relation{Name: "nats", Types: []ir.ColumnType{ir.Integer}}
	terms  = ir.Relation{Name: "terms", Types: []ir.ColumnType{ir.JSON}}

	x, y, z = ir.V("x"), ir.V("y"), ir.V("z")
)

// openStore opens a file-backed store at path, closed on cleanup.
func openStore(t *testing.T, path string) *store.Store {
	t.Helper()
	st, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// setupTestEngine creates an engine over a fresh store with a
// deterministic clock and sequential run ids.
func setupTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	st := openStore(t, filepath.Join(t.TempDir(), "test.db"))
	opts = append([]Option{
		WithClock(testutil.NewDeterministicClock()),
		WithRunIDGenerator(testutil.NewSequentialRunIDGenerator("run")),
	}, opts...)
	e, err := New(context.Background(), st, opts...)
	require.NoError(t, err)
	return e
}

func mustClause(t *testing.T, head ir.Atom, body ...any) ir.Clause {
	t.Helper()
	c, err := ir.Implies(head, body...)
	require.NoError(t, err)
	return c
}

// loadTransitive declares edge and path and asserts Scenario A's program:
//
//	edge(1, 2). edge(2, 3).
//	path(x, y) :- edge(x, y).
//	path(x, z) :- edge(x, y), path(y, z).
func loadTransitive(t *testing.T, e *Engine) {
	t.Helper()
	require.NoError(t, e.Add(context.Background(),
		[]ir.Relation{edge, path},
		edge.Atom(1, 2),
		edge.Atom(2, 3),
		mustClause(t, path.Atom(x, y), edge.Atom(x, y)),
		mustClause(t, path.Atom(x, z), edge.Atom(x, y), path.Atom(y, z)),
	))
}

// loadNegation adds verts and nopath on top of loadTransitive.
func loadNegation(t *testing.T, e *Engine) {
	t.Helper()
	loadTransitive(t, e)
	require.NoError(t, e.Add(context.Background(),
		[]ir.Relation{verts, nopath},
		mustClause(t, verts.Atom(x), edge.Atom(x, y)),
		mustClause(t, verts.Atom(y), edge.Atom(x, y)),
		mustClause(t, nopath.Atom(x, y), verts.Atom(x), verts.Atom(y), ir.Neg(path.Atom(x, y))),
	))
}

// loadCounter declares nats and asserts the bounded counter. With bounded
// false the counter never converges.
func loadCounter(t *testing.T, e *Engine, bounded bool) {
	t.Helper()
	body := []any{nats.Atom(x), ir.Equal(y, ir.E("{x} + {$0}", 1))}
	if bounded {
		body = append(body, ir.Constraint("{x} < {$0}", 10))
	}
	require.NoError(t, e.Add(context.Background(),
		nats,
		nats.Atom(0),
		mustClause(t, nats.Atom(y), body...),
	))
}

// tuples returns the committed facts of a relation as strings.
func tuples(t *testing.T, e *Engine, name string) []string {
	t.Helper()
	facts, err := e.Relation(context.Background(), name)
	require.NoError(t, err)
	out := make([]string, len(facts))
	for i, f := range facts {
		out[i] = f.String()
	}
	return out
}

func run(t *testing.T, e *Engine) RunResult {
	t.Helper()
	res, err := e.Run(context.Background())
	require.NoError(t, err)
	return res
}
