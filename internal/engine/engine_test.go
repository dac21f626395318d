package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/litelog/internal/compiler"
	"github.com/roach88/litelog/internal/ir"
	"github.com/roach88/litelog/internal/store"
)

func TestDeclareReturnsSchema(t *testing.T) {
	e := setupTestEngine(t)
	ctx := context.Background()

	rel, err := e.Declare(ctx, "edge", ir.Integer, ir.Integer)
	require.NoError(t, err)
	assert.Equal(t, edge, rel)

	// Identical redeclaration is a no-op.
	_, err = e.Declare(ctx, "edge", ir.Integer, ir.Integer)
	require.NoError(t, err)

	_, err = e.Declare(ctx, "edge", ir.Integer)
	require.Error(t, err)
	assert.True(t, store.IsDeclarationError(err))
}

func TestAssertFactRejectsVariables(t *testing.T) {
	e := setupTestEngine(t)
	_, err := e.Declare(context.Background(), "edge", ir.Integer, ir.Integer)
	require.NoError(t, err)

	err = e.AssertFact(edge.Atom(1, x))
	require.Error(t, err)
	assert.True(t, IsNotGround(err))
	assert.Empty(t, e.Clauses())
}

func TestAssertClauseRejectsInvalidClauses(t *testing.T) {
	e := setupTestEngine(t)
	require.NoError(t, e.Add(context.Background(), []ir.Relation{edge, path}))

	tests := []struct {
		name string
		head ir.Atom
		body []any
		code string
	}{
		{"unknown relation", path.Atom(x, y), []any{verts.Atom(x), edge.Atom(x, y)}, compiler.ErrUnknownRelation},
		{"arity mismatch", path.Atom(x, y), []any{edge.Atom(x)}, compiler.ErrArityMismatch},
		{"unbound head variable", path.Atom(x, z), []any{edge.Atom(x, y)}, compiler.ErrUnboundVariable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.AssertRule(tt.head, tt.body...)
			require.Error(t, err)
			assert.True(t, compiler.IsCompileError(err, tt.code), "got %v", err)
		})
	}
	assert.Empty(t, e.Clauses(), "rejected clauses must not be asserted")
}

func TestAssertRulePropagatesCombineError(t *testing.T) {
	e := setupTestEngine(t)
	require.NoError(t, e.Add(context.Background(), []ir.Relation{edge, path}))

	err := e.AssertRule(path.Atom(x, y), edge.Atom(x, y), 42)
	require.Error(t, err)
	var ce *ir.CombineError
	assert.ErrorAs(t, err, &ce)
}

func TestAddRejectsUnknownItems(t *testing.T) {
	e := setupTestEngine(t)
	err := e.Add(context.Background(), edge, "edge(1, 2)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "add item 1")
	assert.Contains(t, err.Error(), "cannot add string")
}

func TestClausesKeepAssertionOrder(t *testing.T) {
	e := setupTestEngine(t)
	loadTransitive(t, e)

	clauses := e.Clauses()
	require.Len(t, clauses, 4)
	assert.Equal(t, "edge(1, 2).", clauses[0].String())
	assert.Equal(t, "edge(2, 3).", clauses[1].String())
	assert.Equal(t, "path(x, y) :- edge(x, y).", clauses[2].String())
	assert.Equal(t, "path(x, z) :- edge(x, y), path(y, z).", clauses[3].String())
}

func TestStrataOrder(t *testing.T) {
	e := setupTestEngine(t)
	loadNegation(t, e)

	strata, err := e.Strata()
	require.NoError(t, err)

	var order [][]string
	for _, s := range strata {
		order = append(order, s.Relations)
	}
	require.Len(t, order, 4)
	assert.Equal(t, []string{"edge"}, order[0])
	assert.ElementsMatch(t, [][]string{{"path"}, {"verts"}}, order[1:3])
	assert.Equal(t, []string{"nopath"}, order[3])
}

func TestProgramHashTracksClauses(t *testing.T) {
	e := setupTestEngine(t)
	loadTransitive(t, e)
	before := e.ProgramHash()
	assert.Equal(t, before, e.ProgramHash(), "hash must be stable")

	require.NoError(t, e.AssertFact(edge.Atom(3, 4)))
	assert.NotEqual(t, before, e.ProgramHash())
}

func TestContains(t *testing.T) {
	e := setupTestEngine(t)
	loadTransitive(t, e)
	run(t, e)

	ctx := context.Background()
	ok, err := e.Contains(ctx, path.Atom(1, 3))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Contains(ctx, path.Atom(3, 1))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = e.Contains(ctx, path.Atom(x, 1))
	assert.True(t, IsNotGround(err))
}

func TestRelationUnknown(t *testing.T) {
	e := setupTestEngine(t)
	_, err := e.Relation(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrUnknownRelation)
}
