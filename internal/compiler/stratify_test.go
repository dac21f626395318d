package compiler

import (
	"testing"

	"github.com/roach88/litelog/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reachability(t *testing.T) []ir.Clause {
	t.Helper()
	return []ir.Clause{
		ir.Fact(edge.Atom(1, 2)),
		ir.Fact(edge.Atom(2, 3)),
		clause(t, path.Atom(x, y), edge.Atom(x, y)),
		clause(t, path.Atom(x, z), edge.Atom(x, y), path.Atom(y, z)),
	}
}

func relations(strata []Stratum) [][]string {
	out := make([][]string, len(strata))
	for i, s := range strata {
		out[i] = s.Relations
	}
	return out
}

func TestStratify_TransitiveClosure(t *testing.T) {
	strata, err := Stratify(reachability(t))
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"edge"}, {"path"}}, relations(strata))
	assert.Equal(t, []int{0, 1}, strata[0].OneShot)
	assert.Empty(t, strata[0].Recursive)
	assert.Equal(t, []int{2}, strata[1].OneShot)
	assert.Equal(t, []int{3}, strata[1].Recursive)
	assert.Equal(t, []int{2, 3}, strata[1].Rules())
	assert.True(t, strata[1].Contains("path"))
	assert.False(t, strata[1].Contains("edge"))
}

func TestStratify_NegationOrdersStrata(t *testing.T) {
	wild := ir.V("_")
	clauses := append(reachability(t),
		clause(t, verts.Atom(x), edge.Atom(x, wild)),
		clause(t, verts.Atom(y), edge.Atom(wild, y)),
		clause(t, nopath.Atom(x, y), verts.Atom(x), verts.Atom(y), ir.Neg(path.Atom(x, y))),
	)

	strata, err := Stratify(clauses)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"edge"}, {"verts"}, {"path"}, {"nopath"}}, relations(strata))
	assert.Equal(t, []int{6}, strata[3].OneShot, "negating a lower stratum is not recursion")
	for i, s := range strata {
		assert.Equal(t, i, s.Index)
	}
}

func TestStratify_MutualRecursionSharesStratum(t *testing.T) {
	a := ir.Relation{Name: "a", Types: []ir.ColumnType{ir.Integer}}
	b := ir.Relation{Name: "b", Types: []ir.ColumnType{ir.Integer}}
	clauses := []ir.Clause{
		ir.Fact(a.Atom(1)),
		clause(t, b.Atom(x), a.Atom(x)),
		clause(t, a.Atom(x), b.Atom(x)),
	}

	strata, err := Stratify(clauses)
	require.NoError(t, err)
	require.Len(t, strata, 1)
	assert.Equal(t, []string{"a", "b"}, strata[0].Relations)
	assert.Equal(t, []int{0}, strata[0].OneShot)
	assert.Equal(t, []int{1, 2}, strata[0].Recursive)
}

func TestStratify_Unstratifiable(t *testing.T) {
	p := ir.Relation{Name: "p", Types: []ir.ColumnType{ir.Integer}}
	q := ir.Relation{Name: "q", Types: []ir.ColumnType{ir.Integer}}

	tests := []struct {
		name    string
		clauses []ir.Clause
	}{
		{
			name:    "self negation",
			clauses: []ir.Clause{clause(t, p.Atom(x), verts.Atom(x), ir.Neg(p.Atom(x)))},
		},
		{
			name: "negation through a cycle",
			clauses: []ir.Clause{
				clause(t, p.Atom(x), verts.Atom(x), ir.Neg(q.Atom(x))),
				clause(t, q.Atom(x), p.Atom(x)),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Stratify(tt.clauses)
			require.Error(t, err)
			assert.True(t, IsCompileError(err, ErrUnstratifiable))

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, -1, ce.Rule)
			assert.NotContains(t, ce.Error(), "rule -1")
		})
	}
}

func TestStratify_Deterministic(t *testing.T) {
	first, err := Stratify(reachability(t))
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Stratify(reachability(t))
		require.NoError(t, err)
		assert.Equal(t, relations(first), relations(again))
	}
}

func TestStratify_Empty(t *testing.T) {
	strata, err := Stratify(nil)
	require.NoError(t, err)
	assert.Empty(t, strata)
}

func TestUnionFind(t *testing.T) {
	var u unionFind
	a, b, c := u.add(), u.add(), u.add()

	keep, gone := u.union(b, c)
	assert.Equal(t, b, keep)
	assert.Equal(t, c, gone)
	assert.Equal(t, b, u.find(c))

	keep, gone = u.union(c, b)
	assert.Equal(t, keep, gone, "already joined")

	u.union(a, c)
	assert.Equal(t, a, u.find(b))
	assert.Equal(t, a, u.find(c))
}

func TestValidateClause_EqualityPropagation(t *testing.T) {
	c := clause(t, nats.Atom(z), nats.Atom(x), ir.Equal(y, ir.E("{x} * {$0}", 2)), ir.Equal(z, y))
	assert.NoError(t, ValidateClause(schema, 0, c))

	c = clause(t, nats.Atom(z), nats.Atom(x), ir.Equal(z, ir.E("{w} + 1")))
	err := ValidateClause(schema, 0, c)
	assert.True(t, IsCompileError(err, ErrUnboundVariable))
	assert.Contains(t, err.Error(), "rule 0")
}

func TestCompileErrorFormat(t *testing.T) {
	err := newError(ErrArityMismatch, 2, "edge has arity %d", 2)
	assert.Equal(t, "[ARITY_MISMATCH] rule 2: edge has arity 2", err.Error())
	assert.True(t, IsCompileError(err, ""))
	assert.False(t, IsCompileError(err, ErrInvalidTerm))
	assert.False(t, IsCompileError(assert.AnError, ""))
}
