package compiler

import (
	"testing"

	"github.com/roach88/litelog/internal/ir"
	"github.com/roach88/litelog/internal/queryir"
	"github.com/roach88/litelog/internal/querysql"
	"github.com/stretchr/testify/require"
)

var (
	edge   = ir.Relation{Name: "edge", Types: []ir.ColumnType{ir.Integer, ir.Integer}}
	path   = ir.Relation{Name: "path", Types: []ir.ColumnType{ir.Integer, ir.Integer}}
	verts  = ir.Relation{Name: "verts", Types: []ir.ColumnType{ir.Integer}}
	nopath = ir.Relation{Name: "nopath", Types: []ir.ColumnType{ir.Integer, ir.Integer}}
	nats   = ir.Relation{Name: "nats", Types: []ir.ColumnType{ir.Integer}}
	terms  = ir.Relation{Name: "terms", Types: []ir.ColumnType{ir.JSON}}
	tagged = ir.Relation{Name: "tagged", Types: []ir.ColumnType{ir.JSON, ir.Integer}}

	schema = NewSchemaMap(edge, path, verts, nopath, nats, terms, tagged)

	x, y, z = ir.V("x"), ir.V("y"), ir.V("z")
)

func clause(t *testing.T, head ir.Atom, body ...any) ir.Clause {
	t.Helper()
	c, err := ir.Implies(head, body...)
	require.NoError(t, err)
	return c
}

func render(t *testing.T, stmt queryir.Statement) (string, []any) {
	t.Helper()
	out, params, err := querysql.NewSQLCompiler().Compile(stmt)
	require.NoError(t, err)
	return out, params
}
