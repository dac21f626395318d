package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanWithKindCopies(t *testing.T) {
	p := Plan{From: []TableRef{
		{Relation: "edge", Kind: Base, Alias: "t1"},
		{Relation: "path", Kind: Base, Alias: "t2"},
	}}

	variant := p.WithKind(1, Delta)

	assert.Equal(t, Delta, variant.From[1].Kind)
	assert.Equal(t, Base, variant.From[0].Kind)
	assert.Equal(t, Base, p.From[1].Kind, "original plan must not change")
}

func TestTableKindString(t *testing.T) {
	assert.Equal(t, "base", Base.String())
	assert.Equal(t, "delta", Delta.String())
	assert.Equal(t, "new", New.String())
	assert.Equal(t, "history", History.String())
	assert.Equal(t, "unknown", TableKind(42).String())
}

func TestSealedInterfaces(t *testing.T) {
	exprs := []Expr{Column{}, Timestamp{}, Path{}, Param{}, Template{}, Construct{}}
	preds := []Predicate{Equals{}, IsArray{}, NotExists{}, Check{}, Before{}}
	stmts := []Statement{Insert{}, Select{}}

	assert.Len(t, exprs, 6)
	assert.Len(t, preds, 5)
	assert.Len(t, stmts, 2)
}
