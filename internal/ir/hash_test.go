package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgramHash(t *testing.T) {
	x, y := V("x"), V("y")
	rule, _ := Implies(path.Atom(x, y), edge.Atom(x, y))
	fact := Fact(edge.Atom(1, 2))

	h1 := ProgramHash([]Relation{edge, path}, []Clause{fact, rule})
	h2 := ProgramHash([]Relation{path, edge}, []Clause{fact, rule})
	h3 := ProgramHash([]Relation{edge, path}, []Clause{rule, fact})

	assert.Len(t, h1, 64)
	assert.Equal(t, h1, h2, "relation order is irrelevant")
	assert.NotEqual(t, h1, h3, "clause order is significant")
}
