package queryir

import (
	"testing"

	"github.com/roach88/litelog/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInsert() Insert {
	return Insert{
		Relation: "path",
		Kind:     New,
		Types:    []ir.ColumnType{ir.Integer, ir.Integer},
		Columns: []Expr{
			Column{Alias: "t1", Index: 0, Type: ir.Integer},
			Column{Alias: "t2", Index: 1, Type: ir.Integer},
		},
		Plan: Plan{
			From: []TableRef{
				{Relation: "edge", Kind: Base, Alias: "t1"},
				{Relation: "path", Kind: Delta, Alias: "t2"},
			},
			Where: []Predicate{
				Equals{Left: Column{Alias: "t1", Index: 1}, Right: Column{Alias: "t2", Index: 0}},
				NotExists{
					From: []TableRef{{Relation: "blocked", Kind: Base, Alias: "t3"}},
					Where: []Predicate{
						Equals{Left: Column{Alias: "t3", Index: 0}, Right: Column{Alias: "t1", Index: 0}},
					},
				},
				Check{Cond: Template{Parts: []string{"", " < ", ""}, Args: []Expr{
					Column{Alias: "t1", Index: 0}, Param{Name: "p0"},
				}}},
			},
			Params: []Binding{{Name: "p0", Value: int64(10)}},
		},
	}
}

func TestValidateAcceptsWellFormedInsert(t *testing.T) {
	result := Validate(validInsert())
	assert.True(t, result.Valid, result.Problems)
	assert.NoError(t, result.Err())
}

func TestValidateProblems(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Insert)
		problem string
	}{
		{
			name:    "column count",
			mutate:  func(s *Insert) { s.Columns = s.Columns[:1] },
			problem: "insert into path: 1 columns for 2 types",
		},
		{
			name:    "unbound param",
			mutate:  func(s *Insert) { s.Plan.Params = nil },
			problem: `parameter "p0" not bound`,
		},
		{
			name: "duplicate alias",
			mutate: func(s *Insert) {
				s.Plan.From[1].Alias = "t1"
			},
			problem: `duplicate alias "t1"`,
		},
		{
			name: "subquery alias out of scope",
			mutate: func(s *Insert) {
				s.Columns[0] = Column{Alias: "t3", Index: 0}
			},
			problem: `alias "t3" not in scope`,
		},
		{
			name: "template arity",
			mutate: func(s *Insert) {
				s.Plan.Where[2] = Check{Cond: Template{Parts: []string{"1"}, Args: []Expr{Param{Name: "p0"}}}}
			},
			problem: "template has 1 parts for 1 arguments",
		},
		{
			name: "timestamp on base table",
			mutate: func(s *Insert) {
				s.Plan.Where = append(s.Plan.Where, Before{Alias: "t1", Bound: Param{Name: "p0"}})
			},
			problem: `alias "t1" reads base table, timestamps need history`,
		},
		{
			name:    "insert into history",
			mutate:  func(s *Insert) { s.Kind = History },
			problem: "insert into path: history tables are written by commit only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := validInsert()
			tt.mutate(&stmt)
			result := Validate(stmt)
			require.False(t, result.Valid)
			assert.Contains(t, result.Problems, tt.problem)
			assert.Error(t, result.Err())
		})
	}
}

func TestValidateSelectWithHistory(t *testing.T) {
	stmt := Select{
		Columns: []Expr{Column{Alias: "h1", Index: 0}, Timestamp{Alias: "h1"}},
		Plan: Plan{
			From:   []TableRef{{Relation: "edge", Kind: History, Alias: "h1"}},
			Where:  []Predicate{Before{Alias: "h1", Bound: Param{Name: "bound"}}},
			Params: []Binding{{Name: "bound", Value: int64(4)}},
		},
		OrderBy: []Expr{Timestamp{Alias: "h1"}},
		Limit:   1,
	}
	assert.True(t, Validate(stmt).Valid, Validate(stmt).Problems)
}

func TestValidateNil(t *testing.T) {
	assert.False(t, Validate(nil).Valid)
}
