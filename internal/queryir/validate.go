package queryir

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationResult contains the structural problems found in a statement.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems lists every violation found, in traversal order.
	Problems []string
}

// Err returns nil for a valid statement, otherwise an error joining all
// problems.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return errors.New("invalid query plan: " + strings.Join(r.Problems, "; "))
}

// Validate checks that a statement is well formed:
//  1. Aliases are unique across the statement, including subqueries
//  2. Every Column, Timestamp, and Before references an alias in scope
//  3. Timestamp and Before reference History tables only
//  4. Every Param references an entry of Plan.Params
//  5. Template parts and arguments interleave correctly
//  6. Insert projects exactly one column per target type
//
// Validate is a pure function with no side effects.
func Validate(stmt Statement) ValidationResult {
	v := &validator{aliases: make(map[string]bool)}
	v.validateStatement(stmt)
	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

type validator struct {
	problems []string
	params   map[string]bool
	aliases  map[string]bool // every alias seen, for uniqueness
	scopes   []map[string]TableKind
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateStatement(s Statement) {
	switch stmt := s.(type) {
	case Insert:
		if len(stmt.Columns) != len(stmt.Types) {
			v.addProblem("insert into %s: %d columns for %d types", stmt.Relation, len(stmt.Columns), len(stmt.Types))
		}
		if stmt.Kind == History {
			v.addProblem("insert into %s: history tables are written by commit only", stmt.Relation)
		}
		v.withPlan(stmt.Plan, func() {
			for _, c := range stmt.Columns {
				v.validateExpr(c)
			}
		})
	case Select:
		v.withPlan(stmt.Plan, func() {
			for _, c := range stmt.Columns {
				v.validateExpr(c)
			}
			for _, o := range stmt.OrderBy {
				v.validateExpr(o)
			}
		})
		if stmt.Limit < 0 {
			v.addProblem("negative limit %d", stmt.Limit)
		}
	case nil:
		v.addProblem("nil statement")
	default:
		v.addProblem("unknown statement type %T", s)
	}
}

func (v *validator) withPlan(p Plan, body func()) {
	v.params = make(map[string]bool, len(p.Params))
	for _, b := range p.Params {
		if v.params[b.Name] {
			v.addProblem("duplicate parameter %q", b.Name)
		}
		v.params[b.Name] = true
	}
	v.pushScope(p.From)
	for _, w := range p.Where {
		v.validatePredicate(w)
	}
	body()
	v.popScope()
}

func (v *validator) pushScope(from []TableRef) {
	scope := make(map[string]TableKind, len(from))
	for _, t := range from {
		if t.Alias == "" {
			v.addProblem("table %s has no alias", t.Relation)
			continue
		}
		if v.aliases[t.Alias] {
			v.addProblem("duplicate alias %q", t.Alias)
		}
		v.aliases[t.Alias] = true
		scope[t.Alias] = t.Kind
	}
	v.scopes = append(v.scopes, scope)
}

func (v *validator) popScope() {
	v.scopes = v.scopes[:len(v.scopes)-1]
}

func (v *validator) lookup(alias string) (TableKind, bool) {
	for i := len(v.scopes) - 1; i >= 0; i-- {
		if k, ok := v.scopes[i][alias]; ok {
			return k, true
		}
	}
	return 0, false
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.validateExpr(pred.Left)
		v.validateExpr(pred.Right)
	case IsArray:
		if pred.Len < 0 {
			v.addProblem("negative array length %d", pred.Len)
		}
		v.validateExpr(pred.Value)
	case NotExists:
		if len(pred.From) == 0 {
			v.addProblem("NOT EXISTS without tables")
		}
		v.pushScope(pred.From)
		for _, w := range pred.Where {
			v.validatePredicate(w)
		}
		v.popScope()
	case Check:
		v.validateExpr(pred.Cond)
	case Before:
		v.validateHistoryAlias(pred.Alias)
		v.validateExpr(pred.Bound)
	case nil:
		v.addProblem("nil predicate")
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}

func (v *validator) validateHistoryAlias(alias string) {
	kind, ok := v.lookup(alias)
	if !ok {
		v.addProblem("alias %q not in scope", alias)
		return
	}
	if kind != History {
		v.addProblem("alias %q reads %s table, timestamps need history", alias, kind)
	}
}

func (v *validator) validateExpr(e Expr) {
	switch expr := e.(type) {
	case Column:
		if _, ok := v.lookup(expr.Alias); !ok {
			v.addProblem("alias %q not in scope", expr.Alias)
		}
		if expr.Index < 0 {
			v.addProblem("negative column index %d", expr.Index)
		}
	case Timestamp:
		v.validateHistoryAlias(expr.Alias)
	case Path:
		if len(expr.Steps) == 0 {
			v.addProblem("empty JSON path")
		}
		v.validateExpr(expr.Base)
	case Param:
		if !v.params[expr.Name] {
			v.addProblem("parameter %q not bound", expr.Name)
		}
	case Template:
		if len(expr.Parts) != len(expr.Args)+1 {
			v.addProblem("template has %d parts for %d arguments", len(expr.Parts), len(expr.Args))
		}
		for _, a := range expr.Args {
			v.validateExpr(a)
		}
	case Construct:
		for _, el := range expr.Elems {
			v.validateExpr(el)
		}
	case nil:
		v.addProblem("nil expression")
	default:
		v.addProblem("unknown expression type %T", e)
	}
}
