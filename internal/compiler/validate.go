package compiler

import (
	"github.com/roach88/litelog/internal/ir"
)

// Wildcard is the variable name that never binds.
const Wildcard = "_"

// Schema resolves relation names to their declared schemas.
type Schema interface {
	Lookup(name string) (ir.Relation, bool)
}

// SchemaMap is a Schema backed by a map.
type SchemaMap map[string]ir.Relation

// Lookup implements Schema.
func (m SchemaMap) Lookup(name string) (ir.Relation, bool) {
	r, ok := m[name]
	return r, ok
}

// NewSchemaMap indexes relations by name.
func NewSchemaMap(rels ...ir.Relation) SchemaMap {
	m := make(SchemaMap, len(rels))
	for _, r := range rels {
		m[r.Name] = r
	}
	return m
}

// ValidateClause checks a clause before compilation:
//  1. Every cited relation is declared, with matching arity
//  2. Structured terms only appear in JSON columns, with identifier functors
//  3. Template placeholders reference existing arguments
//  4. Range restriction: head, constraint, and expression variables are
//     bound by a positive atom, directly or through equalities
//  5. Variables bound only under negation are not used outside it
//
// Returns the first violation found.
func ValidateClause(schema Schema, index int, c ir.Clause) error {
	if _, err := checkAtom(schema, index, c.Head); err != nil {
		return err
	}
	for _, l := range c.Body {
		switch lit := l.(type) {
		case ir.Atom:
			if _, err := checkAtom(schema, index, lit); err != nil {
				return err
			}
		case ir.Not:
			if _, err := checkAtom(schema, index, lit.Atom); err != nil {
				return err
			}
		case ir.Eq:
			if err := checkTerm(index, lit.Left, ir.JSON); err != nil {
				return err
			}
			if err := checkTerm(index, lit.Right, ir.JSON); err != nil {
				return err
			}
		case ir.Raw:
			if err := checkTemplate(index, lit.Template, len(lit.Args)); err != nil {
				return err
			}
		}
	}
	return checkRangeRestriction(index, c)
}

func checkAtom(schema Schema, index int, a ir.Atom) (ir.Relation, error) {
	rel, ok := schema.Lookup(a.Relation)
	if !ok {
		return ir.Relation{}, newError(ErrUnknownRelation, index, "relation %q is not declared", a.Relation)
	}
	if len(a.Args) != rel.Arity() {
		return ir.Relation{}, newError(ErrArityMismatch, index, "%s has arity %d, got %d arguments", a.Relation, rel.Arity(), len(a.Args))
	}
	for i, t := range a.Args {
		if err := checkTerm(index, t, rel.Types[i]); err != nil {
			return ir.Relation{}, err
		}
	}
	return rel, nil
}

func checkTerm(index int, t ir.Term, col ir.ColumnType) error {
	switch term := t.(type) {
	case ir.Compound:
		if col != ir.JSON {
			return newError(ErrInvalidTerm, index, "compound %s in %s column", term, col)
		}
		if !ir.ValidIdentifier(term.Functor) {
			return newError(ErrInvalidTerm, index, "invalid functor %q", term.Functor)
		}
		for _, a := range term.Args {
			if err := checkTerm(index, a, ir.JSON); err != nil {
				return err
			}
		}
	case ir.List:
		if col != ir.JSON {
			return newError(ErrInvalidTerm, index, "list %s in %s column", term, col)
		}
		for _, e := range term.Elems {
			if err := checkTerm(index, e, ir.JSON); err != nil {
				return err
			}
		}
	case ir.Expr:
		return checkTemplate(index, term.Template, len(term.Args))
	case ir.Const:
		if term.Value == nil {
			return newError(ErrInvalidTerm, index, "constant without value")
		}
	case ir.Var:
	case nil:
		return newError(ErrInvalidTerm, index, "nil term")
	}
	return nil
}

func checkTemplate(index int, template string, nargs int) error {
	for _, p := range ir.Placeholders(template) {
		if p.Name == "" && p.Arg >= nargs {
			return newError(ErrInvalidTerm, index, "template %q references argument {$%d} of %d", template, p.Arg, nargs)
		}
		if p.Name == Wildcard {
			return newError(ErrUnboundVariable, index, "template %q references the wildcard", template)
		}
	}
	return nil
}

// bindingVars appends variables a term binds when matched against a
// column. Variables inside expressions are references, not bindings.
func bindingVars(dst []string, t ir.Term) []string {
	switch term := t.(type) {
	case ir.Var:
		if term.Name != Wildcard {
			dst = append(dst, term.Name)
		}
	case ir.Compound:
		for _, a := range term.Args {
			dst = bindingVars(dst, a)
		}
	case ir.List:
		for _, e := range term.Elems {
			dst = bindingVars(dst, e)
		}
	}
	return dst
}

// refVars appends variables referenced from inside expressions.
func refVars(dst []string, t ir.Term) []string {
	switch term := t.(type) {
	case ir.Expr:
		dst = append(dst, term.Vars()...)
	case ir.Compound:
		for _, a := range term.Args {
			dst = refVars(dst, a)
		}
	case ir.List:
		for _, e := range term.Elems {
			dst = refVars(dst, e)
		}
	}
	return dst
}

func checkRangeRestriction(index int, c ir.Clause) error {
	bound := make(map[string]bool)
	negOnly := make(map[string]bool)

	for _, l := range c.Body {
		if a, ok := l.(ir.Atom); ok {
			for _, t := range a.Args {
				for _, v := range bindingVars(nil, t) {
					bound[v] = true
				}
			}
		}
	}

	// Propagate through equalities until nothing changes.
	allBound := func(t ir.Term) bool {
		for _, v := range ir.TermVars(nil, t) {
			if !bound[v] {
				return false
			}
		}
		return true
	}
	for changed := true; changed; {
		changed = false
		for _, l := range c.Body {
			eq, ok := l.(ir.Eq)
			if !ok {
				continue
			}
			for _, pair := range [][2]ir.Term{{eq.Left, eq.Right}, {eq.Right, eq.Left}} {
				v, isVar := pair[0].(ir.Var)
				if !isVar || v.Name == Wildcard || bound[v.Name] {
					continue
				}
				if allBound(pair[1]) {
					bound[v.Name] = true
					changed = true
				}
			}
		}
	}

	for _, l := range c.Body {
		if n, ok := l.(ir.Not); ok {
			for _, t := range n.Atom.Args {
				for _, v := range bindingVars(nil, t) {
					if !bound[v] {
						negOnly[v] = true
					}
				}
			}
		}
	}

	check := func(name, where string) error {
		if bound[name] {
			return nil
		}
		if negOnly[name] {
			return newError(ErrUnsafeNegation, index, "variable %s in %s is only bound under negation", name, where)
		}
		return newError(ErrUnboundVariable, index, "variable %s in %s is not bound by the body", name, where)
	}

	for _, t := range c.Head.Args {
		for _, v := range ir.TermVars(nil, t) {
			if err := check(v, "head "+c.Head.String()); err != nil {
				return err
			}
		}
	}
	for _, l := range c.Body {
		switch lit := l.(type) {
		case ir.Atom:
			for _, t := range lit.Args {
				for _, v := range refVars(nil, t) {
					if err := check(v, lit.String()); err != nil {
						return err
					}
				}
			}
		case ir.Not:
			for _, t := range lit.Atom.Args {
				for _, v := range refVars(nil, t) {
					if err := check(v, lit.String()); err != nil {
						return err
					}
				}
			}
		case ir.Eq:
			for _, v := range ir.TermVars(ir.TermVars(nil, lit.Left), lit.Right) {
				if err := check(v, lit.String()); err != nil {
					return err
				}
			}
		case ir.Raw:
			for _, v := range lit.Vars() {
				if err := check(v, lit.String()); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
