package ir

import (
	"fmt"
	"strings"
)

// Literal is a sealed interface over body literals.
// Only Atom, Not, Eq, and Raw implement it.
type Literal interface {
	literal() // Sealed - only these types implement it
	String() string
}

// Atom is a relation applied to terms. Used both as a body literal and as
// a clause head.
type Atom struct {
	Relation string
	Args     []Term
}

func (Atom) literal() {}

func (a Atom) String() string {
	return a.Relation + "(" + joinTerms(a.Args) + ")"
}

// IsGround reports whether every argument is ground.
func (a Atom) IsGround() bool {
	for _, t := range a.Args {
		if !IsGround(t) {
			return false
		}
	}
	return true
}

// Not is a negated atom. Only valid in clause bodies.
type Not struct {
	Atom Atom
}

func (Not) literal() {}

func (n Not) String() string { return "not " + n.Atom.String() }

// Eq asserts that two terms denote the same value.
type Eq struct {
	Left, Right Term
}

func (Eq) literal() {}

func (e Eq) String() string { return e.Left.String() + " = " + e.Right.String() }

// Raw is a boolean constraint in the backend's scalar language.
// Placeholders follow the Expr conventions.
type Raw struct {
	Template string
	Args     []Value
}

func (Raw) literal() {}

func (r Raw) String() string { return renderTemplate(r.Template, r.Args) }

// Vars returns the variable names referenced by the template.
func (r Raw) Vars() []string { return templateVars(r.Template) }

// Constraint builds a raw constraint literal.
func Constraint(template string, args ...any) Raw {
	return Raw{Template: template, Args: mustValues(args...)}
}

// Neg negates an atom.
func Neg(a Atom) Not { return Not{Atom: a} }

// Equal builds an equality literal.
func Equal(left, right any) Eq {
	return Eq{Left: MustT(left), Right: MustT(right)}
}

// Clause is a Horn clause. A clause with an empty body is a fact.
type Clause struct {
	Head Atom
	Body []Literal
}

// IsFact reports whether the clause has no body.
func (c Clause) IsFact() bool { return len(c.Body) == 0 }

func (c Clause) String() string {
	if c.IsFact() {
		return c.Head.String() + "."
	}
	parts := make([]string, len(c.Body))
	for i, l := range c.Body {
		parts[i] = l.String()
	}
	return c.Head.String() + " :- " + strings.Join(parts, ", ") + "."
}

// CombineError reports an attempt to combine incompatible clause fragments.
type CombineError struct {
	Index   int // position of the offending fragment
	Message string
}

func (e *CombineError) Error() string {
	return fmt.Sprintf("combine fragment %d: %s", e.Index, e.Message)
}

// Conj flattens literals and literal slices into one body.
//
// Accepted fragments: any Literal, []Literal, and the body of another
// conjunction. A Clause cannot be nested inside a body.
func Conj(parts ...any) ([]Literal, error) {
	var body []Literal
	for i, p := range parts {
		switch val := p.(type) {
		case Literal:
			body = append(body, val)
		case []Literal:
			body = append(body, val...)
		case Clause:
			return nil, &CombineError{Index: i, Message: fmt.Sprintf("clause %s cannot appear in a body", val)}
		case nil:
			return nil, &CombineError{Index: i, Message: "nil fragment"}
		default:
			return nil, &CombineError{Index: i, Message: fmt.Sprintf("unsupported fragment %T", p)}
		}
	}
	return body, nil
}

// Implies builds head :- body. Body fragments are combined with Conj.
func Implies(head Atom, body ...any) (Clause, error) {
	lits, err := Conj(body...)
	if err != nil {
		return Clause{}, err
	}
	return Clause{Head: head, Body: lits}, nil
}

// Fact builds a clause with an empty body.
func Fact(head Atom) Clause { return Clause{Head: head} }

// BodyRelations returns the relations cited by positive and negated atoms.
func (c Clause) BodyRelations() (positive, negative []string) {
	for _, l := range c.Body {
		switch val := l.(type) {
		case Atom:
			positive = append(positive, val.Relation)
		case Not:
			negative = append(negative, val.Atom.Relation)
		case Eq, Raw:
		}
	}
	return positive, negative
}
