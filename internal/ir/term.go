package ir

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Term is a sealed interface over the argument forms an atom can carry.
// Only Var, Const, Compound, List, and Expr implement it.
type Term interface {
	term() // Sealed - only these types implement it
	String() string
}

// Var is a logical variable. Its scope is the single clause it appears in.
type Var struct {
	Name string
}

func (Var) term() {}

func (v Var) String() string { return v.Name }

// Const is a scalar constant.
type Const struct {
	Value Value
}

func (Const) term() {}

func (c Const) String() string {
	if c.Value == nil {
		return "<nil>"
	}
	return c.Value.String()
}

// Compound is a functor applied to an ordered list of terms.
// Stored as {"functor":[args...]} in JSON columns.
type Compound struct {
	Functor string
	Args    []Term
}

func (Compound) term() {}

func (c Compound) String() string {
	return c.Functor + "(" + joinTerms(c.Args) + ")"
}

// List is an ordered sequence of terms with a fixed length.
// Stored as a JSON array in JSON columns.
type List struct {
	Elems []Term
}

func (List) term() {}

func (l List) String() string {
	return "[" + joinTerms(l.Elems) + "]"
}

// Expr is a scalar expression evaluated by the relational backend.
//
// Template references body variables as {name} and positional constants
// as {$N}, where N indexes Args. The query compiler substitutes resolved
// column expressions and bound parameters; values never reach the query
// text.
type Expr struct {
	Template string
	Args     []Value
}

func (Expr) term() {}

func (e Expr) String() string {
	return renderTemplate(e.Template, e.Args)
}

// Vars returns the variable names referenced by the template, in order of
// first appearance.
func (e Expr) Vars() []string {
	return templateVars(e.Template)
}

var placeholderRe = regexp.MustCompile(`\{(\$[0-9]+|[_a-zA-Z][_a-zA-Z0-9]*)\}`)

// Placeholder is one {name} or {$N} reference inside a template.
type Placeholder struct {
	Start, End int    // byte offsets of the braces
	Name       string // variable name, empty for positional arguments
	Arg        int    // positional index, -1 for variables
}

// Placeholders scans a template for variable and argument references.
func Placeholders(template string) []Placeholder {
	matches := placeholderRe.FindAllStringSubmatchIndex(template, -1)
	out := make([]Placeholder, 0, len(matches))
	for _, m := range matches {
		ref := template[m[2]:m[3]]
		p := Placeholder{Start: m[0], End: m[1], Arg: -1}
		if strings.HasPrefix(ref, "$") {
			n, err := strconv.Atoi(ref[1:])
			if err != nil {
				continue
			}
			p.Arg = n
		} else {
			p.Name = ref
		}
		out = append(out, p)
	}
	return out
}

// Substitute rewrites every placeholder through fn.
func Substitute(template string, fn func(Placeholder) (string, error)) (string, error) {
	var b strings.Builder
	last := 0
	for _, p := range Placeholders(template) {
		b.WriteString(template[last:p.Start])
		s, err := fn(p)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
		last = p.End
	}
	b.WriteString(template[last:])
	return b.String(), nil
}

func templateVars(template string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, p := range Placeholders(template) {
		if p.Name == "" || seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		names = append(names, p.Name)
	}
	return names
}

func renderTemplate(template string, args []Value) string {
	s, _ := Substitute(template, func(p Placeholder) (string, error) {
		if p.Name != "" {
			return p.Name, nil
		}
		if p.Arg < len(args) {
			return args[p.Arg].String(), nil
		}
		return "{$" + strconv.Itoa(p.Arg) + "}", nil
	})
	return s
}

func joinTerms(ts []Term) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// V returns a variable term.
func V(name string) Var { return Var{Name: name} }

// Vars splits a space separated list of names into variables.
//
//	vs := ir.Vars("x y z") // vs[0] is x
func Vars(names string) []Var {
	fields := strings.Fields(names)
	out := make([]Var, len(fields))
	for i, f := range fields {
		out[i] = Var{Name: f}
	}
	return out
}

// T converts a Go value into a Term.
// Terms pass through; []any becomes a List; scalars become constants.
func T(v any) (Term, error) {
	switch val := v.(type) {
	case Term:
		return val, nil
	case []any:
		elems := make([]Term, len(val))
		for i, e := range val {
			t, err := T(e)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			elems[i] = t
		}
		return List{Elems: elems}, nil
	case []Term:
		return List{Elems: val}, nil
	default:
		value, err := ValueOf(v)
		if err != nil {
			return nil, err
		}
		return Const{Value: value}, nil
	}
}

// MustT is T that panics on unsupported values. For literals in tests and
// program construction where the input is static.
func MustT(v any) Term {
	t, err := T(v)
	if err != nil {
		panic(err)
	}
	return t
}

// Terms converts each value with T.
func Terms(vs ...any) ([]Term, error) {
	out := make([]Term, len(vs))
	for i, v := range vs {
		t, err := T(v)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = t
	}
	return out, nil
}

func mustTerms(vs ...any) []Term {
	ts, err := Terms(vs...)
	if err != nil {
		panic(err)
	}
	return ts
}

// Fn builds a compound term.
func Fn(functor string, args ...any) Compound {
	return Compound{Functor: functor, Args: mustTerms(args...)}
}

// L builds a list term.
func L(elems ...any) List {
	return List{Elems: mustTerms(elems...)}
}

// E builds an expression term. Args fill the {$N} placeholders.
func E(template string, args ...any) Expr {
	return Expr{Template: template, Args: mustValues(args...)}
}

func mustValues(vs ...any) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		val, err := ValueOf(v)
		if err != nil {
			panic(fmt.Sprintf("argument %d: %v", i, err))
		}
		out[i] = val
	}
	return out
}

// IsGround reports whether t contains no variables.
func IsGround(t Term) bool {
	switch val := t.(type) {
	case Var:
		return false
	case Const:
		return true
	case Compound:
		for _, a := range val.Args {
			if !IsGround(a) {
				return false
			}
		}
		return true
	case List:
		for _, e := range val.Elems {
			if !IsGround(e) {
				return false
			}
		}
		return true
	case Expr:
		return false
	default:
		return false
	}
}

// TermVars appends the names of all variables in t to dst.
func TermVars(dst []string, t Term) []string {
	switch val := t.(type) {
	case Var:
		return append(dst, val.Name)
	case Compound:
		for _, a := range val.Args {
			dst = TermVars(dst, a)
		}
	case List:
		for _, e := range val.Elems {
			dst = TermVars(dst, e)
		}
	case Expr:
		dst = append(dst, val.Vars()...)
	}
	return dst
}

// IsStructured reports whether t must live in a JSON column.
func IsStructured(t Term) bool {
	switch t.(type) {
	case Compound, List:
		return true
	}
	return false
}
