package frontend

import (
	"fmt"
	"strings"

	"github.com/google/mangle/ast"
	"github.com/google/mangle/parse"

	"github.com/roach88/litelog/internal/ir"
)

// Rules is the result of parsing rule text.
type Rules struct {
	// Relations declared with Decl ... bound [...], in source order.
	Relations []ir.Relation

	// Clauses in source order. Facts are clauses with an empty body.
	Clauses []ir.Clause
}

// ParseError reports rule text that cannot be translated.
type ParseError struct {
	Clause  int // index of the offending clause, -1 for syntax errors
	Message string
}

func (e *ParseError) Error() string {
	if e.Clause < 0 {
		return "parse: " + e.Message
	}
	return fmt.Sprintf("parse clause %d: %s", e.Clause, e.Message)
}

// ParseRules parses Mangle rule text.
func ParseRules(src string) (*Rules, error) {
	unit, err := parse.Unit(strings.NewReader(src))
	if err != nil {
		return nil, &ParseError{Clause: -1, Message: err.Error()}
	}

	out := &Rules{}
	for _, decl := range unit.Decls {
		rel, ok, err := relationFromDecl(decl)
		if err != nil {
			return nil, &ParseError{Clause: -1, Message: err.Error()}
		}
		if ok {
			out.Relations = append(out.Relations, rel)
		}
	}

	for i, c := range unit.Clauses {
		clause, err := newTranslator().clause(c)
		if err != nil {
			return nil, &ParseError{Clause: i, Message: err.Error()}
		}
		out.Clauses = append(out.Clauses, clause)
	}
	return out, nil
}

// ParseAtom parses a single atom such as path(1, 3). A trailing period is
// optional.
func ParseAtom(src string) (ir.Atom, error) {
	a, err := parse.Atom(strings.TrimSuffix(strings.TrimSpace(src), "."))
	if err != nil {
		return ir.Atom{}, &ParseError{Clause: -1, Message: err.Error()}
	}
	atom, err := newTranslator().atom(a)
	if err != nil {
		return ir.Atom{}, &ParseError{Clause: -1, Message: err.Error()}
	}
	return atom, nil
}

// boundTypes maps Mangle type bounds to column types. Anything else is
// stored as JSON.
var boundTypes = map[string]ir.ColumnType{
	"/number":  ir.Integer,
	"/float64": ir.Real,
	"/string":  ir.Text,
	"/name":    ir.Text,
	"/bytes":   ir.Blob,
}

// relationFromDecl reads a relation schema from a declaration. Package and
// other synthetic declarations are skipped.
func relationFromDecl(d ast.Decl) (ir.Relation, bool, error) {
	name := d.DeclaredAtom.Predicate.Symbol
	if !ir.ValidIdentifier(name) || strings.ToLower(name[:1]) != name[:1] {
		return ir.Relation{}, false, nil
	}

	types := make([]ir.ColumnType, len(d.DeclaredAtom.Args))
	for i := range types {
		types[i] = ir.JSON
	}
	if len(d.Bounds) > 0 {
		bounds := d.Bounds[0].Bounds
		if len(bounds) != len(types) {
			return ir.Relation{}, false, fmt.Errorf("decl %s: %d bounds for %d arguments", name, len(bounds), len(types))
		}
		for i, b := range bounds {
			c, ok := b.(ast.Constant)
			if !ok {
				continue
			}
			if t, ok := boundTypes[c.Symbol]; ok {
				types[i] = t
			}
		}
	}
	return ir.Relation{Name: name, Types: types}, true, nil
}

// translator converts one Mangle clause. It numbers anonymous variables.
type translator struct {
	anon int
}

func newTranslator() *translator {
	return &translator{}
}

func (t *translator) clause(c ast.Clause) (ir.Clause, error) {
	head, err := t.atom(c.Head)
	if err != nil {
		return ir.Clause{}, fmt.Errorf("head: %w", err)
	}

	var body []ir.Literal
	for i, p := range c.Premises {
		lit, err := t.premise(p)
		if err != nil {
			return ir.Clause{}, fmt.Errorf("premise %d: %w", i, err)
		}
		body = append(body, lit)
	}

	for tr := c.Transform; tr != nil; tr = tr.Next {
		for _, stmt := range tr.Statements {
			if stmt.Var == nil {
				return ir.Clause{}, fmt.Errorf("unsupported transform do %s", stmt.Fn.Function.Symbol)
			}
			right, err := t.applyFn(stmt.Fn)
			if err != nil {
				return ir.Clause{}, fmt.Errorf("let %s: %w", stmt.Var.Symbol, err)
			}
			body = append(body, ir.Eq{Left: ir.V(stmt.Var.Symbol), Right: right})
		}
	}
	return ir.Clause{Head: head, Body: body}, nil
}

// comparisons maps Mangle comparison predicates to SQL operators.
var comparisons = map[string]string{
	":lt": "<",
	":le": "<=",
	":gt": ">",
	":ge": ">=",
}

func (t *translator) premise(p ast.Term) (ir.Literal, error) {
	switch p := p.(type) {
	case ast.Atom:
		if op, ok := comparisons[p.Predicate.Symbol]; ok {
			if len(p.Args) != 2 {
				return nil, fmt.Errorf("%s takes 2 arguments, got %d", p.Predicate.Symbol, len(p.Args))
			}
			return t.constraint(p.Args[0], op, p.Args[1])
		}
		if strings.HasPrefix(p.Predicate.Symbol, ":") {
			return nil, fmt.Errorf("unsupported builtin %s", p.Predicate.Symbol)
		}
		return t.atom(p)
	case ast.NegAtom:
		a, err := t.atom(p.Atom)
		if err != nil {
			return nil, err
		}
		return ir.Neg(a), nil
	case ast.Eq:
		left, err := t.term(p.Left)
		if err != nil {
			return nil, err
		}
		right, err := t.term(p.Right)
		if err != nil {
			return nil, err
		}
		return ir.Eq{Left: left, Right: right}, nil
	case ast.Ineq:
		return t.constraint(p.Left, "<>", p.Right)
	default:
		return nil, fmt.Errorf("unsupported premise %T", p)
	}
}

func (t *translator) atom(a ast.Atom) (ir.Atom, error) {
	args := make([]ir.Term, len(a.Args))
	for i, arg := range a.Args {
		term, err := t.term(arg)
		if err != nil {
			return ir.Atom{}, fmt.Errorf("%s argument %d: %w", a.Predicate.Symbol, i, err)
		}
		args[i] = term
	}
	return ir.Atom{Relation: a.Predicate.Symbol, Args: args}, nil
}

func (t *translator) term(b ast.BaseTerm) (ir.Term, error) {
	switch b := b.(type) {
	case ast.Variable:
		return t.variable(b), nil
	case ast.Constant:
		v, err := constant(b)
		if err != nil {
			return nil, err
		}
		return ir.Const{Value: v}, nil
	case ast.ApplyFn:
		return t.applyFn(b)
	default:
		return nil, fmt.Errorf("unsupported term %T", b)
	}
}

func (t *translator) variable(v ast.Variable) ir.Var {
	if v.Symbol == "_" {
		name := fmt.Sprintf("_%d", t.anon)
		t.anon++
		return ir.V(name)
	}
	return ir.V(v.Symbol)
}

// arithmetic maps Mangle arithmetic functions to SQL operators.
var arithmetic = map[string]string{
	"fn:plus":  "+",
	"fn:minus": "-",
	"fn:mult":  "*",
	"fn:div":   "/",
}

func (t *translator) applyFn(fn ast.ApplyFn) (ir.Term, error) {
	name := fn.Function.Symbol
	if _, ok := arithmetic[name]; ok {
		var args []ir.Value
		text, err := t.scalar(fn, &args, true)
		if err != nil {
			return nil, err
		}
		return ir.Expr{Template: text, Args: args}, nil
	}

	args := make([]ir.Term, len(fn.Args))
	for i, a := range fn.Args {
		term, err := t.term(a)
		if err != nil {
			return nil, fmt.Errorf("%s argument %d: %w", name, i, err)
		}
		args[i] = term
	}
	if name == "fn:list" {
		return ir.List{Elems: args}, nil
	}
	functor := strings.TrimPrefix(name, "fn:")
	if !ir.ValidIdentifier(functor) {
		return nil, fmt.Errorf("unsupported function %s", name)
	}
	return ir.Compound{Functor: functor, Args: args}, nil
}

// scalar renders a variable, constant or arithmetic term as an expression
// template. Constants are appended to args and referenced as {$N}.
func (t *translator) scalar(b ast.BaseTerm, args *[]ir.Value, top bool) (string, error) {
	switch b := b.(type) {
	case ast.Variable:
		if b.Symbol == "_" {
			return "", fmt.Errorf("_ cannot appear in an expression")
		}
		return "{" + b.Symbol + "}", nil
	case ast.Constant:
		v, err := constant(b)
		if err != nil {
			return "", err
		}
		*args = append(*args, v)
		return fmt.Sprintf("{$%d}", len(*args)-1), nil
	case ast.ApplyFn:
		op, ok := arithmetic[b.Function.Symbol]
		if !ok {
			return "", fmt.Errorf("%s cannot appear in an expression", b.Function.Symbol)
		}
		parts := make([]string, len(b.Args))
		for i, a := range b.Args {
			p, err := t.scalar(a, args, false)
			if err != nil {
				return "", err
			}
			parts[i] = p
		}
		var text string
		switch len(parts) {
		case 0:
			return "", fmt.Errorf("%s needs arguments", b.Function.Symbol)
		case 1:
			if op != "-" {
				return parts[0], nil
			}
			text = "-" + parts[0]
		default:
			text = strings.Join(parts, " "+op+" ")
		}
		if !top {
			text = "(" + text + ")"
		}
		return text, nil
	default:
		return "", fmt.Errorf("unsupported term %T", b)
	}
}

func (t *translator) constraint(left ast.BaseTerm, op string, right ast.BaseTerm) (ir.Literal, error) {
	var args []ir.Value
	l, err := t.scalar(left, &args, true)
	if err != nil {
		return nil, err
	}
	r, err := t.scalar(right, &args, true)
	if err != nil {
		return nil, err
	}
	return ir.Raw{Template: l + " " + op + " " + r, Args: args}, nil
}

func constant(c ast.Constant) (ir.Value, error) {
	switch c.Type {
	case ast.NumberType:
		return ir.Int(c.NumValue), nil
	case ast.Float64Type:
		f, err := c.Float64Value()
		if err != nil {
			return nil, err
		}
		return ir.Float(f), nil
	case ast.StringType, ast.NameType, ast.BytesType:
		return ir.String(c.Symbol), nil
	default:
		return nil, fmt.Errorf("unsupported constant %s", c)
	}
}
