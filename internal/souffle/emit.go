// Package souffle runs litelog programs on the Soufflé Datalog solver.
//
// The program is written as Soufflé text with one .decl and one sqlite
// .output directive per relation, the solver binary is invoked, and the
// relations it writes are imported back into a Relation Store.
//
// Structured terms (JSON columns, compounds and lists) are not supported.
package souffle

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/roach88/litelog/internal/ir"
)

// soufflé attribute types per column type.
var attributeTypes = map[ir.ColumnType]string{
	ir.Integer: "number",
	ir.Real:    "float",
	ir.Text:    "symbol",
	ir.Blob:    "symbol",
}

// EmitError reports a construct Soufflé cannot express.
type EmitError struct {
	Clause  int // -1 for relation declarations
	Message string
}

func (e *EmitError) Error() string {
	if e.Clause < 0 {
		return "souffle: " + e.Message
	}
	return fmt.Sprintf("souffle: clause %d: %s", e.Clause, e.Message)
}

// Emit writes the program as Soufflé text. Every relation is declared and
// written to the SQLite database at outputDB.
func Emit(w io.Writer, relations []ir.Relation, clauses []ir.Clause, outputDB string) error {
	bw := bufio.NewWriter(w)

	for _, rel := range relations {
		attrs := make([]string, len(rel.Types))
		for i, typ := range rel.Types {
			st, ok := attributeTypes[typ]
			if !ok {
				return &EmitError{Clause: -1, Message: fmt.Sprintf("relation %s column %d: %s columns are not supported", rel.Name, i, typ)}
			}
			attrs[i] = fmt.Sprintf("x%d: %s", i, st)
		}
		fmt.Fprintf(bw, ".decl %s(%s)\n", rel.Name, strings.Join(attrs, ", "))
		fmt.Fprintf(bw, ".output %s(IO=sqlite, filename=%s)\n", rel.Name, strconv.Quote(outputDB))
	}

	for i, c := range clauses {
		text, err := clause(c)
		if err != nil {
			return &EmitError{Clause: i, Message: err.Error()}
		}
		fmt.Fprintln(bw, text)
	}
	return bw.Flush()
}

func clause(c ir.Clause) (string, error) {
	head, err := atom(c.Head)
	if err != nil {
		return "", err
	}
	if c.IsFact() {
		return head + ".", nil
	}

	body := make([]string, len(c.Body))
	for i, l := range c.Body {
		s, err := literal(l)
		if err != nil {
			return "", err
		}
		body[i] = s
	}
	return head + " :- " + strings.Join(body, ", ") + ".", nil
}

func literal(l ir.Literal) (string, error) {
	switch l := l.(type) {
	case ir.Atom:
		return atom(l)
	case ir.Not:
		a, err := atom(l.Atom)
		if err != nil {
			return "", err
		}
		return "!" + a, nil
	case ir.Eq:
		left, err := term(l.Left)
		if err != nil {
			return "", err
		}
		right, err := term(l.Right)
		if err != nil {
			return "", err
		}
		return left + " = " + right, nil
	case ir.Raw:
		return template(l.Template, l.Args)
	default:
		return "", fmt.Errorf("unsupported literal %T", l)
	}
}

func atom(a ir.Atom) (string, error) {
	args := make([]string, len(a.Args))
	for i, t := range a.Args {
		s, err := term(t)
		if err != nil {
			return "", fmt.Errorf("%s argument %d: %w", a.Relation, i, err)
		}
		args[i] = s
	}
	return a.Relation + "(" + strings.Join(args, ", ") + ")", nil
}

func term(t ir.Term) (string, error) {
	switch t := t.(type) {
	case ir.Var:
		return t.Name, nil
	case ir.Const:
		return value(t.Value)
	case ir.Expr:
		s, err := template(t.Template, t.Args)
		if err != nil {
			return "", err
		}
		return "(" + s + ")", nil
	default:
		return "", fmt.Errorf("structured term %s is not supported", t)
	}
}

func value(v ir.Value) (string, error) {
	switch v := v.(type) {
	case ir.Int, ir.Float:
		return v.String(), nil
	case ir.String:
		return strconv.Quote(string(v)), nil
	case ir.Bool:
		if v {
			return "1", nil
		}
		return "0", nil
	default:
		return "", fmt.Errorf("unsupported constant %T", v)
	}
}

// template renders an expression or constraint template. Variables keep
// their names; SQL's <> becomes !=.
func template(text string, args []ir.Value) (string, error) {
	out, err := ir.Substitute(text, func(p ir.Placeholder) (string, error) {
		if p.Name != "" {
			return p.Name, nil
		}
		if p.Arg >= len(args) {
			return "", fmt.Errorf("template %q references missing argument %d", text, p.Arg)
		}
		return value(args[p.Arg])
	})
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(out, "<>", "!="), nil
}
