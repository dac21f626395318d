package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/litelog/internal/ir"
	"github.com/roach88/litelog/internal/queryir"
)

// mode is the representation an expression is rendered in.
type mode int

const (
	scalar   mode = iota // SQL scalar value
	jsonMode             // JSON text
)

// natural returns the representation an expression has without any
// conversion.
func natural(e queryir.Expr) mode {
	switch expr := e.(type) {
	case queryir.Column:
		if expr.Type == ir.JSON {
			return jsonMode
		}
	case queryir.Path, queryir.Construct:
		return jsonMode
	case queryir.Param:
		if expr.JSON {
			return jsonMode
		}
	}
	return scalar
}

// renderExpr renders e in mode m.
//
// Conversions:
//
//	Column JSON       scalar: (t.x0 ->> '$')     json: t.x0
//	Column other      scalar: t.x0               json: json_quote(t.x0)
//	Path              scalar: (b ->> '$.k[0]')   json: (b -> '$.k[0]')
//	Param JSON        scalar: (json(:p) ->> '$') json: json(:p)
//	Param other       scalar: :p                 json: json_quote(:p)
//	Template          scalar: (...)              json: json_quote((...))
//	Construct         json_object('f', json_array(...)) or json_array(...)
func renderExpr(e queryir.Expr, m mode) (string, error) {
	switch expr := e.(type) {
	case queryir.Column:
		col := expr.Alias + "." + ColumnName(expr.Index)
		switch {
		case expr.Type == ir.JSON && m == scalar:
			return "(" + col + " ->> '$')", nil
		case expr.Type != ir.JSON && m == jsonMode:
			return "json_quote(" + col + ")", nil
		}
		return col, nil

	case queryir.Timestamp:
		col := expr.Alias + "." + TimestampColumn
		if m == jsonMode {
			return "json_quote(" + col + ")", nil
		}
		return col, nil

	case queryir.Path:
		base, path, err := splitPath(expr)
		if err != nil {
			return "", err
		}
		if m == scalar {
			return "(" + base + " ->> " + path + ")", nil
		}
		return "(" + base + " -> " + path + ")", nil

	case queryir.Param:
		p := ":" + expr.Name
		switch {
		case expr.JSON && m == scalar:
			return "(json(" + p + ") ->> '$')", nil
		case expr.JSON:
			return "json(" + p + ")", nil
		case m == jsonMode:
			return "json_quote(" + p + ")", nil
		}
		return p, nil

	case queryir.Template:
		var b strings.Builder
		b.WriteString("(")
		for i, part := range expr.Parts {
			b.WriteString(part)
			if i < len(expr.Args) {
				arg, err := renderExpr(expr.Args[i], scalar)
				if err != nil {
					return "", err
				}
				b.WriteString(arg)
			}
		}
		b.WriteString(")")
		if m == jsonMode {
			return "json_quote(" + b.String() + ")", nil
		}
		return b.String(), nil

	case queryir.Construct:
		elems := make([]string, len(expr.Elems))
		for i, el := range expr.Elems {
			out, err := renderElement(el)
			if err != nil {
				return "", err
			}
			elems[i] = out
		}
		arr := "json_array(" + strings.Join(elems, ", ") + ")"
		if expr.Functor == "" {
			return arr, nil
		}
		if !ir.ValidIdentifier(expr.Functor) {
			return "", fmt.Errorf("invalid functor %q", expr.Functor)
		}
		return "json_object('" + expr.Functor + "', " + arr + ")", nil

	default:
		return "", fmt.Errorf("unsupported expression type: %T", e)
	}
}

// renderElement renders an element of a constructed JSON value. JSON
// valued elements are wrapped in json() so they nest as values instead of
// strings; scalars are passed as is.
func renderElement(e queryir.Expr) (string, error) {
	if natural(e) == jsonMode {
		out, err := renderExpr(e, jsonMode)
		if err != nil {
			return "", err
		}
		if _, ok := e.(queryir.Construct); ok {
			return out, nil
		}
		return "json(" + out + ")", nil
	}
	return renderExpr(e, scalar)
}

// splitPath returns the JSON base expression and the quoted JSON path for
// a Path, Column or Param.
func splitPath(e queryir.Expr) (string, string, error) {
	steps := []queryir.PathStep(nil)
	base := e
	if p, ok := e.(queryir.Path); ok {
		// Flatten nested paths onto one base.
		for {
			inner, ok := p.Base.(queryir.Path)
			if !ok {
				break
			}
			p = queryir.Path{Base: inner.Base, Steps: append(append([]queryir.PathStep(nil), inner.Steps...), p.Steps...)}
		}
		base = p.Base
		steps = p.Steps
	}

	b, err := renderExpr(base, jsonMode)
	if err != nil {
		return "", "", err
	}
	path, err := jsonPath(steps)
	if err != nil {
		return "", "", err
	}
	return b, path, nil
}

// jsonPath renders steps as a quoted SQLite JSON path literal.
// Keys must be identifiers so no quoting is ever needed inside the path.
func jsonPath(steps []queryir.PathStep) (string, error) {
	var b strings.Builder
	b.WriteString("'$")
	for _, s := range steps {
		if s.Key != "" {
			if !ir.ValidIdentifier(s.Key) {
				return "", fmt.Errorf("invalid JSON path key %q", s.Key)
			}
			b.WriteString(".")
			b.WriteString(s.Key)
			continue
		}
		if s.Index < 0 {
			return "", fmt.Errorf("negative JSON path index %d", s.Index)
		}
		b.WriteString("[")
		b.WriteString(strconv.Itoa(s.Index))
		b.WriteString("]")
	}
	b.WriteString("'")
	return b.String(), nil
}
