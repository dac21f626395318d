package querysql

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/litelog/internal/ir"
	"github.com/roach88/litelog/internal/queryir"
)

// SQLCompiler compiles QueryIR statements to parameterized SQL for SQLite.
//
// CRITICAL: All values are parameterized (never interpolated). Plan
// parameters are bound by name with sql.Named.
// CRITICAL: Inserts always use INSERT OR IGNORE ... SELECT DISTINCT so a
// relation keeps set semantics.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a statement to SQL plus its arguments.
// The statement is validated first; an invalid plan never reaches SQLite.
func (c *SQLCompiler) Compile(stmt queryir.Statement) (string, []any, error) {
	if err := queryir.Validate(stmt).Err(); err != nil {
		return "", nil, err
	}

	switch s := stmt.(type) {
	case queryir.Insert:
		return c.compileInsert(s)
	case queryir.Select:
		return c.compileSelect(s)
	default:
		return "", nil, fmt.Errorf("unsupported statement type: %T", stmt)
	}
}

// compileInsert renders
//
//	INSERT OR IGNORE INTO <table> SELECT DISTINCT <cols> [FROM ...] [WHERE ...]
//
// Columns are rendered as JSON when the target column is JSON, otherwise
// as scalars.
func (c *SQLCompiler) compileInsert(s queryir.Insert) (string, []any, error) {
	cols := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		m := scalar
		if s.Types[i] == ir.JSON {
			m = jsonMode
		}
		out, err := renderExpr(col, m)
		if err != nil {
			return "", nil, fmt.Errorf("column %d: %w", i, err)
		}
		cols[i] = out
	}

	body, err := renderPlan(s.Plan)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("INSERT OR IGNORE INTO ")
	b.WriteString(TableName(s.Relation, s.Kind))
	b.WriteString(" SELECT DISTINCT ")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(body)
	return b.String(), namedParams(s.Plan.Params), nil
}

// compileSelect renders
//
//	SELECT <cols|1> [FROM ...] [WHERE ...] [ORDER BY ...] [LIMIT n]
//
// Columns are rendered in their natural mode: JSON columns and paths as
// JSON text, everything else as scalars.
func (c *SQLCompiler) compileSelect(s queryir.Select) (string, []any, error) {
	cols := make([]string, 0, len(s.Columns))
	for i, col := range s.Columns {
		out, err := renderExpr(col, natural(col))
		if err != nil {
			return "", nil, fmt.Errorf("column %d: %w", i, err)
		}
		cols = append(cols, out)
	}
	if len(cols) == 0 {
		cols = append(cols, "1")
	}

	body, err := renderPlan(s.Plan)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(body)

	if len(s.OrderBy) > 0 {
		keys := make([]string, len(s.OrderBy))
		for i, o := range s.OrderBy {
			out, err := renderExpr(o, scalar)
			if err != nil {
				return "", nil, fmt.Errorf("order by %d: %w", i, err)
			}
			keys[i] = out + " ASC"
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(keys, ", "))
	}
	if s.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(s.Limit))
	}
	return b.String(), namedParams(s.Plan.Params), nil
}

// renderPlan renders " FROM ... WHERE ..." with leading spaces, omitting
// empty clauses.
func renderPlan(p queryir.Plan) (string, error) {
	var b strings.Builder
	if len(p.From) > 0 {
		b.WriteString(" FROM ")
		b.WriteString(renderFrom(p.From))
	}
	if len(p.Where) > 0 {
		where, err := renderConjunction(p.Where)
		if err != nil {
			return "", err
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	return b.String(), nil
}

func renderFrom(from []queryir.TableRef) string {
	parts := make([]string, len(from))
	for i, t := range from {
		parts[i] = TableName(t.Relation, t.Kind) + " AS " + t.Alias
	}
	return strings.Join(parts, ", ")
}

func renderConjunction(preds []queryir.Predicate) (string, error) {
	parts := make([]string, len(preds))
	for i, p := range preds {
		out, err := renderPredicate(p)
		if err != nil {
			return "", fmt.Errorf("predicate %d: %w", i, err)
		}
		parts[i] = out
	}
	return strings.Join(parts, " AND "), nil
}

// renderPredicate renders one predicate.
// CRITICAL: Values NEVER interpolated - only parameter names appear.
func renderPredicate(p queryir.Predicate) (string, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		// Compare as JSON text whenever either side is JSON valued.
		m := scalar
		if natural(pred.Left) == jsonMode || natural(pred.Right) == jsonMode {
			m = jsonMode
		}
		left, err := renderExpr(pred.Left, m)
		if err != nil {
			return "", err
		}
		right, err := renderExpr(pred.Right, m)
		if err != nil {
			return "", err
		}
		return left + " = " + right, nil

	case queryir.IsArray:
		base, path, err := splitPath(pred.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("json_type(%s, %s) = 'array' AND json_array_length(%s, %s) = %d",
			base, path, base, path, pred.Len), nil

	case queryir.NotExists:
		var b strings.Builder
		b.WriteString("NOT EXISTS (SELECT 1 FROM ")
		b.WriteString(renderFrom(pred.From))
		if len(pred.Where) > 0 {
			where, err := renderConjunction(pred.Where)
			if err != nil {
				return "", err
			}
			b.WriteString(" WHERE ")
			b.WriteString(where)
		}
		b.WriteString(")")
		return b.String(), nil

	case queryir.Check:
		return renderExpr(pred.Cond, scalar)

	case queryir.Before:
		bound, err := renderExpr(pred.Bound, scalar)
		if err != nil {
			return "", err
		}
		return pred.Alias + "." + TimestampColumn + " < " + bound, nil

	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// namedParams converts the constant table to database/sql arguments.
func namedParams(params []queryir.Binding) []any {
	if len(params) == 0 {
		return nil
	}
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = sql.Named(p.Name, p.Value)
	}
	return args
}
