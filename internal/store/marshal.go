package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/litelog/internal/ir"
	"github.com/roach88/litelog/internal/querysql"
)

// marshalTypes converts column types to JSON TEXT for the catalog.
func marshalTypes(types []ir.ColumnType) (string, error) {
	data, err := json.Marshal(types)
	if err != nil {
		return "", fmt.Errorf("marshal types: %w", err)
	}
	return string(data), nil
}

// unmarshalTypes parses catalog JSON TEXT back into column types.
func unmarshalTypes(data string) ([]ir.ColumnType, error) {
	var types []ir.ColumnType
	if err := json.Unmarshal([]byte(data), &types); err != nil {
		return nil, fmt.Errorf("unmarshal types: %w", err)
	}
	return types, nil
}

// factArgs binds the arguments of a ground fact as :x0, :x1, ...
func factArgs(rel ir.Relation, fact ir.Atom) ([]any, error) {
	if len(fact.Args) != rel.Arity() {
		return nil, fmt.Errorf("%s has arity %d, got %d arguments", rel.Name, rel.Arity(), len(fact.Args))
	}
	args := make([]any, len(fact.Args))
	for i, t := range fact.Args {
		v, err := ir.ColumnParam(t, rel.Types[i])
		if err != nil {
			return nil, fmt.Errorf("%s argument %d: %w", rel.Name, i, err)
		}
		args[i] = sql.Named(querysql.ColumnName(i), v)
	}
	return args, nil
}

// factFromRow decodes the first arity values of a scanned row.
func factFromRow(rel ir.Relation, row []any) (ir.Atom, error) {
	if len(row) < rel.Arity() {
		return ir.Atom{}, fmt.Errorf("%s: row has %d columns, want %d", rel.Name, len(row), rel.Arity())
	}
	args := make([]ir.Term, rel.Arity())
	for i, typ := range rel.Types {
		t, err := ir.FromColumn(row[i], typ)
		if err != nil {
			return ir.Atom{}, fmt.Errorf("%s column %d: %w", rel.Name, i, err)
		}
		args[i] = t
	}
	return ir.Atom{Relation: rel.Name, Args: args}, nil
}
