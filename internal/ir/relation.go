package ir

import (
	"fmt"
	"regexp"
	"strings"
)

// ColumnType is the declared type of a relation column.
type ColumnType string

// Column types accepted by Relation declarations.
const (
	Integer ColumnType = "INTEGER"
	Text    ColumnType = "TEXT"
	Real    ColumnType = "REAL"
	Blob    ColumnType = "BLOB"
	JSON    ColumnType = "JSON" // stored as TEXT, holds structured terms
)

// ValidColumnTypes lists the accepted column types.
var ValidColumnTypes = map[ColumnType]bool{
	Integer: true,
	Text:    true,
	Real:    true,
	Blob:    true,
	JSON:    true,
}

// SQLType returns the storage type for the column.
func (t ColumnType) SQLType() string {
	if t == JSON {
		return string(Text)
	}
	return string(t)
}

// ReservedPrefix is the keyword reserved for internal tables. User
// relation names must not contain it.
const ReservedPrefix = "litelog"

var identifierRe = regexp.MustCompile(`^[_a-zA-Z][_a-zA-Z0-9]*$`)

// ValidIdentifier reports whether s is a valid relation or column
// identifier.
func ValidIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}

// Relation is a relation schema: a name plus an ordered list of column
// types. The schema is fixed on first declaration.
type Relation struct {
	Name  string       `json:"name"`
	Types []ColumnType `json:"types"`
}

// Arity returns the number of columns.
func (r Relation) Arity() int { return len(r.Types) }

// Validate checks the name and column types.
func (r Relation) Validate() error {
	if !ValidIdentifier(r.Name) {
		return fmt.Errorf("invalid relation name %q", r.Name)
	}
	if strings.Contains(strings.ToLower(r.Name), ReservedPrefix) {
		return fmt.Errorf("relation name %q contains reserved keyword %q", r.Name, ReservedPrefix)
	}
	if len(r.Types) == 0 {
		return fmt.Errorf("relation %q must have at least one column", r.Name)
	}
	for i, t := range r.Types {
		if !ValidColumnTypes[t] {
			return fmt.Errorf("relation %q column %d: invalid type %q", r.Name, i, t)
		}
	}
	return nil
}

// Equal reports whether two schemas are identical.
func (r Relation) Equal(other Relation) bool {
	if r.Name != other.Name || len(r.Types) != len(other.Types) {
		return false
	}
	for i := range r.Types {
		if r.Types[i] != other.Types[i] {
			return false
		}
	}
	return true
}

// Atom applies the relation to arguments. Arguments go through T.
// Panics on unsupported argument values.
func (r Relation) Atom(args ...any) Atom {
	return Atom{Relation: r.Name, Args: mustTerms(args...)}
}

func (r Relation) String() string {
	parts := make([]string, len(r.Types))
	for i, t := range r.Types {
		parts[i] = string(t)
	}
	return r.Name + "(" + strings.Join(parts, ", ") + ")"
}

// ParseColumnType parses a column type name, case-insensitively. Besides
// the canonical names it accepts int, string, float and bytes.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INTEGER", "INT":
		return Integer, nil
	case "TEXT", "STRING":
		return Text, nil
	case "REAL", "FLOAT":
		return Real, nil
	case "BLOB", "BYTES":
		return Blob, nil
	case "JSON":
		return JSON, nil
	default:
		return "", fmt.Errorf("unknown column type %q", s)
	}
}
