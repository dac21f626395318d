package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/litelog/internal/ir"
)

// ErrUnknownRelation is returned when a relation was never declared.
var ErrUnknownRelation = errors.New("unknown relation")

// DeclarationError reports an invalid relation declaration: a bad name or
// column type, or a redeclaration whose schema differs from the first one.
type DeclarationError struct {
	Relation ir.Relation
	Existing *ir.Relation // set on schema mismatch
	Err      error
}

func (e *DeclarationError) Error() string {
	if e.Existing != nil {
		return fmt.Sprintf("declare %s: already declared as %s", e.Relation, e.Existing)
	}
	return fmt.Sprintf("declare %s: %v", e.Relation, e.Err)
}

func (e *DeclarationError) Unwrap() error { return e.Err }

// ExecError reports a statement rejected by SQLite. It carries the
// statement and its parameters so the failure can be reproduced.
type ExecError struct {
	Statement string
	Params    []any
	Err       error
}

func (e *ExecError) Error() string {
	if len(e.Params) == 0 {
		return fmt.Sprintf("execute %q: %v", e.Statement, e.Err)
	}
	return fmt.Sprintf("execute %q with %s: %v", e.Statement, formatParams(e.Params), e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// IsDeclarationError reports whether err is a DeclarationError.
func IsDeclarationError(err error) bool {
	var de *DeclarationError
	return errors.As(err, &de)
}

// IsExecError reports whether err is an ExecError.
func IsExecError(err error) bool {
	var ee *ExecError
	return errors.As(err, &ee)
}

func formatParams(params []any) string {
	parts := make([]string, len(params))
	for i, p := range params {
		if named, ok := p.(sql.NamedArg); ok {
			parts[i] = fmt.Sprintf(":%s=%#v", named.Name, named.Value)
			continue
		}
		parts[i] = fmt.Sprintf("%#v", p)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
