package compiler

import (
	"errors"
	"fmt"
)

// Compile error codes.
const (
	// ErrUnknownRelation: an atom cites a relation that was never declared.
	ErrUnknownRelation = "UNKNOWN_RELATION"

	// ErrArityMismatch: an atom's argument count differs from its schema.
	ErrArityMismatch = "ARITY_MISMATCH"

	// ErrUnboundVariable: a head, constraint, or expression variable is not
	// bound by a positive body atom or equality.
	ErrUnboundVariable = "UNBOUND_VARIABLE"

	// ErrUnsafeNegation: a variable bound only inside a negated atom is used
	// outside of it.
	ErrUnsafeNegation = "UNSAFE_NEGATION"

	// ErrUnstratifiable: negation participates in a recursive cycle.
	ErrUnstratifiable = "UNSTRATIFIABLE"

	// ErrInvalidTerm: a term cannot be stored in or matched against its
	// column (structured term in a scalar column, bad functor, missing
	// template argument).
	ErrInvalidTerm = "INVALID_TERM"
)

// CompileError reports a clause that cannot be compiled.
// Rule is the clause index in assertion order, -1 when the error concerns
// the program as a whole.
type CompileError struct {
	Code    string
	Rule    int
	Message string
}

func (e *CompileError) Error() string {
	if e.Rule < 0 {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] rule %d: %s", e.Code, e.Rule, e.Message)
}

func newError(code string, rule int, format string, args ...any) *CompileError {
	return &CompileError{Code: code, Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// IsCompileError checks if err is a CompileError with the given code.
// An empty code matches any CompileError.
func IsCompileError(err error, code string) bool {
	var ce *CompileError
	if !errors.As(err, &ce) {
		return false
	}
	return code == "" || ce.Code == code
}
