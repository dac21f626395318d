package engine

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/litelog/internal/ir"
)

// RuntimeError represents an error detected by the engine outside of
// clause compilation.
//
// Runtime errors include:
//   - No derivation: no rule instance explains a fact before a timestamp
//   - Not ground: a fact or explained atom contains variables or expressions
//   - Round limit: a stratum did not converge within the configured rounds
//
// RuntimeError includes structured fields for diagnostics.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Relation identifies the affected relation, if any.
	Relation string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeNoDerivation indicates provenance reconstruction failed.
	ErrCodeNoDerivation RuntimeErrorCode = "NO_DERIVATION"

	// ErrCodeNotGround indicates an atom that must be ground is not.
	ErrCodeNotGround RuntimeErrorCode = "NOT_GROUND"

	// ErrCodeRoundLimit indicates a stratum exceeded the round quota.
	ErrCodeRoundLimit RuntimeErrorCode = "ROUND_LIMIT"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Relation != "" {
		return fmt.Sprintf("%s: %s (relation=%s)", e.Code, e.Message, e.Relation)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsNoDerivation returns true if the error is a provenance failure.
// Uses errors.As to handle wrapped errors.
func IsNoDerivation(err error) bool {
	return hasCode(err, ErrCodeNoDerivation)
}

// IsNotGround returns true if the error reports a non-ground atom.
func IsNotGround(err error) bool {
	return hasCode(err, ErrCodeNotGround)
}

// IsRoundLimit returns true if the error reports an exceeded round quota.
func IsRoundLimit(err error) bool {
	return hasCode(err, ErrCodeRoundLimit)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// NewNoDerivationError creates a RuntimeError for a fact no rule explains
// with facts committed before bound.
func NewNoDerivationError(fact ir.Atom, bound int64, reason string) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeNoDerivation,
		Message:  fmt.Sprintf("%s: %s", fact, reason),
		Relation: fact.Relation,
		Details: map[string]string{
			"fact":  fact.String(),
			"bound": strconv.FormatInt(bound, 10),
		},
	}
}

// NewNotGroundError creates a RuntimeError for an atom with variables.
func NewNotGroundError(a ir.Atom) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeNotGround,
		Message:  fmt.Sprintf("%s is not ground", a),
		Relation: a.Relation,
	}
}

// NewRoundLimitError creates a RuntimeError for a stratum that did not
// converge within limit rounds.
func NewRoundLimitError(stratum int, relations []string, limit int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeRoundLimit,
		Message: fmt.Sprintf("stratum %d %v did not converge within %d rounds", stratum, relations, limit),
		Details: map[string]string{
			"stratum":    strconv.Itoa(stratum),
			"max_rounds": strconv.Itoa(limit),
		},
	}
}
