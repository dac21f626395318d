package harness

import (
	"github.com/roach88/litelog/internal/engine"
	"github.com/roach88/litelog/internal/ir"
)

// Result is the outcome of a scenario.
type Result struct {
	// Scenario is the scenario name.
	Scenario string

	// Pass indicates overall success: the expected error occurred, or the
	// run succeeded and every assertion held.
	Pass bool

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string

	// Err is the error the program failed with, if any.
	Err error

	// Run summarizes the fixpoint run. Zero when the program failed
	// before running.
	Run engine.RunResult

	// Relations holds the committed contents of every relation, rendered
	// as facts, in declaration order.
	Relations []RelationContents

	// Proofs holds the proofs reconstructed by proof assertions, in
	// assertion order.
	Proofs []*ir.Proof
}

// RelationContents is the committed contents of one relation.
type RelationContents struct {
	Name  string
	Facts []string
}

// NewResult creates a new passing result.
func NewResult(scenario string) *Result {
	return &Result{Scenario: scenario, Pass: true}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Facts returns the committed facts of a relation, nil if unknown.
func (r *Result) Facts(relation string) []string {
	for _, rc := range r.Relations {
		if rc.Name == relation {
			return rc.Facts
		}
	}
	return nil
}
