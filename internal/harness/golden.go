package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result as deterministic text: the run summary, every
// relation's committed facts and every reconstructed proof.
//
// Run ids are omitted; they differ between scenarios run in one process.
func Snapshot(r *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", r.Scenario)
	if r.Err != nil {
		fmt.Fprintf(&b, "error: %s\n", ErrorCode(r.Err))
		return []byte(b.String())
	}
	fmt.Fprintf(&b, "strategy: %s\n", r.Run.Strategy)
	fmt.Fprintf(&b, "strata: %d\n", r.Run.Strata)
	fmt.Fprintf(&b, "rounds: %d\n", r.Run.Rounds)
	fmt.Fprintf(&b, "facts: %d\n", r.Run.Facts)
	for _, rc := range r.Relations {
		fmt.Fprintf(&b, "\n%s (%d)\n", rc.Name, len(rc.Facts))
		for _, f := range rc.Facts {
			fmt.Fprintf(&b, "  %s\n", f)
		}
	}
	for _, p := range r.Proofs {
		b.WriteString("\nproof\n")
		b.WriteString(p.String())
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its snapshot with
// testdata/golden/<name>.golden.
//
// Run with -update to regenerate golden files:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, Options{})
	if err != nil {
		return nil, fmt.Errorf("scenario execution failed: %w", err)
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares a result's snapshot with its golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(result))
}
