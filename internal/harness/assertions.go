package harness

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/litelog/internal/engine"
	"github.com/roach88/litelog/internal/frontend"
	"github.com/roach88/litelog/internal/ir"
)

// EvaluateAssertions checks every assertion against a converged engine and
// returns one message per failure. Proofs reconstructed along the way are
// appended to result.Proofs.
func EvaluateAssertions(ctx context.Context, eng *engine.Engine, assertions []Assertion, result *Result) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluateAssertion(ctx, eng, a, result); err != nil {
			failures = append(failures, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return failures
}

func evaluateAssertion(ctx context.Context, eng *engine.Engine, a Assertion, result *Result) error {
	switch a.Type {
	case AssertRelationEquals:
		return assertRelationEquals(result, a)
	case AssertCount:
		return assertCount(result, a)
	case AssertContains:
		return assertContains(ctx, eng, a.Fact, true)
	case AssertNotContains:
		return assertContains(ctx, eng, a.Fact, false)
	case AssertProof:
		return assertProof(ctx, eng, a, result)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertRelationEquals compares rendered facts, so a tuple matches when
// its terms print the same as the committed ones.
func assertRelationEquals(result *Result, a Assertion) error {
	if !hasRelation(result, a.Relation) {
		return fmt.Errorf("unknown relation %s", a.Relation)
	}
	want := make([]string, len(a.Tuples))
	for i, tuple := range a.Tuples {
		args := make([]ir.Term, len(tuple))
		for j, v := range tuple {
			t, err := tupleTerm(v)
			if err != nil {
				return fmt.Errorf("tuples[%d][%d]: %w", i, j, err)
			}
			args[j] = t
		}
		want[i] = ir.Atom{Relation: a.Relation, Args: args}.String()
	}
	got := append([]string(nil), result.Facts(a.Relation)...)
	sort.Strings(want)
	sort.Strings(got)
	if diff := cmp.Diff(want, got); diff != "" {
		return fmt.Errorf("%s mismatch (-want +got):\n%s", a.Relation, diff)
	}
	return nil
}

func assertCount(result *Result, a Assertion) error {
	if !hasRelation(result, a.Relation) {
		return fmt.Errorf("unknown relation %s", a.Relation)
	}
	if got := len(result.Facts(a.Relation)); got != a.Count {
		return fmt.Errorf("%s has %d facts, expected %d", a.Relation, got, a.Count)
	}
	return nil
}

func assertContains(ctx context.Context, eng *engine.Engine, src string, want bool) error {
	fact, err := frontend.ParseAtom(src)
	if err != nil {
		return err
	}
	got, err := eng.Contains(ctx, fact)
	if err != nil {
		return err
	}
	if got != want {
		if want {
			return fmt.Errorf("%s is not committed", fact)
		}
		return fmt.Errorf("%s is committed", fact)
	}
	return nil
}

func assertProof(ctx context.Context, eng *engine.Engine, a Assertion, result *Result) error {
	fact, err := frontend.ParseAtom(a.Fact)
	if err != nil {
		return err
	}
	proof, err := eng.Explain(ctx, fact)
	if err != nil {
		return err
	}
	result.Proofs = append(result.Proofs, proof)
	if a.Rule != nil && proof.Rule != *a.Rule {
		return fmt.Errorf("%s derived by rule %d, expected rule %d", fact, proof.Rule, *a.Rule)
	}
	if a.Depth > 0 && proof.Depth() != a.Depth {
		return fmt.Errorf("proof of %s has depth %d, expected %d", fact, proof.Depth(), a.Depth)
	}
	return nil
}

func hasRelation(result *Result, name string) bool {
	for _, rc := range result.Relations {
		if rc.Name == name {
			return true
		}
	}
	return false
}

// tupleTerm converts a decoded YAML value into a ground term. A mapping
// with a single key is a compound term: {succ: [1]} is succ(1).
func tupleTerm(v any) (ir.Term, error) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) != 1 {
			return nil, fmt.Errorf("compound term must have exactly one key")
		}
		for functor, raw := range val {
			list, ok := raw.([]any)
			if !ok {
				return nil, fmt.Errorf("arguments of %s must be a list", functor)
			}
			args := make([]ir.Term, len(list))
			for i, e := range list {
				t, err := tupleTerm(e)
				if err != nil {
					return nil, err
				}
				args[i] = t
			}
			return ir.Compound{Functor: functor, Args: args}, nil
		}
	case []any:
		elems := make([]ir.Term, len(val))
		for i, e := range val {
			t, err := tupleTerm(e)
			if err != nil {
				return nil, err
			}
			elems[i] = t
		}
		return ir.List{Elems: elems}, nil
	}
	return ir.T(v)
}
