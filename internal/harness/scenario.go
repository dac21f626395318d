package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: a program, how to run it,
// and assertions over the committed relations and proofs.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is the path of a CUE program file, relative to the scenario
	// file.
	Program string `yaml:"program,omitempty"`

	// Rules is Mangle rule text, applied after Program. May declare
	// relations with Decl ... bound [...].
	Rules string `yaml:"rules,omitempty"`

	// Strategy is "semi-naive" (default) or "naive".
	Strategy string `yaml:"strategy,omitempty"`

	// MaxRounds caps the rounds of each stratum. 0 means unlimited.
	MaxRounds int `yaml:"max_rounds,omitempty"`

	// ExpectError is the error code the scenario must fail with, such as
	// UNSTRATIFIABLE or ROUND_LIMIT. Assertions are not evaluated when set.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions validate the committed relations and proofs.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates the outcome of a run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Relation names the relation (relation_equals, count).
	Relation string `yaml:"relation,omitempty"`

	// Tuples is the exact expected contents (relation_equals). Order does
	// not matter.
	Tuples [][]any `yaml:"tuples,omitempty"`

	// Count is the expected number of facts (count).
	Count int `yaml:"count,omitempty"`

	// Fact is an atom in rule syntax, such as "path(1, 3)" (contains,
	// not_contains, proof).
	Fact string `yaml:"fact,omitempty"`

	// Rule is the expected root rule index of the proof (proof). Unchecked
	// when omitted.
	Rule *int `yaml:"rule,omitempty"`

	// Depth is the expected height of the proof tree (proof). 0 means
	// unchecked.
	Depth int `yaml:"depth,omitempty"`
}

// Assertion type constants.
const (
	AssertRelationEquals = "relation_equals"
	AssertCount          = "count"
	AssertContains       = "contains"
	AssertNotContains    = "not_contains"
	AssertProof          = "proof"
)

// LoadScenario reads and parses a scenario YAML file. The program path is
// resolved relative to the scenario file. Returns an error if the file
// doesn't exist, is malformed, contains unknown fields (typos), or is
// missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Program != "" && !filepath.IsAbs(scenario.Program) {
		scenario.Program = filepath.Join(filepath.Dir(path), scenario.Program)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Program == "" && s.Rules == "" {
		return fmt.Errorf("program or rules is required")
	}
	if s.Program != "" {
		if _, err := os.Stat(s.Program); os.IsNotExist(err) {
			return fmt.Errorf("program file not found: %s", s.Program)
		}
	}
	switch s.Strategy {
	case "", "semi-naive", "naive":
	default:
		return fmt.Errorf("unknown strategy %q", s.Strategy)
	}
	if s.MaxRounds < 0 {
		return fmt.Errorf("max_rounds must be non-negative")
	}
	if s.ExpectError == "" && len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required unless expect_error is set")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertRelationEquals:
		if a.Relation == "" {
			return fmt.Errorf("assertions[%d]: relation is required for relation_equals", index)
		}
	case AssertCount:
		if a.Relation == "" {
			return fmt.Errorf("assertions[%d]: relation is required for count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertContains, AssertNotContains, AssertProof:
		if a.Fact == "" {
			return fmt.Errorf("assertions[%d]: fact is required for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
