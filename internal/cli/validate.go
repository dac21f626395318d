package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool   `json:"valid"`
	Program   string `json:"program"`
	Relations int    `json:"relations"`
	Clauses   int    `json:"clauses"`
	Strata    int    `json:"strata"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <program>",
		Short: "Check a program without running it",
		Long: `Check a program without evaluating it.

Parses the program, compiles every clause against the declared relations
and stratifies the result. Reports unknown relations, arity mismatches,
unbound variables, unsafe negation and negation through recursion. Always
uses a scratch in-memory database; --db is ignored.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	ctx := contextOf(cmd)

	scratch := *opts
	scratch.Database = ":memory:"
	s, p, err := load(ctx, &scratch, path)
	if err != nil {
		return commandError(formatter, "validation failed", err)
	}
	defer s.Close()

	formatter.VerboseLog("Loaded %d relation(s) and %d clause(s) from %s", len(p.Relations), len(p.Clauses), path)

	strata, err := s.engine.Strata()
	if err != nil {
		return formatter.Fail("validation failed", err)
	}

	result := ValidationResult{
		Valid:     true,
		Program:   p.Name,
		Relations: len(s.store.Relations()),
		Clauses:   len(p.Clauses),
		Strata:    len(strata),
	}
	return formatter.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %s is valid: %d relations, %d clauses, %d strata\n",
			result.Program, result.Relations, result.Clauses, result.Strata)
	})
}
