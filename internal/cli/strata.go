package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// StratumOutput describes one stratum of a program.
type StratumOutput struct {
	Index     int      `json:"index"`
	Relations []string `json:"relations"`
	OneShot   []int    `json:"one_shot"`
	Recursive []int    `json:"recursive"`
}

// StrataOutput is the result of the strata command.
type StrataOutput struct {
	Program string          `json:"program"`
	Clauses []string        `json:"clauses"`
	Strata  []StratumOutput `json:"strata"`
}

// NewStrataCommand creates the strata command.
func NewStrataCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strata <program>",
		Short: "Print the evaluation order of a program",
		Long: `Print the strata a run would evaluate, in order.

Clauses are listed under the stratum of their head relation. One-shot
clauses run on the first round only; recursive clauses cite a relation of
their own stratum and run every round.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStrata(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runStrata(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	ctx := contextOf(cmd)

	s, p, err := load(ctx, opts, path)
	if err != nil {
		return commandError(formatter, "failed to load program", err)
	}
	defer s.Close()

	strata, err := s.engine.Strata()
	if err != nil {
		return formatter.Fail("stratification failed", err)
	}

	clauses := s.engine.Clauses()
	out := StrataOutput{Program: p.Name, Clauses: make([]string, len(clauses))}
	for i, c := range clauses {
		out.Clauses[i] = c.String()
	}
	for _, st := range strata {
		out.Strata = append(out.Strata, StratumOutput{
			Index:     st.Index,
			Relations: st.Relations,
			OneShot:   st.OneShot,
			Recursive: st.Recursive,
		})
	}

	return formatter.Success(out, func(w io.Writer) {
		for _, st := range out.Strata {
			fmt.Fprintf(w, "stratum %d: %s\n", st.Index, strings.Join(st.Relations, ", "))
			for _, i := range st.OneShot {
				fmt.Fprintf(w, "  one-shot  %d: %s\n", i, out.Clauses[i])
			}
			for _, i := range st.Recursive {
				fmt.Fprintf(w, "  recursive %d: %s\n", i, out.Clauses[i])
			}
		}
	})
}
