package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/litelog/internal/engine"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	MaxRounds int
	Naive     bool
	Relations []string // relations to print, all when empty
}

// RelationOutput is the committed contents of one relation.
type RelationOutput struct {
	Name  string   `json:"name"`
	Facts []string `json:"facts"`
}

// RunOutput is the result of the run command.
type RunOutput struct {
	RunID          string           `json:"run_id"`
	Program        string           `json:"program"`
	ProgramHash    string           `json:"program_hash"`
	Strategy       string           `json:"strategy"`
	Strata         int              `json:"strata"`
	Rounds         int              `json:"rounds"`
	Facts          int64            `json:"facts"`
	FirstTimestamp int64            `json:"first_timestamp"`
	LastTimestamp  int64            `json:"last_timestamp"`
	Relations      []RelationOutput `json:"relations"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <program>",
		Short: "Evaluate a program to fixpoint",
		Long: `Evaluate a program to fixpoint and print the committed relations.

The program is a CUE program file (or a directory of them) or a file of
Datalog rule text. With a persistent --db, facts from earlier runs are
kept and a rerun only derives what is new.

Examples:
  litelog run ./transitive.cue
  litelog run --db ./facts.db --relation path ./transitive.cue
  litelog run --naive --max-rounds 100 ./counter.dl`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.MaxRounds, "max-rounds", 0, "cap the rounds of each stratum (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.Naive, "naive", false, "use naive instead of semi-naive evaluation")
	cmd.Flags().StringSliceVar(&opts.Relations, "relation", nil, "only print these relations")

	return cmd
}

func runProgram(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	// Cancel between rounds on Ctrl-C
	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extra := []engine.Option{engine.WithMaxRounds(opts.MaxRounds)}
	if opts.Naive {
		extra = append(extra, engine.WithStrategy(engine.Naive))
	}
	s, p, err := load(ctx, opts.RootOptions, path, extra...)
	if err != nil {
		return commandError(formatter, "failed to load program", err)
	}
	defer s.Close()

	res, err := s.engine.Run(ctx)
	if err != nil {
		return formatter.Fail("run failed", err)
	}

	out := RunOutput{
		RunID:          res.RunID,
		Program:        p.Name,
		ProgramHash:    res.ProgramHash,
		Strategy:       res.Strategy.String(),
		Strata:         res.Strata,
		Rounds:         res.Rounds,
		Facts:          res.Facts,
		FirstTimestamp: res.FirstTimestamp,
		LastTimestamp:  res.LastTimestamp,
	}
	out.Relations, err = readRelations(ctx, s.engine, opts.Relations)
	if err != nil {
		return formatter.Fail("failed to read relations", err)
	}

	return formatter.Success(out, func(w io.Writer) {
		fmt.Fprintf(w, "run %s: %d strata, %d rounds, %d new facts\n", out.RunID, out.Strata, out.Rounds, out.Facts)
		writeRelations(w, out.Relations)
	})
}

// readRelations reads the named relations, or every declared relation in
// declaration order when names is empty.
func readRelations(ctx context.Context, eng *engine.Engine, names []string) ([]RelationOutput, error) {
	if len(names) == 0 {
		for _, rel := range eng.Store().Relations() {
			names = append(names, rel.Name)
		}
	}
	out := make([]RelationOutput, 0, len(names))
	for _, name := range names {
		facts, err := eng.Relation(ctx, name)
		if err != nil {
			return nil, err
		}
		ro := RelationOutput{Name: name, Facts: make([]string, len(facts))}
		for i, f := range facts {
			ro.Facts[i] = f.String()
		}
		out = append(out, ro)
	}
	return out, nil
}

func writeRelations(w io.Writer, relations []RelationOutput) {
	for _, r := range relations {
		fmt.Fprintf(w, "\n%s (%d)\n", r.Name, len(r.Facts))
		for _, f := range r.Facts {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
}
