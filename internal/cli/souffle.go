package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/litelog/internal/souffle"
)

// SouffleOptions holds flags for the souffle command.
type SouffleOptions struct {
	*RootOptions
	Exec      string
	Jobs      int
	Emit      bool // print the translated program and stop
	Relations []string
}

// SouffleOutput is the result of the souffle command.
type SouffleOutput struct {
	Program   string           `json:"program"`
	Timestamp int64            `json:"timestamp"`
	Facts     int64            `json:"facts"`
	Relations []RelationOutput `json:"relations"`
}

// NewSouffleCommand creates the souffle command.
func NewSouffleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SouffleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "souffle <program>",
		Short: "Evaluate a program with the Soufflé solver",
		Long: `Translate a program to Soufflé, run the souffle binary and import
its output into the database at one fresh timestamp.

Programs over structured terms cannot be translated. With --emit the
translated program is printed instead of run.

Examples:
  litelog souffle ./transitive.cue
  litelog souffle --emit ./transitive.cue
  litelog souffle --exec /opt/souffle/bin/souffle --jobs 8 --db ./facts.db ./big.dl`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSouffle(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Exec, "exec", souffle.DefaultExec, "souffle binary")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 0, "parallel jobs passed to souffle (0 = souffle default)")
	cmd.Flags().BoolVar(&opts.Emit, "emit", false, "print the translated program instead of running it")
	cmd.Flags().StringSliceVar(&opts.Relations, "relation", nil, "only print these relations")

	return cmd
}

func runSouffle(opts *SouffleOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := contextOf(cmd)

	if opts.Emit {
		p, err := LoadProgram(path)
		if err != nil {
			return commandError(formatter, "failed to load program", err)
		}
		if err := souffle.Emit(cmd.OutOrStdout(), p.Relations, p.Clauses, "output.db"); err != nil {
			return formatter.Fail("translation failed", err)
		}
		return nil
	}

	s, p, err := load(ctx, opts.RootOptions, path)
	if err != nil {
		return commandError(formatter, "failed to load program", err)
	}
	defer s.Close()

	runner := &souffle.Runner{Exec: opts.Exec, Jobs: opts.Jobs, Logger: s.logger}
	res, err := runner.Solve(ctx, s.engine)
	if errors.Is(err, souffle.ErrNotInstalled) {
		return commandError(formatter, "", WrapExitError(ExitCommandError, "souffle is not installed", err))
	}
	if err != nil {
		return formatter.Fail("souffle failed", err)
	}

	out := SouffleOutput{Program: p.Name, Timestamp: res.Timestamp, Facts: res.Facts}
	out.Relations, err = readRelations(ctx, s.engine, opts.Relations)
	if err != nil {
		return formatter.Fail("failed to read relations", err)
	}
	return formatter.Success(out, func(w io.Writer) {
		fmt.Fprintf(w, "souffle: %d new facts at t=%d\n", out.Facts, out.Timestamp)
		writeRelations(w, out.Relations)
	})
}
