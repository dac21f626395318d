package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/litelog/internal/store"
)

// RunEntry is one run log entry in command output.
type RunEntry struct {
	ID             string `json:"id"`
	ProgramHash    string `json:"program_hash"`
	Strategy       string `json:"strategy"`
	FirstTimestamp int64  `json:"first_timestamp"`
	LastTimestamp  int64  `json:"last_timestamp"`
	Rounds         int    `json:"rounds"`
	Facts          int64  `json:"facts"`
	EngineVersion  string `json:"engine_version"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List the run log of a database",
		Long: `List every run recorded in the database given by --db, oldest first.

Example:
  litelog runs --db ./facts.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(rootOpts, cmd)
		},
	}

	return cmd
}

func runRuns(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return commandError(formatter, "", WrapExitError(ExitCommandError, "failed to open database", err))
	}
	defer st.Close()

	runs, err := st.ReadRuns(contextOf(cmd))
	if err != nil {
		return formatter.Fail("failed to read run log", err)
	}

	entries := make([]RunEntry, len(runs))
	for i, r := range runs {
		entries[i] = RunEntry{
			ID:             r.ID,
			ProgramHash:    r.ProgramHash,
			Strategy:       r.Strategy,
			FirstTimestamp: r.FirstTimestamp,
			LastTimestamp:  r.LastTimestamp,
			Rounds:         r.Rounds,
			Facts:          r.Facts,
			EngineVersion:  r.EngineVersion,
		}
	}

	return formatter.Success(entries, func(w io.Writer) {
		if len(entries) == 0 {
			fmt.Fprintln(w, "No runs recorded.")
			return
		}
		for _, r := range entries {
			fmt.Fprintf(w, "%s  %-10s  t=%d..%d  %d rounds  %d facts\n",
				r.ID, r.Strategy, r.FirstTimestamp, r.LastTimestamp, r.Rounds, r.Facts)
		}
	})
}
