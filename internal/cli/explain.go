package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/litelog/internal/frontend"
	"github.com/roach88/litelog/internal/ir"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	Latex bool
	At    int64 // explain as of this timestamp, 0 for now
}

// ProofNode is one step of a derivation in JSON output.
type ProofNode struct {
	Fact      string      `json:"fact"`
	Rule      int         `json:"rule"`
	Timestamp int64       `json:"timestamp"`
	Premises  []ProofNode `json:"premises,omitempty"`
}

// ExplainOutput is the result of the explain command.
type ExplainOutput struct {
	Proof ProofNode `json:"proof"`
	Depth int       `json:"depth"`
	Latex string    `json:"latex,omitempty"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <program> <fact>",
		Short: "Show the derivation of a fact",
		Long: `Evaluate a program and print a proof tree for one ground fact.

Each line names the rule that derived the fact and the logical time it was
committed. Premises are always committed strictly earlier than the fact
they support.

Examples:
  litelog explain ./transitive.cue "path(1, 3)"
  litelog explain --latex ./transitive.cue "path(1, 3)"
  litelog explain --db ./facts.db --at 4 ./transitive.cue "path(1, 3)"`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Latex, "latex", false, "render the proof for the LaTeX bussproofs package")
	cmd.Flags().Int64Var(&opts.At, "at", 0, "explain the fact as committed before this timestamp")

	return cmd
}

func runExplain(opts *ExplainOptions, path, factSrc string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := contextOf(cmd)

	fact, err := frontend.ParseAtom(factSrc)
	if err != nil {
		return formatter.Fail("invalid fact", err)
	}

	s, _, err := load(ctx, opts.RootOptions, path)
	if err != nil {
		return commandError(formatter, "failed to load program", err)
	}
	defer s.Close()

	if _, err := s.engine.Run(ctx); err != nil {
		return formatter.Fail("run failed", err)
	}

	var proof *ir.Proof
	if opts.At > 0 {
		proof, err = s.engine.ExplainAt(ctx, fact, opts.At)
	} else {
		proof, err = s.engine.Explain(ctx, fact)
	}
	if err != nil {
		return formatter.Fail("no derivation", err)
	}

	out := ExplainOutput{Proof: proofNode(proof), Depth: proof.Depth()}
	if opts.Latex {
		out.Latex = proof.Bussproof()
	}
	return formatter.Success(out, func(w io.Writer) {
		if opts.Latex {
			fmt.Fprintln(w, out.Latex)
			return
		}
		fmt.Fprint(w, proof.String())
	})
}

func proofNode(p *ir.Proof) ProofNode {
	n := ProofNode{Fact: p.Conclusion.String(), Rule: p.Rule, Timestamp: p.Timestamp}
	for _, c := range p.Children {
		n.Premises = append(n.Premises, proofNode(c))
	}
	return n
}
