package ir

import (
	"fmt"
	"strings"
)

// Proof is a derivation tree for a fact.
//
// Rule is the index of the clause (in assertion order) whose instance
// produced Conclusion, and Timestamp is the logical time the fact was
// committed. Children hold one proof per positive body atom, in body
// order. Facts asserted directly have no children.
type Proof struct {
	Conclusion Atom     `json:"conclusion"`
	Rule       int      `json:"rule"`
	Timestamp  int64    `json:"timestamp"`
	Children   []*Proof `json:"children,omitempty"`
}

// String renders the proof as an indented tree, one fact per line.
//
//	path(1, 3) [rule 3, t=4]
//	  edge(1, 2) [rule 0, t=1]
func (p *Proof) String() string {
	var b strings.Builder
	p.write(&b, 0)
	return b.String()
}

func (p *Proof) write(b *strings.Builder, depth int) {
	fmt.Fprintf(b, "%s%s [rule %d, t=%d]\n", strings.Repeat("  ", depth), p.Conclusion, p.Rule, p.Timestamp)
	for _, c := range p.Children {
		c.write(b, depth+1)
	}
}

// Depth returns the height of the tree. A leaf has depth 1.
func (p *Proof) Depth() int {
	d := 0
	for _, c := range p.Children {
		if cd := c.Depth(); cd > d {
			d = cd
		}
	}
	return d + 1
}

// Bussproof renders the proof for the LaTeX bussproofs package. The rule
// index is used as the inference label.
func (p *Proof) Bussproof() string {
	label := fmt.Sprintf(`\RightLabel{rule %d}`, p.Rule)
	conc := latexEscape(p.Conclusion.String())
	var hyps []string
	for _, c := range p.Children {
		hyps = append(hyps, c.Bussproof())
	}
	switch len(hyps) {
	case 0:
		return fmt.Sprintf(`%s \AxiomC{%s}`, label, conc)
	case 1:
		return fmt.Sprintf(`%s %s \UnaryInfC{%s}`, hyps[0], label, conc)
	case 2:
		return fmt.Sprintf(`%s %s %s \BinaryInfC{%s}`, hyps[0], hyps[1], label, conc)
	case 3:
		return fmt.Sprintf(`%s %s %s %s \TrinaryInfC{%s}`, hyps[0], hyps[1], hyps[2], label, conc)
	default:
		// Elide the middle premises.
		return fmt.Sprintf(`%s %s \AxiomC{$\dots$} %s \TrinaryInfC{%s}`, hyps[0], hyps[len(hyps)-1], label, conc)
	}
}

var latexReplacer = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`_`, `\_`,
	`$`, `\$`,
	`&`, `\&`,
	`#`, `\#`,
	`%`, `\%`,
)

func latexEscape(s string) string { return latexReplacer.Replace(s) }
