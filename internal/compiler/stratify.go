package compiler

import (
	"sort"
	"strings"

	"github.com/roach88/litelog/internal/ir"
)

// Stratum is a group of relations evaluated together to fixpoint.
type Stratum struct {
	Index     int
	Relations []string // sorted

	// OneShot lists clauses (by index) whose head is in this stratum and
	// whose body cites no relation of this stratum. They run once, on the
	// first round.
	OneShot []int

	// Recursive lists clauses whose head is in this stratum and whose body
	// cites a relation of this stratum. They run every round through their
	// semi-naive delta variants.
	Recursive []int

	members map[string]bool
}

// Contains reports whether relation belongs to the stratum.
func (s Stratum) Contains(relation string) bool {
	return s.members[relation]
}

// Rules returns every clause index of the stratum in assertion order.
func (s Stratum) Rules() []int {
	out := make([]int, 0, len(s.OneShot)+len(s.Recursive))
	out = append(out, s.OneShot...)
	out = append(out, s.Recursive...)
	sort.Ints(out)
	return out
}

// Stratify partitions the relations cited by clauses into strata, ordered
// so every stratum comes after all strata it depends on.
//
// The algorithm:
//  1. Build a graph with an edge body relation → head relation for every
//     positive and negated body atom; every head is a node even when its
//     clause has no body
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Reject any negated edge inside a component (unstratifiable negation)
//  4. Emit components in topological order of the condensed graph
//  5. Classify each clause as one-shot or recursive for its head's stratum
//
// Output is deterministic for a given clause list.
func Stratify(clauses []ir.Clause) ([]Stratum, error) {
	g := buildDependencyGraph(clauses)
	sccs := tarjanSCC(g)

	// Tarjan emits a component only after every component reachable from
	// it; edges point from dependency to dependent, so reversing the
	// emission order puts dependencies first.
	strata := make([]Stratum, 0, len(sccs))
	component := make(map[string]int)
	for i := len(sccs) - 1; i >= 0; i-- {
		scc := sccs[i]
		sort.Strings(scc)
		s := Stratum{Index: len(strata), Relations: scc, members: make(map[string]bool, len(scc))}
		for _, rel := range scc {
			s.members[rel] = true
			component[rel] = s.Index
		}
		strata = append(strata, s)
	}

	for _, e := range g.negative {
		if component[e.from] == component[e.to] {
			return nil, newError(ErrUnstratifiable, -1,
				"%s negates %s inside the recursive group {%s}",
				e.to, e.from, strings.Join(strata[component[e.to]].Relations, ", "))
		}
	}

	for i, c := range clauses {
		s := &strata[component[c.Head.Relation]]
		recursive := false
		pos, neg := c.BodyRelations()
		for _, rel := range append(pos, neg...) {
			if s.members[rel] {
				recursive = true
				break
			}
		}
		if recursive {
			s.Recursive = append(s.Recursive, i)
		} else {
			s.OneShot = append(s.OneShot, i)
		}
	}
	return strata, nil
}

type dependency struct {
	from, to string
}

// dependencyGraph maps relation → relations derived from it.
type dependencyGraph struct {
	nodes    []string // sorted
	succ     map[string][]string
	negative []dependency
}

func buildDependencyGraph(clauses []ir.Clause) dependencyGraph {
	succ := make(map[string]map[string]bool)
	addNode := func(n string) {
		if succ[n] == nil {
			succ[n] = make(map[string]bool)
		}
	}
	var negative []dependency
	for _, c := range clauses {
		head := c.Head.Relation
		addNode(head)
		pos, neg := c.BodyRelations()
		for _, rel := range pos {
			addNode(rel)
			succ[rel][head] = true
		}
		for _, rel := range neg {
			addNode(rel)
			succ[rel][head] = true
			negative = append(negative, dependency{from: rel, to: head})
		}
	}

	g := dependencyGraph{succ: make(map[string][]string, len(succ)), negative: negative}
	for n, targets := range succ {
		g.nodes = append(g.nodes, n)
		for t := range targets {
			g.succ[n] = append(g.succ[n], t)
		}
		sort.Strings(g.succ[n])
	}
	sort.Strings(g.nodes)
	return g
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns the components in the order Tarjan completes them: a component
// is emitted after every component reachable from it.
func tarjanSCC(g dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		// Set the depth index for v
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		// Consider successors of v
		for _, w := range g.succ[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range g.nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}
