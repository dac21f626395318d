// Package harness runs litelog programs as conformance scenarios.
//
// A scenario is a YAML file naming a program and the facts and proofs the
// fixpoint must produce:
//
//	name: transitive_closure
//	description: "path is the transitive closure of edge"
//	program: programs/transitive.cue
//	rules: |
//	  reach(X) :- path(1, X).
//	strategy: naive
//	max_rounds: 50
//	assertions:
//	  - type: relation_equals
//	    relation: path
//	    tuples: [[1, 2], [1, 3], [2, 3]]
//	  - type: count
//	    relation: reach
//	    count: 2
//	  - type: contains
//	    fact: path(1, 3)
//	  - type: not_contains
//	    fact: path(3, 1)
//	  - type: proof
//	    fact: path(1, 3)
//	    rule: 3
//	    depth: 3
//
// A scenario that sets expect_error passes when the program fails with
// that error code, for example UNSTRATIFIABLE or ROUND_LIMIT.
//
// Every scenario runs on its own in-memory store with a deterministic
// clock, so snapshots can be compared against golden files.
package harness
