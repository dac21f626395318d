// Package engine implements the litelog fixpoint engine.
//
// The engine owns a Relation Store and a list of clauses. Relations are
// declared up front; facts and rules are validated and compiled as they
// are asserted. Run stratifies the program and evaluates each stratum to
// fixpoint; afterwards committed relations can be read and any committed
// fact can be explained with a proof tree.
//
// ARCHITECTURE:
//
// Single Writer:
// Run issues one statement at a time against the store and blocks until
// it completes. Strata run in dependency order, rounds within a stratum
// run one after the other.
//
// Round Structure (semi-naive):
//  1. Prime: delta := base, new := {} for every relation of the stratum
//  2. First round only: run one-shot rules against base tables
//  3. Every round: run each recursive rule once per body atom of the
//     stratum, that atom reading delta and the others base
//  4. Commit: delta := new \ base, base += delta, history += delta at the
//     round's timestamp
//  5. Stop when a round commits nothing
//
// The naive strategy replaces 2 and 3 with every rule against base tables
// and is kept to cross-check semi-naive results.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Every round consumes one timestamp from Clock.Next(), across strata and
// across runs. Timestamps are never reused; a reopened database resumes
// after its latest recorded timestamp.
//
// Deterministic Scheduling:
// Strata are ordered deterministically, rules run in assertion order and
// relation reads are ordered by column values.
package engine
