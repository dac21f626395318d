// Package store provides the SQLite-backed Relation Store of the litelog
// engine.
//
// Every declared relation owns four tables:
//   - <name>: committed facts (base), the full column tuple is the key
//   - litelog_delta_<name>: facts committed by the previous round
//   - litelog_new_<name>: candidates produced by the current round
//   - litelog_old_<name>: append-only history, each fact tagged with the
//     logical timestamp of its first commit
//
// The store also keeps a catalog of declared schemas (litelog_relations)
// and a log of fixpoint runs (litelog_runs), so a database file can be
// reopened by another process.
//
// # Critical Patterns
//
// Set semantics: all inserts are INSERT OR IGNORE against the tuple key.
//
// Logical time: ordering uses the integer commit timestamp, never wall
// clock time. Reads order by columns so results are deterministic.
//
// Parameterized SQL: fact values are always bound as parameters.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The path ":memory:" opens a private in-memory database.
package store
