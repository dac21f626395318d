// Package queryir provides the backend-neutral query plan produced by the
// rule compiler.
//
// QueryIR is the abstraction boundary between rule compilation and the
// relational backend. The compiler decides WHAT must be joined and
// constrained; a backend package (querysql) decides HOW to spell it.
//
//	[clause] → [compiler] → [Query IR] → [SQLite backend]
//
// PLAN SHAPE:
//
// A Plan is a conjunctive query:
//   - From: table references, one per positive body atom, each with its own
//     alias (the same relation may appear several times in one body)
//   - Where: a conjunction of predicates
//   - Params: the constant table, synthesized names bound to literal values
//
// Statements wrap a plan:
//   - Insert: INSERT-OR-IGNORE of distinct projected rows into a table
//   - Select: projected rows, optionally ordered and limited
//
// TABLE KINDS:
//
// Every declared relation has four physical tables used by semi-naive
// evaluation: Base (committed facts), Delta (facts committed in the previous
// round), New (candidates produced this round), and History (every committed
// fact tagged with its commit timestamp). A TableRef names the relation and
// the kind; the backend owns the physical naming.
//
// SEALED INTERFACES:
//
// Expr, Predicate, and Statement are sealed interfaces using the marker
// method pattern. Only types in this package implement them, which enables
// exhaustive type switches in backends:
//
//	switch p := pred.(type) {
//	case Equals:
//	case IsArray:
//	case NotExists:
//	case Check:
//	case Before:
//	default:
//	    // Impossible - compiler knows all Predicate types
//	}
//
// VALUES NEVER APPEAR IN PLANS:
//
// Literal values live only in Plan.Params. Expressions reference them by
// name through Param. Backends must bind parameters, never interpolate.
//
// JSON VALUES:
//
// Structured terms are stored as JSON text. Column, Path, Param, and
// Construct carry enough type information for a backend to choose between a
// JSON rendering and a scalar rendering at each use site.
package queryir
