// Package ir provides the term and formula model for litelog programs.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// model the foundational layer with no circular dependencies.
//
// The model is a closed set of sealed variants:
//   - Terms: Var, Const, Compound, List, Expr
//   - Literals: Atom, Not, Eq, Raw
//   - Clause: a head Atom plus an ordered body of literals
//   - Proof: a derivation tree produced by provenance reconstruction
//
// Key design constraints:
//   - Constants are scalar Values (Int, Float, String, Bool)
//   - Structured terms (Compound, List) are stored as canonical JSON
//   - Floats are forbidden inside canonical JSON
//   - Expr and Raw carry a template plus named parameters; substitution is
//     the query compiler's job, never string interpolation of values
package ir
