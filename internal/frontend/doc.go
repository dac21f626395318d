// Package frontend turns program text into the ir model.
//
// Two sources are supported:
//   - Datalog rule text in Mangle syntax, parsed with the Mangle parser
//     (ParseRules, ParseAtom)
//   - CUE program files that declare relations and facts and embed rule
//     text (LoadProgram)
//
// Mangle variables keep their names. Each _ becomes a fresh variable.
// Arithmetic (fn:plus, fn:minus, fn:mult, fn:div) becomes an expression
// term, fn:list a list, any other fn:name(...) a compound term named name,
// and comparisons (<, <=, >, >=, !=) raw constraints.
package frontend
