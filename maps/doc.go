// Package maps implements the Maps language core: lexer, parser, syntax tree
// and tree-walking evaluator. The language supports:
//   - Declarations via `let x = expr` and `let f x y = expr`; assignment
//     `x = expr` updates the nearest binding or defines a new one. Global
//     bindings may only be reassigned under `#enable mutable global variables`.
//   - Literals for ints, floats, strings, bools, unit `()` and lists.
//   - Lambdas `\x y -> body` that capture their defining scope.
//   - `if c then a else b`, block expressions `{ a; b }`, `while` and `for`
//     loops with `break` and `continue`, and `return` inside functions.
//   - Arithmetic, comparison, concatenation (`++`), ranges (`a..b`) and
//     short-circuit logical operators (`and`/`&&`, `or`/`||`, `not`/`!`).
//
// Comments are `//` and `/* */`. Lines starting with `#` are pragmas:
// `#enable <flag>` and `#disable <flag>` set the flags named by PragmaFlags,
// scoped by source location, and `#version` checks the language version
// against a semver constraint. Evaluation observes context cancellation and
// enforces an optional step quota, a recursion limit and MaxNestingDepth.
package maps
