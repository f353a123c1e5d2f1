// Package script implements the small expression language used by
// script(...) constraints and by computed replacement variables.
//
// Scripts are Go expressions. Pattern variables are in scope by name and
// evaluate to their bound node, to a list of nodes for variables that may
// repeat, or to nil when the variable did not take part in the match.
// The reserved name __context__ is the whole match.
//
// Supported:
//   - literals: integers, strings, true, false, nil
//   - operators: == != < <= > >= && || ! + - * / %
//   - builtins: text, len, kind, typeOf, lower, upper, contains,
//     hasPrefix, hasSuffix, matches, isNil, first, last
//
// Identifiers that are neither variables nor builtins are rejected when
// the script is compiled. Type mismatches and division by zero are
// reported when the script runs.
package script
