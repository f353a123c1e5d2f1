/*
Package query scans structural search templates: Go source text in which
capture variables are written as placeholders.

# Placeholder Syntax

A placeholder is a single quote followed by an identifier:

	'name

The same name may appear several times; every occurrence must then bind
structurally equal nodes. The bare name '_ matches anything and is never
checked for consistency. Names starting with an underscore are anonymous:
they take part in matching but are left out of reported results.

A quoted character such as 'a' or '\n' is a rune literal, not a
placeholder. Placeholders are not recognized inside string literals,
rune literals or comments.

# Quantifiers

A quantifier must directly follow the name, without spaces:

	'x?       zero or one
	'x*       zero or more
	'x+       one or more
	'x{2,4}   two to four
	'x{2,}    two or more
	'x{3}     exactly three

An extra '?' after a quantifier selects the lazy variant ('x*?, 'x+?).
Because '*' and '+' bind to the placeholder, write Go operators after a
placeholder with a space: 'a * 'b, not 'a*'b.

# Constraints

A constraint suffix follows the name (and quantifier) either after a colon
or in brackets:

	'name:regex(^get) && !exprtype(int)
	'name[regex(^get) && !exprtype(int)]

Each term is one of regex, regexw, exprtype, formal, ref, script, within and
contains, optionally negated with '!', with its argument in parentheses.
Arguments may be Go string literals; regex and type arguments may also be
written bare. A colon or bracket is only taken as a constraint when a
term keyword follows it, so 'k: 'v and 'm['i] keep their Go meaning.

# Output

Lex rewrites every placeholder to a synthetic Go identifier, strips the
suffixes and returns the rewritten text together with one Placeholder per
occurrence. The rewritten text is then parsed by the language profile.
*/
package query
