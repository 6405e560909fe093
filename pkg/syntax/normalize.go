package syntax

import "strings"

// NormalizeBooleanPrecedence wraps top-level chains of OR-joined terms in
// parentheses so they bind tighter than the implicit AND between adjacent
// terms. Scryfall gives AND higher precedence, so "a OR b c" means
// "a OR (b c)" while users almost always mean "(a OR b) c".
//
// The rewrite only touches OR tokens at parenthesis depth zero outside quoted
// strings, which makes it idempotent: once a chain is wrapped, its OR tokens
// sit inside parentheses and later passes leave it alone.
func NormalizeBooleanPrecedence(query string) string {
	tokens := splitTopLevel(query)
	if len(tokens) < 3 {
		return strings.Join(tokens, " ")
	}

	var out []string
	i := 0
	for i < len(tokens) {
		end := orChainEnd(tokens, i)
		if end > i {
			// tokens[i:end+1] is "term OR term (OR term)*"
			out = append(out, "("+strings.Join(tokens[i:end+1], " ")+")")
			i = end + 1
			continue
		}
		out = append(out, tokens[i])
		i++
	}
	return strings.Join(out, " ")
}

// orChainEnd returns the index of the last operand of a maximal OR chain
// starting at i, or i when no chain starts there. A chain needs the shape
// operand OR operand; dangling OR tokens are left untouched.
func orChainEnd(tokens []string, i int) int {
	if isOr(tokens[i]) {
		return i
	}
	end := i
	for end+2 < len(tokens) && isOr(tokens[end+1]) && !isOr(tokens[end+2]) {
		end += 2
	}
	return end
}

func isOr(token string) bool {
	return strings.EqualFold(token, "or")
}

// splitTopLevel splits a query on spaces that sit at parenthesis depth zero
// and outside double quotes, keeping parenthesized groups and quoted strings
// as single tokens. Single pass.
func splitTopLevel(query string) []string {
	var tokens []string
	var cur strings.Builder
	depth := 0
	inQuote := false

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range query {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case inQuote:
			cur.WriteRune(r)
		case r == '(':
			depth++
			cur.WriteRune(r)
		case r == ')':
			if depth > 0 {
				depth--
			}
			cur.WriteRune(r)
		case r == ' ' && depth == 0:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}
