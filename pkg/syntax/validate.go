// Package syntax provides lexical validation and normalization for Scryfall
// search syntax, plus a deterministic fallback query builder used when the
// translation service cannot be reached.
//
// All scanners in this package are single-pass and allocation-light. Validation
// must stay linear in the input length: queries come straight from user input
// and the validator runs on every keystroke-submitted search, so pathological
// inputs (long runs of repeated characters, unicode soup) may not blow up the
// scan. No backtracking regex is used anywhere in this package.
package syntax

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	IssueEmptyQuery       = "Query is empty"
	IssueUnbalancedParens = "Unbalanced parentheses"
	IssueUnbalancedDouble = "Unbalanced double quotes"
	IssueUnbalancedSingle = "Unbalanced single quotes"
)

// ValidationReport is the result of validating a raw query string.
// Issues is empty iff the query is structurally well-formed; it says nothing
// about semantic correctness.
type ValidationReport struct {
	Sanitized string
	Issues    []string
}

// HasStructuralIssue reports whether the query is unusable as-is (empty or
// unbalanced). Unknown-key issues are informational and do not count.
func (r ValidationReport) HasStructuralIssue() bool {
	for _, issue := range r.Issues {
		switch issue {
		case IssueEmptyQuery, IssueUnbalancedParens, IssueUnbalancedDouble, IssueUnbalancedSingle:
			return true
		}
	}
	return false
}

// recognizedKeys is the fixed vocabulary of Scryfall filter keys. Keys not in
// this set are reported as unknown but never rejected.
var recognizedKeys = map[string]bool{
	// colors and identity
	"c": true, "color": true, "id": true, "identity": true,
	// types and text
	"t": true, "type": true, "o": true, "oracle": true, "fo": true,
	"name": true, "kw": true, "keyword": true,
	// mana
	"m": true, "mana": true, "mv": true, "manavalue": true, "cmc": true,
	"devotion": true, "produces": true,
	// stats
	"pow": true, "power": true, "tou": true, "toughness": true,
	"pt": true, "powtou": true, "loy": true, "loyalty": true,
	// sets and printings
	"s": true, "set": true, "e": true, "edition": true, "b": true, "block": true,
	"cn": true, "number": true, "in": true, "st": true, "cube": true,
	"r": true, "rarity": true, "new": true, "prefer": true,
	// legality
	"f": true, "format": true, "banned": true, "restricted": true, "legal": true,
	// boolean predicates
	"is": true, "not": true, "has": true, "include": true,
	// pricing
	"usd": true, "eur": true, "tix": true,
	// flavor and art
	"a": true, "artist": true, "artists": true, "ft": true, "flavor": true,
	"wm": true, "watermark": true, "illustrations": true,
	"border": true, "frame": true, "stamp": true, "game": true,
	"art": true, "atag": true, "arttag": true,
	// oracle tags
	"otag": true, "oracletag": true, "function": true,
	// dates and language
	"date": true, "year": true, "lang": true, "language": true,
	// ordering directives
	"order": true, "direction": true, "unique": true, "display": true,
}

// Validate normalizes and structurally checks a raw query string. It trims and
// collapses whitespace, flags unknown filter keys, and verifies parenthesis
// and quote balance. Every check is a single left-to-right pass.
func Validate(raw string) ValidationReport {
	sanitized := CollapseWhitespace(raw)

	report := ValidationReport{Sanitized: sanitized}
	if sanitized == "" {
		report.Issues = append(report.Issues, IssueEmptyQuery)
		return report
	}

	report.Issues = append(report.Issues, scanKeys(sanitized)...)
	report.Issues = append(report.Issues, scanBalance(sanitized)...)
	return report
}

// CollapseWhitespace rewrites line breaks as spaces, collapses whitespace runs
// to a single space and trims the ends. Single pass over the input.
func CollapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// scanKeys walks the query once looking for key:value style tokens and reports
// keys outside the recognized vocabulary. Content inside double quotes is
// skipped so oracle-text searches containing colons are not misread as keys.
func scanKeys(s string) []string {
	var issues []string
	seen := map[string]bool{}

	var word []rune
	inQuote := false
	for _, r := range s {
		if r == '"' {
			inQuote = !inQuote
			word = word[:0]
			continue
		}
		if inQuote {
			continue
		}
		switch {
		case r == ':' || r == '=' || r == '<' || r == '>':
			if len(word) > 0 {
				key := strings.ToLower(string(word))
				if !recognizedKeys[key] && !seen[key] {
					seen[key] = true
					issues = append(issues, fmt.Sprintf("Unknown key %q", key))
				}
			}
			word = word[:0]
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word = append(word, r)
		default:
			word = word[:0]
		}
	}
	return issues
}

// scanBalance counts parentheses and quotes in one pass. A negative paren
// counter at any point, or a nonzero counter at the end, means the query is
// unbalanced; quotes must appear in pairs. Quote characters inside a
// double-quoted string do not affect the paren counter.
func scanBalance(s string) []string {
	var issues []string

	depth := 0
	negative := false
	doubles := 0
	singles := 0
	inQuote := false
	for _, r := range s {
		switch r {
		case '"':
			doubles++
			inQuote = !inQuote
		case '\'':
			if !inQuote {
				singles++
			}
		case '(':
			if !inQuote {
				depth++
			}
		case ')':
			if !inQuote {
				depth--
				if depth < 0 {
					negative = true
				}
			}
		}
	}

	if negative || depth != 0 {
		issues = append(issues, IssueUnbalancedParens)
	}
	if doubles%2 != 0 {
		issues = append(issues, IssueUnbalancedDouble)
	}
	if singles%2 != 0 {
		issues = append(issues, IssueUnbalancedSingle)
	}
	return issues
}
