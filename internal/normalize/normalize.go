// Package normalize reduces free-form diagnostic text to a small stable
// vocabulary of categories. Compiler messages differ by interpolated
// identifiers and types but share fixed phrasing; matching on that phrasing
// makes category frequencies comparable across many runs and users.
package normalize

import (
	"regexp"
	"strings"
)

// CategoryOther is the sentinel returned when no rule matches.
// Normalization always succeeds.
const CategoryOther = "other"

// CategoryParseFailure marks a fallback record emitted when console output
// could not be parsed at all.
const CategoryParseFailure = "parse_failure"

// Rule pairs a pattern with the category any matching diagnostic reduces to.
type Rule struct {
	Pattern  *regexp.Regexp
	Category string
}

// MustRule compiles a case-insensitive containment rule or panics. Rule
// tables are static package data, so a bad pattern is a programming error.
func MustRule(expr, category string) Rule {
	return Rule{
		Pattern:  regexp.MustCompile("(?i)" + expr),
		Category: category,
	}
}

// Normalizer applies an ordered rule table, first match wins. Order is
// semantically load-bearing: more specific rules (e.g. "cannot find symbol
// ... variable") must precede the general rules they would otherwise lose to.
type Normalizer struct {
	rules []Rule
}

// New builds a normalizer over the given rule table. Rules are evaluated in
// the order given; callers must list specific rules before general ones.
func New(rules []Rule) *Normalizer {
	return &Normalizer{rules: rules}
}

// Normalize maps raw diagnostic text to a category. Input is trimmed first;
// an empty table or an unmatched input yields CategoryOther.
func (n *Normalizer) Normalize(raw string) string {
	text := strings.TrimSpace(raw)
	for _, r := range n.rules {
		if r.Pattern.MatchString(text) {
			return r.Category
		}
	}
	return CategoryOther
}

// ExceptionName strips the namespace from a fully qualified exception class
// name: "java.lang.NullPointerException" becomes "NullPointerException".
// Exception class names already form a natural taxonomy, so no rule table is
// needed. Input without a dot is returned unchanged.
func ExceptionName(fqcn string) string {
	if i := strings.LastIndex(fqcn, "."); i >= 0 {
		return fqcn[i+1:]
	}
	return fqcn
}
