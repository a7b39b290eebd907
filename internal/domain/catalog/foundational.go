package catalog

import (
	"strings"

	"golang.org/x/text/cases"
)

// DefaultFoundationalKeyword marks exercises that count toward grundlagen.
const DefaultFoundationalKeyword = "grundlage"

// IsFoundational reports whether text contains keyword, ignoring case.
// Folding handles forms such as "GRUNDLAGEN" and "Grundlagen-Technik".
func IsFoundational(text, keyword string) bool {
	if keyword == "" {
		keyword = DefaultFoundationalKeyword
	}
	// A Caser keeps state, so each call gets its own.
	fold := cases.Fold()
	return strings.Contains(fold.String(text), fold.String(keyword))
}
