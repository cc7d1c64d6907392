package tools

import (
	"fmt"
	"strings"
)

// dangerousKeywords is scanned in order; the first match decides the verdict.
// Matching is substring-based over the upper-cased query, so a keyword inside
// a string literal still trips the warning. The check is advisory only and is
// never enforced before execution.
var dangerousKeywords = []string{"DROP", "DELETE", "TRUNCATE", "ALTER"}

// ValidateQuery returns a safety verdict for a SQL statement. It is a textual
// heuristic, not a parser.
func ValidateQuery(query string) string {
	upper := strings.ToUpper(query)
	for _, keyword := range dangerousKeywords {
		if strings.Contains(upper, keyword) {
			return fmt.Sprintf("Warning: query contains dangerous keyword: %s", keyword)
		}
	}
	return "Query appears safe"
}
