package tools

import "strings"

type suggestionRule struct {
	match      string
	suggestion string
}

// suggestionRules is matched in order against the lower-cased error message;
// the first hit wins.
var suggestionRules = []suggestionRule{
	{"syntax error", "Suggestion: check SQL syntax - ensure proper spacing and quotes"},
	{"table not found", "Suggestion: verify the table name exists in the database"},
	{"column not found", "Suggestion: check column name spelling and table reference"},
	{"access denied", "Suggestion: verify database credentials and permissions"},
}

// ErrorSuggestion maps a free-text database error to a recovery suggestion.
// Unrecognized errors get a generic pointer at the connection.
func ErrorSuggestion(message string) string {
	lower := strings.ToLower(message)
	for _, rule := range suggestionRules {
		if strings.Contains(lower, rule.match) {
			return rule.suggestion
		}
	}
	return "Unknown error - check the database connection"
}
