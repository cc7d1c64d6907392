package tools

import (
	"context"
	"strings"

	"github.com/querypilot/querypilot/internal/database"
)

// ForDatabase builds the full registry against a live database handle. Order
// matters: it is the order tools appear in the model-facing catalog.
func ForDatabase(handle *database.Handle) *Registry {
	return NewRegistry(
		Tool{
			Name:        "list_sql_database",
			Description: "List all tables in the database. Input is ignored.",
			Func: func(ctx context.Context, _ string) string {
				tables, err := handle.ListTables(ctx)
				if err != nil {
					return err.Error()
				}
				return strings.Join(tables, ", ")
			},
		},
		Tool{
			Name:        "info_sql_database",
			Description: "Get schema and sample rows for tables. Input is a comma-separated list of table names; empty input describes every table.",
			Func: func(ctx context.Context, input string) string {
				description, err := handle.DescribeTables(ctx, splitTableNames(input))
				if err != nil {
					return err.Error()
				}
				return description
			},
		},
		Tool{
			Name:        "query_sql_database",
			Description: "Execute a SQL query against the database. Input is a single SQL statement; returns the result rows or the database error.",
			Func: func(ctx context.Context, input string) string {
				result, err := handle.Execute(ctx, input)
				if err != nil {
					// The error text goes back verbatim so the model can
					// hand it to recover_from_error.
					return err.Error()
				}
				return result
			},
		},
		Tool{
			Name:        "validate_sql_query",
			Description: "Validate whether a SQL query is safe to run. Input is a SQL statement; returns a safety verdict.",
			Func: func(_ context.Context, input string) string {
				return ValidateQuery(input)
			},
		},
		Tool{
			Name:        "recover_from_error",
			Description: "Get a recovery suggestion for a SQL error. Input is the error message text.",
			Func: func(_ context.Context, input string) string {
				return ErrorSuggestion(input)
			},
		},
	)
}

func splitTableNames(input string) []string {
	var names []string
	for _, part := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}
