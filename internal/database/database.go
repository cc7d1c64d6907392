// Package database wraps the relational collaborator behind the small
// surface the SQL tools need: list tables, describe schema with sample rows,
// and execute arbitrary statements.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/querypilot/querypilot/internal/config"
)

type Dialect string

const (
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
	DialectDuckDB   Dialect = "duckdb"
)

const maxResultRows = 50

type Handle struct {
	db         *sql.DB
	dialect    Dialect
	sampleRows int
}

// Open connects per the configured driver and verifies the connection with a
// bounded ping. The handle is long-lived; the orchestrator treats it as
// read-only shared state.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Handle, error) {
	dialect, driverName, dsn, err := dialectAndDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", cfg.Driver, err)
	}

	return NewHandle(db, dialect, cfg.SampleRows), nil
}

// NewHandle wraps an existing connection. Tests inject sqlmock through here.
func NewHandle(db *sql.DB, dialect Dialect, sampleRows int) *Handle {
	if sampleRows <= 0 {
		sampleRows = 3
	}
	return &Handle{db: db, dialect: dialect, sampleRows: sampleRows}
}

func (h *Handle) Close() error {
	return h.db.Close()
}

func (h *Handle) Dialect() Dialect {
	return h.dialect
}

func (h *Handle) ListTables(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, listTablesSQL(h.dialect))
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return tables, nil
}

// DescribeTables renders column metadata and up to sampleRows example rows
// for the named tables. An empty list means every table.
func (h *Handle) DescribeTables(ctx context.Context, names []string) (string, error) {
	if len(names) == 0 {
		all, err := h.ListTables(ctx)
		if err != nil {
			return "", err
		}
		names = all
	}

	var out strings.Builder
	for i, name := range names {
		if i > 0 {
			out.WriteString("\n")
		}
		if err := h.describeTable(ctx, &out, strings.TrimSpace(name)); err != nil {
			return "", err
		}
	}
	return out.String(), nil
}

func (h *Handle) describeTable(ctx context.Context, out *strings.Builder, name string) error {
	sampleSQL := fmt.Sprintf("SELECT * FROM %s LIMIT %d", h.quoteIdent(name), h.sampleRows)
	rows, err := h.db.QueryContext(ctx, sampleSQL)
	if err != nil {
		return fmt.Errorf("describe table %q: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return fmt.Errorf("column types for %q: %w", name, err)
	}

	fmt.Fprintf(out, "Table: %s\n", name)
	out.WriteString("Columns:\n")
	for _, columnType := range columnTypes {
		if typeName := columnType.DatabaseTypeName(); typeName != "" {
			fmt.Fprintf(out, "  %s (%s)\n", columnType.Name(), typeName)
		} else {
			fmt.Fprintf(out, "  %s\n", columnType.Name())
		}
	}

	sampled, err := renderRows(rows, len(columnTypes), h.sampleRows)
	if err != nil {
		return fmt.Errorf("sample rows for %q: %w", name, err)
	}
	if len(sampled) > 0 {
		fmt.Fprintf(out, "Sample rows (%d):\n", len(sampled))
		for _, line := range sampled {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}
	return nil
}

// Execute runs an arbitrary statement. SELECT-style statements come back as a
// pipe-separated text table capped at maxResultRows; everything else reports
// rows affected. Database errors surface verbatim to the caller.
func (h *Handle) Execute(ctx context.Context, sqlText string) (string, error) {
	trimmed := stripTrailingSemicolons(sqlText)
	if trimmed == "" {
		return "", fmt.Errorf("sql is required")
	}

	if !returnsRows(trimmed) {
		result, err := h.db.ExecContext(ctx, trimmed)
		if err != nil {
			return "", err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return "statement executed", nil
		}
		return fmt.Sprintf("statement executed, %d row(s) affected", affected), nil
	}

	rows, err := h.db.QueryContext(ctx, trimmed)
	if err != nil {
		return "", err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("query columns: %w", err)
	}

	rendered, err := renderRows(rows, len(columns), maxResultRows)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	out.WriteString(strings.Join(columns, " | "))
	for _, line := range rendered {
		out.WriteString("\n")
		out.WriteString(line)
	}
	if len(rendered) == 0 {
		out.WriteString("\n(no rows)")
	}
	if len(rendered) == maxResultRows && rows.Next() {
		fmt.Fprintf(&out, "\n(truncated at %d rows)", maxResultRows)
	}
	return out.String(), nil
}

func renderRows(rows *sql.Rows, columnCount, limit int) ([]string, error) {
	rendered := make([]string, 0, limit)
	for len(rendered) < limit && rows.Next() {
		values := make([]any, columnCount)
		scanTargets := make([]any, columnCount)
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rendered = append(rendered, formatRow(values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return rendered, nil
}

func formatRow(values []any) string {
	fields := make([]string, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case nil:
			fields[i] = "NULL"
		case []byte:
			fields[i] = string(typed)
		case time.Time:
			fields[i] = typed.Format(time.RFC3339)
		default:
			fields[i] = fmt.Sprintf("%v", typed)
		}
	}
	return strings.Join(fields, " | ")
}

func (h *Handle) quoteIdent(value string) string {
	if h.dialect == DialectMySQL {
		return "`" + strings.ReplaceAll(value, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func listTablesSQL(dialect Dialect) string {
	switch dialect {
	case DialectMySQL:
		return "SHOW TABLES"
	case DialectPostgres:
		return "SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' ORDER BY table_name"
	default:
		return "SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name"
	}
}

func returnsRows(sqlText string) bool {
	head := strings.ToUpper(sqlText)
	for _, prefix := range []string{"SELECT", "WITH", "SHOW", "DESCRIBE", "EXPLAIN", "PRAGMA"} {
		if strings.HasPrefix(head, prefix) {
			return true
		}
	}
	return false
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}

func dialectAndDSN(cfg config.DatabaseConfig) (Dialect, string, string, error) {
	switch cfg.Driver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
		return DialectMySQL, "mysql", dsn, nil
	case "postgres":
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			url.QueryEscape(cfg.User), url.QueryEscape(cfg.Password), cfg.Host, cfg.Port, cfg.Name)
		return DialectPostgres, "pgx", dsn, nil
	case "duckdb":
		// Name is a local database file path; host/port are unused.
		return DialectDuckDB, "duckdb", cfg.Name, nil
	default:
		return "", "", "", fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}
