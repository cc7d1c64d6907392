package database

import (
	"context"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/querypilot/querypilot/internal/config"
)

func testDatabaseConfig(driver string) config.DatabaseConfig {
	return config.DatabaseConfig{
		Driver:     driver,
		User:       "root",
		Password:   "pw",
		Host:       "localhost",
		Port:       "3306",
		Name:       "chinook",
		SampleRows: 3,
	}
}

func newSQLMock(t *testing.T) (*Handle, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewHandle(db, DialectMySQL, 3), mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestListTables(t *testing.T) {
	handle, mock := newSQLMock(t)

	mock.ExpectQuery("SHOW TABLES").
		WillReturnRows(sqlmock.NewRows([]string{"Tables_in_chinook"}).
			AddRow("albums").
			AddRow("artists").
			AddRow("tracks"))

	tables, err := handle.ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables() error = %v", err)
	}
	if len(tables) != 3 || tables[0] != "albums" || tables[2] != "tracks" {
		t.Fatalf("ListTables() = %v", tables)
	}
	assertSQLMock(t, mock)
}

func TestDescribeTablesRendersColumnsAndSamples(t *testing.T) {
	handle, mock := newSQLMock(t)

	columns := []*sqlmock.Column{
		sqlmock.NewColumn("AlbumId").OfType("INT", 0),
		sqlmock.NewColumn("Title").OfType("VARCHAR", ""),
	}
	mock.ExpectQuery("SELECT \\* FROM `albums` LIMIT 3").
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(columns...).
			AddRow(1, "For Those About To Rock").
			AddRow(2, "Balls to the Wall"))

	got, err := handle.DescribeTables(context.Background(), []string{"albums"})
	if err != nil {
		t.Fatalf("DescribeTables() error = %v", err)
	}
	for _, want := range []string{
		"Table: albums",
		"AlbumId (INT)",
		"Title (VARCHAR)",
		"Sample rows (2):",
		"1 | For Those About To Rock",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("DescribeTables() missing %q in:\n%s", want, got)
		}
	}
	assertSQLMock(t, mock)
}

func TestDescribeTablesEmptyInputDescribesAll(t *testing.T) {
	handle, mock := newSQLMock(t)

	mock.ExpectQuery("SHOW TABLES").
		WillReturnRows(sqlmock.NewRows([]string{"Tables_in_chinook"}).AddRow("genres"))
	mock.ExpectQuery("SELECT \\* FROM `genres` LIMIT 3").
		WillReturnRows(sqlmock.NewRows([]string{"GenreId", "Name"}).AddRow(1, "Rock"))

	got, err := handle.DescribeTables(context.Background(), nil)
	if err != nil {
		t.Fatalf("DescribeTables() error = %v", err)
	}
	if !strings.Contains(got, "Table: genres") {
		t.Fatalf("DescribeTables() = %q", got)
	}
	assertSQLMock(t, mock)
}

func TestExecuteRendersSelectResults(t *testing.T) {
	handle, mock := newSQLMock(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM albums").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(347))

	got, err := handle.Execute(context.Background(), "SELECT COUNT(*) FROM albums;")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(got, "COUNT(*)") || !strings.Contains(got, "347") {
		t.Fatalf("Execute() = %q", got)
	}
	assertSQLMock(t, mock)
}

func TestExecuteRendersEmptyResultSet(t *testing.T) {
	handle, mock := newSQLMock(t)

	mock.ExpectQuery("SELECT Title FROM albums WHERE AlbumId = 999999").
		WillReturnRows(sqlmock.NewRows([]string{"Title"}))

	got, err := handle.Execute(context.Background(), "SELECT Title FROM albums WHERE AlbumId = 999999")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(got, "(no rows)") {
		t.Fatalf("Execute() = %q", got)
	}
	assertSQLMock(t, mock)
}

func TestExecuteReportsRowsAffectedForWrites(t *testing.T) {
	handle, mock := newSQLMock(t)

	mock.ExpectExec("UPDATE albums SET Title = 'x' WHERE AlbumId = 1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := handle.Execute(context.Background(), "UPDATE albums SET Title = 'x' WHERE AlbumId = 1")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(got, "1 row(s) affected") {
		t.Fatalf("Execute() = %q", got)
	}
	assertSQLMock(t, mock)
}

func TestExecuteNormalizesByteAndNullValues(t *testing.T) {
	handle, mock := newSQLMock(t)

	mock.ExpectQuery("SELECT Name, Composer FROM tracks LIMIT 1").
		WillReturnRows(sqlmock.NewRows([]string{"Name", "Composer"}).
			AddRow([]byte("Restless and Wild"), nil))

	got, err := handle.Execute(context.Background(), "SELECT Name, Composer FROM tracks LIMIT 1")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(got, "Restless and Wild | NULL") {
		t.Fatalf("Execute() = %q", got)
	}
	assertSQLMock(t, mock)
}

func TestExecuteRequiresSQL(t *testing.T) {
	handle, _ := newSQLMock(t)
	if _, err := handle.Execute(context.Background(), " ;; "); err == nil {
		t.Fatal("Execute() expected error for empty sql")
	}
}

func TestListTablesSQLPerDialect(t *testing.T) {
	if got := listTablesSQL(DialectMySQL); got != "SHOW TABLES" {
		t.Fatalf("mysql listTablesSQL = %q", got)
	}
	if got := listTablesSQL(DialectPostgres); !strings.Contains(got, "table_schema = 'public'") {
		t.Fatalf("postgres listTablesSQL = %q", got)
	}
	if got := listTablesSQL(DialectDuckDB); !strings.Contains(got, "table_schema = 'main'") {
		t.Fatalf("duckdb listTablesSQL = %q", got)
	}
}

func TestDialectAndDSN(t *testing.T) {
	cfg := testDatabaseConfig("mysql")
	dialect, driver, dsn, err := dialectAndDSN(cfg)
	if err != nil {
		t.Fatalf("dialectAndDSN() error = %v", err)
	}
	if dialect != DialectMySQL || driver != "mysql" {
		t.Fatalf("dialect = %q driver = %q", dialect, driver)
	}
	if dsn != "root:pw@tcp(localhost:3306)/chinook?parseTime=true" {
		t.Fatalf("dsn = %q", dsn)
	}

	cfg.Driver = "postgres"
	dialect, driver, dsn, err = dialectAndDSN(cfg)
	if err != nil {
		t.Fatalf("dialectAndDSN() error = %v", err)
	}
	if dialect != DialectPostgres || driver != "pgx" {
		t.Fatalf("dialect = %q driver = %q", dialect, driver)
	}
	if !strings.HasPrefix(dsn, "postgres://root:pw@localhost:3306/chinook") {
		t.Fatalf("dsn = %q", dsn)
	}

	cfg.Driver = "duckdb"
	dialect, driver, dsn, err = dialectAndDSN(cfg)
	if err != nil {
		t.Fatalf("dialectAndDSN() error = %v", err)
	}
	if dialect != DialectDuckDB || driver != "duckdb" || dsn != "chinook" {
		t.Fatalf("dialect = %q driver = %q dsn = %q", dialect, driver, dsn)
	}

	cfg.Driver = "oracle"
	if _, _, _, err := dialectAndDSN(cfg); err == nil {
		t.Fatal("dialectAndDSN() expected error for unsupported driver")
	}
}
