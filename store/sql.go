package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect captures the differences between the supported SQL backends.
type Dialect struct {
	// Driver is the database/sql driver name.
	Driver string

	// IDColumn is the DDL for the surrogate key column.
	IDColumn string

	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder func(n int) string
}

var (
	// DialectSQLite writes through modernc.org/sqlite.
	DialectSQLite = Dialect{
		Driver:      "sqlite",
		IDColumn:    "id INTEGER PRIMARY KEY AUTOINCREMENT",
		Placeholder: func(int) string { return "?" },
	}

	// DialectPostgres writes through jackc/pgx/v5.
	DialectPostgres = Dialect{
		Driver:      "pgx",
		IDColumn:    "id BIGSERIAL PRIMARY KEY",
		Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	}
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLAppender inserts one row per record into a table with one TEXT column per
// entry of Columns.
type SQLAppender struct {
	db     *sql.DB
	table  string
	insert string
}

// NewSQLAppender opens dsn with the dialect's driver, verifies the connection
// and creates the table if it does not exist.
func NewSQLAppender(ctx context.Context, d Dialect, dsn, table string) (*SQLAppender, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s dsn is empty", d.Driver)
	}
	if table == "" {
		table = "records"
	}
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", d.Driver, err)
	}

	// The sink is the only writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", d.Driver, err)
	}

	a := &SQLAppender{db: db, table: table, insert: insertStatement(d, table)}
	if err := a.ensureSchema(ctx, d); err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

func (a *SQLAppender) ensureSchema(ctx context.Context, d Dialect) error {
	cols := make([]string, 0, len(Columns)+1)
	cols = append(cols, d.IDColumn)
	for _, c := range Columns {
		cols = append(cols, c+" TEXT NOT NULL")
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", a.table, strings.Join(cols, ",\n  "))
	if _, err := a.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", a.table, err)
	}
	return nil
}

func insertStatement(d Dialect, table string) string {
	marks := make([]string, len(Columns))
	for i := range Columns {
		marks[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(Columns, ", "), strings.Join(marks, ", "))
}

// Append inserts one row.
func (a *SQLAppender) Append(ctx context.Context, fields []string) error {
	if err := checkFields(fields); err != nil {
		return err
	}

	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = f
	}

	if _, err := a.db.ExecContext(ctx, a.insert, args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", a.table, err)
	}
	return nil
}

// Count returns the number of rows in the table.
func (a *SQLAppender) Count(ctx context.Context) (int, error) {
	var n int
	if err := a.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+a.table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", a.table, err)
	}
	return n, nil
}

// Close closes the database handle.
func (a *SQLAppender) Close() error {
	return a.db.Close()
}
