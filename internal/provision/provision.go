// Package provision creates destination tables and their indexes from
// registry schemas when they do not exist yet.
package provision

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"salesink/internal/schema"
)

// EnsureTable checks destination metadata for the table and creates it
// from the schema if absent. Returns whether the table was newly
// created. An index-creation failure is logged and skipped; it never
// fails the caller's load.
func EnsureTable(ctx context.Context, conn *pgx.Conn, ts *schema.TableSchema) (bool, error) {
	var exists bool
	err := conn.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)`, ts.Name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", ts.Name, err)
	}
	if exists {
		return false, nil
	}

	if _, err := conn.Exec(ctx, CreateTableSQL(ts)); err != nil {
		return false, fmt.Errorf("create table %s: %w", ts.Name, err)
	}
	slog.Info("created destination table", "table", ts.Name, "columns", len(ts.Columns))

	for _, col := range ts.Indexes {
		stmt := CreateIndexSQL(ts.Name, col)
		if _, err := conn.Exec(ctx, stmt); err != nil {
			slog.Warn("index creation skipped",
				"table", ts.Name,
				"column", col,
				"error", err,
			)
		}
	}
	return true, nil
}

// CreateTableSQL builds the creation statement from the schema's
// ordered column list, with an inline primary-key clause when declared.
func CreateTableSQL(ts *schema.TableSchema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (", pgx.Identifier{ts.Name}.Sanitize())
	for i, col := range ts.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", pgx.Identifier{col.Name}.Sanitize(), col.Type)
	}
	if len(ts.PrimaryKey) > 0 {
		keys := make([]string, len(ts.PrimaryKey))
		for i, k := range ts.PrimaryKey {
			keys[i] = pgx.Identifier{k}.Sanitize()
		}
		fmt.Fprintf(&b, ", PRIMARY KEY (%s)", strings.Join(keys, ", "))
	}
	b.WriteString(")")
	return b.String()
}

// CreateIndexSQL builds one index statement, named deterministically
// from the lower-cased column name.
func CreateIndexSQL(table, column string) string {
	name := fmt.Sprintf("idx_%s_%s", table, strings.ToLower(column))
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
		pgx.Identifier{name}.Sanitize(),
		pgx.Identifier{table}.Sanitize(),
		pgx.Identifier{column}.Sanitize(),
	)
}
