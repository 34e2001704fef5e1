package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"salesink/internal/coerce"
	"salesink/internal/schema"
	"salesink/internal/sniff"
)

// numericTypeNames are the live destination types that trigger numeric
// coercion when a column is not already classified by the schema.
var numericTypeNames = map[string]bool{
	"numeric":          true,
	"decimal":          true,
	"integer":          true,
	"bigint":           true,
	"smallint":         true,
	"real":             true,
	"double precision": true,
	"money":            true,
}

// ColumnTypes reads the live destination column metadata that drives
// type-specific parameter binding.
func ColumnTypes(ctx context.Context, db DBTX, table string) (map[string]string, error) {
	rows, err := db.Query(ctx,
		`SELECT column_name, data_type FROM information_schema.columns
		 WHERE table_schema = 'public' AND table_name = $1`, table)
	if err != nil {
		return nil, fmt.Errorf("read column metadata for %s: %w", table, err)
	}
	defer rows.Close()

	types := make(map[string]string)
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, fmt.Errorf("scan column metadata: %w", err)
		}
		types[name] = strings.ToLower(typ)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read column metadata for %s: %w", table, err)
	}
	return types, nil
}

// bindValue classifies one cell and coerces it for binding. Tier order:
// schema numeric list, schema date list, live numeric-ish metadata,
// plain text (with scientific-notation normalization). Empty values
// bind as NULL regardless of target type.
func bindValue(ts *schema.TableSchema, liveTypes map[string]string, col, raw string) any {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	switch {
	case ts.NumericCols[col]:
		if f, ok := coerce.Numeric(raw); ok {
			return f
		}
		return nil
	case ts.DateCols[col]:
		if d, ok := coerce.Date(raw); ok {
			return d
		}
		return nil
	case numericTypeNames[liveTypes[col]]:
		if f, ok := coerce.Numeric(raw); ok {
			return f
		}
		return nil
	default:
		return coerce.PlainNumber(raw)
	}
}

// buildInsert assembles the single-row insert for the destination
// columns present in the record. Source columns the table does not
// declare are dropped. Reports ok=false when no declared column is
// present at all.
func buildInsert(ts *schema.TableSchema, liveTypes map[string]string, rec sniff.Record) (sql string, args []any, ok bool) {
	var cols []string
	for _, col := range ts.Columns {
		if _, present := rec[col.Name]; !present {
			continue
		}
		cols = append(cols, col.Name)
		args = append(args, bindValue(ts, liveTypes, col.Name, rec[col.Name]))
	}
	if len(cols) == 0 {
		return "", nil, false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (", pgx.Identifier{ts.Name}.Sanitize())
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgx.Identifier{c}.Sanitize())
	}
	b.WriteString(") VALUES (")
	for i := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d", i+1)
	}
	b.WriteString(")")
	return b.String(), args, true
}

// unknownColumns collects record keys the destination table does not
// declare, for the once-per-batch drop log.
func unknownColumns(records []sniff.Record, ts *schema.TableSchema) []string {
	seen := make(map[string]bool)
	var unknown []string
	for _, rec := range records {
		for k := range rec {
			if seen[k] {
				continue
			}
			seen[k] = true
			if _, ok := ts.Column(k); !ok {
				unknown = append(unknown, k)
			}
		}
	}
	return unknown
}
