package loader

import (
	"salesink/internal/coerce"
	"salesink/internal/schema"
	"salesink/internal/sniff"
)

// Window scopes the pre-insert delete: the inclusive normalized date
// range plus the distinct store/branch set found in one batch.
type Window struct {
	Min, Max string
	DateCol  string   // destination column the delete filters on
	Stores   []string // distinct, first-seen order
	StoreCol string   // destination store/branch column
}

// ApplyRename rewrites record keys through the schema's source-to-
// destination column mapping. Pass-through when no mapping is declared.
func ApplyRename(records []sniff.Record, ts *schema.TableSchema) []sniff.Record {
	if len(ts.Rename) == 0 {
		return records
	}
	out := make([]sniff.Record, len(records))
	for i, rec := range records {
		renamed := make(sniff.Record, len(rec))
		for k, v := range rec {
			if dest, ok := ts.Rename[k]; ok {
				k = dest
			}
			renamed[k] = v
		}
		out[i] = renamed
	}
	return out
}

// ComputeWindow scans every record for the table's date and store
// columns. Candidate columns are tried in schema preference order; the
// first present non-empty value wins per record. Returns nil when no
// row carries a date value, in which case the delete phase is skipped
// entirely.
func ComputeWindow(records []sniff.Record, ts *schema.TableSchema) *Window {
	w := &Window{
		DateCol:  firstDeclared(ts, ts.WindowDates),
		StoreCol: firstDeclared(ts, ts.StoreCols),
	}

	seen := make(map[string]bool)
	for _, rec := range records {
		if raw := firstValue(rec, ts.WindowDates); raw != "" {
			if d, ok := coerce.Date(raw); ok {
				if w.Min == "" || d < w.Min {
					w.Min = d
				}
				if d > w.Max {
					w.Max = d
				}
			}
		}
		if store := firstValue(rec, ts.StoreCols); store != "" && !seen[store] {
			seen[store] = true
			w.Stores = append(w.Stores, store)
		}
	}

	if w.Min == "" {
		return nil
	}
	return w
}

// firstValue returns the first non-empty value among candidate columns.
func firstValue(rec sniff.Record, candidates []string) string {
	for _, col := range candidates {
		if v := rec[col]; v != "" {
			return v
		}
	}
	return ""
}

// firstDeclared picks the first candidate that is a declared column of
// the destination table, falling back to the first candidate.
func firstDeclared(ts *schema.TableSchema, candidates []string) string {
	for _, c := range candidates {
		if _, ok := ts.Column(c); ok {
			return c
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return ""
}
