package loader

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"salesink/internal/schema"
	"salesink/internal/sniff"
)

func bindSchema() *schema.TableSchema {
	return &schema.TableSchema{
		Name: "sales_details",
		Columns: []schema.Column{
			{Name: "no_bon", Type: "TEXT"},
			{Name: "tgl_jual", Type: "DATE"},
			{Name: "qty", Type: "NUMERIC"},
			{Name: "catatan", Type: "TEXT"},
			{Name: "pajak", Type: "NUMERIC"},
		},
		NumericCols: map[string]bool{"qty": true},
		DateCols:    map[string]bool{"tgl_jual": true},
	}
}

var liveTypes = map[string]string{
	"no_bon":   "text",
	"tgl_jual": "date",
	"qty":      "numeric",
	"catatan":  "text",
	"pajak":    "numeric", // numeric by live metadata only
}

func TestBindValue(t *testing.T) {
	ts := bindSchema()

	tests := []struct {
		name string
		col  string
		raw  string
		want any
	}{
		{
			name: "schema numeric column coerced",
			col:  "qty",
			raw:  "1.234,5",
			want: 1234.5,
		},
		{
			name: "schema date column normalized",
			col:  "tgl_jual",
			raw:  "25 Nov 2025",
			want: "2025-11-25",
		},
		{
			name: "live metadata numeric tier",
			col:  "pajak",
			raw:  "11,000.25",
			want: 11000.25,
		},
		{
			name: "text column passes through",
			col:  "no_bon",
			raw:  "B-001",
			want: "B-001",
		},
		{
			name: "scientific value destined for text renders plain",
			col:  "no_bon",
			raw:  "9.78602E+12",
			want: "9786020000000",
		},
		{
			name: "empty binds null",
			col:  "qty",
			raw:  "",
			want: nil,
		},
		{
			name: "whitespace binds null",
			col:  "catatan",
			raw:  "   ",
			want: nil,
		},
		{
			name: "unparseable numeric binds null",
			col:  "qty",
			raw:  "dua",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bindValue(ts, liveTypes, tt.col, tt.raw)
			if got != tt.want {
				t.Errorf("bindValue(%s, %q) = %v (%T), want %v", tt.col, tt.raw, got, got, tt.want)
			}
		})
	}
}

// Schema-declared classification takes precedence over live metadata.
func TestBindValueSchemaListWins(t *testing.T) {
	ts := bindSchema()
	ts.DateCols["pajak"] = true // declare as date even though live type is numeric

	got := bindValue(ts, liveTypes, "pajak", "25-11-2025")
	if got != "2025-11-25" {
		t.Errorf("schema date list should win over live numeric metadata, got %v", got)
	}
}

func TestBuildInsert(t *testing.T) {
	ts := bindSchema()
	rec := sniff.Record{
		"no_bon":   "B001",
		"tgl_jual": "25-11-2025",
		"qty":      "2",
		"ignored":  "x", // not declared, dropped
	}

	stmt, args, ok := buildInsert(ts, liveTypes, rec)
	if !ok {
		t.Fatal("buildInsert reported no columns")
	}
	want := `INSERT INTO "sales_details" ("no_bon", "tgl_jual", "qty") VALUES ($1, $2, $3)`
	if stmt != want {
		t.Errorf("stmt =\n%s\nwant\n%s", stmt, want)
	}
	if len(args) != 3 {
		t.Fatalf("got %d args, want 3", len(args))
	}
	if args[0] != "B001" || args[1] != "2025-11-25" || args[2] != 2.0 {
		t.Errorf("args = %v", args)
	}
	if strings.Contains(stmt, "ignored") {
		t.Error("undeclared column leaked into the statement")
	}
}

func TestBuildInsertNoDeclaredColumns(t *testing.T) {
	ts := bindSchema()
	if _, _, ok := buildInsert(ts, liveTypes, sniff.Record{"x": "1", "y": "2"}); ok {
		t.Error("expected ok=false for a record with no declared columns")
	}
}

func TestUnknownColumns(t *testing.T) {
	ts := bindSchema()
	records := []sniff.Record{
		{"no_bon": "B1", "extra_a": "1"},
		{"no_bon": "B2", "extra_a": "2", "extra_b": "3"},
	}
	got := unknownColumns(records, ts)
	if len(got) != 2 {
		t.Errorf("unknownColumns = %v, want two entries", got)
	}
}

func TestRecordErrorBounded(t *testing.T) {
	o := &Outcome{}
	for i := 1; i <= MaxRowErrors+10; i++ {
		o.recordError(i, fmt.Sprintf("row %d failed", i))
	}
	if o.ErrorCount != MaxRowErrors+10 {
		t.Errorf("ErrorCount = %d, want exact count %d", o.ErrorCount, MaxRowErrors+10)
	}
	if len(o.Errors) != MaxRowErrors {
		t.Errorf("len(Errors) = %d, want bounded at %d", len(o.Errors), MaxRowErrors)
	}
	if o.Errors[0].Row != 1 {
		t.Errorf("first error row = %d", o.Errors[0].Row)
	}
}

// The outcome JSON is a published contract consumed by the watcher's
// logging and the upload endpoint.
func TestOutcomeJSONContract(t *testing.T) {
	o := &Outcome{
		Success:      true,
		Table:        "sales_details",
		SuccessCount: 9,
		ErrorCount:   1,
		DateRange:    &DateRange{Min: "2025-11-25", Max: "2025-11-27"},
		Stores:       []string{"T01"},
		Errors:       []RowError{{Row: 4, Message: "boom"}},
	}
	data, err := json.Marshal(o)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"success", "successCount", "errorCount", "dateRange", "stores", "errors"} {
		if _, ok := m[key]; !ok {
			t.Errorf("outcome JSON missing %q", key)
		}
	}
}
