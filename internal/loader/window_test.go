package loader

import (
	"testing"

	"salesink/internal/schema"
	"salesink/internal/sniff"
)

func detailSchema() *schema.TableSchema {
	reg := schema.Defaults()
	ts, _ := reg.Table(schema.TableDetails)
	return ts
}

func TestComputeWindow(t *testing.T) {
	records := []sniff.Record{
		{"tgl_jual": "26 Nov 2025", "kode_toko": "T01"},
		{"tgl_jual": "25-11-2025", "kode_toko": "T02"},
		{"tgl_jual": "27 Nov 2025", "kode_toko": "T01"},
	}

	w := ComputeWindow(records, detailSchema())
	if w == nil {
		t.Fatal("expected a window")
	}
	if w.Min != "2025-11-25" || w.Max != "2025-11-27" {
		t.Errorf("window = [%s, %s], want [2025-11-25, 2025-11-27]", w.Min, w.Max)
	}
	if len(w.Stores) != 2 || w.Stores[0] != "T01" || w.Stores[1] != "T02" {
		t.Errorf("stores = %v, want deduplicated [T01 T02]", w.Stores)
	}
	if w.DateCol != "tgl_jual" {
		t.Errorf("date column = %s", w.DateCol)
	}
	if w.StoreCol != "kode_toko" {
		t.Errorf("store column = %s", w.StoreCol)
	}
}

func TestComputeWindowNoDatesIsAbsent(t *testing.T) {
	records := []sniff.Record{
		{"no_bon": "B1", "kode_toko": "T01"},
		{"no_bon": "B2", "tgl_jual": ""},
	}
	if w := ComputeWindow(records, detailSchema()); w != nil {
		t.Errorf("expected absent window, got %+v", w)
	}
}

func TestComputeWindowCandidateFallback(t *testing.T) {
	// tgl_jual missing; the second candidate "tanggal" supplies values.
	records := []sniff.Record{
		{"tanggal": "1 Des 2025", "kode_toko": "T09"},
	}
	w := ComputeWindow(records, detailSchema())
	if w == nil {
		t.Fatal("expected a window from the fallback candidate")
	}
	if w.Min != "2025-12-01" || w.Max != "2025-12-01" {
		t.Errorf("window = [%s, %s]", w.Min, w.Max)
	}
	// The delete still targets the declared destination column.
	if w.DateCol != "tgl_jual" {
		t.Errorf("date column = %s, want tgl_jual", w.DateCol)
	}
}

func TestComputeWindowEmptyStoreSet(t *testing.T) {
	records := []sniff.Record{
		{"tgl_jual": "25-11-2025"},
	}
	w := ComputeWindow(records, detailSchema())
	if w == nil {
		t.Fatal("expected a window")
	}
	if len(w.Stores) != 0 {
		t.Errorf("stores = %v, want empty", w.Stores)
	}
}

func TestApplyRename(t *testing.T) {
	ts := detailSchema() // maps "tanggal" -> "tgl_jual"
	records := []sniff.Record{
		{"tanggal": "25-11-2025", "no_bon": "B1"},
	}
	out := ApplyRename(records, ts)
	if out[0]["tgl_jual"] != "25-11-2025" {
		t.Errorf("renamed record = %v", out[0])
	}
	if _, ok := out[0]["tanggal"]; ok {
		t.Error("source key should be gone after rename")
	}
	if out[0]["no_bon"] != "B1" {
		t.Error("unmapped keys must pass through")
	}
	// Input untouched.
	if _, ok := records[0]["tgl_jual"]; ok {
		t.Error("ApplyRename must not mutate its input")
	}
}

func TestApplyRenamePassThrough(t *testing.T) {
	ts := &schema.TableSchema{Name: "t", Columns: []schema.Column{{Name: "a", Type: "TEXT"}}}
	records := []sniff.Record{{"a": "1"}}
	out := ApplyRename(records, ts)
	if &out[0] != &records[0] && out[0]["a"] != "1" {
		t.Errorf("pass-through failed: %v", out)
	}
}
