// Package resolve routes a dropped file to its destination table and
// the single connection that table is bound to.
package resolve

import (
	"fmt"
	"path/filepath"
	"strings"

	"salesink/internal/db"
	"salesink/internal/schema"
)

// Filename hints checked before any header inspection. First match wins.
var (
	invoiceNameHints = []string{"accurate", "invoice"}
	detailNameHints  = []string{"snj", "srp"}
)

// Header columns that identify the source system when the filename
// carries no hint.
var (
	invoiceHeaderKeys = []string{"no_invoice", "tanggal_invoice"}
	detailHeaderKeys  = []string{"no_bon", "tgl_jual"}
)

// Table infers the destination table for a file. Decision order:
// filename hint for the invoicing source, filename hint for the
// detail-ledger source, header heuristics, then the detail table as
// default.
func Table(reg *schema.Registry, filename string, header []string) (*schema.TableSchema, error) {
	name := strings.ToLower(filepath.Base(filename))

	if containsAny(name, invoiceNameHints) {
		return mustTable(reg, schema.TableInvoices)
	}
	if containsAny(name, detailNameHints) {
		return mustTable(reg, schema.TableDetails)
	}

	headerSet := make(map[string]bool, len(header))
	for _, h := range header {
		headerSet[strings.ToLower(strings.TrimSpace(h))] = true
	}
	for _, key := range invoiceHeaderKeys {
		if headerSet[key] {
			return mustTable(reg, schema.TableInvoices)
		}
	}
	for _, key := range detailHeaderKeys {
		if headerSet[key] {
			return mustTable(reg, schema.TableDetails)
		}
	}

	return mustTable(reg, schema.TableDetails)
}

// Connection resolves the table's statically bound destination
// connection. Failure here is a configuration error.
func Connection(conns []db.ConnectionConfig, ts *schema.TableSchema) (db.ConnectionConfig, error) {
	conn, err := db.FindEnabled(conns, ts.Connection)
	if err != nil {
		return db.ConnectionConfig{}, fmt.Errorf("table %s: %w", ts.Name, err)
	}
	return conn, nil
}

func mustTable(reg *schema.Registry, name string) (*schema.TableSchema, error) {
	ts, ok := reg.Table(name)
	if !ok {
		return nil, fmt.Errorf("schema registry has no table %q", name)
	}
	return ts, nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
