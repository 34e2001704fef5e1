// Package schema holds the declarative destination-table schemas that
// drive table creation, value coercion and the reconciliation window.
//
// Schemas live in a JSON registry file mapping table name to its
// definition. Column order in the file is the column order of the
// created table, so the registry parser preserves JSON object order
// instead of decoding into a Go map.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Column is one destination column with its declared SQL type.
type Column struct {
	Name string
	Type string
}

// TableSchema describes a single destination table. Immutable for the
// duration of one load.
type TableSchema struct {
	Name        string
	Columns     []Column          // declared order
	PrimaryKey  []string          // optional inline primary key
	Indexes     []string          // optional, one index per column
	NumericCols map[string]bool   // columns coerced as numbers
	DateCols    map[string]bool   // columns coerced as dates
	Rename      map[string]string // source column -> destination column

	// WindowDates and StoreCols are candidate source column names for
	// the reconciliation window, tried in order; the first present
	// non-empty value wins per record.
	WindowDates []string
	StoreCols   []string

	// Connection is the name of the destination connection this table
	// is statically bound to.
	Connection string
}

// Column returns the declared type for a destination column name.
func (t *TableSchema) Column(name string) (string, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c.Type, true
		}
	}
	return "", false
}

// Registry is a read-only set of table schemas, loaded once per load
// operation so that re-reads are consistent within a single load.
type Registry struct {
	tables map[string]*TableSchema
	order  []string
}

// Table returns the schema for a destination table name.
func (r *Registry) Table(name string) (*TableSchema, bool) {
	t, ok := r.tables[name]
	return t, ok
}

// Names returns all table names in registry order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Load reads the registry from a JSON file. An empty path returns the
// built-in default schemas.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Defaults(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema registry: %w", err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse schema registry %s: %w", path, err)
	}
	return reg, nil
}

// tableJSON is the on-disk shape of one table definition.
type tableJSON struct {
	Columns        orderedColumns    `json:"columns"`
	PrimaryKey     []string          `json:"primaryKey"`
	Indexes        []string          `json:"indexes"`
	NumericColumns []string          `json:"numericColumns"`
	DateColumns    []string          `json:"dateColumns"`
	ColumnMapping  map[string]string `json:"columnMapping"`
	WindowDates    []string          `json:"windowDateColumns"`
	StoreColumns   []string          `json:"storeColumns"`
	Connection     string            `json:"connection"`
}

// Parse decodes a registry document, preserving both table order and
// column order.
func Parse(data []byte) (*Registry, error) {
	var raw map[string]tableJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	names, err := topLevelKeys(data)
	if err != nil {
		return nil, err
	}

	reg := &Registry{tables: make(map[string]*TableSchema, len(raw))}
	for _, name := range names {
		tj := raw[name]
		if len(tj.Columns) == 0 {
			return nil, fmt.Errorf("table %q declares no columns", name)
		}
		ts := &TableSchema{
			Name:        name,
			Columns:     tj.Columns,
			PrimaryKey:  tj.PrimaryKey,
			Indexes:     tj.Indexes,
			NumericCols: toSet(tj.NumericColumns),
			DateCols:    toSet(tj.DateColumns),
			Rename:      tj.ColumnMapping,
			WindowDates: tj.WindowDates,
			StoreCols:   tj.StoreColumns,
			Connection:  tj.Connection,
		}
		if ts.Connection == "" {
			ts.Connection = DefaultConnection
		}
		reg.tables[name] = ts
		reg.order = append(reg.order, name)
	}
	return reg, nil
}

// orderedColumns decodes a JSON object {name: type} keeping key order.
type orderedColumns []Column

func (c *orderedColumns) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("columns must be a JSON object, got %v", tok)
	}

	var cols []Column
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name := keyTok.(string)

		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		typ, ok := valTok.(string)
		if !ok {
			return fmt.Errorf("column %q type must be a string", name)
		}
		cols = append(cols, Column{Name: name, Type: typ})
	}
	*c = cols
	return nil
}

// topLevelKeys returns the top-level object keys of a JSON document in
// source order.
func topLevelKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil { // '{'
		return nil, err
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		keys = append(keys, key)

		// Skip the value.
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func toSet(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
