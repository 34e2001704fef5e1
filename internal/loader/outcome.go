// Package loader is the reconciliation-load coordinator: given a parsed
// record batch and a resolved table, it computes the affected date
// window and store set, deletes the overlap and re-inserts the batch in
// one transaction, and reports a structured outcome.
package loader

// RowError describes one failed row. Row is the 1-based position of the
// record in the batch.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// DateRange is the inclusive normalized date range covered by a batch.
type DateRange struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// Outcome is the per-file load result. Every row is either counted in
// SuccessCount or produces an entry in Errors (the list is bounded, the
// counts are exact).
type Outcome struct {
	Success      bool       `json:"success"`
	Table        string     `json:"table"`
	Connection   string     `json:"connection"`
	SuccessCount int        `json:"successCount"`
	ErrorCount   int        `json:"errorCount"`
	DateRange    *DateRange `json:"dateRange"`
	Stores       []string   `json:"stores"`
	Errors       []RowError `json:"errors"`
	Deleted      int64      `json:"deleted"`
}
