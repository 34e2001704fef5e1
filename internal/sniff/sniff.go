// Package sniff identifies uploaded file formats by content and turns
// CSV and XLSX drops into one uniform record sequence.
//
// The file extension is never trusted: classification reads the magic
// bytes, so a spreadsheet misnamed .csv still parses as a spreadsheet.
package sniff

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Record maps source column names to raw cell values. One per data row;
// slice order preserves row order because error messages reference the
// positional index.
type Record map[string]string

// Kind is the detected content type of a dropped file.
type Kind int

const (
	KindUnknown Kind = iota
	KindDelimited
	KindSpreadsheet
)

func (k Kind) String() string {
	switch k {
	case KindDelimited:
		return "delimited"
	case KindSpreadsheet:
		return "spreadsheet"
	default:
		return "unknown"
	}
}

// zipMagic is the ZIP local-file-header signature that opens every XLSX
// container.
var zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}

// utf8BOM is the byte-order mark Excel prepends to CSV exports.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// sampleSize is how many leading bytes are inspected for the
// delimited-text classification.
const sampleSize = 100

var (
	// ErrUnsupportedFormat reports a file that is neither a ZIP
	// container nor printable delimited text.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrFileLocked reports a file still being written past the
	// maximum stability wait.
	ErrFileLocked = errors.New("file locked past maximum wait")

	// ErrNoRows reports a parse that produced zero data records.
	ErrNoRows = errors.New("file contains no data rows")
)

// Options tunes the write-stability probe.
type Options struct {
	// LockPoll is the interval between exclusive-open probes.
	LockPoll time.Duration
	// LockMaxWait bounds the total probe time.
	LockMaxWait time.Duration
	// Settle is the pause after a successful probe, letting any final
	// flush complete.
	Settle time.Duration
}

// DefaultOptions matches the watcher's historical timing.
var DefaultOptions = Options{
	LockPoll:    250 * time.Millisecond,
	LockMaxWait: 15 * time.Second,
	Settle:      500 * time.Millisecond,
}

// WaitStable polls until the file can be opened exclusively for
// read-write, then pauses once more for the final flush. Returns
// ErrFileLocked when the bound is exceeded.
func WaitStable(ctx context.Context, path string, opts Options) error {
	deadline := time.Now().Add(opts.LockMaxWait)
	for {
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		if err == nil {
			f.Close()
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrFileLocked, path)
		}
		select {
		case <-time.After(opts.LockPoll):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	select {
	case <-time.After(opts.Settle):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Detect classifies a file by its leading bytes.
func Detect(path string) (Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sample := make([]byte, sampleSize)
	n, err := io.ReadFull(f, sample)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return KindUnknown, fmt.Errorf("read %s: %w", path, err)
	}
	sample = sample[:n]

	if bytes.HasPrefix(sample, zipMagic) {
		return KindSpreadsheet, nil
	}
	sample = bytes.TrimPrefix(sample, utf8BOM)
	if len(sample) > 0 && printableText(sample) {
		return KindDelimited, nil
	}
	return KindUnknown, nil
}

// printableText reports whether every sampled byte is printable ASCII
// or a line-control character.
func printableText(sample []byte) bool {
	for _, b := range sample {
		if b >= 0x20 && b <= 0x7E {
			continue
		}
		switch b {
		case '\t', '\n', '\r':
			continue
		}
		return false
	}
	return true
}

// ReadFile waits for write stability, detects the content type and
// parses the file into records. The returned header lists the source
// column names in file order.
func ReadFile(ctx context.Context, path string, opts Options) ([]Record, []string, Kind, error) {
	if err := WaitStable(ctx, path, opts); err != nil {
		return nil, nil, KindUnknown, err
	}

	kind, err := Detect(path)
	if err != nil {
		return nil, nil, KindUnknown, err
	}

	var (
		records []Record
		header  []string
	)
	switch kind {
	case KindSpreadsheet:
		records, header, err = readSpreadsheet(path)
	case KindDelimited:
		records, header, err = readDelimited(path)
	default:
		return nil, nil, KindUnknown, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, nil, kind, err
	}
	if len(records) == 0 {
		return nil, nil, kind, fmt.Errorf("%w: %s", ErrNoRows, path)
	}
	return records, header, kind, nil
}

// readDelimited parses header-driven CSV rows, first line as column
// names.
func readDelimited(path string) ([]Record, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	data = sanitizeUTF8(data)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}
	return projectRows(rows[0], rows[1:]), cleanHeader(rows[0]), nil
}

// readSpreadsheet parses the first sheet of an XLSX container. Cells
// missing from short rows project to empty strings, not omissions.
func readSpreadsheet(path string) ([]Record, []string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open spreadsheet %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("spreadsheet %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}
	return projectRows(rows[0], rows[1:]), cleanHeader(rows[0]), nil
}

// projectRows converts raw rows to Records keyed by header name.
// Short rows blank-fill; columns past the header are dropped. Duplicate
// header names collapse to one key, last occurrence wins; that loses a
// column's data, so it is logged once per batch.
func projectRows(header []string, rows [][]string) []Record {
	names := cleanHeader(header)
	if dups := duplicateNames(names); len(dups) > 0 {
		slog.Warn("duplicate header columns, last occurrence wins", "columns", dups)
	}

	var records []Record
	for _, row := range rows {
		if emptyRow(row) {
			continue
		}
		rec := make(Record, len(names))
		for i, name := range names {
			if name == "" {
				continue
			}
			if i < len(row) {
				rec[name] = strings.TrimSpace(row[i])
			} else {
				rec[name] = ""
			}
		}
		records = append(records, rec)
	}
	return records
}

// duplicateNames returns the non-empty header names that appear more
// than once, each listed once, in first-seen order.
func duplicateNames(names []string) []string {
	counts := make(map[string]int, len(names))
	for _, n := range names {
		counts[n]++
	}
	var dups []string
	seen := make(map[string]bool)
	for _, n := range names {
		if n != "" && counts[n] > 1 && !seen[n] {
			seen[n] = true
			dups = append(dups, n)
		}
	}
	return dups
}

func cleanHeader(header []string) []string {
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
	}
	return names
}

func emptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// sanitizeUTF8 replaces invalid byte sequences with the replacement
// rune so the CSV reader never chokes on stray encodings.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}
	return buf.Bytes()
}
