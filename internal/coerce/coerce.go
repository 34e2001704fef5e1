// Package coerce converts raw spreadsheet cell values into normalized
// numeric and date representations.
//
// Exported files come from several upstream systems that disagree on
// locale conventions: "55,000.50" (US) and "55.000,50" (Indonesian) are
// the same amount, and dates arrive as "25 Nov 2025", "25 Agu 2025" or
// "25-11-2025". All functions here are pure and never panic on bad
// input; invalid values report ok=false and the caller binds NULL.
package coerce

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// dayNameYearPattern matches "<day> <month-name> <year>" with a 1-2
// digit day and a month name of at least three letters.
var dayNameYearPattern = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]{3,})\s+(\d{4})$`)

// dayMonthYearPattern is the strict DD-MM-YYYY numeric form.
var dayMonthYearPattern = regexp.MustCompile(`^(\d{2})-(\d{2})-(\d{4})$`)

// scientificPattern recognizes values that parse as a number in
// scientific notation (Excel loves turning long codes into 9.78602E+12).
var scientificPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)[eE][+-]?\d+$`)

// monthAbbr maps the first three letters of English and Indonesian
// month names to month numbers. Indonesian variants: mei, agu, okt, des.
var monthAbbr = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4,
	"may": 5, "mei": 5,
	"jun": 6, "jul": 7,
	"aug": 8, "agu": 8,
	"sep": 9,
	"oct": 10, "okt": 10,
	"nov": 11,
	"dec": 12, "des": 12,
}

// Numeric parses a raw cell into a float64, resolving the ambiguous
// thousands/decimal separators by position: whichever of '.' and ','
// appears last is the decimal separator, the other is stripped.
//
//	Numeric("55,000.50") == 55000.50
//	Numeric("55.000,50") == 55000.50
//
// Empty input and anything that does not parse to a finite number
// report ok=false.
func Numeric(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot > lastComma:
		// US convention: ',' groups thousands
		s = strings.ReplaceAll(s, ",", "")
	case lastComma > lastDot:
		// European/Indonesian convention: '.' groups thousands
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Date normalizes a raw cell to an ISO YYYY-MM-DD string.
//
// Two patterns are rewritten locally: "<day> <month-name> <year>"
// (month names matched case-insensitively on their first three letters,
// English or Indonesian) and the strict numeric DD-MM-YYYY form. Any
// other non-empty value is returned trimmed but otherwise unchanged;
// final interpretation is deferred to the destination store's own date
// parser. Empty input reports ok=false.
func Date(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	if m := dayNameYearPattern.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, ok := monthAbbr[strings.ToLower(m[2][:3])]
		if ok && day >= 1 && day <= 31 {
			return fmt.Sprintf("%s-%02d-%02d", m[3], month, day), true
		}
	}

	if m := dayMonthYearPattern.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[3], m[2], m[1]), true
	}

	return s, true
}

// PlainNumber renders a scientific-notation value with zero decimal
// places so that exponents never leak into text columns. Values that do
// not look scientific are returned unchanged.
func PlainNumber(raw string) string {
	s := strings.TrimSpace(raw)
	if !scientificPattern.MatchString(s) {
		return raw
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return raw
	}
	return strconv.FormatFloat(f, 'f', 0, 64)
}
