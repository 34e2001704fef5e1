package coerce

import "testing"

// ----------------------------------------------------------------------------
// Numeric Tests
// ----------------------------------------------------------------------------

func TestNumeric(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantOK bool
		want   float64
	}{
		{
			name:   "plain integer",
			input:  "123",
			wantOK: true,
			want:   123,
		},
		{
			name:   "zero",
			input:  "0",
			wantOK: true,
			want:   0,
		},
		{
			name:   "negative integer",
			input:  "-456",
			wantOK: true,
			want:   -456,
		},
		{
			name:   "US thousands and decimal",
			input:  "55,000.50",
			wantOK: true,
			want:   55000.50,
		},
		{
			name:   "Indonesian thousands and decimal",
			input:  "55.000,50",
			wantOK: true,
			want:   55000.50,
		},
		{
			name:   "US millions",
			input:  "1,234,567.89",
			wantOK: true,
			want:   1234567.89,
		},
		{
			name:   "Indonesian millions",
			input:  "1.234.567,89",
			wantOK: true,
			want:   1234567.89,
		},
		{
			name:   "single dot decimal",
			input:  "123.45",
			wantOK: true,
			want:   123.45,
		},
		{
			name:   "single comma decimal",
			input:  "123,45",
			wantOK: true,
			want:   123.45,
		},
		{
			name:   "scientific notation",
			input:  "1.5E3",
			wantOK: true,
			want:   1500,
		},
		{
			name:   "whitespace trimmed",
			input:  "  42  ",
			wantOK: true,
			want:   42,
		},
		{
			name:   "empty string",
			input:  "",
			wantOK: false,
		},
		{
			name:   "whitespace only",
			input:  "   ",
			wantOK: false,
		},
		{
			name:   "non numeric text",
			input:  "toko cabang",
			wantOK: false,
		},
		{
			name:   "infinity rejected",
			input:  "Inf",
			wantOK: false,
		},
		{
			name:   "nan rejected",
			input:  "NaN",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Numeric(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("Numeric(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Numeric(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// Both separator conventions must recover the same magnitude when only a
// single decimal marker is present.
func TestNumericSingleSeparatorEquivalence(t *testing.T) {
	pairs := [][2]string{
		{"12.5", "12,5"},
		{"0.75", "0,75"},
		{"9999.99", "9999,99"},
	}
	for _, p := range pairs {
		a, okA := Numeric(p[0])
		b, okB := Numeric(p[1])
		if !okA || !okB {
			t.Fatalf("Numeric failed for %q / %q", p[0], p[1])
		}
		if a != b {
			t.Errorf("Numeric(%q) = %v but Numeric(%q) = %v", p[0], a, p[1], b)
		}
	}
}

// ----------------------------------------------------------------------------
// Date Tests
// ----------------------------------------------------------------------------

func TestDate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantOK bool
		want   string
	}{
		{
			name:   "english month name",
			input:  "25 Nov 2025",
			wantOK: true,
			want:   "2025-11-25",
		},
		{
			name:   "full english month name",
			input:  "5 January 2024",
			wantOK: true,
			want:   "2024-01-05",
		},
		{
			name:   "indonesian mei",
			input:  "1 Mei 2025",
			wantOK: true,
			want:   "2025-05-01",
		},
		{
			name:   "indonesian agustus",
			input:  "17 Agu 2025",
			wantOK: true,
			want:   "2025-08-17",
		},
		{
			name:   "indonesian desember",
			input:  "31 des 2024",
			wantOK: true,
			want:   "2024-12-31",
		},
		{
			name:   "strict numeric DD-MM-YYYY",
			input:  "25-11-2025",
			wantOK: true,
			want:   "2025-11-25",
		},
		{
			name:   "single digit day zero padded",
			input:  "3 Okt 2025",
			wantOK: true,
			want:   "2025-10-03",
		},
		{
			name:   "already ISO passes through",
			input:  "2025-11-25",
			wantOK: true,
			want:   "2025-11-25",
		},
		{
			name:   "unrecognized passes through trimmed",
			input:  "  11/25/2025 ",
			wantOK: true,
			want:   "11/25/2025",
		},
		{
			name:   "unknown month name passes through",
			input:  "25 Xyz 2025",
			wantOK: true,
			want:   "25 Xyz 2025",
		},
		{
			name:   "empty",
			input:  "",
			wantOK: false,
		},
		{
			name:   "whitespace only",
			input:  "  ",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Date(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("Date(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Date(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// PlainNumber Tests
// ----------------------------------------------------------------------------

func TestPlainNumber(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "scientific barcode rendered whole",
			input: "9.78602E+12",
			want:  "9786020000000",
		},
		{
			name:  "lowercase exponent",
			input: "1.5e3",
			want:  "1500",
		},
		{
			name:  "plain number unchanged",
			input: "12345",
			want:  "12345",
		},
		{
			name:  "text unchanged",
			input: "INV-001",
			want:  "INV-001",
		},
		{
			name:  "empty unchanged",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainNumber(tt.input); got != tt.want {
				t.Errorf("PlainNumber(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
