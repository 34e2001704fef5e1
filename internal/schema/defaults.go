package schema

// DefaultConnection is the connection name a table binds to when the
// registry entry does not name one.
const DefaultConnection = "primary"

// Canonical destination table names.
const (
	TableInvoices = "sales_invoices"
	TableDetails  = "sales_details"
)

// Defaults returns the built-in schemas for the two destination tables.
// A registry file overrides these; the defaults keep a fresh install
// working without configuration.
func Defaults() *Registry {
	invoices := &TableSchema{
		Name: TableInvoices,
		Columns: []Column{
			{Name: "no_invoice", Type: "TEXT"},
			{Name: "tanggal_invoice", Type: "DATE"},
			{Name: "kode_toko", Type: "TEXT"},
			{Name: "nama_toko", Type: "TEXT"},
			{Name: "kode_barang", Type: "TEXT"},
			{Name: "nama_barang", Type: "TEXT"},
			{Name: "qty", Type: "NUMERIC"},
			{Name: "harga", Type: "NUMERIC"},
			{Name: "diskon", Type: "NUMERIC"},
			{Name: "total", Type: "NUMERIC"},
		},
		Indexes:     []string{"tanggal_invoice", "kode_toko"},
		NumericCols: toSet([]string{"qty", "harga", "diskon", "total"}),
		DateCols:    toSet([]string{"tanggal_invoice"}),
		Rename:      map[string]string{"tgl_invoice": "tanggal_invoice", "toko": "kode_toko"},
		WindowDates: []string{"tanggal_invoice", "tgl_invoice"},
		StoreCols:   []string{"kode_toko", "toko"},
		Connection:  DefaultConnection,
	}

	details := &TableSchema{
		Name: TableDetails,
		Columns: []Column{
			{Name: "no_bon", Type: "TEXT"},
			{Name: "tgl_jual", Type: "DATE"},
			{Name: "kode_toko", Type: "TEXT"},
			{Name: "kode_barang", Type: "TEXT"},
			{Name: "nama_barang", Type: "TEXT"},
			{Name: "qty", Type: "NUMERIC"},
			{Name: "harga_jual", Type: "NUMERIC"},
			{Name: "total", Type: "NUMERIC"},
		},
		Indexes:     []string{"tgl_jual", "kode_toko"},
		NumericCols: toSet([]string{"qty", "harga_jual", "total"}),
		DateCols:    toSet([]string{"tgl_jual"}),
		Rename:      map[string]string{"tanggal": "tgl_jual"},
		WindowDates: []string{"tgl_jual", "tanggal"},
		StoreCols:   []string{"kode_toko"},
		Connection:  DefaultConnection,
	}

	return &Registry{
		tables: map[string]*TableSchema{
			TableInvoices: invoices,
			TableDetails:  details,
		},
		order: []string{TableInvoices, TableDetails},
	}
}
