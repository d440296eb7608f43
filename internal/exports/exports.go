// Package exports renders tabular admin data as CSV, XLSX or PDF.
package exports

import (
	"bytes"
	"fmt"
	"time"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// Table is a titled grid of already-formatted cells
type Table struct {
	Title       string
	Columns     []string
	Rows        [][]string
	GeneratedAt time.Time
}

// Exporter writes a table in one format
type Exporter interface {
	Export(buf *bytes.Buffer, table *Table) error
	ContentType() string
	Extension() string
}

var (
	_ Exporter = (*CSVExporter)(nil)
	_ Exporter = (*ExcelExporter)(nil)
	_ Exporter = (*PDFExporter)(nil)
)

// ForFormat returns the exporter for f
func ForFormat(f Format) (Exporter, error) {
	switch f {
	case FormatCSV, "":
		return NewCSVExporter(DefaultCSVOptions()), nil
	case FormatXLSX:
		return NewExcelExporter(DefaultExcelOptions()), nil
	case FormatPDF:
		return NewPDFExporter(DefaultPDFOptions()), nil
	}
	return nil, fmt.Errorf("unsupported export format %q", f)
}

// Filename builds a download name such as compliance_requests_20260102.csv
func Filename(base string, e Exporter, at time.Time) string {
	return fmt.Sprintf("%s_%s.%s", base, at.UTC().Format("20060102"), e.Extension())
}
