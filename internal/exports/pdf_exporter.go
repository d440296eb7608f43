package exports

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"
)

// PDFColor represents an RGB color
type PDFColor struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// PDFOptions configures PDF generation
type PDFOptions struct {
	PageSize       string   `json:"page_size"`
	Orientation    string   `json:"orientation"`
	FontFamily     string   `json:"font_family"`
	FontSize       float64  `json:"font_size"`
	TitleFontSize  float64  `json:"title_font_size"`
	HeaderColor    PDFColor `json:"header_color"`
	AlternateColor PDFColor `json:"alternate_color"`
	Margin         float64  `json:"margin"`
}

func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PageSize:       "A4",
		Orientation:    "landscape",
		FontFamily:     "Arial",
		FontSize:       8,
		TitleFontSize:  14,
		HeaderColor:    PDFColor{R: 68, G: 114, B: 196},
		AlternateColor: PDFColor{R: 242, G: 242, B: 242},
		Margin:         12,
	}
}

// PDFExporter renders a table as a paginated PDF report
type PDFExporter struct {
	options PDFOptions
}

func NewPDFExporter(options PDFOptions) *PDFExporter {
	return &PDFExporter{options: options}
}

func (e *PDFExporter) ContentType() string { return "application/pdf" }
func (e *PDFExporter) Extension() string   { return "pdf" }

func (e *PDFExporter) Export(buf *bytes.Buffer, table *Table) error {
	orientation := "P"
	if e.options.Orientation == "landscape" {
		orientation = "L"
	}

	pdf := gofpdf.New(orientation, "mm", e.options.PageSize, "")
	pdf.SetMargins(e.options.Margin, e.options.Margin, e.options.Margin)
	pdf.SetAutoPageBreak(true, e.options.Margin)
	pdf.SetTitle(table.Title, true)

	pageWidth, _ := pdf.GetPageSize()
	widths := e.columnWidths(table, pageWidth-2*e.options.Margin)

	pdf.SetHeaderFunc(func() {
		pdf.SetFont(e.options.FontFamily, "B", e.options.TitleFontSize)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, 8, table.Title, "", 1, "L", false, 0, "")
		if !table.GeneratedAt.IsZero() {
			pdf.SetFont(e.options.FontFamily, "", e.options.FontSize)
			pdf.SetTextColor(128, 128, 128)
			pdf.CellFormat(0, 5, "Generated "+table.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
		}
		pdf.Ln(2)
		e.header(pdf, table.Columns, widths)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-e.options.Margin)
		pdf.SetFont(e.options.FontFamily, "I", e.options.FontSize)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont(e.options.FontFamily, "", e.options.FontSize)
	pdf.SetTextColor(0, 0, 0)
	for i, row := range table.Rows {
		fill := i%2 == 1
		pdf.SetFillColor(e.options.AlternateColor.R, e.options.AlternateColor.G, e.options.AlternateColor.B)
		for c, w := range widths {
			val := ""
			if c < len(row) {
				val = truncate(pdf, row[c], w-2)
			}
			pdf.CellFormat(w, 6, val, "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(buf); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}

func (e *PDFExporter) header(pdf *gofpdf.Fpdf, columns []string, widths []float64) {
	pdf.SetFont(e.options.FontFamily, "B", e.options.FontSize)
	pdf.SetFillColor(e.options.HeaderColor.R, e.options.HeaderColor.G, e.options.HeaderColor.B)
	pdf.SetTextColor(255, 255, 255)
	for i, col := range columns {
		pdf.CellFormat(widths[i], 7, col, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont(e.options.FontFamily, "", e.options.FontSize)
	pdf.SetTextColor(0, 0, 0)
}

// columnWidths splits the usable width in proportion to the longest cell per column
func (e *PDFExporter) columnWidths(table *Table, usable float64) []float64 {
	if len(table.Columns) == 0 {
		return nil
	}
	lengths := make([]float64, len(table.Columns))
	var total float64
	for i, col := range table.Columns {
		lengths[i] = float64(len(col))
		for _, row := range table.Rows {
			if i < len(row) && float64(len(row[i])) > lengths[i] {
				lengths[i] = float64(len(row[i]))
			}
		}
		if lengths[i] > 40 {
			lengths[i] = 40
		}
		total += lengths[i]
	}

	widths := make([]float64, len(lengths))
	for i, l := range lengths {
		widths[i] = usable * l / total
	}
	return widths
}

func truncate(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > width {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
	}
	return s + "..."
}
