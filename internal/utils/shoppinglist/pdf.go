// Package shoppinglist renders pre-aggregated shopping list lines to PDF.
// The aggregation itself lives in pkg/recipe; this package only consumes a
// finite ordered sequence of formatted strings.
package shoppinglist

import (
	"bytes"

	"github.com/jung-kurt/gofpdf"
)

const (
	// Filename is the attachment name served with the PDF.
	Filename = "Shopping List.pdf"

	title = "Shopping List"
)

// RenderPDF lays out the given lines on A4 pages. An empty slice produces a
// valid document with only the title.
func RenderPDF(lines []string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, title, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 12)
	for _, line := range lines {
		pdf.CellFormat(0, 8, line, "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
