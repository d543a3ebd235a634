package shoppinglist

import (
	"bytes"
	"fmt"
	"os"

	"github.com/jung-kurt/gofpdf"

	"foodgram-backend/domain"
)

type (
	DocumentRenderer interface {
		Render(lines []domain.ShoppingListLine) ([]byte, error)
	}

	pdfRenderer struct {
		fontPath string
	}
)

// NewPDFRenderer renders the shopping list as an A4 PDF. The font at
// fontPath must be a UTF-8 TTF covering Cyrillic; the builtin core fonts
// are Latin-only and cannot represent ingredient names.
func NewPDFRenderer(fontPath string) DocumentRenderer {
	return &pdfRenderer{fontPath: fontPath}
}

func FormatLine(line domain.ShoppingListLine) string {
	return fmt.Sprintf("%s %s %d", line.Name, line.MeasurementUnit, line.Total)
}

func (r *pdfRenderer) Render(lines []domain.ShoppingListLine) ([]byte, error) {
	if _, err := os.Stat(r.fontPath); err != nil {
		return nil, domain.ErrShoppingListFontMissing
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddUTF8Font("shoppinglist", "", r.fontPath)
	pdf.SetFont("shoppinglist", "", 14)
	pdf.AddPage()

	pdf.CellFormat(0, 10, "Список покупок", "", 1, "L", false, 0, "")
	pdf.Ln(4)
	for _, line := range lines {
		pdf.CellFormat(0, 8, FormatLine(line), "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
