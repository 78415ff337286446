package recognition

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFText reads the embedded text layer of a PDF. It needs no network access
// and returns nothing useful for image-only scans.
type PDFText struct{}

// NewPDFText returns a text-layer recognizer.
func NewPDFText() *PDFText {
	return &PDFText{}
}

// Recognize extracts the text of every page and formats it with FormatPages.
func (PDFText) Recognize(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdftext open: %w", err)
	}

	total := r.NumPage()
	pages := make([]string, 0, total)
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		text, err := pageText(page, fonts)
		if err != nil {
			return "", fmt.Errorf("pdftext page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	if strings.TrimSpace(strings.Join(pages, "")) == "" {
		return "", fmt.Errorf("pdftext: document has no text layer")
	}
	return FormatPages(pages), nil
}

func pageText(page pdf.Page, fonts map[string]*pdf.Font) (string, error) {
	rows, err := page.GetTextByRow()
	if err != nil {
		return page.GetPlainText(fonts)
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		var sb strings.Builder
		for _, word := range row.Content {
			sb.WriteString(word.S)
		}
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n"), nil
}
