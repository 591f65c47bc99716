package extract

import (
	"bytes"
	"fmt"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// PDFText reads PDF bytes page by page. Text tokens on a page are joined with
// a single space and pages are separated by a newline.
func PDFText(data []byte) (text string, err error) {
	// ledongthuc/pdf panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("new pdf reader: %w", err)
	}
	total := doc.NumPage()
	pages := make([]string, 0, total)
	for page := 1; page <= total; page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page, err)
		}
		var tokens []string
		for _, row := range rows {
			for _, t := range row.Content {
				if t.S == "" {
					continue
				}
				tokens = append(tokens, t.S)
			}
		}
		pages = append(pages, strings.Join(tokens, " "))
	}
	return strings.Join(pages, "\n"), nil
}
