package document

import (
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/ledongthuc/pdf"
)

// Page keeps extracted text of one page, numbers start from 1
type Page struct {
	Number int
	Text   string
}

// Extractor reads PDF page texts
type Extractor struct{}

// NewExtractor creates extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Pages returns all pages of the document, empty pages have no text
func (e *Extractor) Pages(path string) ([]Page, error) {
	defer goapp.Estimate("pdf pages")()
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("can't open pdf '%s': %w", path, err)
	}
	defer f.Close()

	n := r.NumPage()
	res := make([]Page, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		pg := Page{Number: i}
		if !p.V.IsNull() {
			txt, err := p.GetPlainText(nil)
			if err != nil {
				return nil, fmt.Errorf("can't extract page %d: %w", i, err)
			}
			pg.Text = txt
		}
		res = append(res, pg)
	}
	goapp.Log.Info().Str("file", path).Int("pages", n).Msg("pdf read")
	return res, nil
}
