package extractor

import (
	"errors"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.PageReader = (*PDFReader)(nil)

var errEmptyPage = errors.New("page has no content")

// PDFReader reads page text with github.com/ledongthuc/pdf.
type PDFReader struct{}

// NewPDFReader creates a PDF page reader.
func NewPDFReader() *PDFReader {
	return &PDFReader{}
}

// ReadPages returns the plain text of every page. A page that fails to
// decode, or panics inside the PDF library, is left empty and reported.
func (p *PDFReader) ReadPages(r io.ReaderAt, size int64) ([]string, []domain.PageError, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, nil, fmt.Errorf("create PDF reader: %w", err)
	}

	total := reader.NumPage()
	pages := make([]string, total)
	var failed []domain.PageError

	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= total; i++ {
		text, err := readPage(reader, i, fonts)
		if err != nil {
			failed = append(failed, domain.PageError{Page: i, Err: err})
			continue
		}
		pages[i-1] = text
	}
	return pages, failed, nil
}

func readPage(reader *pdf.Reader, n int, fonts map[string]*pdf.Font) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode page: %v", r)
		}
	}()

	page := reader.Page(n)
	if page.V.IsNull() {
		return "", errEmptyPage
	}
	return page.GetPlainText(fonts)
}
