package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/printdesk/internal/core/domain"
)

// ManualSource lists and fetches manual PDFs.
// The core never polls a source on its own; sync jobs call it.
type ManualSource interface {
	// Name identifies the source in logs and stats.
	Name() string

	// List returns every manual PDF with its model ID and content hash.
	List(ctx context.Context) ([]domain.SourceFile, error)

	// Fetch returns a local path to the PDF content. The path stays
	// valid until the next Fetch or until the source is closed.
	Fetch(ctx context.Context, file domain.SourceFile) (string, error)
}

// PageReader reads the text of each page of a PDF.
type PageReader interface {
	// ReadPages returns one text per page, empty for pages that could not
	// be read, plus the errors of those pages. An error is returned only
	// when the document as a whole cannot be opened.
	ReadPages(r io.ReaderAt, size int64) (pages []string, failed []domain.PageError, err error)
}
