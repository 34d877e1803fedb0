package extractor

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // content fingerprint, matches Drive md5Checksum
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
	"github.com/custodia-labs/printdesk/internal/textnorm"
)

// Default extraction limits.
const (
	DefaultTargetSize = 600
	DefaultMinSize    = 50
	DefaultTypeCap    = 20
	DefaultTotalCap   = 80
)

// Extractor turns manual pages into classified sections.
// Extract is pure and deterministic; ExtractFile adds PDF reading.
type Extractor struct {
	targetSize int
	minSize    int
	typeCap    int
	totalCap   int
	rules      *compiled
	reader     driven.PageReader
}

// Option configures the extractor.
type Option func(*Extractor)

// WithTargetSize sets the chunk size in characters.
func WithTargetSize(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.targetSize = n
		}
	}
}

// WithMinSize sets the size a chunk must exceed to be kept.
func WithMinSize(n int) Option {
	return func(e *Extractor) {
		if n >= 0 {
			e.minSize = n
		}
	}
}

// WithCaps sets the per-type and overall section limits. Zero means unlimited.
func WithCaps(perType, total int) Option {
	return func(e *Extractor) {
		e.typeCap = perType
		e.totalCap = total
	}
}

// WithRules replaces the classification and keyword rules.
func WithRules(r *Rules) Option {
	return func(e *Extractor) {
		if r != nil {
			e.rules = r.compile()
		}
	}
}

// WithPageReader sets the PDF page reader used by ExtractFile.
func WithPageReader(r driven.PageReader) Option {
	return func(e *Extractor) {
		e.reader = r
	}
}

// New creates an extractor with the given options.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		targetSize: DefaultTargetSize,
		minSize:    DefaultMinSize,
		typeCap:    DefaultTypeCap,
		totalCap:   DefaultTotalCap,
		reader:     NewPDFReader(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rules == nil {
		e.rules = DefaultRules().compile()
	}
	return e
}

// Result is the outcome of extracting one manual.
type Result struct {
	// Sections are ordered by type, then by document order.
	Sections []domain.Section

	// Pages is the number of pages in the document.
	Pages int

	// PageErrors lists pages that were skipped.
	PageErrors []domain.PageError

	// Chunks is the number of chunks before caps were applied.
	Chunks int

	// SourceHash is the MD5 hex digest of the PDF.
	SourceHash string

	// Detection is the hardware profile inferred from the whole text.
	Detection Detection
}

// Extract builds sections from page texts. The same input always yields
// the same sections in the same order.
func (e *Extractor) Extract(pages []string, modelID, sourceHash string) Result {
	chunks := chunkPages(pages, e.targetSize, e.minSize)

	byType := make(map[domain.SectionType][]string, len(domain.SectionTypes))
	var all bytes.Buffer
	for _, raw := range chunks {
		content := Clean(raw)
		norm := textnorm.Normalise(content)
		t := e.rules.classify(norm)
		byType[t] = append(byType[t], content)
		all.WriteString(norm)
		all.WriteByte(' ')
	}

	var sections []domain.Section
	for _, t := range domain.SectionTypes {
		contents := byType[t]
		if e.typeCap > 0 && len(contents) > e.typeCap {
			contents = contents[:e.typeCap]
		}
		for i, content := range contents {
			sections = append(sections, domain.Section{
				ID:           domain.SectionID(modelID, t, i),
				Title:        Title(content, t),
				Content:      truncateRunes(content, domain.MaxSectionContent),
				Type:         t,
				Keywords:     e.rules.keywords(textnorm.Normalise(content)),
				PrinterModel: modelID,
				SourceHash:   sourceHash,
			})
		}
	}
	if e.totalCap > 0 && len(sections) > e.totalCap {
		sections = sections[:e.totalCap]
	}

	return Result{
		Sections:   sections,
		Pages:      len(pages),
		Chunks:     len(chunks),
		SourceHash: sourceHash,
		Detection:  e.rules.detect(all.String()),
	}
}

// ExtractFile reads a PDF, hashes it and extracts its sections.
// Unreadable pages are skipped and reported in Result.PageErrors.
func (e *Extractor) ExtractFile(_ context.Context, path, modelID string) (Result, error) {
	if modelID == "" {
		return Result{}, fmt.Errorf("%w: model id is required", domain.ErrInvalidInput)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read pdf: %w", err)
	}

	pages, failed, err := e.reader.ReadPages(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("open pdf %s: %w", path, err)
	}

	res := e.Extract(pages, modelID, HashBytes(data))
	res.PageErrors = failed
	return res, nil
}

// Keywords returns the canonical keywords found in text.
func (e *Extractor) Keywords(text string) []string {
	return e.rules.keywords(textnorm.Normalise(text))
}

// HashBytes returns the MD5 hex digest used as a source hash.
func HashBytes(data []byte) string {
	sum := md5.Sum(data) //nolint:gosec // content fingerprint
	return hex.EncodeToString(sum[:])
}

// HashFile returns the MD5 hex digest of a file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New() //nolint:gosec // content fingerprint
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
