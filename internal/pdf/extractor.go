// Package pdf extracts per-page plain text from PDF documents.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/bull/syllabus-coach/internal/logger"
)

var (
	// ErrNoText means the document parsed but no page carried extractable text,
	// which is what scanned or image-only PDFs look like.
	ErrNoText = errors.New("no text extracted from the PDF; it might be a scanned/image-only PDF")

	ErrInvalidPDF = errors.New("invalid PDF document")
)

// Page is the text of one page. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Extractor reads PDF text with github.com/ledongthuc/pdf.
type Extractor struct {
	log *logger.Logger
}

func NewExtractor(log *logger.Logger) *Extractor {
	if log == nil {
		log = logger.Nop()
	}
	return &Extractor{log: log.With("component", "pdf")}
}

// ExtractFile extracts the pages of the PDF stored at path.
func (e *Extractor) ExtractFile(ctx context.Context, path string) ([]Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat pdf: %w", err)
	}
	return e.Extract(ctx, f, info.Size())
}

// ExtractBytes extracts the pages of an in-memory PDF.
func (e *Extractor) ExtractBytes(ctx context.Context, data []byte) ([]Page, error) {
	return e.Extract(ctx, bytes.NewReader(data), int64(len(data)))
}

// Extract returns every page that carries text, in page order. Pages whose text
// cannot be decoded are skipped. If no page yields text, ErrNoText is returned.
func (e *Extractor) Extract(ctx context.Context, r io.ReaderAt, size int64) (pages []Page, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = fmt.Errorf("%w: %v", ErrInvalidPDF, rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			e.log.Debug("Skipping unreadable page", "page", i, "error", err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}

	e.log.Debug("Extracted PDF text", "pages_total", total, "pages_with_text", len(pages))

	if len(pages) == 0 {
		return nil, ErrNoText
	}
	return pages, nil
}
