// Package extract turns uploaded document files into per-page plain text.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// Page is one page of extracted text. Numbers are 1-based.
type Page struct {
	Number int
	Text   string
}

// Extractor reads supported document formats (.pdf, .txt) from local files.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// ExtractPages returns the non-empty pages of the file at path. The format is
// chosen by file extension; unknown extensions fail with
// domain.ErrUnsupportedFormat, unreadable files with domain.ErrExtractionFailed.
func (e *Extractor) ExtractPages(path string) ([]Page, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(path)
	case ".txt":
		return extractText(path)
	default:
		return nil, fmt.Errorf("file %s: %w", filepath.Base(path), domain.ErrUnsupportedFormat)
	}
}

func extractPDF(path string) ([]Page, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), domain.ErrExtractionFailed)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", filepath.Base(path), domain.ErrExtractionFailed)
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("read pdf %s: %v: %w", filepath.Base(path), err, domain.ErrExtractionFailed)
	}

	var pages []Page
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d of %s: %v: %w",
				i, filepath.Base(path), err, domain.ErrExtractionFailed)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}

// extractText treats the whole file as a single page.
func extractText(path string) ([]Page, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), domain.ErrExtractionFailed)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	return []Page{{Number: 1, Text: string(data)}}, nil
}
