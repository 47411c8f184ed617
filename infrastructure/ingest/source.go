package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/iam-archie/school-chatbot/pkg/logger"
)

// Page is the text of one PDF page or one loaded text section.
type Page struct {
	Source string
	Number int
	Text   string
}

// TextSections numbers each text as section i+1 of source.
func TextSections(source string, texts []string) []Page {
	pages := make([]Page, 0, len(texts))
	for i, text := range texts {
		pages = append(pages, Page{Source: source, Number: i + 1, Text: text})
	}
	return pages
}

// LoadPDF extracts the text of every page of the file at path.
func LoadPDF(path string, log logger.Logger) ([]Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()
	return readPages(r, path, log), nil
}

// ReadPDF extracts page text from an in-memory or uploaded PDF.
func ReadPDF(source string, r io.ReaderAt, size int64, log logger.Logger) ([]Page, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("read pdf %s: %w", source, err)
	}
	return readPages(reader, source, log), nil
}

func readPages(r *pdf.Reader, source string, log logger.Logger) []Page {
	return collectPages(source, r.NumPage(), func(n int) (string, error) {
		p := r.Page(n)
		if p.V.IsNull() {
			return "", nil
		}
		return p.GetPlainText(nil)
	}, log)
}

// collectPages keeps pages 1..total with text. A page that fails to
// extract is logged and skipped.
func collectPages(source string, total int, extract func(n int) (string, error), log logger.Logger) []Page {
	if log == nil {
		log = logger.NewNop()
	}
	pages := make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		text, err := extract(i)
		if err != nil {
			log.Warn("skipping unreadable page", "source", source, "page", i, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Source: source, Number: i, Text: text})
	}
	return pages
}
