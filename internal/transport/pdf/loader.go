// Package pdf extracts page text from PDF files. Plain-text files are read
// as a single page.
package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfrag/internal/domain"
)

// Loader reads documents from the local filesystem.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a Loader.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

var textExtensions = map[string]bool{".txt": true, ".md": true, ".text": true}

// Load extracts text page by page. Unreadable or malformed files wrap
// domain.ErrDocumentUnreadable.
func (l *Loader) Load(ctx context.Context, path string) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err //nolint:wrapcheck // context error
	}
	if _, err := os.Stat(path); err != nil {
		return domain.Document{}, fmt.Errorf("open %s: %w: %w", path, domain.ErrDocumentUnreadable, err)
	}

	if textExtensions[strings.ToLower(filepath.Ext(path))] {
		return loadText(path)
	}
	return l.loadPDF(ctx, path)
}

func loadText(path string) (domain.Document, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return domain.Document{}, fmt.Errorf("read %s: %w: %w", path, domain.ErrDocumentUnreadable, err)
	}
	return domain.Document{
		Path:  path,
		Pages: []domain.Page{{Number: 1, Text: string(data)}},
	}, nil
}

func (l *Loader) loadPDF(ctx context.Context, path string) (doc domain.Document, err error) {
	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse %s: %v: %w", path, r, domain.ErrDocumentUnreadable)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("parse %s: %w: %w", path, domain.ErrDocumentUnreadable, err)
	}
	defer func() { _ = f.Close() }()

	doc = domain.Document{Path: path}
	total := r.NumPage()

	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return domain.Document{}, err //nolint:wrapcheck // context error
		}

		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		// font names are page-local, so each page resolves its own
		text, err := p.GetPlainText(nil)
		if err != nil {
			l.logger.Warn("skip unreadable page",
				zap.String("path", path), zap.Int("page", i), zap.Error(err))
			continue
		}
		doc.Pages = append(doc.Pages, domain.Page{Number: i, Text: text})
	}

	l.logger.Debug("pdf loaded",
		zap.String("path", path), zap.Int("pages", total), zap.Int("text_pages", len(doc.Pages)))
	return doc, nil
}
