package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/ClaimSightAI/claimsight-mvp/engine/domain"
)

// Extractor turns uploaded invoice containers (ZIP archives, single PDFs,
// plain-text files) into analyzable documents. A document's ID is the file
// name it was extracted from.
type Extractor struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// FromFile dispatches on the file extension. ZIP archives may yield many
// documents; anything else yields at most one.
func (e *Extractor) FromFile(name string, data []byte) ([]domain.Document, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".zip":
		return e.FromZIP(data)
	case ".pdf":
		doc, err := e.fromPDF(name, data)
		if err != nil {
			return nil, err
		}
		return []domain.Document{doc}, nil
	case ".txt", ".text":
		return e.fromText(name, data), nil
	default:
		return nil, fmt.Errorf("%w: unsupported file format %q", domain.ErrBadContainer, path.Ext(name))
	}
}

// FromZIP extracts every supported file in the archive. Individual files
// that cannot be read or parsed are skipped with a log entry; the archive
// only fails as a whole when it is not a valid ZIP or when no file in it
// produced a document.
func (e *Extractor) FromZIP(data []byte) ([]domain.Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open zip: %v", domain.ErrBadContainer, err)
	}

	var docs []domain.Document
	for _, f := range zr.File {
		if skipEntry(f.Name) {
			continue
		}
		content, err := e.readEntry(f)
		if err != nil {
			e.logger.Warn("extract: skipping archive entry", "file", f.Name, "err", err)
			continue
		}
		if strings.TrimSpace(content) == "" {
			e.logger.Warn("extract: skipping empty archive entry", "file", f.Name)
			continue
		}
		docs = append(docs, domain.Document{ID: path.Base(f.Name), Content: content})
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("extract: %w", domain.ErrNoDocuments)
	}
	return docs, nil
}

func (e *Extractor) readEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open entry: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read entry: %w", err)
	}

	switch strings.ToLower(path.Ext(f.Name)) {
	case ".pdf":
		return pdfText(data)
	case ".txt", ".text":
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported entry format %q", path.Ext(f.Name))
	}
}

func (e *Extractor) fromPDF(name string, data []byte) (domain.Document, error) {
	text, err := pdfText(data)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %s: %v", domain.ErrBadContainer, name, err)
	}
	return domain.Document{ID: path.Base(name), Content: text}, nil
}

func (e *Extractor) fromText(name string, data []byte) []domain.Document {
	return []domain.Document{{ID: path.Base(name), Content: string(data)}}
}

// pdfText concatenates the plain text of every page. Pages that fail to
// render are skipped; only a document with no readable pages is an error.
func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	var b strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		text, err := reader.Page(i).GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("no extractable text in %d pages", pages)
	}
	return out, nil
}

// skipEntry filters directories and archive junk (macOS resource forks,
// hidden files).
func skipEntry(name string) bool {
	if strings.HasSuffix(name, "/") {
		return true
	}
	base := path.Base(name)
	return strings.HasPrefix(name, "__MACOSX/") || strings.HasPrefix(base, ".")
}
