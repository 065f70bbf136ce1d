package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/ClaimSightAI/claimsight-mvp/engine/domain"
)

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestFromZIP(t *testing.T) {
	e := New(nil)
	data := zipOf(t, map[string]string{
		"invoices/inv-1.txt":   "Lunch at cafe ₹180",
		"invoices/inv-2.txt":   "Taxi to client meeting ₹500",
		"invoices/":            "",
		"__MACOSX/inv-1.txt":   "junk",
		"invoices/.hidden.txt": "junk",
		"invoices/notes.md":    "unsupported format",
		"invoices/blank.txt":   "   \n\t",
		"invoices/corrupt.pdf": "not a pdf",
	})

	docs, err := e.FromZIP(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2: %+v", len(docs), docs)
	}
	for _, d := range docs {
		if d.ID != "inv-1.txt" && d.ID != "inv-2.txt" {
			t.Errorf("unexpected document %q", d.ID)
		}
		if d.Content == "" {
			t.Errorf("document %q has no content", d.ID)
		}
	}
}

func TestFromZIP_NothingExtractable(t *testing.T) {
	e := New(nil)
	data := zipOf(t, map[string]string{
		"readme.md":   "unsupported",
		"corrupt.pdf": "not a pdf",
	})
	_, err := e.FromZIP(data)
	if !errors.Is(err, domain.ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
	if !errors.Is(err, domain.ErrAggregate) {
		t.Errorf("ErrNoDocuments should carry the aggregate error class, got %v", err)
	}
}

func TestFromZIP_NotAZip(t *testing.T) {
	e := New(nil)
	_, err := e.FromZIP([]byte("definitely not a zip archive"))
	if !errors.Is(err, domain.ErrBadContainer) {
		t.Errorf("expected ErrBadContainer, got %v", err)
	}
}

func TestFromFile(t *testing.T) {
	e := New(nil)

	t.Run("text file", func(t *testing.T) {
		docs, err := e.FromFile("uploads/receipt.txt", []byte("Hotel stay ₹1200"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(docs) != 1 || docs[0].ID != "receipt.txt" || docs[0].Content != "Hotel stay ₹1200" {
			t.Errorf("docs = %+v", docs)
		}
	})

	t.Run("zip dispatch", func(t *testing.T) {
		data := zipOf(t, map[string]string{"inv.txt": "Bus ticket ₹90"})
		docs, err := e.FromFile("batch.ZIP", data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(docs) != 1 || docs[0].ID != "inv.txt" {
			t.Errorf("docs = %+v", docs)
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := e.FromFile("invoice.docx", []byte("x"))
		if !errors.Is(err, domain.ErrBadContainer) {
			t.Errorf("expected ErrBadContainer, got %v", err)
		}
	})

	t.Run("corrupt pdf", func(t *testing.T) {
		_, err := e.FromFile("invoice.pdf", []byte("not a pdf"))
		if !errors.Is(err, domain.ErrBadContainer) {
			t.Errorf("expected ErrBadContainer, got %v", err)
		}
	})
}
