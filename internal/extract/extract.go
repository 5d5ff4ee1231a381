// Package extract turns uploaded document files into plain text for the
// ingestion pipeline. PDF files are read page by page via ledongthuc/pdf;
// text and markdown files are read verbatim.
package extract

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Type identifies a supported document format.
type Type int

const (
	// TypeUnknown marks a file whose format is not supported.
	TypeUnknown Type = iota
	// TypePDF is a PDF document.
	TypePDF
	// TypeText is a plain text file.
	TypeText
	// TypeMarkdown is a markdown file, treated as plain text.
	TypeMarkdown
)

// String returns the lowercase name of the type.
func (t Type) String() string {
	switch t {
	case TypePDF:
		return "pdf"
	case TypeText:
		return "text"
	case TypeMarkdown:
		return "markdown"
	default:
		return "unknown"
	}
}

// DetectType determines the document type from the file extension, falling
// back to the declared MIME type when the extension is missing or unknown.
func DetectType(path, mimeType string) Type {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return TypePDF
	case ".txt", ".text", ".log":
		return TypeText
	case ".md", ".markdown":
		return TypeMarkdown
	}

	switch normalizeMIME(mimeType) {
	case "application/pdf":
		return TypePDF
	case "text/plain":
		return TypeText
	case "text/markdown":
		return TypeMarkdown
	}
	return TypeUnknown
}

// normalizeMIME strips parameters ("; charset=utf-8") and lowercases.
func normalizeMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// Text extracts the plain text of the document at path. The document type is
// detected from the file name; pass a MIME type when one is known (uploads),
// or empty otherwise. Returns an error for unsupported formats.
func Text(path, mimeType string, log *slog.Logger) (string, error) {
	switch DetectType(path, mimeType) {
	case TypePDF:
		return pdfText(path, log)
	case TypeText, TypeMarkdown:
		return plainText(path)
	default:
		return "", fmt.Errorf("extract: unsupported document type for %q", filepath.Base(path))
	}
}

// plainText reads the whole file as UTF-8 text.
func plainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("extract: read %s: %w", filepath.Base(path), err)
	}
	return string(data), nil
}

// pdfText extracts text from every page of a PDF, concatenated with blank
// lines between pages so the chunker sees page boundaries as paragraph
// breaks. Pages that fail to extract are skipped with a warning rather than
// failing the whole document.
func pdfText(path string, log *slog.Logger) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("extract: open pdf %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	var b strings.Builder
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			if log != nil {
				log.Warn("skipping unreadable pdf page",
					slog.String("file", filepath.Base(path)),
					slog.Int("page", i),
					slog.Any("error", err),
				)
			}
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}

	return b.String(), nil
}
