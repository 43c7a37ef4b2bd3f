package extract

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// FileExtractor pulls plain text out of stored documents. PDFs go through a
// PDF text extractor; everything else is read as-is.
type FileExtractor struct{}

// New creates a FileExtractor.
func New() *FileExtractor { return &FileExtractor{} }

// Text returns the full plain text of a document.
func (x *FileExtractor) Text(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return pdfText(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return string(data), nil
}

// Preview returns at most maxChars of a document's text.
func (x *FileExtractor) Preview(path string, maxChars int) (string, error) {
	text, err := x.Text(path)
	if err != nil {
		return "", err
	}
	if maxChars > 0 && len(text) > maxChars {
		text = text[:maxChars]
	}
	return text, nil
}

func pdfText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	content, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(content); err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	return buf.String(), nil
}
