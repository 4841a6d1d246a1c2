// Package extract pulls plain text out of uploaded document files.
// It serves the upload boundary only; ingestion itself takes text.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat is returned for file types no extractor handles.
var ErrUnsupportedFormat = errors.New("extract: unsupported document format")

// Supported reports whether Text can handle files with this extension.
// The extension includes the leading dot; case is ignored.
func Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".txt", ".md", ".pdf":
		return true
	}
	return false
}

// Text extracts the plain text of a document file, dispatching on the
// file extension.
func Text(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", ext, err)
		}
		return normalize(string(data)), nil
	case ".pdf":
		return pdfText(path)
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// pdfText concatenates the extractable text of every page. Pages whose
// text layer cannot be decoded are skipped rather than failing the file.
func pdfText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("no extractable text in %s", filepath.Base(path))
	}
	return normalize(strings.Join(pages, "\n\n")), nil
}

// normalize unifies line endings and trims outer whitespace.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(s)
}
