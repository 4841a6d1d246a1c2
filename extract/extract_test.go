package extract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestTextPlainFile(t *testing.T) {
	path := writeFile(t, "act.txt", "Article 1.\r\nScope and definitions.\r\n")

	got, err := Text(path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := "Article 1.\nScope and definitions."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTextMarkdown(t *testing.T) {
	path := writeFile(t, "guidance.md", "# Guidance\n\nRegulators should publish principles.")

	got, err := Text(path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(got, "Regulators should publish principles.") {
		t.Errorf("markdown body lost: %q", got)
	}
}

func TestTextUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "slides.pptx", "not really a deck")

	_, err := Text(path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("got %v, want ErrUnsupportedFormat", err)
	}
}

func TestTextMissingFile(t *testing.T) {
	_, err := Text(filepath.Join(t.TempDir(), "absent.txt"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if errors.Is(err, ErrUnsupportedFormat) {
		t.Error("a missing file is not a format problem")
	}
}

func TestTextCorruptPDF(t *testing.T) {
	path := writeFile(t, "broken.pdf", "this is not a pdf")

	if _, err := Text(path); err == nil {
		t.Fatal("expected an error for a corrupt pdf")
	}
}

func TestSupported(t *testing.T) {
	for _, ext := range []string{".txt", ".md", ".pdf", ".PDF", ".Txt"} {
		if !Supported(ext) {
			t.Errorf("Supported(%q) = false", ext)
		}
	}
	for _, ext := range []string{".docx", ".xlsx", ".html", ""} {
		if Supported(ext) {
			t.Errorf("Supported(%q) = true", ext)
		}
	}
}
