package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		for j, val := range row {
			cellName, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue("Sheet1", cellName, val); err != nil {
				t.Fatalf("setting cell: %v", err)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "corpus.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("saving workbook: %v", err)
	}
	return path
}

func TestLoadXLSX(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"Title", "Jurisdiction", "Type", "SourceURL", "Content"},
		{"EU AI Act", "EU", "regulation", "https://example.eu/ai-act", "High-risk systems need conformity assessments."},
		{"Missing body", "uk", "guidance", "", ""},
		{"UK White Paper", "uk", "policy", "", "A pro-innovation approach to AI regulation."},
	})

	docs, err := loadCorpus(path)
	if err != nil {
		t.Fatalf("loading corpus: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 loadable documents, got %d", len(docs))
	}

	first := docs[0]
	if first.Title != "EU AI Act" || first.Jurisdiction != "eu" {
		t.Errorf("first document: %+v", first)
	}
	if first.DocumentType != "regulation" || first.SourceURL != "https://example.eu/ai-act" {
		t.Errorf("first document metadata: %+v", first)
	}
	if !strings.Contains(first.Content, "conformity") {
		t.Errorf("first document content: %q", first.Content)
	}

	if docs[1].Title != "UK White Paper" || docs[1].Jurisdiction != "uk" {
		t.Errorf("second document: %+v", docs[1])
	}
}

func TestLoadXLSXShortRows(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"Title", "Jurisdiction", "Type", "SourceURL", "Content"},
		{"Only a title"},
		{"Complete", "china", "measure", "", "Generative AI services require filing."},
	})

	docs, err := loadCorpus(path)
	if err != nil {
		t.Fatalf("loading corpus: %v", err)
	}
	if len(docs) != 1 || docs[0].Jurisdiction != "china" {
		t.Fatalf("docs: %+v", docs)
	}
}

func TestLoadXLSXHeaderOnly(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"Title", "Jurisdiction", "Type", "SourceURL", "Content"},
	})

	if _, err := loadCorpus(path); err == nil {
		t.Fatal("expected an error for a workbook with no data rows")
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.json")
	body := `[
		{"title": "EU AI Act", "content": "Article 1.", "jurisdiction": "eu", "documentType": "regulation"},
		{"title": "AIDA", "content": "High-impact systems.", "jurisdiction": "canada"}
	]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	docs, err := loadCorpus(path)
	if err != nil {
		t.Fatalf("loading corpus: %v", err)
	}
	if len(docs) != 2 || docs[0].DocumentType != "regulation" || docs[1].Jurisdiction != "canada" {
		t.Errorf("docs: %+v", docs)
	}
}

func TestLoadJSONMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.json")
	if err := os.WriteFile(path, []byte(`{"not": "an array"}`), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if _, err := loadCorpus(path); err == nil {
		t.Fatal("expected an error for a non-array corpus")
	}
}

func TestLoadCorpusUnsupportedExtension(t *testing.T) {
	if _, err := loadCorpus("corpus.csv"); err == nil {
		t.Fatal("expected an error for an unsupported extension")
	}
}
