package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/regsage/regsage"
)

// loadCorpus reads document drafts from an XLSX workbook or a JSON
// array, dispatching on the file extension.
func loadCorpus(path string) ([]regsage.DocumentInput, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return loadXLSX(path)
	case ".json":
		return loadJSON(path)
	}
	return nil, fmt.Errorf("unsupported corpus format %q (want .xlsx or .json)", filepath.Ext(path))
}

func loadJSON(path string) ([]regsage.DocumentInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var docs []regsage.DocumentInput
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parsing corpus JSON: %w", err)
	}
	return docs, nil
}

// loadXLSX reads the first sheet of a workbook. The first row is a
// header; data rows carry Title | Jurisdiction | Type | SourceURL |
// Content. Rows missing a required column are skipped with a warning so
// one bad row never sinks a corpus load.
func loadXLSX(path string) ([]regsage.DocumentInput, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %s has no data rows", sheets[0])
	}

	var docs []regsage.DocumentInput
	for i, row := range rows[1:] {
		doc := regsage.DocumentInput{
			Title:        cell(row, 0),
			Jurisdiction: strings.ToLower(cell(row, 1)),
			DocumentType: cell(row, 2),
			SourceURL:    cell(row, 3),
			Content:      cell(row, 4),
		}
		if doc.Title == "" && doc.Jurisdiction == "" && doc.Content == "" {
			continue // blank row
		}
		if doc.Title == "" || doc.Jurisdiction == "" || doc.Content == "" {
			slog.Warn("skipping incomplete row", "row", i+2, "title", doc.Title)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// cell returns the trimmed value of column i, tolerating short rows.
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
