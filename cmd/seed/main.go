// Command seed bulk-loads a regulation corpus into the engine database.
//
// Usage:
//
//	go run ./cmd/seed -file corpus.xlsx -config config.yaml
//	go run ./cmd/seed -file corpus.json
//
// XLSX workbooks use the first sheet with a header row and the columns
// Title | Jurisdiction | Type | SourceURL | Content. JSON files hold an
// array of document drafts in the ingest request format.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/regsage/regsage"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (JSON or YAML)")
	filePath := flag.String("file", "", "Corpus file to load (.xlsx or .json)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: seed -file corpus.xlsx [-config config.yaml]")
		os.Exit(2)
	}

	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	cfg := regsage.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = regsage.LoadConfig(*configPath)
		if err != nil {
			slog.Error("loading config", "error", err)
			os.Exit(1)
		}
	}
	if v := os.Getenv("REGSAGE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}

	docs, err := loadCorpus(*filePath)
	if err != nil {
		slog.Error("loading corpus", "file", *filePath, "error", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		slog.Error("corpus file has no loadable documents", "file", *filePath)
		os.Exit(1)
	}
	slog.Info("corpus loaded", "file", *filePath, "documents", len(docs))

	engine, err := regsage.New(cfg)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	outcomes := engine.AddDocumentBatch(context.Background(), docs)

	loaded, failed := 0, 0
	for _, o := range outcomes {
		if o.Error != "" {
			failed++
			slog.Error("document failed", "title", o.Title, "error", o.Error)
			continue
		}
		loaded++
	}

	fmt.Printf("Loaded %d of %d documents (%d failed)\n", loaded, len(outcomes), failed)
	if failed > 0 {
		os.Exit(1)
	}
}
