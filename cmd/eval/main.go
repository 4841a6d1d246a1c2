// Command eval runs question-answering suites against a regulation corpus.
//
// Usage:
//
//	go run ./cmd/eval -config regsage.yaml
//	go run ./cmd/eval -dataset suites/routing.json -output report.json
//
// Without -dataset the built-in baseline suite runs; it assumes a corpus
// loaded beforehand, for example with cmd/seed. A custom suite is a JSON
// file in the eval.Dataset shape. The exit code is non-zero when any
// test fails, so the command slots into CI.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/regsage/regsage"
	"github.com/regsage/regsage/eval"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to config file (JSON or YAML)")
		datasetPath = flag.String("dataset", "", "Path to dataset JSON (default: built-in baseline suite)")
		outputFile  = flag.String("output", "", "Path to write the JSON report")
	)
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	cfg := regsage.DefaultConfig()
	if *configPath != "" {
		loaded, err := regsage.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		cfg = loaded
	}
	if v := os.Getenv("REGSAGE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}

	dataset := eval.BaselineDataset()
	if *datasetPath != "" {
		loaded, err := eval.LoadDataset(*datasetPath)
		if err != nil {
			log.Fatalf("loading dataset: %v", err)
		}
		dataset = loaded
	}

	engine, err := regsage.New(cfg)
	if err != nil {
		log.Fatalf("creating engine: %v", err)
	}
	defer engine.Close()

	fmt.Fprintf(os.Stderr, "Running %s (%d tests)...\n", dataset.Name, len(dataset.Tests))
	report, err := eval.NewEvaluator(engine).Run(context.Background(), dataset)
	if err != nil {
		log.Fatalf("running %s: %v", dataset.Name, err)
	}

	fmt.Println(eval.FormatReport(report))

	if *outputFile != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			log.Fatalf("encoding report: %v", err)
		}
		if err := os.WriteFile(*outputFile, data, 0o644); err != nil {
			log.Fatalf("writing report: %v", err)
		}
		fmt.Fprintf(os.Stderr, "JSON report written to: %s\n", *outputFile)
	}

	if report.Failed > 0 {
		os.Exit(1)
	}
}
