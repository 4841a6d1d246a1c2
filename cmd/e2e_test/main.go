// Command e2e_test runs a live end-to-end smoke check against real
// providers: it builds an engine on a throwaway database, seeds a small
// three-jurisdiction corpus, then exercises explicit selection,
// auto-routing, and a follow-up turn in the same conversation. The
// defaults assume a local Ollama; set REGSAGE_CHAT_* and REGSAGE_EMBED_*
// to point elsewhere.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/regsage/regsage"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	tmpDir, _ := os.MkdirTemp("", "regsage-e2e-*")
	defer os.RemoveAll(tmpDir)

	cfg := regsage.DefaultConfig()
	cfg.DBPath = tmpDir + "/test.db"
	applyEnv(&cfg)

	engine, err := regsage.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Fprintln(os.Stderr, "\n=== SEEDING CORPUS ===")
	for _, outcome := range engine.AddDocumentBatch(ctx, corpus()) {
		if outcome.Error != "" {
			fmt.Fprintf(os.Stderr, "seeding %q: %s\n", outcome.Title, outcome.Error)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "seeded %q (%d chunks)\n", outcome.Title, len(outcome.DocumentIDs))
	}

	// Explicit jurisdiction selection.
	question := "What must providers of high-risk AI systems do before placing them on the market?"
	fmt.Fprintf(os.Stderr, "\n=== EXPLICIT QUERY (eu): %s ===\n", question)
	first, err := engine.Query(ctx, regsage.QueryRequest{
		Message:       question,
		Jurisdictions: []string{"eu"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "query error: %v\n", err)
		os.Exit(1)
	}
	printResult(first)

	// Follow-up in the same conversation; the agent should see the
	// first exchange as history.
	followUp := "And what penalties apply if they do not?"
	fmt.Fprintf(os.Stderr, "\n=== FOLLOW-UP: %s ===\n", followUp)
	second, err := engine.Query(ctx, regsage.QueryRequest{
		Message:        followUp,
		ConversationID: first.ConversationID,
		Jurisdictions:  []string{"eu"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "follow-up error: %v\n", err)
		os.Exit(1)
	}
	printResult(second)

	// Auto-routed comparison across jurisdictions.
	comparison := "Compare how the EU and the United States approach AI regulation."
	fmt.Fprintf(os.Stderr, "\n=== AUTO-ROUTED QUERY: %s ===\n", comparison)
	third, err := engine.Query(ctx, regsage.QueryRequest{Message: comparison})
	if err != nil {
		fmt.Fprintf(os.Stderr, "auto-routed query error: %v\n", err)
		os.Exit(1)
	}
	printResult(third)

	stats, err := engine.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "\n=== STATS ===\ndocuments=%d embeddings=%d conversations=%d messages=%d\n",
		stats.Documents, stats.Embeddings, stats.Conversations, stats.Messages)

	// The last result goes to stdout as JSON for scripted inspection.
	out, _ := json.MarshalIndent(third, "", "  ")
	fmt.Println(string(out))
}

func applyEnv(cfg *regsage.Config) {
	if v := os.Getenv("REGSAGE_CHAT_PROVIDER"); v != "" {
		cfg.Chat.Provider = v
	}
	if v := os.Getenv("REGSAGE_CHAT_MODEL"); v != "" {
		cfg.Chat.Model = v
	}
	if v := os.Getenv("REGSAGE_CHAT_BASE_URL"); v != "" {
		cfg.Chat.BaseURL = v
	}
	if v := os.Getenv("REGSAGE_CHAT_API_KEY"); v != "" {
		cfg.Chat.APIKey = v
	}
	if v := os.Getenv("REGSAGE_EMBED_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("REGSAGE_EMBED_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("REGSAGE_EMBED_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("REGSAGE_EMBED_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
}

func printResult(result *regsage.QueryResult) {
	fmt.Fprintf(os.Stderr, "routed to: %v (auto=%v)\n",
		result.RoutingInfo.SelectedJurisdictions, result.RoutingInfo.AutoRouted)
	if result.RoutingInfo.ClarificationNeeded {
		fmt.Fprintln(os.Stderr, "clarification requested")
	}
	for _, resp := range result.Responses {
		fmt.Fprintf(os.Stderr, "\n[%s] %s\n", resp.AgentID, resp.Answer)
		for _, src := range resp.Sources {
			fmt.Fprintf(os.Stderr, "  source: %s (relevance %.2f)\n", src.Title, src.Relevance)
		}
	}
	if result.MasterSummary != "" {
		fmt.Fprintf(os.Stderr, "\n[summary] %s\n", result.MasterSummary)
	}
}

func corpus() []regsage.DocumentInput {
	return []regsage.DocumentInput{
		{
			Title:        "EU AI Act Core Obligations",
			Jurisdiction: "eu",
			DocumentType: "regulation",
			Content: "The EU AI Act follows a risk-based approach. Providers of " +
				"high-risk AI systems must complete a conformity assessment before " +
				"placing the system on the market, maintain technical documentation, " +
				"register the system in the EU database, and operate a risk management " +
				"system across the lifecycle. Certain practices such as social scoring " +
				"by public authorities are prohibited outright. Non-compliance with " +
				"prohibited practice rules carries fines of up to 35 million euros or " +
				"7 percent of worldwide annual turnover, whichever is higher.",
		},
		{
			Title:        "US Federal AI Governance Overview",
			Jurisdiction: "us-federal",
			DocumentType: "guidance",
			Content: "The United States has no single federal AI statute. Federal " +
				"policy rests on executive orders, sector regulators, and the NIST AI " +
				"Risk Management Framework, a voluntary framework organized around " +
				"govern, map, measure, and manage functions. Agencies apply existing " +
				"consumer protection and civil rights law to AI systems.",
		},
		{
			Title:        "UK Pro-Innovation AI Framework",
			Jurisdiction: "uk",
			DocumentType: "guidance",
			Content: "The United Kingdom takes a principles-based, pro-innovation " +
				"approach. Instead of a single AI statute, existing sector regulators " +
				"apply five cross-cutting principles: safety, transparency, fairness, " +
				"accountability, and contestability. Regulators issue domain guidance " +
				"rather than uniform binding rules.",
		},
	}
}
