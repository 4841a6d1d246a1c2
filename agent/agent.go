// Package agent implements the jurisdiction specialists. Every agent
// runs the same code; behaviour differs only through Config, so adding
// a jurisdiction means adding a catalog entry, not a type.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/regsage/regsage/llm"
	"github.com/regsage/regsage/store"
)

// Config describes one jurisdiction agent.
type Config struct {
	ID           string   `json:"id" yaml:"id"`
	Jurisdiction string   `json:"jurisdiction" yaml:"jurisdiction"`
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description" yaml:"description"`
	SystemPrompt string   `json:"systemPrompt" yaml:"system_prompt"`
	Keywords     []string `json:"keywords" yaml:"keywords"`
	Temperature  float64  `json:"temperature" yaml:"temperature"`
	MaxTokens    int      `json:"maxTokens" yaml:"max_tokens"`
}

// Generator issues chat completions. *llm providers satisfy it.
type Generator interface {
	Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}

// Retriever returns scored grounding documents for a query.
// *retrieval.Engine satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, query, jurisdiction string, keywords []string) ([]store.SearchResult, error)
}

// Source identifies one grounding document behind an answer.
type Source struct {
	Title     string  `json:"title"`
	Relevance float64 `json:"relevance"`
	Tokens    int     `json:"tokens"`
}

// Response is one agent's contribution to a query result.
type Response struct {
	AgentID      string   `json:"agentId"`
	Jurisdiction string   `json:"jurisdiction"`
	AgentName    string   `json:"agentName,omitempty"`
	Answer       string   `json:"answer"`
	Sources      []Source `json:"sources"`
}

// Agent answers questions about a single jurisdiction's AI regulation.
type Agent struct {
	cfg       Config
	generator Generator
	retriever Retriever
	model     string
}

// New builds an agent from its configuration. Zero temperature and
// max-tokens values get conservative defaults.
func New(cfg Config, gen Generator, ret Retriever, model string) *Agent {
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.2
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1500
	}
	return &Agent{cfg: cfg, generator: gen, retriever: ret, model: model}
}

// ID returns the agent identifier.
func (a *Agent) ID() string { return a.cfg.ID }

// Jurisdiction returns the jurisdiction this agent covers.
func (a *Agent) Jurisdiction() string { return a.cfg.Jurisdiction }

// Config returns a copy of the agent configuration.
func (a *Agent) Config() Config { return a.cfg }

// Answer retrieves grounding documents for the query and issues one
// generation call. Retrieval and generation errors propagate to the
// caller unmodified; failure isolation is the orchestrator's concern,
// not the agent's.
func (a *Agent) Answer(ctx context.Context, query string, history []llm.Message) (*Response, error) {
	results, err := a.retriever.Retrieve(ctx, query, a.cfg.Jurisdiction, a.cfg.Keywords)
	if err != nil {
		return nil, fmt.Errorf("agent %s: retrieval: %w", a.cfg.ID, err)
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: a.groundedPrompt(results)})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: query})

	resp, err := a.generator.Chat(ctx, llm.ChatRequest{
		Model:       a.model,
		Messages:    messages,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("agent %s: generation: %w", a.cfg.ID, err)
	}

	sources := make([]Source, 0, len(results))
	for _, r := range results {
		sources = append(sources, Source{
			Title:     r.Title,
			Relevance: r.Score,
			Tokens:    len(r.Content) / 4,
		})
	}

	slog.Debug("agent: answered",
		"agent", a.cfg.ID, "sources", len(sources), "tokens", resp.TotalTokens)

	return &Response{
		AgentID:      a.cfg.ID,
		Jurisdiction: a.cfg.Jurisdiction,
		AgentName:    a.cfg.Name,
		Answer:       resp.Content,
		Sources:      sources,
	}, nil
}

// groundedPrompt assembles the agent's fixed system prompt with the
// retrieved documents appended.
func (a *Agent) groundedPrompt(results []store.SearchResult) string {
	var b strings.Builder
	b.WriteString(a.cfg.SystemPrompt)
	b.WriteString("\n\n")

	if len(results) == 0 {
		b.WriteString("No reference documents are available for this question. " +
			"State clearly that the knowledge base does not cover it.")
		return b.String()
	}

	b.WriteString("Reference documents:\n\n")
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, r.Title, r.Content)
	}
	b.WriteString("Answer using only the reference documents above. " +
		"When they do not contain enough evidence, say so explicitly instead of speculating.")
	return b.String()
}
