// Package routing implements the master orchestrator: it decides which
// jurisdiction agents a query concerns, fans the query out to them,
// synthesizes a cross-jurisdiction summary, and proposes follow-up
// questions. One query costs at most four generation calls: routing,
// the agents themselves, aggregation, and suggestions.
package routing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/regsage/regsage/agent"
	"github.com/regsage/regsage/llm"
)

// MasterAgentID marks responses produced by the orchestrator itself
// rather than by a jurisdiction agent.
const MasterAgentID = "master"

// DefaultJurisdictions is the fallback selection when the classifier
// fails or returns nothing usable.
var DefaultJurisdictions = []string{"eu", "us-federal"}

// Config controls the orchestrator.
type Config struct {
	Model        string        // generation model for routing, summary and suggestions
	AgentTimeout time.Duration // per-agent budget during dispatch, 0 = none
}

// Request is one user turn to orchestrate.
type Request struct {
	Message       string
	Jurisdictions []string // explicit routing, bypasses the classifier
	AutoRoute     bool     // when false and no explicit list, use the full catalog
	History       []llm.Message
}

// Info describes how a request was routed.
type Info struct {
	SelectedJurisdictions []string `json:"selectedJurisdictions"`
	AutoRouted            bool     `json:"autoRouted"`
	Rationale             string   `json:"rationale,omitempty"`
	ClarificationNeeded   bool     `json:"clarificationNeeded,omitempty"`
	FailedJurisdictions   []string `json:"failedJurisdictions,omitempty"`
}

// Result is the assembled answer for one request.
type Result struct {
	Responses          []agent.Response `json:"responses"`
	MasterSummary      string           `json:"masterSummary,omitempty"`
	RoutingInfo        Info             `json:"routingInfo"`
	SuggestedQuestions []string         `json:"suggestedQuestions,omitempty"`
}

// Answerer is the jurisdiction agent surface the orchestrator needs.
// *agent.Agent satisfies it.
type Answerer interface {
	Answer(ctx context.Context, query string, history []llm.Message) (*agent.Response, error)
}

// Master routes queries across the jurisdiction agents.
type Master struct {
	generator agent.Generator
	agents    map[string]Answerer
	catalog   []agent.Config
	cfg       Config
}

// New creates the orchestrator. agents must be keyed by catalog id.
func New(gen agent.Generator, agents map[string]Answerer, catalog []agent.Config, cfg Config) *Master {
	return &Master{generator: gen, agents: agents, catalog: catalog, cfg: cfg}
}

// Handle runs the full pipeline for one request: route, dispatch,
// aggregate, respond. A clarification outcome is terminal and returns
// a single master response. Zero agent successes still produce a
// well-formed result with an empty response list.
func (m *Master) Handle(ctx context.Context, req Request) (*Result, error) {
	selected, info, err := m.route(ctx, req)
	if err != nil {
		return nil, err
	}

	if info.ClarificationNeeded {
		return m.clarify(ctx, req, info)
	}

	responses, failed := m.dispatch(ctx, req, selected)
	info.FailedJurisdictions = failed

	result := &Result{
		Responses:   responses,
		RoutingInfo: info,
	}

	if len(responses) == 0 {
		// Total dispatch failure: deliver structure, not an error.
		slog.Warn("routing: no agent produced a response",
			"selected", selected, "failed", failed)
		result.Responses = []agent.Response{}
		result.SuggestedQuestions = fallbackQuestions()
		return result, nil
	}

	if len(responses) >= 2 {
		if summary, err := m.aggregate(ctx, req.Message, responses); err != nil {
			slog.Warn("routing: summary generation failed", "error", err)
		} else {
			result.MasterSummary = summary
		}
	}

	result.SuggestedQuestions = m.suggestQuestions(ctx, req.Message, responses)
	return result, nil
}

// dispatch fans the query out to every selected jurisdiction agent and
// waits for all of them to settle. One agent's failure never aborts the
// others; failures are logged and dropped. Successes keep selection
// order.
func (m *Master) dispatch(ctx context.Context, req Request, selected []string) ([]agent.Response, []string) {
	type outcome struct {
		resp *agent.Response
		err  error
	}
	outcomes := make([]outcome, len(selected))

	var wg sync.WaitGroup
	for i, id := range selected {
		ag, ok := m.agents[id]
		if !ok {
			outcomes[i] = outcome{err: fmt.Errorf("no agent for jurisdiction %q", id)}
			continue
		}
		wg.Add(1)
		i := i // per-iteration copy: go.mod predates Go 1.22 loopvar scoping
		go func() {
			defer wg.Done()
			actx := ctx
			if m.cfg.AgentTimeout > 0 {
				var cancel context.CancelFunc
				actx, cancel = context.WithTimeout(ctx, m.cfg.AgentTimeout)
				defer cancel()
			}
			resp, err := ag.Answer(actx, req.Message, req.History)
			outcomes[i] = outcome{resp: resp, err: err}
		}()
	}
	wg.Wait()

	var responses []agent.Response
	var failed []string
	for i, o := range outcomes {
		if o.err != nil {
			slog.Warn("routing: agent failed",
				"jurisdiction", selected[i], "error", o.err)
			failed = append(failed, selected[i])
			continue
		}
		if o.resp != nil {
			responses = append(responses, *o.resp)
		}
	}
	return responses, failed
}

// aggregate asks the generator for a comparative synthesis of two or
// more agent answers.
func (m *Master) aggregate(ctx context.Context, query string, responses []agent.Response) (string, error) {
	prompt := buildSummaryPrompt(query, responses)
	resp, err := m.generator.Chat(ctx, llm.ChatRequest{
		Model: m.cfg.Model,
		Messages: []llm.Message{
			{Role: "system", Content: summarySystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   1200,
	})
	if err != nil {
		return "", fmt.Errorf("summary generation: %w", err)
	}
	return resp.Content, nil
}

const summarySystemPrompt = "You synthesize answers from jurisdiction specialists " +
	"into one comparison. Cover the key differences, common themes, and actionable " +
	"guidance. Do not invent rules the specialists did not mention."

func buildSummaryPrompt(query string, responses []agent.Response) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The user asked: %q\n\n", query)
	for _, r := range responses {
		name := r.AgentName
		if name == "" {
			name = r.AgentID
		}
		fmt.Fprintf(&b, "--- %s (%s) ---\n%s\n\n", name, r.Jurisdiction, r.Answer)
	}
	b.WriteString("Write the comparative synthesis.")
	return b.String()
}
