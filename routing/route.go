package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/regsage/regsage/agent"
	"github.com/regsage/regsage/llm"
)

// ClarificationNeeded is the sentinel the classifier emits when a query
// cannot be mapped to any jurisdiction. It is a routing outcome, not an
// error.
const ClarificationNeeded = "CLARIFICATION_NEEDED"

// ErrUnknownJurisdiction is returned when a request explicitly names
// only jurisdictions outside the catalog.
var ErrUnknownJurisdiction = errors.New("routing: no known jurisdiction in request")

// routeDecision is the JSON shape returned by the classifier call.
type routeDecision struct {
	Jurisdictions []string `json:"jurisdictions"`
	Rationale     string   `json:"rationale"`
}

// route decides which jurisdictions handle the request. Explicit
// jurisdictions are honoured verbatim after dropping unknown ids;
// with auto-routing disabled the whole catalog answers; otherwise the
// classifier picks, falling back to DefaultJurisdictions when it fails.
func (m *Master) route(ctx context.Context, req Request) ([]string, Info, error) {
	if len(req.Jurisdictions) > 0 {
		valid := m.filterKnown(req.Jurisdictions)
		if len(valid) == 0 {
			return nil, Info{}, fmt.Errorf("%w: %v", ErrUnknownJurisdiction, req.Jurisdictions)
		}
		return valid, Info{
			SelectedJurisdictions: valid,
			AutoRouted:            false,
			Rationale:             "jurisdictions named in the request",
		}, nil
	}

	if !req.AutoRoute {
		all := agent.IDs(m.catalog)
		return all, Info{
			SelectedJurisdictions: all,
			AutoRouted:            false,
			Rationale:             "auto-routing disabled, all jurisdictions consulted",
		}, nil
	}

	return m.classify(ctx, req.Message)
}

// classify makes one generation call to pick jurisdictions for the
// query. Provider errors, unparseable output and empty selections all
// degrade to the fixed default pair instead of failing the request.
func (m *Master) classify(ctx context.Context, query string) ([]string, Info, error) {
	resp, err := m.generator.Chat(ctx, llm.ChatRequest{
		Model: m.cfg.Model,
		Messages: []llm.Message{
			{Role: "system", Content: m.classifierPrompt()},
			{Role: "user", Content: query},
		},
		Temperature:    0,
		MaxTokens:      300,
		ResponseFormat: "json_object",
	})
	if err != nil {
		slog.Warn("routing: classifier call failed", "error", err)
		return m.defaultSelection("classifier unavailable, defaulting to EU and US federal coverage")
	}

	decision, err := parseRouteDecision(resp.Content)
	if err != nil {
		slog.Warn("routing: classifier output unparseable", "error", err)
		return m.defaultSelection("classifier output unusable, defaulting to EU and US federal coverage")
	}

	if len(decision.Jurisdictions) == 1 && decision.Jurisdictions[0] == ClarificationNeeded {
		return nil, Info{
			AutoRouted:          true,
			ClarificationNeeded: true,
			Rationale:           decision.Rationale,
		}, nil
	}

	valid := m.filterKnown(decision.Jurisdictions)
	if len(valid) == 0 {
		return m.defaultSelection("no known jurisdiction identified, defaulting to EU and US federal coverage")
	}

	rationale := decision.Rationale
	if rationale == "" {
		rationale = "selected by classifier"
	}
	return valid, Info{
		SelectedJurisdictions: valid,
		AutoRouted:            true,
		Rationale:             rationale,
	}, nil
}

// clarify produces the terminal clarification response: one master
// message listing the catalog, no dispatch, no summary. A provider
// failure here fails the request; there is no deterministic fallback
// text worth returning.
func (m *Master) clarify(ctx context.Context, req Request, info Info) (*Result, error) {
	resp, err := m.generator.Chat(ctx, llm.ChatRequest{
		Model: m.cfg.Model,
		Messages: []llm.Message{
			{Role: "system", Content: clarifySystemPrompt},
			{Role: "user", Content: buildClarifyPrompt(m.catalog, req.Message)},
		},
		Temperature: 0.3,
		MaxTokens:   400,
	})
	if err != nil {
		return nil, fmt.Errorf("clarification generation: %w", err)
	}

	info.SelectedJurisdictions = []string{}
	return &Result{
		Responses: []agent.Response{{
			AgentID: MasterAgentID,
			Answer:  resp.Content,
			Sources: []agent.Source{},
		}},
		RoutingInfo: info,
	}, nil
}

// defaultSelection routes to the fixed default pair, or to the whole
// catalog if a custom catalog lacks the defaults.
func (m *Master) defaultSelection(rationale string) ([]string, Info, error) {
	selected := m.filterKnown(DefaultJurisdictions)
	if len(selected) == 0 {
		selected = agent.IDs(m.catalog)
	}
	return selected, Info{
		SelectedJurisdictions: selected,
		AutoRouted:            true,
		Rationale:             rationale,
	}, nil
}

// filterKnown keeps only catalog ids, lowercased, deduplicated, in
// input order.
func (m *Master) filterKnown(ids []string) []string {
	known := make(map[string]bool, len(m.catalog))
	for _, c := range m.catalog {
		known[c.ID] = true
	}
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if known[id] && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// defensive JSON parsing
// ---------------------------------------------------------------------------

// codeBlockRe strips markdown code fences from LLM output.
var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

func parseRouteDecision(raw string) (routeDecision, error) {
	var decision routeDecision
	jsonStr, err := extractJSON(raw)
	if err != nil {
		return decision, err
	}
	if err := json.Unmarshal([]byte(jsonStr), &decision); err != nil {
		return decision, fmt.Errorf("unmarshalling route decision: %w", err)
	}
	return decision, nil
}

// extractJSON attempts to find a valid JSON object in the LLM response
// text. It handles common LLM quirks: markdown code blocks, prose
// before or after the JSON.
func extractJSON(raw string) (string, error) {
	if m := codeBlockRe.FindStringSubmatch(raw); len(m) > 1 {
		raw = m[1]
	}
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "{") {
		return raw, nil
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1], nil
	}
	return "", fmt.Errorf("no JSON object found in response")
}

// extractJSONArray is the array counterpart of extractJSON.
func extractJSONArray(raw string) (string, error) {
	if m := codeBlockRe.FindStringSubmatch(raw); len(m) > 1 {
		raw = m[1]
	}
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "[") {
		return raw, nil
	}
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start >= 0 && end > start {
		return raw[start : end+1], nil
	}
	return "", fmt.Errorf("no JSON array found in response")
}

// ---------------------------------------------------------------------------
// prompts
// ---------------------------------------------------------------------------

const clarifySystemPrompt = "You help users of a multi-jurisdiction AI regulation " +
	"assistant narrow their question to specific jurisdictions. Be brief and concrete."

func (m *Master) classifierPrompt() string {
	var b strings.Builder
	b.WriteString("You route questions about AI regulation to jurisdiction specialists.\n\n")
	b.WriteString("Known jurisdictions:\n")
	for _, c := range m.catalog {
		fmt.Fprintf(&b, "- %s: %s\n", c.ID, c.Description)
	}
	b.WriteString(`
Reply with a JSON object: {"jurisdictions": ["id", ...], "rationale": "one sentence"}.
Pick only ids from the list above. If the question names no jurisdiction and cannot be
answered without knowing one, reply {"jurisdictions": ["CLARIFICATION_NEEDED"], "rationale": "..."}.

Examples:
"Compare EU and US AI regulations" -> {"jurisdictions": ["eu", "us-federal"], "rationale": "The question names the EU and the US."}
"What are the compliance requirements?" -> {"jurisdictions": ["CLARIFICATION_NEEDED"], "rationale": "No jurisdiction is named and requirements differ by jurisdiction."}
"Does China require labeling of AI-generated content?" -> {"jurisdictions": ["china"], "rationale": "The question is about Chinese rules."}`)
	return b.String()
}

func buildClarifyPrompt(catalog []agent.Config, query string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The user asked: %q\n\n", query)
	b.WriteString("The question does not identify a jurisdiction. Write a short reply " +
		"asking which jurisdictions the user means, listing the available coverage:\n")
	for _, c := range catalog {
		fmt.Fprintf(&b, "- %s (%s)\n", c.Name, c.ID)
	}
	return b.String()
}
