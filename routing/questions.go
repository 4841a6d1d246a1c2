package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/regsage/regsage/agent"
	"github.com/regsage/regsage/llm"
)

// suggestQuestions asks the generator for exactly five follow-up
// questions. Any provider error, parse failure or wrong cardinality
// substitutes the fixed fallback list; this never fails the request.
func (m *Master) suggestQuestions(ctx context.Context, query string, responses []agent.Response) []string {
	covered := make([]string, 0, len(responses))
	for _, r := range responses {
		if r.Jurisdiction != "" {
			covered = append(covered, r.Jurisdiction)
		}
	}

	resp, err := m.generator.Chat(ctx, llm.ChatRequest{
		Model: m.cfg.Model,
		Messages: []llm.Message{
			{Role: "system", Content: questionsSystemPrompt},
			{Role: "user", Content: buildQuestionsPrompt(query, covered)},
		},
		Temperature:    0.5,
		MaxTokens:      400,
		ResponseFormat: "json_object",
	})
	if err != nil {
		slog.Warn("routing: suggestion generation failed", "error", err)
		return fallbackQuestions()
	}

	questions, err := parseQuestions(resp.Content)
	if err != nil {
		slog.Warn("routing: suggestion output unusable", "error", err)
		return fallbackQuestions()
	}
	return questions
}

// parseQuestions accepts either a bare JSON array of five strings or
// an object wrapping one under a "questions" key.
func parseQuestions(raw string) ([]string, error) {
	var questions []string

	if arr, err := extractJSONArray(raw); err == nil {
		if err := json.Unmarshal([]byte(arr), &questions); err != nil {
			return nil, fmt.Errorf("unmarshalling question array: %w", err)
		}
	} else {
		obj, objErr := extractJSON(raw)
		if objErr != nil {
			return nil, fmt.Errorf("no question payload found")
		}
		var wrapped struct {
			Questions []string `json:"questions"`
		}
		if err := json.Unmarshal([]byte(obj), &wrapped); err != nil {
			return nil, fmt.Errorf("unmarshalling question object: %w", err)
		}
		questions = wrapped.Questions
	}

	if len(questions) != 5 {
		return nil, fmt.Errorf("expected 5 questions, got %d", len(questions))
	}
	for _, q := range questions {
		if strings.TrimSpace(q) == "" {
			return nil, fmt.Errorf("empty question in list")
		}
	}
	return questions, nil
}

// fallbackQuestions is the deterministic substitute when suggestion
// generation fails.
func fallbackQuestions() []string {
	return []string{
		"What are the penalties for non-compliance in these jurisdictions?",
		"Which obligations apply to general-purpose AI models?",
		"How are high-risk AI systems defined and regulated?",
		"What documentation must AI providers maintain?",
		"How do enforcement timelines compare across jurisdictions?",
	}
}

const questionsSystemPrompt = "You suggest follow-up questions for a user exploring " +
	"AI regulation across jurisdictions. Reply with a JSON array of exactly 5 short " +
	"question strings and nothing else."

func buildQuestionsPrompt(query string, covered []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The user asked: %q\n", query)
	if len(covered) > 0 {
		fmt.Fprintf(&b, "The answer covered these jurisdictions: %s\n", strings.Join(covered, ", "))
	}
	b.WriteString("Suggest 5 natural follow-up questions the user might ask next.")
	return b.String()
}
