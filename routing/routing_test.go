package routing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/regsage/regsage/agent"
	"github.com/regsage/regsage/llm"
)

// fakeGenerator answers each orchestrator call type with a scripted
// reply, recognized by the system prompt.
type fakeGenerator struct {
	mu    sync.Mutex
	calls []llm.ChatRequest

	routeReply     string
	routeErr       error
	clarifyReply   string
	clarifyErr     error
	summaryReply   string
	summaryErr     error
	questionsReply string
	questionsErr   error
}

func (f *fakeGenerator) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	var system string
	if len(req.Messages) > 0 && req.Messages[0].Role == "system" {
		system = req.Messages[0].Content
	}
	switch {
	case strings.Contains(system, "route questions"):
		if f.routeErr != nil {
			return nil, f.routeErr
		}
		return &llm.ChatResponse{Content: f.routeReply}, nil
	case strings.Contains(system, "narrow their question"):
		if f.clarifyErr != nil {
			return nil, f.clarifyErr
		}
		return &llm.ChatResponse{Content: orDefault(f.clarifyReply, "Which jurisdictions do you mean?")}, nil
	case strings.Contains(system, "synthesize"):
		if f.summaryErr != nil {
			return nil, f.summaryErr
		}
		return &llm.ChatResponse{Content: orDefault(f.summaryReply, "Cross-jurisdiction synthesis.")}, nil
	case strings.Contains(system, "follow-up"):
		if f.questionsErr != nil {
			return nil, f.questionsErr
		}
		return &llm.ChatResponse{Content: orDefault(f.questionsReply, `["q1?", "q2?", "q3?", "q4?", "q5?"]`)}, nil
	}
	return nil, errors.New("unexpected generation call")
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func (f *fakeGenerator) callCount(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if len(c.Messages) > 0 && strings.Contains(c.Messages[0].Content, kind) {
			n++
		}
	}
	return n
}

// fakeAnswerer is a scripted jurisdiction agent.
type fakeAnswerer struct {
	id    string
	reply string
	err   error
	delay time.Duration

	mu    sync.Mutex
	calls int
}

func (f *fakeAnswerer) Answer(ctx context.Context, query string, history []llm.Message) (*agent.Response, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &agent.Response{
		AgentID:      f.id,
		Jurisdiction: f.id,
		Answer:       f.reply,
		Sources:      []agent.Source{},
	}, nil
}

func (f *fakeAnswerer) callCountTotal() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// newTestMaster wires the real default catalog to fake agents.
func newTestMaster(gen *fakeGenerator, cfg Config) (*Master, map[string]*fakeAnswerer) {
	catalog := agent.DefaultCatalog()
	fakes := make(map[string]*fakeAnswerer, len(catalog))
	agents := make(map[string]Answerer, len(catalog))
	for _, c := range catalog {
		fa := &fakeAnswerer{id: c.ID, reply: "answer from " + c.ID}
		fakes[c.ID] = fa
		agents[c.ID] = fa
	}
	return New(gen, agents, catalog, cfg), fakes
}

// ---------------------------------------------------------------------------
// Routing
// ---------------------------------------------------------------------------

func TestHandleExplicitJurisdictions(t *testing.T) {
	gen := &fakeGenerator{}
	m, _ := newTestMaster(gen, Config{})

	res, err := m.Handle(context.Background(), Request{
		Message:       "What does the AI Act require?",
		Jurisdictions: []string{"eu"},
		AutoRoute:     true,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(res.Responses) != 1 || res.Responses[0].AgentID != "eu" {
		t.Fatalf("expected one eu response, got %+v", res.Responses)
	}
	if res.RoutingInfo.AutoRouted {
		t.Error("explicit routing must report autoRouted=false")
	}
	if len(res.RoutingInfo.SelectedJurisdictions) != 1 || res.RoutingInfo.SelectedJurisdictions[0] != "eu" {
		t.Errorf("selected: got %v", res.RoutingInfo.SelectedJurisdictions)
	}
	if gen.callCount("route questions") != 0 {
		t.Error("classifier must not run for explicit jurisdictions")
	}
}

func TestHandleExplicitUnknownIDsDropped(t *testing.T) {
	gen := &fakeGenerator{}
	m, _ := newTestMaster(gen, Config{})

	res, err := m.Handle(context.Background(), Request{
		Message:       "q",
		Jurisdictions: []string{"EU", "atlantis", "eu"},
		AutoRoute:     true,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := res.RoutingInfo.SelectedJurisdictions; len(got) != 1 || got[0] != "eu" {
		t.Errorf("expected unknown and duplicate ids dropped, got %v", got)
	}
}

func TestHandleExplicitAllUnknown(t *testing.T) {
	gen := &fakeGenerator{}
	m, _ := newTestMaster(gen, Config{})

	_, err := m.Handle(context.Background(), Request{
		Message:       "q",
		Jurisdictions: []string{"atlantis", "mordor"},
		AutoRoute:     true,
	})
	if !errors.Is(err, ErrUnknownJurisdiction) {
		t.Fatalf("expected ErrUnknownJurisdiction, got %v", err)
	}
}

func TestHandleAutoRouteDisabledUsesFullCatalog(t *testing.T) {
	gen := &fakeGenerator{}
	m, _ := newTestMaster(gen, Config{})

	res, err := m.Handle(context.Background(), Request{
		Message:   "q",
		AutoRoute: false,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(res.Responses) != len(agent.DefaultCatalog()) {
		t.Errorf("expected every catalog agent to answer, got %d", len(res.Responses))
	}
	if res.RoutingInfo.AutoRouted {
		t.Error("catalog-wide routing must report autoRouted=false")
	}
	if gen.callCount("route questions") != 0 {
		t.Error("classifier must not run when auto-routing is disabled")
	}
}

func TestHandleClassifierSelection(t *testing.T) {
	gen := &fakeGenerator{
		routeReply: `{"jurisdictions": ["eu", "us-federal"], "rationale": "The question names the EU and the US."}`,
	}
	m, _ := newTestMaster(gen, Config{})

	res, err := m.Handle(context.Background(), Request{
		Message:   "Compare EU and US AI regulations",
		AutoRoute: true,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if got := res.RoutingInfo.SelectedJurisdictions; len(got) != 2 || got[0] != "eu" || got[1] != "us-federal" {
		t.Fatalf("selected: got %v", got)
	}
	if !res.RoutingInfo.AutoRouted {
		t.Error("classifier routing must report autoRouted=true")
	}
	if len(res.Responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(res.Responses))
	}
	if res.MasterSummary == "" {
		t.Error("two responses must produce a master summary")
	}
	if len(res.SuggestedQuestions) != 5 {
		t.Errorf("expected 5 suggested questions, got %d", len(res.SuggestedQuestions))
	}
}

func TestHandleClassifierFencedJSON(t *testing.T) {
	gen := &fakeGenerator{
		routeReply: "Here you go:\n```json\n{\"jurisdictions\": [\"uk\"], \"rationale\": \"UK question.\"}\n```",
	}
	m, _ := newTestMaster(gen, Config{})

	res, err := m.Handle(context.Background(), Request{Message: "UK approach?", AutoRoute: true})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := res.RoutingInfo.SelectedJurisdictions; len(got) != 1 || got[0] != "uk" {
		t.Errorf("selected: got %v", got)
	}
}

func TestHandleClassifierFailureFallsBack(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"provider error", &fakeGenerator{routeErr: errors.New("provider down")}},
		{"garbage output", &fakeGenerator{routeReply: "sorry, I cannot help with that"}},
		{"unknown ids only", &fakeGenerator{routeReply: `{"jurisdictions": ["mars", "venus"]}`}},
		{"empty selection", &fakeGenerator{routeReply: `{"jurisdictions": []}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestMaster(tt.gen, Config{})
			res, err := m.Handle(context.Background(), Request{Message: "q", AutoRoute: true})
			if err != nil {
				t.Fatalf("fallback must not fail the request: %v", err)
			}
			got := res.RoutingInfo.SelectedJurisdictions
			if len(got) != 2 || got[0] != "eu" || got[1] != "us-federal" {
				t.Errorf("expected default pair, got %v", got)
			}
			if !res.RoutingInfo.AutoRouted {
				t.Error("fallback must report autoRouted=true")
			}
			if res.RoutingInfo.Rationale == "" {
				t.Error("fallback must state a rationale")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Clarification
// ---------------------------------------------------------------------------

func TestHandleClarification(t *testing.T) {
	gen := &fakeGenerator{
		routeReply:   `{"jurisdictions": ["CLARIFICATION_NEEDED"], "rationale": "No jurisdiction named."}`,
		clarifyReply: "Which jurisdictions do you mean? Available: EU, US...",
	}
	m, fakes := newTestMaster(gen, Config{})

	res, err := m.Handle(context.Background(), Request{
		Message:   "What are the compliance requirements?",
		AutoRoute: true,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(res.Responses) != 1 {
		t.Fatalf("expected single clarification response, got %d", len(res.Responses))
	}
	r := res.Responses[0]
	if r.AgentID != MasterAgentID {
		t.Errorf("agent id: got %q, want %q", r.AgentID, MasterAgentID)
	}
	if len(r.Sources) != 0 {
		t.Errorf("clarification must have empty sources, got %d", len(r.Sources))
	}
	if res.MasterSummary != "" {
		t.Error("clarification must not carry a summary")
	}
	if !res.RoutingInfo.ClarificationNeeded {
		t.Error("routing info must flag clarification")
	}
	for id, fa := range fakes {
		if fa.callCountTotal() != 0 {
			t.Errorf("agent %s was dispatched during clarification", id)
		}
	}
}

func TestHandleClarificationProviderFailure(t *testing.T) {
	gen := &fakeGenerator{
		routeReply: `{"jurisdictions": ["CLARIFICATION_NEEDED"]}`,
		clarifyErr: errors.New("provider down"),
	}
	m, _ := newTestMaster(gen, Config{})

	if _, err := m.Handle(context.Background(), Request{Message: "q", AutoRoute: true}); err == nil {
		t.Fatal("clarification provider failure must fail the request")
	}
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

func TestHandlePartialDispatchFailure(t *testing.T) {
	gen := &fakeGenerator{}
	m, fakes := newTestMaster(gen, Config{})
	fakes["uk"].err = errors.New("agent exploded")

	res, err := m.Handle(context.Background(), Request{
		Message:       "q",
		Jurisdictions: []string{"eu", "uk", "china"},
		AutoRoute:     true,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(res.Responses) != 2 {
		t.Fatalf("expected 2 surviving responses, got %d", len(res.Responses))
	}
	if res.Responses[0].AgentID != "eu" || res.Responses[1].AgentID != "china" {
		t.Errorf("selection order lost: %s then %s",
			res.Responses[0].AgentID, res.Responses[1].AgentID)
	}
	if len(res.RoutingInfo.FailedJurisdictions) != 1 || res.RoutingInfo.FailedJurisdictions[0] != "uk" {
		t.Errorf("failed list: got %v", res.RoutingInfo.FailedJurisdictions)
	}
	if res.MasterSummary == "" {
		t.Error("two survivors still warrant a summary")
	}
}

func TestHandleTotalDispatchFailure(t *testing.T) {
	gen := &fakeGenerator{}
	m, fakes := newTestMaster(gen, Config{})
	fakes["eu"].err = errors.New("down")
	fakes["uk"].err = errors.New("down")

	res, err := m.Handle(context.Background(), Request{
		Message:       "q",
		Jurisdictions: []string{"eu", "uk"},
		AutoRoute:     true,
	})
	if err != nil {
		t.Fatalf("total failure must still return a structured result: %v", err)
	}

	if res.Responses == nil || len(res.Responses) != 0 {
		t.Errorf("expected well-formed empty responses, got %v", res.Responses)
	}
	if res.MasterSummary != "" {
		t.Error("no summary without successes")
	}
	if len(res.SuggestedQuestions) != 5 {
		t.Errorf("expected 5 fallback questions, got %d", len(res.SuggestedQuestions))
	}
	if gen.callCount("follow-up") != 0 {
		t.Error("fallback questions must not cost a generation call")
	}
	if gen.callCount("synthesize") != 0 {
		t.Error("no summary call without successes")
	}
}

func TestHandleSingleSuccessNoSummary(t *testing.T) {
	gen := &fakeGenerator{}
	m, _ := newTestMaster(gen, Config{})

	res, err := m.Handle(context.Background(), Request{
		Message:       "q",
		Jurisdictions: []string{"brazil"},
		AutoRoute:     true,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if res.MasterSummary != "" {
		t.Error("single response must not be summarized")
	}
	if gen.callCount("synthesize") != 0 {
		t.Error("aggregate must not run for one response")
	}
	if len(res.SuggestedQuestions) != 5 {
		t.Errorf("expected 5 suggestions, got %d", len(res.SuggestedQuestions))
	}
}

func TestHandleSummaryFailureDegrades(t *testing.T) {
	gen := &fakeGenerator{summaryErr: errors.New("provider hiccup")}
	m, _ := newTestMaster(gen, Config{})

	res, err := m.Handle(context.Background(), Request{
		Message:       "q",
		Jurisdictions: []string{"eu", "us-federal"},
		AutoRoute:     true,
	})
	if err != nil {
		t.Fatalf("summary failure must not fail the request: %v", err)
	}
	if res.MasterSummary != "" {
		t.Error("failed summary must be omitted")
	}
	if len(res.Responses) != 2 {
		t.Errorf("agent responses must survive summary failure, got %d", len(res.Responses))
	}
}

func TestHandleAgentTimeout(t *testing.T) {
	gen := &fakeGenerator{}
	m, fakes := newTestMaster(gen, Config{AgentTimeout: 30 * time.Millisecond})
	fakes["eu"].delay = 500 * time.Millisecond

	start := time.Now()
	res, err := m.Handle(context.Background(), Request{
		Message:       "q",
		Jurisdictions: []string{"eu", "uk"},
		AutoRoute:     true,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("timeout did not cut the slow agent off, took %v", elapsed)
	}
	if len(res.Responses) != 1 || res.Responses[0].AgentID != "uk" {
		t.Errorf("expected only the fast agent, got %+v", res.Responses)
	}
	if len(res.RoutingInfo.FailedJurisdictions) != 1 || res.RoutingInfo.FailedJurisdictions[0] != "eu" {
		t.Errorf("failed list: got %v", res.RoutingInfo.FailedJurisdictions)
	}
}

// ---------------------------------------------------------------------------
// Suggested questions
// ---------------------------------------------------------------------------

func TestSuggestedQuestionsAlwaysFive(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		fixed bool // expect the fallback list
	}{
		{"valid array", `["a?", "b?", "c?", "d?", "e?"]`, nil, false},
		{"wrapped object", `{"questions": ["a?", "b?", "c?", "d?", "e?"]}`, nil, false},
		{"fenced array", "```json\n[\"a?\", \"b?\", \"c?\", \"d?\", \"e?\"]\n```", nil, false},
		{"wrong cardinality", `["a?", "b?", "c?"]`, nil, true},
		{"empty entry", `["a?", "", "c?", "d?", "e?"]`, nil, true},
		{"garbage", "no json here", nil, true},
		{"provider error", "", errors.New("down"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{questionsReply: tt.reply, questionsErr: tt.err}
			m, _ := newTestMaster(gen, Config{})

			res, err := m.Handle(context.Background(), Request{
				Message:       "q",
				Jurisdictions: []string{"eu"},
				AutoRoute:     true,
			})
			if err != nil {
				t.Fatalf("handle: %v", err)
			}
			if len(res.SuggestedQuestions) != 5 {
				t.Fatalf("expected exactly 5 questions, got %d", len(res.SuggestedQuestions))
			}
			isFallback := res.SuggestedQuestions[0] == fallbackQuestions()[0]
			if isFallback != tt.fixed {
				t.Errorf("fallback used = %v, want %v", isFallback, tt.fixed)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Parsing helpers
// ---------------------------------------------------------------------------

func TestParseRouteDecision(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantIDs []string
		wantErr bool
	}{
		{"plain", `{"jurisdictions": ["eu"], "rationale": "r"}`, []string{"eu"}, false},
		{"prose around", `Sure! Here: {"jurisdictions": ["uk"]} Hope that helps.`, []string{"uk"}, false},
		{"fenced", "```json\n{\"jurisdictions\": [\"china\"]}\n```", []string{"china"}, false},
		{"no json", "I could not decide", nil, true},
		{"broken json", `{"jurisdictions": [`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := parseRouteDecision(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected parse error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if len(d.Jurisdictions) != len(tt.wantIDs) {
				t.Fatalf("ids: got %v, want %v", d.Jurisdictions, tt.wantIDs)
			}
			for i := range tt.wantIDs {
				if d.Jurisdictions[i] != tt.wantIDs[i] {
					t.Errorf("id %d: got %q, want %q", i, d.Jurisdictions[i], tt.wantIDs[i])
				}
			}
		})
	}
}
