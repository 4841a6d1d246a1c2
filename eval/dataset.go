// Package eval runs question-answering regression suites against an
// engine. Suites score answers with deterministic text metrics so that
// retrieval or routing regressions show up as score drops rather than
// anecdotes.
package eval

import (
	"encoding/json"
	"fmt"
	"os"
)

// Dataset is a collection of scored evaluation questions.
type Dataset struct {
	Name  string     `json:"name"`
	Tests []TestCase `json:"tests"`
}

// TestCase defines one evaluation question.
//
// ExpectedFacts entries may contain pipe-separated alternatives
// ("conformity assessment|conformity assessments"); matching any
// alternative counts as a hit. ExpectedAgents names the jurisdictions
// the router should select; leave it empty when routing is not under
// test.
type TestCase struct {
	Question            string   `json:"question"`
	Jurisdictions       []string `json:"jurisdictions,omitempty"` // explicit selection; empty = auto-route
	ExpectedFacts       []string `json:"expected_facts,omitempty"`
	ExpectedAgents      []string `json:"expected_agents,omitempty"`
	ExpectClarification bool     `json:"expect_clarification,omitempty"`
	Category            string   `json:"category,omitempty"` // lookup, comparison, routing, clarification
}

// LoadDataset reads a dataset from a JSON file.
func LoadDataset(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("reading dataset: %w", err)
	}
	var d Dataset
	if err := json.Unmarshal(data, &d); err != nil {
		return Dataset{}, fmt.Errorf("parsing dataset: %w", err)
	}
	if len(d.Tests) == 0 {
		return Dataset{}, fmt.Errorf("dataset %s has no tests", path)
	}
	return d, nil
}

// BaselineDataset returns the built-in smoke suite. It assumes a corpus
// covering at least the EU AI Act, US federal AI policy, and the UK
// framework, loaded for example with cmd/seed.
func BaselineDataset() Dataset {
	return Dataset{
		Name: "AI Regulation Baseline",
		Tests: []TestCase{
			{
				Question:       "What obligations does the EU AI Act impose on high-risk AI systems?",
				Jurisdictions:  []string{"eu"},
				ExpectedFacts:  []string{"high-risk", "conformity assessment|conformity"},
				ExpectedAgents: []string{"eu"},
				Category:       "lookup",
			},
			{
				Question:       "Which practices does the EU AI Act prohibit outright?",
				Jurisdictions:  []string{"eu"},
				ExpectedFacts:  []string{"prohibited|banned|unacceptable"},
				ExpectedAgents: []string{"eu"},
				Category:       "lookup",
			},
			{
				Question:       "Is the NIST AI Risk Management Framework binding on US companies?",
				Jurisdictions:  []string{"us-federal"},
				ExpectedFacts:  []string{"voluntary", "nist|risk management framework"},
				ExpectedAgents: []string{"us-federal"},
				Category:       "lookup",
			},
			{
				Question:       "Does the UK have a single AI statute like the EU AI Act?",
				Jurisdictions:  []string{"uk"},
				ExpectedFacts:  []string{"regulators|sector", "principles|pro-innovation"},
				ExpectedAgents: []string{"uk"},
				Category:       "lookup",
			},
			{
				Question:       "Compare how the EU and the United States regulate general-purpose AI models.",
				ExpectedFacts:  []string{"eu|european", "united states|federal|us"},
				ExpectedAgents: []string{"eu", "us-federal"},
				Category:       "comparison",
			},
			{
				Question:       "How do China's generative AI measures differ from the EU AI Act's approach?",
				ExpectedFacts:  []string{"generative", "ai act"},
				ExpectedAgents: []string{"eu", "china"},
				Category:       "comparison",
			},
			{
				Question:       "What does Canada's proposed AIDA require for high-impact systems?",
				ExpectedFacts:  []string{"aida|artificial intelligence and data act", "high-impact"},
				ExpectedAgents: []string{"canada"},
				Category:       "routing",
			},
			{
				Question:            "What are the compliance requirements?",
				ExpectClarification: true,
				Category:            "clarification",
			},
		},
	}
}
