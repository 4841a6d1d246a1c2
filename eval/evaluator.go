package eval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/regsage/regsage"
)

// Evaluator runs evaluation test sets against a RegSage engine.
type Evaluator struct {
	engine regsage.Engine
}

// NewEvaluator creates a new evaluator.
func NewEvaluator(engine regsage.Engine) *Evaluator {
	return &Evaluator{engine: engine}
}

// Report holds the results of an evaluation run.
type Report struct {
	Dataset         string                      `json:"dataset"`
	TotalTests      int                         `json:"total_tests"`
	Passed          int                         `json:"passed"`
	Failed          int                         `json:"failed"`
	Metrics         AggregateMetrics            `json:"metrics"`
	CategoryMetrics map[string]AggregateMetrics `json:"category_metrics,omitempty"`
	Results         []TestResult                `json:"results"`
	RunTime         time.Duration               `json:"run_time"`
}

// AggregateMetrics holds averaged metrics across all tests.
type AggregateMetrics struct {
	AvgFactCoverage    float64 `json:"avg_fact_coverage"`
	AvgRoutingAccuracy float64 `json:"avg_routing_accuracy"`
	AvgGroundingRate   float64 `json:"avg_grounding_rate"`
}

// TestResult holds the result of a single test case with diagnostics.
type TestResult struct {
	Question            string   `json:"question"`
	ExpectedFacts       []string `json:"expected_facts,omitempty"`
	ExpectedAgents      []string `json:"expected_agents,omitempty"`
	Category            string   `json:"category,omitempty"`
	Answer              string   `json:"answer"`
	AgentsAnswered      []string `json:"agents_answered,omitempty"`
	FactCoverage        float64  `json:"fact_coverage"`
	RoutingAccuracy     float64  `json:"routing_accuracy"`
	GroundingRate       float64  `json:"grounding_rate"`
	ClarificationNeeded bool     `json:"clarification_needed,omitempty"`
	Passed              bool     `json:"passed"`
	Error               string   `json:"error,omitempty"`
	ElapsedMs           int64    `json:"elapsed_ms"`
}

// Run executes an evaluation dataset against the engine. Each test runs
// in a fresh conversation so history from one question cannot leak into
// the next.
func (e *Evaluator) Run(ctx context.Context, dataset Dataset) (*Report, error) {
	start := time.Now()
	report := &Report{
		Dataset:         dataset.Name,
		TotalTests:      len(dataset.Tests),
		CategoryMetrics: make(map[string]AggregateMetrics),
	}

	catCounts := make(map[string]int)
	catSums := make(map[string]AggregateMetrics)
	metricsCount := 0

	for i, test := range dataset.Tests {
		result := e.runTest(ctx, test)
		report.Results = append(report.Results, result)

		status := "PASS"
		if !result.Passed {
			status = "FAIL"
		}
		if result.Error != "" {
			status = "ERROR"
		}

		slog.Info("eval: test complete",
			"progress", fmt.Sprintf("%d/%d", i+1, len(dataset.Tests)),
			"status", status,
			"coverage", fmt.Sprintf("%.2f", result.FactCoverage),
			"routing", fmt.Sprintf("%.2f", result.RoutingAccuracy),
			"elapsed_ms", result.ElapsedMs,
			"question", truncate(test.Question, 80))

		if result.Passed {
			report.Passed++
		} else {
			report.Failed++
		}

		// Error and clarification results carry no answer to score and
		// are excluded from the metric averages.
		if result.Error != "" || result.ClarificationNeeded {
			continue
		}

		metricsCount++
		report.Metrics.AvgFactCoverage += result.FactCoverage
		report.Metrics.AvgRoutingAccuracy += result.RoutingAccuracy
		report.Metrics.AvgGroundingRate += result.GroundingRate

		if test.Category != "" {
			catCounts[test.Category]++
			sum := catSums[test.Category]
			sum.AvgFactCoverage += result.FactCoverage
			sum.AvgRoutingAccuracy += result.RoutingAccuracy
			sum.AvgGroundingRate += result.GroundingRate
			catSums[test.Category] = sum
		}
	}

	n := float64(metricsCount)
	if n > 0 {
		report.Metrics.AvgFactCoverage /= n
		report.Metrics.AvgRoutingAccuracy /= n
		report.Metrics.AvgGroundingRate /= n
	}

	for cat, count := range catCounts {
		cn := float64(count)
		sum := catSums[cat]
		report.CategoryMetrics[cat] = AggregateMetrics{
			AvgFactCoverage:    sum.AvgFactCoverage / cn,
			AvgRoutingAccuracy: sum.AvgRoutingAccuracy / cn,
			AvgGroundingRate:   sum.AvgGroundingRate / cn,
		}
	}

	report.RunTime = time.Since(start)
	return report, nil
}

func (e *Evaluator) runTest(ctx context.Context, test TestCase) TestResult {
	testStart := time.Now()
	result := TestResult{
		Question:       test.Question,
		ExpectedFacts:  test.ExpectedFacts,
		ExpectedAgents: test.ExpectedAgents,
		Category:       test.Category,
	}

	answer, err := e.engine.Query(ctx, regsage.QueryRequest{
		Message:       test.Question,
		Jurisdictions: test.Jurisdictions,
	})
	if err != nil {
		result.Error = err.Error()
		result.ElapsedMs = time.Since(testStart).Milliseconds()
		return result
	}

	result.Answer = combinedAnswer(answer)
	for _, resp := range answer.Responses {
		result.AgentsAnswered = append(result.AgentsAnswered, resp.AgentID)
	}

	if answer.RoutingInfo.ClarificationNeeded {
		result.ClarificationNeeded = true
		result.Passed = test.ExpectClarification
		result.ElapsedMs = time.Since(testStart).Milliseconds()
		return result
	}

	result.FactCoverage = computeFactCoverage(answer, test.ExpectedFacts)
	result.RoutingAccuracy = computeRoutingAccuracy(answer, test.ExpectedAgents)
	result.GroundingRate = computeGroundingRate(answer)

	// A test passes when the answer covers at least half the expected
	// facts and the router reached at least half the expected
	// jurisdictions. A test expecting clarification fails when the
	// engine answered instead.
	result.Passed = result.FactCoverage >= 0.5 &&
		result.RoutingAccuracy >= 0.5 &&
		!test.ExpectClarification

	result.ElapsedMs = time.Since(testStart).Milliseconds()
	return result
}

// FormatReport produces a human-readable report string.
func FormatReport(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Evaluation Report: %s ===\n", r.Dataset)
	fmt.Fprintf(&b, "Total: %d | Passed: %d (%.1f%%) | Failed: %d\n",
		r.TotalTests, r.Passed, passRate(r.Passed, r.TotalTests), r.Failed)
	fmt.Fprintf(&b, "Run time: %s\n\n", r.RunTime.Round(time.Millisecond))

	fmt.Fprintf(&b, "Aggregate Metrics:\n")
	fmt.Fprintf(&b, "  Fact Coverage:     %.2f\n", r.Metrics.AvgFactCoverage)
	fmt.Fprintf(&b, "  Routing Accuracy:  %.2f\n", r.Metrics.AvgRoutingAccuracy)
	fmt.Fprintf(&b, "  Grounding Rate:    %.2f\n\n", r.Metrics.AvgGroundingRate)

	// Per-category breakdown (sorted for deterministic output)
	if len(r.CategoryMetrics) > 0 {
		cats := make([]string, 0, len(r.CategoryMetrics))
		for cat := range r.CategoryMetrics {
			cats = append(cats, cat)
		}
		sort.Strings(cats)

		fmt.Fprintf(&b, "Per-Category Metrics:\n")
		for _, cat := range cats {
			m := r.CategoryMetrics[cat]
			fmt.Fprintf(&b, "  [%s] Facts=%.2f Routing=%.2f Grounding=%.2f\n",
				cat, m.AvgFactCoverage, m.AvgRoutingAccuracy, m.AvgGroundingRate)
		}
		fmt.Fprintln(&b)
	}

	for i, res := range r.Results {
		status := "PASS"
		if !res.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %d. %s\n", status, i+1, res.Question)
		switch {
		case res.Error != "":
			fmt.Fprintf(&b, "  Error: %s\n", res.Error)
		case res.ClarificationNeeded:
			fmt.Fprintf(&b, "  Clarification requested  (%dms)\n", res.ElapsedMs)
		default:
			fmt.Fprintf(&b, "  Facts=%.2f Routing=%.2f Grounding=%.2f agents=%s  (%dms)\n",
				res.FactCoverage, res.RoutingAccuracy, res.GroundingRate,
				strings.Join(res.AgentsAnswered, ","), res.ElapsedMs)
		}
	}

	return b.String()
}

func passRate(passed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(passed) / float64(total) * 100
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
