package render

import (
	"strings"
	"testing"
	"time"

	"github.com/patchjudge/patchjudge/internal/model"
)

func TestWriteMarkdown(t *testing.T) {
	res := &model.EvaluationResult{
		Scores:          model.Scores{FunctionalCorrectness: 4, Completeness: 4, BehavioralEquivalence: 3},
		OverallScore:    72,
		Verdict:         model.VerdictPass,
		Findings:        "The candidate patch fixes the bug.",
		Differences:     "Different helper name.",
		Recommendations: "Add a test.",
		Model:           "claude-sonnet-4-5",
		Provider:        "anthropic",
		EvaluatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	var b strings.Builder
	if err := WriteMarkdown(&b, res); err != nil {
		t.Fatalf("WriteMarkdown: %v", err)
	}
	out := b.String()

	for _, want := range []string{
		"**PASS**",
		"**72/100**",
		"| Functional correctness | 45% | 4/5 |",
		"| Completeness | 35% | 4/5 |",
		"| Behavioral equivalence | 20% | 3/5 |",
		"claude-sonnet-4-5 (anthropic)",
		"### Findings",
		"The candidate patch fixes the bug.",
		"### Recommendations",
		"2026-03-01T12:00:00Z",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
}

func TestWriteMarkdownDegradedShowsRawResponse(t *testing.T) {
	res := &model.EvaluationResult{
		Verdict:     model.VerdictFail,
		Findings:    "model response was not valid JSON; see raw_response",
		RawResponse: "I refuse to answer in JSON.",
	}

	var b strings.Builder
	if err := WriteMarkdown(&b, res); err != nil {
		t.Fatalf("WriteMarkdown: %v", err)
	}
	out := b.String()
	if !strings.Contains(out, "### Raw response") || !strings.Contains(out, "I refuse to answer in JSON.") {
		t.Errorf("degraded report missing raw response:\n%s", out)
	}
	if !strings.Contains(out, "**FAIL**") {
		t.Errorf("degraded report missing FAIL verdict:\n%s", out)
	}
}

func TestTerminal(t *testing.T) {
	res := &model.EvaluationResult{
		Scores:       model.Scores{FunctionalCorrectness: 3, Completeness: 3, BehavioralEquivalence: 3},
		OverallScore: 60,
		Verdict:      model.VerdictPartial,
		Findings:     "Partially addresses the issue.",
		Model:        "gpt-5.1",
		Provider:     "openai",
		DurationMs:   950,
	}

	out := Terminal(res)
	for _, want := range []string{"PARTIAL", "60/100", "3/5", "gpt-5.1 (openai)", "Partially addresses the issue."} {
		if !strings.Contains(out, want) {
			t.Errorf("terminal output missing %q:\n%s", want, out)
		}
	}
}
