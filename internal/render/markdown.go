// Package render formats evaluation results for humans: markdown for
// reports, styled text for terminals.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/patchjudge/patchjudge/internal/model"
)

// verdictEmoji maps verdicts to their report markers.
func verdictEmoji(v model.Verdict) string {
	switch v {
	case model.VerdictPass:
		return "✅"
	case model.VerdictPartial:
		return "⚠️"
	case model.VerdictFail:
		return "❌"
	default:
		return "❓"
	}
}

// WriteMarkdown writes a markdown-formatted evaluation report to w.
func WriteMarkdown(w io.Writer, res *model.EvaluationResult) error {
	if _, err := fmt.Fprintf(w, "## %s Verdict: **%s** | Overall Score: **%.0f/100**\n\n",
		verdictEmoji(res.Verdict), res.Verdict, res.OverallScore); err != nil {
		return err
	}

	if res.Model != "" {
		if _, err := fmt.Fprintf(w, "**Judge:** %s (%s)\n\n", res.Model, res.Provider); err != nil {
			return err
		}
	}
	if !res.EvaluatedAt.IsZero() {
		if _, err := fmt.Fprintf(w, "**Evaluated at:** %s\n\n", res.EvaluatedAt.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w, "| Dimension | Weight | Score |"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "|-----------|--------|-------|"); err != nil {
		return err
	}
	rows := []struct {
		name   string
		weight string
		value  int
	}{
		{"Functional correctness", "45%", res.Scores.FunctionalCorrectness},
		{"Completeness", "35%", res.Scores.Completeness},
		{"Behavioral equivalence", "20%", res.Scores.BehavioralEquivalence},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "| %s | %s | %d/5 |\n", row.name, row.weight, row.value); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	sections := []struct {
		title string
		body  string
	}{
		{"Findings", res.Findings},
		{"Differences", res.Differences},
		{"Recommendations", res.Recommendations},
	}
	for _, sec := range sections {
		if strings.TrimSpace(sec.body) == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "### %s\n\n%s\n\n", sec.title, sec.body); err != nil {
			return err
		}
	}

	// Degraded results carry no scores; surface the raw text instead.
	if res.Verdict == model.VerdictFail && res.Scores == (model.Scores{}) && res.RawResponse != "" {
		if _, err := fmt.Fprintf(w, "### Raw response\n\n```\n%s\n```\n", res.RawResponse); err != nil {
			return err
		}
	}

	return nil
}
