package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/patchjudge/patchjudge/internal/model"
)

var (
	passStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("42")).
			Padding(0, 2)

	partialStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 2)

	failStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 2)

	labelStyle = lipgloss.NewStyle().Faint(true).Width(24)
	bodyStyle  = lipgloss.NewStyle().PaddingLeft(2)
)

func verdictStyle(v model.Verdict) lipgloss.Style {
	switch v {
	case model.VerdictPass:
		return passStyle
	case model.VerdictPartial:
		return partialStyle
	default:
		return failStyle
	}
}

// Terminal renders a styled summary card for CLI output.
func Terminal(res *model.EvaluationResult) string {
	var b strings.Builder

	header := fmt.Sprintf("%s  %.0f/100", res.Verdict, res.OverallScore)
	b.WriteString(verdictStyle(res.Verdict).Render(header))
	b.WriteString("\n\n")

	scoreLine := func(label string, value int) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(fmt.Sprintf("%d/5\n", value))
	}
	scoreLine("Functional correctness", res.Scores.FunctionalCorrectness)
	scoreLine("Completeness", res.Scores.Completeness)
	scoreLine("Behavioral equivalence", res.Scores.BehavioralEquivalence)

	if res.Model != "" {
		b.WriteString(labelStyle.Render("Judge"))
		b.WriteString(fmt.Sprintf("%s (%s)\n", res.Model, res.Provider))
	}
	if res.DurationMs > 0 {
		b.WriteString(labelStyle.Render("Duration"))
		b.WriteString(fmt.Sprintf("%dms\n", res.DurationMs))
	}

	section := func(title, body string) {
		if strings.TrimSpace(body) == "" {
			return
		}
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(title))
		b.WriteString("\n")
		b.WriteString(bodyStyle.Render(body))
		b.WriteString("\n")
	}
	section("Findings", res.Findings)
	section("Differences", res.Differences)
	section("Recommendations", res.Recommendations)

	if res.Verdict == model.VerdictFail && res.Scores == (model.Scores{}) && res.RawResponse != "" {
		section("Raw response", res.RawResponse)
	}

	return b.String()
}
