// Package prompt loads the scoring-rubric template and renders the final
// judge prompt.
//
// A default template ships embedded in the binary. Operators can point
// PROMPT_TEMPLATE_PATH at a custom file; the file must contain the same
// placeholder tokens as the default.
package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/patchjudge/patchjudge/internal/model"
)

// DefaultTemplate is the built-in scoring-rubric template.
// Loaded from prompts/judge.md at compile time.
//
//go:embed prompts/judge.md
var DefaultTemplate string

// Placeholder tokens the template must contain.
const (
	PlaceholderIssue       = "{ISSUE_STATEMENT}"
	PlaceholderGroundTruth = "{GROUND_TRUTH_PATCH}"
	PlaceholderCandidate   = "{GENERATED_PATCH}"
	PlaceholderNotes       = "{OPTIONAL_NOTES}"
)

var requiredPlaceholders = []string{
	PlaceholderIssue,
	PlaceholderGroundTruth,
	PlaceholderCandidate,
	PlaceholderNotes,
}

// TemplateError reports a malformed template or a missing input field.
type TemplateError struct {
	Detail string
}

func (e *TemplateError) Error() string {
	return "prompt template error: " + e.Detail
}

// Store holds a validated prompt template.
type Store struct {
	template string
	source   string
}

// NewStore returns a Store backed by the embedded default template.
func NewStore() (*Store, error) {
	return newStore(DefaultTemplate, "embedded")
}

// NewStoreFromFile loads and validates a template from disk.
func NewStoreFromFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &TemplateError{Detail: fmt.Sprintf("reading %s: %v", path, err)}
	}
	return newStore(string(data), path)
}

// Load returns a Store from path when non-empty, otherwise the embedded default.
func Load(path string) (*Store, error) {
	if path == "" {
		return NewStore()
	}
	return NewStoreFromFile(path)
}

func newStore(template, source string) (*Store, error) {
	if strings.TrimSpace(template) == "" {
		return nil, &TemplateError{Detail: fmt.Sprintf("template %s is empty", source)}
	}
	for _, p := range requiredPlaceholders {
		if !strings.Contains(template, p) {
			return nil, &TemplateError{Detail: fmt.Sprintf("template %s is missing placeholder %s", source, p)}
		}
	}
	return &Store{template: template, source: source}, nil
}

// Source identifies where the template came from ("embedded" or a file path).
func (s *Store) Source() string {
	return s.source
}

// Render substitutes the request fields into the template. Rendering is
// deterministic: the same template and request always produce the same
// prompt string.
func (s *Store) Render(req model.EvaluationRequest) (string, error) {
	if strings.TrimSpace(req.IssueStatement) == "" {
		return "", &TemplateError{Detail: "issue statement is empty"}
	}
	if strings.TrimSpace(req.GroundTruthPatch) == "" {
		return "", &TemplateError{Detail: "ground truth patch is empty"}
	}
	if strings.TrimSpace(req.CandidatePatch) == "" {
		return "", &TemplateError{Detail: "candidate patch is empty"}
	}

	out := s.template
	out = strings.ReplaceAll(out, PlaceholderIssue, req.IssueStatement)
	out = strings.ReplaceAll(out, PlaceholderGroundTruth, req.GroundTruthPatch)
	out = strings.ReplaceAll(out, PlaceholderCandidate, req.CandidatePatch)
	out = strings.ReplaceAll(out, PlaceholderNotes, notesSection(req))
	return out, nil
}

// notesSection folds the optional repo URL into the free-form notes.
func notesSection(req model.EvaluationRequest) string {
	notes := strings.TrimSpace(req.Notes)
	repo := strings.TrimSpace(req.RepoURL)
	switch {
	case repo != "" && notes != "":
		return "Repository URL: " + repo + "\n\n" + notes
	case repo != "":
		return "Repository URL: " + repo
	case notes != "":
		return notes
	default:
		return "(none)"
	}
}
