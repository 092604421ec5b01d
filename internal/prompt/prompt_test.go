package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/patchjudge/patchjudge/internal/model"
)

func testRequest() model.EvaluationRequest {
	return model.EvaluationRequest{
		IssueStatement:   "Fix the off-by-one error in pagination",
		GroundTruthPatch: "--- a/page.go\n+++ b/page.go\n@@ -1 +1 @@\n-limit\n+limit+1",
		CandidatePatch:   "--- a/page.go\n+++ b/page.go\n@@ -1 +1 @@\n-limit\n+limit + 1",
	}
}

func TestDefaultTemplateLoaded(t *testing.T) {
	if DefaultTemplate == "" {
		t.Fatal("DefaultTemplate is empty; embed directive may have failed")
	}
	for _, p := range requiredPlaceholders {
		if !strings.Contains(DefaultTemplate, p) {
			t.Errorf("default template missing placeholder %s", p)
		}
	}
}

func TestRenderSubstitutesAllPlaceholders(t *testing.T) {
	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	req := testRequest()
	req.Notes = "touches the public API"
	req.RepoURL = "https://example.com/owner/repo"

	out, err := store.Render(req)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	for _, p := range requiredPlaceholders {
		if strings.Contains(out, p) {
			t.Errorf("rendered prompt still contains placeholder %s", p)
		}
	}
	for _, want := range []string{
		req.IssueStatement,
		req.GroundTruthPatch,
		req.CandidatePatch,
		"touches the public API",
		"Repository URL: https://example.com/owner/repo",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered prompt missing %q", want)
		}
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	req := testRequest()

	first, err := store.Render(req)
	if err != nil {
		t.Fatalf("first Render: %v", err)
	}
	second, err := store.Render(req)
	if err != nil {
		t.Fatalf("second Render: %v", err)
	}
	if first != second {
		t.Error("rendering the same template and inputs twice produced different prompts")
	}
}

func TestRenderMissingInput(t *testing.T) {
	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*model.EvaluationRequest)
	}{
		{"empty issue", func(r *model.EvaluationRequest) { r.IssueStatement = "  " }},
		{"empty ground truth", func(r *model.EvaluationRequest) { r.GroundTruthPatch = "" }},
		{"empty candidate", func(r *model.EvaluationRequest) { r.CandidatePatch = "\n" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest()
			tt.mutate(&req)
			_, err := store.Render(req)
			var terr *TemplateError
			if !errors.As(err, &terr) {
				t.Errorf("Render = %v, want TemplateError", err)
			}
		})
	}
}

func TestStoreRejectsTemplateWithoutPlaceholders(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.md")
	if err := os.WriteFile(path, []byte("score these patches: {ISSUE_STATEMENT}"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := NewStoreFromFile(path)
	var terr *TemplateError
	if !errors.As(err, &terr) {
		t.Fatalf("NewStoreFromFile = %v, want TemplateError", err)
	}
	if !strings.Contains(terr.Detail, PlaceholderGroundTruth) {
		t.Errorf("error %q does not name the missing placeholder", terr.Detail)
	}
}

func TestLoadFallsBackToEmbedded(t *testing.T) {
	store, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if store.Source() != "embedded" {
		t.Errorf("Source = %q, want embedded", store.Source())
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.md")
	custom := "issue: {ISSUE_STATEMENT}\ntruth: {GROUND_TRUTH_PATCH}\ncand: {GENERATED_PATCH}\nnotes: {OPTIONAL_NOTES}\n"
	if err := os.WriteFile(path, []byte(custom), 0o600); err != nil {
		t.Fatal(err)
	}

	store, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	out, err := store.Render(testRequest())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.HasPrefix(out, "issue: Fix the off-by-one") {
		t.Errorf("custom template not used, got prefix %q", out[:40])
	}
	if !strings.Contains(out, "notes: (none)") {
		t.Errorf("empty notes should render as (none), got:\n%s", out)
	}
}
