// Package model defines the core types shared across patchjudge.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Verdict is the categorical judgment derived from the rubric scores.
type Verdict string

const (
	VerdictPass    Verdict = "PASS"
	VerdictPartial Verdict = "PARTIAL"
	VerdictFail    Verdict = "FAIL"
)

// EvaluationRequest carries everything needed for one evaluation.
// Construct it once and treat it as read-only.
type EvaluationRequest struct {
	// IssueStatement describes the problem the patches should address.
	IssueStatement string `json:"issue_statement"`
	// GroundTruthPatch is the reference patch in unified-diff format.
	GroundTruthPatch string `json:"ground_truth_patch"`
	// CandidatePatch is the generated patch under evaluation.
	CandidatePatch string `json:"candidate_patch"`
	// Notes are optional constraints or extra context for the judge.
	Notes string `json:"notes,omitempty"`
	// RepoURL is an optional repository URL, folded into the notes section.
	RepoURL string `json:"repo_url,omitempty"`

	// Model is the model identifier (e.g., "claude-sonnet-4-5", "gpt-5.1").
	// The vendor backend is selected from its prefix.
	Model string `json:"model"`
	// APIKey authenticates against the selected vendor.
	APIKey string `json:"-"`
	// BaseURL optionally overrides the vendor API endpoint.
	BaseURL string `json:"base_url,omitempty"`
}

// Validate checks that all required request fields are present.
func (r EvaluationRequest) Validate() error {
	if strings.TrimSpace(r.APIKey) == "" {
		return &ValidationError{Field: "api_key", Reason: "API key is required"}
	}
	if strings.TrimSpace(r.IssueStatement) == "" {
		return &ValidationError{Field: "issue_statement", Reason: "issue statement is required"}
	}
	if strings.TrimSpace(r.GroundTruthPatch) == "" {
		return &ValidationError{Field: "ground_truth_patch", Reason: "ground truth patch is required"}
	}
	if strings.TrimSpace(r.CandidatePatch) == "" {
		return &ValidationError{Field: "candidate_patch", Reason: "candidate patch is required"}
	}
	if strings.TrimSpace(r.Model) == "" {
		return &ValidationError{Field: "model", Reason: "model is required"}
	}
	return nil
}

// Scores are the three rubric sub-scores returned by the judge, each 0-5.
type Scores struct {
	// FunctionalCorrectness: does the patch address the root cause? (weight 0.45)
	FunctionalCorrectness int `json:"functional_correctness"`
	// Completeness: does it cover all required updates, tests included? (weight 0.35)
	Completeness int `json:"completeness"`
	// BehavioralEquivalence: how close is it to the ground truth? (weight 0.20)
	BehavioralEquivalence int `json:"behavioral_equivalence"`
}

// EvaluationResult is the outcome of a single evaluation. Produced once,
// never mutated afterwards.
type EvaluationResult struct {
	ID string `json:"id"`

	Scores       Scores  `json:"scores"`
	OverallScore float64 `json:"overall_score"`
	Verdict      Verdict `json:"verdict"`

	// Findings is the judge's structured analysis text.
	Findings string `json:"findings,omitempty"`
	// Differences lists behavioral differences against the ground truth.
	Differences string `json:"differences,omitempty"`
	// Recommendations are suggested improvements for the candidate patch.
	Recommendations string `json:"recommendations,omitempty"`

	// RawResponse is the verbatim model output. Always populated when the
	// response could not be decoded as JSON.
	RawResponse string `json:"raw_response,omitempty"`

	Usage TokenUsage `json:"usage,omitempty"`

	Model       string    `json:"model"`
	Provider    string    `json:"provider"`
	EvaluatedAt time.Time `json:"evaluated_at"`
	DurationMs  int64     `json:"duration_ms"`
}

// TokenUsage tracks model token consumption for a single evaluation.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// ValidationError reports a missing or out-of-range field, either in the
// inbound request or in the model's JSON response.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// FileFormatError reports an unreadable or unsupported patch upload.
type FileFormatError struct {
	Name   string
	Reason string
}

func (e *FileFormatError) Error() string {
	return fmt.Sprintf("unsupported patch file %q: %s", e.Name, e.Reason)
}
