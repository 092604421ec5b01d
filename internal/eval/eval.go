// Package eval runs the end-to-end evaluation flow: render the rubric
// prompt, call the judge, parse and score the response, and record the
// outcome.
//
// Each evaluation is independent and stateless; the service holds only
// process-lifetime collaborators.
package eval

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/patchjudge/patchjudge/internal/judge"
	"github.com/patchjudge/patchjudge/internal/model"
	"github.com/patchjudge/patchjudge/internal/otel"
	"github.com/patchjudge/patchjudge/internal/parse"
	"github.com/patchjudge/patchjudge/internal/prompt"
	"github.com/patchjudge/patchjudge/internal/score"
)

// Recorder persists completed evaluations. *history.Store satisfies it.
type Recorder interface {
	Record(res model.EvaluationResult) error
}

// Service wires the evaluation pipeline together.
type Service struct {
	Prompts *prompt.Store

	// NewEvaluator builds the vendor client for a request. Defaults to
	// judge.New; tests inject stubs here.
	NewEvaluator func(judge.Config) judge.Evaluator

	// History, when set, receives every completed evaluation.
	History Recorder
	// Metrics, when set, receives token and verdict counters.
	Metrics *otel.Metrics

	// MaxTokens and Timeout are passed through to the vendor client.
	MaxTokens int64
	Timeout   time.Duration
}

// New returns a Service with the default judge factory.
func New(prompts *prompt.Store) *Service {
	return &Service{
		Prompts:      prompts,
		NewEvaluator: judge.New,
	}
}

// Evaluate runs one evaluation. The returned result is complete and
// immutable. An undecodable model response degrades to a FAIL verdict
// with the raw text attached; every other failure is returned as an error.
func (s *Service) Evaluate(ctx context.Context, req model.EvaluationRequest) (*model.EvaluationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rendered, err := s.Prompts.Render(req)
	if err != nil {
		return nil, err
	}

	newEvaluator := s.NewEvaluator
	if newEvaluator == nil {
		newEvaluator = judge.New
	}
	evaluator := newEvaluator(judge.Config{
		Model:     req.Model,
		APIKey:    req.APIKey,
		BaseURL:   req.BaseURL,
		MaxTokens: s.MaxTokens,
		Timeout:   s.Timeout,
	})

	start := time.Now()
	raw, err := evaluator.Evaluate(ctx, rendered)
	if err != nil {
		return nil, err
	}

	result, err := s.buildResult(raw)
	if err != nil {
		return nil, err
	}

	result.ID = uuid.NewString()
	result.Model = evaluator.Model()
	result.Provider = evaluator.Provider()
	result.EvaluatedAt = time.Now().UTC()
	result.DurationMs = time.Since(start).Milliseconds()
	result.Usage = raw.Usage

	if s.History != nil {
		// History is best-effort; a write failure does not fail the evaluation.
		_ = s.History.Record(*result)
	}
	if s.Metrics != nil {
		s.Metrics.RecordTokens(ctx, result.Provider, result.Model, raw.Usage.InputTokens, raw.Usage.OutputTokens)
		s.Metrics.RecordEvaluation(ctx, result.Provider, string(result.Verdict), time.Since(start).Seconds())
	}

	return result, nil
}

// buildResult parses and scores the raw response. Undecodable text is the
// one recovery path: it becomes a FAIL result carrying the raw response.
func (s *Service) buildResult(raw *judge.RawResponse) (*model.EvaluationResult, error) {
	parsed, err := parse.Response(raw.Text)
	if errors.Is(err, parse.ErrNotJSON) {
		return &model.EvaluationResult{
			Verdict:     model.VerdictFail,
			Findings:    "model response was not valid JSON; see raw_response",
			RawResponse: raw.Text,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	overall, verdict := score.Evaluate(parsed.Scores)
	return &model.EvaluationResult{
		Scores:          parsed.Scores,
		OverallScore:    overall,
		Verdict:         verdict,
		Findings:        parsed.Findings,
		Differences:     parsed.Differences,
		Recommendations: parsed.Recommendations,
		RawResponse:     raw.Text,
	}, nil
}
