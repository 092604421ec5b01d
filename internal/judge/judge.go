// Package judge sends rendered prompts to a hosted chat-completion model
// and returns the raw response text.
//
// The Go side only shapes requests and surfaces errors; all scoring
// judgment is made by the model. Response decoding lives in the parse
// package.
package judge

import (
	"context"

	"github.com/patchjudge/patchjudge/internal/model"
)

// SystemPrompt frames the model as a patch-review judge. The rendered
// rubric prompt is sent as the user message.
const SystemPrompt = "You are a strict, detail-oriented code review judge for " +
	"software-engineering patches. Always respond with valid JSON."

// RawResponse is the unparsed model output plus token accounting.
type RawResponse struct {
	Text  string
	Usage model.TokenUsage
}

// Evaluator sends a rendered prompt to an LLM and returns the raw reply.
type Evaluator interface {
	// Evaluate performs one synchronous chat-completion call. The returned
	// text is not decoded here; callers hand it to the parse package.
	Evaluate(ctx context.Context, prompt string) (*RawResponse, error)

	// Provider returns the backend name (e.g., "anthropic", "openai").
	Provider() string

	// Model returns the model identifier used for evaluation.
	Model() string
}
