package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/patchjudge/patchjudge/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AnthropicEvaluator judges patches using the Anthropic Messages API.
type AnthropicEvaluator struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	timeout     time.Duration
}

// NewAnthropicEvaluator creates an Anthropic-backed evaluator.
func NewAnthropicEvaluator(cfg Config) *AnthropicEvaluator {
	var opts []option.RequestOption

	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	return &AnthropicEvaluator{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   cfg.maxTokensOrDefault(),
		temperature: cfg.temperatureOrDefault(),
		timeout:     cfg.timeoutOrDefault(),
	}
}

// Provider returns "anthropic".
func (e *AnthropicEvaluator) Provider() string {
	return "anthropic"
}

// Model returns the model identifier.
func (e *AnthropicEvaluator) Model() string {
	return e.model
}

var judgeTracer = otel.Tracer("patchjudge/judge")

// Evaluate sends the rendered prompt to the Anthropic API and returns the
// raw response text.
func (e *AnthropicEvaluator) Evaluate(ctx context.Context, prompt string) (*RawResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// GenAI generation span, "{operation} {model}" per the OTel semantic conventions.
	ctx, span := judgeTracer.Start(ctx, "chat "+e.model,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "chat"),
			attribute.String("gen_ai.provider.name", "anthropic"),
			attribute.String("gen_ai.request.model", e.model),
			attribute.Int64("gen_ai.request.max_tokens", e.maxTokens),
		),
	)
	defer span.End()

	inputMessages := []map[string]string{
		{"role": "system", "content": SystemPrompt},
		{"role": "user", "content": prompt},
	}
	if inputJSON, err := json.Marshal(inputMessages); err == nil {
		span.SetAttributes(attribute.String("gen_ai.input.messages", string(inputJSON)))
	}

	resp, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(e.model),
		MaxTokens:   e.maxTokens,
		Temperature: anthropic.Float(e.temperature),
		System: []anthropic.TextBlockParam{
			{Text: SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
	})
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "api_error"))
		return nil, classify("anthropic", err)
	}

	if len(resp.Content) == 0 {
		span.SetAttributes(attribute.String("error.type", "empty_response"))
		return nil, &APIError{
			Kind:     KindNetwork,
			Provider: "anthropic",
			Err:      fmt.Errorf("empty response from Anthropic API"),
		}
	}

	rawText := resp.Content[0].Text

	span.SetAttributes(
		attribute.String("gen_ai.response.model", e.model),
		attribute.Int64("gen_ai.usage.input_tokens", resp.Usage.InputTokens),
		attribute.Int64("gen_ai.usage.output_tokens", resp.Usage.OutputTokens),
	)
	if string(resp.StopReason) != "" {
		span.SetAttributes(attribute.StringSlice("gen_ai.response.finish_reasons", []string{string(resp.StopReason)}))
	}

	return &RawResponse{
		Text: rawText,
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}, nil
}
