package judge

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
)

// ErrorKind partitions vendor and transport failures for the caller.
// There is no retry policy: every error propagates as-is.
type ErrorKind string

const (
	// KindAuth covers invalid or missing credentials (HTTP 401/403).
	KindAuth ErrorKind = "auth"
	// KindRateLimit covers vendor throttling (HTTP 429).
	KindRateLimit ErrorKind = "rate_limit"
	// KindTimeout covers the configurable request deadline expiring.
	KindTimeout ErrorKind = "timeout"
	// KindNetwork covers every other transport or vendor failure.
	KindNetwork ErrorKind = "network"
)

// APIError wraps a vendor or transport failure with its classification.
type APIError struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s API error (%s, status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s API error (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err, or "" when err is not an APIError.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// classify maps an SDK or transport error to an APIError.
func classify(provider string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &APIError{Kind: KindTimeout, Provider: provider, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &APIError{Kind: KindTimeout, Provider: provider, Err: err}
	}

	if status, ok := statusCode(err); ok {
		return &APIError{Kind: kindForStatus(status), Provider: provider, StatusCode: status, Err: err}
	}

	return &APIError{Kind: KindNetwork, Provider: provider, Err: err}
}

func statusCode(err error) (int, bool) {
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode, true
	}
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return openaiErr.StatusCode, true
	}
	return 0, false
}

func kindForStatus(status int) ErrorKind {
	switch status {
	case 401, 403:
		return KindAuth
	case 429:
		return KindRateLimit
	case 408, 504:
		return KindTimeout
	default:
		return KindNetwork
	}
}
