// Package semantic implements the last extraction tier: handing the
// report text to a language model with a strict JSON-only contract and
// a fixed provider fallback chain.
package semantic

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// Provider is one backing model endpoint.
type Provider interface {
	// Name identifies the provider/model pair in logs and evidence.
	Name() string
	// GenerateResponse sends one prompt and returns the raw response
	// text. Implementations must honor context cancellation.
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string) (string, error)
}

// ErrRateLimited wraps upstream throttling so the extractor can fail
// over to the next provider in the chain instead of retrying.
var ErrRateLimited = errors.New("provider rate limited")

// IsRateLimited reports whether an error is an upstream throttle
// response, either our sentinel or an OpenAI-compatible 429.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *openai.APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429
}
