package llm

import (
	"context"
	"errors"
)

// ErrEmptyCompletion is returned when a provider answers without any choice or candidate.
var ErrEmptyCompletion = errors.New("provider returned no completion")

// Request contains single-turn completion parameters
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Response contains LLM generation result
type Response struct {
	Content    string
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Complete runs one completion. An empty Content with a nil error means
	// the model answered with nothing.
	Complete(ctx context.Context, req Request, model string) (*Response, error)
}
