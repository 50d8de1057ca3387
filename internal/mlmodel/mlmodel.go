// Package mlmodel defines the provider-agnostic text-completion client the
// ML advisory (internal/mladvisory) prompts for algorithm/waste/time
// suggestions. It deliberately exposes a single-turn, text-in/text-out
// Complete call rather than the teacher's full tool-calling/streaming
// surface: the advisory only ever needs one JSON-structured answer per
// question, never a multi-turn tool loop.
//
// Grounded on runtime/agent/model.Client/Request/Response, trimmed to the
// subset this domain exercises.
package mlmodel

import "context"

// Request is one completion request.
type Request struct {
	// System is the system prompt, if any.
	System string
	// Prompt is the single user-turn text.
	Prompt string
	// Model selects a concrete provider model identifier. Empty uses the
	// client's configured default.
	Model string
	// MaxTokens caps the response length.
	MaxTokens int
	// Temperature controls sampling; 0 lets the client pick a default.
	Temperature float32
}

// Response is one completion result.
type Response struct {
	// Text is the concatenated text content of the reply.
	Text string
	// Usage reports token consumption, when the provider exposes it.
	Usage TokenUsage
}

// TokenUsage mirrors runtime/agent/model.TokenUsage's shape for the
// subset this package reports.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// Client is the provider-agnostic completion port. internal/mladvisory
// holds one Client and wraps each of its calls in a per-operation
// breaker.Breaker.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
