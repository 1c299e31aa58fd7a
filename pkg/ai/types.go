package ai

import "context"

// CompletionRequest describes a single prompt sent to the reasoning service.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Completer is the reasoning-service boundary: one synchronous request and
// one raw text response per call. The response is never trusted to be
// well-formed JSON; callers route it through ParseObject.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
