package domain

import "context"

// CompletionRequest is a single-turn chat completion.
type CompletionRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// Generator produces an answer from a prompt.
type Generator interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
