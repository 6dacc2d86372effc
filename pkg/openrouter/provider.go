package openrouter

import "context"

// StreamChunk is one unit of a streaming completion. It carries either
// incremental text or a terminal error, never both. The channel closing is
// the end-of-stream marker.
type StreamChunk struct {
	Content string
	Err     error
}

// Provider defines the contract for the upstream completion backend. The
// concrete Client implements it; tests substitute fakes.
type Provider interface {
	// ChatCompletion sends the full turn list and returns the assistant text.
	ChatCompletion(ctx context.Context, model string, messages []Message) (string, error)

	// ChatCompletionStream opens a streaming completion. The returned channel
	// yields text fragments and is closed after the upstream end-of-stream
	// marker or a terminal error chunk.
	ChatCompletionStream(ctx context.Context, model string, messages []Message) (<-chan StreamChunk, error)

	// ListModels returns the usable free-model catalog. It never fails; on
	// any upstream problem a static fallback is returned.
	ListModels(ctx context.Context) []ModelInfo

	// RateLimit returns a copy of the last observed upstream quota snapshot.
	RateLimit() RateLimit
}
