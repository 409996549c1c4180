package textgen

import (
	"context"
)

// Generator defines the interface for local text-generation operations
type Generator interface {
	// Complete sends a chat completion request to the local model server
	Complete(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (string, error)

	// Correct rewrites a transcript chunk at the given correction level
	Correct(ctx context.Context, text, level, language string) (string, error)
}

// Ensure Service implements Generator
var _ Generator = (*Service)(nil)
