package models

import (
	"context"

	"github.com/tmc/langchaingo/llms"
)

// LLM is the narrow interface the classifier holds against a language model
// backend.
type LLM interface {
	// Call runs a chat completion against the prompt.
	Call(
		ctx context.Context,
		prompt string,
		options ...llms.CallOption,
	) (string, error)
	// GetTokenCount returns the number of tokens in the given text
	GetTokenCount(text string) (int, error)
}

// EmbeddingsClient embeds query text. Stored content is assumed to carry
// pre-computed embeddings; the engine only ever embeds the incoming query.
type EmbeddingsClient interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Searcher is the public entry point of the retrieval engine.
type Searcher interface {
	Search(ctx context.Context, query string, opts SearchOptions) (*SearchResult, error)
}
