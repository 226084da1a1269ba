package llms

import (
	"context"
	"fmt"

	"github.com/mnemo-ai/mnemo/config"
	"github.com/mnemo-ai/mnemo/pkg/models"
)

const InvalidEmbeddingsClientError = "embeddings client is not set or is invalid"

type EmbeddingsClientError struct {
	message       string
	originalError error
}

func (e *EmbeddingsClientError) Error() string {
	return fmt.Sprintf("embeddings client error: %s (original error: %v)", e.message, e.originalError)
}

func NewEmbeddingsClientError(message string, originalError error) *EmbeddingsClientError {
	return &EmbeddingsClientError{message: message, originalError: originalError}
}

// NewEmbeddingsClient returns the embeddings backend used to embed the
// incoming query text. Stored content is embedded upstream; the retrieval
// engine never embeds stored rows.
func NewEmbeddingsClient(ctx context.Context, cfg *config.Config) (models.EmbeddingsClient, error) {
	switch cfg.Embeddings.Service {
	case "openai":
		return NewOpenAIEmbeddingsClient(ctx, cfg)
	case "local", "":
		return NewLocalEmbeddingsClient(cfg), nil
	default:
		return nil, fmt.Errorf("invalid embeddings service: %s", cfg.Embeddings.Service)
	}
}
