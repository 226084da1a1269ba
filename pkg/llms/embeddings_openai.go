package llms

import (
	"context"

	"github.com/tmc/langchaingo/llms/openai"

	"github.com/mnemo-ai/mnemo/config"
	"github.com/mnemo-ai/mnemo/pkg/models"
)

const EmbeddingsOpenAIAPIKeyNotSetError = "MNEMO_OPENAI_API_KEY is not set" //nolint:gosec

var _ models.EmbeddingsClient = &OpenAIEmbeddingsClient{}

func NewOpenAIEmbeddingsClient(ctx context.Context, cfg *config.Config) (*OpenAIEmbeddingsClient, error) {
	client := &OpenAIEmbeddingsClient{}
	err := client.Init(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

type OpenAIEmbeddingsClient struct {
	client *openai.Chat
}

func (c *OpenAIEmbeddingsClient) Init(_ context.Context, cfg *config.Config) error {
	options := c.configureClient(cfg)

	// The langchain openai chat client builder is used even when the client
	// will only ever create embeddings.
	client, err := openai.NewChat(options...)
	if err != nil {
		return err
	}
	c.client = client

	return nil
}

func (c *OpenAIEmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if c.client == nil {
		return nil, NewEmbeddingsClientError(InvalidEmbeddingsClientError, nil)
	}
	if len(texts) == 0 {
		return nil, nil
	}

	thisCtx, cancel := context.WithTimeout(ctx, OpenAIAPITimeout)
	defer cancel()

	embeddings, err := c.client.CreateEmbedding(thisCtx, texts)
	if err != nil {
		return nil, NewEmbeddingsClientError("error while creating embedding", err)
	}

	return embeddings, nil
}

func (c *OpenAIEmbeddingsClient) configureClient(cfg *config.Config) []openai.Option {
	apiKey := cfg.LLM.OpenAIAPIKey
	if apiKey == "" {
		log.Fatal(EmbeddingsOpenAIAPIKeyNotSetError)
	}

	retryableHTTPClient := NewRetryableHTTPClient(MaxOpenAIAPIRequestAttempts, OpenAIAPITimeout)

	// A chat model must be set even for an embeddings-only client.
	model := cfg.LLM.Model
	if model == "" {
		model = "gpt-3.5-turbo"
	}

	options := make([]openai.Option, 0)
	options = append(
		options,
		openai.WithHTTPClient(retryableHTTPClient.StandardClient()),
		openai.WithModel(model),
		openai.WithToken(apiKey),
	)
	if cfg.LLM.OpenAIEndpoint != "" {
		options = append(options, openai.WithBaseURL(cfg.LLM.OpenAIEndpoint))
	}

	return options
}
