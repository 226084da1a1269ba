package llms

import (
	"context"

	"github.com/pkoukk/tiktoken-go"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/mnemo-ai/mnemo/config"
	"github.com/mnemo-ai/mnemo/pkg/models"
)

const OpenAIAPIKeyNotSetError = "MNEMO_OPENAI_API_KEY is not set" //nolint:gosec

var _ models.LLM = &OpenAILLM{}

func NewOpenAILLM(ctx context.Context, cfg *config.Config) (*OpenAILLM, error) {
	client := &OpenAILLM{}
	err := client.Init(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

type OpenAILLM struct {
	llm *openai.Chat
	tkm *tiktoken.Tiktoken
}

func (client *OpenAILLM) Init(_ context.Context, cfg *config.Config) error {
	// Initialize the Tiktoken client
	encoding := "cl100k_base"
	tkm, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return err
	}
	client.tkm = tkm

	options := client.configureClient(cfg)

	// Create a new client instance with options
	llm, err := openai.NewChat(options...)
	if err != nil {
		return err
	}
	client.llm = llm

	return nil
}

func (client *OpenAILLM) Call(ctx context.Context,
	prompt string,
	options ...llms.CallOption,
) (string, error) {
	// If the LLM is not initialized, return an error
	if client.llm == nil {
		return "", NewLLMError(InvalidLLMModelError, nil)
	}

	if len(options) == 0 {
		options = append(options, llms.WithTemperature(DefaultTemperature))
	}

	thisCtx, cancel := context.WithTimeout(ctx, OpenAIAPITimeout)
	defer cancel()

	messages := []schema.ChatMessage{schema.SystemChatMessage{Content: prompt}}

	completion, err := client.llm.Call(thisCtx, messages, options...)
	if err != nil {
		return "", err
	}

	return completion.GetContent(), nil
}

// GetTokenCount returns the number of tokens in the text
func (client *OpenAILLM) GetTokenCount(text string) (int, error) {
	return len(client.tkm.Encode(text, nil, nil)), nil
}

func (client *OpenAILLM) configureClient(cfg *config.Config) []openai.Option {
	apiKey := cfg.LLM.OpenAIAPIKey
	if apiKey == "" {
		log.Fatal(OpenAIAPIKeyNotSetError)
	}

	retryableHTTPClient := NewRetryableHTTPClient(MaxOpenAIAPIRequestAttempts, OpenAIAPITimeout)

	options := make([]openai.Option, 0)
	options = append(
		options,
		openai.WithHTTPClient(retryableHTTPClient.StandardClient()),
		openai.WithModel(cfg.LLM.Model),
		openai.WithToken(apiKey),
	)
	if cfg.LLM.OpenAIEndpoint != "" {
		options = append(options, openai.WithBaseURL(cfg.LLM.OpenAIEndpoint))
	}

	return options
}
