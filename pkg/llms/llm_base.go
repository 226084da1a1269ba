package llms

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/mnemo-ai/mnemo/config"
	"github.com/mnemo-ai/mnemo/internal"
	"github.com/mnemo-ai/mnemo/pkg/models"
)

const DefaultTemperature = 0.0
const InvalidLLMModelError = "llm model is not set or is invalid"

const OpenAIAPITimeout = 60 * time.Second
const MaxOpenAIAPIRequestAttempts = 5

var log = internal.GetLogger()

type LLMError struct {
	message       string
	originalError error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("llm error: %s (original error: %v)", e.message, e.originalError)
}

func NewLLMError(message string, originalError error) *LLMError {
	return &LLMError{message: message, originalError: originalError}
}

// NewLLMClient returns the LLM backend used for query classification.
func NewLLMClient(ctx context.Context, cfg *config.Config) (models.LLM, error) {
	switch cfg.LLM.Service {
	case "openai", "":
		// An empty service defaults to OpenAI for backward compatibility
		return NewOpenAILLM(ctx, cfg)
	default:
		return nil, fmt.Errorf("invalid LLM service: %s", cfg.LLM.Service)
	}
}

func NewRetryableHTTPClient(retryMax int, timeout time.Duration) *retryablehttp.Client {
	retryableHTTPClient := retryablehttp.NewClient()
	retryableHTTPClient.RetryMax = retryMax
	retryableHTTPClient.HTTPClient.Timeout = timeout
	retryableHTTPClient.Logger = internal.NewLeveledLogrus(log)
	retryableHTTPClient.Backoff = retryablehttp.DefaultBackoff
	retryableHTTPClient.CheckRetry = retryPolicy

	return retryableHTTPClient
}

// retryPolicy is a retryablehttp.CheckRetry function. It is used to determine
// whether a request should be retried or not.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	// do not retry on context.Canceled or context.DeadlineExceeded
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	// Do not retry 400 errors as they're used by OpenAI to indicate maximum
	// context length exceeded
	if resp != nil && resp.StatusCode == http.StatusBadRequest {
		return false, err
	}

	shouldRetry, _ := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	return shouldRetry, nil
}
