package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"google.golang.org/genai"

	"github.com/phrazzld/taskboss-api/internal/config"
)

// caller wraps the genai client with model selection and retry policy.
// It is shared by the classifier and generator adapters.
type caller struct {
	client     *genai.Client
	model      string
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// newCaller validates the LLM configuration and builds the shared client.
func newCaller(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig, component string) (*caller, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create gemini client: %v", ErrInvalidConfig, err)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 2
	}
	baseDelay := time.Duration(cfg.RetryDelaySeconds) * time.Second
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}

	return &caller{
		client:     client,
		model:      cfg.ModelName,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger.With("component", component),
	}, nil
}

// generateText sends a single-prompt request and returns the response text.
func (c *caller) generateText(ctx context.Context, prompt string, genCfg *genai.GenerateContentConfig) (string, error) {
	if prompt == "" {
		return "", ErrEmptyInput
	}
	return c.generate(ctx, genai.Text(prompt), genCfg)
}

// generate calls the model with retry on transient failures. Malformed
// or empty responses are permanent: the model answered, it just answered
// badly, and retrying the identical request rarely helps.
func (c *caller) generate(
	ctx context.Context,
	contents []*genai.Content,
	genCfg *genai.GenerateContentConfig,
) (string, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, genCfg)
		if err == nil {
			text := resp.Text()
			if text == "" {
				return "", fmt.Errorf("%w: empty response text", ErrInvalidResponse)
			}
			return text, nil
		}

		lastErr = err
		c.logger.WarnContext(ctx, "gemini call failed",
			"attempt", attempt+1,
			"max_attempts", c.maxRetries+1,
			"error", err)

		if attempt >= c.maxRetries {
			break
		}

		// Exponential backoff with jitter:
		// delay = baseDelay * 2^attempt * (0.5 + rand(0, 0.5))
		backoff := float64(c.baseDelay) * math.Pow(2, float64(attempt))
		jitter := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoff * jitter)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrTransientFailure, ctx.Err())
		}
	}

	return "", fmt.Errorf("%w: exceeded %d attempts: %v", ErrTransientFailure, c.maxRetries+1, lastErr)
}
