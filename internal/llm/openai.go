package llm

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient calls chat models through any OpenAI-compatible API
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	logger      zerolog.Logger
}

// NewOpenAIClient creates a new OpenAI client. An empty baseURL uses the public API.
func NewOpenAIClient(apiKey, baseURL, model string, temperature float32, timeout time.Duration, logger zerolog.Logger) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimSuffix(baseURL, "/")
	}

	// The request field is omitempty, and the API reads a missing temperature as 1
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
		timeout:     timeout,
		logger:      logger.With().Str("component", "openai").Logger(),
	}
}

// Close is a no-op; the HTTP client holds no resources
func (c *OpenAIClient) Close() error {
	return nil
}

func (c *OpenAIClient) complete(ctx context.Context, system, user string, structured bool) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.temperature,
	}
	if structured {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}

	c.logger.Debug().
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("Chat completion received")

	return resp.Choices[0].Message.Content, nil
}
