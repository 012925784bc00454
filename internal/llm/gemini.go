package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// GeminiClient calls Gemini models through the generative-ai SDK
type GeminiClient struct {
	apiKey      string
	model       string
	temperature float32
	timeout     time.Duration
	logger      zerolog.Logger
	genaiClient *genai.Client
	mu          sync.Mutex
}

// NewGeminiClient creates a new Gemini client. The SDK client is created on first use.
func NewGeminiClient(apiKey, model string, temperature float32, timeout time.Duration, logger zerolog.Logger) *GeminiClient {
	return &GeminiClient{
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		timeout:     timeout,
		logger:      logger.With().Str("component", "gemini").Logger(),
	}
}

// getClient returns or creates a genai client (thread-safe)
func (c *GeminiClient) getClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.genaiClient != nil {
		return c.genaiClient, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	c.genaiClient = client
	c.logger.Debug().Msg("Gemini client created")
	return c.genaiClient, nil
}

// Close releases the SDK client
func (c *GeminiClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.genaiClient != nil {
		err := c.genaiClient.Close()
		c.genaiClient = nil
		if err != nil {
			c.logger.Error().Err(err).Msg("Failed to close Gemini client")
			return err
		}
		c.logger.Debug().Msg("Gemini client closed")
	}
	return nil
}

func (c *GeminiClient) complete(ctx context.Context, system, user string, structured bool) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	client, err := c.getClient(ctx)
	if err != nil {
		return "", err
	}

	model := client.GenerativeModel(c.model)
	model.SetTemperature(c.temperature)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	if structured {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = sectionsSchema()
	}

	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no response candidates from LLM")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content parts in response")
	}

	var responseText strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	return responseText.String(), nil
}

// sectionsSchema describes models.ReportSections for JSON mode
func sectionsSchema() *genai.Schema {
	properties := make(map[string]*genai.Schema, len(sectionKeys))
	for i, key := range sectionKeys {
		properties[key] = &genai.Schema{
			Type:        genai.TypeString,
			Description: sectionHints[i],
		}
	}

	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: properties,
		Required:   []string{"summary", "whatsapp_text"},
	}
}
