package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/whatsapp-digest/internal/models"
)

// Client generates report and rewrite text with one model
type Client interface {
	GenerateReport(ctx context.Context, batchJSON, dateLabel, instructions, subject string) (string, error)
	GenerateSections(ctx context.Context, batchJSON, dateLabel, instructions, subject string) (*models.ReportSections, error)
	Rewrite(ctx context.Context, text, instruction string) (string, error)
	Model() string
	Close() error
}

// completer is the provider-specific chat call
type completer interface {
	complete(ctx context.Context, system, user string, structured bool) (string, error)
	Close() error
}

// ErrMissingAPIKey is returned when the provider for a model has no key configured
var ErrMissingAPIKey = errors.New("api key not configured")

// IsGemini reports whether a model name is served by Gemini
func IsGemini(model string) bool {
	return strings.HasPrefix(strings.ToLower(model), "gemini")
}

// New builds a client for model using the credentials in settings.
// Gemini models go to Gemini, every other name to the OpenAI-compatible API.
func New(settings *models.Settings, model string, timeout time.Duration, logger zerolog.Logger) (Client, error) {
	if model == "" {
		model = settings.Model().String()
	}

	var provider completer
	if IsGemini(model) {
		if settings.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
		}
		provider = NewGeminiClient(settings.GeminiAPIKey, model, settings.LLMTemperature, timeout, logger)
	} else {
		if settings.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
		}
		provider = NewOpenAIClient(settings.OpenAIAPIKey, settings.OpenAIBaseURL, model, settings.LLMTemperature, timeout, logger)
	}

	return &client{
		provider: provider,
		model:    model,
		logger:   logger.With().Str("component", "llm").Str("model", model).Logger(),
	}, nil
}

type client struct {
	provider completer
	model    string
	logger   zerolog.Logger
}

func (c *client) Model() string {
	return c.model
}

func (c *client) Close() error {
	return c.provider.Close()
}

// GenerateReport returns the Markdown report for one group's message batch
func (c *client) GenerateReport(ctx context.Context, batchJSON, dateLabel, instructions, subject string) (string, error) {
	startTime := time.Now()

	system := BuildReportPrompt(subject, dateLabel, instructions, false)
	user := ReportUserMessage(dateLabel, subject, batchJSON)

	c.logger.Debug().
		Str("group", subject).
		Int("prompt_length", len(system)).
		Int("batch_length", len(batchJSON)).
		Msg("Sending report request to LLM")

	var text string
	err := withRetry(ctx, c.logger, "generate_report", func() error {
		out, err := c.provider.complete(ctx, system, user, false)
		if err != nil {
			return err
		}
		text = stripCodeFence(out)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	c.logger.Info().
		Str("group", subject).
		Int("response_length", len([]rune(text))).
		Dur("duration", time.Since(startTime)).
		Msg("Report generated")

	return text, nil
}

// GenerateSections returns the report as typed sections using the provider's JSON mode
func (c *client) GenerateSections(ctx context.Context, batchJSON, dateLabel, instructions, subject string) (*models.ReportSections, error) {
	startTime := time.Now()

	system := BuildReportPrompt(subject, dateLabel, instructions, true)
	user := ReportUserMessage(dateLabel, subject, batchJSON)

	var sections *models.ReportSections
	err := withRetry(ctx, c.logger, "generate_sections", func() error {
		out, err := c.provider.complete(ctx, system, user, true)
		if err != nil {
			return err
		}
		sections, err = parseSections(out)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate report sections: %w", err)
	}

	c.logger.Info().
		Str("group", subject).
		Dur("duration", time.Since(startTime)).
		Msg("Structured report generated")

	return sections, nil
}

// Rewrite rewrites text following instruction. An empty answer yields the original text.
func (c *client) Rewrite(ctx context.Context, text, instruction string) (string, error) {
	var out string
	err := withRetry(ctx, c.logger, "rewrite", func() error {
		var err error
		out, err = c.provider.complete(ctx, RewriteSystemPrompt, RewriteUserMessage(text, instruction), false)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to rewrite message: %w", err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		c.logger.Warn().Msg("Empty rewrite response, keeping original text")
		return text, nil
	}
	return out, nil
}

// parseSections decodes a structured answer. A result without summary and
// WhatsApp text is rejected so that the caller can retry.
func parseSections(raw string) (*models.ReportSections, error) {
	var sections models.ReportSections
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &sections); err != nil {
		return nil, fmt.Errorf("failed to decode structured response: %w", err)
	}

	if strings.TrimSpace(sections.Summary) == "" && strings.TrimSpace(sections.WhatsappText) == "" {
		return nil, errors.New("structured response has no content")
	}
	return &sections, nil
}
