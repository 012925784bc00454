package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/whatsapp-digest/internal/models"
)

var settingsKey = strconv.Itoa(models.SettingsID)

// GetSettings returns the singleton settings row, or nil when it has not been saved yet
func (c *Client) GetSettings(ctx context.Context) (*models.Settings, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rows []models.Settings
	err := c.withRetry(ctx, "get_settings", func() error {
		data, _, err := c.client.From(tableSettings).
			Select("*", "exact", false).
			Eq("id", settingsKey).
			Limit(1, "").
			Execute()

		if err != nil {
			return fmt.Errorf("failed to fetch settings: %w", err)
		}

		if err := json.Unmarshal(data, &rows); err != nil {
			return fmt.Errorf("failed to unmarshal settings: %w", err)
		}

		return nil
	})

	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to get settings")
		return nil, err
	}

	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// SaveSettings creates or replaces the settings row
func (c *Client) SaveSettings(ctx context.Context, settings *models.Settings) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	settings.ID = models.SettingsID

	data := map[string]interface{}{
		"id":                      settings.ID,
		"evolution_api_url":       settings.EvolutionAPIURL,
		"evolution_instance_name": settings.EvolutionInstanceName,
		"evolution_token":         settings.EvolutionToken,
		"whatsapp_group_id":       settings.WhatsappGroupID,
		"openai_api_key":          settings.OpenAIAPIKey,
		"openai_base_url":         settings.OpenAIBaseURL,
		"gemini_api_key":          settings.GeminiAPIKey,
		"system_prompt":           settings.SystemPrompt,
		"default_prompt_id":       settings.DefaultPromptID,
		"auto_report_time":        settings.AutoReportTime,
		"is_auto_report_enabled":  settings.IsAutoReportEnabled,
		"auto_report_period":      settings.AutoReportPeriod,
		"llm_model":               settings.LLMModel,
		"llm_temperature":         settings.LLMTemperature,
		"structured_output":       settings.StructuredOutput,
	}

	err := c.withRetry(ctx, "save_settings", func() error {
		_, _, err := c.client.From(tableSettings).
			Insert(data, true, "id", "", "").
			Execute()

		if err != nil {
			return fmt.Errorf("failed to upsert settings: %w", err)
		}
		return nil
	})

	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to save settings")
		return err
	}

	c.logger.Info().
		Str("model", settings.LLMModel).
		Bool("auto_report", settings.IsAutoReportEnabled).
		Str("auto_report_time", settings.AutoReportTime).
		Msg("Settings saved")

	return nil
}

// SetDefaultPrompt links the default prompt in the settings row
func (c *Client) SetDefaultPrompt(ctx context.Context, promptID string) error {
	return c.updateSettings(ctx, "set_default_prompt", map[string]interface{}{"default_prompt_id": promptID})
}

// UpdateHeartbeat records that the scheduler is alive
func (c *Client) UpdateHeartbeat(ctx context.Context, at time.Time) error {
	return c.updateSettings(ctx, "update_heartbeat", map[string]interface{}{"scheduler_heartbeat": at.UTC()})
}

func (c *Client) updateSettings(ctx context.Context, operation string, fields map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.withRetry(ctx, operation, func() error {
		_, _, err := c.client.From(tableSettings).
			Update(fields, "minimal", "").
			Eq("id", settingsKey).
			Execute()

		if err != nil {
			return fmt.Errorf("failed to update settings: %w", err)
		}
		return nil
	})

	if err != nil {
		c.logger.Error().Err(err).Str("operation", operation).Msg("Failed to update settings")
		return err
	}
	return nil
}
