package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/whatsapp-digest/internal/models"
)

// ListPrompts returns all prompts, newest first
func (c *Client) ListPrompts(ctx context.Context) ([]models.Prompt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompts := []models.Prompt{}
	err := c.withRetry(ctx, "list_prompts", func() error {
		data, _, err := c.client.From(tablePrompts).
			Select("*", "exact", false).
			Order("created_at", newestFirst).
			Execute()

		if err != nil {
			return fmt.Errorf("failed to fetch prompts: %w", err)
		}

		if err := json.Unmarshal(data, &prompts); err != nil {
			return fmt.Errorf("failed to unmarshal prompts: %w", err)
		}
		return nil
	})

	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to list prompts")
		return nil, err
	}
	return prompts, nil
}

// GetPrompt returns a prompt by id, or nil when it does not exist
func (c *Client) GetPrompt(ctx context.Context, id string) (*models.Prompt, error) {
	return c.findPrompt(ctx, "get_prompt", "id", id)
}

// FindPromptByName returns the first prompt with the given name, or nil
func (c *Client) FindPromptByName(ctx context.Context, name string) (*models.Prompt, error) {
	return c.findPrompt(ctx, "find_prompt_by_name", "name", name)
}

func (c *Client) findPrompt(ctx context.Context, operation, column, value string) (*models.Prompt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var prompts []models.Prompt
	err := c.withRetry(ctx, operation, func() error {
		data, _, err := c.client.From(tablePrompts).
			Select("*", "exact", false).
			Eq(column, value).
			Limit(1, "").
			Execute()

		if err != nil {
			return fmt.Errorf("failed to fetch prompt: %w", err)
		}

		if err := json.Unmarshal(data, &prompts); err != nil {
			return fmt.Errorf("failed to unmarshal prompt: %w", err)
		}
		return nil
	})

	if err != nil {
		c.logger.Error().Err(err).Str(column, value).Msg("Failed to get prompt")
		return nil, err
	}

	if len(prompts) == 0 {
		return nil, nil
	}
	return &prompts[0], nil
}

// CreatePrompt stores a new prompt and fills its id and creation time
func (c *Client) CreatePrompt(ctx context.Context, prompt *models.Prompt) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt.ID = uuid.NewString()
	prompt.CreatedAt = c.now()

	err := c.withRetry(ctx, "create_prompt", func() error {
		data := map[string]interface{}{
			"id":         prompt.ID,
			"name":       prompt.Name,
			"content":    prompt.Content,
			"created_at": prompt.CreatedAt,
		}

		_, _, err := c.client.From(tablePrompts).
			Insert(data, false, "", "minimal", "").
			Execute()

		if err != nil {
			return fmt.Errorf("failed to insert prompt: %w", err)
		}
		return nil
	})

	if err != nil {
		c.logger.Error().Err(err).Str("name", prompt.Name).Msg("Failed to create prompt")
		return err
	}

	c.logger.Info().
		Str("prompt_id", prompt.ID).
		Str("name", prompt.Name).
		Msg("Prompt created")
	return nil
}

// UpdatePrompt changes a prompt's name and content
func (c *Client) UpdatePrompt(ctx context.Context, id, name, content string) (*models.Prompt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var prompts []models.Prompt
	err := c.withRetry(ctx, "update_prompt", func() error {
		data, _, err := c.client.From(tablePrompts).
			Update(map[string]interface{}{"name": name, "content": content}, "representation", "").
			Eq("id", id).
			Execute()

		if err != nil {
			return fmt.Errorf("failed to update prompt: %w", err)
		}

		if err := json.Unmarshal(data, &prompts); err != nil {
			return fmt.Errorf("failed to unmarshal prompt: %w", err)
		}
		if len(prompts) == 0 {
			return ErrNotFound
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &prompts[0], nil
}

// DeletePrompt removes a prompt
func (c *Client) DeletePrompt(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	deleted, err := c.deleteWhere(ctx, "delete_prompt", tablePrompts, "id", []string{id})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrNotFound
	}

	c.logger.Info().Str("prompt_id", id).Msg("Prompt deleted")
	return nil
}

// deleteWhere deletes the rows of table whose column is in values and returns how many went
func (c *Client) deleteWhere(ctx context.Context, operation, table, column string, values []string) (int, error) {
	var rows []struct {
		ID string `json:"id"`
	}

	err := c.withRetry(ctx, operation, func() error {
		data, _, err := c.client.From(table).
			Delete("representation", "").
			In(column, values).
			Execute()

		if err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}

		if err := json.Unmarshal(data, &rows); err != nil {
			return fmt.Errorf("failed to unmarshal deleted rows: %w", err)
		}
		return nil
	})

	if err != nil {
		c.logger.Error().Err(err).Str("table", table).Msg("Failed to delete rows")
		return 0, err
	}
	return len(rows), nil
}
