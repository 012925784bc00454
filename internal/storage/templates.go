package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/whatsapp-digest/internal/models"
)

// ListTemplates returns all message templates, newest first
func (c *Client) ListTemplates(ctx context.Context) ([]models.MessageTemplate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	templates := []models.MessageTemplate{}
	err := c.withRetry(ctx, "list_templates", func() error {
		data, _, err := c.client.From(tableTemplates).
			Select("*", "exact", false).
			Order("created_at", newestFirst).
			Execute()

		if err != nil {
			return fmt.Errorf("failed to fetch message templates: %w", err)
		}

		if err := json.Unmarshal(data, &templates); err != nil {
			return fmt.Errorf("failed to unmarshal message templates: %w", err)
		}
		return nil
	})

	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to list message templates")
		return nil, err
	}
	return templates, nil
}

// CreateTemplate stores a new message template and fills its id and creation time
func (c *Client) CreateTemplate(ctx context.Context, template *models.MessageTemplate) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	template.ID = uuid.NewString()
	template.CreatedAt = c.now()

	err := c.withRetry(ctx, "create_template", func() error {
		data := map[string]interface{}{
			"id":         template.ID,
			"name":       template.Name,
			"content":    template.Content,
			"created_at": template.CreatedAt,
		}

		_, _, err := c.client.From(tableTemplates).
			Insert(data, false, "", "minimal", "").
			Execute()

		if err != nil {
			return fmt.Errorf("failed to insert message template: %w", err)
		}
		return nil
	})

	if err != nil {
		c.logger.Error().Err(err).Str("name", template.Name).Msg("Failed to create message template")
		return err
	}

	c.logger.Info().
		Str("template_id", template.ID).
		Str("name", template.Name).
		Msg("Message template created")
	return nil
}

// UpdateTemplate changes a template's name and content
func (c *Client) UpdateTemplate(ctx context.Context, id, name, content string) (*models.MessageTemplate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var templates []models.MessageTemplate
	err := c.withRetry(ctx, "update_template", func() error {
		data, _, err := c.client.From(tableTemplates).
			Update(map[string]interface{}{"name": name, "content": content}, "representation", "").
			Eq("id", id).
			Execute()

		if err != nil {
			return fmt.Errorf("failed to update message template: %w", err)
		}

		if err := json.Unmarshal(data, &templates); err != nil {
			return fmt.Errorf("failed to unmarshal message template: %w", err)
		}
		if len(templates) == 0 {
			return ErrNotFound
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &templates[0], nil
}

// DeleteTemplate removes a message template
func (c *Client) DeleteTemplate(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	deleted, err := c.deleteWhere(ctx, "delete_template", tableTemplates, "id", []string{id})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrNotFound
	}

	c.logger.Info().Str("template_id", id).Msg("Message template deleted")
	return nil
}
