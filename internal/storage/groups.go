package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/whatsapp-digest/internal/models"
)

// groupColumns selects a group with its prompt embedded
const groupColumns = "*,prompt:prompts(*)"

// ListGroups returns all groups, newest first
func (c *Client) ListGroups(ctx context.Context) ([]models.Group, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	groups := []models.Group{}
	err := c.withRetry(ctx, "list_groups", func() error {
		data, _, err := c.client.From(tableGroups).
			Select(groupColumns, "exact", false).
			Order("created_at", newestFirst).
			Execute()

		if err != nil {
			return fmt.Errorf("failed to fetch groups: %w", err)
		}

		if err := json.Unmarshal(data, &groups); err != nil {
			return fmt.Errorf("failed to unmarshal groups: %w", err)
		}
		return nil
	})

	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to list groups")
		return nil, err
	}
	return groups, nil
}

// ListTargetGroups returns the active groups with the given ids, or every
// active group enrolled in the automatic report when ids is empty
func (c *Client) ListTargetGroups(ctx context.Context, ids []string) ([]models.Group, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var groups []models.Group
	err := c.withRetry(ctx, "list_target_groups", func() error {
		query := c.client.From(tableGroups).
			Select(groupColumns, "exact", false).
			Eq("is_active", "true")

		if len(ids) > 0 {
			query = query.In("id", ids)
		} else {
			query = query.Eq("include_in_auto_report", "true")
		}

		data, _, err := query.Execute()
		if err != nil {
			return fmt.Errorf("failed to fetch target groups: %w", err)
		}

		if err := json.Unmarshal(data, &groups); err != nil {
			return fmt.Errorf("failed to unmarshal groups: %w", err)
		}
		return nil
	})

	if err != nil {
		c.logger.Error().
			Err(err).
			Strs("group_ids", ids).
			Msg("Failed to list target groups")
		return nil, err
	}

	c.logger.Debug().
		Strs("group_ids", ids).
		Int("group_count", len(groups)).
		Msg("Resolved target groups")

	return groups, nil
}

// CreateGroup stores a new active group
func (c *Client) CreateGroup(ctx context.Context, group *models.Group) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	group.ID = uuid.NewString()
	group.CreatedAt = c.now()
	group.IsActive = true

	err := c.withRetry(ctx, "create_group", func() error {
		data := map[string]interface{}{
			"id":                     group.ID,
			"name":                   group.Name,
			"jid":                    group.JID,
			"is_active":              group.IsActive,
			"include_in_auto_report": group.IncludeInAutoReport,
			"send_to_jid":            group.SendToJID,
			"send_to_name":           group.SendToName,
			"prompt_id":              group.PromptID,
			"created_at":             group.CreatedAt,
		}

		_, _, err := c.client.From(tableGroups).
			Insert(data, false, "", "minimal", "").
			Execute()

		if err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}
		return nil
	})

	if err != nil {
		c.logger.Error().Err(err).Str("jid", group.JID).Msg("Failed to create group")
		return err
	}

	c.logger.Info().
		Str("group_id", group.ID).
		Str("name", group.Name).
		Str("jid", group.JID).
		Msg("Group created")
	return nil
}

// UpdateGroup applies a partial update and returns the stored group
func (c *Client) UpdateGroup(ctx context.Context, id string, patch models.GroupPatch) (*models.Group, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	fields := patchFields(patch)
	if len(fields) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	var groups []models.Group
	err := c.withRetry(ctx, "update_group", func() error {
		data, _, err := c.client.From(tableGroups).
			Update(fields, "representation", "").
			Eq("id", id).
			Execute()

		if err != nil {
			return fmt.Errorf("failed to update group: %w", err)
		}

		if err := json.Unmarshal(data, &groups); err != nil {
			return fmt.Errorf("failed to unmarshal group: %w", err)
		}
		if len(groups) == 0 {
			return ErrNotFound
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	c.logger.Info().Str("group_id", id).Int("fields", len(fields)).Msg("Group updated")
	return &groups[0], nil
}

// patchFields maps the set fields of a patch to columns
func patchFields(p models.GroupPatch) map[string]interface{} {
	fields := map[string]interface{}{}

	if p.Name != nil {
		fields["name"] = *p.Name
	}
	if p.JID != nil {
		fields["jid"] = *p.JID
	}
	if p.IsActive != nil {
		fields["is_active"] = *p.IsActive
	}
	if p.IncludeInAutoReport != nil {
		fields["include_in_auto_report"] = *p.IncludeInAutoReport
	}
	setNullable(fields, "send_to_jid", p.SendToJID)
	setNullable(fields, "send_to_name", p.SendToName)
	setNullable(fields, "prompt_id", p.PromptID)

	return fields
}

func setNullable(fields map[string]interface{}, column string, value *string) {
	if value == nil {
		return
	}
	if *value == "" {
		fields[column] = nil
		return
	}
	fields[column] = *value
}

// DeleteGroups removes groups together with their reports and returns both counts
func (c *Client) DeleteGroups(ctx context.Context, ids []string) (groups, reports int, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reports, err = c.deleteWhere(ctx, "delete_group_reports", tableReports, "group_id", ids)
	if err != nil {
		return 0, 0, err
	}

	groups, err = c.deleteWhere(ctx, "delete_groups", tableGroups, "id", ids)
	if err != nil {
		return 0, reports, err
	}

	c.logger.Info().
		Strs("group_ids", ids).
		Int("deleted_groups", groups).
		Int("deleted_reports", reports).
		Msg("Groups deleted")

	return groups, reports, nil
}
