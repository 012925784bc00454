package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/whatsapp-digest/internal/models"
)

// CreateBroadcast records a manual broadcast
func (c *Client) CreateBroadcast(ctx context.Context, broadcast *models.Broadcast) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	broadcast.ID = uuid.NewString()
	broadcast.CreatedAt = c.now()

	err := c.withRetry(ctx, "create_broadcast", func() error {
		data := map[string]interface{}{
			"id":            broadcast.ID,
			"message":       broadcast.Message,
			"recipients":    broadcast.Recipients,
			"success_count": broadcast.SuccessCount,
			"fail_count":    broadcast.FailCount,
			"created_at":    broadcast.CreatedAt,
		}

		_, _, err := c.client.From(tableBroadcasts).
			Insert(data, false, "", "minimal", "").
			Execute()

		if err != nil {
			return fmt.Errorf("failed to insert broadcast: %w", err)
		}
		return nil
	})

	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to save broadcast")
		return err
	}

	c.logger.Info().
		Str("broadcast_id", broadcast.ID).
		Int("success_count", broadcast.SuccessCount).
		Int("fail_count", broadcast.FailCount).
		Msg("Broadcast saved")
	return nil
}

// ListBroadcasts returns the most recent broadcasts
func (c *Client) ListBroadcasts(ctx context.Context, limit int) ([]models.Broadcast, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	broadcasts := []models.Broadcast{}
	err := c.withRetry(ctx, "list_broadcasts", func() error {
		data, _, err := c.client.From(tableBroadcasts).
			Select("*", "exact", false).
			Order("created_at", newestFirst).
			Limit(limit, "").
			Execute()

		if err != nil {
			return fmt.Errorf("failed to fetch broadcasts: %w", err)
		}

		if err := json.Unmarshal(data, &broadcasts); err != nil {
			return fmt.Errorf("failed to unmarshal broadcasts: %w", err)
		}
		return nil
	})

	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to list broadcasts")
		return nil, err
	}
	return broadcasts, nil
}

// GetBroadcast returns a broadcast by id, or nil when it does not exist
func (c *Client) GetBroadcast(ctx context.Context, id string) (*models.Broadcast, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var broadcasts []models.Broadcast
	err := c.withRetry(ctx, "get_broadcast", func() error {
		data, _, err := c.client.From(tableBroadcasts).
			Select("*", "exact", false).
			Eq("id", id).
			Limit(1, "").
			Execute()

		if err != nil {
			return fmt.Errorf("failed to fetch broadcast: %w", err)
		}

		if err := json.Unmarshal(data, &broadcasts); err != nil {
			return fmt.Errorf("failed to unmarshal broadcast: %w", err)
		}
		return nil
	})

	if err != nil {
		c.logger.Error().Err(err).Str("broadcast_id", id).Msg("Failed to get broadcast")
		return nil, err
	}

	if len(broadcasts) == 0 {
		return nil, nil
	}
	return &broadcasts[0], nil
}

// DashboardStats counts groups, reports and prompts and reports the scheduler state.
// Counts run one after another; the REST client shares headers between queries.
func (c *Client) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	settings, err := c.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stats := &models.DashboardStats{}
	counters := []struct {
		table string
		eq    map[string]string
		dst   *int64
	}{
		{tableGroups, nil, &stats.Groups.Total},
		{tableGroups, map[string]string{"is_active": "true"}, &stats.Groups.Active},
		{tableReports, nil, &stats.Reports.Total},
		{tableReports, map[string]string{"status": string(models.ReportSent)}, &stats.Reports.Sent},
		{tablePrompts, nil, &stats.Prompts.Total},
	}

	for _, counter := range counters {
		err := c.withRetry(ctx, "count_"+counter.table, func() error {
			n, err := c.count(counter.table, counter.eq)
			if err != nil {
				return err
			}
			*counter.dst = n
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to collect dashboard stats: %w", err)
		}
	}

	stats.Scheduler.Time = models.DefaultAutoReportTime
	if settings != nil {
		stats.Scheduler.Enabled = settings.IsAutoReportEnabled
		stats.Scheduler.Time = settings.ReportTime()
		stats.Scheduler.LastHeartbeat = settings.SchedulerHeartbeat
	}

	return stats, nil
}
