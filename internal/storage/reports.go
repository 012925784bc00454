package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/whatsapp-digest/internal/models"
)

// reportColumns selects a report with its group embedded
const reportColumns = "*,group:groups(*)"

// CreateReport stores a report and fills its id and creation time
func (c *Client) CreateReport(ctx context.Context, report *models.Report) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	report.ID = uuid.NewString()
	report.CreatedAt = c.now()

	err := c.withRetry(ctx, "create_report", func() error {
		data := map[string]interface{}{
			"id":             report.ID,
			"group_id":       report.GroupID,
			"date_ref":       report.DateRef,
			"summary":        report.Summary,
			"full_text":      report.FullText,
			"occurrences":    report.Occurrences,
			"problems":       report.Problems,
			"orders":         report.Orders,
			"actions":        report.Actions,
			"engagement":     report.Engagement,
			"status":         report.Status,
			"processed_data": report.ProcessedData,
			"created_at":     report.CreatedAt,
		}

		_, _, err := c.client.From(tableReports).
			Insert(data, false, "", "minimal", "").
			Execute()

		if err != nil {
			return fmt.Errorf("failed to insert report: %w", err)
		}
		return nil
	})

	if err != nil {
		c.logger.Error().
			Err(err).
			Str("date_ref", report.DateRef).
			Msg("Failed to save report")
		return err
	}

	c.logger.Info().
		Str("report_id", report.ID).
		Str("date_ref", report.DateRef).
		Str("status", string(report.Status)).
		Msg("Report saved")

	return nil
}

// GetReport returns a report with its group, or nil when it does not exist
func (c *Client) GetReport(ctx context.Context, id string) (*models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reports []models.Report
	err := c.withRetry(ctx, "get_report", func() error {
		data, _, err := c.client.From(tableReports).
			Select(reportColumns, "exact", false).
			Eq("id", id).
			Limit(1, "").
			Execute()

		if err != nil {
			return fmt.Errorf("failed to fetch report: %w", err)
		}

		if err := json.Unmarshal(data, &reports); err != nil {
			return fmt.Errorf("failed to unmarshal report: %w", err)
		}
		return nil
	})

	if err != nil {
		c.logger.Error().Err(err).Str("report_id", id).Msg("Failed to get report")
		return nil, err
	}

	if len(reports) == 0 {
		return nil, nil
	}
	return &reports[0], nil
}

// ListReports returns the most recent reports with their groups
func (c *Client) ListReports(ctx context.Context, limit int) ([]models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reports := []models.Report{}
	err := c.withRetry(ctx, "list_reports", func() error {
		data, _, err := c.client.From(tableReports).
			Select(reportColumns, "exact", false).
			Order("created_at", newestFirst).
			Limit(limit, "").
			Execute()

		if err != nil {
			return fmt.Errorf("failed to fetch reports: %w", err)
		}

		if err := json.Unmarshal(data, &reports); err != nil {
			return fmt.Errorf("failed to unmarshal reports: %w", err)
		}
		return nil
	})

	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to list reports")
		return nil, err
	}
	return reports, nil
}

// UpdateReportStatus moves a report to a new status
func (c *Client) UpdateReportStatus(ctx context.Context, id string, status models.ReportStatus) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.withRetry(ctx, "update_report_status", func() error {
		_, _, err := c.client.From(tableReports).
			Update(map[string]interface{}{"status": status}, "minimal", "").
			Eq("id", id).
			Execute()

		if err != nil {
			return fmt.Errorf("failed to update report status: %w", err)
		}
		return nil
	})

	if err != nil {
		c.logger.Error().
			Err(err).
			Str("report_id", id).
			Str("status", string(status)).
			Msg("Failed to update report status")
		return err
	}
	return nil
}

// ReportExists reports whether a group already has a non-error report for dateRef.
// EMPTY counts, so a restarted scheduler does not write a second empty row.
func (c *Client) ReportExists(ctx context.Context, groupID, dateRef string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reports []struct {
		ID string `json:"id"`
	}
	err := c.withRetry(ctx, "check_report_exists", func() error {
		data, _, err := c.client.From(tableReports).
			Select("id", "exact", false).
			Eq("group_id", groupID).
			Eq("date_ref", dateRef).
			In("status", []string{
				string(models.ReportGenerated),
				string(models.ReportSent),
				string(models.ReportEmpty),
			}).
			Limit(1, "").
			Execute()

		if err != nil {
			return fmt.Errorf("failed to check report existence: %w", err)
		}

		if err := json.Unmarshal(data, &reports); err != nil {
			return fmt.Errorf("failed to unmarshal reports: %w", err)
		}
		return nil
	})

	if err != nil {
		c.logger.Error().
			Err(err).
			Str("group_id", groupID).
			Str("date_ref", dateRef).
			Msg("Failed to check if report exists")
		return false, err
	}

	return len(reports) > 0, nil
}
