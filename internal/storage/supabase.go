package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	supa "github.com/supabase-community/supabase-go"
	"github.com/supabase/postgrest-go"
)

// Table names
const (
	tableGroups     = "groups"
	tablePrompts    = "prompts"
	tableSettings   = "settings"
	tableReports    = "reports"
	tableBroadcasts = "broadcasts"
	tableTemplates  = "message_templates"
)

// ErrNotFound is returned by updates and deletes that match no row
var ErrNotFound = errors.New("record not found")

// newestFirst orders listings by creation time, most recent first
var newestFirst = &postgrest.OrderOpts{Ascending: false}

// Client represents a Supabase storage client
type Client struct {
	client  *supa.Client
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

// NewClient creates a new Supabase client
func NewClient(supabaseURL, supabaseKey string, timeout time.Duration, logger zerolog.Logger) (*Client, error) {
	client, err := supa.NewClient(supabaseURL, supabaseKey, &supa.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &Client{
		client:  client,
		timeout: timeout,
		logger:  logger.With().Str("component", "storage").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Ping checks if the connection to Supabase is working
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.withRetry(ctx, "ping", func() error {
		_, _, err := c.client.From(tableSettings).
			Select("id", "exact", false).
			Limit(1, "").
			Execute()
		return err
	})
	if err != nil {
		return fmt.Errorf("supabase ping failed: %w", err)
	}

	c.logger.Debug().Msg("Supabase connection successful")
	return nil
}

// withRetry executes a function with retry logic
func (c *Client) withRetry(ctx context.Context, operation string, fn func() error) error {
	maxRetries := 2
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			c.logger.Warn().
				Str("operation", operation).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("Retrying operation")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrNotFound) {
			return lastErr
		}

		c.logger.Error().
			Err(lastErr).
			Str("operation", operation).
			Int("attempt", attempt+1).
			Msg("Operation failed")
	}

	return fmt.Errorf("operation %s failed after %d attempts: %w", operation, maxRetries+1, lastErr)
}

// count returns the number of rows in table matching the eq filters
func (c *Client) count(table string, eq map[string]string) (int64, error) {
	query := c.client.From(table).Select("id", "exact", true)
	for column, value := range eq {
		query = query.Eq(column, value)
	}

	_, n, err := query.Execute()
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}
