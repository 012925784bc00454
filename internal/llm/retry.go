package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

const maxRetries = 2

// retryBaseDelay is the first backoff; each retry doubles it
var retryBaseDelay = time.Second

// withRetry runs fn until it succeeds, the context ends, the error is
// permanent or the attempts run out
func withRetry(ctx context.Context, logger zerolog.Logger, operation string, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s
			backoff := retryBaseDelay * time.Duration(1<<uint(attempt-1))
			logger.Warn().
				Str("operation", operation).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("Retrying LLM request")

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

		logger.Error().
			Err(lastErr).
			Str("operation", operation).
			Int("attempt", attempt+1).
			Msg("LLM request failed")

		if !retryable(lastErr) || ctx.Err() != nil {
			return lastErr
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", maxRetries+1, lastErr)
}

// retryable rejects errors that another attempt cannot fix
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}

	return true
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
