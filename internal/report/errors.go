package report

import (
	"errors"
	"fmt"
)

// ErrConfiguration means settings are missing or incomplete. It aborts the
// whole run before any group is touched.
var ErrConfiguration = errors.New("settings not configured")

// ErrNoTargetGroups means no active group matched the run criteria.
// Process reports it as a SKIPPED result rather than returning it.
var ErrNoTargetGroups = errors.New("no matching groups")

// ErrInvalidOptions means the run options named malformed dates
var ErrInvalidOptions = errors.New("invalid process options")

// ErrReportNotFound is returned when a report id does not exist
var ErrReportNotFound = errors.New("report not found")

// GatewayFetchError wraps a failure to read a group's history
type GatewayFetchError struct {
	JID string
	Err error
}

func (e *GatewayFetchError) Error() string {
	return fmt.Sprintf("failed to fetch messages for %s: %v", e.JID, e.Err)
}

func (e *GatewayFetchError) Unwrap() error { return e.Err }

// GenerativeClientError wraps a failure of the report generator
type GenerativeClientError struct {
	Model string
	Err   error
}

func (e *GenerativeClientError) Error() string {
	return fmt.Sprintf("report generation with %s failed: %v", e.Model, e.Err)
}

func (e *GenerativeClientError) Unwrap() error { return e.Err }

// GatewayDeliveryError wraps a failure to send a generated report.
// The report row already exists with status GENERATED.
type GatewayDeliveryError struct {
	JID      string
	ReportID string
	Err      error
}

func (e *GatewayDeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver report %s to %s: %v", e.ReportID, e.JID, e.Err)
}

func (e *GatewayDeliveryError) Unwrap() error { return e.Err }
