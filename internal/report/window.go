package report

import (
	"fmt"
	"time"

	"github.com/whatsapp-digest/internal/models"
)

const (
	dateLayout    = "2006-01-02"
	dateRefLayout = "02/01/2006"

	// EndOfWindowSkew extends the end of the window past UTC midnight so
	// late-evening messages from western timezones (UTC-3) still count.
	EndOfWindowSkew = 4 * time.Hour
)

// Window is the inclusive time range whose messages feed a report
type Window struct {
	StartDate string
	EndDate   string
	From      time.Time
	To        time.Time
	DateRef   string
}

// Contains reports whether t falls inside the window, bounds included
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// resolveDates fills in the dates of a run that did not name a start date.
// Calendar days are taken in UTC.
func resolveDates(startDate, endDate string, period models.ReportPeriod, now time.Time) (string, string) {
	if startDate != "" {
		return startDate, endDate
	}

	today := now.UTC()
	yesterday := today.AddDate(0, 0, -1)

	switch period {
	case models.PeriodToday:
		d := today.Format(dateLayout)
		return d, d
	case models.Period24H:
		return yesterday.Format(dateLayout), today.Format(dateLayout)
	default:
		d := yesterday.Format(dateLayout)
		return d, d
	}
}

// NewWindow builds the filter window for ISO dates. An empty end date
// leaves the window open up to now.
func NewWindow(startDate, endDate string, now time.Time) (Window, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return Window{}, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}

	w := Window{
		StartDate: startDate,
		EndDate:   endDate,
		From:      start,
		To:        now.UTC(),
		DateRef:   start.Format(dateRefLayout),
	}

	if endDate == "" {
		return w, nil
	}

	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return Window{}, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}
	if end.Before(start) {
		return Window{}, fmt.Errorf("end date %s is before start date %s", endDate, startDate)
	}

	w.To = end.Add(24*time.Hour - time.Millisecond).Add(EndOfWindowSkew)
	if endDate != startDate {
		w.DateRef = w.DateRef + " a " + end.Format(dateRefLayout)
	}

	return w, nil
}
