package models

import "time"

// ReportStatus is the lifecycle state of a stored report
type ReportStatus string

const (
	ReportGenerated ReportStatus = "GENERATED"
	ReportSent      ReportStatus = "SENT"
	ReportEmpty     ReportStatus = "EMPTY"
	ReportError     ReportStatus = "ERROR"
)

// Report is one generated digest for a group over a date window
type Report struct {
	ID            string       `json:"id"`
	GroupID       *string      `json:"group_id"`
	Group         *Group       `json:"group,omitempty"`
	DateRef       string       `json:"date_ref"`
	Summary       string       `json:"summary"`
	FullText      string       `json:"full_text"`
	Occurrences   string       `json:"occurrences"`
	Problems      string       `json:"problems"`
	Orders        string       `json:"orders"`
	Actions       string       `json:"actions"`
	Engagement    string       `json:"engagement"`
	Status        ReportStatus `json:"status"`
	ProcessedData string       `json:"processed_data"`
	CreatedAt     time.Time    `json:"created_at"`
}

// ProcessOptions controls one processor run
type ProcessOptions struct {
	StartDate string   `json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string   `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	GroupIDs  []string `json:"groupIds,omitempty"`
	Model     string   `json:"model,omitempty"`
	// Dedupe skips groups that already have a generated or sent report for the same dateRef
	Dedupe bool `json:"dedupe,omitempty"`
}

// RunStatus is the aggregate status of a processor run
type RunStatus string

const (
	RunCompleted RunStatus = "COMPLETED"
	RunSkipped   RunStatus = "SKIPPED"
)

// OutcomeStatus is the terminal state of one group's pipeline
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "SUCCESS"
	OutcomeEmpty   OutcomeStatus = "EMPTY"
	OutcomeError   OutcomeStatus = "ERROR"
	OutcomeSkipped OutcomeStatus = "SKIPPED"
)

// GroupResult describes how one group's pipeline ended
type GroupResult struct {
	Status   OutcomeStatus `json:"status"`
	ReportID string        `json:"reportId,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// GroupOutcome pairs a group name with its result
type GroupOutcome struct {
	Group  string      `json:"group"`
	Result GroupResult `json:"result"`
}

// ProcessResult is the aggregated outcome of a processor run
type ProcessResult struct {
	Status  RunStatus      `json:"status"`
	Reason  string         `json:"reason,omitempty"`
	Results []GroupOutcome `json:"results,omitempty"`
}
