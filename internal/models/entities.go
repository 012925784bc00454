package models

import "time"

// ReportPeriod selects the window used when a run does not name dates
type ReportPeriod string

const (
	PeriodToday     ReportPeriod = "TODAY"
	Period24H       ReportPeriod = "24H"
	PeriodYesterday ReportPeriod = "YESTERDAY"
)

// Group is a managed WhatsApp chat
type Group struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	JID                 string    `json:"jid"`
	IsActive            bool      `json:"is_active"`
	IncludeInAutoReport bool      `json:"include_in_auto_report"`
	SendToJID           *string   `json:"send_to_jid"`
	SendToName          *string   `json:"send_to_name"`
	PromptID            *string   `json:"prompt_id"`
	Prompt              *Prompt   `json:"prompt,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// DeliveryJID returns the chat that receives this group's reports
func (g *Group) DeliveryJID() string {
	if g.SendToJID != nil && *g.SendToJID != "" {
		return *g.SendToJID
	}
	return g.JID
}

// Prompt is a reusable instruction template
type Prompt struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageTemplate is reusable text for manual broadcasts
type MessageTemplate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SettingsID is the primary key of the singleton settings row
const SettingsID = 1

// Settings is the singleton business configuration row
type Settings struct {
	ID                    int          `json:"id"`
	EvolutionAPIURL       string       `json:"evolution_api_url" validate:"required"`
	EvolutionInstanceName string       `json:"evolution_instance_name" validate:"required"`
	EvolutionToken        string       `json:"evolution_token" validate:"required"`
	WhatsappGroupID       string       `json:"whatsapp_group_id"`
	OpenAIAPIKey          string       `json:"openai_api_key"`
	OpenAIBaseURL         string       `json:"openai_base_url" validate:"omitempty,url"`
	GeminiAPIKey          string       `json:"gemini_api_key"`
	SystemPrompt          *string      `json:"system_prompt"`
	DefaultPromptID       *string      `json:"default_prompt_id"`
	AutoReportTime        string       `json:"auto_report_time" validate:"omitempty,datetime=15:04"`
	IsAutoReportEnabled   bool         `json:"is_auto_report_enabled"`
	AutoReportPeriod      ReportPeriod `json:"auto_report_period" validate:"omitempty,oneof=TODAY 24H YESTERDAY"`
	LLMModel              string       `json:"llm_model"`
	LLMTemperature        float32      `json:"llm_temperature" validate:"min=0,max=2"`
	StructuredOutput      bool         `json:"structured_output"`
	SchedulerHeartbeat    *time.Time   `json:"scheduler_heartbeat,omitempty"`
}

// Model returns the configured model name or the default
func (s *Settings) Model() ModelType {
	if s.LLMModel == "" {
		return ModelGPT4oMini
	}
	return ModelType(s.LLMModel)
}

// Period returns the configured auto-report period, YESTERDAY when unset
func (s *Settings) Period() ReportPeriod {
	if s.AutoReportPeriod == "" {
		return PeriodYesterday
	}
	return s.AutoReportPeriod
}

// DefaultAutoReportTime is used when settings do not name a time
const DefaultAutoReportTime = "08:00"

// ReportTime returns the configured auto-report time (HH:MM) or the default
func (s *Settings) ReportTime() string {
	if s.AutoReportTime == "" {
		return DefaultAutoReportTime
	}
	return s.AutoReportTime
}

// Broadcast records one manual message sent to several groups
type Broadcast struct {
	ID           string    `json:"id"`
	Message      string    `json:"message"`
	Recipients   string    `json:"recipients"`
	SuccessCount int       `json:"success_count"`
	FailCount    int       `json:"fail_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// GroupPatch carries a partial group update. Nil fields are left unchanged;
// an empty string clears the nullable fields.
type GroupPatch struct {
	Name                *string `json:"name,omitempty" validate:"omitempty,min=1"`
	JID                 *string `json:"jid,omitempty" validate:"omitempty,min=1"`
	IsActive            *bool   `json:"is_active,omitempty"`
	IncludeInAutoReport *bool   `json:"include_in_auto_report,omitempty"`
	SendToJID           *string `json:"send_to_jid,omitempty"`
	SendToName          *string `json:"send_to_name,omitempty"`
	PromptID            *string `json:"prompt_id,omitempty"`
}

// DashboardStats are the counters shown on the dashboard home
type DashboardStats struct {
	Groups struct {
		Total  int64 `json:"total"`
		Active int64 `json:"active"`
	} `json:"groups"`
	Reports struct {
		Total int64 `json:"total"`
		Sent  int64 `json:"sent"`
	} `json:"reports"`
	Prompts struct {
		Total int64 `json:"total"`
	} `json:"prompts"`
	Scheduler struct {
		Enabled       bool       `json:"enabled"`
		Time          string     `json:"time"`
		LastHeartbeat *time.Time `json:"last_heartbeat"`
	} `json:"scheduler"`
}
