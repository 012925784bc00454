package models

import "time"

// ModelType represents a generative model name
type ModelType string

const (
	// ModelGPT4oMini is the default model when settings do not name one
	ModelGPT4oMini ModelType = "gpt-4o-mini"

	// ModelFlash represents Gemini 2.0 Flash model
	// See current rate limits: https://ai.google.dev/pricing
	ModelFlash ModelType = "gemini-2.0-flash"

	// ModelPro represents Gemini 2.5 Pro model
	ModelPro ModelType = "gemini-2.5-pro"
)

// String returns string representation of ModelType
func (m ModelType) String() string {
	return string(m)
}

// AppConfig represents process-level configuration loaded from the environment.
// Business settings (gateway credentials, model, prompts) live in the settings row.
type AppConfig struct {
	// Supabase settings
	SupabaseURL     string
	SupabaseKey     string
	SupabaseTimeout int

	// HTTP settings
	HTTPAddr     string
	AppPassword  string
	SecureCookie bool

	// Gateway settings
	GatewayTimeout  int
	GatewayMaxPages int

	// Generative model settings
	LLMTimeout int

	// Processing settings
	GroupTimeout     int
	SchedulerEnabled bool

	// App settings
	DisplayTimezone string
	LogLevel        string
	Environment     string
}

// Durations derived from the integer second settings.

func (c *AppConfig) StorageTimeout() time.Duration {
	return time.Duration(c.SupabaseTimeout) * time.Second
}

func (c *AppConfig) GatewayRequestTimeout() time.Duration {
	return time.Duration(c.GatewayTimeout) * time.Second
}

func (c *AppConfig) LLMRequestTimeout() time.Duration {
	return time.Duration(c.LLMTimeout) * time.Second
}

func (c *AppConfig) GroupBudget() time.Duration {
	return time.Duration(c.GroupTimeout) * time.Second
}
