package config

import (
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_KEY", "service-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.GatewayTimeout != 10 {
		t.Errorf("GatewayTimeout = %d, want 10", cfg.GatewayTimeout)
	}
	if cfg.GatewayMaxPages != 100 {
		t.Errorf("GatewayMaxPages = %d, want 100", cfg.GatewayMaxPages)
	}
	if cfg.DisplayTimezone != "America/Sao_Paulo" {
		t.Errorf("DisplayTimezone = %q", cfg.DisplayTimezone)
	}
	if !cfg.SchedulerEnabled {
		t.Error("SchedulerEnabled should default to true")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("GATEWAY_MAX_PAGES", "5")
	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GROUP_TIMEOUT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.GatewayMaxPages != 5 {
		t.Errorf("GatewayMaxPages = %d, want 5", cfg.GatewayMaxPages)
	}
	if cfg.SchedulerEnabled {
		t.Error("SchedulerEnabled should be false")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.GroupTimeout != 300 {
		t.Errorf("GroupTimeout = %d, want fallback 300", cfg.GroupTimeout)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing supabase url", map[string]string{"SUPABASE_URL": ""}},
		{"negative gateway timeout", map[string]string{"GATEWAY_TIMEOUT": "-1"}},
		{"zero page bound", map[string]string{"GATEWAY_MAX_PAGES": "0"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}},
		{"bad timezone", map[string]string{"DISPLAY_TIMEZONE": "Mars/Olympus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("Load() expected error, got nil")
			}
		})
	}
}
