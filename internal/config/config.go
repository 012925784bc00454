package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/whatsapp-digest/internal/models"
)

// Load loads configuration from environment variables
// It first attempts to load from .env file, then reads environment variables
func Load() (*models.AppConfig, error) {
	// Try to load .env file (optional, ignore error if not found)
	_ = godotenv.Load()

	config := &models.AppConfig{
		// Supabase settings
		SupabaseURL:     getEnv("SUPABASE_URL", ""),
		SupabaseKey:     getEnv("SUPABASE_KEY", ""),
		SupabaseTimeout: getEnvInt("SUPABASE_TIMEOUT", 10),

		// HTTP settings
		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		AppPassword:  getEnv("APP_PASSWORD", "admin"),
		SecureCookie: getEnvBool("COOKIE_SECURE", false),

		// Gateway settings
		GatewayTimeout:  getEnvInt("GATEWAY_TIMEOUT", 10),
		GatewayMaxPages: getEnvInt("GATEWAY_MAX_PAGES", 100),

		// Generative model settings
		LLMTimeout: getEnvInt("LLM_TIMEOUT", 180),

		// Processing settings
		GroupTimeout:     getEnvInt("GROUP_TIMEOUT", 300),
		SchedulerEnabled: getEnvBool("SCHEDULER_ENABLED", true),

		// App settings
		DisplayTimezone: getEnv("DISPLAY_TIMEZONE", "America/Sao_Paulo"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Environment:     getEnv("ENVIRONMENT", "production"),
	}

	// Validate configuration
	if err := validate(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validate checks if all required configuration values are set
func validate(cfg *models.AppConfig) error {
	if cfg.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if cfg.SupabaseKey == "" {
		return fmt.Errorf("SUPABASE_KEY is required")
	}
	if cfg.AppPassword == "" {
		return fmt.Errorf("APP_PASSWORD must not be empty")
	}

	// Validate positive values
	positive := []struct {
		name  string
		value int
	}{
		{"SUPABASE_TIMEOUT", cfg.SupabaseTimeout},
		{"GATEWAY_TIMEOUT", cfg.GatewayTimeout},
		{"GATEWAY_MAX_PAGES", cfg.GatewayMaxPages},
		{"LLM_TIMEOUT", cfg.LLMTimeout},
		{"GROUP_TIMEOUT", cfg.GroupTimeout},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", p.name, p.value)
		}
	}

	if _, err := time.LoadLocation(cfg.DisplayTimezone); err != nil {
		return fmt.Errorf("DISPLAY_TIMEZONE %q is not a valid timezone: %w", cfg.DisplayTimezone, err)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error; got %s", cfg.LogLevel)
	}

	return nil
}

// getEnv retrieves environment variable or returns default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves environment variable as integer or returns default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvBool retrieves environment variable as bool or returns default value
func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
