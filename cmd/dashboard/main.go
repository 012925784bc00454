package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/whatsapp-digest/internal/api"
	"github.com/whatsapp-digest/internal/config"
	"github.com/whatsapp-digest/internal/gateway"
	"github.com/whatsapp-digest/internal/llm"
	"github.com/whatsapp-digest/internal/models"
	"github.com/whatsapp-digest/internal/report"
	"github.com/whatsapp-digest/internal/scheduler"
	"github.com/whatsapp-digest/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.Environment)
	logger.Info().
		Str("environment", cfg.Environment).
		Str("timezone", cfg.DisplayTimezone).
		Str("http_addr", cfg.HTTPAddr).
		Bool("scheduler_enabled", cfg.SchedulerEnabled).
		Msg("Starting WhatsApp digest service")

	location, err := time.LoadLocation(cfg.DisplayTimezone)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load display timezone")
	}

	// Create context that listens for termination signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage client
	logger.Info().Msg("Initializing Supabase client...")
	storageClient, err := storage.NewClient(
		cfg.SupabaseURL,
		cfg.SupabaseKey,
		cfg.StorageTimeout(),
		logger,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create storage client")
	}

	// Ping Supabase to verify connection
	if err := storageClient.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Supabase")
	}
	logger.Info().Msg("Supabase connection successful")

	// Gateway and model clients are rebuilt per run from the settings row,
	// so credential changes apply without a restart
	newGateway := func(settings *models.Settings) (*gateway.Client, error) {
		return gateway.NewClient(
			settings.EvolutionAPIURL,
			settings.EvolutionInstanceName,
			settings.EvolutionToken,
			cfg.GatewayRequestTimeout(),
			logger,
		)
	}
	newModel := func(settings *models.Settings, model string) (llm.Client, error) {
		return llm.New(settings, model, cfg.LLMRequestTimeout(), logger)
	}

	processor := report.NewProcessor(
		storageClient,
		func(settings *models.Settings) (report.Gateway, error) { return newGateway(settings) },
		func(ctx context.Context, settings *models.Settings, model string) (report.Generator, error) {
			return newModel(settings, model)
		},
		report.Config{
			MaxPages:     cfg.GatewayMaxPages,
			GroupTimeout: cfg.GroupBudget(),
			Location:     location,
		},
		logger,
	)

	// Start the minute scheduler
	schedDone := make(chan struct{})
	if cfg.SchedulerEnabled {
		sched := scheduler.NewScheduler(storageClient, processor, location, logger)
		go func() {
			defer close(schedDone)
			if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("Scheduler stopped with error")
			}
		}()
		logger.Info().Msg("Report scheduler started")
	} else {
		close(schedDone)
	}

	// Initialize HTTP API
	server := api.NewServer(
		storageClient,
		processor,
		func(settings *models.Settings) (api.Gateway, error) { return newGateway(settings) },
		func(settings *models.Settings) (api.Rewriter, error) { return newModel(settings, "") },
		api.Config{
			Password:     cfg.AppPassword,
			SecureCookie: cfg.SecureCookie,
		},
		logger,
	)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	httpErrChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErrChan <- err
		}
	}()

	logger.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server is running. Press Ctrl+C to stop.")

	// Wait for termination signal or server error
	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Received termination signal")
	case err := <-httpErrChan:
		logger.Error().Err(err).Msg("HTTP server stopped with error")
	}

	// Graceful shutdown
	logger.Info().Msg("Initiating graceful shutdown...")
	cancel()

	// Running reports see the cancelled context; give them time to finish their bookkeeping
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP shutdown did not complete cleanly")
	}

	select {
	case <-shutdownCtx.Done():
		logger.Warn().Msg("Shutdown timeout exceeded, some reports may be incomplete")
	case <-schedDone:
		logger.Info().Msg("Graceful shutdown completed")
	}

	logger.Info().Msg("Service stopped")
}

// setupLogger configures and returns a zerolog logger
func setupLogger(level, environment string) zerolog.Logger {
	// Parse log level
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	// Configure output format
	var logger zerolog.Logger
	if environment == "development" {
		// Pretty console output for development
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Caller().Logger()
	} else {
		// JSON output for production
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	return logger
}
