package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/whatsapp-digest/internal/config"
	"github.com/whatsapp-digest/internal/gateway"
	"github.com/whatsapp-digest/internal/llm"
	"github.com/whatsapp-digest/internal/models"
	"github.com/whatsapp-digest/internal/report"
	"github.com/whatsapp-digest/internal/storage"
)

// Runs one report pass outside the HTTP server and prints the result as JSON.
//
//	go run ./scripts -groups id1,id2 -start 2024-05-01 -end 2024-05-03
func main() {
	groups := flag.String("groups", "", "Comma-separated group ids (empty = every auto-report group)")
	start := flag.String("start", "", "Start date YYYY-MM-DD (empty = configured period)")
	end := flag.String("end", "", "End date YYYY-MM-DD (defaults to start)")
	model := flag.String("model", "", "Model override")
	dedupe := flag.Bool("dedupe", false, "Skip groups that already have a report for the date")
	flag.Parse()

	// Setup logger with pretty console output
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Caller().Logger()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	location, err := time.LoadLocation(cfg.DisplayTimezone)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load display timezone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	storageClient, err := storage.NewClient(cfg.SupabaseURL, cfg.SupabaseKey, cfg.StorageTimeout(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create storage client")
	}

	processor := report.NewProcessor(
		storageClient,
		func(settings *models.Settings) (report.Gateway, error) {
			return gateway.NewClient(
				settings.EvolutionAPIURL,
				settings.EvolutionInstanceName,
				settings.EvolutionToken,
				cfg.GatewayRequestTimeout(),
				logger,
			)
		},
		func(ctx context.Context, settings *models.Settings, model string) (report.Generator, error) {
			return llm.New(settings, model, cfg.LLMRequestTimeout(), logger)
		},
		report.Config{
			MaxPages:     cfg.GatewayMaxPages,
			GroupTimeout: cfg.GroupBudget(),
			Location:     location,
		},
		logger,
	)

	opts := models.ProcessOptions{
		StartDate: *start,
		EndDate:   *end,
		Model:     *model,
		Dedupe:    *dedupe,
	}
	if *groups != "" {
		for _, id := range strings.Split(*groups, ",") {
			if id = strings.TrimSpace(id); id != "" {
				opts.GroupIDs = append(opts.GroupIDs, id)
			}
		}
	}

	logger.Info().
		Strs("group_ids", opts.GroupIDs).
		Str("start_date", opts.StartDate).
		Str("end_date", opts.EndDate).
		Msg("Running report")

	result, err := processor.Process(ctx, opts)
	if result != nil {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if encErr := encoder.Encode(result); encErr != nil {
			logger.Error().Err(encErr).Msg("Failed to print result")
		}
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("Report run failed")
	}
}
