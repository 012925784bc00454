package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/whatsapp-digest/internal/models"
)

// everyMinute is the check interval; the configured time has minute precision
const everyMinute = "* * * * *"

// SettingsStore reads the auto-report settings and records the heartbeat
type SettingsStore interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
	UpdateHeartbeat(ctx context.Context, at time.Time) error
}

// ReportRunner runs the report pipeline
type ReportRunner interface {
	Process(ctx context.Context, opts models.ProcessOptions) (*models.ProcessResult, error)
}

// Scheduler triggers the automatic report at the configured time of day
type Scheduler struct {
	store    SettingsStore
	runner   ReportRunner
	location *time.Location
	cron     *cron.Cron
	cronLog  cron.Logger
	logger   zerolog.Logger
	now      func() time.Time

	heartbeatEntry cron.EntryID
	reportEntry    cron.EntryID
}

// NewScheduler creates a new scheduler. Times are compared in location.
func NewScheduler(store SettingsStore, runner ReportRunner, location *time.Location, logger zerolog.Logger) *Scheduler {
	if location == nil {
		location = time.UTC
	}

	s := &Scheduler{
		store:    store,
		runner:   runner,
		location: location,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		now:      time.Now,
	}

	s.cronLog = newCronLogger(s.logger)
	s.cron = cron.New(
		cron.WithLocation(location),
		cron.WithLogger(s.cronLog),
		cron.WithChain(cron.Recover(s.cronLog)),
	)

	return s
}

// register adds the heartbeat and the report check as separate entries.
// Only the report check skips while a previous run is still going, so the
// heartbeat keeps ticking through long runs.
func (s *Scheduler) register(ctx context.Context) error {
	var err error

	s.heartbeatEntry, err = s.cron.AddFunc(everyMinute, func() { s.Heartbeat(ctx) })
	if err != nil {
		return fmt.Errorf("failed to schedule heartbeat: %w", err)
	}

	check := cron.NewChain(cron.SkipIfStillRunning(s.cronLog)).Then(cron.FuncJob(func() { s.Tick(ctx) }))
	s.reportEntry, err = s.cron.AddJob(everyMinute, check)
	if err != nil {
		return fmt.Errorf("failed to schedule auto report check: %w", err)
	}

	return nil
}

// Start runs the scheduler until ctx is cancelled, then waits for a running check to finish
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info().
		Str("timezone", s.location.String()).
		Msg("Starting scheduler...")

	if err := s.register(ctx); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().Msg("Scheduler started and running")

	<-ctx.Done()

	stopped := s.cron.Stop()
	<-stopped.Done()

	s.logger.Info().Msg("Scheduler stopped")
	return ctx.Err()
}

// Heartbeat records that the scheduler is alive
func (s *Scheduler) Heartbeat(ctx context.Context) {
	if err := s.store.UpdateHeartbeat(ctx, s.now().In(s.location)); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to update scheduler heartbeat")
	}
}

// Tick runs the automatic report when its time has come
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now().In(s.location)

	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load settings")
		return
	}

	if !ShouldRun(settings, now) {
		return
	}

	s.logger.Info().
		Str("time", now.Format("15:04")).
		Str("period", string(settings.Period())).
		Msg("Scheduled time reached, starting automatic report")

	startTime := time.Now()
	result, err := s.runner.Process(ctx, models.ProcessOptions{Dedupe: true})
	if err != nil {
		s.logger.Error().
			Err(err).
			Dur("duration", time.Since(startTime)).
			Msg("Automatic report failed")
		return
	}

	counts := map[models.OutcomeStatus]int{}
	for _, outcome := range result.Results {
		counts[outcome.Result.Status]++
	}

	s.logger.Info().
		Str("status", string(result.Status)).
		Str("reason", result.Reason).
		Int("success", counts[models.OutcomeSuccess]).
		Int("empty", counts[models.OutcomeEmpty]).
		Int("skipped", counts[models.OutcomeSkipped]).
		Int("error", counts[models.OutcomeError]).
		Dur("duration", time.Since(startTime)).
		Msg("Automatic report completed")
}

// ShouldRun reports whether the automatic report is enabled and due at now (HH:MM)
func ShouldRun(settings *models.Settings, now time.Time) bool {
	if settings == nil || !settings.IsAutoReportEnabled {
		return false
	}
	return settings.ReportTime() == now.Format("15:04")
}
