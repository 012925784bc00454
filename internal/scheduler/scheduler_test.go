package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/whatsapp-digest/internal/models"
)

var brt = time.FixedZone("BRT", -3*60*60)

type fakeStore struct {
	mu         sync.Mutex
	settings   *models.Settings
	err        error
	heartbeats []time.Time
}

func (f *fakeStore) GetSettings(ctx context.Context) (*models.Settings, error) {
	return f.settings, f.err
}

func (f *fakeStore) UpdateHeartbeat(ctx context.Context, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeats = append(f.heartbeats, at)
	return nil
}

func (f *fakeStore) heartbeatCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.heartbeats)
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []models.ProcessOptions
	err   error

	// when set, Process signals started and waits for release
	started chan struct{}
	release chan struct{}
}

func (f *fakeRunner) Process(ctx context.Context, opts models.ProcessOptions) (*models.ProcessResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.ProcessResult{
		Status:  models.RunCompleted,
		Results: []models.GroupOutcome{{Group: "Obra", Result: models.GroupResult{Status: models.OutcomeSuccess}}},
	}, nil
}

func TestShouldRun(t *testing.T) {
	at := time.Date(2025, 1, 2, 8, 0, 30, 0, brt)

	tests := []struct {
		name     string
		settings *models.Settings
		now      time.Time
		want     bool
	}{
		{"no settings", nil, at, false},
		{"disabled", &models.Settings{AutoReportTime: "08:00"}, at, false},
		{"due", &models.Settings{IsAutoReportEnabled: true, AutoReportTime: "08:00"}, at, true},
		{"default time", &models.Settings{IsAutoReportEnabled: true}, at, true},
		{"other minute", &models.Settings{IsAutoReportEnabled: true, AutoReportTime: "08:01"}, at, false},
		{"compared in the given zone", &models.Settings{IsAutoReportEnabled: true, AutoReportTime: "08:00"}, at.UTC(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldRun(tt.settings, tt.now); got != tt.want {
				t.Errorf("ShouldRun() = %v, want %v", got, tt.want)
			}
		})
	}
}

func newTestScheduler(store *fakeStore, runner *fakeRunner, now time.Time) *Scheduler {
	s := NewScheduler(store, runner, brt, zerolog.Nop())
	s.now = func() time.Time { return now }
	return s
}

func TestTickRunsDueReport(t *testing.T) {
	store := &fakeStore{settings: &models.Settings{IsAutoReportEnabled: true, AutoReportTime: "07:30"}}
	runner := &fakeRunner{}

	// 10:30 UTC is 07:30 in the scheduler's zone
	s := newTestScheduler(store, runner, time.Date(2025, 1, 2, 10, 30, 5, 0, time.UTC))
	s.Tick(context.Background())

	if len(runner.calls) != 1 {
		t.Fatalf("runs = %d, want 1", len(runner.calls))
	}
	if opts := runner.calls[0]; !opts.Dedupe || len(opts.GroupIDs) != 0 || opts.StartDate != "" {
		t.Errorf("options = %+v, want auto mode with dedupe", opts)
	}
	if len(store.heartbeats) != 0 {
		t.Errorf("heartbeats = %d, the report check must not write them", len(store.heartbeats))
	}
}

func TestHeartbeat(t *testing.T) {
	store := &fakeStore{}
	now := time.Date(2025, 1, 2, 10, 30, 0, 0, time.UTC)

	s := newTestScheduler(store, &fakeRunner{}, now)
	s.Heartbeat(context.Background())

	if len(store.heartbeats) != 1 {
		t.Fatalf("heartbeats = %d, want 1", len(store.heartbeats))
	}
	if got := store.heartbeats[0]; !got.Equal(now) || got.Location() != brt {
		t.Errorf("heartbeat = %v, want %v in the scheduler's zone", got, now)
	}
}

func TestHeartbeatContinuesDuringLongRun(t *testing.T) {
	store := &fakeStore{settings: &models.Settings{IsAutoReportEnabled: true, AutoReportTime: "07:30"}}
	runner := &fakeRunner{started: make(chan struct{}), release: make(chan struct{})}

	s := newTestScheduler(store, runner, time.Date(2025, 1, 2, 10, 30, 0, 0, time.UTC))
	if err := s.register(context.Background()); err != nil {
		t.Fatalf("register() error = %v", err)
	}
	heartbeat := s.cron.Entry(s.heartbeatEntry).WrappedJob
	check := s.cron.Entry(s.reportEntry).WrappedJob

	done := make(chan struct{})
	go func() {
		defer close(done)
		check.Run()
	}()
	<-runner.started

	// the minute after: the report is still running
	check.Run()
	heartbeat.Run()

	if n := store.heartbeatCount(); n != 1 {
		t.Errorf("heartbeats during the run = %d, want 1", n)
	}

	close(runner.release)
	<-done

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.calls) != 1 {
		t.Errorf("runs = %d, want the overlapping check skipped", len(runner.calls))
	}
}

func TestTickWithoutRun(t *testing.T) {
	tests := []struct {
		name  string
		store *fakeStore
	}{
		{"disabled", &fakeStore{settings: &models.Settings{AutoReportTime: "07:30"}}},
		{"not yet", &fakeStore{settings: &models.Settings{IsAutoReportEnabled: true, AutoReportTime: "07:31"}}},
		{"settings error", &fakeStore{err: errors.New("db down")}},
		{"no settings", &fakeStore{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			s := newTestScheduler(tt.store, runner, time.Date(2025, 1, 2, 10, 30, 0, 0, time.UTC))
			s.Tick(context.Background())

			if len(runner.calls) != 0 {
				t.Errorf("runs = %d, want 0", len(runner.calls))
			}
		})
	}
}

func TestTickSurvivesRunnerError(t *testing.T) {
	store := &fakeStore{settings: &models.Settings{IsAutoReportEnabled: true}}
	runner := &fakeRunner{err: errors.New("settings not configured")}

	s := newTestScheduler(store, runner, time.Date(2025, 1, 2, 8, 0, 0, 0, brt))
	s.Tick(context.Background())

	if len(runner.calls) != 1 {
		t.Errorf("runs = %d", len(runner.calls))
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	store := &fakeStore{}
	s := NewScheduler(store, &fakeRunner{}, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestCronLoggerFields(t *testing.T) {
	got := fields([]interface{}{"now", 1, "entry", "x", "dangling"})
	if got["now"] != 1 || got["entry"] != "x" || got["extra"] != "dangling" {
		t.Errorf("fields = %v", got)
	}
}
