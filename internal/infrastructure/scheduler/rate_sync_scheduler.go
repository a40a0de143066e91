package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	appsettlement "github.com/logistics/settlement/internal/application/settlement"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Trigger names used in logs
const (
	TriggerCron   = "cron"
	TriggerManual = "manual"
)

// RateSyncRunner performs one synchronizer run for a business date
type RateSyncRunner interface {
	RunOnce(ctx context.Context, date time.Time) (*appsettlement.SyncResult, error)
}

// RateSyncConfig holds configuration for the exchange rate scheduler
type RateSyncConfig struct {
	Enabled bool
	// Schedule is a standard five-field cron expression
	Schedule string
	// Timeout bounds a single run, provider fetch included
	Timeout time.Duration
	// Ticks outside [WindowStartHour, WindowEndHour) do nothing
	WindowStartHour int
	WindowEndHour   int
	// Location decides both the window hours and the business date
	Location *time.Location
}

// DefaultRateSyncConfig returns an hourly schedule over the whole day, Moscow time
func DefaultRateSyncConfig() RateSyncConfig {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		loc = time.UTC
	}
	return RateSyncConfig{
		Enabled:         true,
		Schedule:        "0 * * * *",
		Timeout:         60 * time.Second,
		WindowStartHour: 0,
		WindowEndHour:   24,
		Location:        loc,
	}
}

// Validate checks the configuration
func (c RateSyncConfig) Validate() error {
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("%w: schedule %q: %v", ErrInvalidConfig, c.Schedule, err)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.WindowStartHour < 0 || c.WindowStartHour > 23 {
		return fmt.Errorf("%w: window start hour must be 0-23, got %d", ErrInvalidConfig, c.WindowStartHour)
	}
	if c.WindowEndHour <= c.WindowStartHour || c.WindowEndHour > 24 {
		return fmt.Errorf("%w: window end hour must be in (%d, 24], got %d", ErrInvalidConfig, c.WindowStartHour, c.WindowEndHour)
	}
	return nil
}

func (c RateSyncConfig) inWindow(t time.Time) bool {
	h := t.Hour()
	return h >= c.WindowStartHour && h < c.WindowEndHour
}

// RateSyncStatus reports what the scheduler is doing
type RateSyncStatus struct {
	Enabled     bool                      `json:"enabled"`
	Started     bool                      `json:"started"`
	Running     bool                      `json:"running"`
	Schedule    string                    `json:"schedule"`
	Window      string                    `json:"window"`
	Location    string                    `json:"location"`
	LastTrigger string                    `json:"last_trigger,omitempty"`
	LastRunAt   *time.Time                `json:"last_run_at,omitempty"`
	LastResult  *appsettlement.SyncResult `json:"last_result,omitempty"`
	LastError   string                    `json:"last_error,omitempty"`
	NextRunAt   *time.Time                `json:"next_run_at,omitempty"`
}

// RateSyncScheduler fires the rate synchronizer on a cron schedule.
// A failed run is logged and recorded; it never stops the schedule.
type RateSyncScheduler struct {
	config RateSyncConfig
	runner RateSyncRunner
	logger *zap.Logger
	now    func() time.Time

	cron    *cron.Cron
	entryID cron.EntryID
	cancel  context.CancelFunc

	// runMu serializes runs; manual triggers do not queue behind it
	runMu sync.Mutex

	mu          sync.Mutex
	isStarted   bool
	running     bool
	lastTrigger string
	lastRunAt   *time.Time
	lastResult  *appsettlement.SyncResult
	lastErr     error
}

// NewRateSyncScheduler creates a scheduler. A nil Location means UTC.
func NewRateSyncScheduler(config RateSyncConfig, runner RateSyncRunner, logger *zap.Logger) (*RateSyncScheduler, error) {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateSyncScheduler{
		config: config,
		runner: runner,
		logger: logger.Named("rate_sync_scheduler"),
		now:    time.Now,
	}, nil
}

// Start registers the cron entry and starts firing. Disabled schedulers
// only serve manual triggers.
func (s *RateSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isStarted {
		return nil
	}
	if !s.config.Enabled {
		s.logger.Info("Rate sync scheduler disabled")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	c := cron.New(
		cron.WithLocation(s.config.Location),
		cron.WithLogger(cronLogger{s.logger.Sugar()}),
		cron.WithChain(cron.Recover(cronLogger{s.logger.Sugar()})),
	)
	id, err := c.AddFunc(s.config.Schedule, func() { s.tick(ctx) })
	if err != nil {
		cancel()
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	c.Start()

	s.cron = c
	s.entryID = id
	s.cancel = cancel
	s.isStarted = true

	s.logger.Info("Rate sync scheduler started",
		zap.String("schedule", s.config.Schedule),
		zap.String("window", s.windowString()),
		zap.String("location", s.config.Location.String()),
		zap.Duration("timeout", s.config.Timeout),
	)
	return nil
}

// Stop stops firing and waits for an in-flight run, bounded by ctx
func (s *RateSyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isStarted {
		s.mu.Unlock()
		return nil
	}
	s.isStarted = false
	c, cancel := s.cron, s.cancel
	s.mu.Unlock()

	done := c.Stop()
	cancel()

	select {
	case <-done.Done():
		s.logger.Info("Rate sync scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TriggerNow runs a sync for date (today in the scheduler location when
// zero) regardless of the window. It fails fast if a run is in progress.
func (s *RateSyncScheduler) TriggerNow(ctx context.Context, date time.Time) (*appsettlement.SyncResult, error) {
	if !s.runMu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.runMu.Unlock()
	return s.run(ctx, TriggerManual, date)
}

// Status returns the current scheduler state
func (s *RateSyncScheduler) Status() RateSyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := RateSyncStatus{
		Enabled:     s.config.Enabled,
		Started:     s.isStarted,
		Running:     s.running,
		Schedule:    s.config.Schedule,
		Window:      s.windowString(),
		Location:    s.config.Location.String(),
		LastTrigger: s.lastTrigger,
		LastRunAt:   s.lastRunAt,
		LastResult:  s.lastResult,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if s.isStarted {
		if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
			st.NextRunAt = &next
		}
	}
	return st
}

// tick is the cron callback. Overlapping ticks are dropped.
func (s *RateSyncScheduler) tick(ctx context.Context) {
	now := s.now().In(s.config.Location)
	if !s.config.inWindow(now) {
		s.logger.Debug("Rate sync tick outside window",
			zap.Int("hour", now.Hour()),
			zap.String("window", s.windowString()),
		)
		return
	}
	if !s.runMu.TryLock() {
		s.logger.Info("Rate sync tick skipped, previous run still in progress")
		return
	}
	defer s.runMu.Unlock()

	// Errors are recorded in Status and logged by run.
	_, _ = s.run(ctx, TriggerCron, time.Time{})
}

func (s *RateSyncScheduler) run(ctx context.Context, trigger string, date time.Time) (*appsettlement.SyncResult, error) {
	if date.IsZero() {
		date = valueobject.BusinessDate(s.now().In(s.config.Location))
	}
	runCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	startedAt := s.now()
	s.mu.Lock()
	s.running = true
	s.lastTrigger = trigger
	s.mu.Unlock()

	result, err := s.runner.RunOnce(runCtx, date)

	s.mu.Lock()
	s.running = false
	s.lastRunAt = &startedAt
	s.lastResult = result
	s.lastErr = err
	s.mu.Unlock()

	fields := []zap.Field{
		zap.String("trigger", trigger),
		zap.String("date", valueobject.FormatBusinessDate(date)),
		zap.Duration("duration", s.now().Sub(startedAt)),
	}
	if result != nil {
		fields = append(fields,
			zap.String("outcome", string(result.Outcome)),
			zap.Int("rates_written", result.RatesWritten),
		)
		if result.Error != "" {
			fields = append(fields, zap.String("failure", result.Error))
		}
	}
	switch {
	case err != nil:
		s.logger.Error("Rate sync run failed", append(fields, zap.Error(err))...)
	case result != nil && result.Outcome == appsettlement.SyncOutcomeFailed:
		s.logger.Warn("Rate sync run failed", fields...)
	default:
		s.logger.Info("Rate sync run finished", fields...)
	}
	return result, err
}

func (s *RateSyncScheduler) windowString() string {
	return fmt.Sprintf("%02d:00-%02d:00", s.config.WindowStartHour, s.config.WindowEndHour)
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
