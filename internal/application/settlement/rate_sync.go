package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/logistics/settlement/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// SyncOutcome is the result of one synchronizer run
type SyncOutcome string

const (
	SyncOutcomeSkipped SyncOutcome = "SKIPPED" // the day was already synced
	SyncOutcomeSynced  SyncOutcome = "SYNCED"
	SyncOutcomeFailed  SyncOutcome = "FAILED"
	SyncOutcomeLocked  SyncOutcome = "LOCKED" // another instance holds the day
)

// SyncResult describes one synchronizer run
type SyncResult struct {
	Date         time.Time            `json:"-"`
	DateString   string               `json:"date"`
	StateBefore  settlement.SyncState `json:"state_before"`
	StateAfter   settlement.SyncState `json:"state_after"`
	Outcome      SyncOutcome          `json:"outcome"`
	RatesWritten int                  `json:"rates_written"`
	Provider     string               `json:"provider,omitempty"`
	JobID        *uuid.UUID           `json:"job_id,omitempty"`
	Error        string               `json:"error,omitempty"`
}

// SyncJobRecorder keeps an audit trail of synchronizer runs
type SyncJobRecorder interface {
	RecordStart(ctx context.Context, date time.Time, provider string) (uuid.UUID, error)
	RecordSuccess(ctx context.Context, id uuid.UUID, written int) error
	RecordFailure(ctx context.Context, id uuid.UUID, cause error) error
}

// DefaultSyncGuardTTL bounds how long one instance may hold a day
const DefaultSyncGuardTTL = 10 * time.Minute

// RateSynchronizer stores each day's rates exactly once.
//
// A day is Unsynced until at least one rate row exists for it, then Synced.
// Runs against a Synced day perform no writes at all.
type RateSynchronizer struct {
	scope    TransactionScope
	rates    settlement.ExchangeRateRepository
	provider settlement.RateProvider
	guard    shared.IdempotencyStore
	jobs     SyncJobRecorder
	guardTTL time.Duration
	cfg      serviceConfig
}

// NewRateSynchronizer creates a synchronizer. guard and jobs may be nil.
func NewRateSynchronizer(
	scope TransactionScope,
	rates settlement.ExchangeRateRepository,
	provider settlement.RateProvider,
	guard shared.IdempotencyStore,
	jobs SyncJobRecorder,
	guardTTL time.Duration,
	opts ...Option,
) *RateSynchronizer {
	if guardTTL <= 0 {
		guardTTL = DefaultSyncGuardTTL
	}
	return &RateSynchronizer{
		scope:    scope,
		rates:    rates,
		provider: provider,
		guard:    guard,
		jobs:     jobs,
		guardTTL: guardTTL,
		cfg:      newServiceConfig(opts),
	}
}

// State returns the synchronization state of date
func (s *RateSynchronizer) State(ctx context.Context, date time.Time) (settlement.SyncState, error) {
	exists, err := s.rates.ExistsForDate(ctx, s.cfg.dateOrToday(date))
	if err != nil {
		return "", fmt.Errorf("check rates for date: %w", err)
	}
	if exists {
		return settlement.SyncStateSynced, nil
	}
	return settlement.SyncStateUnsynced, nil
}

// RunOnce synchronizes date (today when zero). Provider failures are reported
// in the result with outcome FAILED; the returned error is reserved for storage
// failures and cancellation.
func (s *RateSynchronizer) RunOnce(ctx context.Context, date time.Time) (*SyncResult, error) {
	start := time.Now()
	day := s.cfg.dateOrToday(date)
	result := &SyncResult{
		Date:       day,
		DateString: valueobject.FormatBusinessDate(day),
		Provider:   s.provider.Name(),
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "rate_sync", "run_once")
	telemetry.SetAttributes(span, telemetry.SpanAttrRateDate, result.DateString, "provider", result.Provider)

	err := s.run(ctx, day, result)
	if err != nil && result.Outcome == "" {
		result.Outcome = SyncOutcomeFailed
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrSyncOutcome, string(result.Outcome))
	telemetry.EndSpan(span, err)
	s.cfg.metrics.RateSyncCompleted(ctx, string(result.Outcome), result.RatesWritten, time.Since(start))
	return result, err
}

func (s *RateSynchronizer) run(ctx context.Context, day time.Time, result *SyncResult) error {
	state, err := s.State(ctx, day)
	if err != nil {
		return err
	}
	result.StateBefore, result.StateAfter = state, state
	if state == settlement.SyncStateSynced {
		result.Outcome = SyncOutcomeSkipped
		s.cfg.logger.Debug("Exchange rates already synced", zap.String("date", result.DateString))
		return nil
	}

	key := "rate-sync:" + result.DateString
	if s.guard != nil {
		claimed, err := s.guard.MarkProcessed(ctx, key, s.guardTTL)
		switch {
		case err != nil:
			// The unique (currency, date) index still prevents duplicate rows.
			s.cfg.logger.Warn("Rate sync guard unavailable, proceeding", zap.String("key", key), zap.Error(err))
		case !claimed:
			result.Outcome = SyncOutcomeLocked
			s.cfg.logger.Info("Rate sync for date held by another run", zap.String("date", result.DateString))
			return nil
		default:
			defer s.release(key)
		}
	}

	jobID := s.recordStart(ctx, day)
	if jobID != uuid.Nil {
		result.JobID = &jobID
	}

	snapshot, err := s.provider.FetchRates(ctx, day)
	if err != nil {
		if ctx.Err() != nil {
			s.recordFailure(ctx, jobID, ctx.Err())
			return ctx.Err()
		}
		failure := settlement.NewProviderUnavailableError(s.provider.Name(), err)
		s.recordFailure(ctx, jobID, failure)
		result.Outcome = SyncOutcomeFailed
		result.Error = failure.Error()
		s.cfg.logger.Warn("Exchange rate provider unavailable",
			zap.String("date", result.DateString),
			zap.String("provider", s.provider.Name()),
			zap.Error(err),
		)
		return nil
	}

	rows := snapshot.ExchangeRates(day)
	written := 0
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		written = 0
		for _, rate := range rows {
			inserted, err := repos.Rates().InsertIfAbsent(ctx, rate)
			if err != nil {
				return fmt.Errorf("store %s rate: %w", rate.Currency, err)
			}
			if inserted {
				written++
			}
		}
		return nil
	})
	if err != nil {
		s.recordFailure(ctx, jobID, err)
		return err
	}

	result.RatesWritten = written
	if len(rows) == 0 {
		// An empty publication leaves the day Unsynced so the next trigger retries it.
		result.Outcome = SyncOutcomeFailed
		result.Error = "provider returned no rates"
		s.recordFailure(ctx, jobID, errors.New(result.Error))
		return nil
	}
	result.StateAfter = settlement.SyncStateSynced
	result.Outcome = SyncOutcomeSynced
	s.recordSuccess(ctx, jobID, written)

	s.cfg.logger.Info("Exchange rates synchronized",
		zap.String("date", result.DateString),
		zap.String("provider", s.provider.Name()),
		zap.Int("rates_written", written),
	)
	if written > 0 {
		s.cfg.publish(ctx, settlement.NewRatesSynchronizedEvent(jobID, day, snapshot.Source, written))
	}
	return nil
}

// release uses a fresh context so a cancelled run still frees the day
func (s *RateSynchronizer) release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.guard.Release(ctx, key); err != nil {
		s.cfg.logger.Warn("Failed to release rate sync guard", zap.String("key", key), zap.Error(err))
	}
}

func (s *RateSynchronizer) recordStart(ctx context.Context, day time.Time) uuid.UUID {
	if s.jobs == nil {
		return uuid.Nil
	}
	id, err := s.jobs.RecordStart(ctx, day, s.provider.Name())
	if err != nil {
		s.cfg.logger.Warn("Failed to record rate sync start", zap.Error(err))
		return uuid.Nil
	}
	return id
}

func (s *RateSynchronizer) recordSuccess(ctx context.Context, id uuid.UUID, written int) {
	if s.jobs == nil || id == uuid.Nil {
		return
	}
	if err := s.jobs.RecordSuccess(ctx, id, written); err != nil {
		s.cfg.logger.Warn("Failed to record rate sync success", zap.Error(err))
	}
}

func (s *RateSynchronizer) recordFailure(ctx context.Context, id uuid.UUID, cause error) {
	if s.jobs == nil || id == uuid.Nil {
		return
	}
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		ctx = context.WithoutCancel(ctx)
	}
	if err := s.jobs.RecordFailure(ctx, id, cause); err != nil {
		s.cfg.logger.Warn("Failed to record rate sync failure", zap.Error(err))
	}
}
