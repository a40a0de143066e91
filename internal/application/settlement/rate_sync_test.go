package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func snapshotFor(rates map[valueobject.Currency]string) *settlement.RateSnapshot {
	snap := settlement.NewRateSnapshot(testDate, "mock")
	for c, r := range rates {
		snap.Rates[c] = dec(r)
	}
	return snap
}

func TestRateSynchronizer_RunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("stores rates once and skips the second run", func(t *testing.T) {
		store := newMemStore()
		provider := new(MockRateProvider)
		provider.On("FetchRates", mock.Anything, testDate).
			Return(snapshotFor(map[valueobject.Currency]string{valueobject.USD: "92.5", valueobject.EUR: "100.1"}), nil).Once()
		pub := &recordingPublisher{}
		sync := NewRateSynchronizer(store, store.Rates(), provider, nil, nil, 0,
			WithClock(func() time.Time { return testDate }), WithEventPublisher(pub))

		first, err := sync.RunOnce(ctx, testDate)
		require.NoError(t, err)
		assert.Equal(t, SyncOutcomeSynced, first.Outcome)
		assert.Equal(t, settlement.SyncStateUnsynced, first.StateBefore)
		assert.Equal(t, settlement.SyncStateSynced, first.StateAfter)
		assert.Equal(t, 2, first.RatesWritten)
		assert.Equal(t, []string{settlement.EventTypeRatesSynchronized}, pub.types())

		writes := store.writeCount()
		second, err := sync.RunOnce(ctx, testDate)
		require.NoError(t, err)
		assert.Equal(t, SyncOutcomeSkipped, second.Outcome)
		assert.Equal(t, settlement.SyncStateSynced, second.StateBefore)
		assert.Equal(t, 0, second.RatesWritten)
		assert.Equal(t, writes, store.writeCount())
		provider.AssertNumberOfCalls(t, "FetchRates", 1)
	})

	t.Run("provider failure leaves the day unsynced and releases the guard", func(t *testing.T) {
		store := newMemStore()
		provider := new(MockRateProvider)
		provider.On("FetchRates", mock.Anything, testDate).Return(nil, errors.New("connection refused"))
		guard := new(MockIdempotencyStore)
		guard.On("MarkProcessed", mock.Anything, "rate-sync:2024-03-15", DefaultSyncGuardTTL).Return(true, nil)
		guard.On("Release", mock.Anything, "rate-sync:2024-03-15").Return(nil)
		jobID := uuid.New()
		jobs := new(MockSyncJobRecorder)
		jobs.On("RecordStart", mock.Anything, testDate, "mock").Return(jobID, nil)
		jobs.On("RecordFailure", mock.Anything, jobID, mock.MatchedBy(func(err error) bool {
			return errors.Is(err, settlement.ErrProviderUnavailable)
		})).Return(nil)

		sync := NewRateSynchronizer(store, store.Rates(), provider, guard, jobs, 0)
		res, err := sync.RunOnce(ctx, testDate)
		require.NoError(t, err)
		assert.Equal(t, SyncOutcomeFailed, res.Outcome)
		assert.Equal(t, settlement.SyncStateUnsynced, res.StateAfter)
		assert.Contains(t, res.Error, "connection refused")
		require.NotNil(t, res.JobID)
		assert.Equal(t, jobID, *res.JobID)
		assert.Equal(t, 0, store.writeCount())

		state, err := sync.State(ctx, testDate)
		require.NoError(t, err)
		assert.Equal(t, settlement.SyncStateUnsynced, state)

		guard.AssertExpectations(t)
		jobs.AssertExpectations(t)
	})

	t.Run("held guard reports locked without fetching", func(t *testing.T) {
		store := newMemStore()
		provider := new(MockRateProvider)
		guard := new(MockIdempotencyStore)
		guard.On("MarkProcessed", mock.Anything, "rate-sync:2024-03-15", mock.Anything).Return(false, nil)

		sync := NewRateSynchronizer(store, store.Rates(), provider, guard, nil, 0)
		res, err := sync.RunOnce(ctx, testDate)
		require.NoError(t, err)
		assert.Equal(t, SyncOutcomeLocked, res.Outcome)
		provider.AssertNotCalled(t, "FetchRates", mock.Anything, mock.Anything)
		guard.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	})

	t.Run("guard errors do not block the run", func(t *testing.T) {
		store := newMemStore()
		provider := new(MockRateProvider)
		provider.On("FetchRates", mock.Anything, testDate).
			Return(snapshotFor(map[valueobject.Currency]string{valueobject.CNY: "12.75"}), nil)
		guard := new(MockIdempotencyStore)
		guard.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))

		sync := NewRateSynchronizer(store, store.Rates(), provider, guard, nil, 0)
		res, err := sync.RunOnce(ctx, testDate)
		require.NoError(t, err)
		assert.Equal(t, SyncOutcomeSynced, res.Outcome)
		assert.Equal(t, 1, res.RatesWritten)
	})

	t.Run("records success with the number of rows written", func(t *testing.T) {
		store := newMemStore()
		provider := new(MockRateProvider)
		provider.On("FetchRates", mock.Anything, testDate).
			Return(snapshotFor(map[valueobject.Currency]string{valueobject.KZT: "0.2031", valueobject.RUB: "1"}), nil)
		jobID := uuid.New()
		jobs := new(MockSyncJobRecorder)
		jobs.On("RecordStart", mock.Anything, testDate, "mock").Return(jobID, nil)
		jobs.On("RecordSuccess", mock.Anything, jobID, 1).Return(nil)

		sync := NewRateSynchronizer(store, store.Rates(), provider, nil, jobs, 0)
		res, err := sync.RunOnce(ctx, testDate)
		require.NoError(t, err)
		assert.Equal(t, 1, res.RatesWritten)
		jobs.AssertExpectations(t)

		rate, err := store.Rates().FindExact(ctx, valueobject.KZT, testDate)
		require.NoError(t, err)
		require.NotNil(t, rate)
		assert.True(t, rate.Rate.Equal(dec("0.2031")))
	})

	t.Run("empty publication stays unsynced", func(t *testing.T) {
		store := newMemStore()
		provider := new(MockRateProvider)
		provider.On("FetchRates", mock.Anything, testDate).Return(snapshotFor(nil), nil)

		sync := NewRateSynchronizer(store, store.Rates(), provider, nil, nil, 0)
		res, err := sync.RunOnce(ctx, testDate)
		require.NoError(t, err)
		assert.Equal(t, SyncOutcomeFailed, res.Outcome)
		assert.Equal(t, settlement.SyncStateUnsynced, res.StateAfter)
	})

	t.Run("cancelled context is returned", func(t *testing.T) {
		store := newMemStore()
		cctx, cancel := context.WithCancel(ctx)
		provider := new(MockRateProvider)
		provider.On("FetchRates", mock.Anything, testDate).Run(func(mock.Arguments) { cancel() }).
			Return(nil, context.Canceled)

		sync := NewRateSynchronizer(store, store.Rates(), provider, nil, nil, 0)
		res, err := sync.RunOnce(cctx, testDate)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, SyncOutcomeFailed, res.Outcome)
	})
}
