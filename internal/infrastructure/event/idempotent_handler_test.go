package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockEventHandler is a mock implementation of shared.EventHandler
type MockEventHandler struct {
	mock.Mock
}

func (m *MockEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventHandler) EventTypes() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestIdempotentHandler_HandlesOnce(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	inner := newRecorder("AllocationPosted")
	h := NewIdempotentHandler("audit", inner, store, time.Hour, zap.NewNop())

	event := newEvent("AllocationPosted")
	ctx := context.Background()
	require.NoError(t, h.Handle(ctx, event))
	require.NoError(t, h.Handle(ctx, event))

	assert.Len(t, inner.eventTypes(), 1)
	assert.Equal(t, IdempotencyStats{EventsProcessed: 1, EventsDuplicate: 1}, h.Stats())
	assert.Equal(t, []string{"AllocationPosted"}, h.EventTypes())
}

func TestIdempotentHandler_SeparateNamesDoNotCollide(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	first, second := newRecorder(), newRecorder()
	h1 := NewIdempotentHandler("audit", first, store, 0, nil)
	h2 := NewIdempotentHandler("metrics", second, store, 0, nil)

	event := newEvent("InvoiceIssued")
	require.NoError(t, h1.Handle(context.Background(), event))
	require.NoError(t, h2.Handle(context.Background(), event))

	assert.Len(t, first.eventTypes(), 1)
	assert.Len(t, second.eventTypes(), 1)
}

func TestIdempotentHandler_FailureReleasesClaim(t *testing.T) {
	store := new(MockIdempotencyStore)
	inner := new(MockEventHandler)
	event := newEvent("AllocationPosted")
	key := "event:audit:" + event.EventID().String()
	handlerErr := errors.New("sink unavailable")

	store.On("MarkProcessed", mock.Anything, key, time.Hour).Return(true, nil)
	store.On("Release", mock.Anything, key).Return(nil)
	inner.On("Handle", mock.Anything, event).Return(handlerErr)

	h := NewIdempotentHandler("audit", inner, store, time.Hour, zap.NewNop())
	err := h.Handle(context.Background(), event)

	assert.ErrorIs(t, err, handlerErr)
	assert.Equal(t, int64(1), h.Stats().EventsFailed)
	store.AssertExpectations(t)
	inner.AssertExpectations(t)
}

func TestIdempotentHandler_StoreErrorStillHandles(t *testing.T) {
	store := new(MockIdempotencyStore)
	inner := new(MockEventHandler)
	event := newEvent("InvoiceIssued")

	store.On("MarkProcessed", mock.Anything, mock.Anything, DefaultDeliveryTTL).Return(false, errors.New("redis down"))
	inner.On("Handle", mock.Anything, event).Return(nil)

	h := NewIdempotentHandler("audit", inner, store, 0, zap.NewNop())
	require.NoError(t, h.Handle(context.Background(), event))

	inner.AssertNumberOfCalls(t, "Handle", 1)
	store.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
}

func TestIdempotentHandler_OnBus(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	bus := NewInMemoryEventBus(zap.NewNop())
	inner := newRecorder()
	bus.Subscribe(NewIdempotentHandler("audit", inner, store, time.Hour, nil))

	event := newEvent("PaymentRecorded")
	require.NoError(t, bus.Publish(context.Background(), event, event))

	assert.Len(t, inner.eventTypes(), 1)
}
