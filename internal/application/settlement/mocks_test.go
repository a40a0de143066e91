package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockPartnerDirectory is a mock implementation of settlement.PartnerDirectory
type MockPartnerDirectory struct {
	mock.Mock
}

func (m *MockPartnerDirectory) Get(ctx context.Context, id uuid.UUID) (*settlement.Partner, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Partner), args.Error(1)
}

// MockRateProvider is a mock implementation of settlement.RateProvider
type MockRateProvider struct {
	mock.Mock
}

func (m *MockRateProvider) Name() string {
	return "mock"
}

func (m *MockRateProvider) FetchRates(ctx context.Context, date time.Time) (*settlement.RateSnapshot, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.RateSnapshot), args.Error(1)
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
	return nil
}

// MockSyncJobRecorder is a mock implementation of SyncJobRecorder
type MockSyncJobRecorder struct {
	mock.Mock
}

func (m *MockSyncJobRecorder) RecordStart(ctx context.Context, date time.Time, provider string) (uuid.UUID, error) {
	args := m.Called(ctx, date, provider)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockSyncJobRecorder) RecordSuccess(ctx context.Context, id uuid.UUID, written int) error {
	args := m.Called(ctx, id, written)
	return args.Error(0)
}

func (m *MockSyncJobRecorder) RecordFailure(ctx context.Context, id uuid.UUID, cause error) error {
	args := m.Called(ctx, id, cause)
	return args.Error(0)
}

// recordingPublisher collects published events
type recordingPublisher struct {
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}
