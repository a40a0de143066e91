package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// Metrics receives operation outcomes from the settlement services
type Metrics interface {
	AllocationCompleted(ctx context.Context, operation, result string, attempts int, duration time.Duration)
	RateSyncCompleted(ctx context.Context, outcome string, written int, duration time.Duration)
	ReportBuilt(ctx context.Context, format, result string, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) AllocationCompleted(context.Context, string, string, int, time.Duration) {}
func (noopMetrics) RateSyncCompleted(context.Context, string, int, time.Duration)          {}
func (noopMetrics) ReportBuilt(context.Context, string, string, time.Duration)             {}

// Result labels passed to Metrics
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Defaults for the settlement services
const (
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 25 * time.Millisecond
)

type serviceConfig struct {
	logger           *zap.Logger
	publisher        shared.EventPublisher
	metrics          Metrics
	rateFallback     settlement.RateFallbackPolicy
	feePolicy        settlement.FeePolicy
	allocationPolicy settlement.AllocationPolicy
	maxRetries       int
	retryBackoff     time.Duration
	today            func() time.Time
}

func defaultServiceConfig() serviceConfig {
	return serviceConfig{
		logger:           zap.NewNop(),
		metrics:          noopMetrics{},
		rateFallback:     settlement.DefaultRateFallbackPolicy,
		feePolicy:        settlement.DefaultFeePolicy,
		allocationPolicy: settlement.DefaultAllocationPolicy(),
		maxRetries:       DefaultMaxRetries,
		retryBackoff:     DefaultRetryBackoff,
		today:            valueobject.Today,
	}
}

func newServiceConfig(opts []Option) serviceConfig {
	cfg := defaultServiceConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Option configures a settlement service
type Option func(*serviceConfig)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *serviceConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEventPublisher publishes domain events after each commit
func WithEventPublisher(p shared.EventPublisher) Option {
	return func(c *serviceConfig) {
		c.publisher = p
	}
}

// WithMetrics records operation metrics
func WithMetrics(m Metrics) Option {
	return func(c *serviceConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithRateFallback sets the exchange rate fallback policy
func WithRateFallback(p settlement.RateFallbackPolicy) Option {
	return func(c *serviceConfig) {
		if p != "" {
			c.rateFallback = p
		}
	}
}

// WithFeePolicy sets how processing fees affect payment totals
func WithFeePolicy(p settlement.FeePolicy) Option {
	return func(c *serviceConfig) {
		if p != "" {
			c.feePolicy = p
		}
	}
}

// WithAllocationPolicy sets which payment/invoice pairs may be allocated
func WithAllocationPolicy(p settlement.AllocationPolicy) Option {
	return func(c *serviceConfig) {
		c.allocationPolicy = p
	}
}

// WithRetry sets how many times a conflicting allocation is retried and the base backoff
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(c *serviceConfig) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}
		if backoff >= 0 {
			c.retryBackoff = backoff
		}
	}
}

// WithClock overrides how the current business date is determined
func WithClock(today func() time.Time) Option {
	return func(c *serviceConfig) {
		if today != nil {
			c.today = today
		}
	}
}

// publish sends events after commit. Handler failures are logged, never returned:
// the state change they describe is already durable.
func (c *serviceConfig) publish(ctx context.Context, events ...shared.DomainEvent) {
	if c.publisher == nil || len(events) == 0 {
		return
	}
	if err := c.publisher.Publish(ctx, events...); err != nil {
		c.logger.Warn("Failed to publish domain events", zap.Int("count", len(events)), zap.Error(err))
	}
}

func (c *serviceConfig) resolver(repos TransactionalRepositories) *settlement.RateResolver {
	return settlement.NewRateResolver(repos.Rates(), c.rateFallback)
}

func (c *serviceConfig) dateOrToday(d time.Time) time.Time {
	if d.IsZero() {
		return c.today()
	}
	return valueobject.BusinessDate(d)
}

// referenceChecker validates partner and currency against the reference-data ports.
// A nil port skips its check.
type referenceChecker struct {
	partners   settlement.PartnerDirectory
	currencies settlement.CurrencyCatalog
}

func (r referenceChecker) partner(ctx context.Context, id uuid.UUID) (*settlement.Partner, error) {
	if r.partners == nil {
		return &settlement.Partner{ID: id, Active: true}, nil
	}
	p, err := r.partners.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup partner: %w", err)
	}
	if p == nil || !p.Active {
		return nil, settlement.NewPartnerNotFoundError(id)
	}
	return p, nil
}

func (r referenceChecker) currency(ctx context.Context, code string) (valueobject.Currency, error) {
	c, err := valueobject.ParseCurrency(code)
	if err != nil {
		return "", shared.NewDomainError(shared.CodeInvalidInput, err.Error())
	}
	if r.currencies == nil {
		return c, nil
	}
	ok, err := r.currencies.IsActive(ctx, c)
	if err != nil {
		return "", fmt.Errorf("lookup currency: %w", err)
	}
	if !ok {
		return "", settlement.NewCurrencyNotFoundError(c)
	}
	return c, nil
}

func aggregateEvents(roots ...shared.AggregateRoot) []shared.DomainEvent {
	var events []shared.DomainEvent
	for _, r := range roots {
		events = append(events, r.GetDomainEvents()...)
		r.ClearDomainEvents()
	}
	return events
}
