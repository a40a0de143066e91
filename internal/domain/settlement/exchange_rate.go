package settlement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// RateScale is the number of fractional digits stored for exchange rates
const RateScale int32 = 8

// ExchangeRate is the daily rate of one currency against the base currency.
// Rows are write-once per (currency, date).
type ExchangeRate struct {
	Currency  valueobject.Currency
	Date      time.Time
	Rate      decimal.Decimal // base units per one unit of Currency
	Source    string
	FetchedAt time.Time
}

// NewExchangeRate validates and normalizes a rate for storage
func NewExchangeRate(currency valueobject.Currency, date time.Time, rate decimal.Decimal, source string) (*ExchangeRate, error) {
	if currency == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Currency cannot be empty")
	}
	if currency.IsBase() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Base currency rate is fixed and cannot be stored")
	}
	if !rate.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Rate for %s must be positive, got %s", currency, rate.String()))
	}
	if date.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Rate date is required")
	}
	return &ExchangeRate{
		Currency:  currency,
		Date:      valueobject.BusinessDate(date),
		Rate:      rate.Round(RateScale),
		Source:    source,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// AppliedRate is the rate actually used to convert an amount for a requested date.
// EffectiveDate differs from RequestedDate when the fallback policy picked an earlier rate.
type AppliedRate struct {
	Currency      valueobject.Currency
	Rate          decimal.Decimal
	RequestedDate time.Time
	EffectiveDate time.Time
}

// IsFallback reports whether an earlier day's rate was used
func (r AppliedRate) IsFallback() bool {
	return !r.EffectiveDate.Equal(r.RequestedDate)
}

// Convert converts amount (in r.Currency) to the base currency, rounded to cents
func (r AppliedRate) Convert(amount decimal.Decimal) decimal.Decimal {
	m, _ := valueobject.NewMoney(amount, r.Currency)
	return m.ToBase(r.Rate).Amount()
}

// BaseRate returns the identity rate for the base currency
func BaseRate(date time.Time) AppliedRate {
	d := valueobject.BusinessDate(date)
	return AppliedRate{
		Currency:      valueobject.BaseCurrency,
		Rate:          decimal.NewFromInt(1),
		RequestedDate: d,
		EffectiveDate: d,
	}
}

// RateFallbackPolicy decides what happens when no rate exists for the exact date
type RateFallbackPolicy string

const (
	RateFallbackPrevious RateFallbackPolicy = "PREVIOUS" // Most recent rate on or before the date
	RateFallbackExact    RateFallbackPolicy = "EXACT"    // Exact date only
)

// DefaultRateFallbackPolicy is used when no policy is configured
const DefaultRateFallbackPolicy = RateFallbackPrevious

// ParseRateFallbackPolicy parses a fallback policy name, case-insensitively
func ParseRateFallbackPolicy(s string) (RateFallbackPolicy, error) {
	switch p := RateFallbackPolicy(strings.ToUpper(strings.TrimSpace(s))); p {
	case RateFallbackPrevious, RateFallbackExact:
		return p, nil
	case "":
		return DefaultRateFallbackPolicy, nil
	}
	return "", fmt.Errorf("unknown rate fallback policy %q", s)
}

// RateReader is the read side of the exchange rate store used for conversion
type RateReader interface {
	// FindExact returns the rate for currency on date, or nil if absent
	FindExact(ctx context.Context, currency valueobject.Currency, date time.Time) (*ExchangeRate, error)
	// FindLatestOnOrBefore returns the most recent rate dated on or before date, or nil if absent
	FindLatestOnOrBefore(ctx context.Context, currency valueobject.Currency, date time.Time) (*ExchangeRate, error)
}

// RateResolver looks up conversion rates under a fallback policy
type RateResolver struct {
	reader RateReader
	policy RateFallbackPolicy
}

// NewRateResolver creates a resolver over reader
func NewRateResolver(reader RateReader, policy RateFallbackPolicy) *RateResolver {
	if policy == "" {
		policy = DefaultRateFallbackPolicy
	}
	return &RateResolver{reader: reader, policy: policy}
}

// Policy returns the configured fallback policy
func (r *RateResolver) Policy() RateFallbackPolicy {
	return r.policy
}

// Resolve returns the rate for currency on date.
// The base currency always resolves to 1. When nothing applies the
// error is MISSING_EXCHANGE_RATE.
func (r *RateResolver) Resolve(ctx context.Context, currency valueobject.Currency, date time.Time) (AppliedRate, error) {
	day := valueobject.BusinessDate(date)
	if currency.IsBase() {
		return BaseRate(day), nil
	}

	var (
		rate *ExchangeRate
		err  error
	)
	if r.policy == RateFallbackExact {
		rate, err = r.reader.FindExact(ctx, currency, day)
	} else {
		rate, err = r.reader.FindLatestOnOrBefore(ctx, currency, day)
	}
	if err != nil {
		return AppliedRate{}, err
	}
	if rate == nil {
		return AppliedRate{}, NewMissingExchangeRateError(currency, day)
	}

	return AppliedRate{
		Currency:      currency,
		Rate:          rate.Rate,
		RequestedDate: day,
		EffectiveDate: rate.Date,
	}, nil
}

// RateSnapshot is one provider response: rates to the base currency for a date
type RateSnapshot struct {
	Date   time.Time
	Source string
	Rates  map[valueobject.Currency]decimal.Decimal
}

// NewRateSnapshot creates an empty snapshot for date
func NewRateSnapshot(date time.Time, source string) *RateSnapshot {
	return &RateSnapshot{
		Date:   valueobject.BusinessDate(date),
		Source: source,
		Rates:  make(map[valueobject.Currency]decimal.Decimal),
	}
}

// ExchangeRates converts the snapshot into storable rows dated at date.
// The base currency and non-positive rates are skipped.
func (s *RateSnapshot) ExchangeRates(date time.Time) []*ExchangeRate {
	rates := make([]*ExchangeRate, 0, len(s.Rates))
	for currency, value := range s.Rates {
		rate, err := NewExchangeRate(currency, date, value, s.Source)
		if err != nil {
			continue
		}
		rates = append(rates, rate)
	}
	return rates
}

// SyncState is the per-day state of the exchange rate synchronizer
type SyncState string

const (
	SyncStateUnsynced SyncState = "UNSYNCED" // No rate rows exist for the day
	SyncStateSynced   SyncState = "SYNCED"   // At least one rate row exists for the day
)

// String returns the string representation of SyncState
func (s SyncState) String() string {
	return string(s)
}
