package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRates []ExchangeRate

func (m memoryRates) FindExact(_ context.Context, c valueobject.Currency, date time.Time) (*ExchangeRate, error) {
	for i := range m {
		if m[i].Currency == c && m[i].Date.Equal(date) {
			return &m[i], nil
		}
	}
	return nil, nil
}

func (m memoryRates) FindLatestOnOrBefore(_ context.Context, c valueobject.Currency, date time.Time) (*ExchangeRate, error) {
	var best *ExchangeRate
	for i := range m {
		r := &m[i]
		if r.Currency != c || r.Date.After(date) {
			continue
		}
		if best == nil || r.Date.After(best.Date) {
			best = r
		}
	}
	return best, nil
}

func TestNewExchangeRate(t *testing.T) {
	r, err := NewExchangeRate(valueobject.USD, testDate.Add(15*time.Hour), dec("92.123456789"), "cbr")
	require.NoError(t, err)
	assert.True(t, r.Date.Equal(testDate))
	assert.Equal(t, "92.12345679", r.Rate.String())

	_, err = NewExchangeRate(valueobject.RUB, testDate, dec("1"), "cbr")
	assert.Error(t, err)
	_, err = NewExchangeRate(valueobject.USD, testDate, dec("0"), "cbr")
	assert.Error(t, err)
	_, err = NewExchangeRate(valueobject.USD, time.Time{}, dec("1"), "cbr")
	assert.Error(t, err)
}

func TestRateResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	store := memoryRates{
		{Currency: valueobject.USD, Date: testDate.AddDate(0, 0, -3), Rate: dec("90")},
		{Currency: valueobject.USD, Date: testDate.AddDate(0, 0, -1), Rate: dec("91")},
		{Currency: valueobject.USD, Date: testDate, Rate: dec("92")},
		{Currency: valueobject.EUR, Date: testDate.AddDate(0, 0, -2), Rate: dec("100")},
	}

	t.Run("exact date wins", func(t *testing.T) {
		r, err := NewRateResolver(store, RateFallbackPrevious).Resolve(ctx, valueobject.USD, testDate)
		require.NoError(t, err)
		assert.True(t, r.Rate.Equal(dec("92")))
		assert.False(t, r.IsFallback())
	})

	t.Run("falls back to most recent earlier rate", func(t *testing.T) {
		r, err := NewRateResolver(store, RateFallbackPrevious).Resolve(ctx, valueobject.EUR, testDate)
		require.NoError(t, err)
		assert.True(t, r.Rate.Equal(dec("100")))
		assert.True(t, r.IsFallback())
		assert.True(t, r.EffectiveDate.Equal(testDate.AddDate(0, 0, -2)))
	})

	t.Run("never uses a later rate", func(t *testing.T) {
		_, err := NewRateResolver(store, RateFallbackPrevious).Resolve(ctx, valueobject.USD, testDate.AddDate(0, 0, -4))
		assert.ErrorIs(t, err, ErrMissingExchangeRate)
	})

	t.Run("exact policy does not fall back", func(t *testing.T) {
		_, err := NewRateResolver(store, RateFallbackExact).Resolve(ctx, valueobject.EUR, testDate)
		assert.Equal(t, ErrCodeMissingExchangeRate, shared.CodeOf(err))
	})

	t.Run("base currency is always one", func(t *testing.T) {
		r, err := NewRateResolver(memoryRates{}, RateFallbackExact).Resolve(ctx, valueobject.RUB, testDate)
		require.NoError(t, err)
		assert.True(t, r.Rate.Equal(dec("1")))
	})

	t.Run("empty policy defaults to previous", func(t *testing.T) {
		assert.Equal(t, RateFallbackPrevious, NewRateResolver(store, "").Policy())
	})
}

func TestParseRateFallbackPolicy(t *testing.T) {
	p, err := ParseRateFallbackPolicy("exact")
	require.NoError(t, err)
	assert.Equal(t, RateFallbackExact, p)

	p, err = ParseRateFallbackPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRateFallbackPolicy, p)

	_, err = ParseRateFallbackPolicy("nearest")
	assert.Error(t, err)
}

func TestRateSnapshot_ExchangeRates(t *testing.T) {
	snap := NewRateSnapshot(testDate, "cbr")
	snap.Rates[valueobject.USD] = dec("92.5")
	snap.Rates[valueobject.EUR] = dec("100.25")
	snap.Rates[valueobject.RUB] = dec("1")
	snap.Rates["XXX"] = dec("0")

	rates := snap.ExchangeRates(testDate.AddDate(0, 0, 1))
	require.Len(t, rates, 2)
	for _, r := range rates {
		assert.True(t, r.Date.Equal(testDate.AddDate(0, 0, 1)))
		assert.Equal(t, "cbr", r.Source)
	}
}
