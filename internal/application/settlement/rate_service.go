package settlement

import (
	"context"
	"time"

	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
)

// RateService answers exchange rate queries
type RateService struct {
	repos TransactionalRepositories
	cfg   serviceConfig
}

// NewRateService creates a new RateService
func NewRateService(repos TransactionalRepositories, opts ...Option) *RateService {
	return &RateService{repos: repos, cfg: newServiceConfig(opts)}
}

// GetRate returns the rate used to convert currency on date under the fallback policy
func (s *RateService) GetRate(ctx context.Context, currency string, date time.Time) (*ExchangeRateResponse, error) {
	c, err := valueobject.ParseCurrency(currency)
	if err != nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, err.Error())
	}
	rate, err := s.cfg.resolver(s.repos).Resolve(ctx, c, s.cfg.dateOrToday(date))
	if err != nil {
		return nil, err
	}
	return &ExchangeRateResponse{
		Currency:      rate.Currency.String(),
		Rate:          rate.Rate,
		RequestedDate: valueobject.FormatBusinessDate(rate.RequestedDate),
		EffectiveDate: valueobject.FormatBusinessDate(rate.EffectiveDate),
		Fallback:      rate.IsFallback(),
	}, nil
}

// ListRates returns stored rates newest first
func (s *RateService) ListRates(ctx context.Context, currency string, from, to time.Time, limit int) ([]ExchangeRateResponse, error) {
	filter := settlement.ExchangeRateFilter{Dates: shared.DateRange{From: from, To: to}, Limit: limit}
	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = 100
	}
	if currency != "" {
		c, err := valueobject.ParseCurrency(currency)
		if err != nil {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, err.Error())
		}
		filter.Currency = &c
	}

	rates, err := s.repos.Rates().FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]ExchangeRateResponse, len(rates))
	for i, r := range rates {
		out[i] = ExchangeRateResponse{
			Currency:      r.Currency.String(),
			Rate:          r.Rate,
			EffectiveDate: valueobject.FormatBusinessDate(r.Date),
			Source:        r.Source,
		}
	}
	return out, nil
}
