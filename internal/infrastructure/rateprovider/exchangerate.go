package rateprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// exchangeRateResponse is the historical endpoint body. Rates are units of
// each currency per one unit of base.
type exchangeRateResponse struct {
	Success *bool                      `json:"success"`
	Base    string                     `json:"base"`
	Date    string                     `json:"date"`
	Rates   map[string]decimal.Decimal `json:"rates"`
	Error   *struct {
		Code int    `json:"code"`
		Type string `json:"type"`
		Info string `json:"info"`
	} `json:"error"`
}

// ExchangeRateProvider reads an exchangerate.host style JSON API quoted
// against the base currency and inverts each quote to base per unit.
type ExchangeRateProvider struct {
	config     *Config
	httpClient *http.Client
}

// NewExchangeRateProvider creates an exchangerate provider
func NewExchangeRateProvider(config *Config) (*ExchangeRateProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ExchangeRateProvider{config: config, httpClient: config.httpClient()}, nil
}

// Name implements settlement.RateProvider
func (p *ExchangeRateProvider) Name() string { return NameExchangeRate }

// FetchRates implements settlement.RateProvider
func (p *ExchangeRateProvider) FetchRates(ctx context.Context, date time.Time) (*settlement.RateSnapshot, error) {
	u, err := url.Parse(strings.TrimRight(p.config.BaseURL, "/") + "/" + valueobject.FormatBusinessDate(date))
	if err != nil {
		return nil, fmt.Errorf("exchangerate: invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("base", valueobject.BaseCurrency.String())
	if len(p.config.Currencies) > 0 {
		q.Set("symbols", strings.ToUpper(strings.Join(p.config.Currencies, ",")))
	}
	if p.config.APIKey != "" {
		q.Set("access_key", p.config.APIKey)
	}
	u.RawQuery = q.Encode()

	body, err := get(ctx, p.httpClient, u.String(), "application/json")
	if err != nil {
		return nil, fmt.Errorf("exchangerate: %w", err)
	}
	return p.parse(body, date)
}

func (p *ExchangeRateProvider) parse(body []byte, requested time.Time) (*settlement.RateSnapshot, error) {
	var resp exchangeRateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("exchangerate: %w: %v", ErrMalformedResponse, err)
	}
	if resp.Success != nil && !*resp.Success {
		msg := "unsuccessful response"
		if resp.Error != nil {
			msg = fmt.Sprintf("%d %s %s", resp.Error.Code, resp.Error.Type, resp.Error.Info)
		}
		return nil, fmt.Errorf("exchangerate: %w: %s", ErrRequestFailed, strings.TrimSpace(msg))
	}
	if resp.Base != "" && !strings.EqualFold(resp.Base, valueobject.BaseCurrency.String()) {
		return nil, fmt.Errorf("exchangerate: %w: base %s", ErrMalformedResponse, resp.Base)
	}

	published := requested
	if resp.Date != "" {
		d, err := valueobject.ParseBusinessDate(resp.Date)
		if err != nil {
			return nil, fmt.Errorf("exchangerate: %w: date %q", ErrMalformedResponse, resp.Date)
		}
		published = d
	}

	snapshot := settlement.NewRateSnapshot(published, NameExchangeRate)
	one := decimal.NewFromInt(1)
	for symbol, quote := range resp.Rates {
		code, err := valueobject.ParseCurrency(symbol)
		if err != nil || code.IsBase() || !quote.IsPositive() || !p.config.keep(code.String()) {
			continue
		}
		snapshot.Rates[code] = one.DivRound(quote, settlement.RateScale)
	}
	if len(snapshot.Rates) == 0 {
		return nil, fmt.Errorf("exchangerate: %w for %s", ErrNoRates, valueobject.FormatBusinessDate(requested))
	}
	return snapshot, nil
}

var _ settlement.RateProvider = (*ExchangeRateProvider)(nil)
