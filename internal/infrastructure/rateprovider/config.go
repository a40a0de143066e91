// Package rateprovider fetches daily exchange rates to the base currency from
// external publishers.
package rateprovider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Provider names accepted in rate_sync.provider
const (
	NameCBR          = "cbr"
	NameExchangeRate = "exchangerate"
	NameChain        = "chain"
)

// maxResponseSize caps provider bodies; a full CBR day is about 10KB
const maxResponseSize = 2 << 20

var (
	// ErrRequestFailed is returned for transport errors and non-2xx responses
	ErrRequestFailed = errors.New("rate provider request failed")

	// ErrMalformedResponse is returned when a body cannot be parsed
	ErrMalformedResponse = errors.New("malformed rate provider response")

	// ErrNoRates is returned when a response parses but carries no usable rate
	ErrNoRates = errors.New("rate provider returned no rates")

	// ErrUnknownProvider is returned by New for an unsupported provider name
	ErrUnknownProvider = errors.New("unknown rate provider")
)

// Config holds the settings shared by the HTTP providers
type Config struct {
	BaseURL string
	APIKey  string
	// Timeout applies per request; the caller's context may cut it shorter
	Timeout time.Duration
	// Currencies limits stored rates; empty keeps everything published
	Currencies []string
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("rate provider base URL is required")
	}
	return nil
}

func (c *Config) httpClient() *http.Client {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func (c *Config) keep(code string) bool {
	if len(c.Currencies) == 0 {
		return true
	}
	for _, want := range c.Currencies {
		if strings.EqualFold(want, code) {
			return true
		}
	}
	return false
}

// New builds the provider named in cfg.Provider. "chain" tries CBR first and
// exchangerate second.
func New(cfg config.RateSyncConfig, logger *zap.Logger) (settlement.RateProvider, error) {
	cbr := func() (settlement.RateProvider, error) {
		return NewCBRProvider(&Config{BaseURL: cfg.CBRURL, Timeout: cfg.Timeout})
	}
	exchangeRate := func() (settlement.RateProvider, error) {
		return NewExchangeRateProvider(&Config{BaseURL: cfg.ExchangeRateURL, APIKey: cfg.ExchangeRateAPIKey, Timeout: cfg.Timeout})
	}

	switch strings.ToLower(cfg.Provider) {
	case NameCBR, "":
		return cbr()
	case NameExchangeRate:
		return exchangeRate()
	case NameChain:
		primary, err := cbr()
		if err != nil {
			return nil, err
		}
		secondary, err := exchangeRate()
		if err != nil {
			return nil, err
		}
		return NewChainProvider(logger, primary, secondary), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
