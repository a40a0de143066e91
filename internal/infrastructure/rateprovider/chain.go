package rateprovider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/logistics/settlement/internal/domain/settlement"
	"go.uber.org/zap"
)

// ChainProvider asks each provider in turn and returns the first snapshot.
// The snapshot keeps the source of the provider that answered.
type ChainProvider struct {
	providers []settlement.RateProvider
	logger    *zap.Logger
}

// NewChainProvider creates a chain over providers in priority order
func NewChainProvider(logger *zap.Logger, providers ...settlement.RateProvider) *ChainProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainProvider{providers: providers, logger: logger}
}

// Name lists the chained providers, e.g. "chain(cbr,exchangerate)"
func (c *ChainProvider) Name() string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return NameChain + "(" + strings.Join(names, ",") + ")"
}

// FetchRates implements settlement.RateProvider. Cancellation stops the
// chain immediately; every other failure moves on to the next provider.
func (c *ChainProvider) FetchRates(ctx context.Context, date time.Time) (*settlement.RateSnapshot, error) {
	if len(c.providers) == 0 {
		return nil, fmt.Errorf("%s: no providers configured", NameChain)
	}

	var errs []error
	for _, p := range c.providers {
		snapshot, err := p.FetchRates(ctx, date)
		if err == nil {
			return snapshot, nil
		}
		if ctx.Err() != nil {
			return nil, errors.Join(append(errs, err)...)
		}
		errs = append(errs, err)
		c.logger.Warn("Rate provider failed, trying next",
			zap.String("provider", p.Name()),
			zap.Time("date", date),
			zap.Error(err),
		)
	}
	return nil, errors.Join(errs...)
}

var _ settlement.RateProvider = (*ChainProvider)(nil)
