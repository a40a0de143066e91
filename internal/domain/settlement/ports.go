package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
)

// Partner is the settlement view of a counterparty
type Partner struct {
	ID     uuid.UUID
	Name   string
	Active bool
}

// PartnerDirectory resolves partners owned by the reference-data service
type PartnerDirectory interface {
	// Get returns the partner, or nil if it does not exist
	Get(ctx context.Context, id uuid.UUID) (*Partner, error)
}

// CurrencyCatalog reports which currencies may be used for new documents
type CurrencyCatalog interface {
	IsActive(ctx context.Context, currency valueobject.Currency) (bool, error)
}

// RateProvider fetches a day's rates from an external source
type RateProvider interface {
	// Name identifies the provider in logs and stored rows
	Name() string
	// FetchRates returns rates to the base currency published for date
	FetchRates(ctx context.Context, date time.Time) (*RateSnapshot, error)
}
