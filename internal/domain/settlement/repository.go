package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
)

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	PartnerID *uuid.UUID
	Status    *InvoiceStatus
	Direction *InvoiceDirection
	Currency  *valueobject.Currency
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice by ID, returning nil if absent
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByIDForUpdate finds an invoice and locks its row for the enclosing transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindAll finds invoices matching filter
	FindAll(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)

	// Count counts invoices matching filter
	Count(ctx context.Context, filter InvoiceFilter) (int64, error)

	// FindOpenByPartner finds invoices with outstanding balance issued on or before asOf
	FindOpenByPartner(ctx context.Context, partnerID uuid.UUID, asOf time.Time) ([]Invoice, error)

	// Create inserts a new invoice
	Create(ctx context.Context, invoice *Invoice) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, invoice *Invoice) error
}

// PaymentFilter defines filtering options for payment queries
type PaymentFilter struct {
	shared.Filter
	PartnerID      *uuid.UUID
	Direction      *PaymentDirection
	Currency       *valueobject.Currency
	FullyAllocated *bool
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// FindByID finds a payment by ID, returning nil if absent
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByIDForUpdate finds a payment and locks its row for the enclosing transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindAll finds payments matching filter
	FindAll(ctx context.Context, filter PaymentFilter) ([]Payment, error)

	// Count counts payments matching filter
	Count(ctx context.Context, filter PaymentFilter) (int64, error)

	// FindOpenByPartner finds payments with unallocated amount dated on or before asOf
	FindOpenByPartner(ctx context.Context, partnerID uuid.UUID, asOf time.Time) ([]Payment, error)

	// Create inserts a new payment
	Create(ctx context.Context, payment *Payment) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, payment *Payment) error
}

// AllocationRepository defines the interface for allocation persistence.
// Allocations are insert-only.
type AllocationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Allocation, error)

	// FindReversalOf returns the reversal of id, or nil if it has not been reversed
	FindReversalOf(ctx context.Context, id uuid.UUID) (*Allocation, error)

	FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]Allocation, error)
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Allocation, error)

	Create(ctx context.Context, allocation *Allocation) error
}

// LedgerEntryRepository is the append-only ledger entry log
type LedgerEntryRepository interface {
	// Append stores entry unless an entry with the same natural key exists.
	// It returns the stored entry and whether it was newly inserted.
	Append(ctx context.Context, entry *LedgerEntry) (*LedgerEntry, bool, error)

	// ListByPartner lists entries ordered by transaction date, then insertion order
	ListByPartner(ctx context.Context, partnerID uuid.UUID, dates shared.DateRange) ([]LedgerEntry, error)
}

// ExchangeRateFilter defines filtering options for rate queries
type ExchangeRateFilter struct {
	Currency *valueobject.Currency
	Dates    shared.DateRange
	Limit    int
}

// ExchangeRateRepository is the exchange rate store
type ExchangeRateRepository interface {
	RateReader

	// ExistsForDate reports whether any rate is stored for date
	ExistsForDate(ctx context.Context, date time.Time) (bool, error)

	// InsertIfAbsent stores rate unless (currency, date) already exists.
	// It returns true if a row was written.
	InsertIfAbsent(ctx context.Context, rate *ExchangeRate) (bool, error)

	// FindAll lists rates newest first
	FindAll(ctx context.Context, filter ExchangeRateFilter) ([]ExchangeRate, error)
}
