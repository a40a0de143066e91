package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Allocation links part of a payment to an invoice. Allocations are
// immutable; a reversal is a second allocation with the negated amount
// pointing at the original through ReversalOf.
type Allocation struct {
	ID              uuid.UUID
	PaymentID       uuid.UUID
	InvoiceID       uuid.UUID
	PartnerID       uuid.UUID
	Currency        valueobject.Currency
	Amount          decimal.Decimal
	BaseAmount      decimal.Decimal
	Rate            decimal.Decimal
	RateDate        time.Time
	TransactionDate time.Time
	ReversalOf      *uuid.UUID
	CreatedBy       string
	CreatedAt       time.Time
}

// IsReversal reports whether this allocation negates an earlier one
func (a *Allocation) IsReversal() bool {
	return a.ReversalOf != nil
}

// Money returns the allocated amount as Money
func (a *Allocation) Money() valueobject.Money {
	m, _ := valueobject.NewMoney(a.Amount, a.Currency)
	return m
}
