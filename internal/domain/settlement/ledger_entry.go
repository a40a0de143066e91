package settlement

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ReferenceType names the kind of document a ledger entry records
type ReferenceType string

const (
	ReferenceTypeInvoice    ReferenceType = "INVOICE"
	ReferenceTypePayment    ReferenceType = "PAYMENT"
	ReferenceTypeAllocation ReferenceType = "ALLOCATION"
)

// IsValid checks if the reference type is known
func (t ReferenceType) IsValid() bool {
	switch t {
	case ReferenceTypeInvoice, ReferenceTypePayment, ReferenceTypeAllocation:
		return true
	}
	return false
}

// LedgerEntry is an append-only record of a balance-affecting event.
// Issuance entries carry the document total; allocation entries carry the
// allocated amount, negative for reversals.
type LedgerEntry struct {
	ID              uuid.UUID
	Seq             int64 // insertion order, assigned by the store
	PartnerID       uuid.UUID
	Currency        valueobject.Currency
	Amount          decimal.Decimal
	BaseAmount      decimal.Decimal
	Rate            decimal.Decimal
	ReferenceType   ReferenceType
	ReferenceID     uuid.UUID
	InvoiceID       *uuid.UUID
	PaymentID       *uuid.UUID
	TransactionDate time.Time
	CreatedBy       string
	CreatedAt       time.Time
}

// LedgerEntryParams holds the inputs for a ledger entry
type LedgerEntryParams struct {
	PartnerID       uuid.UUID
	Currency        valueobject.Currency
	Amount          decimal.Decimal
	ReferenceType   ReferenceType
	ReferenceID     uuid.UUID
	InvoiceID       *uuid.UUID
	PaymentID       *uuid.UUID
	TransactionDate time.Time
	Actor           string
}

// NewLedgerEntry builds an entry and stamps its base amount with rate
func NewLedgerEntry(p LedgerEntryParams, rate AppliedRate) (*LedgerEntry, error) {
	if p.PartnerID == uuid.Nil || p.ReferenceID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Ledger entry requires partner and reference")
	}
	if !p.ReferenceType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Invalid reference type %q", p.ReferenceType))
	}
	if p.Amount.IsZero() {
		return nil, shared.NewDomainError(valueobject.ErrCodeInvalidAmount, "Ledger entry amount cannot be zero")
	}
	if rate.Currency != p.Currency {
		return nil, shared.NewDomainError(ErrCodeCurrencyMismatch,
			fmt.Sprintf("Rate for %s cannot convert %s", rate.Currency, p.Currency))
	}

	return &LedgerEntry{
		ID:              uuid.New(),
		PartnerID:       p.PartnerID,
		Currency:        p.Currency,
		Amount:          p.Amount,
		BaseAmount:      rate.Convert(p.Amount),
		Rate:            rate.Rate,
		ReferenceType:   p.ReferenceType,
		ReferenceID:     p.ReferenceID,
		InvoiceID:       p.InvoiceID,
		PaymentID:       p.PaymentID,
		TransactionDate: valueobject.BusinessDate(p.TransactionDate),
		CreatedBy:       shared.NormalizeActor(p.Actor),
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// NaturalKey identifies the business event the entry records.
// Appending an entry whose key already exists is a no-op.
func (e *LedgerEntry) NaturalKey() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s",
		e.PartnerID, e.ReferenceType, e.ReferenceID,
		valueobject.FormatBusinessDate(e.TransactionDate), e.Amount.StringFixed(valueobject.MoneyScale))
}

// SortLedgerEntries orders entries by transaction date, then insertion order
func SortLedgerEntries(entries []LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].TransactionDate.Equal(entries[j].TransactionDate) {
			return entries[i].TransactionDate.Before(entries[j].TransactionDate)
		}
		return entries[i].Seq < entries[j].Seq
	})
}

// LedgerTotals is a per-currency balance reconstructed from the entry log.
// Net is the signed sum of native amounts; Paid is reported positive.
type LedgerTotals struct {
	Currency  valueobject.Currency
	Net       decimal.Decimal
	Invoiced  decimal.Decimal
	Paid      decimal.Decimal
	Allocated decimal.Decimal
}

// NewLedgerTotals returns zero totals for currency
func NewLedgerTotals(currency valueobject.Currency) LedgerTotals {
	return LedgerTotals{
		Currency:  currency,
		Net:       decimal.Zero,
		Invoiced:  decimal.Zero,
		Paid:      decimal.Zero,
		Allocated: decimal.Zero,
	}
}

// Outstanding is what remains open on invoices
func (t LedgerTotals) Outstanding() decimal.Decimal {
	return t.Invoiced.Sub(t.Allocated)
}

// Leftover is what remains unallocated on payments
func (t LedgerTotals) Leftover() decimal.Decimal {
	return t.Paid.Sub(t.Allocated)
}

// RecomputeTotals folds entries up to asOf into per-currency totals
func RecomputeTotals(entries []LedgerEntry, asOf time.Time) map[valueobject.Currency]LedgerTotals {
	cutoff := valueobject.BusinessDate(asOf)
	totals := make(map[valueobject.Currency]LedgerTotals)
	for _, e := range entries {
		if e.TransactionDate.After(cutoff) {
			continue
		}
		t, ok := totals[e.Currency]
		if !ok {
			t = NewLedgerTotals(e.Currency)
		}
		t.Net = t.Net.Add(e.Amount)
		switch e.ReferenceType {
		case ReferenceTypeInvoice:
			t.Invoiced = t.Invoiced.Add(e.Amount)
		case ReferenceTypePayment:
			t.Paid = t.Paid.Sub(e.Amount)
		case ReferenceTypeAllocation:
			t.Allocated = t.Allocated.Add(e.Amount)
		}
		totals[e.Currency] = t
	}
	return totals
}
