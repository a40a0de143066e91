package settlement

import (
	"fmt"
	"time"

	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Error codes raised by the settlement engine
const (
	ErrCodeInsufficientUnallocated = "INSUFFICIENT_UNALLOCATED_AMOUNT"
	ErrCodeInsufficientOutstanding = "INSUFFICIENT_OUTSTANDING_BALANCE"
	ErrCodeCurrencyMismatch        = "CURRENCY_MISMATCH"
	ErrCodeMissingExchangeRate     = "MISSING_EXCHANGE_RATE"
	ErrCodeProviderUnavailable     = "PROVIDER_UNAVAILABLE"
	ErrCodeDirectionMismatch       = "DIRECTION_MISMATCH"
	ErrCodePartnerMismatch         = "PARTNER_MISMATCH"
	ErrCodeAlreadyReversed         = "ALLOCATION_ALREADY_REVERSED"
)

// Sentinels for errors.Is; DomainError.Is compares codes.
var (
	ErrInsufficientUnallocatedAmount  = shared.NewDomainError(ErrCodeInsufficientUnallocated, "Insufficient unallocated amount")
	ErrInsufficientOutstandingBalance = shared.NewDomainError(ErrCodeInsufficientOutstanding, "Insufficient outstanding balance")
	ErrCurrencyMismatch               = shared.NewDomainError(ErrCodeCurrencyMismatch, "Currency mismatch")
	ErrMissingExchangeRate            = shared.NewDomainError(ErrCodeMissingExchangeRate, "Missing exchange rate")
	ErrProviderUnavailable            = shared.NewDomainError(ErrCodeProviderUnavailable, "Exchange rate provider unavailable")
	ErrDirectionMismatch              = shared.NewDomainError(ErrCodeDirectionMismatch, "Payment direction does not settle invoice direction")
	ErrPartnerMismatch                = shared.NewDomainError(ErrCodePartnerMismatch, "Payment and invoice belong to different partners")
	ErrAllocationAlreadyReversed      = shared.NewDomainError(ErrCodeAlreadyReversed, "Allocation already reversed")
)

func insufficientUnallocated(p *Payment, amount decimal.Decimal) error {
	return shared.NewDomainError(ErrCodeInsufficientUnallocated,
		fmt.Sprintf("Amount %s exceeds unallocated amount %s of payment %s",
			amount.StringFixed(2), p.UnallocatedAmount.StringFixed(2), p.Number))
}

func insufficientOutstanding(i *Invoice, amount decimal.Decimal) error {
	return shared.NewDomainError(ErrCodeInsufficientOutstanding,
		fmt.Sprintf("Amount %s exceeds outstanding balance %s of invoice %s",
			amount.StringFixed(2), i.OutstandingBalance.StringFixed(2), i.Number))
}

// NewMissingExchangeRateError reports that no usable rate exists for currency on date
func NewMissingExchangeRateError(currency valueobject.Currency, date time.Time) error {
	return shared.NewDomainError(ErrCodeMissingExchangeRate,
		fmt.Sprintf("No exchange rate for %s on %s", currency, valueobject.FormatBusinessDate(date)))
}

// NewProviderUnavailableError wraps a rate provider failure
func NewProviderUnavailableError(provider string, cause error) error {
	return shared.NewDomainError(ErrCodeProviderUnavailable,
		fmt.Sprintf("Rate provider %s unavailable: %v", provider, cause))
}

func notFound(kind string, id fmt.Stringer) error {
	return shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("%s %s not found", kind, id))
}

// NewInvoiceNotFoundError reports an unknown invoice
func NewInvoiceNotFoundError(id fmt.Stringer) error { return notFound("Invoice", id) }

// NewPaymentNotFoundError reports an unknown payment
func NewPaymentNotFoundError(id fmt.Stringer) error { return notFound("Payment", id) }

// NewAllocationNotFoundError reports an unknown allocation
func NewAllocationNotFoundError(id fmt.Stringer) error { return notFound("Allocation", id) }

// NewPartnerNotFoundError reports an unknown or inactive partner
func NewPartnerNotFoundError(id fmt.Stringer) error { return notFound("Partner", id) }

// NewCurrencyNotFoundError reports an unknown or inactive currency
func NewCurrencyNotFoundError(c valueobject.Currency) error {
	return shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("Currency %s not found", c))
}
