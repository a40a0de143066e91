package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func createTestInvoice(t *testing.T, partnerID uuid.UUID, currency valueobject.Currency, amount string) *Invoice {
	t.Helper()
	inv, err := NewInvoice(NewInvoiceParams{
		Direction: InvoiceDirectionReceivable,
		PartnerID: partnerID,
		Currency:  currency,
		Amount:    dec(amount),
		IssueDate: testDate,
		DueDate:   testDate.AddDate(0, 0, 30),
		Actor:     "alice",
	})
	require.NoError(t, err)
	return inv
}

func createTestPayment(t *testing.T, partnerID uuid.UUID, currency valueobject.Currency, amount string) *Payment {
	t.Helper()
	p, err := NewPayment(NewPaymentParams{
		Direction:   PaymentDirectionIncoming,
		PartnerID:   partnerID,
		Currency:    currency,
		Amount:      dec(amount),
		Fees:        decimal.Zero,
		PaymentDate: testDate,
		Actor:       "alice",
	})
	require.NoError(t, err)
	return p
}

// fixedRates resolves from a static table, failing for missing currencies
type fixedRates map[valueobject.Currency]string

func (f fixedRates) Resolve(_ context.Context, currency valueobject.Currency, date time.Time) (AppliedRate, error) {
	if currency.IsBase() {
		return BaseRate(date), nil
	}
	r, ok := f[currency]
	if !ok {
		return AppliedRate{}, NewMissingExchangeRateError(currency, date)
	}
	d := valueobject.BusinessDate(date)
	return AppliedRate{Currency: currency, Rate: dec(r), RequestedDate: d, EffectiveDate: d}, nil
}
