package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fixture wires every service to one in-memory store
type fixture struct {
	store       *memStore
	publisher   *recordingPublisher
	invoices    *InvoiceService
	payments    *PaymentService
	allocations *AllocationService
	ledger      *LedgerService
	reports     *ReportService
	rates       *RateService
}

func newFixture(opts ...Option) *fixture {
	store := newMemStore()
	pub := &recordingPublisher{}
	opts = append([]Option{
		WithEventPublisher(pub),
		WithClock(func() time.Time { return testDate }),
		WithRetry(3, 0),
	}, opts...)
	return &fixture{
		store:       store,
		publisher:   pub,
		invoices:    NewInvoiceService(store, store, nil, nil, opts...),
		payments:    NewPaymentService(store, store, nil, nil, opts...),
		allocations: NewAllocationService(store, store, opts...),
		ledger:      NewLedgerService(store, nil, opts...),
		reports:     NewReportService(store, nil, nil, nil, opts...),
		rates:       NewRateService(store, opts...),
	}
}

func (f *fixture) invoice(t *testing.T, partnerID uuid.UUID, currency, amount string) *InvoiceResponse {
	t.Helper()
	inv, err := f.invoices.RecordInvoice(context.Background(), "alice", RecordInvoiceRequest{
		PartnerID: partnerID,
		Currency:  currency,
		Amount:    dec(amount),
		IssueDate: testDate,
		DueDate:   testDate.AddDate(0, 0, 30),
	})
	require.NoError(t, err)
	return inv
}

func (f *fixture) payment(t *testing.T, partnerID uuid.UUID, currency, amount string) *PaymentResponse {
	t.Helper()
	pay, err := f.payments.RecordPayment(context.Background(), "alice", RecordPaymentRequest{
		PartnerID:   partnerID,
		Currency:    currency,
		Amount:      dec(amount),
		PaymentDate: testDate,
	})
	require.NoError(t, err)
	return pay
}

func (f *fixture) allocate(paymentID, invoiceID uuid.UUID, amount string) (*AllocationResult, error) {
	return f.allocations.Allocate(context.Background(), "bob", AllocateRequest{
		PaymentID: paymentID,
		InvoiceID: invoiceID,
		Amount:    dec(amount),
	})
}
