package settlement

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// AllocationPolicy configures which payment/invoice pairs may be allocated
type AllocationPolicy struct {
	// EnforceDirection requires INCOMING payments to settle RECEIVABLE invoices
	// and OUTGOING payments to settle PAYABLE invoices.
	EnforceDirection bool
	// EnforcePartner requires payment and invoice to belong to the same partner.
	EnforcePartner bool
}

// DefaultAllocationPolicy enforces both direction and partner matching
func DefaultAllocationPolicy() AllocationPolicy {
	return AllocationPolicy{
		EnforceDirection: true,
		EnforcePartner:   true,
	}
}

// Allocator applies allocations to a payment and an invoice already loaded
// under a transaction. It mutates both in memory and returns the records to
// persist; the caller commits them as one unit.
type Allocator struct {
	policy AllocationPolicy
}

// NewAllocator creates an allocator with policy
func NewAllocator(policy AllocationPolicy) *Allocator {
	return &Allocator{policy: policy}
}

// Posting is the outcome of an allocation or reversal
type Posting struct {
	Allocation *Allocation
	Entry      *LedgerEntry
}

// Check validates amount and the pair without mutating either side.
// Checks run in a fixed order so the reported failure is deterministic.
func (a *Allocator) Check(payment *Payment, invoice *Invoice, amount decimal.Decimal) error {
	if err := valueobject.ValidateAmount(amount); err != nil {
		return err
	}
	if payment.Currency != invoice.Currency {
		return shared.NewDomainError(ErrCodeCurrencyMismatch,
			fmt.Sprintf("Payment %s is in %s but invoice %s is in %s", payment.Number, payment.Currency, invoice.Number, invoice.Currency))
	}
	if a.policy.EnforceDirection && !payment.Direction.Settles(invoice.Direction) {
		return shared.NewDomainError(ErrCodeDirectionMismatch,
			fmt.Sprintf("%s payment cannot settle %s invoice", payment.Direction, invoice.Direction))
	}
	if a.policy.EnforcePartner && payment.PartnerID != invoice.PartnerID {
		return ErrPartnerMismatch
	}
	if amount.GreaterThan(payment.UnallocatedAmount) {
		return insufficientUnallocated(payment, amount)
	}
	if amount.GreaterThan(invoice.OutstandingBalance) {
		return insufficientOutstanding(invoice, amount)
	}
	return nil
}

// Post allocates amount from payment to invoice on date, using rate for the base amount
func (a *Allocator) Post(payment *Payment, invoice *Invoice, amount decimal.Decimal, rate AppliedRate, date time.Time, actor string) (*Posting, error) {
	if err := a.Check(payment, invoice, amount); err != nil {
		return nil, err
	}
	if rate.Currency != payment.Currency {
		return nil, NewMissingExchangeRateError(payment.Currency, date)
	}

	if err := payment.Reserve(amount, actor); err != nil {
		return nil, err
	}
	if err := invoice.ApplyPayment(amount, actor); err != nil {
		return nil, err
	}

	alloc := newAllocation(payment, invoice, amount, rate, date, actor)
	entry, err := allocationEntry(alloc, actor)
	if err != nil {
		return nil, err
	}
	return &Posting{Allocation: alloc, Entry: entry}, nil
}

// Reverse negates original, restoring both ledgers. alreadyReversed must be
// true when a reversal of original exists.
func (a *Allocator) Reverse(original *Allocation, alreadyReversed bool, payment *Payment, invoice *Invoice, rate AppliedRate, date time.Time, actor string) (*Posting, error) {
	if original.IsReversal() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "A reversal cannot itself be reversed")
	}
	if alreadyReversed {
		return nil, shared.NewDomainError(ErrCodeAlreadyReversed,
			fmt.Sprintf("Allocation %s has already been reversed", original.ID))
	}
	if payment.ID != original.PaymentID || invoice.ID != original.InvoiceID {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Payment or invoice does not match the allocation")
	}

	if err := payment.Release(original.Amount, actor); err != nil {
		return nil, err
	}
	if err := invoice.RevertPayment(original.Amount, actor); err != nil {
		return nil, err
	}

	reversal := newAllocation(payment, invoice, original.Amount.Neg(), rate, date, actor)
	originalID := original.ID
	reversal.ReversalOf = &originalID

	entry, err := allocationEntry(reversal, actor)
	if err != nil {
		return nil, err
	}
	return &Posting{Allocation: reversal, Entry: entry}, nil
}

func newAllocation(payment *Payment, invoice *Invoice, amount decimal.Decimal, rate AppliedRate, date time.Time, actor string) *Allocation {
	return &Allocation{
		ID:              uuid.New(),
		PaymentID:       payment.ID,
		InvoiceID:       invoice.ID,
		PartnerID:       invoice.PartnerID,
		Currency:        invoice.Currency,
		Amount:          amount,
		BaseAmount:      rate.Convert(amount),
		Rate:            rate.Rate,
		RateDate:        rate.EffectiveDate,
		TransactionDate: valueobject.BusinessDate(date),
		CreatedBy:       shared.NormalizeActor(actor),
		CreatedAt:       time.Now().UTC(),
	}
}

func allocationEntry(alloc *Allocation, actor string) (*LedgerEntry, error) {
	invoiceID := alloc.InvoiceID
	paymentID := alloc.PaymentID
	entry, err := NewLedgerEntry(LedgerEntryParams{
		PartnerID:       alloc.PartnerID,
		Currency:        alloc.Currency,
		Amount:          alloc.Amount,
		ReferenceType:   ReferenceTypeAllocation,
		ReferenceID:     alloc.ID,
		InvoiceID:       &invoiceID,
		PaymentID:       &paymentID,
		TransactionDate: alloc.TransactionDate,
		Actor:           actor,
	}, AppliedRate{Currency: alloc.Currency, Rate: alloc.Rate, RequestedDate: alloc.TransactionDate, EffectiveDate: alloc.RateDate})
	if err != nil {
		return nil, err
	}
	entry.BaseAmount = alloc.BaseAmount
	return entry, nil
}

// IssuanceEntry builds the opening ledger entry for a newly issued invoice
func IssuanceEntry(inv *Invoice, rate AppliedRate) (*LedgerEntry, error) {
	invoiceID := inv.ID
	return NewLedgerEntry(LedgerEntryParams{
		PartnerID:       inv.PartnerID,
		Currency:        inv.Currency,
		Amount:          inv.TotalAmount,
		ReferenceType:   ReferenceTypeInvoice,
		ReferenceID:     inv.ID,
		InvoiceID:       &invoiceID,
		TransactionDate: inv.IssueDate,
		Actor:           inv.CreatedBy,
	}, rate)
}

// ReceiptEntry builds the opening ledger entry for a newly recorded payment.
// Money received is posted as the negated total.
func ReceiptEntry(p *Payment, rate AppliedRate) (*LedgerEntry, error) {
	paymentID := p.ID
	return NewLedgerEntry(LedgerEntryParams{
		PartnerID:       p.PartnerID,
		Currency:        p.Currency,
		Amount:          p.TotalAmount.Neg(),
		ReferenceType:   ReferenceTypePayment,
		ReferenceID:     p.ID,
		PaymentID:       &paymentID,
		TransactionDate: p.PaymentDate,
		Actor:           p.CreatedBy,
	}, rate)
}
