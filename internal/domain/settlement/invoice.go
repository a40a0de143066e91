package settlement

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceDirection tells whether the partner owes us or we owe the partner
type InvoiceDirection string

const (
	InvoiceDirectionReceivable InvoiceDirection = "RECEIVABLE" // Partner owes us
	InvoiceDirectionPayable    InvoiceDirection = "PAYABLE"    // We owe the partner
)

// IsValid checks if the direction is known
func (d InvoiceDirection) IsValid() bool {
	return d == InvoiceDirectionReceivable || d == InvoiceDirectionPayable
}

// String returns the string representation of InvoiceDirection
func (d InvoiceDirection) String() string {
	return string(d)
}

// InvoiceStatus represents the settlement status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusOpen          InvoiceStatus = "OPEN"           // Nothing paid
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID" // Some paid, some outstanding
	InvoiceStatusClosed        InvoiceStatus = "CLOSED"         // Outstanding reached zero
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusOpen, InvoiceStatusPartiallyPaid, InvoiceStatusClosed:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// Invoice is an amount owed by or to a partner in one currency.
// PaidAmount and OutstandingBalance change only through allocations.
type Invoice struct {
	shared.AuditedAggregateRoot
	Number             string
	Direction          InvoiceDirection
	PartnerID          uuid.UUID
	Currency           valueobject.Currency
	TotalAmount        decimal.Decimal
	PaidAmount         decimal.Decimal
	OutstandingBalance decimal.Decimal
	Status             InvoiceStatus
	IssueDate          time.Time
	DueDate            time.Time
	Description        string
}

// NewInvoiceParams holds the inputs for issuing an invoice
type NewInvoiceParams struct {
	Number      string
	Direction   InvoiceDirection
	PartnerID   uuid.UUID
	Currency    valueobject.Currency
	Amount      decimal.Decimal
	IssueDate   time.Time
	DueDate     time.Time
	Description string
	Actor       string
}

// NewInvoice issues an invoice with nothing paid
func NewInvoice(p NewInvoiceParams) (*Invoice, error) {
	if p.PartnerID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Partner ID cannot be empty")
	}
	if p.Currency == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Currency cannot be empty")
	}
	if p.Direction == "" {
		p.Direction = InvoiceDirectionReceivable
	}
	if !p.Direction.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Invalid invoice direction %q", p.Direction))
	}
	if err := valueobject.ValidateAmount(p.Amount); err != nil {
		return nil, err
	}
	if p.IssueDate.IsZero() {
		p.IssueDate = valueobject.Today()
	}
	issue := valueobject.BusinessDate(p.IssueDate)
	if p.DueDate.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Due date is required")
	}
	due := valueobject.BusinessDate(p.DueDate)
	if due.Before(issue) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Due date cannot be before issue date")
	}

	inv := &Invoice{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(p.Actor),
		Number:               strings.TrimSpace(p.Number),
		Direction:            p.Direction,
		PartnerID:            p.PartnerID,
		Currency:             p.Currency,
		TotalAmount:          p.Amount,
		PaidAmount:           decimal.Zero,
		OutstandingBalance:   p.Amount,
		Status:               InvoiceStatusOpen,
		IssueDate:            issue,
		DueDate:              due,
		Description:          p.Description,
	}
	if inv.Number == "" {
		inv.Number = documentNumber("INV", issue, inv.ID)
	}

	inv.AddDomainEvent(NewInvoiceIssuedEvent(inv))
	return inv, nil
}

// ApplyPayment moves amount from outstanding to paid
func (i *Invoice) ApplyPayment(amount decimal.Decimal, actor string) error {
	if err := valueobject.ValidateAmount(amount); err != nil {
		return err
	}
	if amount.GreaterThan(i.OutstandingBalance) {
		return insufficientOutstanding(i, amount)
	}

	i.PaidAmount = i.PaidAmount.Add(amount)
	i.OutstandingBalance = i.OutstandingBalance.Sub(amount)
	i.refreshStatus()
	i.Touch(actor)
	i.IncrementVersion()

	if i.Status == InvoiceStatusClosed {
		i.AddDomainEvent(NewInvoiceClosedEvent(i))
	}
	return nil
}

// RevertPayment moves amount from paid back to outstanding when an allocation is reversed
func (i *Invoice) RevertPayment(amount decimal.Decimal, actor string) error {
	if err := valueobject.ValidateAmount(amount); err != nil {
		return err
	}
	if amount.GreaterThan(i.PaidAmount) {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot revert %s, invoice %s has only %s paid", amount.StringFixed(2), i.Number, i.PaidAmount.StringFixed(2)))
	}

	i.PaidAmount = i.PaidAmount.Sub(amount)
	i.OutstandingBalance = i.OutstandingBalance.Add(amount)
	i.refreshStatus()
	i.Touch(actor)
	i.IncrementVersion()
	return nil
}

func (i *Invoice) refreshStatus() {
	switch {
	case i.OutstandingBalance.IsZero():
		i.Status = InvoiceStatusClosed
	case i.PaidAmount.IsZero():
		i.Status = InvoiceStatusOpen
	default:
		i.Status = InvoiceStatusPartiallyPaid
	}
}

// IsUnpaid reports an open invoice with nothing paid yet
func (i *Invoice) IsUnpaid() bool {
	return i.PaidAmount.IsZero() && i.OutstandingBalance.IsPositive()
}

// IsPartiallyPaid reports an invoice with some paid and some outstanding
func (i *Invoice) IsPartiallyPaid() bool {
	return i.PaidAmount.IsPositive() && i.OutstandingBalance.IsPositive()
}

// IsOverdue reports whether the invoice still has an outstanding balance after its due date
func (i *Invoice) IsOverdue(asOf time.Time) bool {
	return i.OutstandingBalance.IsPositive() && i.DueDate.Before(valueobject.BusinessDate(asOf))
}

// Balanced checks paid + outstanding = total with both non-negative
func (i *Invoice) Balanced() bool {
	return !i.PaidAmount.IsNegative() &&
		!i.OutstandingBalance.IsNegative() &&
		i.PaidAmount.Add(i.OutstandingBalance).Equal(i.TotalAmount)
}

// Outstanding returns the outstanding balance as Money
func (i *Invoice) Outstanding() valueobject.Money {
	m, _ := valueobject.NewMoney(i.OutstandingBalance, i.Currency)
	return m
}

func documentNumber(prefix string, date time.Time, id uuid.UUID) string {
	return fmt.Sprintf("%s-%s-%s", prefix, date.Format("20060102"), strings.ToUpper(id.String()[:8]))
}
