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

// PaymentDirection tells whether money came in from or went out to the partner
type PaymentDirection string

const (
	PaymentDirectionIncoming PaymentDirection = "INCOMING" // Received from partner
	PaymentDirectionOutgoing PaymentDirection = "OUTGOING" // Sent to partner
)

// IsValid checks if the direction is known
func (d PaymentDirection) IsValid() bool {
	return d == PaymentDirectionIncoming || d == PaymentDirectionOutgoing
}

// String returns the string representation of PaymentDirection
func (d PaymentDirection) String() string {
	return string(d)
}

// Settles reports whether a payment in this direction can be allocated to an invoice in dir
func (d PaymentDirection) Settles(dir InvoiceDirection) bool {
	switch d {
	case PaymentDirectionIncoming:
		return dir == InvoiceDirectionReceivable
	case PaymentDirectionOutgoing:
		return dir == InvoiceDirectionPayable
	}
	return false
}

// FeePolicy decides how processing fees affect the allocatable total of a payment
type FeePolicy string

const (
	FeePolicyDeduct FeePolicy = "DEDUCT" // Total = amount - fees
	FeePolicyGross  FeePolicy = "GROSS"  // Total = amount, fees tracked separately
)

// DefaultFeePolicy is used when no policy is configured
const DefaultFeePolicy = FeePolicyDeduct

// ParseFeePolicy parses a fee policy name, case-insensitively
func ParseFeePolicy(s string) (FeePolicy, error) {
	switch p := FeePolicy(strings.ToUpper(strings.TrimSpace(s))); p {
	case FeePolicyDeduct, FeePolicyGross:
		return p, nil
	case "":
		return DefaultFeePolicy, nil
	}
	return "", fmt.Errorf("unknown fee policy %q", s)
}

// TotalFor computes the allocatable total for amount and fees
func (p FeePolicy) TotalFor(amount, fees decimal.Decimal) decimal.Decimal {
	if p == FeePolicyGross {
		return amount
	}
	return amount.Sub(fees)
}

// Payment is money received from or sent to a partner.
// AllocatedAmount and UnallocatedAmount change only through allocations.
type Payment struct {
	shared.AuditedAggregateRoot
	Number            string
	Direction         PaymentDirection
	PartnerID         uuid.UUID
	Currency          valueobject.Currency
	Amount            decimal.Decimal
	ProcessingFees    decimal.Decimal
	TotalAmount       decimal.Decimal
	AllocatedAmount   decimal.Decimal
	UnallocatedAmount decimal.Decimal
	IsFullyAllocated  bool
	PaymentDate       time.Time
	Reference         string
}

// NewPaymentParams holds the inputs for recording a payment
type NewPaymentParams struct {
	Number      string
	Direction   PaymentDirection
	PartnerID   uuid.UUID
	Currency    valueobject.Currency
	Amount      decimal.Decimal
	Fees        decimal.Decimal
	FeePolicy   FeePolicy
	PaymentDate time.Time
	Reference   string
	Actor       string
}

// NewPayment records a payment with nothing allocated
func NewPayment(p NewPaymentParams) (*Payment, error) {
	if p.PartnerID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Partner ID cannot be empty")
	}
	if p.Currency == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Currency cannot be empty")
	}
	if p.Direction == "" {
		p.Direction = PaymentDirectionIncoming
	}
	if !p.Direction.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Invalid payment direction %q", p.Direction))
	}
	if err := valueobject.ValidateAmount(p.Amount); err != nil {
		return nil, err
	}
	if err := valueobject.ValidateNonNegativeAmount(p.Fees); err != nil {
		return nil, err
	}
	if p.FeePolicy == "" {
		p.FeePolicy = DefaultFeePolicy
	}
	total := p.FeePolicy.TotalFor(p.Amount, p.Fees)
	if !total.IsPositive() {
		return nil, shared.NewDomainError(valueobject.ErrCodeInvalidAmount, "Processing fees must be less than the payment amount")
	}
	if p.PaymentDate.IsZero() {
		p.PaymentDate = valueobject.Today()
	}
	date := valueobject.BusinessDate(p.PaymentDate)

	pay := &Payment{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(p.Actor),
		Number:               strings.TrimSpace(p.Number),
		Direction:            p.Direction,
		PartnerID:            p.PartnerID,
		Currency:             p.Currency,
		Amount:               p.Amount,
		ProcessingFees:       p.Fees,
		TotalAmount:          total,
		AllocatedAmount:      decimal.Zero,
		UnallocatedAmount:    total,
		IsFullyAllocated:     false,
		PaymentDate:          date,
		Reference:            p.Reference,
	}
	if pay.Number == "" {
		pay.Number = documentNumber("PAY", date, pay.ID)
	}

	pay.AddDomainEvent(NewPaymentRecordedEvent(pay))
	return pay, nil
}

// Reserve moves amount from unallocated to allocated
func (p *Payment) Reserve(amount decimal.Decimal, actor string) error {
	if err := valueobject.ValidateAmount(amount); err != nil {
		return err
	}
	if amount.GreaterThan(p.UnallocatedAmount) {
		return insufficientUnallocated(p, amount)
	}

	p.UnallocatedAmount = p.UnallocatedAmount.Sub(amount)
	p.AllocatedAmount = p.AllocatedAmount.Add(amount)
	p.IsFullyAllocated = p.UnallocatedAmount.IsZero()
	p.Touch(actor)
	p.IncrementVersion()

	if p.IsFullyAllocated {
		p.AddDomainEvent(NewPaymentFullyAllocatedEvent(p))
	}
	return nil
}

// Release moves amount from allocated back to unallocated when an allocation is reversed
func (p *Payment) Release(amount decimal.Decimal, actor string) error {
	if err := valueobject.ValidateAmount(amount); err != nil {
		return err
	}
	if amount.GreaterThan(p.AllocatedAmount) {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot release %s, payment %s has only %s allocated", amount.StringFixed(2), p.Number, p.AllocatedAmount.StringFixed(2)))
	}

	p.AllocatedAmount = p.AllocatedAmount.Sub(amount)
	p.UnallocatedAmount = p.UnallocatedAmount.Add(amount)
	p.IsFullyAllocated = p.UnallocatedAmount.IsZero()
	p.Touch(actor)
	p.IncrementVersion()
	return nil
}

// Balanced checks allocated + unallocated = total and the fully-allocated flag
func (p *Payment) Balanced() bool {
	return !p.AllocatedAmount.IsNegative() &&
		!p.UnallocatedAmount.IsNegative() &&
		p.AllocatedAmount.Add(p.UnallocatedAmount).Equal(p.TotalAmount) &&
		p.IsFullyAllocated == p.UnallocatedAmount.IsZero()
}

// Leftover returns the unallocated amount as Money
func (p *Payment) Leftover() valueobject.Money {
	m, _ := valueobject.NewMoney(p.UnallocatedAmount, p.Currency)
	return m
}
