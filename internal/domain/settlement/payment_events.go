package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PaymentRecordedEvent is raised when a payment is recorded
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentID   uuid.UUID            `json:"payment_id"`
	Number      string               `json:"number"`
	PartnerID   uuid.UUID            `json:"partner_id"`
	Direction   PaymentDirection     `json:"direction"`
	Currency    valueobject.Currency `json:"currency"`
	TotalAmount decimal.Decimal      `json:"total_amount"`
	PaymentDate time.Time            `json:"payment_date"`
}

// EventType returns the event type name
func (e *PaymentRecordedEvent) EventType() string {
	return EventTypePaymentRecorded
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, "Payment", p.ID, p.CreatedBy),
		PaymentID:       p.ID,
		Number:          p.Number,
		PartnerID:       p.PartnerID,
		Direction:       p.Direction,
		Currency:        p.Currency,
		TotalAmount:     p.TotalAmount,
		PaymentDate:     p.PaymentDate,
	}
}

// PaymentFullyAllocatedEvent is raised when nothing of a payment remains unallocated
type PaymentFullyAllocatedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID `json:"payment_id"`
	Number    string    `json:"number"`
	PartnerID uuid.UUID `json:"partner_id"`
}

// EventType returns the event type name
func (e *PaymentFullyAllocatedEvent) EventType() string {
	return EventTypePaymentAllocated
}

// NewPaymentFullyAllocatedEvent creates a new PaymentFullyAllocatedEvent
func NewPaymentFullyAllocatedEvent(p *Payment) *PaymentFullyAllocatedEvent {
	return &PaymentFullyAllocatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentAllocated, "Payment", p.ID, p.UpdatedBy),
		PaymentID:       p.ID,
		Number:          p.Number,
		PartnerID:       p.PartnerID,
	}
}
