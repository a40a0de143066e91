package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeInvoiceIssued      = "InvoiceIssued"
	EventTypeInvoiceClosed      = "InvoiceClosed"
	EventTypePaymentRecorded    = "PaymentRecorded"
	EventTypePaymentAllocated   = "PaymentFullyAllocated"
	EventTypeAllocationPosted   = "AllocationPosted"
	EventTypeAllocationReversed = "AllocationReversed"
	EventTypeRatesSynchronized  = "ExchangeRatesSynchronized"
)

// InvoiceIssuedEvent is raised when a new invoice is issued
type InvoiceIssuedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID            `json:"invoice_id"`
	Number    string               `json:"number"`
	PartnerID uuid.UUID            `json:"partner_id"`
	Direction InvoiceDirection     `json:"direction"`
	Currency  valueobject.Currency `json:"currency"`
	Amount    decimal.Decimal      `json:"amount"`
	DueDate   time.Time            `json:"due_date"`
}

// EventType returns the event type name
func (e *InvoiceIssuedEvent) EventType() string {
	return EventTypeInvoiceIssued
}

// NewInvoiceIssuedEvent creates a new InvoiceIssuedEvent
func NewInvoiceIssuedEvent(inv *Invoice) *InvoiceIssuedEvent {
	return &InvoiceIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceIssued, "Invoice", inv.ID, inv.CreatedBy),
		InvoiceID:       inv.ID,
		Number:          inv.Number,
		PartnerID:       inv.PartnerID,
		Direction:       inv.Direction,
		Currency:        inv.Currency,
		Amount:          inv.TotalAmount,
		DueDate:         inv.DueDate,
	}
}

// InvoiceClosedEvent is raised when an invoice's outstanding balance reaches zero
type InvoiceClosedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID `json:"invoice_id"`
	Number    string    `json:"number"`
	PartnerID uuid.UUID `json:"partner_id"`
}

// EventType returns the event type name
func (e *InvoiceClosedEvent) EventType() string {
	return EventTypeInvoiceClosed
}

// NewInvoiceClosedEvent creates a new InvoiceClosedEvent
func NewInvoiceClosedEvent(inv *Invoice) *InvoiceClosedEvent {
	return &InvoiceClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceClosed, "Invoice", inv.ID, inv.UpdatedBy),
		InvoiceID:       inv.ID,
		Number:          inv.Number,
		PartnerID:       inv.PartnerID,
	}
}
