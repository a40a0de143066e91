package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// AllocationPostedEvent is raised after a payment is allocated to an invoice
type AllocationPostedEvent struct {
	shared.BaseDomainEvent
	AllocationID    uuid.UUID            `json:"allocation_id"`
	PaymentID       uuid.UUID            `json:"payment_id"`
	InvoiceID       uuid.UUID            `json:"invoice_id"`
	PartnerID       uuid.UUID            `json:"partner_id"`
	Currency        valueobject.Currency `json:"currency"`
	Amount          decimal.Decimal      `json:"amount"`
	BaseAmount      decimal.Decimal      `json:"base_amount"`
	TransactionDate time.Time            `json:"transaction_date"`
}

// EventType returns the event type name
func (e *AllocationPostedEvent) EventType() string {
	return EventTypeAllocationPosted
}

// NewAllocationPostedEvent creates a new AllocationPostedEvent
func NewAllocationPostedEvent(a *Allocation) *AllocationPostedEvent {
	return &AllocationPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAllocationPosted, "Allocation", a.ID, a.CreatedBy),
		AllocationID:    a.ID,
		PaymentID:       a.PaymentID,
		InvoiceID:       a.InvoiceID,
		PartnerID:       a.PartnerID,
		Currency:        a.Currency,
		Amount:          a.Amount,
		BaseAmount:      a.BaseAmount,
		TransactionDate: a.TransactionDate,
	}
}

// AllocationReversedEvent is raised after an allocation is reversed
type AllocationReversedEvent struct {
	shared.BaseDomainEvent
	AllocationID uuid.UUID       `json:"allocation_id"`
	ReversalOf   uuid.UUID       `json:"reversal_of"`
	PaymentID    uuid.UUID       `json:"payment_id"`
	InvoiceID    uuid.UUID       `json:"invoice_id"`
	PartnerID    uuid.UUID       `json:"partner_id"`
	Amount       decimal.Decimal `json:"amount"`
}

// EventType returns the event type name
func (e *AllocationReversedEvent) EventType() string {
	return EventTypeAllocationReversed
}

// NewAllocationReversedEvent creates a new AllocationReversedEvent
func NewAllocationReversedEvent(reversal *Allocation) *AllocationReversedEvent {
	var original uuid.UUID
	if reversal.ReversalOf != nil {
		original = *reversal.ReversalOf
	}
	return &AllocationReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAllocationReversed, "Allocation", reversal.ID, reversal.CreatedBy),
		AllocationID:    reversal.ID,
		ReversalOf:      original,
		PaymentID:       reversal.PaymentID,
		InvoiceID:       reversal.InvoiceID,
		PartnerID:       reversal.PartnerID,
		Amount:          reversal.Amount,
	}
}

// RatesSynchronizedEvent is raised when the synchronizer stores a day's rates
type RatesSynchronizedEvent struct {
	shared.BaseDomainEvent
	Date         time.Time `json:"date"`
	Source       string    `json:"source"`
	RatesWritten int       `json:"rates_written"`
}

// EventType returns the event type name
func (e *RatesSynchronizedEvent) EventType() string {
	return EventTypeRatesSynchronized
}

// NewRatesSynchronizedEvent creates a new RatesSynchronizedEvent
func NewRatesSynchronizedEvent(jobID uuid.UUID, date time.Time, source string, written int) *RatesSynchronizedEvent {
	return &RatesSynchronizedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRatesSynchronized, "RateSyncJob", jobID, shared.SystemActor),
		Date:            date,
		Source:          source,
		RatesWritten:    written,
	}
}
