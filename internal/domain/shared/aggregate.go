package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and timestamps every stored document has
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// NewBaseEntity stamps a fresh ID and the current UTC time
func NewBaseEntity() BaseEntity {
	ts := now()
	return BaseEntity{ID: uuid.New(), CreatedAt: ts, UpdatedAt: ts}
}

func now() time.Time {
	return time.Now().UTC()
}

// AggregateRoot is a document whose changes are versioned and announced
// through domain events once committed
type AggregateRoot interface {
	GetID() uuid.UUID
	GetVersion() int
	IncrementVersion()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot provides common fields for aggregate roots
type BaseAggregateRoot struct {
	BaseEntity
	Version      int
	domainEvents []DomainEvent
}

// GetVersion returns the aggregate version for optimistic locking
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion increments the version number
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// AddDomainEvent adds a domain event to be published
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns all pending domain events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents clears the pending domain events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// NewBaseAggregateRoot creates a new base aggregate root
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity:   NewBaseEntity(),
		Version:      1,
		domainEvents: make([]DomainEvent, 0),
	}
}

// AuditedAggregateRoot extends BaseAggregateRoot with the actor that
// created and last changed the aggregate.
type AuditedAggregateRoot struct {
	BaseAggregateRoot
	CreatedBy string
	UpdatedBy string
}

// NewAuditedAggregateRoot creates an aggregate root stamped with its creator
func NewAuditedAggregateRoot(actor string) AuditedAggregateRoot {
	actor = NormalizeActor(actor)
	return AuditedAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		CreatedBy:         actor,
		UpdatedBy:         actor,
	}
}

// Touch records a change made by actor
func (a *AuditedAggregateRoot) Touch(actor string) {
	a.UpdatedBy = NormalizeActor(actor)
	a.UpdatedAt = now()
}
