package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/shared"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// AuditedAggregateModel carries the version used for optimistic locking and
// the actors that created and last changed the row.
type AuditedAggregateModel struct {
	BaseModel
	Version   int    `gorm:"not null;default:1"`
	CreatedBy string `gorm:"type:varchar(100);not null"`
	UpdatedBy string `gorm:"type:varchar(100);not null"`
}

// FromDomain populates the model from a domain AuditedAggregateRoot
func (m *AuditedAggregateModel) FromDomain(a shared.AuditedAggregateRoot) {
	m.ID = a.ID
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt
	m.Version = a.Version
	m.CreatedBy = a.CreatedBy
	m.UpdatedBy = a.UpdatedBy
}

// ToDomain converts the model to a domain AuditedAggregateRoot with no pending events
func (m *AuditedAggregateModel) ToDomain() shared.AuditedAggregateRoot {
	return shared.AuditedAggregateRoot{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: m.BaseModel.ToDomain(),
			Version:    m.Version,
		},
		CreatedBy: m.CreatedBy,
		UpdatedBy: m.UpdatedBy,
	}
}
