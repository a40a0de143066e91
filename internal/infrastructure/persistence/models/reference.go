package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/settlement"
)

// PartnerModel is the local replica of partner reference data
type PartnerModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Name      string    `gorm:"type:varchar(200);not null"`
	IsActive  bool      `gorm:"not null;default:true"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PartnerModel) TableName() string {
	return "partners"
}

// ToDomain converts the persistence model to a domain Partner
func (m *PartnerModel) ToDomain() *settlement.Partner {
	return &settlement.Partner{ID: m.ID, Name: m.Name, Active: m.IsActive}
}

// CurrencyModel is the local replica of the currency catalog
type CurrencyModel struct {
	Code     string `gorm:"type:varchar(3);primaryKey"`
	Name     string `gorm:"type:varchar(100);not null"`
	IsActive bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (CurrencyModel) TableName() string {
	return "currencies"
}

// All returns every settlement model, in dependency order, for AutoMigrate in tests
func All() []any {
	return []any{
		&PartnerModel{},
		&CurrencyModel{},
		&InvoiceModel{},
		&PaymentModel{},
		&AllocationModel{},
		&LedgerEntryModel{},
		&ExchangeRateModel{},
		&RateSyncJobModel{},
	}
}
