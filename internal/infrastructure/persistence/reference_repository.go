package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/logistics/settlement/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPartnerDirectory reads the local partner replica
type GormPartnerDirectory struct {
	db *gorm.DB
}

// NewGormPartnerDirectory creates a new GormPartnerDirectory
func NewGormPartnerDirectory(db *gorm.DB) *GormPartnerDirectory {
	return &GormPartnerDirectory{db: db}
}

// Get returns the partner, or nil if unknown
func (d *GormPartnerDirectory) Get(ctx context.Context, id uuid.UUID) (*settlement.Partner, error) {
	var model models.PartnerModel
	if err := d.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// GormCurrencyCatalog reads the local currency catalog
type GormCurrencyCatalog struct {
	db *gorm.DB
}

// NewGormCurrencyCatalog creates a new GormCurrencyCatalog
func NewGormCurrencyCatalog(db *gorm.DB) *GormCurrencyCatalog {
	return &GormCurrencyCatalog{db: db}
}

// IsActive reports whether currency is in the catalog and enabled
func (c *GormCurrencyCatalog) IsActive(ctx context.Context, currency valueobject.Currency) (bool, error) {
	var count int64
	err := c.db.WithContext(ctx).
		Model(&models.CurrencyModel{}).
		Where("code = ? AND is_active = ?", currency.String(), true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

var (
	_ settlement.PartnerDirectory = (*GormPartnerDirectory)(nil)
	_ settlement.CurrencyCatalog  = (*GormCurrencyCatalog)(nil)
)
