package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/logistics/settlement/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultRateListLimit = 500

// GormExchangeRateRepository implements the exchange rate store using GORM.
// Rows are write-once per (currency, rate_date).
type GormExchangeRateRepository struct {
	db *gorm.DB
}

// NewGormExchangeRateRepository creates a new GormExchangeRateRepository
func NewGormExchangeRateRepository(db *gorm.DB) *GormExchangeRateRepository {
	return &GormExchangeRateRepository{db: db}
}

// FindExact returns the rate stored for currency on date
func (r *GormExchangeRateRepository) FindExact(ctx context.Context, currency valueobject.Currency, date time.Time) (*settlement.ExchangeRate, error) {
	return r.first(r.db.WithContext(ctx).
		Where("currency = ? AND rate_date = ?", currency, valueobject.BusinessDate(date)))
}

// FindLatestOnOrBefore returns the newest rate for currency dated on or before date
func (r *GormExchangeRateRepository) FindLatestOnOrBefore(ctx context.Context, currency valueobject.Currency, date time.Time) (*settlement.ExchangeRate, error) {
	return r.first(r.db.WithContext(ctx).
		Where("currency = ? AND rate_date <= ?", currency, valueobject.BusinessDate(date)).
		Order("rate_date DESC"))
}

func (r *GormExchangeRateRepository) first(query *gorm.DB) (*settlement.ExchangeRate, error) {
	var model models.ExchangeRateModel
	if err := query.Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsForDate reports whether any rate is stored for date
func (r *GormExchangeRateRepository) ExistsForDate(ctx context.Context, date time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ExchangeRateModel{}).
		Where("rate_date = ?", valueobject.BusinessDate(date)).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertIfAbsent stores rate unless (currency, date) exists. Existing rows are never overwritten.
func (r *GormExchangeRateRepository) InsertIfAbsent(ctx context.Context, rate *settlement.ExchangeRate) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "currency"}, {Name: "rate_date"}},
			DoNothing: true,
		}).
		Create(models.ExchangeRateModelFromDomain(rate))
	if result.Error != nil {
		return false, translateError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// FindAll lists rates newest first
func (r *GormExchangeRateRepository) FindAll(ctx context.Context, filter settlement.ExchangeRateFilter) ([]settlement.ExchangeRate, error) {
	query := r.db.WithContext(ctx).Model(&models.ExchangeRateModel{})
	if filter.Currency != nil {
		query = query.Where("currency = ?", *filter.Currency)
	}
	if !filter.Dates.From.IsZero() {
		query = query.Where("rate_date >= ?", valueobject.BusinessDate(filter.Dates.From))
	}
	if !filter.Dates.To.IsZero() {
		query = query.Where("rate_date <= ?", valueobject.BusinessDate(filter.Dates.To))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultRateListLimit
	}

	var rows []models.ExchangeRateModel
	if err := query.Order("rate_date DESC").Order("currency ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	rates := make([]settlement.ExchangeRate, len(rows))
	for i := range rows {
		rates[i] = *rows[i].ToDomain()
	}
	return rates, nil
}

var _ settlement.ExchangeRateRepository = (*GormExchangeRateRepository)(nil)
