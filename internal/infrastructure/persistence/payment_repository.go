package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Payment, error) {
	return r.first(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a payment and holds a row lock until the transaction ends
func (r *GormPaymentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*settlement.Payment, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormPaymentRepository) first(query *gorm.DB, id uuid.UUID) (*settlement.Payment, error) {
	var model models.PaymentModel
	if err := query.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll finds payments matching filter
func (r *GormPaymentRepository) FindAll(ctx context.Context, filter settlement.PaymentFilter) ([]settlement.Payment, error) {
	var rows []models.PaymentModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.PaymentModel{}), filter)
	query = applyOrdering(query, filter.Filter, PaymentSortFields)
	query = applyPagination(query, filter.Filter)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return paymentsToDomain(rows), nil
}

// Count counts payments matching filter
func (r *GormPaymentRepository) Count(ctx context.Context, filter settlement.PaymentFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.PaymentModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindOpenByPartner finds payments with unallocated money dated on or before asOf
func (r *GormPaymentRepository) FindOpenByPartner(ctx context.Context, partnerID uuid.UUID, asOf time.Time) ([]settlement.Payment, error) {
	var rows []models.PaymentModel
	err := r.db.WithContext(ctx).
		Where("partner_id = ? AND payment_date <= ? AND unallocated_amount <> 0", partnerID, asOf).
		Order("payment_date ASC").Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return paymentsToDomain(rows), nil
}

// Create inserts a new payment
func (r *GormPaymentRepository) Create(ctx context.Context, payment *settlement.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

// SaveWithLock saves with optimistic locking. The aggregate's version has
// already been incremented, so the stored row must still carry Version-1.
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, payment *settlement.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	result := r.db.WithContext(ctx).
		Model(model).
		Select("*").Omit(aggregateImmutableColumns...).
		Where("id = ? AND version = ?", payment.ID, payment.Version-1).
		Updates(model)

	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrentModification
	}
	return nil
}

func (r *GormPaymentRepository) applyFilter(query *gorm.DB, filter settlement.PaymentFilter) *gorm.DB {
	if filter.PartnerID != nil {
		query = query.Where("partner_id = ?", *filter.PartnerID)
	}
	if filter.Direction != nil {
		query = query.Where("direction = ?", *filter.Direction)
	}
	if filter.Currency != nil {
		query = query.Where("currency = ?", *filter.Currency)
	}
	if filter.FullyAllocated != nil {
		query = query.Where("is_fully_allocated = ?", *filter.FullyAllocated)
	}
	return query
}

func paymentsToDomain(rows []models.PaymentModel) []settlement.Payment {
	payments := make([]settlement.Payment, len(rows))
	for i := range rows {
		payments[i] = *rows[i].ToDomain()
	}
	return payments
}

var _ settlement.PaymentRepository = (*GormPaymentRepository)(nil)
