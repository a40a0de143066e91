package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAllocationRepository implements AllocationRepository using GORM.
// Allocations are never updated or deleted.
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// FindByID finds an allocation by its ID
func (r *GormAllocationRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Allocation, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindReversalOf returns the allocation reversing id, if any
func (r *GormAllocationRepository) FindReversalOf(ctx context.Context, id uuid.UUID) (*settlement.Allocation, error) {
	return r.first(r.db.WithContext(ctx).Where("reversal_of = ?", id))
}

func (r *GormAllocationRepository) first(query *gorm.DB) (*settlement.Allocation, error) {
	var model models.AllocationModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByPayment lists allocations of a payment in posting order
func (r *GormAllocationRepository) FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]settlement.Allocation, error) {
	return r.list(r.db.WithContext(ctx).Where("payment_id = ?", paymentID))
}

// FindByInvoice lists allocations against an invoice in posting order
func (r *GormAllocationRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]settlement.Allocation, error) {
	return r.list(r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID))
}

func (r *GormAllocationRepository) list(query *gorm.DB) ([]settlement.Allocation, error) {
	var rows []models.AllocationModel
	if err := query.Order("created_at ASC").Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	allocations := make([]settlement.Allocation, len(rows))
	for i := range rows {
		allocations[i] = *rows[i].ToDomain()
	}
	return allocations, nil
}

// Create inserts an allocation. A second reversal of the same allocation
// violates uq_allocations_reversal_of and yields ErrAllocationAlreadyReversed.
func (r *GormAllocationRepository) Create(ctx context.Context, allocation *settlement.Allocation) error {
	return translateError(r.db.WithContext(ctx).Create(models.AllocationModelFromDomain(allocation)).Error)
}

var _ settlement.AllocationRepository = (*GormAllocationRepository)(nil)
