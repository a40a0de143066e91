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

// aggregateImmutableColumns are never rewritten by SaveWithLock
var aggregateImmutableColumns = []string{"id", "created_at", "created_by"}

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Invoice, error) {
	return r.first(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds an invoice and holds a row lock until the transaction ends
func (r *GormInvoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*settlement.Invoice, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormInvoiceRepository) first(query *gorm.DB, id uuid.UUID) (*settlement.Invoice, error) {
	var model models.InvoiceModel
	if err := query.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll finds invoices matching filter
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter settlement.InvoiceFilter) ([]settlement.Invoice, error) {
	var rows []models.InvoiceModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)
	query = applyOrdering(query, filter.Filter, InvoiceSortFields)
	query = applyPagination(query, filter.Filter)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return invoicesToDomain(rows), nil
}

// Count counts invoices matching filter
func (r *GormInvoiceRepository) Count(ctx context.Context, filter settlement.InvoiceFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindOpenByPartner finds invoices with a non-zero outstanding balance issued on or before asOf
func (r *GormInvoiceRepository) FindOpenByPartner(ctx context.Context, partnerID uuid.UUID, asOf time.Time) ([]settlement.Invoice, error) {
	var rows []models.InvoiceModel
	err := r.db.WithContext(ctx).
		Where("partner_id = ? AND issue_date <= ? AND outstanding_balance <> 0", partnerID, asOf).
		Order("issue_date ASC").Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return invoicesToDomain(rows), nil
}

// Create inserts a new invoice
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *settlement.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

// SaveWithLock saves with optimistic locking. The aggregate's version has
// already been incremented, so the stored row must still carry Version-1.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *settlement.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	result := r.db.WithContext(ctx).
		Model(model).
		Select("*").Omit(aggregateImmutableColumns...).
		Where("id = ? AND version = ?", invoice.ID, invoice.Version-1).
		Updates(model)

	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrentModification
	}
	return nil
}

func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter settlement.InvoiceFilter) *gorm.DB {
	if filter.PartnerID != nil {
		query = query.Where("partner_id = ?", *filter.PartnerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Direction != nil {
		query = query.Where("direction = ?", *filter.Direction)
	}
	if filter.Currency != nil {
		query = query.Where("currency = ?", *filter.Currency)
	}
	return query
}

func invoicesToDomain(rows []models.InvoiceModel) []settlement.Invoice {
	invoices := make([]settlement.Invoice, len(rows))
	for i := range rows {
		invoices[i] = *rows[i].ToDomain()
	}
	return invoices
}

var _ settlement.InvoiceRepository = (*GormInvoiceRepository)(nil)
