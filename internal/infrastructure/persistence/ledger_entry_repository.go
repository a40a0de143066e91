package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLedgerEntryRepository implements the append-only ledger entry log
type GormLedgerEntryRepository struct {
	db *gorm.DB
}

// NewGormLedgerEntryRepository creates a new GormLedgerEntryRepository
func NewGormLedgerEntryRepository(db *gorm.DB) *GormLedgerEntryRepository {
	return &GormLedgerEntryRepository{db: db}
}

// Append inserts entry unless its natural key is already logged. On a
// duplicate the stored entry is returned with inserted=false.
func (r *GormLedgerEntryRepository) Append(ctx context.Context, entry *settlement.LedgerEntry) (*settlement.LedgerEntry, bool, error) {
	model := models.LedgerEntryModelFromDomain(entry)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "natural_key"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return nil, false, translateError(result.Error)
	}
	if result.RowsAffected > 0 {
		entry.Seq = model.Seq
		return entry, true, nil
	}

	var existing models.LedgerEntryModel
	if err := r.db.WithContext(ctx).Where("natural_key = ?", model.NaturalKey).First(&existing).Error; err != nil {
		return nil, false, translateError(err)
	}
	return existing.ToDomain(), false, nil
}

// ListByPartner lists a partner's entries within dates ordered by
// transaction date, then insertion order
func (r *GormLedgerEntryRepository) ListByPartner(ctx context.Context, partnerID uuid.UUID, dates shared.DateRange) ([]settlement.LedgerEntry, error) {
	query := r.db.WithContext(ctx).Where("partner_id = ?", partnerID)
	if !dates.From.IsZero() {
		query = query.Where("transaction_date >= ?", dates.From)
	}
	if !dates.To.IsZero() {
		query = query.Where("transaction_date <= ?", dates.To)
	}

	var rows []models.LedgerEntryModel
	if err := query.Order("transaction_date ASC").Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]settlement.LedgerEntry, len(rows))
	for i := range rows {
		entries[i] = *rows[i].ToDomain()
	}
	return entries, nil
}

var _ settlement.LedgerEntryRepository = (*GormLedgerEntryRepository)(nil)
