package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/logistics/settlement/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupSettlementTestDB opens an in-memory SQLite database with the
// settlement schema. One connection keeps every query on the same database.
func setupSettlementTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func date(s string) time.Time {
	d, err := valueobject.ParseBusinessDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestInvoice(t *testing.T, partnerID uuid.UUID, amount string, issue string) *settlement.Invoice {
	t.Helper()
	inv, err := settlement.NewInvoice(settlement.NewInvoiceParams{
		PartnerID: partnerID,
		Currency:  valueobject.RUB,
		Amount:    decimal.RequireFromString(amount),
		IssueDate: date(issue),
		DueDate:   date(issue).AddDate(0, 0, 30),
		Actor:     "tester",
	})
	require.NoError(t, err)
	return inv
}

func newTestPayment(t *testing.T, partnerID uuid.UUID, amount string, paid string) *settlement.Payment {
	t.Helper()
	pay, err := settlement.NewPayment(settlement.NewPaymentParams{
		PartnerID:   partnerID,
		Currency:    valueobject.RUB,
		Amount:      decimal.RequireFromString(amount),
		PaymentDate: date(paid),
		Actor:       "tester",
	})
	require.NoError(t, err)
	return pay
}

func TestGormInvoiceRepository_CreateAndFind(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()
	partnerID := uuid.New()

	inv := newTestInvoice(t, partnerID, "1500.50", "2024-03-01")
	require.NoError(t, repo.Create(ctx, inv))

	t.Run("finds by id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, inv.Number, found.Number)
		assert.True(t, found.TotalAmount.Equal(decimal.RequireFromString("1500.50")))
		assert.True(t, found.OutstandingBalance.Equal(found.TotalAmount))
		assert.Equal(t, settlement.InvoiceStatusOpen, found.Status)
		assert.Equal(t, "2024-03-01", valueobject.FormatBusinessDate(found.IssueDate))
		assert.Equal(t, 1, found.Version)
		assert.Equal(t, "tester", found.CreatedBy)
	})

	t.Run("returns nil for unknown id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("locking read returns the same row", func(t *testing.T) {
		found, err := repo.FindByIDForUpdate(ctx, inv.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, inv.ID, found.ID)
	})
}

func TestGormInvoiceRepository_SaveWithLock(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	inv := newTestInvoice(t, uuid.New(), "100", "2024-03-01")
	require.NoError(t, repo.Create(ctx, inv))

	t.Run("saves when version matches", func(t *testing.T) {
		loaded, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		require.NoError(t, loaded.ApplyPayment(decimal.NewFromInt(100), "clerk"))
		require.NoError(t, repo.SaveWithLock(ctx, loaded))

		stored, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.Version)
		assert.Equal(t, settlement.InvoiceStatusClosed, stored.Status)
		assert.True(t, stored.OutstandingBalance.IsZero())
		assert.Equal(t, "clerk", stored.UpdatedBy)
		assert.Equal(t, "tester", stored.CreatedBy)
	})

	t.Run("writes zero balances back", func(t *testing.T) {
		loaded, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		require.NoError(t, loaded.RevertPayment(decimal.NewFromInt(100), "clerk"))
		require.NoError(t, repo.SaveWithLock(ctx, loaded))

		stored, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.True(t, stored.PaidAmount.IsZero())
		assert.True(t, stored.OutstandingBalance.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, 3, stored.Version)
	})

	t.Run("rejects a stale version", func(t *testing.T) {
		stale, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		fresh, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)

		require.NoError(t, fresh.ApplyPayment(decimal.NewFromInt(10), "a"))
		require.NoError(t, repo.SaveWithLock(ctx, fresh))

		require.NoError(t, stale.ApplyPayment(decimal.NewFromInt(20), "b"))
		err = repo.SaveWithLock(ctx, stale)
		assert.ErrorIs(t, err, shared.ErrConcurrentModification)
	})
}

func TestGormInvoiceRepository_FindAllAndCount(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()
	partnerA, partnerB := uuid.New(), uuid.New()

	for i, issue := range []string{"2024-01-10", "2024-01-11", "2024-01-12"} {
		inv := newTestInvoice(t, partnerA, "100", issue)
		if i == 0 {
			require.NoError(t, inv.ApplyPayment(decimal.NewFromInt(100), "x"))
		}
		require.NoError(t, repo.Create(ctx, inv))
	}
	require.NoError(t, repo.Create(ctx, newTestInvoice(t, partnerB, "50", "2024-01-10")))

	t.Run("filters by partner", func(t *testing.T) {
		f := settlement.InvoiceFilter{Filter: shared.DefaultFilter(), PartnerID: &partnerA}
		list, err := repo.FindAll(ctx, f)
		require.NoError(t, err)
		assert.Len(t, list, 3)

		count, err := repo.Count(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("filters by status", func(t *testing.T) {
		closed := settlement.InvoiceStatusClosed
		f := settlement.InvoiceFilter{Filter: shared.DefaultFilter(), Status: &closed}
		count, err := repo.Count(ctx, f)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("paginates in requested order", func(t *testing.T) {
		f := settlement.InvoiceFilter{
			Filter:    shared.Filter{Page: 2, PageSize: 2, OrderBy: "issue_date", OrderDir: "asc"},
			PartnerID: &partnerA,
		}
		list, err := repo.FindAll(ctx, f)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "2024-01-12", valueobject.FormatBusinessDate(list[0].IssueDate))
	})

	t.Run("ignores unknown sort columns", func(t *testing.T) {
		f := settlement.InvoiceFilter{Filter: shared.Filter{Page: 1, PageSize: 10, OrderBy: "1; DROP TABLE invoices"}}
		list, err := repo.FindAll(ctx, f)
		require.NoError(t, err)
		assert.Len(t, list, 4)
	})

	t.Run("open invoices exclude closed and future ones", func(t *testing.T) {
		open, err := repo.FindOpenByPartner(ctx, partnerA, date("2024-01-11"))
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, "2024-01-11", valueobject.FormatBusinessDate(open[0].IssueDate))
	})
}

func TestGormPaymentRepository(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewGormPaymentRepository(db)
	ctx := context.Background()
	partnerID := uuid.New()

	full := newTestPayment(t, partnerID, "40", "2024-02-01")
	require.NoError(t, full.Reserve(decimal.NewFromInt(40), "x"))
	require.NoError(t, repo.Create(ctx, full))

	open := newTestPayment(t, partnerID, "60", "2024-02-02")
	require.NoError(t, repo.Create(ctx, open))

	t.Run("filters by allocation state", func(t *testing.T) {
		yes := true
		list, err := repo.FindAll(ctx, settlement.PaymentFilter{Filter: shared.DefaultFilter(), FullyAllocated: &yes})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, full.ID, list[0].ID)
		assert.True(t, list[0].UnallocatedAmount.IsZero())
	})

	t.Run("open payments have leftover", func(t *testing.T) {
		list, err := repo.FindOpenByPartner(ctx, partnerID, date("2024-12-31"))
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, open.ID, list[0].ID)
	})

	t.Run("saves reservation with version check", func(t *testing.T) {
		loaded, err := repo.FindByIDForUpdate(ctx, open.ID)
		require.NoError(t, err)
		require.NoError(t, loaded.Reserve(decimal.NewFromInt(60), "x"))
		require.NoError(t, repo.SaveWithLock(ctx, loaded))

		stored, err := repo.FindByID(ctx, open.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsFullyAllocated)
		assert.Equal(t, 2, stored.Version)

		loaded.Version = 2
		assert.ErrorIs(t, repo.SaveWithLock(ctx, loaded), shared.ErrConcurrentModification)
	})
}

func newTestAllocation(paymentID, invoiceID uuid.UUID, amount string, reversalOf *uuid.UUID) *settlement.Allocation {
	return &settlement.Allocation{
		ID:              uuid.New(),
		PaymentID:       paymentID,
		InvoiceID:       invoiceID,
		PartnerID:       uuid.New(),
		Currency:        valueobject.RUB,
		Amount:          decimal.RequireFromString(amount),
		BaseAmount:      decimal.RequireFromString(amount),
		Rate:            decimal.NewFromInt(1),
		RateDate:        date("2024-03-01"),
		TransactionDate: date("2024-03-01"),
		ReversalOf:      reversalOf,
		CreatedBy:       "tester",
		CreatedAt:       time.Now().UTC(),
	}
}

func TestGormAllocationRepository(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewGormAllocationRepository(db)
	ctx := context.Background()
	paymentID, invoiceID := uuid.New(), uuid.New()

	original := newTestAllocation(paymentID, invoiceID, "25.00", nil)
	require.NoError(t, repo.Create(ctx, original))

	t.Run("not reversed yet", func(t *testing.T) {
		rev, err := repo.FindReversalOf(ctx, original.ID)
		require.NoError(t, err)
		assert.Nil(t, rev)
	})

	reversal := newTestAllocation(paymentID, invoiceID, "-25.00", &original.ID)
	require.NoError(t, repo.Create(ctx, reversal))

	t.Run("finds the reversal", func(t *testing.T) {
		rev, err := repo.FindReversalOf(ctx, original.ID)
		require.NoError(t, err)
		require.NotNil(t, rev)
		assert.Equal(t, reversal.ID, rev.ID)
		assert.True(t, rev.Amount.Equal(decimal.RequireFromString("-25")))
		assert.True(t, rev.IsReversal())
	})

	t.Run("second reversal is rejected by the store", func(t *testing.T) {
		again := newTestAllocation(paymentID, invoiceID, "-25.00", &original.ID)
		err := repo.Create(ctx, again)
		assert.ErrorIs(t, err, settlement.ErrAllocationAlreadyReversed)
	})

	t.Run("lists by payment and invoice", func(t *testing.T) {
		byPayment, err := repo.FindByPayment(ctx, paymentID)
		require.NoError(t, err)
		assert.Len(t, byPayment, 2)

		byInvoice, err := repo.FindByInvoice(ctx, invoiceID)
		require.NoError(t, err)
		assert.Len(t, byInvoice, 2)

		none, err := repo.FindByInvoice(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func newTestEntry(t *testing.T, partnerID uuid.UUID, amount string, day string) *settlement.LedgerEntry {
	t.Helper()
	entry, err := settlement.NewLedgerEntry(settlement.LedgerEntryParams{
		PartnerID:       partnerID,
		Currency:        valueobject.RUB,
		Amount:          decimal.RequireFromString(amount),
		ReferenceType:   settlement.ReferenceTypeInvoice,
		ReferenceID:     uuid.New(),
		TransactionDate: date(day),
		Actor:           "tester",
	}, settlement.BaseRate(date(day)))
	require.NoError(t, err)
	return entry
}

func TestGormLedgerEntryRepository_Append(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewGormLedgerEntryRepository(db)
	ctx := context.Background()
	partnerID := uuid.New()

	first := newTestEntry(t, partnerID, "100", "2024-03-01")
	stored, inserted, err := repo.Append(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Positive(t, stored.Seq)

	t.Run("duplicate natural key is a no-op", func(t *testing.T) {
		dup := *first
		dup.ID = uuid.New()
		got, inserted, err := repo.Append(ctx, &dup)
		require.NoError(t, err)
		assert.False(t, inserted)
		assert.Equal(t, first.ID, got.ID)
		assert.Equal(t, stored.Seq, got.Seq)

		entries, err := repo.ListByPartner(ctx, partnerID, shared.DateRange{})
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestGormLedgerEntryRepository_ListByPartner(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewGormLedgerEntryRepository(db)
	ctx := context.Background()
	partnerID := uuid.New()

	// inserted out of date order
	late := newTestEntry(t, partnerID, "30", "2024-03-05")
	early1 := newTestEntry(t, partnerID, "10", "2024-03-01")
	early2 := newTestEntry(t, partnerID, "-5", "2024-03-01")
	other := newTestEntry(t, uuid.New(), "99", "2024-03-01")
	for _, e := range []*settlement.LedgerEntry{late, early1, early2, other} {
		_, _, err := repo.Append(ctx, e)
		require.NoError(t, err)
	}

	t.Run("orders by date then insertion", func(t *testing.T) {
		entries, err := repo.ListByPartner(ctx, partnerID, shared.DateRange{})
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, early1.ID, entries[0].ID)
		assert.Equal(t, early2.ID, entries[1].ID)
		assert.Equal(t, late.ID, entries[2].ID)
		assert.Less(t, entries[0].Seq, entries[1].Seq)
	})

	t.Run("applies the date range inclusively", func(t *testing.T) {
		entries, err := repo.ListByPartner(ctx, partnerID, shared.DateRange{From: date("2024-03-02"), To: date("2024-03-05")})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, late.ID, entries[0].ID)
	})
}

func TestGormExchangeRateRepository(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewGormExchangeRateRepository(db)
	ctx := context.Background()

	put := func(cur valueobject.Currency, day, rate string) bool {
		r, err := settlement.NewExchangeRate(cur, date(day), decimal.RequireFromString(rate), "test")
		require.NoError(t, err)
		written, err := repo.InsertIfAbsent(ctx, r)
		require.NoError(t, err)
		return written
	}

	assert.True(t, put(valueobject.USD, "2024-01-10", "89.50000000"))
	assert.True(t, put(valueobject.USD, "2024-01-12", "90.12345678"))
	assert.True(t, put(valueobject.EUR, "2024-01-12", "98.1"))

	t.Run("rows are write-once", func(t *testing.T) {
		assert.False(t, put(valueobject.USD, "2024-01-10", "1"))
		r, err := repo.FindExact(ctx, valueobject.USD, date("2024-01-10"))
		require.NoError(t, err)
		require.NotNil(t, r)
		assert.True(t, r.Rate.Equal(decimal.RequireFromString("89.5")))
	})

	t.Run("exact lookup misses gaps", func(t *testing.T) {
		r, err := repo.FindExact(ctx, valueobject.USD, date("2024-01-11"))
		require.NoError(t, err)
		assert.Nil(t, r)
	})

	t.Run("latest on or before falls back", func(t *testing.T) {
		r, err := repo.FindLatestOnOrBefore(ctx, valueobject.USD, date("2024-01-11"))
		require.NoError(t, err)
		require.NotNil(t, r)
		assert.Equal(t, "2024-01-10", valueobject.FormatBusinessDate(r.Date))

		r, err = repo.FindLatestOnOrBefore(ctx, valueobject.USD, date("2024-01-30"))
		require.NoError(t, err)
		require.NotNil(t, r)
		assert.True(t, r.Rate.Equal(decimal.RequireFromString("90.12345678")))

		r, err = repo.FindLatestOnOrBefore(ctx, valueobject.USD, date("2024-01-09"))
		require.NoError(t, err)
		assert.Nil(t, r)
	})

	t.Run("exists for date", func(t *testing.T) {
		ok, err := repo.ExistsForDate(ctx, date("2024-01-12"))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.ExistsForDate(ctx, date("2024-01-11"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("lists newest first", func(t *testing.T) {
		usd := valueobject.USD
		list, err := repo.FindAll(ctx, settlement.ExchangeRateFilter{Currency: &usd})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "2024-01-12", valueobject.FormatBusinessDate(list[0].Date))

		list, err = repo.FindAll(ctx, settlement.ExchangeRateFilter{
			Dates: shared.DateRange{From: date("2024-01-11")},
			Limit: 1,
		})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, valueobject.EUR, list[0].Currency)
	})
}

func TestGormReferenceData(t *testing.T) {
	db := setupSettlementTestDB(t)
	ctx := context.Background()

	partnerID, closedID := uuid.New(), uuid.New()
	require.NoError(t, db.Create(&models.PartnerModel{ID: partnerID, Name: "Acme Freight", IsActive: true, UpdatedAt: time.Now()}).Error)
	require.NoError(t, db.Create(&models.CurrencyModel{Code: "USD", Name: "US Dollar", IsActive: true}).Error)
	// IsActive defaults to true, so false rows are written with every column selected
	require.NoError(t, db.Select("*").Create(&models.PartnerModel{ID: closedID, Name: "Closed Lines", IsActive: false, UpdatedAt: time.Now()}).Error)
	require.NoError(t, db.Select("*").Create(&models.CurrencyModel{Code: "KZT", Name: "Tenge", IsActive: false}).Error)

	t.Run("partner directory", func(t *testing.T) {
		dir := NewGormPartnerDirectory(db)
		p, err := dir.Get(ctx, partnerID)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "Acme Freight", p.Name)
		assert.True(t, p.Active)

		closed, err := dir.Get(ctx, closedID)
		require.NoError(t, err)
		require.NotNil(t, closed)
		assert.False(t, closed.Active)

		missing, err := dir.Get(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("currency catalog", func(t *testing.T) {
		catalog := NewGormCurrencyCatalog(db)
		for cur, want := range map[valueobject.Currency]bool{
			valueobject.USD: true,
			valueobject.KZT: false,
			valueobject.CNY: false,
		} {
			active, err := catalog.IsActive(ctx, cur)
			require.NoError(t, err)
			assert.Equal(t, want, active, cur.String())
		}
	})
}

func TestGormRateSyncJobRepository(t *testing.T) {
	db := setupSettlementTestDB(t)
	repo := NewGormRateSyncJobRepository(db)
	ctx := context.Background()

	okID, err := repo.RecordStart(ctx, date("2024-05-02"), "cbr")
	require.NoError(t, err)
	require.NoError(t, repo.RecordSuccess(ctx, okID, 34))

	failedID, err := repo.RecordStart(ctx, date("2024-05-03"), "cbr")
	require.NoError(t, err)
	require.NoError(t, repo.RecordFailure(ctx, failedID, assert.AnError))

	jobs, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	byID := map[uuid.UUID]models.RateSyncJobModel{}
	for _, j := range jobs {
		byID[j.ID] = j
	}
	assert.Equal(t, models.RateSyncJobSucceeded, byID[okID].Status)
	assert.Equal(t, 34, byID[okID].RatesWritten)
	assert.NotNil(t, byID[okID].CompletedAt)
	assert.Equal(t, models.RateSyncJobFailed, byID[failedID].Status)
	assert.Equal(t, assert.AnError.Error(), byID[failedID].Error)
}
