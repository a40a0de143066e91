package settlement

import (
	"testing"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLedgerEntry(t *testing.T) {
	params := LedgerEntryParams{
		PartnerID:       uuid.New(),
		Currency:        valueobject.RUB,
		Amount:          dec("150.00"),
		ReferenceType:   ReferenceTypeInvoice,
		ReferenceID:     uuid.New(),
		TransactionDate: testDate,
	}

	e, err := NewLedgerEntry(params, BaseRate(testDate))
	require.NoError(t, err)
	assert.Equal(t, "System", e.CreatedBy)
	assert.True(t, e.BaseAmount.Equal(dec("150")))

	t.Run("natural key ignores identity and actor", func(t *testing.T) {
		params.Actor = "someone else"
		again, err := NewLedgerEntry(params, BaseRate(testDate))
		require.NoError(t, err)
		assert.NotEqual(t, e.ID, again.ID)
		assert.Equal(t, e.NaturalKey(), again.NaturalKey())
	})

	t.Run("rejects zero amount and unknown reference", func(t *testing.T) {
		p := params
		p.Amount = decimal.Zero
		_, err := NewLedgerEntry(p, BaseRate(testDate))
		assert.Error(t, err)

		p = params
		p.ReferenceType = "JOURNAL"
		_, err = NewLedgerEntry(p, BaseRate(testDate))
		assert.Error(t, err)
	})
}

func TestSortLedgerEntries(t *testing.T) {
	entries := []LedgerEntry{
		{Seq: 3, TransactionDate: testDate},
		{Seq: 1, TransactionDate: testDate.AddDate(0, 0, 1)},
		{Seq: 2, TransactionDate: testDate},
	}
	SortLedgerEntries(entries)
	assert.Equal(t, []int64{2, 3, 1}, []int64{entries[0].Seq, entries[1].Seq, entries[2].Seq})
}

func TestRecomputeTotals(t *testing.T) {
	partnerID := uuid.New()
	allocator := NewAllocator(DefaultAllocationPolicy())
	inv := createTestInvoice(t, partnerID, valueobject.RUB, "1000.00")
	payA := createTestPayment(t, partnerID, valueobject.RUB, "600.00")
	payB := createTestPayment(t, partnerID, valueobject.RUB, "500.00")

	var entries []LedgerEntry
	add := func(e *LedgerEntry, err error) {
		require.NoError(t, err)
		entries = append(entries, *e)
	}
	add(IssuanceEntry(inv, BaseRate(testDate)))
	add(ReceiptEntry(payA, BaseRate(testDate)))
	add(ReceiptEntry(payB, BaseRate(testDate)))

	postA, err := allocator.Post(payA, inv, dec("600"), BaseRate(testDate), testDate, "")
	require.NoError(t, err)
	entries = append(entries, *postA.Entry)
	postB, err := allocator.Post(payB, inv, dec("400"), BaseRate(testDate), testDate.AddDate(0, 0, 1), "")
	require.NoError(t, err)
	entries = append(entries, *postB.Entry)

	t.Run("log reproduces ledger state", func(t *testing.T) {
		totals := RecomputeTotals(entries, testDate.AddDate(0, 0, 1))[valueobject.RUB]
		assert.True(t, totals.Outstanding().Equal(inv.OutstandingBalance))
		assert.True(t, totals.Leftover().Equal(payA.UnallocatedAmount.Add(payB.UnallocatedAmount)))
		assert.Equal(t, "1100.00", totals.Paid.StringFixed(2))
		// 1000 invoiced, 1100 received, 1000 allocated
		assert.Equal(t, "900.00", totals.Net.StringFixed(2))
	})

	t.Run("cutoff excludes later entries", func(t *testing.T) {
		totals := RecomputeTotals(entries, testDate)[valueobject.RUB]
		assert.True(t, totals.Outstanding().Equal(dec("400")))
		assert.True(t, totals.Leftover().Equal(dec("500")))
	})
}
