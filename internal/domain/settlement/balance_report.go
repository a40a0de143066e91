package settlement

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// BalanceRow is one currency's position for a partner
type BalanceRow struct {
	Currency        valueobject.Currency
	Leftover        decimal.Decimal // unallocated payments
	Unpaid          decimal.Decimal // outstanding on invoices with nothing paid
	PartiallyPaid   decimal.Decimal // outstanding on invoices with something paid
	Outstanding     decimal.Decimal // Unpaid + PartiallyPaid
	Overdue         decimal.Decimal // part of Outstanding past due date
	Rate            decimal.Decimal
	RateDate        time.Time
	LeftoverBase    decimal.Decimal
	OutstandingBase decimal.Decimal
	OverdueBase     decimal.Decimal
}

// BalanceReport is a partner's per-currency position converted to the base currency
type BalanceReport struct {
	PartnerID            uuid.UUID
	AsOf                 time.Time
	BaseCurrency         valueobject.Currency
	Rows                 []BalanceRow
	TotalLeftoverBase    decimal.Decimal
	TotalOutstandingBase decimal.Decimal
	TotalOverdueBase     decimal.Decimal
	GeneratedAt          time.Time
}

// Consistent checks that each row's outstanding is unpaid + partiallyPaid
// and that the totals are the sums of the rows.
func (r *BalanceReport) Consistent() bool {
	leftover, outstanding := decimal.Zero, decimal.Zero
	for _, row := range r.Rows {
		if !row.Outstanding.Equal(row.Unpaid.Add(row.PartiallyPaid)) {
			return false
		}
		leftover = leftover.Add(row.LeftoverBase)
		outstanding = outstanding.Add(row.OutstandingBase)
	}
	return leftover.Equal(r.TotalLeftoverBase) && outstanding.Equal(r.TotalOutstandingBase)
}

// RateSource resolves the rate used to convert a currency on a date
type RateSource interface {
	Resolve(ctx context.Context, currency valueobject.Currency, date time.Time) (AppliedRate, error)
}

// BuildBalanceReport aggregates open invoices and payments of one partner
// into a report as of asOf. Documents dated after asOf are ignored. A
// currency gets a row only if it has a non-zero leftover or outstanding.
// If any row's rate cannot be resolved the whole report fails.
func BuildBalanceReport(ctx context.Context, partnerID uuid.UUID, asOf time.Time, invoices []Invoice, payments []Payment, rates RateSource) (*BalanceReport, error) {
	day := valueobject.BusinessDate(asOf)
	rows := make(map[valueobject.Currency]*BalanceRow)
	row := func(c valueobject.Currency) *BalanceRow {
		r, ok := rows[c]
		if !ok {
			r = &BalanceRow{
				Currency:      c,
				Leftover:      decimal.Zero,
				Unpaid:        decimal.Zero,
				PartiallyPaid: decimal.Zero,
				Overdue:       decimal.Zero,
			}
			rows[c] = r
		}
		return r
	}

	for i := range invoices {
		inv := &invoices[i]
		if inv.PartnerID != partnerID || inv.IssueDate.After(day) || !inv.OutstandingBalance.IsPositive() {
			continue
		}
		r := row(inv.Currency)
		if inv.IsUnpaid() {
			r.Unpaid = r.Unpaid.Add(inv.OutstandingBalance)
		} else {
			r.PartiallyPaid = r.PartiallyPaid.Add(inv.OutstandingBalance)
		}
		if inv.IsOverdue(day) {
			r.Overdue = r.Overdue.Add(inv.OutstandingBalance)
		}
	}
	for i := range payments {
		p := &payments[i]
		if p.PartnerID != partnerID || p.PaymentDate.After(day) || !p.UnallocatedAmount.IsPositive() {
			continue
		}
		r := row(p.Currency)
		r.Leftover = r.Leftover.Add(p.UnallocatedAmount)
	}

	report := &BalanceReport{
		PartnerID:            partnerID,
		AsOf:                 day,
		BaseCurrency:         valueobject.BaseCurrency,
		Rows:                 make([]BalanceRow, 0, len(rows)),
		TotalLeftoverBase:    decimal.Zero,
		TotalOutstandingBase: decimal.Zero,
		TotalOverdueBase:     decimal.Zero,
		GeneratedAt:          time.Now().UTC(),
	}

	// currency order keeps rows and the first missing-rate error deterministic
	for _, c := range slices.Sorted(maps.Keys(rows)) {
		r := rows[c]
		rate, err := rates.Resolve(ctx, c, day)
		if err != nil {
			return nil, err
		}
		r.Outstanding = r.Unpaid.Add(r.PartiallyPaid)
		r.Rate = rate.Rate
		r.RateDate = rate.EffectiveDate
		r.LeftoverBase = rate.Convert(r.Leftover)
		r.OutstandingBase = rate.Convert(r.Outstanding)
		r.OverdueBase = rate.Convert(r.Overdue)

		report.Rows = append(report.Rows, *r)
		report.TotalLeftoverBase = report.TotalLeftoverBase.Add(r.LeftoverBase)
		report.TotalOutstandingBase = report.TotalOutstandingBase.Add(r.OutstandingBase)
		report.TotalOverdueBase = report.TotalOverdueBase.Add(r.OverdueBase)
	}
	return report, nil
}
