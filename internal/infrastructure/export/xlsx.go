package export

import (
	"bytes"
	"fmt"

	appsettlement "github.com/logistics/settlement/internal/application/settlement"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Summary"
	balancesSheet = "Balances"

	moneyFormat = "#,##0.00"
	rateFormat  = "0.00000000"
)

// BalanceReportXLSX renders a workbook with a summary sheet and one balance
// row per currency. Amounts are numeric cells.
func BalanceReportXLSX(report *appsettlement.BalanceReportResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(balancesSheet); err != nil {
		return nil, err
	}

	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(moneyFormat)})
	if err != nil {
		return nil, err
	}
	rate, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(rateFormat)})
	if err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	w := &sheetWriter{f: f}

	summary := [][]any{
		{"Balance report"},
		{},
		{"Partner", report.PartnerName},
		{"Partner ID", report.PartnerID.String()},
		{"As of", report.AsOf},
		{"Base currency", report.BaseCurrency},
		{"Total leftover (base)", number(report.TotalLeftoverBase)},
		{"Total outstanding (base)", number(report.TotalOutstandingBase)},
		{"Total overdue (base)", number(report.TotalOverdueBase)},
		{"Generated at", report.GeneratedAt.UTC().Format("2006-01-02 15:04:05 MST")},
	}
	for i, row := range summary {
		w.row(summarySheet, i+1, row)
	}
	w.style(summarySheet, "A1", "A1", bold)
	w.style(summarySheet, "B7", "B9", money)
	w.width(summarySheet, "A", "A", 26)
	w.width(summarySheet, "B", "B", 40)

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	w.row(balancesSheet, 1, header)
	w.style(balancesSheet, "A1", "K1", bold)

	for i, r := range report.Rows {
		w.row(balancesSheet, i+2, []any{
			r.Currency,
			number(r.Leftover),
			number(r.Unpaid),
			number(r.PartiallyPaid),
			number(r.Outstanding),
			number(r.Overdue),
			number(r.Rate),
			r.RateDate,
			number(r.LeftoverBase),
			number(r.OutstandingBase),
			number(r.OverdueBase),
		})
	}
	if last := len(report.Rows) + 1; last > 1 {
		w.style(balancesSheet, "B2", fmt.Sprintf("F%d", last), money)
		w.style(balancesSheet, "G2", fmt.Sprintf("G%d", last), rate)
		w.style(balancesSheet, "I2", fmt.Sprintf("K%d", last), money)
	}
	w.width(balancesSheet, "A", "K", 16)
	if err := w.err; err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter keeps the first excelize error
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (w *sheetWriter) row(sheet string, n int, values []any) {
	if w.err != nil || len(values) == 0 {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(sheet, cell, &values)
}

func (w *sheetWriter) style(sheet, from, to string, style int) {
	if w.err == nil {
		w.err = w.f.SetCellStyle(sheet, from, to, style)
	}
}

func (w *sheetWriter) width(sheet, from, to string, width float64) {
	if w.err == nil {
		w.err = w.f.SetColWidth(sheet, from, to, width)
	}
}

// number converts to float64 for a numeric cell; amounts carry at most
// eight fractional digits so the display format hides the rounding
func number(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func strPtr(s string) *string { return &s }
