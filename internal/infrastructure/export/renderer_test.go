package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	appsettlement "github.com/logistics/settlement/internal/application/settlement"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleReport() *appsettlement.BalanceReportResponse {
	return &appsettlement.BalanceReportResponse{
		PartnerID:    uuid.MustParse("6f1c1a52-2b8e-4c39-9d55-0a4fbb1f9e10"),
		PartnerName:  "ООО Северный путь",
		AsOf:         "2025-01-10",
		BaseCurrency: "RUB",
		Rows: []appsettlement.BalanceRowResponse{
			{
				Currency:        "USD",
				Leftover:        d("50.00"),
				Unpaid:          d("1000.00"),
				PartiallyPaid:   d("250.00"),
				Outstanding:     d("1250.00"),
				Overdue:         d("1000.00"),
				Rate:            d("101.6797"),
				RateDate:        "2025-01-10",
				LeftoverBase:    d("5083.99"),
				OutstandingBase: d("127099.63"),
				OverdueBase:     d("101679.70"),
			},
		},
		TotalLeftoverBase:    d("5083.99"),
		TotalOutstandingBase: d("127099.63"),
		TotalOverdueBase:     d("101679.70"),
		GeneratedAt:          time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestRenderer_XLSX(t *testing.T) {
	data, contentType, err := NewRenderer().Render(sampleReport(), appsettlement.ReportFormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, ContentTypeXLSX, contentType)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{summarySheet, balancesSheet}, f.GetSheetList())

	partner, err := f.GetCellValue(summarySheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "ООО Северный путь", partner)

	rows, err := f.GetRows(balancesSheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, columns, rows[0])
	assert.Equal(t, "USD", rows[1][0])
	assert.Equal(t, "1250", rows[1][4])
	assert.Equal(t, "101.6797", rows[1][6])
	assert.Equal(t, "2025-01-10", rows[1][7])
}

func TestRenderer_XLSX_NoRows(t *testing.T) {
	report := sampleReport()
	report.Rows = nil

	data, err := BalanceReportXLSX(report)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(balancesSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRenderer_PDF(t *testing.T) {
	data, contentType, err := NewRenderer().Render(sampleReport(), appsettlement.ReportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, ContentTypePDF, contentType)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.True(t, bytes.Contains(data, []byte("%%EOF")))
}

func TestRenderer_Errors(t *testing.T) {
	r := NewRenderer()

	_, _, err := r.Render(nil, appsettlement.ReportFormatPDF)
	assert.Error(t, err)

	_, _, err = r.Render(sampleReport(), appsettlement.ReportFormatJSON)
	assert.Error(t, err)
}

func TestMoney(t *testing.T) {
	for in, want := range map[string]string{
		"0.00":        "0.00",
		"999.99":      "999.99",
		"1000.00":     "1 000.00",
		"127099.63":   "127 099.63",
		"-1234567.10": "-1 234 567.10",
		"42":          "42",
	} {
		assert.Equal(t, want, money(in), in)
	}
}
