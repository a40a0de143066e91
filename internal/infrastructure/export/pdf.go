package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	appsettlement "github.com/logistics/settlement/internal/application/settlement"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
)

var pdfColumnWidths = []float64{18, 24, 24, 24, 24, 24, 24, 22, 28, 30, 28}

// BalanceReportPDF renders a landscape A4 document with the summary and the
// per-currency balance table. The core fonts only cover cp1252; other
// characters in partner names are replaced.
func BalanceReportPDF(report *appsettlement.BalanceReportResponse) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Balance report "+report.AsOf, true)
	pdf.SetCreator("settlement", true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, "Balance report")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	for _, line := range []string{
		"Partner: " + tr(report.PartnerName),
		"Partner ID: " + report.PartnerID.String(),
		"As of: " + report.AsOf,
		"Generated: " + report.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"),
	} {
		pdf.Cell(0, 6, line)
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 8)
	for i, c := range columns {
		pdf.CellFormat(pdfColumnWidths[i], 6, c, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, r := range report.Rows {
		cells := []string{
			r.Currency,
			money(r.Leftover.StringFixed(valueobject.MoneyScale)),
			money(r.Unpaid.StringFixed(valueobject.MoneyScale)),
			money(r.PartiallyPaid.StringFixed(valueobject.MoneyScale)),
			money(r.Outstanding.StringFixed(valueobject.MoneyScale)),
			money(r.Overdue.StringFixed(valueobject.MoneyScale)),
			r.Rate.String(),
			r.RateDate,
			money(r.LeftoverBase.StringFixed(valueobject.MoneyScale)),
			money(r.OutstandingBase.StringFixed(valueobject.MoneyScale)),
			money(r.OverdueBase.StringFixed(valueobject.MoneyScale)),
		}
		for i, v := range cells {
			align := "R"
			if i == 0 || i == 7 {
				align = "C"
			}
			pdf.CellFormat(pdfColumnWidths[i], 6, v, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	for _, line := range [][2]string{
		{"Total leftover", report.TotalLeftoverBase.StringFixed(valueobject.MoneyScale)},
		{"Total outstanding", report.TotalOutstandingBase.StringFixed(valueobject.MoneyScale)},
		{"Total overdue", report.TotalOverdueBase.StringFixed(valueobject.MoneyScale)},
	} {
		pdf.Cell(0, 6, fmt.Sprintf("%s (%s): %s", line[0], report.BaseCurrency, money(line[1])))
		pdf.Ln(5)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// money groups the integer part of a fixed-point amount in thousands
func money(s string) string {
	sign := ""
	if len(s) > 0 && s[0] == '-' {
		sign, s = "-", s[1:]
	}
	intPart, frac, ok := strings.Cut(s, ".")
	if ok {
		frac = "." + frac
	}
	var b strings.Builder
	for i := range len(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(intPart[i])
	}
	return sign + b.String() + frac
}
