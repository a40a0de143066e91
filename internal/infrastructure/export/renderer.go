// Package export renders balance reports as XLSX workbooks and PDF documents.
package export

import (
	"fmt"

	appsettlement "github.com/logistics/settlement/internal/application/settlement"
)

// Content types of rendered documents
const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"
)

var _ appsettlement.ReportRenderer = (*Renderer)(nil)

// Renderer implements appsettlement.ReportRenderer for XLSX and PDF
type Renderer struct{}

// NewRenderer creates a Renderer
func NewRenderer() *Renderer { return &Renderer{} }

// Render implements appsettlement.ReportRenderer
func (r *Renderer) Render(report *appsettlement.BalanceReportResponse, format appsettlement.ReportFormat) ([]byte, string, error) {
	if report == nil {
		return nil, "", fmt.Errorf("export: nil report")
	}
	switch format {
	case appsettlement.ReportFormatXLSX:
		data, err := BalanceReportXLSX(report)
		return data, ContentTypeXLSX, err
	case appsettlement.ReportFormatPDF:
		data, err := BalanceReportPDF(report)
		return data, ContentTypePDF, err
	}
	return nil, "", fmt.Errorf("export: unsupported format %q", format)
}

var columns = []string{
	"Currency", "Leftover", "Unpaid", "Partially paid", "Outstanding", "Overdue",
	"Rate", "Rate date", "Leftover (base)", "Outstanding (base)", "Overdue (base)",
}
