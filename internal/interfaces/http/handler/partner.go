package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appsettlement "github.com/logistics/settlement/internal/application/settlement"
	"github.com/logistics/settlement/internal/interfaces/http/dto"
	"github.com/logistics/settlement/internal/interfaces/http/middleware"
)

// HeaderArchiveKey carries the object key of an archived report export
const HeaderArchiveKey = "X-Archive-Key"

// LedgerReader reads a partner's ledger entries and recomputed totals
type LedgerReader interface {
	ListByPartner(ctx context.Context, partnerID uuid.UUID, from, to time.Time) ([]appsettlement.LedgerEntryResponse, error)
	Recompute(ctx context.Context, partnerID uuid.UUID, currency string, asOf time.Time) (*appsettlement.LedgerTotalsResponse, error)
}

// ReportBuilder builds and exports balance reports
type ReportBuilder interface {
	BuildReport(ctx context.Context, partnerID uuid.UUID, asOf time.Time) (*appsettlement.BalanceReportResponse, error)
	ExportReport(ctx context.Context, partnerID uuid.UUID, asOf time.Time, format appsettlement.ReportFormat) (*appsettlement.ExportedReport, error)
}

// PartnerHandler serves the partner-scoped ledger and balance views
type PartnerHandler struct {
	BaseHandler
	ledger  LedgerReader
	reports ReportBuilder
}

// NewPartnerHandler creates a new PartnerHandler
func NewPartnerHandler(ledger LedgerReader, reports ReportBuilder) *PartnerHandler {
	return &PartnerHandler{ledger: ledger, reports: reports}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *PartnerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/partners/:id")
	g.GET("/ledger", h.Ledger)
	g.GET("/ledger/totals", h.LedgerTotals)
	g.GET("/balance", h.Balance)
}

// Ledger godoc
// @ID           listPartnerLedger
// @Summary      List a partner's ledger entries
// @Description  Returns the partner's entries in posting order, optionally bounded by transaction date
// @Tags         partners
// @Produce      json
// @Param        id path string true "Partner ID" format(uuid)
// @Param        from query string false "First transaction date (YYYY-MM-DD)"
// @Param        to query string false "Last transaction date (YYYY-MM-DD)"
// @Success      200 {object} dto.Response{data=[]appsettlement.LedgerEntryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /partners/{id}/ledger [get]
func (h *PartnerHandler) Ledger(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var q dto.LedgerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	from, ok := h.date(c, "from", q.From)
	if !ok {
		return
	}
	to, ok := h.date(c, "to", q.To)
	if !ok {
		return
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Invalid date range", middleware.GetRequestID(c),
			[]dto.ValidationDetail{{Field: "to", Message: "Must not be before from"}}))
		return
	}

	entries, err := h.ledger.ListByPartner(c.Request.Context(), id, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if entries == nil {
		entries = []appsettlement.LedgerEntryResponse{}
	}
	h.Success(c, entries)
}

// LedgerTotals godoc
// @ID           recomputePartnerLedger
// @Summary      Recompute a partner's balance in one currency from the ledger
// @Description  Sums the partner's ledger entries in the currency without reading the invoice or payment ledgers
// @Tags         partners
// @Produce      json
// @Param        id path string true "Partner ID" format(uuid)
// @Param        currency query string true "Currency code"
// @Param        as_of query string false "As-of date (YYYY-MM-DD), today when omitted"
// @Success      200 {object} dto.Response{data=appsettlement.LedgerTotalsResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /partners/{id}/ledger/totals [get]
func (h *PartnerHandler) LedgerTotals(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var q dto.LedgerTotalsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	asOf, ok := h.date(c, "as_of", q.AsOf)
	if !ok {
		return
	}
	totals, err := h.ledger.Recompute(c.Request.Context(), id, q.Currency, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, totals)
}

// Balance godoc
// @ID           getPartnerBalance
// @Summary      Partner balance report
// @Description  Builds the per-currency balance report with base-currency totals. format=xlsx or format=pdf downloads the rendered document instead of JSON.
// @Tags         partners
// @Produce      json
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce      application/pdf
// @Param        id path string true "Partner ID" format(uuid)
// @Param        as_of query string false "As-of date (YYYY-MM-DD), today when omitted"
// @Param        format query string false "Output format" Enums(json, xlsx, pdf) default(json)
// @Success      200 {object} dto.Response{data=appsettlement.BalanceReportResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /partners/{id}/balance [get]
func (h *PartnerHandler) Balance(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var q dto.BalanceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	asOf, ok := h.date(c, "as_of", q.AsOf)
	if !ok {
		return
	}
	format, err := appsettlement.ParseReportFormat(q.Format)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if format == appsettlement.ReportFormatJSON {
		report, err := h.reports.BuildReport(c.Request.Context(), id, asOf)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, report)
		return
	}

	doc, err := h.reports.ExportReport(c.Request.Context(), id, asOf, format)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	if doc.ArchiveKey != "" {
		c.Header(HeaderArchiveKey, doc.ArchiveKey)
	}
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}
