package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appsettlement "github.com/logistics/settlement/internal/application/settlement"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/interfaces/http/dto"
	"github.com/logistics/settlement/internal/interfaces/http/middleware"
)

// InvoiceService is the part of the invoice ledger the API exposes
type InvoiceService interface {
	RecordInvoice(ctx context.Context, actor string, req appsettlement.RecordInvoiceRequest) (*appsettlement.InvoiceResponse, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*appsettlement.InvoiceResponse, error)
	ListInvoices(ctx context.Context, f appsettlement.InvoiceListFilter) (*shared.Paginated[appsettlement.InvoiceResponse], error)
}

// InvoiceHandler handles invoice endpoints
type InvoiceHandler struct {
	BaseHandler
	invoices InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoices InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/invoices")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
}

// Create godoc
// @ID           createInvoice
// @Summary      Issue an invoice
// @Description  Records a receivable or payable invoice and its opening ledger entry
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateInvoiceRequest true "Invoice"
// @Success      201 {object} dto.Response{data=appsettlement.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	issueDate, ok := h.date(c, "issue_date", req.IssueDate)
	if !ok {
		return
	}
	dueDate, ok := h.date(c, "due_date", req.DueDate)
	if !ok {
		return
	}

	inv, err := h.invoices.RecordInvoice(c.Request.Context(), middleware.GetActor(c), appsettlement.RecordInvoiceRequest{
		Number:      req.Number,
		Direction:   req.Direction,
		PartnerID:   uuid.MustParse(req.PartnerID),
		Currency:    req.Currency,
		Amount:      req.Amount,
		IssueDate:   issueDate,
		DueDate:     dueDate,
		Description: req.Description,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, inv)
}

// Get godoc
// @ID           getInvoice
// @Summary      Get an invoice
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=appsettlement.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	inv, err := h.invoices.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// List godoc
// @ID           listInvoices
// @Summary      List invoices
// @Description  Lists invoices newest first, filtered by partner, status, direction and currency
// @Tags         invoices
// @Produce      json
// @Param        partner_id query string false "Partner ID" format(uuid)
// @Param        status query string false "Status" Enums(OPEN, PARTIALLY_PAID, CLOSED)
// @Param        direction query string false "Direction" Enums(RECEIVABLE, PAYABLE)
// @Param        currency query string false "Currency code"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]appsettlement.InvoiceResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	var q dto.InvoiceListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	page, err := h.invoices.ListInvoices(c.Request.Context(), appsettlement.InvoiceListFilter{
		PartnerID: optionalUUID(q.PartnerID),
		Status:    q.Status,
		Direction: q.Direction,
		Currency:  q.Currency,
		Page:      q.Page,
		PageSize:  q.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPageResponse(page))
}

func optionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id := uuid.MustParse(s)
	return &id
}
