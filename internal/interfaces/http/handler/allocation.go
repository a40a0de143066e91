package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appsettlement "github.com/logistics/settlement/internal/application/settlement"
	"github.com/logistics/settlement/internal/interfaces/http/dto"
	"github.com/logistics/settlement/internal/interfaces/http/middleware"
)

// AllocationService is the part of the allocation engine the API exposes
type AllocationService interface {
	Allocate(ctx context.Context, actor string, req appsettlement.AllocateRequest) (*appsettlement.AllocationResult, error)
	ReverseAllocation(ctx context.Context, actor string, id uuid.UUID, date time.Time) (*appsettlement.AllocationResult, error)
	GetAllocation(ctx context.Context, id uuid.UUID) (*appsettlement.AllocationResponse, error)
	ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]appsettlement.AllocationResponse, error)
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]appsettlement.AllocationResponse, error)
}

// AllocationHandler handles allocation endpoints
type AllocationHandler struct {
	BaseHandler
	allocations AllocationService
}

// NewAllocationHandler creates a new AllocationHandler
func NewAllocationHandler(allocations AllocationService) *AllocationHandler {
	return &AllocationHandler{allocations: allocations}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *AllocationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/allocations")
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.POST("/:id/reverse", h.Reverse)

	rg.GET("/payments/:id/allocations", h.ListByPayment)
	rg.GET("/invoices/:id/allocations", h.ListByInvoice)
}

// Create godoc
// @ID           allocatePayment
// @Summary      Allocate a payment to an invoice
// @Description  Applies part of a payment's unallocated amount to an invoice's outstanding balance at the day's exchange rate
// @Tags         allocations
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateAllocationRequest true "Allocation"
// @Success      201 {object} dto.Response{data=appsettlement.AllocationResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /allocations [post]
func (h *AllocationHandler) Create(c *gin.Context) {
	var req dto.CreateAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	date, ok := h.date(c, "transaction_date", req.TransactionDate)
	if !ok {
		return
	}

	result, err := h.allocations.Allocate(c.Request.Context(), middleware.GetActor(c), appsettlement.AllocateRequest{
		PaymentID:       uuid.MustParse(req.PaymentID),
		InvoiceID:       uuid.MustParse(req.InvoiceID),
		Amount:          req.Amount,
		TransactionDate: date,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Get godoc
// @ID           getAllocation
// @Summary      Get an allocation
// @Tags         allocations
// @Produce      json
// @Param        id path string true "Allocation ID" format(uuid)
// @Success      200 {object} dto.Response{data=appsettlement.AllocationResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /allocations/{id} [get]
func (h *AllocationHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	a, err := h.allocations.GetAllocation(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, a)
}

// Reverse godoc
// @ID           reverseAllocation
// @Summary      Reverse an allocation
// @Description  Posts a compensating allocation that restores both documents. An allocation can be reversed once.
// @Tags         allocations
// @Accept       json
// @Produce      json
// @Param        id path string true "Allocation ID" format(uuid)
// @Param        request body dto.ReverseAllocationRequest false "Reversal date"
// @Success      201 {object} dto.Response{data=appsettlement.AllocationResult}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /allocations/{id}/reverse [post]
func (h *AllocationHandler) Reverse(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req dto.ReverseAllocationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}
	date, ok := h.date(c, "transaction_date", req.TransactionDate)
	if !ok {
		return
	}

	result, err := h.allocations.ReverseAllocation(c.Request.Context(), middleware.GetActor(c), id, date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// ListByPayment godoc
// @ID           listPaymentAllocations
// @Summary      List a payment's allocations
// @Tags         allocations
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]appsettlement.AllocationResponse}
// @Router       /payments/{id}/allocations [get]
func (h *AllocationHandler) ListByPayment(c *gin.Context) {
	h.list(c, h.allocations.ListByPayment)
}

// ListByInvoice godoc
// @ID           listInvoiceAllocations
// @Summary      List an invoice's allocations
// @Tags         allocations
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]appsettlement.AllocationResponse}
// @Router       /invoices/{id}/allocations [get]
func (h *AllocationHandler) ListByInvoice(c *gin.Context) {
	h.list(c, h.allocations.ListByInvoice)
}

func (h *AllocationHandler) list(c *gin.Context, fn func(context.Context, uuid.UUID) ([]appsettlement.AllocationResponse, error)) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	items, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if items == nil {
		items = []appsettlement.AllocationResponse{}
	}
	h.Success(c, items)
}
