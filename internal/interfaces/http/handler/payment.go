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

// PaymentService is the part of the payment ledger the API exposes
type PaymentService interface {
	RecordPayment(ctx context.Context, actor string, req appsettlement.RecordPaymentRequest) (*appsettlement.PaymentResponse, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*appsettlement.PaymentResponse, error)
	ListPayments(ctx context.Context, f appsettlement.PaymentListFilter) (*shared.Paginated[appsettlement.PaymentResponse], error)
}

// PaymentHandler handles payment endpoints
type PaymentHandler struct {
	BaseHandler
	payments PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/payments")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
}

// Create godoc
// @ID           createPayment
// @Summary      Record a payment
// @Description  Records an incoming or outgoing payment. Processing fees are deducted from or added to the amount per the configured fee policy.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body dto.CreatePaymentRequest true "Payment"
// @Success      201 {object} dto.Response{data=appsettlement.PaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	paymentDate, ok := h.date(c, "payment_date", req.PaymentDate)
	if !ok {
		return
	}

	pay, err := h.payments.RecordPayment(c.Request.Context(), middleware.GetActor(c), appsettlement.RecordPaymentRequest{
		Number:      req.Number,
		Direction:   req.Direction,
		PartnerID:   uuid.MustParse(req.PartnerID),
		Currency:    req.Currency,
		Amount:      req.Amount,
		Fees:        req.Fees,
		PaymentDate: paymentDate,
		Reference:   req.Reference,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, pay)
}

// Get godoc
// @ID           getPayment
// @Summary      Get a payment
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} dto.Response{data=appsettlement.PaymentResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	pay, err := h.payments.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, pay)
}

// List godoc
// @ID           listPayments
// @Summary      List payments
// @Tags         payments
// @Produce      json
// @Param        partner_id query string false "Partner ID" format(uuid)
// @Param        direction query string false "Direction" Enums(INCOMING, OUTGOING)
// @Param        currency query string false "Currency code"
// @Param        fully_allocated query bool false "Only fully or only partially allocated payments"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]appsettlement.PaymentResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	var q dto.PaymentListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	page, err := h.payments.ListPayments(c.Request.Context(), appsettlement.PaymentListFilter{
		PartnerID:      optionalUUID(q.PartnerID),
		Direction:      q.Direction,
		Currency:       q.Currency,
		FullyAllocated: q.FullyAllocated,
		Page:           q.Page,
		PageSize:       q.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPageResponse(page))
}
