package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	appsettlement "github.com/logistics/settlement/internal/application/settlement"
	"github.com/logistics/settlement/internal/infrastructure/logger"
	"github.com/logistics/settlement/internal/infrastructure/scheduler"
	"github.com/logistics/settlement/internal/interfaces/http/dto"
	"github.com/logistics/settlement/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// RateQuerier answers exchange rate lookups
type RateQuerier interface {
	GetRate(ctx context.Context, currency string, date time.Time) (*appsettlement.ExchangeRateResponse, error)
	ListRates(ctx context.Context, currency string, from, to time.Time, limit int) ([]appsettlement.ExchangeRateResponse, error)
}

// RateSyncTrigger starts manual synchronizations and reports scheduler state
type RateSyncTrigger interface {
	TriggerNow(ctx context.Context, date time.Time) (*appsettlement.SyncResult, error)
	Status() scheduler.RateSyncStatus
}

// ExchangeRateHandler handles exchange rate endpoints
type ExchangeRateHandler struct {
	BaseHandler
	rates   RateQuerier
	sync    RateSyncTrigger
	limiter *middleware.RateLimiter
}

// NewExchangeRateHandler creates a new ExchangeRateHandler. sync may be nil,
// in which case the sync endpoints are not registered. limiter throttles
// manual sync triggers and may also be nil.
func NewExchangeRateHandler(rates RateQuerier, sync RateSyncTrigger, limiter *middleware.RateLimiter) *ExchangeRateHandler {
	return &ExchangeRateHandler{rates: rates, sync: sync, limiter: limiter}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *ExchangeRateHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/exchange-rates")
	g.GET("", h.Get)
	g.GET("/history", h.History)
	if h.sync == nil {
		return
	}
	if h.limiter != nil {
		g.POST("/sync", middleware.RateLimit(h.limiter), h.Sync)
	} else {
		g.POST("/sync", h.Sync)
	}
	g.GET("/sync/status", h.SyncStatus)
}

// Get godoc
// @ID           getExchangeRate
// @Summary      Resolve an exchange rate
// @Description  Returns the rate for converting currency into the base currency on date, falling back to the most recent earlier rate when allowed
// @Tags         exchange-rates
// @Produce      json
// @Param        currency query string true "Currency code"
// @Param        date query string false "Date (YYYY-MM-DD), today when omitted"
// @Success      200 {object} dto.Response{data=appsettlement.ExchangeRateResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /exchange-rates [get]
func (h *ExchangeRateHandler) Get(c *gin.Context) {
	var q dto.RateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	date, ok := h.date(c, "date", q.Date)
	if !ok {
		return
	}
	rate, err := h.rates.GetRate(c.Request.Context(), q.Currency, date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rate)
}

// History godoc
// @ID           listExchangeRates
// @Summary      List stored exchange rates
// @Tags         exchange-rates
// @Produce      json
// @Param        currency query string false "Currency code"
// @Param        from query string false "First date (YYYY-MM-DD)"
// @Param        to query string false "Last date (YYYY-MM-DD)"
// @Param        limit query int false "Maximum rows" default(100)
// @Success      200 {object} dto.Response{data=[]appsettlement.ExchangeRateResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /exchange-rates/history [get]
func (h *ExchangeRateHandler) History(c *gin.Context) {
	var q dto.RateHistoryQuery
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
	rates, err := h.rates.ListRates(c.Request.Context(), q.Currency, from, to, q.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if rates == nil {
		rates = []appsettlement.ExchangeRateResponse{}
	}
	h.Success(c, rates)
}

// Sync godoc
// @ID           syncExchangeRates
// @Summary      Synchronize exchange rates now
// @Description  Runs one synchronization for the date regardless of the sync window. A provider failure is reported in the result with outcome FAILED.
// @Tags         exchange-rates
// @Accept       json
// @Produce      json
// @Param        request body dto.RateSyncRequest false "Date to synchronize"
// @Success      200 {object} dto.Response{data=appsettlement.SyncResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      429 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /exchange-rates/sync [post]
func (h *ExchangeRateHandler) Sync(c *gin.Context) {
	var req dto.RateSyncRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}
	date, ok := h.date(c, "date", req.Date)
	if !ok {
		return
	}

	result, err := h.sync.TriggerNow(c.Request.Context(), date)
	if errors.Is(err, scheduler.ErrSyncInProgress) {
		h.Error(c, http.StatusConflict, dto.ErrCodeSyncInProgress, "A rate synchronization is already running")
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Outcome == appsettlement.SyncOutcomeFailed {
		logger.GetGinLogger(c).Warn("Manual rate sync failed",
			zap.String("actor", middleware.GetActor(c)),
			zap.String("date", result.DateString),
			zap.String("error", result.Error),
		)
	}
	h.Success(c, result)
}

// SyncStatus godoc
// @ID           getRateSyncStatus
// @Summary      Rate synchronization status
// @Tags         exchange-rates
// @Produce      json
// @Success      200 {object} dto.Response{data=scheduler.RateSyncStatus}
// @Router       /exchange-rates/sync/status [get]
func (h *ExchangeRateHandler) SyncStatus(c *gin.Context) {
	h.Success(c, h.sync.Status())
}
