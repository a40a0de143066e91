package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	appsettlement "github.com/logistics/settlement/internal/application/settlement"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/infrastructure/scheduler"
	"github.com/logistics/settlement/internal/interfaces/http/dto"
	"github.com/logistics/settlement/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type registrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

func newTestRouter(handlers ...registrar) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Actor(middleware.ActorConfig{Secret: testSecret}))
	api := r.Group("/api/v1")
	for _, h := range handlers {
		h.RegisterRoutes(api)
	}
	return r
}

func bearer(t *testing.T, name string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.ActorClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + s
}

type call struct {
	method string
	path   string
	body   any
	auth   string
}

func do(r http.Handler, c call) *httptest.ResponseRecorder {
	var body io.Reader
	switch b := c.body.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		body = bytes.NewBuffer(raw)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.auth != "" {
		req.Header.Set("Authorization", c.auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func dataMap(t *testing.T, resp dto.Response) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return m
}

// MockInvoiceService implements InvoiceService for testing
type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) RecordInvoice(ctx context.Context, actor string, req appsettlement.RecordInvoiceRequest) (*appsettlement.InvoiceResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsettlement.InvoiceResponse), args.Error(1)
}

func (m *MockInvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*appsettlement.InvoiceResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsettlement.InvoiceResponse), args.Error(1)
}

func (m *MockInvoiceService) ListInvoices(ctx context.Context, f appsettlement.InvoiceListFilter) (*shared.Paginated[appsettlement.InvoiceResponse], error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[appsettlement.InvoiceResponse]), args.Error(1)
}

// MockPaymentService implements PaymentService for testing
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) RecordPayment(ctx context.Context, actor string, req appsettlement.RecordPaymentRequest) (*appsettlement.PaymentResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsettlement.PaymentResponse), args.Error(1)
}

func (m *MockPaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*appsettlement.PaymentResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsettlement.PaymentResponse), args.Error(1)
}

func (m *MockPaymentService) ListPayments(ctx context.Context, f appsettlement.PaymentListFilter) (*shared.Paginated[appsettlement.PaymentResponse], error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[appsettlement.PaymentResponse]), args.Error(1)
}

// MockAllocationService implements AllocationService for testing
type MockAllocationService struct {
	mock.Mock
}

func (m *MockAllocationService) Allocate(ctx context.Context, actor string, req appsettlement.AllocateRequest) (*appsettlement.AllocationResult, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsettlement.AllocationResult), args.Error(1)
}

func (m *MockAllocationService) ReverseAllocation(ctx context.Context, actor string, id uuid.UUID, date time.Time) (*appsettlement.AllocationResult, error) {
	args := m.Called(ctx, actor, id, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsettlement.AllocationResult), args.Error(1)
}

func (m *MockAllocationService) GetAllocation(ctx context.Context, id uuid.UUID) (*appsettlement.AllocationResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsettlement.AllocationResponse), args.Error(1)
}

func (m *MockAllocationService) ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]appsettlement.AllocationResponse, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appsettlement.AllocationResponse), args.Error(1)
}

func (m *MockAllocationService) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]appsettlement.AllocationResponse, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appsettlement.AllocationResponse), args.Error(1)
}

// MockLedgerReader implements LedgerReader for testing
type MockLedgerReader struct {
	mock.Mock
}

func (m *MockLedgerReader) ListByPartner(ctx context.Context, partnerID uuid.UUID, from, to time.Time) ([]appsettlement.LedgerEntryResponse, error) {
	args := m.Called(ctx, partnerID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appsettlement.LedgerEntryResponse), args.Error(1)
}

func (m *MockLedgerReader) Recompute(ctx context.Context, partnerID uuid.UUID, currency string, asOf time.Time) (*appsettlement.LedgerTotalsResponse, error) {
	args := m.Called(ctx, partnerID, currency, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsettlement.LedgerTotalsResponse), args.Error(1)
}

// MockReportBuilder implements ReportBuilder for testing
type MockReportBuilder struct {
	mock.Mock
}

func (m *MockReportBuilder) BuildReport(ctx context.Context, partnerID uuid.UUID, asOf time.Time) (*appsettlement.BalanceReportResponse, error) {
	args := m.Called(ctx, partnerID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsettlement.BalanceReportResponse), args.Error(1)
}

func (m *MockReportBuilder) ExportReport(ctx context.Context, partnerID uuid.UUID, asOf time.Time, format appsettlement.ReportFormat) (*appsettlement.ExportedReport, error) {
	args := m.Called(ctx, partnerID, asOf, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsettlement.ExportedReport), args.Error(1)
}

// MockRateQuerier implements RateQuerier for testing
type MockRateQuerier struct {
	mock.Mock
}

func (m *MockRateQuerier) GetRate(ctx context.Context, currency string, date time.Time) (*appsettlement.ExchangeRateResponse, error) {
	args := m.Called(ctx, currency, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsettlement.ExchangeRateResponse), args.Error(1)
}

func (m *MockRateQuerier) ListRates(ctx context.Context, currency string, from, to time.Time, limit int) ([]appsettlement.ExchangeRateResponse, error) {
	args := m.Called(ctx, currency, from, to, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appsettlement.ExchangeRateResponse), args.Error(1)
}

// MockRateSyncTrigger implements RateSyncTrigger for testing
type MockRateSyncTrigger struct {
	mock.Mock
}

func (m *MockRateSyncTrigger) TriggerNow(ctx context.Context, date time.Time) (*appsettlement.SyncResult, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsettlement.SyncResult), args.Error(1)
}

func (m *MockRateSyncTrigger) Status() scheduler.RateSyncStatus {
	return m.Called().Get(0).(scheduler.RateSyncStatus)
}

func day(s string) time.Time {
	d, err := time.Parse(dto.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}
