package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	appsettlement "github.com/logistics/settlement/internal/application/settlement"
	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockServices struct {
	mock.Mock
}

func (m *mockServices) ListByPartner(ctx context.Context, partnerID uuid.UUID, from, to time.Time) ([]appsettlement.LedgerEntryResponse, error) {
	args := m.Called(ctx, partnerID, from, to)
	entries, _ := args.Get(0).([]appsettlement.LedgerEntryResponse)
	return entries, args.Error(1)
}

func (m *mockServices) BuildReport(ctx context.Context, partnerID uuid.UUID, asOf time.Time) (*appsettlement.BalanceReportResponse, error) {
	args := m.Called(ctx, partnerID, asOf)
	report, _ := args.Get(0).(*appsettlement.BalanceReportResponse)
	return report, args.Error(1)
}

func (m *mockServices) ExportReport(ctx context.Context, partnerID uuid.UUID, asOf time.Time, format appsettlement.ReportFormat) (*appsettlement.ExportedReport, error) {
	args := m.Called(ctx, partnerID, asOf, format)
	report, _ := args.Get(0).(*appsettlement.ExportedReport)
	return report, args.Error(1)
}

func (m *mockServices) RunOnce(ctx context.Context, date time.Time) (*appsettlement.SyncResult, error) {
	args := m.Called(ctx, date)
	result, _ := args.Get(0).(*appsettlement.SyncResult)
	return result, args.Error(1)
}

type harness struct {
	svc      *mockServices
	opened   int
	released int
	opts     globalOptions
}

func (h *harness) open(_ context.Context, opts globalOptions) (*services, func(), error) {
	h.opened++
	h.opts = opts
	return &services{Ledger: h.svc, Reports: h.svc, Sync: h.svc}, func() { h.released++ }, nil
}

func run(t *testing.T, h *harness, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(h.open, &out)
	cmd.SetArgs(args)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func date(s string) time.Time {
	t, _ := time.Parse(dateLayout, s)
	return t
}

func TestSyncRates(t *testing.T) {
	t.Run("synced", func(t *testing.T) {
		h := &harness{svc: new(mockServices)}
		h.svc.On("RunOnce", mock.Anything, date("2025-01-10")).Return(&appsettlement.SyncResult{
			DateString:   "2025-01-10",
			Outcome:      appsettlement.SyncOutcomeSynced,
			RatesWritten: 12,
		}, nil)

		out, err := run(t, h, "sync-rates", "--date", "2025-01-10", "--config", "/etc/settlement/config.toml")
		require.NoError(t, err)

		var result map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, "SYNCED", result["outcome"])
		assert.Equal(t, float64(12), result["rates_written"])
		assert.Equal(t, "/etc/settlement/config.toml", h.opts.configPath)
		assert.Equal(t, 1, h.released)
	})

	t.Run("provider failure exits non-zero", func(t *testing.T) {
		h := &harness{svc: new(mockServices)}
		h.svc.On("RunOnce", mock.Anything, time.Time{}).Return(&appsettlement.SyncResult{
			Outcome: appsettlement.SyncOutcomeFailed,
			Error:   "provider timeout",
		}, nil)

		out, err := run(t, h, "sync-rates")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "provider timeout")
		assert.Contains(t, out, "FAILED")
	})

	t.Run("bad date never connects", func(t *testing.T) {
		h := &harness{svc: new(mockServices)}
		_, err := run(t, h, "sync-rates", "--date", "10.01.2025")
		require.Error(t, err)
		assert.Zero(t, h.opened)
	})
}

func TestReport(t *testing.T) {
	partnerID := uuid.New()

	t.Run("json to stdout", func(t *testing.T) {
		h := &harness{svc: new(mockServices)}
		h.svc.On("BuildReport", mock.Anything, partnerID, date("2025-01-31")).Return(&appsettlement.BalanceReportResponse{
			PartnerID:            partnerID,
			AsOf:                 "2025-01-31",
			BaseCurrency:         "RUB",
			TotalOutstandingBase: decimal.NewFromInt(54000),
		}, nil)

		out, err := run(t, h, "report", "--partner", partnerID.String(), "--as-of", "2025-01-31")
		require.NoError(t, err)
		assert.Contains(t, out, `"total_outstanding_base": "54000"`)
	})

	t.Run("xlsx to file", func(t *testing.T) {
		h := &harness{svc: new(mockServices)}
		h.svc.On("ExportReport", mock.Anything, partnerID, time.Time{}, appsettlement.ReportFormatXLSX).Return(&appsettlement.ExportedReport{
			Filename: "balance.xlsx",
			Data:     []byte("PK\x03\x04"),
		}, nil)

		path := filepath.Join(t.TempDir(), "out.xlsx")
		out, err := run(t, h, "report", "--partner", partnerID.String(), "--format", "xlsx", "--out", path)
		require.NoError(t, err)
		assert.Contains(t, out, "wrote "+path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []byte("PK\x03\x04"), data)
	})

	t.Run("missing rate", func(t *testing.T) {
		h := &harness{svc: new(mockServices)}
		h.svc.On("BuildReport", mock.Anything, partnerID, mock.Anything).Return(nil, settlement.ErrMissingExchangeRate)

		_, err := run(t, h, "report", "--partner", partnerID.String())
		assert.ErrorIs(t, err, settlement.ErrMissingExchangeRate)
	})

	t.Run("flag validation", func(t *testing.T) {
		h := &harness{svc: new(mockServices)}
		_, err := run(t, h, "report")
		assert.Error(t, err)

		_, err = run(t, h, "report", "--partner", "acme")
		assert.Error(t, err)

		_, err = run(t, h, "report", "--partner", partnerID.String(), "--format", "csv")
		assert.Error(t, err)
		assert.Zero(t, h.opened)
	})
}

func TestLedger(t *testing.T) {
	partnerID := uuid.New()
	entries := []appsettlement.LedgerEntryResponse{
		{Seq: 1, TransactionDate: "2025-01-05", Currency: "EUR", Amount: decimal.NewFromInt(1000), BaseAmount: decimal.NewFromInt(105000), ReferenceType: "INVOICE"},
		{Seq: 2, TransactionDate: "2025-01-09", Currency: "EUR", Amount: decimal.NewFromInt(-600), BaseAmount: decimal.NewFromInt(-63000), ReferenceType: "ALLOCATION"},
	}

	t.Run("table", func(t *testing.T) {
		h := &harness{svc: new(mockServices)}
		h.svc.On("ListByPartner", mock.Anything, partnerID, date("2025-01-01"), date("2025-01-31")).Return(entries, nil)

		out, err := run(t, h, "ledger", "--partner", partnerID.String(), "--from", "2025-01-01", "--to", "2025-01-31")
		require.NoError(t, err)
		assert.Contains(t, out, "SEQ")
		assert.Contains(t, out, "-600.00")
		assert.Contains(t, out, "ALLOCATION")
	})

	t.Run("json", func(t *testing.T) {
		h := &harness{svc: new(mockServices)}
		h.svc.On("ListByPartner", mock.Anything, partnerID, time.Time{}, time.Time{}).Return(entries, nil)

		out, err := run(t, h, "ledger", "--partner", partnerID.String(), "--json")
		require.NoError(t, err)
		var decoded []map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &decoded))
		assert.Len(t, decoded, 2)
	})

	t.Run("reversed range", func(t *testing.T) {
		h := &harness{svc: new(mockServices)}
		_, err := run(t, h, "ledger", "--partner", partnerID.String(), "--from", "2025-02-01", "--to", "2025-01-01")
		assert.Error(t, err)
		assert.Zero(t, h.opened)
	})

	t.Run("service error", func(t *testing.T) {
		h := &harness{svc: new(mockServices)}
		h.svc.On("ListByPartner", mock.Anything, partnerID, mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

		_, err := run(t, h, "ledger", "--partner", partnerID.String())
		assert.EqualError(t, err, "connection reset")
		assert.Equal(t, 1, h.released)
	})
}
