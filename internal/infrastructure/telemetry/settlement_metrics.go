package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// SettlementMetrics records allocation, rate sync and report outcomes.
// It mirrors each measurement to the Prometheus registry when one is configured.
type SettlementMetrics struct {
	logger *zap.Logger
	prom   *PrometheusMetrics

	allocationsTotal   *Counter
	allocationAttempts *Histogram
	allocationDuration *Histogram
	rateSyncTotal      *Counter
	ratesWrittenTotal  *Counter
	rateSyncDuration   *Histogram
	reportsTotal       *Counter
	reportDuration     *Histogram
}

// SettlementMetricsConfig configures SettlementMetrics
type SettlementMetricsConfig struct {
	Meter      metric.Meter
	Logger     *zap.Logger
	Prometheus *PrometheusMetrics
}

// ErrMeterNil is returned when meter is nil
var ErrMeterNil = &MetricsError{Op: "NewSettlementMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// NewSettlementMetrics creates the settlement instruments on cfg.Meter
func NewSettlementMetrics(cfg SettlementMetricsConfig) (*SettlementMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &SettlementMetrics{logger: logger, prom: cfg.Prometheus}

	var err error
	if m.allocationsTotal, err = NewCounter(cfg.Meter,
		"settlement_allocations_total", "Allocation and reversal attempts by result", "{allocations}"); err != nil {
		return nil, err
	}
	if m.allocationAttempts, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "settlement_allocation_attempts",
		Description: "Transaction attempts per allocation, including conflict retries",
		Unit:        "{attempts}",
		Boundaries:  []float64{1, 2, 3, 4, 5, 8},
	}); err != nil {
		return nil, err
	}
	if m.allocationDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "settlement_allocation_duration_seconds",
		Description: "Allocation latency including retries",
		Unit:        "s",
		Boundaries:  SettlementDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.rateSyncTotal, err = NewCounter(cfg.Meter,
		"settlement_rate_sync_runs_total", "Exchange rate synchronization runs by outcome", "{runs}"); err != nil {
		return nil, err
	}
	if m.ratesWrittenTotal, err = NewCounter(cfg.Meter,
		"settlement_rates_written_total", "Exchange rate rows inserted by the synchronizer", "{rates}"); err != nil {
		return nil, err
	}
	if m.rateSyncDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "settlement_rate_sync_duration_seconds",
		Description: "Exchange rate synchronization latency",
		Unit:        "s",
		Boundaries:  SyncDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.reportsTotal, err = NewCounter(cfg.Meter,
		"settlement_reports_total", "Balance reports built by format and result", "{reports}"); err != nil {
		return nil, err
	}
	if m.reportDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "settlement_report_duration_seconds",
		Description: "Balance report build latency",
		Unit:        "s",
		Boundaries:  SettlementDurationBuckets,
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// AllocationCompleted records one Allocate or ReverseAllocation call
func (m *SettlementMetrics) AllocationCompleted(ctx context.Context, operation, result string, attempts int, duration time.Duration) {
	m.allocationsTotal.Inc(ctx, AttrOperation.String(operation), AttrResult.String(result))
	m.allocationAttempts.Record(ctx, float64(attempts), AttrOperation.String(operation))
	m.allocationDuration.RecordDuration(ctx, duration, AttrOperation.String(operation), AttrResult.String(result))
	if m.prom != nil {
		m.prom.allocations.WithLabelValues(operation, result).Inc()
	}
}

// RateSyncCompleted records one synchronizer run
func (m *SettlementMetrics) RateSyncCompleted(ctx context.Context, outcome string, written int, duration time.Duration) {
	m.rateSyncTotal.Inc(ctx, AttrOutcome.String(outcome))
	if written > 0 {
		m.ratesWrittenTotal.Add(ctx, int64(written))
	}
	m.rateSyncDuration.RecordDuration(ctx, duration, AttrOutcome.String(outcome))
	if m.prom != nil {
		m.prom.rateSyncRuns.WithLabelValues(outcome).Inc()
		if outcome == "SYNCED" || outcome == "SKIPPED" {
			m.prom.lastRateSync.SetToCurrentTime()
		}
	}
	m.logger.Debug("Rate sync recorded", zap.String("outcome", outcome), zap.Int("written", written))
}

// ReportBuilt records one balance report build or export
func (m *SettlementMetrics) ReportBuilt(ctx context.Context, format, result string, duration time.Duration) {
	m.reportsTotal.Inc(ctx, AttrFormat.String(format), AttrResult.String(result))
	m.reportDuration.RecordDuration(ctx, duration, AttrFormat.String(format))
	if m.prom != nil {
		m.prom.reports.WithLabelValues(format, result).Inc()
	}
}
