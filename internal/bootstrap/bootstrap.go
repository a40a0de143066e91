// Package bootstrap wires the settlement engine's persistence, messaging and
// application services from configuration. The server and the operator CLI
// share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	appsettlement "github.com/logistics/settlement/internal/application/settlement"
	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/infrastructure/cache"
	"github.com/logistics/settlement/internal/infrastructure/config"
	"github.com/logistics/settlement/internal/infrastructure/event"
	"github.com/logistics/settlement/internal/infrastructure/export"
	"github.com/logistics/settlement/internal/infrastructure/persistence"
	"github.com/logistics/settlement/internal/infrastructure/rateprovider"
	"github.com/logistics/settlement/internal/infrastructure/scheduler"
	"github.com/logistics/settlement/internal/infrastructure/storage"
	"github.com/logistics/settlement/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// auditDedupTTL bounds how long a delivered event id is remembered by the audit handler
const auditDedupTTL = 24 * time.Hour

// App holds the wired services. Close releases everything New opened.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Database   *persistence.Database
	Prometheus *telemetry.PrometheusMetrics
	Metrics    *telemetry.SettlementMetrics
	EventBus   *event.InMemoryEventBus
	Guard      shared.IdempotencyStore

	Invoices     *appsettlement.InvoiceService
	Payments     *appsettlement.PaymentService
	Allocations  *appsettlement.AllocationService
	Ledger       *appsettlement.LedgerService
	Rates        *appsettlement.RateService
	Reports      *appsettlement.ReportService
	Synchronizer *appsettlement.RateSynchronizer

	closers []func(context.Context) error
}

// Option configures New
type Option func(*options)

type options struct {
	meter      metric.Meter
	prometheus bool
}

// WithMeter records settlement metrics on meter instead of the global provider
func WithMeter(meter metric.Meter) Option {
	return func(o *options) { o.meter = meter }
}

// WithPrometheus exposes pull metrics, including connection pool statistics
func WithPrometheus(enabled bool) Option {
	return func(o *options) { o.prometheus = enabled }
}

// New connects to the database and builds every application service.
// On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, opts ...Option) (app *App, err error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.meter == nil {
		o.meter = otel.GetMeterProvider().Meter("settlement")
	}

	app = &App{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
			app = nil
		}
	}()

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	app.Database = db
	app.addCloser(func(context.Context) error { return db.Close() })
	log.Info("Database connected", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))

	if err = telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log).Register(db.DB); err != nil {
		return nil, fmt.Errorf("register db tracing: %w", err)
	}

	if o.prometheus {
		sqlDB, sqlErr := db.SQLDB()
		if sqlErr != nil {
			return nil, fmt.Errorf("get sql db: %w", sqlErr)
		}
		if app.Prometheus, err = telemetry.NewPrometheusMetrics(sqlDB, cfg.Database.DBName); err != nil {
			return nil, fmt.Errorf("prometheus metrics: %w", err)
		}
	}
	if app.Metrics, err = telemetry.NewSettlementMetrics(telemetry.SettlementMetricsConfig{
		Meter:      o.meter,
		Logger:     log,
		Prometheus: app.Prometheus,
	}); err != nil {
		return nil, fmt.Errorf("settlement metrics: %w", err)
	}

	guard, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	).CreateStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("create sync guard: %w", err)
	}
	app.Guard = guard
	app.addCloser(func(context.Context) error { return guard.Close() })

	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewIdempotentHandler("audit", event.NewAuditLogHandler(log), guard, auditDedupTTL, log))
	if err = bus.Start(ctx); err != nil {
		return nil, fmt.Errorf("start event bus: %w", err)
	}
	app.EventBus = bus
	app.addCloser(bus.Stop)

	serviceOpts, err := serviceOptions(cfg.Settlement)
	if err != nil {
		return nil, err
	}
	serviceOpts = append(serviceOpts,
		appsettlement.WithLogger(log),
		appsettlement.WithEventPublisher(bus),
		appsettlement.WithMetrics(app.Metrics),
	)

	scope := persistence.NewGormTransactionScope(db.DB)
	repos := persistence.NewGormRepositories(db.DB)
	partners := persistence.NewGormPartnerDirectory(db.DB)
	currencies := persistence.NewGormCurrencyCatalog(db.DB)

	app.Invoices = appsettlement.NewInvoiceService(scope, repos, partners, currencies, serviceOpts...)
	app.Payments = appsettlement.NewPaymentService(scope, repos, partners, currencies, serviceOpts...)
	app.Allocations = appsettlement.NewAllocationService(scope, repos, serviceOpts...)
	app.Ledger = appsettlement.NewLedgerService(repos, partners, serviceOpts...)
	app.Rates = appsettlement.NewRateService(repos, serviceOpts...)

	var archive appsettlement.ReportArchive
	if cfg.Storage.Enabled() {
		s3Archive, s3Err := storage.NewS3ReportArchive(ctx, cfg.Storage, storage.WithLogger(log))
		if s3Err != nil {
			return nil, fmt.Errorf("report archive: %w", s3Err)
		}
		archive = s3Archive
	}
	snapshot := persistence.NewGormSnapshotScope(db.DB, persistence.ParseIsolationLevel(cfg.Settlement.ReportIsolation))
	app.Reports = appsettlement.NewReportService(snapshot, partners, export.NewRenderer(), archive, serviceOpts...)

	provider, err := rateprovider.New(cfg.RateSync, log)
	if err != nil {
		return nil, fmt.Errorf("rate provider: %w", err)
	}
	app.Synchronizer = appsettlement.NewRateSynchronizer(
		scope,
		persistence.NewGormExchangeRateRepository(db.DB),
		provider,
		guard,
		persistence.NewGormRateSyncJobRepository(db.DB),
		cfg.RateSync.GuardTTL,
		serviceOpts...,
	)

	return app, nil
}

// NewRateSyncScheduler builds the cron trigger for the synchronizer from settings
func (a *App) NewRateSyncScheduler() (*scheduler.RateSyncScheduler, error) {
	schedCfg, err := SchedulerConfig(a.Config.RateSync)
	if err != nil {
		return nil, err
	}
	return scheduler.NewRateSyncScheduler(schedCfg, a.Synchronizer, a.Logger)
}

// Close releases resources in reverse order of acquisition
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) addCloser(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// SchedulerConfig maps rate_sync settings onto the scheduler configuration
func SchedulerConfig(cfg config.RateSyncConfig) (scheduler.RateSyncConfig, error) {
	out := scheduler.DefaultRateSyncConfig()
	out.Enabled = cfg.Enabled
	if cfg.Schedule != "" {
		out.Schedule = cfg.Schedule
	}
	if cfg.Timeout > 0 {
		out.Timeout = cfg.Timeout
	}
	if cfg.WindowEndHour > 0 {
		out.WindowStartHour = cfg.WindowStartHour
		out.WindowEndHour = cfg.WindowEndHour
	}
	if cfg.Location != "" {
		loc, err := time.LoadLocation(cfg.Location)
		if err != nil {
			return out, fmt.Errorf("rate_sync.location: %w", err)
		}
		out.Location = loc
	}
	return out, out.Validate()
}

func serviceOptions(cfg config.SettlementConfig) ([]appsettlement.Option, error) {
	fee, err := settlement.ParseFeePolicy(cfg.FeePolicy)
	if err != nil {
		return nil, fmt.Errorf("settlement.fee_policy: %w", err)
	}
	fallback, err := settlement.ParseRateFallbackPolicy(cfg.RateFallback)
	if err != nil {
		return nil, fmt.Errorf("settlement.rate_fallback: %w", err)
	}
	return []appsettlement.Option{
		appsettlement.WithFeePolicy(fee),
		appsettlement.WithRateFallback(fallback),
		appsettlement.WithRetry(cfg.MaxRetries, cfg.RetryBackoff),
		appsettlement.WithAllocationPolicy(settlement.AllocationPolicy{
			EnforceDirection: cfg.EnforceDirection,
			EnforcePartner:   cfg.EnforcePartner,
		}),
	}, nil
}
