package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/logistics/settlement/internal/bootstrap"
	"github.com/logistics/settlement/internal/infrastructure/config"
	"github.com/logistics/settlement/internal/infrastructure/logger"
	"github.com/logistics/settlement/internal/infrastructure/telemetry"
	"github.com/logistics/settlement/internal/interfaces/http/handler"
	"github.com/logistics/settlement/internal/interfaces/http/middleware"
	"github.com/logistics/settlement/internal/interfaces/http/router"
	"go.uber.org/zap"

	_ "github.com/logistics/settlement/docs"
)

//	@title			Settlement Engine API
//	@version		1.0
//	@description	Multi-currency invoice and payment ledgers, payment allocation, partner balances and exchange rates.

//	@contact.name	Settlement Team
//	@contact.email	settlement@logistics.example.com

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Optional bearer token. The "name" claim (or "sub") is recorded as the actor. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.FromConfig(cfg.Log, cfg.App))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting settlement engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownCtx := func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(context.Background(), shutdownTimeout(cfg.HTTP.ShutdownTimeout))
	}

	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}

	// Tracing
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       serviceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		c, cancel := shutdownCtx()
		defer cancel()
		if err := tp.Shutdown(c); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Metrics
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       serviceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		c, cancel := shutdownCtx()
		defer cancel()
		if err := mp.Shutdown(c); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Logs: tee zap into the OTLP pipeline
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       serviceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		c, cancel := shutdownCtx()
		defer cancel()
		if err := lp.Shutdown(c); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()
	if level, err := logger.ParseLevel(cfg.Telemetry.LogsLevel); err == nil {
		log = telemetry.BridgeLogger(log, serviceName, lp, level)
	} else {
		log.Warn("Invalid telemetry.logs_level, OTLP logs bridge not installed", zap.Error(err))
	}

	// Profiling
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.ProfilingServerAddr,
		ApplicationName:   serviceName,
		ProfileCPU:        true,
		ProfileAlloc:      true,
		ProfileInuse:      true,
		ProfileGoroutines: true,
		ProfileMutex:      true,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() && tp.IsEnabled() {
		tp.EnableSpanProfiles()
	}

	app, err := bootstrap.New(ctx, cfg, log,
		bootstrap.WithMeter(mp.Meter("settlement")),
		bootstrap.WithPrometheus(cfg.Telemetry.PrometheusEnabled),
	)
	if err != nil {
		log.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer func() {
		c, cancel := shutdownCtx()
		defer cancel()
		if err := app.Close(c); err != nil {
			log.Error("Error releasing resources", zap.Error(err))
		}
	}()

	// Rate sync scheduler
	rateScheduler, err := app.NewRateSyncScheduler()
	if err != nil {
		log.Fatal("Failed to create rate sync scheduler", zap.Error(err))
	}
	if err := rateScheduler.Start(ctx); err != nil {
		log.Fatal("Failed to start rate sync scheduler", zap.Error(err))
	}
	defer func() {
		c, cancel := shutdownCtx()
		defer cancel()
		if err := rateScheduler.Stop(c); err != nil {
			log.Error("Error stopping rate sync scheduler", zap.Error(err))
		}
	}()

	// HTTP
	engineCfg := router.EngineConfig{
		Logger:           log,
		TrustedProxies:   cfg.HTTP.TrustedProxies,
		CORSAllowOrigins: cfg.HTTP.CORSAllowOrigins,
		MaxBodySize:      cfg.HTTP.MaxBodySize,
		HSTS:             cfg.App.IsProduction(),
		Actor: middleware.ActorConfig{
			Secret: cfg.Auth.JWTSecret,
			Issuer: cfg.Auth.Issuer,
			Logger: log,
		},
		Tracing: middleware.TracingConfig{
			ServiceName: serviceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		Metrics:           middleware.HTTPMetricsConfig{Meter: mp.Meter("settlement.http")},
		Profiling:         middleware.DefaultProfilingConfig(),
		SwaggerEnabled:    cfg.Swagger.Enabled,
		SwaggerAllowedIPs: cfg.Swagger.AllowedIPs,
	}
	engineCfg.Profiling.Enabled = profiler.IsEnabled()
	if app.Prometheus != nil {
		engineCfg.Metrics.Observer = app.Prometheus
		engineCfg.MetricsHandler = app.Prometheus.Handler()
	}

	systemHandler := handler.NewSystemHandler(cfg.App.Name, cfg.App.Version, app.Database)
	engineCfg.Health = systemHandler.Health

	engine, err := router.NewEngine(engineCfg)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	syncLimiter := middleware.NewRateLimiter(cfg.HTTP.SyncTriggerInterval, cfg.HTTP.SyncTriggerBurst)
	router.NewRouter(engine).
		Register(
			systemHandler,
			handler.NewInvoiceHandler(app.Invoices),
			handler.NewPaymentHandler(app.Payments),
			handler.NewAllocationHandler(app.Allocations),
			handler.NewPartnerHandler(app.Ledger, app.Reports),
			handler.NewExchangeRateHandler(app.Rates, rateScheduler, syncLimiter),
		).
		Setup()

	srv := router.NewServer(":"+cfg.App.Port, engine,
		cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout, cfg.HTTP.IdleTimeout, cfg.HTTP.MaxHeaderBytes)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr), zap.Int("routes", len(engine.Routes())))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serveErr:
		if err != nil {
			log.Error("Server failed", zap.Error(err))
		}
	}

	c, cancel := shutdownCtx()
	defer cancel()
	if err := srv.Shutdown(c); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func shutdownTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}
