// Package router assembles the gin engine: global middleware, operational
// endpoints and the versioned API group.
package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/logistics/settlement/internal/infrastructure/logger"
	"github.com/logistics/settlement/internal/interfaces/http/dto"
	"github.com/logistics/settlement/internal/interfaces/http/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// EngineConfig configures the engine and its global middleware
type EngineConfig struct {
	Logger            *zap.Logger
	TrustedProxies    []string
	CORSAllowOrigins  []string
	MaxBodySize       int64
	HSTS              bool
	Actor             middleware.ActorConfig
	Tracing           middleware.TracingConfig
	Metrics           middleware.HTTPMetricsConfig
	Profiling         middleware.ProfilingConfig
	MetricsHandler    http.Handler // served at /metrics when set
	Health            gin.HandlerFunc
	SwaggerEnabled    bool
	SwaggerAllowedIPs []string
}

// NewEngine builds a gin engine with the middleware chain in order:
// request id, tracing, access log, panic recovery, actor, span enrichment,
// metrics, profiling labels, CORS, security headers and body limit.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Actor.Logger == nil {
		cfg.Actor.Logger = log
	}

	middleware.SetupValidator()

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	httpMetrics, err := middleware.HTTPMetrics(cfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}

	cors := middleware.DefaultCORSConfig()
	if len(cfg.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = cfg.CORSAllowOrigins
	}
	cors.ExposeHeaders = append(cors.ExposeHeaders, "X-RateLimit-Limit", "Retry-After", "X-Archive-Key")

	engine.Use(
		middleware.RequestID(),
		middleware.Tracing(cfg.Tracing),
		logger.GinMiddleware(log, logger.WithSkipPaths("/health", "/metrics")),
		logger.Recovery(log),
		middleware.Actor(cfg.Actor),
		middleware.SpanAttributes(),
		httpMetrics,
		middleware.Profiling(cfg.Profiling),
		middleware.CORSWithConfig(cors),
		middleware.Secure(cfg.HSTS),
		middleware.BodyLimit(cfg.MaxBodySize),
	)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeRouteNotFound, "Route not found", middleware.GetRequestID(c)))
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeMethodNotAllowed, "Method not allowed", middleware.GetRequestID(c)))
	})

	if cfg.Health != nil {
		engine.GET("/health", cfg.Health)
	}
	if cfg.MetricsHandler != nil {
		engine.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}
	if cfg.SwaggerEnabled {
		engine.GET("/swagger/*any",
			middleware.SwaggerProtection(cfg.SwaggerAllowedIPs),
			ginSwagger.WrapHandler(swaggerFiles.Handler),
		)
		log.Info("Swagger UI enabled", zap.Strings("allowed_ips", cfg.SwaggerAllowedIPs))
	}

	return engine, nil
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Use adds middleware that runs only on API routes
func (r *Router) Use(mw ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, mw...)
	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Setup registers all routes under /api/<version>
func (r *Router) Setup() *gin.RouterGroup {
	api := r.engine.Group("/api/"+r.apiVersion, r.middleware...)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
	return api
}

// Routes lists the registered routes as "METHOD /path"
func Routes(engine *gin.Engine) []string {
	info := engine.Routes()
	out := make([]string, len(info))
	for i, ri := range info {
		out[i] = ri.Method + " " + ri.Path
	}
	return out
}

// NewServer wraps the engine in an http.Server with the given limits
func NewServer(addr string, handler http.Handler, read, write, idle time.Duration, maxHeaderBytes int) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       read,
		ReadHeaderTimeout: read,
		WriteTimeout:      write,
		IdleTimeout:       idle,
		MaxHeaderBytes:    maxHeaderBytes,
	}
}
