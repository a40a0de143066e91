package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/logistics/settlement/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPObserver receives one observation per served request.
// telemetry.PrometheusMetrics implements it.
type HTTPObserver interface {
	ObserveHTTP(route, method, status string, seconds float64)
}

// HTTPMetricsConfig holds configuration for HTTP metrics middleware.
type HTTPMetricsConfig struct {
	// Meter records OpenTelemetry instruments; nil skips them
	Meter metric.Meter
	// Observer records pull metrics; nil skips them
	Observer HTTPObserver
}

type httpMetrics struct {
	requestTotal    *telemetry.Counter
	requestDuration *telemetry.Histogram
	responseSize    *telemetry.Histogram
	activeRequests  metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requestTotal, err := telemetry.NewCounter(meter,
		"http_server_request_total", "Total number of HTTP requests", "{request}")
	if err != nil {
		return nil, err
	}
	requestDuration, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency distribution in seconds",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	// report downloads reach a few megabytes
	responseSize, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_response_size_bytes",
		Description: "HTTP response body size distribution in bytes",
		Unit:        "By",
		Boundaries:  []float64{100, 1000, 10000, 100000, 1000000, 5000000},
	})
	if err != nil {
		return nil, err
	}
	activeRequests, err := meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	return &httpMetrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		responseSize:    responseSize,
		activeRequests:  activeRequests,
	}, nil
}

// HTTPMetrics records request count, latency and response size by route
// pattern, never by raw path.
func HTTPMetrics(cfg HTTPMetricsConfig) (gin.HandlerFunc, error) {
	var m *httpMetrics
	if cfg.Meter != nil {
		var err error
		if m, err = newHTTPMetrics(cfg.Meter); err != nil {
			return nil, err
		}
	}
	if m == nil && cfg.Observer == nil {
		return func(c *gin.Context) { c.Next() }, nil
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		if m != nil {
			m.activeRequests.Add(ctx, 1)
		}

		c.Next()

		elapsed := time.Since(start)
		route := routePattern(c)
		method := c.Request.Method
		status := c.Writer.Status()

		if m != nil {
			m.activeRequests.Add(ctx, -1)
			base := []attribute.KeyValue{
				telemetry.AttrHTTPMethod.String(method),
				telemetry.AttrHTTPRoute.String(route),
			}
			m.requestTotal.Inc(ctx, append(base, telemetry.AttrHTTPStatusCode.Int(status))...)
			m.requestDuration.RecordDuration(ctx, elapsed, base...)
			if size := c.Writer.Size(); size > 0 {
				m.responseSize.Record(ctx, float64(size), base...)
			}
		}
		if cfg.Observer != nil {
			cfg.Observer.ObserveHTTP(route, method, strconv.Itoa(status), elapsed.Seconds())
		}
	}, nil
}

func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}

// StatusClass groups a status code as "2xx", "4xx" and so on
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "other"
	}
	return strconv.Itoa(status/100) + "xx"
}
