package telemetry

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeLabels(t *testing.T) {
	t.Run("sorted pairs", func(t *testing.T) {
		pairs := sanitizeLabels(map[string]string{"route": "/api/v1/allocations", "method": "POST"})
		assert.Equal(t, []string{"method", "POST", "route", "/api/v1/allocations"}, pairs)
	})

	t.Run("drops high cardinality and empty values", func(t *testing.T) {
		pairs := sanitizeLabels(map[string]string{
			"operation":  "allocate",
			"payment_id": "3f1c",
			"Partner-ID": "9a2b",
			"region":     "",
		})
		assert.Equal(t, []string{"operation", "allocate"}, pairs)
	})

	t.Run("truncates long values", func(t *testing.T) {
		pairs := sanitizeLabels(map[string]string{"route": strings.Repeat("x", 300)})
		assert.Len(t, pairs[1], MaxLabelValueLength)
	})

	t.Run("nil map", func(t *testing.T) {
		assert.Nil(t, sanitizeLabels(nil))
	})
}

func TestSanitizeLabelKey(t *testing.T) {
	assert.Equal(t, "rate_provider", sanitizeLabelKey("Rate Provider"))
	assert.Equal(t, "http_route", sanitizeLabelKey("http-route"))
	assert.Equal(t, "", sanitizeLabelKey("$%"))
}

func TestWithProfilingLabels_RunsCallback(t *testing.T) {
	labels := SettlementOperationLabels("allocate")
	called := false
	WithProfilingLabels(context.Background(), labels, func(ctx context.Context) {
		called = true
		assert.NotNil(t, ctx)
	})
	assert.True(t, called)
	assert.Equal(t, "allocate", labels[ProfilingLabelOperation], "caller map must not be modified")

	called = false
	WithProfilingLabels(context.Background(), nil, func(context.Context) { called = true })
	assert.True(t, called)
}

func TestLabelBuilders(t *testing.T) {
	assert.Equal(t, map[string]string{"controller": "AllocationHandler", "method": "POST"},
		HTTPRequestLabels("AllocationHandler", "", "POST"))
	assert.Equal(t, map[string]string{"region": "rate_provider", "provider": "cbr"},
		RegionLabels("rate_provider", map[string]string{"provider": "cbr"}))
}
