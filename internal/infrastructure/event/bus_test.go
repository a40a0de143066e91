package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

const (
	invoiceIssued      = "InvoiceIssued"
	allocationPosted   = "AllocationPosted"
	allocationReversed = "AllocationReversed"
)

type settlementEvent struct {
	shared.BaseDomainEvent
	Amount string `json:"amount"`
}

func newEvent(eventType string) *settlementEvent {
	return &settlementEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Allocation", uuid.New(), "alice"),
		Amount:          "600.00",
	}
}

// recorder collects delivered events and optionally fails
type recorder struct {
	mu      sync.Mutex
	types   []string
	handled []shared.DomainEvent
	err     error
}

func newRecorder(eventTypes ...string) *recorder {
	return &recorder{types: eventTypes}
}

func (r *recorder) Handle(_ context.Context, event shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handled = append(r.handled, event)
	return r.err
}

func (r *recorder) EventTypes() []string { return r.types }

func (r *recorder) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.handled))
	for i, e := range r.handled {
		out[i] = e.EventType()
	}
	return out
}

type panickingHandler struct{}

func (panickingHandler) Handle(context.Context, shared.DomainEvent) error { panic("ledger append lost") }
func (panickingHandler) EventTypes() []string                            { return nil }

func TestInMemoryEventBus_Routing(t *testing.T) {
	tests := []struct {
		name      string
		subscribe []string // explicit types, nil uses the handler's own
		handles   []string
		publish   []string
		want      []string
	}{
		{
			name:      "explicit type",
			subscribe: []string{allocationPosted},
			publish:   []string{allocationPosted, invoiceIssued},
			want:      []string{allocationPosted},
		},
		{
			name:    "handler types",
			handles: []string{allocationPosted, allocationReversed},
			publish: []string{allocationPosted, invoiceIssued, allocationReversed},
			want:    []string{allocationPosted, allocationReversed},
		},
		{
			name:    "wildcard",
			publish: []string{invoiceIssued, allocationPosted},
			want:    []string{invoiceIssued, allocationPosted},
		},
		{
			name:      "no match",
			subscribe: []string{allocationReversed},
			publish:   []string{invoiceIssued},
			want:      []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := NewInMemoryEventBus(zap.NewNop())
			h := newRecorder(tt.handles...)
			bus.Subscribe(h, tt.subscribe...)

			events := make([]shared.DomainEvent, len(tt.publish))
			for i, et := range tt.publish {
				events[i] = newEvent(et)
			}
			require.NoError(t, bus.Publish(context.Background(), events...))
			assert.Equal(t, tt.want, h.eventTypes())
		})
	}
}

func TestInMemoryEventBus_FailuresAreIsolated(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := newRecorder()
	failing.err = errors.New("audit sink unavailable")
	healthy := newRecorder()
	bus.Subscribe(panickingHandler{})
	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newEvent(allocationPosted), newEvent(invoiceIssued))

	require.NoError(t, err, "publishers never see handler errors")
	assert.Len(t, healthy.eventTypes(), 2)
	published, failed := bus.Stats()
	assert.EqualValues(t, 2, published)
	assert.EqualValues(t, 4, failed, "one panic and one error per event")
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := newRecorder(allocationPosted)
	bus.Subscribe(h)
	wildcard := newRecorder()
	bus.Subscribe(wildcard)

	require.NoError(t, bus.Publish(context.Background(), newEvent(allocationPosted)))
	bus.Unsubscribe(h)
	bus.Unsubscribe(wildcard)
	require.NoError(t, bus.Publish(context.Background(), newEvent(allocationPosted)))

	assert.Len(t, h.eventTypes(), 1)
	assert.Len(t, wildcard.eventTypes(), 1)
}

func TestInMemoryEventBus_HandlerSpans(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	bus := NewInMemoryEventBus(zap.NewNop())
	failing := newRecorder()
	failing.err = errors.New("boom")
	bus.Subscribe(failing)

	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), newEvent(allocationReversed)))
	require.NoError(t, bus.Stop(context.Background()))

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "event.handle "+allocationReversed, ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
}
