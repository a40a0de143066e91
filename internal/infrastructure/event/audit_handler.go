package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuditLogHandler writes every domain event as one structured log line with
// its JSON payload. It is the settlement engine's audit trail of committed changes.
type AuditLogHandler struct {
	logger *zap.Logger
	types  []string
}

// NewAuditLogHandler creates a handler for eventTypes, or for all events when none are given
func NewAuditLogHandler(l *zap.Logger, eventTypes ...string) *AuditLogHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &AuditLogHandler{logger: l.Named("audit"), types: eventTypes}
}

// EventTypes returns the subscribed event types
func (h *AuditLogHandler) EventTypes() []string {
	return h.types
}

// Handle logs the event
func (h *AuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.EventType(), err)
	}
	logger.ForContext(ctx, h.logger).Info("Domain event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("actor", event.Actor()),
		zap.Time("occurred_at", event.OccurredAt()),
		zap.ByteString("payload", payload),
	)
	return nil
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)
