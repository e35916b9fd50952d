package service

import (
	"context"
	"log/slog"

	"fleettrack/internal/bus"
	"fleettrack/internal/domain"
)

// Notifier turns detected conditions into outbound bus events. Stateless;
// no retries of its own, delivery guarantees are the bus's business.
type Notifier struct {
	publisher EventPublisher
	logger    *slog.Logger
	stats     StatsSink
}

func NewNotifier(publisher EventPublisher, logger *slog.Logger) *Notifier {
	return &Notifier{
		publisher: publisher,
		logger:    logger.With("component", "notifier"),
	}
}

// SetStats attaches an optional counter sink.
func (n *Notifier) SetStats(s StatsSink) { n.stats = s }

func (n *Notifier) EmitAlert(ctx context.Context, alert *domain.Alert) {
	routingKey := bus.KeySLAAlert
	switch alert.Kind {
	case domain.AlertSpeeding:
		routingKey = bus.KeySpeeding
	case domain.AlertIdling:
		routingKey = bus.KeyIdling
	}

	if err := n.publisher.Publish(ctx, routingKey, alert); err != nil {
		n.logger.Error("alert publish failed", "kind", alert.Kind, "vehicle_id", alert.VehicleID, "error", err)
		return
	}
	if n.stats != nil {
		n.stats.IncAlertsPublished()
	}

	n.logger.Warn("alert emitted",
		"kind", alert.Kind,
		"tenant_id", alert.TenantID,
		"vehicle_id", alert.VehicleID,
		"value", alert.Value,
	)
}
