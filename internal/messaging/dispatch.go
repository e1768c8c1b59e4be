package messaging

import (
	"context"
	"fmt"
	"time"

	"restaurant-system/internal/logger"
	"restaurant-system/internal/models"
)

// EventBus broadcasts order lifecycle events on the topic exchange.
// Emission is fire-and-forget: failures are logged and the message is
// dropped, callers never see the error.
type EventBus struct {
	pub    *Publisher
	logger *logger.Logger
}

// NewEventBus creates an EventBus on top of a publisher.
func NewEventBus(pub *Publisher, log *logger.Logger) *EventBus {
	return &EventBus{pub: pub, logger: log}
}

// Emit publishes the event under its routing key.
func (b *EventBus) Emit(ctx context.Context, event *models.OrderEvent) {
	if err := b.pub.PublishEvent(ctx, event.RoutingKey(), event); err != nil {
		b.logger.Error("event_emit_failed",
			fmt.Sprintf("Dropped %s event for order %d", event.Event, event.OrderID),
			"", err, map[string]interface{}{"event": event.Event, "order_id": event.OrderID})
	}
}

// Notifier dispatches customer notifications through the fanout
// exchange. Best effort: the boolean result is informational only.
type Notifier struct {
	pub    *Publisher
	logger *logger.Logger
}

// NewNotifier creates a Notifier on top of a publisher.
func NewNotifier(pub *Publisher, log *logger.Logger) *Notifier {
	return &Notifier{pub: pub, logger: log}
}

// Notify queues a notification for the given email address. Returns
// false when the message could not be handed to the broker.
func (n *Notifier) Notify(ctx context.Context, email, kind string, view *models.OrderView) bool {
	msg := &models.NotificationMessage{
		Email:     email,
		Kind:      kind,
		Order:     view,
		Timestamp: time.Now().UTC(),
	}
	if err := n.pub.PublishNotification(ctx, msg); err != nil {
		n.logger.Error("notification_dispatch_failed",
			fmt.Sprintf("Dropped %s notification for order %d", kind, view.ID),
			"", err, map[string]interface{}{"kind": kind, "order_id": view.ID})
		return false
	}
	return true
}
