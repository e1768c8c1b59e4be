// Package notification is the receiving half of the notification
// dispatcher: it drains the fanout queue and hands rendered messages to
// the delivery channel. Delivery is best effort end to end.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"restaurant-system/internal/logger"
	"restaurant-system/internal/messaging"
	"restaurant-system/internal/models"
)

// Subscriber consumes queued customer notifications.
type Subscriber struct {
	consumer *messaging.Consumer
	logger   *logger.Logger
}

// NewSubscriber creates a notification subscriber.
func NewSubscriber(consumer *messaging.Consumer, log *logger.Logger) *Subscriber {
	return &Subscriber{consumer: consumer, logger: log}
}

// Start consumes notifications until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	s.logger.Info("service_started", "Notification subscriber started", requestID, nil)
	return s.consumer.StartConsuming(ctx, s.handleNotification)
}

func (s *Subscriber) handleNotification(ctx context.Context, body []byte) error {
	requestID := logger.GenerateRequestID()

	var msg models.NotificationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		s.logger.Error("message_parsing_failed", "Failed to parse notification message", requestID, err, nil)
		return fmt.Errorf("parse notification: %w", err)
	}
	if msg.Order == nil {
		s.logger.Error("message_parsing_failed", "Notification carries no order view", requestID, nil, nil)
		return fmt.Errorf("notification without order payload")
	}

	// Delivery endpoint is external; print the rendered message and log
	// the dispatch.
	fmt.Println(s.renderMessage(&msg))

	s.logger.Info("notification_delivered", "Notification handed to delivery", requestID, map[string]interface{}{
		"email":    msg.Email,
		"kind":     msg.Kind,
		"order_id": msg.Order.ID,
	})
	return nil
}

func (s *Subscriber) renderMessage(msg *models.NotificationMessage) string {
	var b strings.Builder

	switch msg.Kind {
	case models.NotifyOrderPending:
		fmt.Fprintf(&b, "To: %s\nSubject: We received your order #%d\n\n", msg.Email, msg.Order.ID)
		fmt.Fprintf(&b, "Thank you! Your order is pending confirmation.\n")
		for _, item := range msg.Order.Items {
			fmt.Fprintf(&b, "  %d x %s = %s\n", item.Quantity, item.Name, item.Subtotal.StringFixed(2))
		}
		fmt.Fprintf(&b, "Total: %s\n", msg.Order.TotalAmount.StringFixed(2))
	case models.NotifyOrderStatus:
		fmt.Fprintf(&b, "To: %s\nSubject: Order #%d update\n\n", msg.Email, msg.Order.ID)
		fmt.Fprintf(&b, "Your order is now %s.\n", msg.Order.Status)
	default:
		fmt.Fprintf(&b, "To: %s\nSubject: Order #%d\n", msg.Email, msg.Order.ID)
	}

	return b.String()
}
