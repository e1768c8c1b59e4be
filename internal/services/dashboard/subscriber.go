// Package dashboard consumes order lifecycle events from the topic
// exchange and renders a live feed for operators.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"

	"restaurant-system/internal/logger"
	"restaurant-system/internal/messaging"
	"restaurant-system/internal/models"
)

// Subscriber consumes broadcast order events.
type Subscriber struct {
	consumer *messaging.Consumer
	logger   *logger.Logger
}

// NewSubscriber creates a dashboard subscriber.
func NewSubscriber(consumer *messaging.Consumer, log *logger.Logger) *Subscriber {
	return &Subscriber{consumer: consumer, logger: log}
}

// Start consumes events until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	s.logger.Info("service_started", "Dashboard subscriber started", requestID, nil)
	return s.consumer.StartConsuming(ctx, s.handleEvent)
}

func (s *Subscriber) handleEvent(ctx context.Context, body []byte) error {
	requestID := logger.GenerateRequestID()

	var event models.OrderEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.logger.Error("message_parsing_failed", "Failed to parse order event", requestID, err, nil)
		return fmt.Errorf("parse order event: %w", err)
	}

	fmt.Printf("[%s] order #%d  %-16s status=%s total=%s\n",
		event.Timestamp.Format("15:04:05"), event.OrderID, event.Event, event.Status, event.TotalAmount)

	s.logger.Debug("dashboard_event", fmt.Sprintf("Order %d %s", event.OrderID, event.Event), requestID,
		map[string]interface{}{
			"event":    event.Event,
			"order_id": event.OrderID,
			"status":   string(event.Status),
		})
	return nil
}
