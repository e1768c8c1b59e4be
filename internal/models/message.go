package models

import "time"

// Event names published to the order events exchange.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// Notification template kinds.
const (
	NotifyOrderPending = "order_pending"
	NotifyOrderStatus  = "order_status"
)

// OrderEvent is the payload broadcast on the events exchange after a
// durable order mutation. Consumed by dashboards; delivery is best effort.
type OrderEvent struct {
	Event       string      `json:"event"`
	OrderID     int64       `json:"order_id"`
	CustomerID  *int64      `json:"customer_id,omitempty"`
	StaffID     *int64      `json:"staff_id,omitempty"`
	Status      OrderStatus `json:"status"`
	TotalAmount string      `json:"total_amount"`
	Timestamp   time.Time   `json:"timestamp"`
}

// NotificationMessage is the payload handed to the notification dispatcher
// for customer emails. Template rendering happens downstream.
type NotificationMessage struct {
	Email     string     `json:"email"`
	Kind      string     `json:"kind"`
	Order     *OrderView `json:"order"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewOrderEvent builds an OrderEvent from a persisted order.
func NewOrderEvent(event string, o *Order) *OrderEvent {
	return &OrderEvent{
		Event:       event,
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		StaffID:     o.StaffID,
		Status:      o.Status,
		TotalAmount: o.TotalAmount.String(),
		Timestamp:   time.Now().UTC(),
	}
}

// RoutingKey returns the routing key for the event on the topic exchange.
func (e *OrderEvent) RoutingKey() string {
	return e.Event
}
