package order

import (
	"context"

	"restaurant-system/internal/models"
)

// Store is the persistence port for the order core. The PostgreSQL
// implementation lives in postgres.go; tests use in-memory fakes.
type Store interface {
	// CreateOrder persists the order, its items, and its payment in one
	// transaction. When clearCartCustomerID is set, the customer's cart
	// items are deleted inside the same transaction with the cart row
	// locked. Returns the new order id.
	CreateOrder(ctx context.Context, ord *models.Order, items []models.OrderItem, pay *models.Payment, clearCartCustomerID *int64) (int64, error)

	GetOrderStatus(ctx context.Context, orderID int64) (models.OrderStatus, error)

	// UpdateStatus applies the status unconditionally. Zero affected
	// rows surface as a not-found error.
	UpdateStatus(ctx context.Context, orderID int64, status models.OrderStatus) error

	// UpdateStatusIf applies the status only when the row still carries
	// from. Returns false when no row matched.
	UpdateStatusIf(ctx context.Context, orderID int64, from, to models.OrderStatus) (bool, error)

	GetOrderView(ctx context.Context, orderID int64) (*models.OrderView, error)
}

// EventBus broadcasts order lifecycle events. Fire-and-forget: the
// implementation absorbs and logs failures.
type EventBus interface {
	Emit(ctx context.Context, event *models.OrderEvent)
}

// Notifier dispatches a customer notification. Best effort; the boolean
// result is informational and never turns into a caller-visible error.
type Notifier interface {
	Notify(ctx context.Context, email, kind string, view *models.OrderView) bool
}

// CreateOrderResult echoes the resolved attribution alongside the id.
type CreateOrderResult struct {
	OrderID    int64  `json:"order_id"`
	CustomerID *int64 `json:"customer_id,omitempty"`
	StaffID    *int64 `json:"staff_id,omitempty"`
}
