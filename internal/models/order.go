package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role identifies who initiated an operation.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleStaff || r == RoleAdmin
}

// Actor is the verified identity handed to the core per call.
// Authentication itself happens upstream.
type Actor struct {
	ID   int64  `json:"id"`
	Role Role   `json:"role"`
	Name string `json:"name"`
}

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "Pending"
	StatusAccepted  OrderStatus = "Accepted"
	StatusCompleted OrderStatus = "Completed"
	StatusCancelled OrderStatus = "Cancelled"
)

// Valid reports whether the status is one of the four enumerated values.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// PaymentMethod distinguishes cash and card payments.
type PaymentMethod string

const (
	MethodCash PaymentMethod = "cash"
	MethodCard PaymentMethod = "card"
)

// Valid reports whether the method is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == MethodCash || m == MethodCard
}

// Order is a committed purchase request. Exactly one of CustomerID and
// StaffID is set whenever the actor role was known. Immutable after
// creation except for Status.
type Order struct {
	ID          int64           `json:"order_id" db:"order_id"`
	CustomerID  *int64          `json:"customer_id,omitempty" db:"customer_id"`
	StaffID     *int64          `json:"staff_id,omitempty" db:"staff_id"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status      OrderStatus     `json:"status" db:"status"`
	Note        string          `json:"note" db:"note"`
	OrderDate   time.Time       `json:"order_date" db:"order_date"`
}

// OrderItem is an order line, fixed at creation time. Subtotal is
// unit price times quantity at order time.
type OrderItem struct {
	ID       int64           `json:"order_item_id,omitempty" db:"order_item_id"`
	OrderID  int64           `json:"order_id,omitempty" db:"order_id"`
	ItemID   int64           `json:"item_id" db:"item_id"`
	Quantity int             `json:"quantity" db:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal" db:"subtotal"`
}

// Payment is the single financial record tied 1:1 to an order.
// Refunded only ever moves false to true.
type Payment struct {
	ID          int64           `json:"payment_id" db:"payment_id"`
	OrderID     int64           `json:"order_id" db:"order_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Method      PaymentMethod   `json:"method" db:"method"`
	ExternalRef string          `json:"payment_id_external" db:"payment_id_external"`
	Refunded    bool            `json:"refunded" db:"refunded"`
}

// Cart is a customer-scoped staging area, one per customer.
type Cart struct {
	ID         int64 `json:"cart_id" db:"cart_id"`
	CustomerID int64 `json:"customer_id" db:"customer_id"`
}

// CartItem is a staged line in a customer's cart.
type CartItem struct {
	ID       int64 `json:"cart_item_id" db:"cart_item_id"`
	CartID   int64 `json:"cart_id" db:"cart_id"`
	ItemID   int64 `json:"item_id" db:"item_id"`
	Quantity int   `json:"quantity" db:"quantity"`
}

// OrderLine is a submitted line in a create-order request. The unit price
// is client-supplied and trusted as-is; totals are recomputed from it.
type OrderLine struct {
	ItemID    int64           `json:"item_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// PaymentInfo is the payment section of a create-order request.
// GatewayRef carries the client-side gateway token for card payments.
type PaymentInfo struct {
	Method     PaymentMethod   `json:"method"`
	Amount     decimal.Decimal `json:"amount"`
	GatewayRef string          `json:"gateway_ref,omitempty"`
}

// OrderViewItem is an order line joined with its menu item.
type OrderViewItem struct {
	ItemID   int64           `json:"item_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// OrderView is the denormalized read model used by notification payloads
// and status-change responses.
type OrderView struct {
	Order
	CustomerName  *string         `json:"customer_name,omitempty"`
	CustomerEmail *string         `json:"-"`
	StaffName     *string         `json:"staff_name,omitempty"`
	Items         []OrderViewItem `json:"items"`
}

// RefundConfirmation records the outcome of a successful refund.
type RefundConfirmation struct {
	OrderID    int64           `json:"order_id"`
	RefundID   string          `json:"refund_id"`
	Amount     decimal.Decimal `json:"amount"`
	RefundedAt time.Time       `json:"refunded_at"`
}
