package database

// Order queries
const (
	InsertOrderSQL = `
		INSERT INTO orders (customer_id, staff_id, total_amount, status, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING order_id, order_date`

	InsertOrderItemSQL = `
		INSERT INTO order_items (order_id, item_id, quantity, subtotal)
		VALUES ($1, $2, $3, $4)`

	UpdateOrderStatusSQL = `
		UPDATE orders SET status = $1
		WHERE order_id = $2`

	UpdateOrderStatusIfSQL = `
		UPDATE orders SET status = $1
		WHERE order_id = $2 AND status = $3`

	GetOrderStatusSQL = `
		SELECT status FROM orders WHERE order_id = $1`

	GetOrderViewSQL = `
		SELECT o.order_id, o.customer_id, o.staff_id, o.total_amount, o.status,
		       o.note, o.order_date, c.name, c.email, s.name
		FROM orders o
		LEFT JOIN customers c ON c.customer_id = o.customer_id
		LEFT JOIN staff s ON s.staff_id = o.staff_id
		WHERE o.order_id = $1`

	GetOrderViewItemsSQL = `
		SELECT oi.item_id, m.name, m.price, oi.quantity, oi.subtotal
		FROM order_items oi
		JOIN menu_items m ON m.item_id = oi.item_id
		WHERE oi.order_id = $1
		ORDER BY oi.order_item_id ASC`
)

// Payment queries
const (
	InsertPaymentSQL = `
		INSERT INTO payments (order_id, amount, method, payment_id_external)
		VALUES ($1, $2, $3, $4)
		RETURNING payment_id`

	GetPaymentByOrderSQL = `
		SELECT payment_id, order_id, amount, method, payment_id_external, refunded
		FROM payments WHERE order_id = $1`

	MarkPaymentRefundedSQL = `
		UPDATE payments SET refunded = true
		WHERE payment_id = $1 AND refunded = false`
)

// Cart queries. The cart row is locked during order creation so two
// concurrent orders from the same customer cannot race on the clear.
const (
	GetCartForUpdateSQL = `
		SELECT cart_id FROM carts WHERE customer_id = $1 FOR UPDATE`

	ClearCartItemsSQL = `
		DELETE FROM cart_items WHERE cart_id = $1`
)
