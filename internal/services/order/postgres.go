package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"restaurant-system/internal/database"
	"restaurant-system/internal/errs"
	"restaurant-system/internal/models"
)

const pgForeignKeyViolation = "23503"

// PostgresStore implements Store on the shared connection pool.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates the PostgreSQL-backed order store.
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateOrder runs the whole order write path in one transaction. Any
// failure rolls everything back; no partial order, items, or payment can
// be observed.
func (s *PostgresStore) CreateOrder(ctx context.Context, ord *models.Order, items []models.OrderItem, pay *models.Payment, clearCartCustomerID *int64) (int64, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin order transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, database.InsertOrderSQL,
		ord.CustomerID, ord.StaffID, ord.TotalAmount, ord.Status, ord.Note,
	).Scan(&ord.ID, &ord.OrderDate)
	if err != nil {
		return 0, classifyPgError("insert order", err)
	}

	for i := range items {
		items[i].OrderID = ord.ID
		if _, err := tx.Exec(ctx, database.InsertOrderItemSQL,
			ord.ID, items[i].ItemID, items[i].Quantity, items[i].Subtotal); err != nil {
			return 0, classifyPgError("insert order item", err)
		}
	}

	pay.OrderID = ord.ID
	if err := tx.QueryRow(ctx, database.InsertPaymentSQL,
		ord.ID, pay.Amount, pay.Method, pay.ExternalRef,
	).Scan(&pay.ID); err != nil {
		return 0, classifyPgError("insert payment", err)
	}

	if clearCartCustomerID != nil {
		var cartID int64
		err := tx.QueryRow(ctx, database.GetCartForUpdateSQL, *clearCartCustomerID).Scan(&cartID)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			// customer has no cart row yet, nothing to clear
		case err != nil:
			return 0, classifyPgError("lock cart", err)
		default:
			if _, err := tx.Exec(ctx, database.ClearCartItemsSQL, cartID); err != nil {
				return 0, classifyPgError("clear cart items", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit order transaction: %w", err)
	}

	return ord.ID, nil
}

func (s *PostgresStore) GetOrderStatus(ctx context.Context, orderID int64) (models.OrderStatus, error) {
	var status models.OrderStatus
	err := s.db.QueryRow(ctx, database.GetOrderStatusSQL, orderID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", errs.NotFound("order", orderID)
	}
	if err != nil {
		return "", fmt.Errorf("get order status: %w", err)
	}
	return status, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, orderID int64, status models.OrderStatus) error {
	tag, err := s.db.Pool.Exec(ctx, database.UpdateOrderStatusSQL, status, orderID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("order", orderID)
	}
	return nil
}

func (s *PostgresStore) UpdateStatusIf(ctx context.Context, orderID int64, from, to models.OrderStatus) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx, database.UpdateOrderStatusIfSQL, to, orderID, from)
	if err != nil {
		return false, fmt.Errorf("conditional status update: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) GetOrderView(ctx context.Context, orderID int64) (*models.OrderView, error) {
	view := &models.OrderView{}
	err := s.db.QueryRow(ctx, database.GetOrderViewSQL, orderID).Scan(
		&view.ID, &view.CustomerID, &view.StaffID, &view.TotalAmount, &view.Status,
		&view.Note, &view.OrderDate, &view.CustomerName, &view.CustomerEmail, &view.StaffName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("order", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("get order view: %w", err)
	}

	rows, err := s.db.Query(ctx, database.GetOrderViewItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order view items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderViewItem
		if err := rows.Scan(&item.ItemID, &item.Name, &item.Price, &item.Quantity, &item.Subtotal); err != nil {
			return nil, fmt.Errorf("scan order view item: %w", err)
		}
		view.Items = append(view.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order view items: %w", err)
	}

	return view, nil
}

// classifyPgError surfaces foreign key violations as referential errors
// so an unknown item or account id is distinguishable from a generic
// persistence fault.
func classifyPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return fmt.Errorf("%w: %s: %s", errs.ErrReferential, op, pgErr.ConstraintName)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ Store = (*PostgresStore)(nil)
