package refund

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"restaurant-system/internal/database"
	"restaurant-system/internal/errs"
	"restaurant-system/internal/models"
)

// PostgresStore implements PaymentStore on the shared connection pool.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates the PostgreSQL-backed payment store.
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetPaymentByOrder(ctx context.Context, orderID int64) (*models.Payment, error) {
	pay := &models.Payment{}
	err := s.db.QueryRow(ctx, database.GetPaymentByOrderSQL, orderID).Scan(
		&pay.ID, &pay.OrderID, &pay.Amount, &pay.Method, &pay.ExternalRef, &pay.Refunded,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: payment for order %d", errs.ErrNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("get payment by order: %w", err)
	}
	return pay, nil
}

func (s *PostgresStore) MarkPaymentRefunded(ctx context.Context, paymentID int64) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx, database.MarkPaymentRefundedSQL, paymentID)
	if err != nil {
		return false, fmt.Errorf("mark payment refunded: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

var _ PaymentStore = (*PostgresStore)(nil)
