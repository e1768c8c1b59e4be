// Package refund coordinates the relational store and the payment
// gateway when a card payment is refunded.
package refund

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"restaurant-system/internal/errs"
	"restaurant-system/internal/gateway"
	"restaurant-system/internal/logger"
	"restaurant-system/internal/models"
)

// PaymentStore is the persistence port for refunds.
type PaymentStore interface {
	GetPaymentByOrder(ctx context.Context, orderID int64) (*models.Payment, error)

	// MarkPaymentRefunded flips the refunded flag with a conditional
	// update that only matches the not-refunded row. Returns false when
	// another request already won the flip.
	MarkPaymentRefunded(ctx context.Context, paymentID int64) (bool, error)
}

// Processor validates and executes refunds. A gateway failure leaves the
// payment untouched so the operation stays safely retryable; the
// conditional flag update makes concurrent duplicates lose with a
// conflict instead of double-refunding.
type Processor struct {
	store   PaymentStore
	gateway gateway.PaymentGateway
	logger  *logger.Logger
	timeout time.Duration
}

// NewProcessor wires the refund processor. timeout bounds the gateway call.
func NewProcessor(store PaymentStore, gw gateway.PaymentGateway, log *logger.Logger, timeout time.Duration) *Processor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Processor{store: store, gateway: gw, logger: log, timeout: timeout}
}

var minorUnitFactor = decimal.NewFromInt(100)

// Refund refunds the single payment attached to the order.
// Preconditions are checked in order and each short-circuits with a
// distinct error; cash payments are never refundable.
func (p *Processor) Refund(ctx context.Context, orderID int64) (*models.RefundConfirmation, error) {
	pay, err := p.store.GetPaymentByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if pay.Method != models.MethodCard {
		return nil, fmt.Errorf("%w: %s payments are not refundable", errs.ErrPolicy, pay.Method)
	}
	if pay.ExternalRef == "" {
		return nil, fmt.Errorf("%w: payment %d has no gateway reference", errs.ErrInternal, pay.ID)
	}
	if pay.Refunded {
		return nil, fmt.Errorf("%w: payment for order %d already refunded", errs.ErrConflict, orderID)
	}

	amountMinor := pay.Amount.Mul(minorUnitFactor).Round(0).IntPart()

	gwCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	refundID, err := p.gateway.CreateRefund(gwCtx, pay.ExternalRef, amountMinor)
	if err != nil {
		// no database mutation: the payment stays unrefunded and the
		// caller may retry
		p.logger.Error("refund_gateway_failed", fmt.Sprintf("Gateway refund failed for order %d", orderID), "", err,
			map[string]interface{}{"order_id": orderID, "payment_id": pay.ID})
		return nil, err
	}

	applied, err := p.store.MarkPaymentRefunded(ctx, pay.ID)
	if err != nil {
		return nil, fmt.Errorf("mark payment refunded: %w", err)
	}
	if !applied {
		return nil, fmt.Errorf("%w: payment for order %d already refunded", errs.ErrConflict, orderID)
	}

	p.logger.Info("refund_completed", fmt.Sprintf("Refunded order %d", orderID), "", map[string]interface{}{
		"order_id":     orderID,
		"refund_id":    refundID,
		"amount":       pay.Amount.String(),
		"amount_minor": amountMinor,
	})

	return &models.RefundConfirmation{
		OrderID:    orderID,
		RefundID:   refundID,
		Amount:     pay.Amount,
		RefundedAt: time.Now().UTC(),
	}, nil
}
