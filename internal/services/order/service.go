package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"

	"restaurant-system/internal/errs"
	"restaurant-system/internal/logger"
	"restaurant-system/internal/models"
)

// cashRefPrefix marks generated identifiers for cash payments, which
// have no gateway token but must stay uniquely addressable.
const cashRefPrefix = "CASH-"

// Config carries the order-core behavior knobs.
type Config struct {
	// EnforceTransitions rejects status changes whose current state is
	// not a legal predecessor of the target state.
	EnforceTransitions bool
	// MaxConcurrent bounds how many order creations run at once.
	MaxConcurrent int
	// SideEffectTimeout bounds post-commit event and notification
	// dispatch so a slow broker never holds a request hostage.
	SideEffectTimeout time.Duration
}

// Service implements order creation and the status transition machine.
// Results always reflect durable store state only; events and
// notifications happen after commit and may be lost.
type Service struct {
	store    Store
	bus      EventBus
	notifier Notifier
	logger   *logger.Logger

	sem                *semaphore.Weighted
	enforceTransitions bool
	sideEffectTimeout  time.Duration
}

// NewService wires the order service.
func NewService(store Store, bus EventBus, notifier Notifier, log *logger.Logger, cfg Config) *Service {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 50
	}
	if cfg.SideEffectTimeout <= 0 {
		cfg.SideEffectTimeout = 2 * time.Second
	}
	return &Service{
		store:              store,
		bus:                bus,
		notifier:           notifier,
		logger:             log,
		sem:                semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		enforceTransitions: cfg.EnforceTransitions,
		sideEffectTimeout:  cfg.SideEffectTimeout,
	}
}

// CreateOrder builds and commits a new order atomically: the order row,
// its items, its single payment, and (for customer actors) the cart
// clear all land in one transaction or not at all.
func (s *Service) CreateOrder(ctx context.Context, actor models.Actor, lines []models.OrderLine, payment models.PaymentInfo, note, requestID string) (*CreateOrderResult, error) {
	if err := ValidateCreateOrder(actor, lines, payment); err != nil {
		return nil, err
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire order slot: %w", err)
	}
	defer s.sem.Release(1)

	var customerID, staffID *int64
	if actor.Role == models.RoleCustomer {
		id := actor.ID
		customerID = &id
	} else {
		id := actor.ID
		staffID = &id
	}

	items := make([]models.OrderItem, 0, len(lines))
	total := decimal.Zero
	for _, ln := range lines {
		subtotal := ln.UnitPrice.Mul(decimal.NewFromInt(int64(ln.Quantity)))
		items = append(items, models.OrderItem{
			ItemID:   ln.ItemID,
			Quantity: ln.Quantity,
			Subtotal: subtotal,
		})
		total = total.Add(subtotal)
	}

	externalRef := payment.GatewayRef
	if payment.Method == models.MethodCash {
		externalRef = cashRefPrefix + uuid.NewString()
	}

	ord := &models.Order{
		CustomerID:  customerID,
		StaffID:     staffID,
		TotalAmount: total,
		Status:      models.StatusPending,
		Note:        note,
	}
	pay := &models.Payment{
		Amount:      payment.Amount,
		Method:      payment.Method,
		ExternalRef: externalRef,
	}

	orderID, err := s.store.CreateOrder(ctx, ord, items, pay, customerID)
	if err != nil {
		if errors.Is(err, errs.ErrReferential) {
			return nil, err
		}
		s.logger.Error("order_creation_failed", "Order transaction rolled back", requestID, err, map[string]interface{}{
			"actor_id":   actor.ID,
			"actor_role": string(actor.Role),
		})
		return nil, fmt.Errorf("%w: order could not be created", errs.ErrInternal)
	}

	s.logger.Info("order_created", fmt.Sprintf("Order %d created", orderID), requestID, map[string]interface{}{
		"order_id":     orderID,
		"total_amount": total.String(),
		"method":       string(payment.Method),
	})

	s.afterCreate(ord, requestID)

	return &CreateOrderResult{OrderID: orderID, CustomerID: customerID, StaffID: staffID}, nil
}

// afterCreate runs the post-commit side effects. The order is already
// durable; nothing here may change the reported outcome.
func (s *Service) afterCreate(ord *models.Order, requestID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.sideEffectTimeout)
	defer cancel()

	s.bus.Emit(ctx, models.NewOrderEvent(models.EventOrderCreated, ord))

	if ord.CustomerID == nil {
		return
	}

	view, err := s.store.GetOrderView(ctx, ord.ID)
	if err != nil {
		s.logger.Error("notification_skipped", "Could not load order view for notification", requestID, err,
			map[string]interface{}{"order_id": ord.ID})
		return
	}
	if view.CustomerEmail == nil {
		return
	}
	s.notifier.Notify(ctx, *view.CustomerEmail, models.NotifyOrderPending, view)
}

// statusSuccessors lists the legal targets per state. Completed and
// Cancelled are terminal. Only consulted when the transition guard is
// enabled.
var statusSuccessors = map[models.OrderStatus][]models.OrderStatus{
	models.StatusPending:  {models.StatusAccepted, models.StatusCancelled},
	models.StatusAccepted: {models.StatusCompleted, models.StatusCancelled},
}

func legalTransition(from, to models.OrderStatus) bool {
	for _, next := range statusSuccessors[from] {
		if next == to {
			return true
		}
	}
	return false
}

// UpdateStatus validates and applies a status transition, then returns
// the denormalized order view. The status write is a single statement;
// notification and event dispatch happen after it commits and never
// roll it back.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, newStatus models.OrderStatus, requestID string) (*models.OrderView, error) {
	if !newStatus.Valid() {
		return nil, errs.Validation("status", fmt.Sprintf("unknown status %q", newStatus))
	}

	if s.enforceTransitions {
		current, err := s.store.GetOrderStatus(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if !legalTransition(current, newStatus) {
			return nil, fmt.Errorf("%w: order %d cannot move from %s to %s", errs.ErrConflict, orderID, current, newStatus)
		}
		applied, err := s.store.UpdateStatusIf(ctx, orderID, current, newStatus)
		if err != nil {
			return nil, err
		}
		if !applied {
			return nil, fmt.Errorf("%w: order %d status changed concurrently", errs.ErrConflict, orderID)
		}
	} else {
		if err := s.store.UpdateStatus(ctx, orderID, newStatus); err != nil {
			return nil, err
		}
	}

	view, err := s.store.GetOrderView(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order_status_updated", fmt.Sprintf("Order %d moved to %s", orderID, newStatus), requestID,
		map[string]interface{}{"order_id": orderID, "status": string(newStatus)})

	s.afterStatusChange(view)

	return view, nil
}

func (s *Service) afterStatusChange(view *models.OrderView) {
	ctx, cancel := context.WithTimeout(context.Background(), s.sideEffectTimeout)
	defer cancel()

	s.bus.Emit(ctx, models.NewOrderEvent(models.EventOrderStatusChanged, &view.Order))

	if view.Status == models.StatusPending || view.CustomerEmail == nil {
		return
	}
	s.notifier.Notify(ctx, *view.CustomerEmail, models.NotifyOrderStatus, view)
}

// GetOrder returns the denormalized view of an order.
func (s *Service) GetOrder(ctx context.Context, orderID int64) (*models.OrderView, error) {
	return s.store.GetOrderView(ctx, orderID)
}
