package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"restaurant-system/internal/cache"
	"restaurant-system/internal/errs"
	"restaurant-system/internal/logger"
	"restaurant-system/internal/models"
)

// OrderService is the slice of *Service the handlers need.
// Narrow interface for testability.
type OrderService interface {
	CreateOrder(ctx context.Context, actor models.Actor, lines []models.OrderLine, payment models.PaymentInfo, note, requestID string) (*CreateOrderResult, error)
	UpdateStatus(ctx context.Context, orderID int64, status models.OrderStatus, requestID string) (*models.OrderView, error)
	GetOrder(ctx context.Context, orderID int64) (*models.OrderView, error)
}

// Refunder is satisfied by the refund processor.
type Refunder interface {
	Refund(ctx context.Context, orderID int64) (*models.RefundConfirmation, error)
}

// Handler handles HTTP requests for the order service. The actor
// identity arrives in headers set by the upstream authentication layer.
type Handler struct {
	service  OrderService
	refunder Refunder
	idem     cache.IdempotencyStore // nil when Redis is not configured
	logger   *logger.Logger
}

// NewHandler creates a new order handler.
func NewHandler(service OrderService, refunder Refunder, idem cache.IdempotencyStore, log *logger.Logger) *Handler {
	return &Handler{service: service, refunder: refunder, idem: idem, logger: log}
}

type createOrderRequest struct {
	Items   []models.OrderLine `json:"items"`
	Payment models.PaymentInfo `json:"payment"`
	Note    string             `json:"note"`
}

type updateStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

// Routes builds the HTTP router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(h.requestLogging)

	r.Get("/health", h.HealthCheck)
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/{id}", h.GetOrder)
		r.Patch("/{id}/status", h.UpdateStatus)
		r.Post("/{id}/refund", h.RefundOrder)
	})

	return r
}

// CreateOrder handles POST /orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	actor, err := actorFromRequest(r)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	var req createOrderRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.writeError(w, requestID, errs.Validation("body", "invalid JSON payload"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	idemKey := r.Header.Get("X-Idempotency-Key")
	idemScope := fmt.Sprintf("%s:%d", actor.Role, actor.ID)
	if h.idem != nil && idemKey != "" {
		if orderID, ok, err := h.idem.Recall(ctx, idemScope, idemKey); err == nil && ok {
			h.writeJSON(w, http.StatusOK, &CreateOrderResult{OrderID: orderID})
			return
		}
		locked, err := h.idem.TryLock(ctx, idemScope, idemKey)
		if err != nil {
			// idempotency store down: degrade to non-idempotent rather
			// than refusing orders
			h.logger.Error("idempotency_unavailable", "Idempotency store unreachable", requestID, err, nil)
		} else if !locked {
			h.writeError(w, requestID, fmt.Errorf("%w: duplicate order submission", errs.ErrConflict))
			return
		}
	}

	result, err := h.service.CreateOrder(ctx, actor, req.Items, req.Payment, req.Note, requestID)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	if h.idem != nil && idemKey != "" {
		if err := h.idem.Remember(ctx, idemScope, idemKey, result.OrderID); err != nil {
			h.logger.Error("idempotency_record_failed", "Could not record idempotency key", requestID, err, nil)
		}
	}

	h.writeJSON(w, http.StatusCreated, result)
}

// GetOrder handles GET /orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	orderID, err := orderIDFrom(r)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	view, err := h.service.GetOrder(ctx, orderID)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	orderID, err := orderIDFrom(r)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, requestID, errs.Validation("body", "invalid JSON payload"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	view, err := h.service.UpdateStatus(ctx, orderID, req.Status, requestID)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// RefundOrder handles POST /orders/{id}/refund.
func (h *Handler) RefundOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	orderID, err := orderIDFrom(r)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	confirmation, err := h.refunder.Refund(ctx, orderID)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	h.writeJSON(w, http.StatusOK, confirmation)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"service":   "order-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func actorFromRequest(r *http.Request) (models.Actor, error) {
	id, err := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	if err != nil || id <= 0 {
		return models.Actor{}, errs.Validation("actor.id", "missing or malformed X-Actor-ID header")
	}
	role := models.Role(r.Header.Get("X-Actor-Role"))
	if !role.Valid() {
		return models.Actor{}, errs.Validation("actor.role", "missing or malformed X-Actor-Role header")
	}
	return models.Actor{ID: id, Role: role, Name: r.Header.Get("X-Actor-Name")}, nil
}

func orderIDFrom(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Validation("order_id", "order id must be a positive integer")
	}
	return id, nil
}

func requestIDFrom(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey{}).(string); ok {
		return id
	}
	return logger.GenerateRequestID()
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("response_encoding_failed", "Failed to encode response", "", err, nil)
	}
}

// writeError maps the error taxonomy to HTTP status codes. Internal
// faults go out with a generic message; the detail stays in the logs.
func (h *Handler) writeError(w http.ResponseWriter, requestID string, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errs.IsValidation(err):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, errs.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, errs.ErrConflict):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, errs.ErrPolicy):
		status, message = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, errs.ErrReferential):
		status, message = http.StatusUnprocessableEntity, "unknown item or account reference"
	case errors.Is(err, errs.ErrDependency):
		status, message = http.StatusBadGateway, "upstream dependency unavailable"
	default:
		h.logger.Error("request_failed", "Unhandled error", requestID, err, nil)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":      message,
		"request_id": requestID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

type requestIDKey struct{}

// requestLogging assigns a request id and logs request/response pairs.
func (h *Handler) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := logger.GenerateRequestID()
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, requestID))

		h.logger.Debug("request_started",
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			requestID, map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
			})

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		h.logger.Debug("request_completed",
			fmt.Sprintf("%s %s - %d", r.Method, r.URL.Path, rw.status),
			requestID, map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": rw.status,
				"duration_ms": time.Since(start).Milliseconds(),
			})
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
