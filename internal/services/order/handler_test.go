package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-system/internal/cache"
	"restaurant-system/internal/errs"
	"restaurant-system/internal/logger"
	"restaurant-system/internal/models"
)

type stubService struct {
	createResult *CreateOrderResult
	createErr    error
	createCalls  int

	updateView *models.OrderView
	updateErr  error

	getView *models.OrderView
	getErr  error
}

func (s *stubService) CreateOrder(ctx context.Context, actor models.Actor, lines []models.OrderLine, payment models.PaymentInfo, note, requestID string) (*CreateOrderResult, error) {
	s.createCalls++
	return s.createResult, s.createErr
}

func (s *stubService) UpdateStatus(ctx context.Context, orderID int64, status models.OrderStatus, requestID string) (*models.OrderView, error) {
	return s.updateView, s.updateErr
}

func (s *stubService) GetOrder(ctx context.Context, orderID int64) (*models.OrderView, error) {
	return s.getView, s.getErr
}

type stubRefunder struct {
	confirmation *models.RefundConfirmation
	err          error
}

func (s *stubRefunder) Refund(ctx context.Context, orderID int64) (*models.RefundConfirmation, error) {
	return s.confirmation, s.err
}

// memIdem is a map-backed idempotency store for handler tests.
type memIdem struct {
	locks map[string]bool
	saved map[string]int64
	fail  bool
}

func newMemIdem() *memIdem {
	return &memIdem{locks: make(map[string]bool), saved: make(map[string]int64)}
}

func (m *memIdem) TryLock(ctx context.Context, scope, key string) (bool, error) {
	if m.fail {
		return false, errors.New("store unreachable")
	}
	k := scope + ":" + key
	if m.locks[k] {
		return false, nil
	}
	m.locks[k] = true
	return true, nil
}

func (m *memIdem) Remember(ctx context.Context, scope, key string, orderID int64) error {
	if m.fail {
		return errors.New("store unreachable")
	}
	m.saved[scope+":"+key] = orderID
	return nil
}

func (m *memIdem) Recall(ctx context.Context, scope, key string) (int64, bool, error) {
	if m.fail {
		return 0, false, errors.New("store unreachable")
	}
	id, ok := m.saved[scope+":"+key]
	return id, ok, nil
}

func testHandler(service OrderService, refunder Refunder, idem *memIdem) http.Handler {
	var store cache.IdempotencyStore
	if idem != nil {
		store = idem
	}
	h := NewHandler(service, refunder, store, logger.New("test", "error", ""))
	return h.Routes()
}

func createOrderBody() string {
	return `{
		"items": [
			{"item_id": 5, "quantity": 2, "unit_price": "6.50"},
			{"item_id": 9, "quantity": 1, "unit_price": "4.50"}
		],
		"payment": {"method": "cash", "amount": "17.50"},
		"note": "no onions"
	}`
}

func newCreateRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	req.Header.Set("X-Actor-ID", "7")
	req.Header.Set("X-Actor-Role", "customer")
	req.Header.Set("X-Actor-Name", "Alice")
	return req
}

func TestCreateOrderHandler_Created(t *testing.T) {
	service := &stubService{createResult: &CreateOrderResult{OrderID: 42}}
	router := testHandler(service, &stubRefunder{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newCreateRequest(createOrderBody()))

	require.Equal(t, http.StatusCreated, rec.Code)
	var result CreateOrderResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.EqualValues(t, 42, result.OrderID)
}

func TestCreateOrderHandler_MissingActorHeaders(t *testing.T) {
	service := &stubService{createResult: &CreateOrderResult{OrderID: 42}}
	router := testHandler(service, &stubRefunder{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(createOrderBody()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, service.createCalls)
}

func TestCreateOrderHandler_UnknownRoleHeader(t *testing.T) {
	router := testHandler(&stubService{}, &stubRefunder{}, nil)

	req := newCreateRequest(createOrderBody())
	req.Header.Set("X-Actor-Role", "manager")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrderHandler_MalformedBody(t *testing.T) {
	router := testHandler(&stubService{}, &stubRefunder{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newCreateRequest(`{"items": [`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrderHandler_UnknownFieldRejected(t *testing.T) {
	router := testHandler(&stubService{}, &stubRefunder{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newCreateRequest(`{"items": [], "payment": {}, "surprise": true}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrderHandler_ErrorMapping(t *testing.T) {
	tests := map[string]struct {
		err  error
		want int
	}{
		"validation":  {errs.Validation("items", "order must contain at least one item"), http.StatusBadRequest},
		"not found":   {errs.NotFound("order", 9), http.StatusNotFound},
		"conflict":    {fmt.Errorf("%w: duplicate", errs.ErrConflict), http.StatusConflict},
		"policy":      {fmt.Errorf("%w: cash payments are not refundable", errs.ErrPolicy), http.StatusUnprocessableEntity},
		"referential": {fmt.Errorf("%w: unknown item", errs.ErrReferential), http.StatusUnprocessableEntity},
		"dependency":  {fmt.Errorf("%w: gateway timeout", errs.ErrDependency), http.StatusBadGateway},
		"internal":    {fmt.Errorf("%w: order could not be created", errs.ErrInternal), http.StatusInternalServerError},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			router := testHandler(&stubService{createErr: tt.err}, &stubRefunder{}, nil)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, newCreateRequest(createOrderBody()))

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCreateOrderHandler_InternalErrorIsGeneric(t *testing.T) {
	service := &stubService{createErr: fmt.Errorf("%w: pq: deadlock detected", errs.ErrInternal)}
	router := testHandler(service, &stubRefunder{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newCreateRequest(createOrderBody()))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "deadlock")
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestCreateOrderHandler_IdempotentReplay(t *testing.T) {
	service := &stubService{createResult: &CreateOrderResult{OrderID: 42}}
	idem := newMemIdem()
	router := testHandler(service, &stubRefunder{}, idem)

	first := newCreateRequest(createOrderBody())
	first.Header.Set("X-Idempotency-Key", "key-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, first)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, service.createCalls)

	// replay with the same key returns the recorded order without a
	// second service call
	second := newCreateRequest(createOrderBody())
	second.Header.Set("X-Idempotency-Key", "key-1")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, second)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, service.createCalls)

	var result CreateOrderResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.EqualValues(t, 42, result.OrderID)
}

func TestCreateOrderHandler_ConcurrentDuplicateConflicts(t *testing.T) {
	service := &stubService{createResult: &CreateOrderResult{OrderID: 42}}
	idem := newMemIdem()
	// the key is locked but no result was recorded yet, as if the first
	// request is still in flight
	idem.locks["customer:7:key-1"] = true
	router := testHandler(service, &stubRefunder{}, idem)

	req := newCreateRequest(createOrderBody())
	req.Header.Set("X-Idempotency-Key", "key-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, service.createCalls)
}

func TestCreateOrderHandler_IdemStoreDownDegrades(t *testing.T) {
	service := &stubService{createResult: &CreateOrderResult{OrderID: 42}}
	idem := newMemIdem()
	idem.fail = true
	router := testHandler(service, &stubRefunder{}, idem)

	req := newCreateRequest(createOrderBody())
	req.Header.Set("X-Idempotency-Key", "key-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// orders keep flowing when the idempotency store is unreachable
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, service.createCalls)
}

func TestGetOrderHandler(t *testing.T) {
	name := "Alice"
	view := &models.OrderView{
		Order: models.Order{
			ID:          42,
			TotalAmount: decimal.RequireFromString("17.50"),
			Status:      models.StatusPending,
		},
		CustomerName: &name,
		Items: []models.OrderViewItem{
			{ItemID: 5, Name: "Margherita", Quantity: 2, Subtotal: decimal.RequireFromString("13.00")},
		},
	}
	router := testHandler(&stubService{getView: view}, &stubRefunder{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/42", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"customer_name":"Alice"`)
	assert.Contains(t, rec.Body.String(), `"Margherita"`)
}

func TestGetOrderHandler_BadID(t *testing.T) {
	router := testHandler(&stubService{}, &stubRefunder{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrderHandler_NotFound(t *testing.T) {
	router := testHandler(&stubService{getErr: errs.NotFound("order", 99)}, &stubRefunder{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/99", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateStatusHandler(t *testing.T) {
	view := &models.OrderView{Order: models.Order{ID: 42, Status: models.StatusAccepted}}
	router := testHandler(&stubService{updateView: view}, &stubRefunder{}, nil)

	req := httptest.NewRequest(http.MethodPatch, "/orders/42/status", strings.NewReader(`{"status": "Accepted"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"Accepted"`)
}

func TestUpdateStatusHandler_Conflict(t *testing.T) {
	svc := &stubService{updateErr: fmt.Errorf("%w: illegal transition", errs.ErrConflict)}
	router := testHandler(svc, &stubRefunder{}, nil)

	req := httptest.NewRequest(http.MethodPatch, "/orders/42/status", strings.NewReader(`{"status": "Pending"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRefundHandler(t *testing.T) {
	refunder := &stubRefunder{confirmation: &models.RefundConfirmation{
		OrderID:  42,
		RefundID: "re_123",
		Amount:   decimal.RequireFromString("17.50"),
	}}
	router := testHandler(&stubService{}, refunder, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders/42/refund", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"refund_id":"re_123"`)
}

func TestRefundHandler_ErrorMapping(t *testing.T) {
	tests := map[string]struct {
		err  error
		want int
	}{
		"cash not refundable": {fmt.Errorf("%w: cash payments are not refundable", errs.ErrPolicy), http.StatusUnprocessableEntity},
		"already refunded":    {fmt.Errorf("%w: already refunded", errs.ErrConflict), http.StatusConflict},
		"gateway down":        {fmt.Errorf("%w: connect: connection refused", errs.ErrDependency), http.StatusBadGateway},
		"no payment":          {errs.NotFound("payment", 42), http.StatusNotFound},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			router := testHandler(&stubService{}, &stubRefunder{err: tt.err}, nil)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders/42/refund", nil))

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHealthCheck(t *testing.T) {
	router := testHandler(&stubService{}, &stubRefunder{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
