package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ariefcatur/foodies-backoffice/internal/auth"
	"github.com/ariefcatur/foodies-backoffice/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "tok-1"

type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, token string) (auth.Principal, error) {
	if token != testToken {
		return auth.Principal{}, auth.ErrNoSession
	}
	return auth.Principal{UserID: 7, Username: "cajero", CompanyID: 3}, nil
}

type placeCall struct {
	attendedBy, companyID, customerID int64
	items                             []orders.LineItem
}

type fakePlacer struct {
	mu       sync.Mutex
	calls    []placeCall
	err      error
	onPlaced func()
}

func (f *fakePlacer) PlaceOrder(_ context.Context, attendedBy, companyID, customerID int64, items []orders.LineItem) (orders.OrderSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, placeCall{attendedBy, companyID, customerID, items})
	if f.err != nil {
		return orders.OrderSummary{}, f.err
	}
	if f.onPlaced != nil {
		f.onPlaced()
	}
	return orders.OrderSummary{
		OrderID:    55,
		CompanyID:  companyID,
		CustomerID: customerID,
		AttendedBy: attendedBy,
		Lines:      []orders.PlacedLine{{ProductID: items[0].ProductID, Quantity: items[0].Quantity, UnitPrice: decimal.NewFromInt(2), RemainingStock: 1}},
		Total:      decimal.NewFromInt(2),
	}, nil
}

type fakePublisher struct {
	mu      sync.Mutex
	msgs    []kafkago.Message
	ctxErrs []error
}

func (f *fakePublisher) Publish(ctx context.Context, key, value []byte, headers ...kafkago.Header) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if ctx.Err() != nil {
		return ctx.Err()
	}
	f.msgs = append(f.msgs, kafkago.Message{Key: key, Value: value, Headers: headers})
	return nil
}

type fakeIdem struct {
	state       IdemState
	completed   []int64
	completeErr error
	aborted     int
}

func (f *fakeIdem) Begin(context.Context, int64, string) (IdemState, error) { return f.state, nil }
func (f *fakeIdem) Complete(ctx context.Context, _ int64, _ string, orderID int64) error {
	if f.completeErr = ctx.Err(); f.completeErr != nil {
		return f.completeErr
	}
	f.completed = append(f.completed, orderID)
	return nil
}
func (f *fakeIdem) Abort(context.Context, int64, string) error {
	f.aborted++
	return nil
}

type harness struct {
	router *chi.Mux
	placer *fakePlacer
	pub    *fakePublisher
	idem   *fakeIdem
}

func newHarness() *harness {
	log := zerolog.New(io.Discard)
	h := &harness{placer: &fakePlacer{}, pub: &fakePublisher{}, idem: &fakeIdem{}}
	oh := &OrdersHandler{Orders: h.placer, Producer: h.pub, Idem: h.idem, Service: "foodies-test", Log: log}
	h.router = NewRouter(log)
	oh.Register(h.router, auth.Middleware(fakeResolver{}, log))
	return h
}

func (h *harness) post(t *testing.T, body string, headers map[string]string) (int, Envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/orders/api/add-order/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testToken)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	var env Envelope
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func TestAddOrderSuccess(t *testing.T) {
	h := newHarness()
	code, env := h.post(t, `{"customer": 30, "company": 99, "items": [{"product": 100, "quantity": 2}, {"product": "200", "quantity": "3"}]}`, nil)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, Envelope{Status: "success", Message: "Order created successfully"}, env)

	require.Len(t, h.placer.calls, 1)
	c := h.placer.calls[0]
	assert.Equal(t, int64(7), c.attendedBy)
	assert.Equal(t, int64(3), c.companyID, "company comes from the session, not the body")
	assert.Equal(t, int64(30), c.customerID)
	assert.Equal(t, []orders.LineItem{{ProductID: 100, Quantity: 2}, {ProductID: 200, Quantity: 3}}, c.items)

	require.Len(t, h.pub.msgs, 1)
	m := h.pub.msgs[0]
	assert.Equal(t, "3", string(m.Key))
	assert.Equal(t, "x-event-type", m.Headers[0].Key)
	var ev orders.Envelope
	require.NoError(t, json.Unmarshal(m.Value, &ev))
	assert.Equal(t, orders.EventOrderPlaced, ev.EventType)
	assert.Equal(t, "55", ev.CorrelationID)
	assert.Equal(t, "foodies-test", ev.Producer)
}

func TestAddOrderBusinessErrors(t *testing.T) {
	cases := map[string]struct {
		err error
		msg string
	}{
		"out of stock":     {&orders.OutOfStockError{ProductID: 1, Requested: 5, Available: 2}, "Product out of stock"},
		"missing product":  {&orders.NotFoundError{Entity: "Product", ID: 1}, "Product matching query does not exist."},
		"missing customer": {&orders.NotFoundError{Entity: "Customer", ID: 1}, "Customer matching query does not exist."},
		"validation":       {&orders.ValidationError{Msg: "Order must contain at least one item"}, "Order must contain at least one item"},
		"storage":          {&orders.StorageError{Op: "commit", Err: errors.New("connection reset by peer")}, "connection reset by peer"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness()
			h.placer.err = tc.err
			code, env := h.post(t, `{"customer": 30, "items": [{"product": 1, "quantity": 5}]}`, nil)
			require.Equal(t, http.StatusOK, code)
			assert.Equal(t, Envelope{Status: "error", Message: tc.msg}, env)
			assert.Empty(t, h.pub.msgs)
		})
	}
}

func TestAddOrderIntegralFloats(t *testing.T) {
	h := newHarness()
	code, env := h.post(t, `{"customer": 30.0, "items": [{"product": 1e2, "quantity": 2.0}]}`, nil)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", env.Status)
	require.Len(t, h.placer.calls, 1)
	assert.Equal(t, int64(30), h.placer.calls[0].customerID)
	assert.Equal(t, []orders.LineItem{{ProductID: 100, Quantity: 2}}, h.placer.calls[0].items)
}

func TestAddOrderBadRequests(t *testing.T) {
	cases := map[string]struct {
		body string
		msg  string
	}{
		"not json":         {`{"customer":`, "invalid json"},
		"missing customer": {`{"items": [{"product": 1, "quantity": 1}]}`, "customer is required"},
		"missing items":    {`{"customer": 1}`, "items is required"},
		"missing product":  {`{"customer": 1, "items": [{"quantity": 1}]}`, "product is required"},
		"missing quantity": {`{"customer": 1, "items": [{"product": 1}]}`, "quantity is required"},
		"bad quantity":     {`{"customer": 1, "items": [{"product": 1, "quantity": "two"}]}`, "invalid literal for int(): two"},
		"fractional qty":   {`{"customer": 1, "items": [{"product": 1, "quantity": 2.5}]}`, "invalid literal for int(): 2.5"},
		"float string":     {`{"customer": 1, "items": [{"product": 1, "quantity": "2.0"}]}`, "invalid literal for int(): 2.0"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness()
			code, env := h.post(t, tc.body, nil)
			require.Equal(t, http.StatusOK, code)
			assert.Equal(t, Envelope{Status: "error", Message: tc.msg}, env)
			assert.Empty(t, h.placer.calls)
		})
	}
}

func TestAddOrderForbiddenWithoutSession(t *testing.T) {
	h := newHarness()
	req := httptest.NewRequest(http.MethodPost, "/orders/api/add-order/", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, h.placer.calls)
}

func TestAddOrderIdempotencyKey(t *testing.T) {
	body := `{"customer": 30, "items": [{"product": 100, "quantity": 1}]}`
	key := map[string]string{"Idempotency-Key": "abc"}

	t.Run("already done", func(t *testing.T) {
		h := newHarness()
		h.idem.state = IdemDone
		_, env := h.post(t, body, key)
		assert.Equal(t, "success", env.Status)
		assert.Empty(t, h.placer.calls)
	})

	t.Run("in progress", func(t *testing.T) {
		h := newHarness()
		h.idem.state = IdemInProgress
		_, env := h.post(t, body, key)
		assert.Equal(t, Envelope{Status: "error", Message: "Request already in progress"}, env)
		assert.Empty(t, h.placer.calls)
	})

	t.Run("new and placed", func(t *testing.T) {
		h := newHarness()
		_, env := h.post(t, body, key)
		assert.Equal(t, "success", env.Status)
		assert.Equal(t, []int64{55}, h.idem.completed)
	})

	t.Run("new and failed", func(t *testing.T) {
		h := newHarness()
		h.placer.err = &orders.OutOfStockError{ProductID: 100}
		_, env := h.post(t, body, key)
		assert.Equal(t, "error", env.Status)
		assert.Equal(t, 1, h.idem.aborted)
		assert.Empty(t, h.idem.completed)
	})

	t.Run("no header skips store", func(t *testing.T) {
		h := newHarness()
		h.idem.state = IdemDone
		_, env := h.post(t, body, nil)
		assert.Equal(t, "success", env.Status)
		assert.Len(t, h.placer.calls, 1)
	})
}

func TestAddOrderClientGoneAfterCommit(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.placer.onPlaced = cancel

	req := httptest.NewRequest(http.MethodPost, "/orders/api/add-order/",
		strings.NewReader(`{"customer": 30, "items": [{"product": 100, "quantity": 1}]}`)).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Idempotency-Key", "abc")
	h.router.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, h.placer.calls, 1)
	assert.NoError(t, h.idem.completeErr)
	assert.Equal(t, []int64{55}, h.idem.completed)
	assert.Equal(t, []error{nil}, h.pub.ctxErrs)
	assert.Len(t, h.pub.msgs, 1)
}

func TestHealthz(t *testing.T) {
	h := newHarness()
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
