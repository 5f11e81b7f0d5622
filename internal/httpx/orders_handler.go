package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/foodies-backoffice/internal/auth"
	kafkax "github.com/ariefcatur/foodies-backoffice/internal/kafka"
	"github.com/ariefcatur/foodies-backoffice/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	msgOrderCreated = "Order created successfully"
	msgInProgress   = "Request already in progress"

	afterCommitTimeout = 5 * time.Second
)

type Placer interface {
	PlaceOrder(ctx context.Context, attendedBy, companyID, customerID int64, items []orders.LineItem) (orders.OrderSummary, error)
}

type Publisher interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafkago.Header) error
}

type OrdersHandler struct {
	Orders   Placer
	Producer Publisher   // optional
	Idem     Idempotency // optional
	Service  string
	Timeout  time.Duration
	Log      zerolog.Logger
}

// Envelope is the body of every add-order response. Business errors travel here with
// HTTP 200, never as an error status.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// flexInt accepts 3, 3.0 and "3". Strings must hold an integer literal; a fractional
// number is rejected rather than truncated.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	quoted := false
	if unq, err := strconv.Unquote(s); err == nil {
		s, quoted = strings.TrimSpace(unq), true
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = flexInt(n)
		return nil
	}
	if !quoted {
		if x, err := strconv.ParseFloat(s, 64); err == nil && x == math.Trunc(x) &&
			x >= math.MinInt64 && x < math.MaxInt64 {
			*f = flexInt(int64(x))
			return nil
		}
	}
	return &orders.ValidationError{Msg: "invalid literal for int(): " + s}
}

type AddOrderItem struct {
	Product  *flexInt `json:"product"`
	Quantity *flexInt `json:"quantity"`
}

type AddOrderReq struct {
	Customer *flexInt       `json:"customer"`
	Items    []AddOrderItem `json:"items"`
}

func (h *OrdersHandler) Register(r chi.Router, authn func(http.Handler) http.Handler) {
	r.With(authn).Post("/orders/api/add-order/", h.addOrder)
}

func (h *OrdersHandler) addOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Authentication credentials were not provided."})
		return
	}
	log := h.Log.With().
		Str("request_id", middleware.GetReqID(r.Context())).
		Int64("user_id", p.UserID).
		Int64("company_id", p.CompanyID).
		Logger()

	customerID, items, err := decodeAddOrder(r)
	if err != nil {
		log.Info().Err(err).Msg("add order rejected")
		writeJSON(w, http.StatusOK, Envelope{Status: statusError, Message: err.Error()})
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey != "" && h.Idem != nil {
		state, err := h.Idem.Begin(r.Context(), p.CompanyID, idemKey)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("idempotency unavailable, placing without it")
			idemKey = ""
		case state == IdemInProgress:
			writeJSON(w, http.StatusOK, Envelope{Status: statusError, Message: msgInProgress})
			return
		case state == IdemDone:
			writeJSON(w, http.StatusOK, Envelope{Status: statusSuccess, Message: msgOrderCreated})
			return
		}
	} else {
		idemKey = ""
	}

	ctx := r.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	sum, err := h.Orders.PlaceOrder(ctx, p.UserID, p.CompanyID, customerID, items)
	if err != nil {
		if idemKey != "" {
			if aerr := h.Idem.Abort(context.WithoutCancel(r.Context()), p.CompanyID, idemKey); aerr != nil {
				log.Warn().Err(aerr).Msg("idempotency abort")
			}
		}
		ev := log.Info()
		if orders.IsStorage(err) {
			ev = log.Error()
		}
		ev.Err(err).Int64("customer_id", customerID).Msg("add order failed")
		writeJSON(w, http.StatusOK, Envelope{Status: statusError, Message: err.Error()})
		return
	}

	// the order is committed; a client that hangs up now must not lose the key or the event
	after, cancelAfter := context.WithTimeout(context.WithoutCancel(r.Context()), afterCommitTimeout)
	defer cancelAfter()
	if idemKey != "" {
		if err := h.Idem.Complete(after, p.CompanyID, idemKey, sum.OrderID); err != nil {
			log.Warn().Err(err).Msg("idempotency complete")
		}
	}
	h.publishPlaced(after, log, sum)

	log.Info().Int64("order_id", sum.OrderID).Int("lines", len(sum.Lines)).Msg("order placed")
	writeJSON(w, http.StatusOK, Envelope{Status: statusSuccess, Message: msgOrderCreated})
}

func (h *OrdersHandler) publishPlaced(ctx context.Context, log zerolog.Logger, sum orders.OrderSummary) {
	if h.Producer == nil {
		return
	}
	ev, err := orders.NewOrderPlacedEvent(h.Service, middleware.GetReqID(ctx), sum)
	if err != nil {
		log.Error().Err(err).Msg("build order placed event")
		return
	}
	if err := h.Producer.Publish(ctx, orders.PartitionKey(sum.CompanyID), kafkax.MustMarshal(ev),
		kafkax.EventHeaders(orders.EventOrderPlaced, ev.EventVersion)...,
	); err != nil {
		log.Error().Err(err).Int64("order_id", sum.OrderID).Msg("publish order placed")
	}
}

func decodeAddOrder(r *http.Request) (int64, []orders.LineItem, error) {
	var req AddOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if orders.IsValidation(err) {
			return 0, nil, err
		}
		return 0, nil, &orders.ValidationError{Msg: "invalid json"}
	}
	if req.Customer == nil {
		return 0, nil, &orders.ValidationError{Msg: "customer is required"}
	}
	if req.Items == nil {
		return 0, nil, &orders.ValidationError{Msg: "items is required"}
	}
	items := make([]orders.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		if it.Product == nil {
			return 0, nil, &orders.ValidationError{Msg: "product is required"}
		}
		if it.Quantity == nil {
			return 0, nil, &orders.ValidationError{Msg: "quantity is required"}
		}
		items = append(items, orders.LineItem{ProductID: int64(*it.Product), Quantity: int(*it.Quantity)})
	}
	return int64(*req.Customer), items, nil
}
