package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const EventOrderPlaced = "OrderPlaced"

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type PlacedLinePayload struct {
	ProductID      int64           `json:"product_id"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	RemainingStock int             `json:"remaining_stock"`
}

type OrderPlacedPayload struct {
	OrderID    int64               `json:"order_id"`
	CompanyID  int64               `json:"company_id"`
	CustomerID int64               `json:"customer_id"`
	AttendedBy int64               `json:"attended_by"`
	Lines      []PlacedLinePayload `json:"lines"`
	Total      decimal.Decimal     `json:"total"`
	PlacedAt   time.Time           `json:"placed_at"`
}

// NewOrderPlacedEvent wraps a committed order in a v1 envelope.
func NewOrderPlacedEvent(producer, traceID string, sum OrderSummary) (Envelope, error) {
	lines := make([]PlacedLinePayload, 0, len(sum.Lines))
	for _, l := range sum.Lines {
		lines = append(lines, PlacedLinePayload{
			ProductID:      l.ProductID,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			RemainingStock: l.RemainingStock,
		})
	}
	payload, err := json.Marshal(OrderPlacedPayload{
		OrderID:    sum.OrderID,
		CompanyID:  sum.CompanyID,
		CustomerID: sum.CustomerID,
		AttendedBy: sum.AttendedBy,
		Lines:      lines,
		Total:      sum.Total,
		PlacedAt:   sum.CreatedAt,
	})
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: formatID(sum.OrderID),
		Payload:       payload,
	}, nil
}
