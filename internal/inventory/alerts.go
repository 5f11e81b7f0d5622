package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	kafkax "github.com/ariefcatur/foodies-backoffice/internal/kafka"
	"github.com/ariefcatur/foodies-backoffice/internal/orders"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

type LowStockItem struct {
	ProductID int64 `json:"product_id"`
	Remaining int   `json:"remaining"`
}

type AlertStore interface {
	// MarkProcessed returns false when eventID was already handled.
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
	Unmark(ctx context.Context, eventID string) error
	SetLowStock(ctx context.Context, companyID, productID int64, remaining int) error
	ClearLowStock(ctx context.Context, companyID, productID int64) error
	LowStock(ctx context.Context, companyID int64) ([]LowStockItem, error)
}

// Service keeps, per company, the set of products whose stock fell to the threshold
// or below after an order.
type Service struct {
	Store     AlertStore
	Threshold int
	Log       zerolog.Logger
}

// HandleOrderPlaced is installed as the consumer handler for order.placed.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		s.Log.Warn().Err(err).Int64("offset", m.Offset).Msg("skipping undecodable message")
		return nil
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil
	}

	ctx, span := otel.Tracer("github.com/ariefcatur/foodies-backoffice/internal/inventory").
		Start(ctx, "inventory.HandleOrderPlaced")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", env.EventID))

	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		s.Log.Warn().Err(err).Str("event_id", env.EventID).Msg("skipping bad payload")
		return nil
	}

	first, err := s.Store.MarkProcessed(ctx, env.EventID)
	if err != nil {
		return fmt.Errorf("dedup %s: %w", env.EventID, err)
	}
	if !first {
		return nil
	}

	if err := s.apply(ctx, p); err != nil {
		if uerr := s.Store.Unmark(ctx, env.EventID); uerr != nil {
			s.Log.Error().Err(uerr).Str("event_id", env.EventID).Msg("unmark after failure")
		}
		return err
	}
	return nil
}

func (s *Service) apply(ctx context.Context, p orders.OrderPlacedPayload) error {
	for _, l := range p.Lines {
		if l.RemainingStock <= s.Threshold {
			if err := s.Store.SetLowStock(ctx, p.CompanyID, l.ProductID, l.RemainingStock); err != nil {
				return err
			}
			s.Log.Info().
				Int64("company_id", p.CompanyID).
				Int64("product_id", l.ProductID).
				Int("remaining", l.RemainingStock).
				Msg("low stock")
			continue
		}
		if err := s.Store.ClearLowStock(ctx, p.CompanyID, l.ProductID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) LowStock(ctx context.Context, companyID int64) ([]LowStockItem, error) {
	return s.Store.LowStock(ctx, companyID)
}
