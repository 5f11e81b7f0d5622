package orders

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Service places orders. It is the only writer of product stock.
type Service struct {
	store             Store
	requireMembership bool
	tracer            trace.Tracer
}

type Option func(*Service)

// WithCustomerMembership controls whether the customer must be linked to the ordering
// company. Enabled by default.
func WithCustomerMembership(required bool) Option {
	return func(s *Service) { s.requireMembership = required }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:             store,
		requireMembership: true,
		tracer:            otel.Tracer("github.com/ariefcatur/foodies-backoffice/internal/orders"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// PlaceOrder creates an order with one line per item and decrements stock, all in one
// transaction. companyID must come from the caller's authenticated session. On any error
// nothing is persisted.
func (s *Service) PlaceOrder(ctx context.Context, attendedBy, companyID, customerID int64, items []LineItem) (OrderSummary, error) {
	ctx, span := s.tracer.Start(ctx, "orders.PlaceOrder", trace.WithAttributes(
		attribute.Int64("company.id", companyID),
		attribute.Int64("customer.id", customerID),
		attribute.Int("order.items", len(items)),
	))
	defer span.End()

	sum, err := s.placeOrder(ctx, attendedBy, companyID, customerID, items)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return OrderSummary{}, err
	}
	span.SetAttributes(attribute.Int64("order.id", sum.OrderID))
	return sum, nil
}

func (s *Service) placeOrder(ctx context.Context, attendedBy, companyID, customerID int64, items []LineItem) (OrderSummary, error) {
	if err := validateItems(items); err != nil {
		return OrderSummary{}, err
	}

	var sum OrderSummary
	err := s.store.Transact(ctx, func(ctx context.Context) error {
		if _, err := s.store.FindCustomer(ctx, customerID); err != nil {
			return err
		}
		if s.requireMembership {
			ok, err := s.store.CustomerInCompany(ctx, customerID, companyID)
			if err != nil {
				return err
			}
			if !ok {
				return errCustomerNotFound(customerID)
			}
		}

		o := &Order{AttendedBy: attendedBy, CustomerID: customerID, CompanyID: companyID}
		if err := s.store.CreateOrder(ctx, o); err != nil {
			return err
		}

		lines := make([]PlacedLine, 0, len(items))
		total := decimal.Zero
		for _, it := range items {
			p, err := s.store.DecrementStock(ctx, companyID, it.ProductID, it.Quantity)
			if err != nil {
				return err
			}
			if err := s.store.CreateOrderLine(ctx, &OrderLine{OrderID: o.ID, ProductID: p.ID, Quantity: it.Quantity}); err != nil {
				return err
			}
			lines = append(lines, PlacedLine{
				ProductID:      p.ID,
				Name:           p.Name,
				Quantity:       it.Quantity,
				UnitPrice:      p.Price,
				RemainingStock: p.Stock,
			})
			total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}

		sum = OrderSummary{
			OrderID:    o.ID,
			CompanyID:  companyID,
			CustomerID: customerID,
			AttendedBy: attendedBy,
			Lines:      lines,
			Total:      total,
			CreatedAt:  o.CreatedAt,
		}
		return nil
	})
	if err != nil {
		return OrderSummary{}, classify(err)
	}
	return sum, nil
}

func validateItems(items []LineItem) error {
	if len(items) == 0 {
		return validationf("Order must contain at least one item")
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return validationf("Quantity must be a positive integer (product %d)", it.ProductID)
		}
	}
	return nil
}

// classify keeps domain errors and wraps everything else as a storage failure.
func classify(err error) error {
	if IsValidation(err) || IsNotFound(err) || IsOutOfStock(err) || IsStorage(err) {
		return err
	}
	return storageErr("place order", err)
}
