package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        int64
	CompanyID int64
	Name      string
	Price     decimal.Decimal
	Stock     int
}

type Customer struct {
	ID           int64
	Name         string
	PhoneNumber  string
	Address      string
	Neighborhood string
}

type Order struct {
	ID         int64
	AttendedBy int64
	CustomerID int64
	CompanyID  int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type OrderLine struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
}

// LineItem is one (product, quantity) pair of an order request.
type LineItem struct {
	ProductID int64
	Quantity  int
}

type PlacedLine struct {
	ProductID      int64
	Name           string
	Quantity       int
	UnitPrice      decimal.Decimal
	RemainingStock int
}

type OrderSummary struct {
	OrderID    int64
	CompanyID  int64
	CustomerID int64
	AttendedBy int64
	Lines      []PlacedLine
	Total      decimal.Decimal
	CreatedAt  time.Time
}
