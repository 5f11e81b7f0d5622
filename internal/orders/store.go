package orders

import "context"

// Store is the persistence boundary of order placement. Every method called inside
// Transact's fn must use the ctx passed to fn so it joins the transaction.
type Store interface {
	// Transact runs fn in one transaction: commit when fn returns nil, rollback otherwise.
	Transact(ctx context.Context, fn func(ctx context.Context) error) error

	FindCustomer(ctx context.Context, customerID int64) (Customer, error)
	CustomerInCompany(ctx context.Context, customerID, companyID int64) (bool, error)
	CreateOrder(ctx context.Context, o *Order) error

	// DecrementStock subtracts qty from the company's product in a single conditional
	// update. It returns *NotFoundError when the product does not exist for the company
	// and *OutOfStockError when fewer than qty units remain; stock is untouched then.
	DecrementStock(ctx context.Context, companyID, productID int64, qty int) (Product, error)

	CreateOrderLine(ctx context.Context, l *OrderLine) error
}
