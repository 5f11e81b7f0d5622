package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// Repo is the Postgres Store.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

func (r *Repo) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return r.DB
}

func (r *Repo) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	// nested calls join the outer transaction
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storageErr("begin", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit", err)
	}
	return nil
}

func (r *Repo) FindCustomer(ctx context.Context, customerID int64) (Customer, error) {
	var c Customer
	err := r.q(ctx).QueryRow(ctx, `
		SELECT id, name, phone_number, address, neighborhood
		FROM customers WHERE id=$1`, customerID,
	).Scan(&c.ID, &c.Name, &c.PhoneNumber, &c.Address, &c.Neighborhood)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, errCustomerNotFound(customerID)
	}
	if err != nil {
		return Customer{}, storageErr("find customer", err)
	}
	return c, nil
}

func (r *Repo) CustomerInCompany(ctx context.Context, customerID, companyID int64) (bool, error) {
	var ok bool
	err := r.q(ctx).QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM customer_companies WHERE customer_id=$1 AND company_id=$2)`,
		customerID, companyID,
	).Scan(&ok)
	if err != nil {
		return false, storageErr("customer membership", err)
	}
	return ok, nil
}

func (r *Repo) CreateOrder(ctx context.Context, o *Order) error {
	err := r.q(ctx).QueryRow(ctx, `
		INSERT INTO orders(attended_by, customer_id, company_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		o.AttendedBy, o.CustomerID, o.CompanyID,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return storageErr("create order", err)
	}
	return nil
}

// The stock >= $3 predicate is re-checked by Postgres after a concurrent writer on the
// same row commits, so two orders for the last units cannot both match. $3 is bigint so
// a quantity beyond the int4 range fails the predicate instead of the encoding.
const decrementStockSQL = `
	UPDATE products SET stock = stock - $3::bigint, updated_at = now()
	WHERE id=$1 AND company_id=$2 AND stock >= $3::bigint
	RETURNING id, company_id, name, price::text, stock`

func (r *Repo) DecrementStock(ctx context.Context, companyID, productID int64, qty int) (Product, error) {
	var (
		p     Product
		price string
	)
	err := r.q(ctx).QueryRow(ctx, decrementStockSQL, productID, companyID, qty).
		Scan(&p.ID, &p.CompanyID, &p.Name, &price, &p.Stock)
	if err == nil {
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return Product{}, storageErr("decrement stock", err)
		}
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Product{}, storageErr("decrement stock", err)
	}

	// nothing updated: tell a missing product apart from a short one
	var available int
	err = r.q(ctx).QueryRow(ctx,
		`SELECT stock FROM products WHERE id=$1 AND company_id=$2`, productID, companyID,
	).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, errProductNotFound(productID)
	}
	if err != nil {
		return Product{}, storageErr("read stock", err)
	}
	return Product{}, &OutOfStockError{ProductID: productID, Requested: qty, Available: available}
}

func (r *Repo) CreateOrderLine(ctx context.Context, l *OrderLine) error {
	err := r.q(ctx).QueryRow(ctx, `
		INSERT INTO order_lines(order_id, product_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING id`,
		l.OrderID, l.ProductID, l.Quantity,
	).Scan(&l.ID)
	if err != nil {
		return storageErr("create order line", err)
	}
	return nil
}
