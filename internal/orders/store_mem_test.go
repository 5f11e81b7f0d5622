package orders

import (
	"context"
	"errors"
	"sync"
	"time"
)

// memStore is an in-memory Store. A transaction holds mu for its whole duration and
// restores a snapshot when fn fails.
type memStore struct {
	mu          sync.Mutex
	customers   map[int64]Customer
	memberships map[[2]int64]bool
	products    map[int64]Product
	orders      []Order
	lines       []OrderLine
	nextOrderID int64
	nextLineID  int64

	// failLineAfter makes CreateOrderLine fail once this many lines were written.
	failLineAfter int
}

type memTxKey struct{}

type memSnapshot struct {
	products    map[int64]Product
	orders      []Order
	lines       []OrderLine
	nextOrderID int64
	nextLineID  int64
}

var errDiskFull = errors.New("disk full")

func newMemStore() *memStore {
	return &memStore{
		customers:     map[int64]Customer{},
		memberships:   map[[2]int64]bool{},
		products:      map[int64]Product{},
		failLineAfter: -1,
	}
}

func (m *memStore) addCustomer(c Customer, companies ...int64) {
	m.customers[c.ID] = c
	for _, co := range companies {
		m.memberships[[2]int64{c.ID, co}] = true
	}
}

func (m *memStore) addProduct(p Product) { m.products[p.ID] = p }

func (m *memStore) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) snapshot() memSnapshot {
	products := make(map[int64]Product, len(m.products))
	for k, v := range m.products {
		products[k] = v
	}
	return memSnapshot{
		products:    products,
		orders:      append([]Order(nil), m.orders...),
		lines:       append([]OrderLine(nil), m.lines...),
		nextOrderID: m.nextOrderID,
		nextLineID:  m.nextLineID,
	}
}

func (m *memStore) restore(s memSnapshot) {
	m.products = s.products
	m.orders = s.orders
	m.lines = s.lines
	m.nextOrderID = s.nextOrderID
	m.nextLineID = s.nextLineID
}

func (m *memStore) FindCustomer(_ context.Context, customerID int64) (Customer, error) {
	c, ok := m.customers[customerID]
	if !ok {
		return Customer{}, errCustomerNotFound(customerID)
	}
	return c, nil
}

func (m *memStore) CustomerInCompany(_ context.Context, customerID, companyID int64) (bool, error) {
	return m.memberships[[2]int64{customerID, companyID}], nil
}

func (m *memStore) CreateOrder(_ context.Context, o *Order) error {
	m.nextOrderID++
	o.ID = m.nextOrderID
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	m.orders = append(m.orders, *o)
	return nil
}

func (m *memStore) DecrementStock(_ context.Context, companyID, productID int64, qty int) (Product, error) {
	p, ok := m.products[productID]
	if !ok || p.CompanyID != companyID {
		return Product{}, errProductNotFound(productID)
	}
	if p.Stock < qty {
		return Product{}, &OutOfStockError{ProductID: productID, Requested: qty, Available: p.Stock}
	}
	p.Stock -= qty
	m.products[productID] = p
	return p, nil
}

func (m *memStore) CreateOrderLine(_ context.Context, l *OrderLine) error {
	if m.failLineAfter >= 0 && len(m.lines) >= m.failLineAfter {
		return errDiskFull
	}
	m.nextLineID++
	l.ID = m.nextLineID
	m.lines = append(m.lines, *l)
	return nil
}

func (m *memStore) stock(productID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[productID].Stock
}

func (m *memStore) counts() (orders, lines int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders), len(m.lines)
}
