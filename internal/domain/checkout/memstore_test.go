package checkout

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/go-faster/errors"

	"github.com/manubal/storefront/internal/domain/customer"
	"github.com/manubal/storefront/internal/domain/order"
)

var errNotImplemented = errors.New("not implemented")

// memStore is an in-memory Store. Writes made inside WithinTx are staged and
// only become visible when the unit of work returns nil.
type memStore struct {
	mu           sync.Mutex
	customers    map[string]customer.Customer // by email
	orders       []storedOrder
	nextCustomer int64
	nextOrder    int64
	failCreate   error
	txCount      int
}

type storedOrder struct {
	id    int64
	order order.NewOrder
}

func newMemStore() *memStore {
	return &memStore{customers: make(map[string]customer.Customer)}
}

func (s *memStore) WithinTx(ctx context.Context, fn TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCount++

	tx := &memTx{
		store:        s,
		customers:    maps.Clone(s.customers),
		orders:       append([]storedOrder(nil), s.orders...),
		nextCustomer: s.nextCustomer,
		nextOrder:    s.nextOrder,
	}
	if err := fn(ctx, &memCustomers{tx}, &memOrders{tx}); err != nil {
		return err
	}

	s.customers = tx.customers
	s.orders = tx.orders
	s.nextCustomer = tx.nextCustomer
	s.nextOrder = tx.nextOrder
	return nil
}

func (s *memStore) customerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.customers)
}

func (s *memStore) customerByEmail(email string) (customer.Customer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[email]
	return c, ok
}

func (s *memStore) committedOrders() []storedOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storedOrder(nil), s.orders...)
}

type memTx struct {
	store        *memStore
	customers    map[string]customer.Customer
	orders       []storedOrder
	nextCustomer int64
	nextOrder    int64
}

type memCustomers struct{ tx *memTx }

func (r *memCustomers) UpsertByEmail(_ context.Context, c customer.Contact) (int64, error) {
	existing, ok := r.tx.customers[c.Email]
	if ok {
		existing.Contact = c
		r.tx.customers[c.Email] = existing
		return existing.ID, nil
	}
	r.tx.nextCustomer++
	r.tx.customers[c.Email] = customer.Customer{ID: r.tx.nextCustomer, Contact: c, CreatedAt: time.Now()}
	return r.tx.nextCustomer, nil
}

func (r *memCustomers) Get(context.Context, int64) (*customer.Detail, error) {
	return nil, errNotImplemented
}

func (r *memCustomers) List(context.Context) ([]customer.Summary, error) {
	return nil, errNotImplemented
}

func (r *memCustomers) Update(context.Context, int64, customer.Patch) (bool, error) {
	return false, errNotImplemented
}

func (r *memCustomers) CountOrders(context.Context, int64) (int, error) {
	return 0, errNotImplemented
}

func (r *memCustomers) Delete(context.Context, int64) (bool, error) {
	return false, errNotImplemented
}

type memOrders struct{ tx *memTx }

func (r *memOrders) Create(_ context.Context, o order.NewOrder) (int64, error) {
	if r.tx.store.failCreate != nil {
		return 0, r.tx.store.failCreate
	}
	r.tx.nextOrder++
	r.tx.orders = append(r.tx.orders, storedOrder{id: r.tx.nextOrder, order: o})
	return r.tx.nextOrder, nil
}

func (r *memOrders) Get(context.Context, int64) (*order.Detail, error) {
	return nil, errNotImplemented
}

func (r *memOrders) List(context.Context) ([]order.Summary, error) {
	return nil, errNotImplemented
}

func (r *memOrders) UpdateStatus(context.Context, int64, order.Status) (bool, error) {
	return false, errNotImplemented
}

func (r *memOrders) Delete(context.Context, int64) (bool, error) {
	return false, errNotImplemented
}

func (r *memOrders) MonthlyStats(context.Context, time.Time) ([]order.MonthlyStat, error) {
	return nil, errNotImplemented
}
