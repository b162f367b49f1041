package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/manubal/storefront/internal/domain/customer"
)

// ErrNotFound is returned by Repository implementations for a missing order.
var ErrNotFound = errors.New("order not found")

// Status is the fulfilment state of an order. Values outside the known set
// may exist in older rows and are passed through unchanged on read.
type Status string

const (
	StatusPending   Status = "pending"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered, StatusCancelled},
	StatusDelivered: nil,
	StatusCancelled: nil,
}

// Known reports whether s is one of the statuses this service writes.
func (s Status) Known() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether an order in status s may move to next.
// Orders with an unknown legacy status may move to any known status.
func (s Status) CanTransitionTo(next Status) bool {
	if !next.Known() {
		return false
	}
	if s == next {
		return true
	}
	allowed, ok := transitions[s]
	if !ok {
		return true
	}
	for _, a := range allowed {
		if a == next {
			return true
		}
	}
	return false
}

// Item is a line of an order. Name and Price are copied from the cart at
// checkout time and never change afterwards.
type Item struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Quantity  int
	Total     decimal.Decimal
}

// Totals holds the monetary breakdown of an order.
type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// NewOrder is the input for Repository.Create.
type NewOrder struct {
	CustomerID int64
	Items      []Item
	Totals     Totals
	// PlacedAt overrides the creation time when non-zero.
	PlacedAt time.Time
}

// Order is a stored order header.
type Order struct {
	ID         int64
	CustomerID int64
	Totals
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary is an order row in the admin list.
type Summary struct {
	Order
	CustomerName string
	ItemCount    int
}

// Detail is an order with its customer's contact fields and its items.
type Detail struct {
	Order
	Customer customer.Contact
	Items    []Item
}

// MonthlyStat aggregates the orders placed in one calendar month.
type MonthlyStat struct {
	Month      string // YYYY-MM
	OrderCount int
	Revenue    decimal.Decimal
}

// Confirmation is everything the order confirmation email needs.
type Confirmation struct {
	OrderID  int64
	PlacedAt time.Time
	Customer customer.Contact
	Items    []Item
	Totals   Totals
}

// Shipment is everything the shipment notice needs.
type Shipment struct {
	OrderID        int64
	Customer       customer.Contact
	TrackingNumber string
	TrackingURL    string
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o NewOrder) (int64, error)
	Get(ctx context.Context, id int64) (*Detail, error)
	List(ctx context.Context) ([]Summary, error)
	UpdateStatus(ctx context.Context, id int64, status Status) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	MonthlyStats(ctx context.Context, since time.Time) ([]MonthlyStat, error)
}
