package customer

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors returned by Repository implementations.
var (
	ErrNotFound   = errors.New("customer not found")
	ErrEmailTaken = errors.New("email belongs to another customer")
	ErrHasOrders  = errors.New("customer has orders")
)

// Contact holds the identity and shipping fields of a customer. Email is the
// natural key: at most one customer exists per email address.
type Contact struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	City      string
	State     string
	ZipCode   string
}

// Customer is a stored customer record.
type Customer struct {
	ID int64
	Contact
	CreatedAt time.Time
}

// Summary is a customer with aggregates over their orders.
type Summary struct {
	Customer
	OrderCount int
	TotalSpent decimal.Decimal
}

// OrderRef is the short form of an order listed on a customer's page.
type OrderRef struct {
	ID        int64
	CreatedAt time.Time
	Total     decimal.Decimal
	Status    string
}

// Detail is a customer together with their orders, newest first.
type Detail struct {
	Customer
	Orders []OrderRef
}

// Patch carries one optional value per updatable field. A nil field is left
// untouched. Setting Phone to "" clears the stored phone number.
type Patch struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	Address   *string
	City      *string
	State     *string
	ZipCode   *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil && p.Phone == nil &&
		p.Address == nil && p.City == nil && p.State == nil && p.ZipCode == nil
}

// Repository defines persistence operations for customers.
type Repository interface {
	// UpsertByEmail inserts the contact or, when the email already exists,
	// overwrites the stored contact fields. It returns the customer id.
	UpsertByEmail(ctx context.Context, c Contact) (int64, error)
	Get(ctx context.Context, id int64) (*Detail, error)
	List(ctx context.Context) ([]Summary, error)
	// Update applies the patch and reports whether a row was changed. An
	// empty patch returns false without touching the store.
	Update(ctx context.Context, id int64, p Patch) (bool, error)
	CountOrders(ctx context.Context, id int64) (int, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
