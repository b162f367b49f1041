package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/manubal/storefront/internal/domain/customer"
)

const (
	upsertCustomerSQL = `INSERT INTO customers
		(first_name, last_name, email, phone_number, address, city, state, zip_code)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)
		ON CONFLICT (email) DO UPDATE SET
			first_name   = EXCLUDED.first_name,
			last_name    = EXCLUDED.last_name,
			phone_number = EXCLUDED.phone_number,
			address      = EXCLUDED.address,
			city         = EXCLUDED.city,
			state        = EXCLUDED.state,
			zip_code     = EXCLUDED.zip_code
		RETURNING id`

	getCustomerSQL = `SELECT id, first_name, last_name, email, COALESCE(phone_number, ''),
		address, city, state, zip_code, created_at
		FROM customers WHERE id = $1`

	listCustomerOrdersSQL = `SELECT id, created_at, total, status
		FROM orders WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC`

	listCustomersSQL = `SELECT c.id, c.first_name, c.last_name, c.email, COALESCE(c.phone_number, ''),
		c.address, c.city, c.state, c.zip_code, c.created_at,
		COUNT(o.id), COALESCE(SUM(o.total), 0)
		FROM customers c
		LEFT JOIN orders o ON o.customer_id = c.id
		GROUP BY c.id
		ORDER BY c.last_name, c.first_name, c.id`

	// Each field is overwritten only when its parameter is non-NULL. The
	// phone number has an explicit flag so it can be cleared.
	updateCustomerSQL = `UPDATE customers SET
		first_name   = COALESCE($2, first_name),
		last_name    = COALESCE($3, last_name),
		email        = COALESCE($4, email),
		phone_number = CASE WHEN $5::boolean THEN NULLIF($6::text, '') ELSE phone_number END,
		address      = COALESCE($7, address),
		city         = COALESCE($8, city),
		state        = COALESCE($9, state),
		zip_code     = COALESCE($10, zip_code)
		WHERE id = $1`

	countCustomerOrdersSQL = `SELECT COUNT(*) FROM orders WHERE customer_id = $1`

	deleteCustomerSQL = `DELETE FROM customers WHERE id = $1`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	db DBTX
}

// NewCustomerRepository returns a CustomerRepository over a pool or transaction.
func NewCustomerRepository(db DBTX) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// UpsertByEmail inserts a customer or refreshes the contact fields of the
// customer that already owns the email. The original created_at is kept.
func (r *CustomerRepository) UpsertByEmail(ctx context.Context, c customer.Contact) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, upsertCustomerSQL,
		c.FirstName, c.LastName, c.Email, c.Phone, c.Address, c.City, c.State, c.ZipCode,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting customer %q: %w", c.Email, err)
	}
	return id, nil
}

// Get returns a customer and their orders, newest first.
func (r *CustomerRepository) Get(ctx context.Context, id int64) (*customer.Detail, error) {
	rows, err := r.db.Query(ctx, getCustomerSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting customer %d: %w", id, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer %d: %w", id, err)
	}

	rows, err = r.db.Query(ctx, listCustomerOrdersSQL, id)
	if err != nil {
		return nil, fmt.Errorf("listing orders of customer %d: %w", id, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrderRef)
	if err != nil {
		return nil, fmt.Errorf("listing orders of customer %d: %w", id, err)
	}

	return &customer.Detail{Customer: c, Orders: orders}, nil
}

// List returns every customer with their order count and lifetime spend,
// ordered by last name then first name.
func (r *CustomerRepository) List(ctx context.Context) ([]customer.Summary, error) {
	rows, err := r.db.Query(ctx, listCustomersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (customer.Summary, error) {
		var s customer.Summary
		err := row.Scan(
			&s.ID, &s.FirstName, &s.LastName, &s.Email, &s.Phone,
			&s.Address, &s.City, &s.State, &s.ZipCode, &s.CreatedAt,
			&s.OrderCount, &s.TotalSpent,
		)
		return s, err
	})
}

// Update applies a patch to a customer. It returns false when the patch is
// empty or no customer has the given id.
func (r *CustomerRepository) Update(ctx context.Context, id int64, p customer.Patch) (bool, error) {
	if p.IsEmpty() {
		return false, nil
	}

	var phone string
	if p.Phone != nil {
		phone = *p.Phone
	}
	tag, err := r.db.Exec(ctx, updateCustomerSQL,
		id, p.FirstName, p.LastName, p.Email, p.Phone != nil, phone,
		p.Address, p.City, p.State, p.ZipCode,
	)
	if err != nil {
		if hasCode(err, codeUniqueViolation) {
			return false, customer.ErrEmailTaken
		}
		return false, fmt.Errorf("updating customer %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// CountOrders returns how many orders reference the customer.
func (r *CustomerRepository) CountOrders(ctx context.Context, id int64) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, countCustomerOrdersSQL, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting orders of customer %d: %w", id, err)
	}
	return n, nil
}

// Delete removes a customer. Orders reference customers with ON DELETE
// RESTRICT, so a customer who gained an order concurrently is refused.
func (r *CustomerRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, deleteCustomerSQL, id)
	if err != nil {
		if hasCode(err, codeForeignKeyViolation) {
			return false, customer.ErrHasOrders
		}
		return false, fmt.Errorf("deleting customer %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanCustomer(row pgx.CollectableRow) (customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
		&c.Address, &c.City, &c.State, &c.ZipCode, &c.CreatedAt,
	)
	return c, err
}

func scanOrderRef(row pgx.CollectableRow) (customer.OrderRef, error) {
	var o customer.OrderRef
	err := row.Scan(&o.ID, &o.CreatedAt, &o.Total, &o.Status)
	return o, err
}
