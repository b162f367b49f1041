package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/manubal/storefront/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders
		(customer_id, subtotal, shipping, tax, total, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', COALESCE($6, now()), COALESCE($6, now()))
		RETURNING id`

	createOrderItemSQL = `INSERT INTO order_items
		(order_id, product_id, product_name, price, quantity, total)
		VALUES ($1, $2, $3, $4, $5, $6)`

	orderDetailColumns = `o.id, o.customer_id, o.subtotal, o.shipping, o.tax, o.total,
		o.status, o.created_at, o.updated_at,
		c.first_name, c.last_name, c.email, COALESCE(c.phone_number, ''),
		c.address, c.city, c.state, c.zip_code`

	getOrderSQL = `SELECT ` + orderDetailColumns + `
		FROM orders o JOIN customers c ON c.id = o.customer_id
		WHERE o.id = $1`

	listOrderItemsSQL = `SELECT order_id, product_id, product_name, price, quantity, total
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY order_id, id`

	listOrdersSQL = `SELECT o.id, o.customer_id, o.subtotal, o.shipping, o.tax, o.total,
		o.status, o.created_at, o.updated_at,
		c.first_name || ' ' || c.last_name,
		(SELECT COUNT(*) FROM order_items i WHERE i.order_id = o.id)
		FROM orders o JOIN customers c ON c.id = o.customer_id
		ORDER BY o.created_at DESC, o.id DESC`

	listOrdersSinceSQL = `SELECT ` + orderDetailColumns + `
		FROM orders o JOIN customers c ON c.id = o.customer_id
		WHERE o.created_at >= $1 AND o.id > $2
		ORDER BY o.id
		LIMIT $3`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`

	deleteOrderItemsSQL = `DELETE FROM order_items WHERE order_id = $1`
	deleteOrderSQL      = `DELETE FROM orders WHERE id = $1`

	monthlyStatsSQL = `SELECT to_char(date_trunc('month', created_at AT TIME ZONE 'UTC'), 'YYYY-MM'),
		COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		WHERE created_at >= $1
		GROUP BY 1
		ORDER BY 1`
)

// ExportPageSize is how many orders ExportSince reads per query.
const ExportPageSize = 500

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db DBTX
	// PageSize overrides ExportPageSize when positive.
	PageSize int
}

// NewOrderRepository returns an OrderRepository over a pool or transaction.
func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the order header and its items. Run it inside a transaction
// so a failing item insert leaves no partial order behind.
func (r *OrderRepository) Create(ctx context.Context, o order.NewOrder) (int64, error) {
	var placedAt *time.Time
	if !o.PlacedAt.IsZero() {
		placedAt = &o.PlacedAt
	}

	var id int64
	err := r.db.QueryRow(ctx, createOrderSQL,
		o.CustomerID, o.Totals.Subtotal, o.Totals.Shipping, o.Totals.Tax, o.Totals.Total, placedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating order for customer %d: %w", o.CustomerID, err)
	}

	batch := &pgx.Batch{}
	for _, it := range o.Items {
		batch.Queue(createOrderItemSQL, id, it.ProductID, it.Name, it.Price, it.Quantity, it.Total)
	}
	br := r.db.SendBatch(ctx, batch)
	for i := range o.Items {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return 0, fmt.Errorf("creating item %d of order %d: %w", i, id, err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("creating items of order %d: %w", id, err)
	}

	return id, nil
}

// Get returns an order with its customer contact fields and items.
func (r *OrderRepository) Get(ctx context.Context, id int64) (*order.Detail, error) {
	rows, err := r.db.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	d, err := pgx.CollectExactlyOneRow(rows, scanOrderDetail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	items, err := r.items(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	d.Items = items[id]
	return &d, nil
}

// List returns all orders with customer name and item count, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Summary, error) {
	rows, err := r.db.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Summary, error) {
		var (
			s      order.Summary
			status string
		)
		err := row.Scan(
			&s.ID, &s.CustomerID, &s.Subtotal, &s.Shipping, &s.Tax, &s.Total,
			&status, &s.CreatedAt, &s.UpdatedAt,
			&s.CustomerName, &s.ItemCount,
		)
		s.Status = order.Status(status)
		return s, err
	})
}

// UpdateStatus overwrites the status and reports whether the order exists.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status order.Status) (bool, error) {
	tag, err := r.db.Exec(ctx, updateOrderStatusSQL, id, string(status))
	if err != nil {
		return false, fmt.Errorf("updating status of order %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes an order and its items in one transaction and reports
// whether the order row existed.
func (r *OrderRepository) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteOrderItemsSQL, id); err != nil {
			return fmt.Errorf("deleting items of order %d: %w", id, err)
		}
		tag, err := tx.Exec(ctx, deleteOrderSQL, id)
		if err != nil {
			return fmt.Errorf("deleting order %d: %w", id, err)
		}
		deleted = tag.RowsAffected() > 0
		return nil
	})
	return deleted, err
}

// MonthlyStats groups orders created at or after since by calendar month
// (UTC) and returns them oldest first. Months without orders are omitted.
func (r *OrderRepository) MonthlyStats(ctx context.Context, since time.Time) ([]order.MonthlyStat, error) {
	rows, err := r.db.Query(ctx, monthlyStatsSQL, since)
	if err != nil {
		return nil, fmt.Errorf("querying monthly stats: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.MonthlyStat, error) {
		var s order.MonthlyStat
		err := row.Scan(&s.Month, &s.OrderCount, &s.Revenue)
		return s, err
	})
}

// ExportSince calls emit for every order created at or after since, in id
// order, with customer fields and items populated. Orders are read in pages
// of ExportPageSize so only one page is held in memory at a time. It stops
// at the first error returned by emit.
func (r *OrderRepository) ExportSince(ctx context.Context, since time.Time, emit func(*order.Detail) error) error {
	var after int64
	for {
		page, err := r.exportPage(ctx, since, after)
		if err != nil {
			return err
		}
		for i := range page {
			if err := emit(&page[i]); err != nil {
				return err
			}
		}
		if len(page) < r.pageSize() {
			return nil
		}
		after = page[len(page)-1].ID
	}
}

func (r *OrderRepository) exportPage(ctx context.Context, since time.Time, after int64) ([]order.Detail, error) {
	rows, err := r.db.Query(ctx, listOrdersSinceSQL, since, after, r.pageSize())
	if err != nil {
		return nil, fmt.Errorf("listing orders since %s: %w", since.Format(time.DateOnly), err)
	}
	page, err := pgx.CollectRows(rows, scanOrderDetail)
	if err != nil {
		return nil, fmt.Errorf("listing orders since %s: %w", since.Format(time.DateOnly), err)
	}
	if len(page) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(page))
	for i, d := range page {
		ids[i] = d.ID
	}
	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range page {
		page[i].Items = items[page[i].ID]
	}
	return page, nil
}

func (r *OrderRepository) pageSize() int {
	if r.PageSize > 0 {
		return r.PageSize
	}
	return ExportPageSize
}

func (r *OrderRepository) items(ctx context.Context, orderIDs []int64) (map[int64][]order.Item, error) {
	rows, err := r.db.Query(ctx, listOrderItemsSQL, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("listing order items: %w", err)
	}
	defer rows.Close()

	byOrder := make(map[int64][]order.Item, len(orderIDs))
	for rows.Next() {
		var (
			orderID int64
			it      order.Item
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Price, &it.Quantity, &it.Total); err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		byOrder[orderID] = append(byOrder[orderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing order items: %w", err)
	}
	return byOrder, nil
}

func scanOrderDetail(row pgx.CollectableRow) (order.Detail, error) {
	var (
		d      order.Detail
		status string
	)
	err := row.Scan(
		&d.ID, &d.CustomerID, &d.Subtotal, &d.Shipping, &d.Tax, &d.Total,
		&status, &d.CreatedAt, &d.UpdatedAt,
		&d.Customer.FirstName, &d.Customer.LastName, &d.Customer.Email, &d.Customer.Phone,
		&d.Customer.Address, &d.Customer.City, &d.Customer.State, &d.Customer.ZipCode,
	)
	d.Status = order.Status(status)
	return d, err
}
