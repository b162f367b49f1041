// Package handler exposes the checkout and admin APIs over gin.
package handler

import (
	"context"

	"github.com/manubal/storefront/internal/audit"
	"github.com/manubal/storefront/internal/domain/checkout"
	"github.com/manubal/storefront/internal/domain/customer"
	"github.com/manubal/storefront/internal/domain/order"
)

// CheckoutService places orders.
type CheckoutService interface {
	Place(ctx context.Context, req checkout.Request) (*checkout.Result, error)
}

// CustomerService is the admin view over customers.
type CustomerService interface {
	List(ctx context.Context) ([]customer.Summary, error)
	Get(ctx context.Context, id int64) (*customer.Detail, error)
	Update(ctx context.Context, id int64, p customer.Patch) error
	Delete(ctx context.Context, id int64) error
}

// OrderService is the admin view over orders.
type OrderService interface {
	List(ctx context.Context) ([]order.Summary, error)
	Get(ctx context.Context, id int64) (*order.Detail, error)
	UpdateStatus(ctx context.Context, id int64, change order.StatusChange) (bool, error)
	Delete(ctx context.Context, id int64) error
	MonthlyStats(ctx context.Context) ([]order.MonthlyStat, error)
}

// AuditLog records and lists admin actions.
type AuditLog interface {
	Record(ctx context.Context, e audit.Entry) error
	List(ctx context.Context, limit int) ([]audit.Entry, error)
}

// Handler serves the HTTP API. A nil AuditLog disables audit recording and
// the audit-log endpoint answers with an empty list.
type Handler struct {
	checkout  CheckoutService
	customers CustomerService
	orders    OrderService
	audit     AuditLog
}

// New constructs a Handler.
func New(
	checkout CheckoutService,
	customers CustomerService,
	orders OrderService,
	auditLog AuditLog,
) *Handler {
	return &Handler{
		checkout:  checkout,
		customers: customers,
		orders:    orders,
		audit:     auditLog,
	}
}
