// Package checkout turns a submitted cart into a persisted order.
//
// The customer upsert, the order header and every line item are written in a
// single transaction. The confirmation email is sent only after commit and
// its outcome never affects the result beyond the EmailSent flag.
package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/manubal/storefront/internal/domain/apperr"
	"github.com/manubal/storefront/internal/domain/customer"
	"github.com/manubal/storefront/internal/domain/order"
)

// TxFunc is the unit of work run inside a Store transaction. The
// repositories it receives are bound to that transaction.
type TxFunc func(ctx context.Context, customers customer.Repository, orders order.Repository) error

// Store runs a unit of work atomically: either every write made through the
// repositories commits or none does.
type Store interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}

// ConfirmationNotifier sends the order confirmation email. It reports
// whether the email was accepted and never fails the caller.
type ConfirmationNotifier interface {
	SendOrderConfirmation(ctx context.Context, c order.Confirmation) bool
}

// Config holds the tunable parts of checkout.
type Config struct {
	Pricing Pricing
	// SuccessPath is the page the client is sent to after checkout.
	SuccessPath string
}

// Result is the outcome of a successful checkout.
type Result struct {
	OrderID     int64
	CustomerID  int64
	EmailSent   bool
	RedirectURL string
}

// Service places orders.
type Service struct {
	store    Store
	notifier ConfirmationNotifier
	cfg      Config
	validate *validator.Validate
	lg       *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time

	placed   metric.Int64Counter
	rejected metric.Int64Counter
	failed   metric.Int64Counter
	emails   metric.Int64Counter
}

// NewService creates a checkout Service.
func NewService(
	store Store,
	notifier ConfirmationNotifier,
	cfg Config,
	lg *zap.Logger,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (*Service, error) {
	if cfg.SuccessPath == "" {
		cfg.SuccessPath = "/order-success"
	}
	meter := mp.Meter("storefront/checkout")

	s := &Service{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		validate: newValidator(),
		lg:       lg,
		tracer:   tp.Tracer("storefront/checkout"),
		now:      time.Now,
	}

	var err error
	if s.placed, err = meter.Int64Counter("checkout.orders.placed",
		metric.WithDescription("Orders committed by checkout")); err != nil {
		return nil, errors.Wrap(err, "orders placed counter")
	}
	if s.rejected, err = meter.Int64Counter("checkout.orders.rejected",
		metric.WithDescription("Checkout requests rejected by validation")); err != nil {
		return nil, errors.Wrap(err, "orders rejected counter")
	}
	if s.failed, err = meter.Int64Counter("checkout.orders.failed",
		metric.WithDescription("Checkout transactions rolled back")); err != nil {
		return nil, errors.Wrap(err, "orders failed counter")
	}
	if s.emails, err = meter.Int64Counter("checkout.confirmation.emails",
		metric.WithDescription("Order confirmation emails by outcome")); err != nil {
		return nil, errors.Wrap(err, "confirmation emails counter")
	}
	return s, nil
}

// Place validates the request, persists the customer, order and items in
// one transaction and then sends the confirmation email.
func (s *Service) Place(ctx context.Context, req Request) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Place")
	defer span.End()

	if err := validateRequest(s.validate, &req); err != nil {
		s.rejected.Add(ctx, 1)
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}

	items := req.lineItems()
	totals := s.cfg.Pricing.Totals(items)
	contact := req.contact()

	var orderID, customerID int64
	err := s.store.WithinTx(ctx, func(ctx context.Context, customers customer.Repository, orders order.Repository) error {
		id, err := customers.UpsertByEmail(ctx, contact)
		if err != nil {
			return errors.Wrap(err, "upsert customer")
		}
		customerID = id

		orderID, err = orders.Create(ctx, order.NewOrder{
			CustomerID: customerID,
			Items:      items,
			Totals:     totals,
		})
		if err != nil {
			return errors.Wrap(err, "create order")
		}
		return nil
	})
	if err != nil {
		s.failed.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist order")
		s.lg.Error("Checkout failed", zap.String("email", contact.Email), zap.Error(err))
		return nil, &apperr.PersistenceError{Op: "place order", Err: err}
	}

	s.placed.Add(ctx, 1)
	span.SetAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("customer.id", customerID),
		attribute.Int("order.items", len(items)),
	)
	s.lg.Info("Order placed",
		zap.Int64("order_id", orderID),
		zap.Int64("customer_id", customerID),
		zap.String("total", totals.Total.StringFixed(2)),
	)

	// The order is committed; a client disconnect must not abort the email.
	sent := s.notifier.SendOrderConfirmation(context.WithoutCancel(ctx), order.Confirmation{
		OrderID:  orderID,
		PlacedAt: s.now(),
		Customer: contact,
		Items:    items,
		Totals:   totals,
	})
	s.emails.Add(ctx, 1, metric.WithAttributes(attribute.Bool("sent", sent)))

	return &Result{
		OrderID:     orderID,
		CustomerID:  customerID,
		EmailSent:   sent,
		RedirectURL: fmt.Sprintf("%s?orderId=%d", s.cfg.SuccessPath, orderID),
	}, nil
}
