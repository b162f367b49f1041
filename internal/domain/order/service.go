package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/manubal/storefront/internal/domain/apperr"
)

// ShipmentNotifier sends the "your order has shipped" email. It reports
// whether the email was accepted and never fails the caller.
type ShipmentNotifier interface {
	SendShipmentNotice(ctx context.Context, s Shipment) bool
}

// StatusChange is the input for Service.UpdateStatus.
type StatusChange struct {
	Status         Status
	TrackingNumber string
	TrackingURL    string
}

// StatsWindow is how far back MonthlyStats looks.
const StatsWindow = 12

// Service implements the admin operations on orders.
type Service struct {
	orders   Repository
	notifier ShipmentNotifier
	lg       *zap.Logger
	now      func() time.Time
}

// NewService creates an order Service.
func NewService(orders Repository, notifier ShipmentNotifier, lg *zap.Logger) *Service {
	return &Service{
		orders:   orders,
		notifier: notifier,
		lg:       lg,
		now:      time.Now,
	}
}

// List returns all orders, newest first.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	list, err := s.orders.List(ctx)
	if err != nil {
		return nil, s.persistence("list orders", err)
	}
	return list, nil
}

// Get returns a single order with its customer and items.
func (s *Service) Get(ctx context.Context, id int64) (*Detail, error) {
	d, err := s.orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &apperr.NotFoundError{Resource: "order", ID: id, Message: "Order not found"}
		}
		return nil, s.persistence("get order", err)
	}
	return d, nil
}

// UpdateStatus moves an order to a new status. Moving to shipped with a
// tracking number sends the shipment notice; the returned flag reports
// whether it was accepted.
func (s *Service) UpdateStatus(ctx context.Context, id int64, change StatusChange) (bool, error) {
	if change.Status == "" {
		return false, apperr.Missing("status")
	}
	if !change.Status.Known() {
		return false, &apperr.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("Invalid status: %s", change.Status),
		}
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if current.Status == change.Status {
		return false, nil
	}
	if !current.Status.CanTransitionTo(change.Status) {
		return false, &apperr.ConflictError{
			Message: fmt.Sprintf("Cannot change order status from %s to %s", current.Status, change.Status),
		}
	}

	ok, err := s.orders.UpdateStatus(ctx, id, change.Status)
	if err != nil {
		return false, s.persistence("update order status", err)
	}
	if !ok {
		return false, &apperr.NotFoundError{Resource: "order", ID: id, Message: "Order not found or could not be updated"}
	}

	s.lg.Info("Order status changed",
		zap.Int64("order_id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(change.Status)),
	)

	if change.Status != StatusShipped || change.TrackingNumber == "" || s.notifier == nil {
		return false, nil
	}
	sent := s.notifier.SendShipmentNotice(context.WithoutCancel(ctx), Shipment{
		OrderID:        id,
		Customer:       current.Customer,
		TrackingNumber: change.TrackingNumber,
		TrackingURL:    change.TrackingURL,
	})
	return sent, nil
}

// Delete removes an order and its items.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ok, err := s.orders.Delete(ctx, id)
	if err != nil {
		return s.persistence("delete order", err)
	}
	if !ok {
		return &apperr.NotFoundError{Resource: "order", ID: id, Message: "Order not found or could not be deleted"}
	}
	return nil
}

// MonthlyStats returns order count and revenue per month over the trailing
// twelve months, oldest month first.
func (s *Service) MonthlyStats(ctx context.Context) ([]MonthlyStat, error) {
	since := s.now().AddDate(0, -StatsWindow, 0)
	stats, err := s.orders.MonthlyStats(ctx, since)
	if err != nil {
		return nil, s.persistence("monthly order stats", err)
	}
	return stats, nil
}

func (s *Service) persistence(op string, err error) error {
	s.lg.Error("Order storage failure", zap.String("op", op), zap.Error(err))
	return &apperr.PersistenceError{Op: op, Err: err}
}
