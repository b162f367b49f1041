package customer

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/manubal/storefront/internal/domain/apperr"
)

// Service implements the admin operations on customers.
type Service struct {
	customers Repository
	validate  *validator.Validate
	lg        *zap.Logger
}

// NewService creates a customer Service.
func NewService(customers Repository, lg *zap.Logger) *Service {
	return &Service{customers: customers, validate: validator.New(), lg: lg}
}

// List returns all customers with their order aggregates.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	list, err := s.customers.List(ctx)
	if err != nil {
		return nil, s.persistence("list customers", err)
	}
	return list, nil
}

// Get returns a customer with their order history.
func (s *Service) Get(ctx context.Context, id int64) (*Detail, error) {
	d, err := s.customers.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &apperr.NotFoundError{Resource: "customer", ID: id, Message: "Customer not found"}
		}
		return nil, s.persistence("get customer", err)
	}
	return d, nil
}

// Update replaces the contact fields of a customer. All fields except the
// phone number are required; an omitted phone number clears the stored one.
func (s *Service) Update(ctx context.Context, id int64, p Patch) error {
	required := []struct {
		name  string
		value *string
	}{
		{"firstName", p.FirstName},
		{"lastName", p.LastName},
		{"email", p.Email},
		{"address", p.Address},
		{"city", p.City},
		{"state", p.State},
		{"zipCode", p.ZipCode},
	}
	for _, f := range required {
		if f.value == nil || strings.TrimSpace(*f.value) == "" {
			return apperr.Missing(f.name)
		}
	}
	if err := s.validate.Var(strings.TrimSpace(*p.Email), "email"); err != nil {
		return &apperr.ValidationError{Field: "email", Message: "Invalid email address"}
	}
	if p.Phone == nil {
		p.Phone = new(string)
	}

	ok, err := s.customers.Update(ctx, id, p)
	switch {
	case errors.Is(err, ErrEmailTaken):
		return &apperr.ConflictError{Message: "Email is already used by another customer"}
	case err != nil:
		return s.persistence("update customer", err)
	case !ok:
		return &apperr.NotFoundError{Resource: "customer", ID: id, Message: "Customer not found or could not be updated"}
	}
	return nil
}

// Delete removes a customer that has no orders.
func (s *Service) Delete(ctx context.Context, id int64) error {
	n, err := s.customers.CountOrders(ctx, id)
	if err != nil {
		return s.persistence("count customer orders", err)
	}
	if n > 0 {
		return &apperr.ConflictError{Message: HasOrdersMessage(n)}
	}

	deleted, err := s.customers.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ErrHasOrders) {
			return &apperr.ConflictError{Message: HasOrdersMessage(1)}
		}
		return s.persistence("delete customer", err)
	}
	if !deleted {
		return &apperr.NotFoundError{Resource: "customer", ID: id, Message: "Customer not found"}
	}
	return nil
}

// HasOrdersMessage is the refusal shown when deleting a customer with n orders.
func HasOrdersMessage(n int) string {
	noun := "order"
	if n > 1 {
		noun = "orders"
	}
	return fmt.Sprintf("Cannot delete customer with %d existing %s. Please delete all orders first.", n, noun)
}

func (s *Service) persistence(op string, err error) error {
	s.lg.Error("Customer storage failure", zap.String("op", op), zap.Error(err))
	return &apperr.PersistenceError{Op: op, Err: err}
}
