package checkout

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/manubal/storefront/internal/domain/apperr"
	"github.com/manubal/storefront/internal/domain/customer"
	"github.com/manubal/storefront/internal/domain/order"
)

// Item is a cart line as submitted by the client.
type Item struct {
	ID       string          `json:"id" validate:"required"`
	Name     string          `json:"name" validate:"required"`
	Price    decimal.Decimal `json:"price" validate:"gte=0"`
	Quantity int             `json:"quantity" validate:"gte=1"`
}

// Request is the checkout payload. Field order is the order in which missing
// fields are reported.
type Request struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phoneNumber"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	ZipCode   string `json:"zipCode" validate:"required"`
	Items     []Item `json:"cartItems" validate:"required,dive"`
}

func (r *Request) contact() customer.Contact {
	return customer.Contact{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Address:   r.Address,
		City:      r.City,
		State:     r.State,
		ZipCode:   r.ZipCode,
	}
}

func (r *Request) lineItems() []order.Item {
	items := make([]order.Item, len(r.Items))
	for i, it := range r.Items {
		items[i] = order.Item{
			ProductID: it.ID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Total:     it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
		}
	}
	return items
}

// newValidator returns a validator that reports JSON field names and
// compares decimal amounts numerically.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

func validateRequest(v *validator.Validate, req *Request) error {
	err := v.Struct(req)
	if err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
			return errors.Wrap(err, "validate checkout request")
		}
		return fieldError(fieldErrs[0])
	}
	if len(req.Items) == 0 {
		return &apperr.ValidationError{Field: "cartItems", Message: "Cart is empty"}
	}
	// Stored amounts are NUMERIC(12,2); a sub-cent price would be rounded per
	// column and the stored subtotal would drift from the stored line totals.
	for i, it := range req.Items {
		if !it.Price.Equal(it.Price.Round(2)) {
			field := fmt.Sprintf("cartItems[%d].price", i)
			return &apperr.ValidationError{Field: field, Message: fmt.Sprintf("Invalid %s: at most 2 decimal places", field)}
		}
	}
	return nil
}

func fieldError(fe validator.FieldError) *apperr.ValidationError {
	// Namespace is "Request.cartItems[0].quantity"; drop the struct name.
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	switch fe.Tag() {
	case "required":
		return apperr.Missing(field)
	case "email":
		return &apperr.ValidationError{Field: field, Message: "Invalid email address"}
	case "gte":
		if fe.Field() == "quantity" {
			return &apperr.ValidationError{Field: field, Message: fmt.Sprintf("Invalid %s: must be at least 1", field)}
		}
		return &apperr.ValidationError{Field: field, Message: fmt.Sprintf("Invalid %s: must not be negative", field)}
	default:
		return &apperr.ValidationError{Field: field, Message: fmt.Sprintf("Invalid %s", field)}
	}
}
