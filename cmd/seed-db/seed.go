package main

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/manubal/storefront/internal/domain/checkout"
	"github.com/manubal/storefront/internal/domain/customer"
	"github.com/manubal/storefront/internal/domain/order"
)

type seedItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type seedOrder struct {
	Customer struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
		Phone     string `json:"phoneNumber"`
		Address   string `json:"address"`
		City      string `json:"city"`
		State     string `json:"state"`
		ZipCode   string `json:"zipCode"`
	} `json:"customer"`
	PlacedAt time.Time    `json:"placedAt"`
	Status   order.Status `json:"status"`
	Items    []seedItem   `json:"items"`
}

func load(r io.Reader) ([]seedOrder, error) {
	var orders []seedOrder
	if err := json.NewDecoder(r).Decode(&orders); err != nil {
		return nil, err
	}
	for i, o := range orders {
		if o.Customer.Email == "" {
			return nil, errors.Errorf("order %d: customer email is required", i)
		}
		if len(o.Items) == 0 {
			return nil, errors.Errorf("order %d: no items", i)
		}
		for j, it := range o.Items {
			if it.Quantity < 1 || it.Price.IsNegative() {
				return nil, errors.Errorf("order %d item %d: invalid quantity or price", i, j)
			}
		}
		if o.Status != "" && !o.Status.Known() {
			return nil, errors.Errorf("order %d: unknown status %q", i, o.Status)
		}
	}
	return orders, nil
}

// seed writes every order in its own transaction, so a bad row leaves the
// rows before it in place.
func seed(ctx context.Context, lg *zap.Logger, store checkout.Store, pricing checkout.Pricing, orders []seedOrder) error {
	for i, o := range orders {
		items := make([]order.Item, len(o.Items))
		for j, it := range o.Items {
			items[j] = order.Item{
				ProductID: it.ID,
				Name:      it.Name,
				Price:     it.Price,
				Quantity:  it.Quantity,
				Total:     it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
			}
		}

		var orderID int64
		err := store.WithinTx(ctx, func(ctx context.Context, customers customer.Repository, repo order.Repository) error {
			customerID, err := customers.UpsertByEmail(ctx, customer.Contact(o.Customer))
			if err != nil {
				return errors.Wrap(err, "upsert customer")
			}
			orderID, err = repo.Create(ctx, order.NewOrder{
				CustomerID: customerID,
				Items:      items,
				Totals:     pricing.Totals(items),
				PlacedAt:   o.PlacedAt,
			})
			if err != nil {
				return errors.Wrap(err, "create order")
			}
			if o.Status != "" && o.Status != order.StatusPending {
				if _, err := repo.UpdateStatus(ctx, orderID, o.Status); err != nil {
					return errors.Wrap(err, "set status")
				}
			}
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "order %d", i)
		}
		lg.Info("Seeded order",
			zap.Int64("order_id", orderID),
			zap.String("email", o.Customer.Email),
			zap.Int("items", len(items)),
		)
	}
	return nil
}
