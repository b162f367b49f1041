package main

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/manubal/storefront/internal/domain/order"
)

// Source streams full orders placed at or after since, oldest first.
type Source interface {
	ExportSince(ctx context.Context, since time.Time, emit func(*order.Detail) error) error
}

// record is one line of the export. Money is written as decimal strings so
// downstream tools never see float rounding.
type record struct {
	ID        int64     `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Customer  struct {
		ID      int64  `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Phone   string `json:"phoneNumber,omitempty"`
		City    string `json:"city"`
		State   string `json:"state"`
		ZipCode string `json:"zipCode"`
	} `json:"customer"`
	Subtotal string       `json:"subtotal"`
	Shipping string       `json:"shipping"`
	Tax      string       `json:"tax"`
	Total    string       `json:"total"`
	Items    []recordItem `json:"items"`
}

type recordItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"productName"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	Total     string `json:"total"`
}

func newRecord(d *order.Detail) record {
	r := record{
		ID:        d.ID,
		Status:    string(d.Status),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
		Subtotal:  d.Subtotal.StringFixed(2),
		Shipping:  d.Shipping.StringFixed(2),
		Tax:       d.Tax.StringFixed(2),
		Total:     d.Total.StringFixed(2),
		Items:     make([]recordItem, len(d.Items)),
	}
	r.Customer.ID = d.CustomerID
	r.Customer.Name = d.Customer.FirstName + " " + d.Customer.LastName
	r.Customer.Email = d.Customer.Email
	r.Customer.Phone = d.Customer.Phone
	r.Customer.City = d.Customer.City
	r.Customer.State = d.Customer.State
	r.Customer.ZipCode = d.Customer.ZipCode
	for i, it := range d.Items {
		r.Items[i] = recordItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price.StringFixed(2),
			Quantity:  it.Quantity,
			Total:     it.Total.StringFixed(2),
		}
	}
	return r
}

// export reads orders from src on one goroutine and writes them as gzip
// JSON Lines to w on another. It returns the number of orders written.
func export(ctx context.Context, src Source, since time.Time, w io.Writer) (int, error) {
	details := make(chan *order.Detail, 64)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(details)
		err := src.ExportSince(ctx, since, func(d *order.Detail) error {
			select {
			case details <- d:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			return errors.Wrap(err, "read orders")
		}
		return nil
	})

	var written int
	g.Go(func() error {
		zw := pgzip.NewWriter(w)
		enc := json.NewEncoder(zw)
		for d := range details {
			if err := enc.Encode(newRecord(d)); err != nil {
				return errors.Wrapf(err, "write order %d", d.ID)
			}
			written++
		}
		if err := zw.Close(); err != nil {
			return errors.Wrap(err, "flush gzip")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return written, err
	}
	return written, nil
}
