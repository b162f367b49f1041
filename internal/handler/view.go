package handler

import (
	"time"

	"github.com/manubal/storefront/internal/domain/customer"
	"github.com/manubal/storefront/internal/domain/order"
)

// Money is stored with two fraction digits, so the float64 form round-trips
// for display.

type contactJSON struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phoneNumber"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
}

func newContactJSON(c customer.Contact) contactJSON {
	return contactJSON{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		City:      c.City,
		State:     c.State,
		ZipCode:   c.ZipCode,
	}
}

type customerJSON struct {
	ID int64 `json:"id"`
	contactJSON
	CreatedAt time.Time `json:"createdAt"`
}

func newCustomerJSON(c customer.Customer) customerJSON {
	return customerJSON{ID: c.ID, contactJSON: newContactJSON(c.Contact), CreatedAt: c.CreatedAt}
}

type customerSummaryJSON struct {
	customerJSON
	OrderCount int     `json:"orderCount"`
	TotalSpent float64 `json:"totalSpent"`
}

type customerOrderJSON struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Total     float64   `json:"total"`
	Status    string    `json:"status"`
}

type customerDetailJSON struct {
	customerJSON
	Orders []customerOrderJSON `json:"orders"`
}

func newCustomerDetailJSON(d *customer.Detail) customerDetailJSON {
	orders := make([]customerOrderJSON, len(d.Orders))
	for i, o := range d.Orders {
		orders[i] = customerOrderJSON{
			ID:        o.ID,
			CreatedAt: o.CreatedAt,
			Total:     o.Total.InexactFloat64(),
			Status:    o.Status,
		}
	}
	return customerDetailJSON{customerJSON: newCustomerJSON(d.Customer), Orders: orders}
}

type orderJSON struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customerId"`
	Subtotal   float64   `json:"subtotal"`
	Shipping   float64   `json:"shipping"`
	Tax        float64   `json:"tax"`
	Total      float64   `json:"total"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func newOrderJSON(o order.Order) orderJSON {
	return orderJSON{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		Subtotal:   o.Subtotal.InexactFloat64(),
		Shipping:   o.Shipping.InexactFloat64(),
		Tax:        o.Tax.InexactFloat64(),
		Total:      o.Total.InexactFloat64(),
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

type orderSummaryJSON struct {
	orderJSON
	CustomerName string `json:"customerName"`
	ItemCount    int    `json:"itemCount"`
}

type itemJSON struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"productName"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Total     float64 `json:"total"`
}

type orderDetailJSON struct {
	orderJSON
	Customer contactJSON `json:"customer"`
	Items    []itemJSON  `json:"items"`
}

func newOrderDetailJSON(d *order.Detail) orderDetailJSON {
	items := make([]itemJSON, len(d.Items))
	for i, it := range d.Items {
		items[i] = itemJSON{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price.InexactFloat64(),
			Quantity:  it.Quantity,
			Total:     it.Total.InexactFloat64(),
		}
	}
	return orderDetailJSON{
		orderJSON: newOrderJSON(d.Order),
		Customer:  newContactJSON(d.Customer),
		Items:     items,
	}
}

type monthlyStatJSON struct {
	Month        string  `json:"month"`
	OrderCount   int     `json:"orderCount"`
	TotalRevenue float64 `json:"totalRevenue"`
}
