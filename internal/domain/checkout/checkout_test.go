package checkout

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/manubal/storefront/internal/domain/apperr"
	"github.com/manubal/storefront/internal/domain/order"
)

type fakeNotifier struct {
	mu     sync.Mutex
	sent   []order.Confirmation
	ctxErr []error
	result bool
}

func (f *fakeNotifier) SendOrderConfirmation(ctx context.Context, c order.Confirmation) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	f.ctxErr = append(f.ctxErr, ctx.Err())
	return f.result
}

func newTestService(t *testing.T, store Store, n ConfirmationNotifier) *Service {
	t.Helper()
	svc, err := NewService(store, n, Config{Pricing: DefaultPricing()}, zap.NewNop(),
		tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	require.NoError(t, err)
	return svc
}

func validRequest() Request {
	return Request{
		FirstName: "Asha",
		LastName:  "Rao",
		Email:     "asha@example.com",
		Phone:     "+91 98450 00000",
		Address:   "12 MG Road",
		City:      "Bengaluru",
		State:     "KA",
		ZipCode:   "560001",
		Items: []Item{
			{ID: "tee-01", Name: "Logo Tee", Price: decimal.NewFromInt(100), Quantity: 2},
			{ID: "mug-02", Name: "Mug", Price: decimal.NewFromInt(50), Quantity: 1},
		},
	}
}

func TestPlace_PersistsOrderAndSendsConfirmation(t *testing.T) {
	store := newMemStore()
	n := &fakeNotifier{result: true}
	svc := newTestService(t, store, n)

	res, err := svc.Place(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.OrderID)
	assert.Equal(t, int64(1), res.CustomerID)
	assert.True(t, res.EmailSent)
	assert.Equal(t, "/order-success?orderId=1", res.RedirectURL)

	orders := store.committedOrders()
	require.Len(t, orders, 1)
	o := orders[0].order
	assert.Equal(t, int64(1), o.CustomerID)
	assert.Equal(t, "250.00", o.Totals.Subtotal.StringFixed(2))
	assert.Equal(t, "50.00", o.Totals.Shipping.StringFixed(2))
	assert.Equal(t, "12.50", o.Totals.Tax.StringFixed(2))
	assert.Equal(t, "312.50", o.Totals.Total.StringFixed(2))

	require.Len(t, o.Items, 2)
	assert.Equal(t, "tee-01", o.Items[0].ProductID)
	assert.Equal(t, "Logo Tee", o.Items[0].Name)
	assert.Equal(t, "200.00", o.Items[0].Total.StringFixed(2))
	assert.Equal(t, "50.00", o.Items[1].Total.StringFixed(2))

	require.Len(t, n.sent, 1)
	assert.Equal(t, int64(1), n.sent[0].OrderID)
	assert.Equal(t, "asha@example.com", n.sent[0].Customer.Email)
	assert.Equal(t, "312.50", n.sent[0].Totals.Total.StringFixed(2))
}

func TestPlace_ReusesCustomerByEmail(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, &fakeNotifier{result: true})

	first, err := svc.Place(context.Background(), validRequest())
	require.NoError(t, err)

	again := validRequest()
	again.City = "Mysuru"
	again.Phone = ""
	second, err := svc.Place(context.Background(), again)
	require.NoError(t, err)

	assert.Equal(t, first.CustomerID, second.CustomerID)
	assert.NotEqual(t, first.OrderID, second.OrderID)
	assert.Equal(t, 1, store.customerCount())

	c, ok := store.customerByEmail("asha@example.com")
	require.True(t, ok)
	assert.Equal(t, "Mysuru", c.City)
	assert.Empty(t, c.Phone)
}

func TestPlace_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Request)
		field   string
		message string
	}{
		{"missing city", func(r *Request) { r.City = "" }, "city", "Missing required field: city"},
		{"first missing field wins", func(r *Request) { r.FirstName = ""; r.ZipCode = "" }, "firstName", "Missing required field: firstName"},
		{"missing cart", func(r *Request) { r.Items = nil }, "cartItems", "Missing required field: cartItems"},
		{"empty cart", func(r *Request) { r.Items = []Item{} }, "cartItems", "Cart is empty"},
		{"bad email", func(r *Request) { r.Email = "not-an-email" }, "email", "Invalid email address"},
		{"zero quantity", func(r *Request) { r.Items[1].Quantity = 0 }, "cartItems[1].quantity", "Invalid cartItems[1].quantity: must be at least 1"},
		{"negative price", func(r *Request) { r.Items[0].Price = decimal.NewFromInt(-1) }, "cartItems[0].price", "Invalid cartItems[0].price: must not be negative"},
		{"sub-cent price", func(r *Request) { r.Items[1].Price = decimal.RequireFromString("0.005") }, "cartItems[1].price", "Invalid cartItems[1].price: at most 2 decimal places"},
		{"item without id", func(r *Request) { r.Items[0].ID = "" }, "cartItems[0].id", "Missing required field: cartItems[0].id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			n := &fakeNotifier{result: true}
			svc := newTestService(t, store, n)
			req := validRequest()
			tt.mutate(&req)

			_, err := svc.Place(context.Background(), req)

			var ve *apperr.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, tt.message, ve.Message)
			assert.Zero(t, store.txCount, "no transaction for invalid input")
			assert.Empty(t, n.sent)
		})
	}
}

func TestPlace_AcceptsTrailingZeroPrecision(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, &fakeNotifier{result: true})
	req := validRequest()
	req.Items[0].Price = decimal.RequireFromString("450.000")

	_, err := svc.Place(context.Background(), req)
	require.NoError(t, err)
}

func TestPlace_RollsBackOnFailure(t *testing.T) {
	store := newMemStore()
	store.failCreate = errors.New("insert order_items: check constraint violated")
	n := &fakeNotifier{result: true}
	svc := newTestService(t, store, n)

	_, err := svc.Place(context.Background(), validRequest())

	var pe *apperr.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "place order", pe.Op)
	assert.Zero(t, store.customerCount(), "customer upsert must roll back")
	assert.Empty(t, store.committedOrders())
	assert.Empty(t, n.sent, "no email for a failed order")
}

func TestPlace_EmailFailureDoesNotFailCheckout(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, &fakeNotifier{result: false})

	res, err := svc.Place(context.Background(), validRequest())
	require.NoError(t, err)
	assert.False(t, res.EmailSent)
	assert.Len(t, store.committedOrders(), 1)
}

func TestPlace_EmailDetachedFromRequestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n := &fakeNotifier{result: true}
	svc := newTestService(t, newMemStore(), n)

	res, err := svc.Place(ctx, validRequest())
	require.NoError(t, err)
	assert.True(t, res.EmailSent)
	require.Len(t, n.ctxErr, 1)
	assert.NoError(t, n.ctxErr[0])
}

func TestPlace_CustomSuccessPath(t *testing.T) {
	svc, err := NewService(newMemStore(), &fakeNotifier{}, Config{
		Pricing:     DefaultPricing(),
		SuccessPath: "/thanks",
	}, zap.NewNop(), tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	require.NoError(t, err)

	res, err := svc.Place(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "/thanks?orderId=1", res.RedirectURL)
}
