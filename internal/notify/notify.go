// Package notify sends transactional emails through the Resend API.
//
// Every send is best effort: failures are logged and counted, and the caller
// only learns whether the provider accepted the message.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/resend/resend-go/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/manubal/storefront/internal/domain/order"
)

// Sender is the part of the Resend client the Mailer uses. resend.Client's
// Emails service satisfies it.
type Sender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Config holds sender identities and presentation settings.
type Config struct {
	From         string
	ShippingFrom string
	SupportEmail string
	// BaseURL is the public storefront URL used for links in emails.
	BaseURL     string
	SuccessPath string
	Locale      string
	Currency    string
	Timeout     time.Duration
}

// Mailer renders and sends order emails.
type Mailer struct {
	sender       Sender
	cfg          Config
	money        *Money
	confirmation pair
	shipped      pair
	lg           *zap.Logger
	sent         metric.Int64Counter
}

// NewMailer creates a Mailer. A nil sender yields a Mailer whose sends are
// skipped and report false.
func NewMailer(sender Sender, cfg Config, lg *zap.Logger, mp metric.MeterProvider) (*Mailer, error) {
	if cfg.ShippingFrom == "" {
		cfg.ShippingFrom = cfg.From
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.SuccessPath == "" {
		cfg.SuccessPath = "/order-success"
	}

	money, err := NewMoney(cfg.Locale, cfg.Currency)
	if err != nil {
		return nil, err
	}
	confirmation, err := loadPair("confirmation")
	if err != nil {
		return nil, err
	}
	shipped, err := loadPair("shipped")
	if err != nil {
		return nil, err
	}
	sent, err := mp.Meter("storefront/notify").Int64Counter("notify.emails",
		metric.WithDescription("Transactional emails by kind and outcome"))
	if err != nil {
		return nil, errors.Wrap(err, "emails counter")
	}

	return &Mailer{
		sender:       sender,
		cfg:          cfg,
		money:        money,
		confirmation: confirmation,
		shipped:      shipped,
		lg:           lg,
		sent:         sent,
	}, nil
}

// SendOrderConfirmation emails the receipt for a newly placed order.
func (m *Mailer) SendOrderConfirmation(ctx context.Context, c order.Confirmation) bool {
	view := confirmationView{
		CustomerName: fullName(c.Customer.FirstName, c.Customer.LastName),
		OrderID:      c.OrderID,
		OrderDate:    c.PlacedAt.Format("2 January 2006, 15:04 MST"),
		Subtotal:     m.money.Format(c.Totals.Subtotal),
		Shipping:     m.money.Format(c.Totals.Shipping),
		Tax:          m.money.Format(c.Totals.Tax),
		Total:        m.money.Format(c.Totals.Total),
		Address:      c.Customer.Address,
		City:         c.Customer.City,
		State:        c.Customer.State,
		ZipCode:      c.Customer.ZipCode,
		SupportEmail: m.cfg.SupportEmail,
	}
	if m.cfg.BaseURL != "" {
		view.OrderURL = fmt.Sprintf("%s%s?orderId=%d", strings.TrimRight(m.cfg.BaseURL, "/"), m.cfg.SuccessPath, c.OrderID)
	}
	for _, it := range c.Items {
		view.Items = append(view.Items, lineView{
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    m.money.Format(it.Price),
			Total:    m.money.Format(it.Total),
		})
	}

	return m.send(ctx, "order_confirmation", c.OrderID, m.confirmation, view, &resend.SendEmailRequest{
		From:    m.cfg.From,
		To:      []string{c.Customer.Email},
		Subject: fmt.Sprintf("Order Confirmation #%d - Thank you for your purchase!", c.OrderID),
	})
}

// SendShipmentNotice tells the customer their order is on its way.
func (m *Mailer) SendShipmentNotice(ctx context.Context, s order.Shipment) bool {
	view := shipmentView{
		CustomerName:   fullName(s.Customer.FirstName, s.Customer.LastName),
		OrderID:        s.OrderID,
		TrackingNumber: s.TrackingNumber,
		TrackingURL:    s.TrackingURL,
		SupportEmail:   m.cfg.SupportEmail,
	}
	return m.send(ctx, "order_shipped", s.OrderID, m.shipped, view, &resend.SendEmailRequest{
		From:    m.cfg.ShippingFrom,
		To:      []string{s.Customer.Email},
		Subject: fmt.Sprintf("Your order #%d has shipped!", s.OrderID),
	})
}

func (m *Mailer) send(ctx context.Context, kind string, orderID int64, tmpl pair, view any, req *resend.SendEmailRequest) (ok bool) {
	lg := m.lg.With(zap.String("kind", kind), zap.Int64("order_id", orderID))
	defer func() {
		if r := recover(); r != nil {
			lg.Error("Email send panicked", zap.Any("panic", r), zap.Stack("stack"))
			ok = false
		}
		m.sent.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.Bool("sent", ok),
		))
	}()

	if m.sender == nil {
		lg.Debug("Email delivery disabled, skipping")
		return false
	}

	html, text, err := tmpl.render(view)
	if err != nil {
		lg.Error("Render email", zap.Error(err))
		return false
	}
	req.Html = html
	req.Text = text
	if m.cfg.SupportEmail != "" {
		req.ReplyTo = m.cfg.SupportEmail
	}
	req.Tags = []resend.Tag{
		{Name: "category", Value: kind},
		{Name: "order_id", Value: strconv.FormatInt(orderID, 10)},
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	resp, err := m.sender.SendWithContext(ctx, req)
	if err != nil {
		lg.Error("Send email", zap.Strings("to", req.To), zap.Error(err))
		return false
	}
	var id string
	if resp != nil {
		id = resp.Id
	}
	lg.Info("Email sent", zap.String("email_id", id))
	return true
}

func fullName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
