// Package notifications delivers transactional emails for order and
// illustration lifecycle events.
package notifications

import (
	"context"
	"sync"

	"github.com/atelier-mirabelle/api/internal/domain"
)

// Notifier sends customer-facing and back-office emails triggered by
// lifecycle transitions.
type Notifier interface {
	// SendPaymentLink delivers a checkout link for an order or illustration
	// payment. The payment record carries the link URL and, for illustration
	// deposits and finals, the illustration id.
	SendPaymentLink(ctx context.Context, order domain.Order, payment domain.OrderPayment) error
	// SendPaymentConfirmation confirms a completed payment to the customer
	// and the configured admin addresses.
	SendPaymentConfirmation(ctx context.Context, order domain.Order, payment domain.OrderPayment) error
	// SendShippingNotification informs the customer that the order shipped,
	// including the tracking number.
	SendShippingNotification(ctx context.Context, order domain.Order) error
	// SendCancellationNotice informs the customer of a cancellation and
	// whether a refund was processed.
	SendCancellationNotice(ctx context.Context, order domain.Order, refunded bool) error
	// SendIllustrationUpdate informs the customer of an illustration status
	// change that has no dedicated template (completion notice).
	SendIllustrationUpdate(ctx context.Context, order domain.Order, illustration domain.Illustration) error
}

// Noop discards every notification. Used when notifications are disabled.
type Noop struct{}

func (Noop) SendPaymentLink(context.Context, domain.Order, domain.OrderPayment) error { return nil }
func (Noop) SendPaymentConfirmation(context.Context, domain.Order, domain.OrderPayment) error {
	return nil
}
func (Noop) SendShippingNotification(context.Context, domain.Order) error       { return nil }
func (Noop) SendCancellationNotice(context.Context, domain.Order, bool) error   { return nil }
func (Noop) SendIllustrationUpdate(context.Context, domain.Order, domain.Illustration) error {
	return nil
}

// CapturedNotification records a single dispatched notification.
type CapturedNotification struct {
	Kind           string
	OrderID        string
	PaymentID      string
	IllustrationID string
	Refunded       bool
}

// Capture accumulates notifications in memory. It backs service tests and the
// local development mode where no email provider is configured.
type Capture struct {
	mu   sync.Mutex
	sent []CapturedNotification
	// Err, when set, is returned from every send.
	Err error
}

// Sent returns a copy of the captured notifications in dispatch order.
func (c *Capture) Sent() []CapturedNotification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CapturedNotification, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *Capture) record(n CapturedNotification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.sent = append(c.sent, n)
	return nil
}

func (c *Capture) SendPaymentLink(_ context.Context, order domain.Order, payment domain.OrderPayment) error {
	return c.record(CapturedNotification{
		Kind:           "payment_link",
		OrderID:        order.ID,
		PaymentID:      payment.ID,
		IllustrationID: payment.IllustrationID,
	})
}

func (c *Capture) SendPaymentConfirmation(_ context.Context, order domain.Order, payment domain.OrderPayment) error {
	return c.record(CapturedNotification{
		Kind:           "payment_confirmation",
		OrderID:        order.ID,
		PaymentID:      payment.ID,
		IllustrationID: payment.IllustrationID,
	})
}

func (c *Capture) SendShippingNotification(_ context.Context, order domain.Order) error {
	return c.record(CapturedNotification{Kind: "shipping", OrderID: order.ID})
}

func (c *Capture) SendCancellationNotice(_ context.Context, order domain.Order, refunded bool) error {
	return c.record(CapturedNotification{Kind: "cancellation", OrderID: order.ID, Refunded: refunded})
}

func (c *Capture) SendIllustrationUpdate(_ context.Context, order domain.Order, illustration domain.Illustration) error {
	return c.record(CapturedNotification{
		Kind:           "illustration_update",
		OrderID:        order.ID,
		IllustrationID: illustration.ID,
	})
}
