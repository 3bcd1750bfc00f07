package services

import (
	"context"
	"fmt"
	"strings"

	domain "github.com/atelier-mirabelle/api/internal/domain"
	"github.com/atelier-mirabelle/api/internal/lifecycle"
	"github.com/atelier-mirabelle/api/internal/payments"
)

// transitionActions declares the order pipeline. Pre-persist actions gate the
// status change, post-persist actions run after the commit in declaration order.
func (s *orderService) transitionActions() []lifecycle.Action[domain.Order, domain.OrderStatus] {
	return []lifecycle.Action[domain.Order, domain.OrderStatus]{
		createOrderPaymentAction{svc: s},
		refundOnCancellationAction{svc: s},
		sendPaymentLinkAction{svc: s},
		sendPaymentConfirmationAction{svc: s},
		adjustStockAction{svc: s},
		sendShippingNotificationAction{svc: s},
		sendCancellationNoticeAction{svc: s},
	}
}

// createOrderPaymentAction records a pending full-order charge and creates the
// hosted payment link before the order enters pending_payment. A link failure
// rolls the payment record back and aborts the transition.
type createOrderPaymentAction struct {
	svc *orderService
}

func (a createOrderPaymentAction) Name() string { return "create_order_payment" }
func (a createOrderPaymentAction) PrePersist() bool { return true }

func (a createOrderPaymentAction) Applies(_, to domain.OrderStatus, _ lifecycle.Transition) bool {
	return to == domain.OrderStatusPendingPayment
}

func (a createOrderPaymentAction) Execute(ctx context.Context, order domain.Order, _, _ domain.OrderStatus, _ lifecycle.Transition) error {
	s := a.svc

	existing, err := s.payments.List(ctx, order.ID)
	if err != nil {
		return mapOrderRepositoryError(err)
	}
	for _, p := range existing {
		if p.Kind == domain.PaymentKindOrderFull && p.Status == domain.PaymentStatusPending {
			// The customer already holds an open link. Re-entering
			// pending_payment must not double charge.
			return nil
		}
	}

	amount := order.Total.Add(order.ShipmentFee)
	region := payments.RegionEU
	if order.ShippingTo != nil {
		region = payments.RegionForCountry(order.ShippingTo.Country)
	}

	now := s.clock()
	payment := domain.OrderPayment{
		ID:           paymentIDPrefix + s.newID(),
		OrderID:      order.ID,
		Kind:         domain.PaymentKindOrderFull,
		Status:       domain.PaymentStatusPending,
		Amount:       amount,
		ProcessorFee: payments.EstimateFee(amount, region),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.payments.Insert(ctx, payment); err != nil {
		return mapOrderRepositoryError(err)
	}

	link, err := s.provider.CreatePaymentLink(ctx, payments.PaymentLinkRequest{
		Amount:        amount.Cents(),
		Currency:      s.checkout.Currency,
		CustomerEmail: order.Customer.Email,
		SuccessURL:    s.checkout.SuccessURL,
		CancelURL:     s.checkout.CancelURL,
		Locale:        s.checkout.Locale,
		Metadata: map[string]string{
			"order_id":   order.ID,
			"payment_id": payment.ID,
			"reference":  order.Reference,
		},
		IdempotencyKey: payment.ID,
		Items:          checkoutItems(order, s.checkout.Currency),
	})
	if err != nil {
		if delErr := s.payments.Delete(ctx, order.ID, payment.ID); delErr != nil {
			s.logger(ctx, "order.payment_rollback_failed", map[string]any{
				"order_id":   order.ID,
				"payment_id": payment.ID,
				"error":      delErr.Error(),
			})
		}
		return fmt.Errorf("create payment link: %w", err)
	}

	payment.IntentID = link.IntentID
	payment.PaymentLink = link.URL
	payment.UpdatedAt = s.clock()
	if err := s.payments.Update(ctx, payment); err != nil {
		return mapOrderRepositoryError(err)
	}
	return nil
}

// refundOnCancellationAction refunds every captured payment before a paid or
// to-ship order is cancelled. Any refund failure aborts the cancellation.
type refundOnCancellationAction struct {
	svc *orderService
}

func (a refundOnCancellationAction) Name() string { return "refund_on_cancellation" }
func (a refundOnCancellationAction) PrePersist() bool { return true }

func (a refundOnCancellationAction) Applies(from, to domain.OrderStatus, _ lifecycle.Transition) bool {
	return lifecycle.OrderRequiresRefund(from, to)
}

func (a refundOnCancellationAction) Execute(ctx context.Context, order domain.Order, from, _ domain.OrderStatus, tr lifecycle.Transition) error {
	outcome, err := a.svc.refunds.ProcessOrderCancellationRefund(ctx, order, from, tr.Reason)
	if err != nil {
		return err
	}
	if outcome.Required && !outcome.Succeeded {
		var failures []string
		for _, result := range outcome.Results {
			if !result.Succeeded {
				failures = append(failures, fmt.Sprintf("%s: %s", result.PaymentID, result.Error))
			}
		}
		return fmt.Errorf("refund incomplete: %s", strings.Join(failures, "; "))
	}
	return nil
}

// sendPaymentLinkAction emails the open payment link once the order is in
// pending_payment.
type sendPaymentLinkAction struct {
	svc *orderService
}

func (a sendPaymentLinkAction) Name() string { return "send_payment_link" }
func (a sendPaymentLinkAction) PrePersist() bool { return false }

func (a sendPaymentLinkAction) Applies(_, to domain.OrderStatus, _ lifecycle.Transition) bool {
	return to == domain.OrderStatusPendingPayment
}

func (a sendPaymentLinkAction) Execute(ctx context.Context, order domain.Order, _, _ domain.OrderStatus, _ lifecycle.Transition) error {
	s := a.svc
	list, err := s.payments.List(ctx, order.ID)
	if err != nil {
		return mapOrderRepositoryError(err)
	}
	for _, p := range list {
		if p.Kind == domain.PaymentKindOrderFull && p.Status == domain.PaymentStatusPending && p.PaymentLink != "" {
			return s.notifier.SendPaymentLink(ctx, order, p)
		}
	}
	return fmt.Errorf("order %s has no open payment link", order.ID)
}

// sendPaymentConfirmationAction notifies the customer and the back office once
// the order is paid.
type sendPaymentConfirmationAction struct {
	svc *orderService
}

func (a sendPaymentConfirmationAction) Name() string { return "send_payment_confirmation" }
func (a sendPaymentConfirmationAction) PrePersist() bool { return false }

func (a sendPaymentConfirmationAction) Applies(_, to domain.OrderStatus, _ lifecycle.Transition) bool {
	return to == domain.OrderStatusPaid
}

func (a sendPaymentConfirmationAction) Execute(ctx context.Context, order domain.Order, _, _ domain.OrderStatus, _ lifecycle.Transition) error {
	s := a.svc
	list, err := s.payments.List(ctx, order.ID)
	if err != nil {
		return mapOrderRepositoryError(err)
	}
	// Manual transitions, typically bank transfers, may have no payment
	// record. The confirmation still goes out with a zero payment.
	var payment domain.OrderPayment
	for _, p := range list {
		if p.Kind != domain.PaymentKindOrderFull {
			continue
		}
		payment = p
		if p.Status == domain.PaymentStatusPaid {
			break
		}
	}
	return s.notifier.SendPaymentConfirmation(ctx, order, payment)
}

// adjustStockAction decrements stock when the order is paid and restores it
// when a previously paid order is cancelled. Illustration-only orders carry no
// stock.
type adjustStockAction struct {
	svc *orderService
}

func (a adjustStockAction) Name() string { return "adjust_stock" }
func (a adjustStockAction) PrePersist() bool { return false }

func (a adjustStockAction) Applies(from, to domain.OrderStatus, _ lifecycle.Transition) bool {
	if to == domain.OrderStatusPaid {
		return true
	}
	if to != domain.OrderStatusCancelled {
		return false
	}
	switch from {
	case domain.OrderStatusPaid, domain.OrderStatusToShip, domain.OrderStatusShipped:
		return true
	}
	return false
}

func (a adjustStockAction) Execute(ctx context.Context, order domain.Order, _, to domain.OrderStatus, _ lifecycle.Transition) error {
	if len(order.Lines) == 0 {
		return nil
	}
	if to == domain.OrderStatusPaid {
		return a.svc.stock.DecrementForOrder(ctx, order)
	}
	return a.svc.stock.RestoreForOrder(ctx, order)
}

// sendShippingNotificationAction emails the tracking details once the order ships.
type sendShippingNotificationAction struct {
	svc *orderService
}

func (a sendShippingNotificationAction) Name() string { return "send_shipping_notification" }
func (a sendShippingNotificationAction) PrePersist() bool { return false }

func (a sendShippingNotificationAction) Applies(_, to domain.OrderStatus, _ lifecycle.Transition) bool {
	return to == domain.OrderStatusShipped
}

func (a sendShippingNotificationAction) Execute(ctx context.Context, order domain.Order, _, _ domain.OrderStatus, _ lifecycle.Transition) error {
	return a.svc.notifier.SendShippingNotification(ctx, order)
}

// sendCancellationNoticeAction informs the customer about the cancellation and
// whether a refund was issued.
type sendCancellationNoticeAction struct {
	svc *orderService
}

func (a sendCancellationNoticeAction) Name() string { return "send_cancellation_notice" }
func (a sendCancellationNoticeAction) PrePersist() bool { return false }

func (a sendCancellationNoticeAction) Applies(_, to domain.OrderStatus, _ lifecycle.Transition) bool {
	return to == domain.OrderStatusCancelled
}

func (a sendCancellationNoticeAction) Execute(ctx context.Context, order domain.Order, from, to domain.OrderStatus, _ lifecycle.Transition) error {
	refunded := lifecycle.OrderRequiresRefund(from, to)
	return a.svc.notifier.SendCancellationNotice(ctx, order, refunded)
}

func checkoutItems(order domain.Order, currency string) []payments.LineItem {
	items := make([]payments.LineItem, 0, len(order.Lines)+len(order.Illustrations)+1)
	for _, line := range order.Lines {
		items = append(items, payments.LineItem{
			Name:     line.Name,
			SKU:      line.SKU,
			Quantity: int64(line.Quantity),
			Amount:   line.UnitPrice.Cents(),
			Currency: currency,
		})
	}
	for _, ill := range order.Illustrations {
		items = append(items, payments.LineItem{
			Name:        fmt.Sprintf("Illustration %s", ill.Kind),
			Description: ill.Description,
			Quantity:    1,
			Amount:      ill.Price.Cents(),
			Currency:    currency,
		})
	}
	if order.ShipmentFee.Cents() > 0 {
		items = append(items, payments.LineItem{
			Name:     "Frais de port",
			Quantity: 1,
			Amount:   order.ShipmentFee.Cents(),
			Currency: currency,
		})
	}
	return items
}
