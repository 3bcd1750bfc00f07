package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	domain "github.com/atelier-mirabelle/api/internal/domain"
	"github.com/atelier-mirabelle/api/internal/lifecycle"
	"github.com/atelier-mirabelle/api/internal/notifications"
	"github.com/atelier-mirabelle/api/internal/payments"
)

var testNow = time.Date(2026, time.May, 12, 9, 30, 0, 0, time.UTC)

// orderWorld wires an order service against in-memory stores so whole
// transitions can be exercised end to end.
type orderWorld struct {
	orders    map[string]domain.Order
	payments  []domain.OrderPayment
	changes   []domain.OrderStatusChange
	notifier  *notifications.Capture
	publisher *capturePublisher
	refunds   *stubRefundService
	stock     *stubStockService
	provider  *stubProvider
	svc       OrderService
}

func newOrderWorld(t *testing.T) *orderWorld {
	t.Helper()

	w := &orderWorld{
		orders:    map[string]domain.Order{},
		notifier:  &notifications.Capture{},
		publisher: &capturePublisher{},
		refunds:   &stubRefundService{},
		stock:     &stubStockService{},
		provider:  &stubProvider{},
	}

	orderRepo := &stubOrderRepo{
		insertFn: func(_ context.Context, order domain.Order) error {
			w.orders[order.ID] = order
			return nil
		},
		updateFn: func(_ context.Context, order domain.Order) error {
			w.orders[order.ID] = order
			return nil
		},
		findFn: func(_ context.Context, orderID string) (domain.Order, error) {
			order, ok := w.orders[orderID]
			if !ok {
				return domain.Order{}, fmt.Errorf("order %s missing", orderID)
			}
			return order, nil
		},
	}
	paymentRepo := &stubPaymentRepo{
		insertFn: func(_ context.Context, payment domain.OrderPayment) error {
			w.payments = append(w.payments, payment)
			return nil
		},
		updateFn: func(_ context.Context, payment domain.OrderPayment) error {
			for i := range w.payments {
				if w.payments[i].ID == payment.ID {
					w.payments[i] = payment
					return nil
				}
			}
			return fmt.Errorf("payment %s missing", payment.ID)
		},
		deleteFn: func(_ context.Context, _ string, paymentID string) error {
			for i := range w.payments {
				if w.payments[i].ID == paymentID {
					w.payments = append(w.payments[:i], w.payments[i+1:]...)
					return nil
				}
			}
			return fmt.Errorf("payment %s missing", paymentID)
		},
		findIntentFn: func(_ context.Context, intentID string) (domain.OrderPayment, error) {
			for _, p := range w.payments {
				if p.IntentID == intentID {
					return p, nil
				}
			}
			return domain.OrderPayment{}, fmt.Errorf("intent %s missing", intentID)
		},
		listFn: func(_ context.Context, orderID string) ([]domain.OrderPayment, error) {
			var out []domain.OrderPayment
			for _, p := range w.payments {
				if p.OrderID == orderID {
					out = append(out, p)
				}
			}
			return out, nil
		},
	}
	illRepo := &stubIllustrationRepo{
		listFn: func(context.Context, string) ([]domain.Illustration, error) {
			return nil, nil
		},
	}
	changeRepo := &stubStatusChangeRepo{
		appendOrderFn: func(_ context.Context, change domain.OrderStatusChange) error {
			w.changes = append(w.changes, change)
			return nil
		},
	}

	ids := 0
	svc, err := NewOrderService(OrderServiceDeps{
		Orders:        orderRepo,
		Illustrations: illRepo,
		Payments:      paymentRepo,
		StatusChanges: changeRepo,
		Provider:      w.provider,
		Refunds:       w.refunds,
		Stock:         w.stock,
		Notifier:      w.notifier,
		Publisher:     w.publisher,
		Checkout: CheckoutConfig{
			SuccessURL: "https://shop.example/merci",
			CancelURL:  "https://shop.example/panier",
			Locale:     "fr",
		},
		Clock: func() time.Time { return testNow },
		NewID: func() string {
			ids++
			return fmt.Sprintf("01test%04d", ids)
		},
		NewReference: func() (string, error) { return "AB12CD34", nil },
	})
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}
	w.svc = svc
	return w
}

func (w *orderWorld) seedOrder(t *testing.T, status domain.OrderStatus) domain.Order {
	t.Helper()
	order := domain.Order{
		ID:          "ord_seed",
		Reference:   "AB12CD34",
		Customer:    domain.Customer{GuestID: "guest_1", Email: "claire@example.com", Name: "Claire"},
		Status:      status,
		Total:       domain.MoneyFromCents(12000),
		ShipmentFee: domain.MoneyFromCents(500),
		ShippingTo: &domain.Address{
			Recipient:  "Claire",
			Line1:      "1 rue des Lilas",
			City:       "Lyon",
			PostalCode: "69003",
			Country:    "FR",
		},
		Lines: []domain.OrderLine{{
			ProductID: "prod_1",
			SKU:       "AFF-A4",
			Name:      "Affiche A4",
			Quantity:  2,
			UnitPrice: domain.MoneyFromCents(6000),
			Total:     domain.MoneyFromCents(12000),
		}},
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	w.orders[order.ID] = order
	return order
}

func TestCreateOrderValidation(t *testing.T) {
	w := newOrderWorld(t)
	ctx := context.Background()

	cases := []struct {
		name string
		cmd  CreateOrderCommand
	}{
		{
			name: "customer with both ids",
			cmd: CreateOrderCommand{
				Customer: domain.Customer{UserID: "user_1", GuestID: "guest_1", Email: "a@b.c"},
				Lines:    []CreateOrderLine{{ProductID: "p", Name: "n", Quantity: 1}},
			},
		},
		{
			name: "no lines and no illustrations",
			cmd: CreateOrderCommand{
				Customer: domain.Customer{GuestID: "guest_1", Email: "a@b.c"},
			},
		},
		{
			name: "zero quantity line",
			cmd: CreateOrderCommand{
				Customer: domain.Customer{GuestID: "guest_1", Email: "a@b.c"},
				Lines:    []CreateOrderLine{{ProductID: "p", Name: "n", Quantity: 0}},
			},
		},
		{
			name: "unknown illustration kind",
			cmd: CreateOrderCommand{
				Customer:      domain.Customer{GuestID: "guest_1", Email: "a@b.c"},
				Illustrations: []CreateIllustrationInput{{Kind: "statue"}},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := w.svc.CreateOrder(ctx, tc.cmd); !errors.Is(err, ErrOrderInvalidInput) {
				t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
			}
		})
	}
}

func TestCreateOrderPersistsOrderWithIllustrations(t *testing.T) {
	w := newOrderWorld(t)

	order, err := w.svc.CreateOrder(context.Background(), CreateOrderCommand{
		Customer: domain.Customer{GuestID: "guest_1", Email: "claire@example.com", Name: "Claire"},
		Lines: []CreateOrderLine{{
			ProductID: "prod_1",
			Name:      "Affiche A4",
			Quantity:  2,
			UnitPrice: domain.MoneyFromCents(6000),
		}},
		Illustrations: []CreateIllustrationInput{{
			Kind:  domain.IllustrationKindBust,
			Price: domain.MoneyFromCents(15000),
		}},
		ShipmentFee: domain.MoneyFromCents(500),
		Metadata:    map[string]string{" source ": " boutique ", "": "dropped"},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if order.Status != domain.OrderStatusNew {
		t.Fatalf("status = %s, want new", order.Status)
	}
	if order.Reference != "AB12CD34" {
		t.Fatalf("reference = %q", order.Reference)
	}
	if got, want := order.Total.Cents(), int64(27000); got != want {
		t.Fatalf("total = %d, want %d", got, want)
	}
	if len(order.Illustrations) != 1 || order.Illustrations[0].Status != domain.IllustrationStatusPending {
		t.Fatalf("illustrations = %+v", order.Illustrations)
	}
	if order.Illustrations[0].OrderID != order.ID {
		t.Fatalf("illustration order id = %q, want %q", order.Illustrations[0].OrderID, order.ID)
	}
	if got := order.Metadata["source"]; got != "boutique" {
		t.Fatalf("metadata = %+v", order.Metadata)
	}

	if len(w.changes) != 1 {
		t.Fatalf("changes = %d, want 1", len(w.changes))
	}
	if w.changes[0].FromStatus != nil || w.changes[0].ToStatus != domain.OrderStatusNew {
		t.Fatalf("initial change = %+v", w.changes[0])
	}
	if w.changes[0].TriggeredBy != domain.TriggerCustomer {
		t.Fatalf("triggered by = %s", w.changes[0].TriggeredBy)
	}
	if len(w.publisher.events) != 1 || w.publisher.events[0].ToStatus != "new" {
		t.Fatalf("published events = %+v", w.publisher.events)
	}
}

func TestCreateOrderRetriesReferenceOnCollision(t *testing.T) {
	w := newOrderWorld(t)

	refs := []string{"TAKEN111", "FREE2222"}
	i := 0
	seen := map[string]bool{"TAKEN111": true}

	svc, err := NewOrderService(OrderServiceDeps{
		Orders: &stubOrderRepo{
			refExistsFn: func(_ context.Context, ref string) (bool, error) {
				return seen[ref], nil
			},
			insertFn: func(_ context.Context, order domain.Order) error {
				w.orders[order.ID] = order
				return nil
			},
		},
		Illustrations: &stubIllustrationRepo{},
		Payments:      &stubPaymentRepo{},
		StatusChanges: &stubStatusChangeRepo{},
		Provider:      w.provider,
		Refunds:       w.refunds,
		Stock:         w.stock,
		NewReference: func() (string, error) {
			ref := refs[i]
			i++
			return ref, nil
		},
	})
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}

	order, err := svc.CreateOrder(context.Background(), CreateOrderCommand{
		Customer: domain.Customer{GuestID: "guest_1", Email: "a@b.c"},
		Lines:    []CreateOrderLine{{ProductID: "p", Name: "n", Quantity: 1, UnitPrice: domain.MoneyFromCents(100)}},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.Reference != "FREE2222" {
		t.Fatalf("reference = %q, want FREE2222", order.Reference)
	}
}

func TestTransitionToPendingPaymentCreatesLink(t *testing.T) {
	w := newOrderWorld(t)
	order := w.seedOrder(t, domain.OrderStatusNew)

	var linkReq payments.PaymentLinkRequest
	w.provider.linkFn = func(_ context.Context, req payments.PaymentLinkRequest) (payments.PaymentLink, error) {
		linkReq = req
		return payments.PaymentLink{SessionID: "cs_1", URL: "https://pay.example/cs_1", IntentID: "pi_1"}, nil
	}

	updated, err := w.svc.TransitionStatus(context.Background(), OrderTransitionCommand{
		OrderID:  order.ID,
		ToStatus: domain.OrderStatusPendingPayment,
	})
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if updated.Status != domain.OrderStatusPendingPayment {
		t.Fatalf("status = %s", updated.Status)
	}

	if len(w.payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(w.payments))
	}
	p := w.payments[0]
	if p.Kind != domain.PaymentKindOrderFull || p.Status != domain.PaymentStatusPending {
		t.Fatalf("payment = %+v", p)
	}
	if got, want := p.Amount.Cents(), int64(12500); got != want {
		t.Fatalf("amount = %d, want %d", got, want)
	}
	// EU card rate over 125.00: round(12500*0.015)+25.
	if got, want := p.ProcessorFee.Cents(), int64(213); got != want {
		t.Fatalf("processor fee = %d, want %d", got, want)
	}
	if p.IntentID != "pi_1" || p.PaymentLink != "https://pay.example/cs_1" {
		t.Fatalf("payment link fields = %+v", p)
	}
	if got, want := linkReq.Amount, int64(12500); got != want {
		t.Fatalf("link amount = %d, want %d", got, want)
	}
	if linkReq.IdempotencyKey != p.ID {
		t.Fatalf("idempotency key = %q", linkReq.IdempotencyKey)
	}

	sent := w.notifier.Sent()
	if len(sent) != 1 || sent[0].Kind != "payment_link" || sent[0].PaymentID != p.ID {
		t.Fatalf("notifications = %+v", sent)
	}
}

func TestTransitionPendingPaymentLinkFailureAborts(t *testing.T) {
	w := newOrderWorld(t)
	order := w.seedOrder(t, domain.OrderStatusNew)

	w.provider.linkFn = func(context.Context, payments.PaymentLinkRequest) (payments.PaymentLink, error) {
		return payments.PaymentLink{}, errors.New("stripe unreachable")
	}

	_, err := w.svc.TransitionStatus(context.Background(), OrderTransitionCommand{
		OrderID:  order.ID,
		ToStatus: domain.OrderStatusPendingPayment,
	})
	if err == nil || !strings.Contains(err.Error(), "stripe unreachable") {
		t.Fatalf("expected link failure, got %v", err)
	}

	var trErr *lifecycle.TransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected TransitionError, got %T", err)
	}
	if w.orders[order.ID].Status != domain.OrderStatusNew {
		t.Fatalf("status advanced to %s", w.orders[order.ID].Status)
	}
	if len(w.payments) != 0 {
		t.Fatalf("payment record not rolled back: %+v", w.payments)
	}
}

func TestTransitionReusesOpenPaymentLink(t *testing.T) {
	w := newOrderWorld(t)
	order := w.seedOrder(t, domain.OrderStatusNew)
	w.payments = append(w.payments, domain.OrderPayment{
		ID:          "pay_open",
		OrderID:     order.ID,
		Kind:        domain.PaymentKindOrderFull,
		Status:      domain.PaymentStatusPending,
		Amount:      domain.MoneyFromCents(12500),
		PaymentLink: "https://pay.example/open",
	})

	called := false
	w.provider.linkFn = func(context.Context, payments.PaymentLinkRequest) (payments.PaymentLink, error) {
		called = true
		return payments.PaymentLink{}, nil
	}

	if _, err := w.svc.TransitionStatus(context.Background(), OrderTransitionCommand{
		OrderID:  order.ID,
		ToStatus: domain.OrderStatusPendingPayment,
	}); err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if called {
		t.Fatal("created a second payment link")
	}
	if len(w.payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(w.payments))
	}
}

func TestCancelRequiresReason(t *testing.T) {
	w := newOrderWorld(t)
	order := w.seedOrder(t, domain.OrderStatusNew)

	_, err := w.svc.Cancel(context.Background(), CancelOrderCommand{OrderID: order.ID})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}
	if w.orders[order.ID].Status != domain.OrderStatusNew {
		t.Fatalf("status mutated to %s", w.orders[order.ID].Status)
	}
}

func TestShippingRequiresTrackingNumber(t *testing.T) {
	w := newOrderWorld(t)
	order := w.seedOrder(t, domain.OrderStatusToShip)

	_, err := w.svc.TransitionStatus(context.Background(), OrderTransitionCommand{
		OrderID:  order.ID,
		ToStatus: domain.OrderStatusShipped,
	})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}

	updated, err := w.svc.TransitionStatus(context.Background(), OrderTransitionCommand{
		OrderID:        order.ID,
		ToStatus:       domain.OrderStatusShipped,
		TrackingNumber: "COLIS123",
	})
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if updated.TrackingNumber != "COLIS123" || updated.ShippedAt == nil {
		t.Fatalf("shipment fields = %+v", updated)
	}
	sent := w.notifier.Sent()
	if len(sent) != 1 || sent[0].Kind != "shipping" {
		t.Fatalf("notifications = %+v", sent)
	}
}

func TestCancelPaidOrderRefundsAndRestoresStock(t *testing.T) {
	w := newOrderWorld(t)
	order := w.seedOrder(t, domain.OrderStatusPaid)

	var gotFrom domain.OrderStatus
	w.refunds.processFn = func(_ context.Context, _ domain.Order, from domain.OrderStatus, reason string) (CancellationRefundOutcome, error) {
		gotFrom = from
		if reason != "rupture de stock" {
			t.Fatalf("reason = %q", reason)
		}
		return CancellationRefundOutcome{
			Required:  true,
			Succeeded: true,
			Results:   []RefundResult{{PaymentID: "pay_1", Succeeded: true}},
		}, nil
	}

	updated, err := w.svc.Cancel(context.Background(), CancelOrderCommand{
		OrderID: order.ID,
		Reason:  "rupture de stock",
	})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if gotFrom != domain.OrderStatusPaid {
		t.Fatalf("refund saw from = %s", gotFrom)
	}
	if updated.Status != domain.OrderStatusCancelled || updated.CancelReason == nil || *updated.CancelReason != "rupture de stock" {
		t.Fatalf("order = %+v", updated)
	}
	if len(w.stock.restored) != 1 {
		t.Fatalf("stock restored = %v", w.stock.restored)
	}

	sent := w.notifier.Sent()
	if len(sent) != 1 || sent[0].Kind != "cancellation" || !sent[0].Refunded {
		t.Fatalf("notifications = %+v", sent)
	}
}

func TestCancelPaidOrderAbortsWhenRefundFails(t *testing.T) {
	w := newOrderWorld(t)
	order := w.seedOrder(t, domain.OrderStatusPaid)

	w.refunds.processFn = func(context.Context, domain.Order, domain.OrderStatus, string) (CancellationRefundOutcome, error) {
		return CancellationRefundOutcome{
			Required: true,
			Results:  []RefundResult{{PaymentID: "pay_1", Error: "card network timeout"}},
		}, nil
	}

	_, err := w.svc.Cancel(context.Background(), CancelOrderCommand{
		OrderID: order.ID,
		Reason:  "rupture de stock",
	})
	if err == nil || !strings.Contains(err.Error(), "card network timeout") {
		t.Fatalf("expected refund failure, got %v", err)
	}
	if w.orders[order.ID].Status != domain.OrderStatusPaid {
		t.Fatalf("status advanced to %s", w.orders[order.ID].Status)
	}
	if len(w.stock.restored) != 0 {
		t.Fatalf("stock restored despite abort: %v", w.stock.restored)
	}
	if len(w.notifier.Sent()) != 0 {
		t.Fatalf("notification sent despite abort: %+v", w.notifier.Sent())
	}
}

func TestCancelFromNewSendsNoRefund(t *testing.T) {
	w := newOrderWorld(t)
	order := w.seedOrder(t, domain.OrderStatusNew)

	w.refunds.processFn = func(context.Context, domain.Order, domain.OrderStatus, string) (CancellationRefundOutcome, error) {
		t.Fatal("refund service must not be called")
		return CancellationRefundOutcome{}, nil
	}

	updated, err := w.svc.Cancel(context.Background(), CancelOrderCommand{
		OrderID: order.ID,
		Reason:  "changement d'avis",
	})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if updated.Status != domain.OrderStatusCancelled {
		t.Fatalf("status = %s", updated.Status)
	}
	sent := w.notifier.Sent()
	if len(sent) != 1 || sent[0].Kind != "cancellation" || sent[0].Refunded {
		t.Fatalf("notifications = %+v", sent)
	}
}

func TestMarkPaidFromWebhook(t *testing.T) {
	w := newOrderWorld(t)
	order := w.seedOrder(t, domain.OrderStatusPendingPayment)
	w.payments = append(w.payments, domain.OrderPayment{
		ID:       "pay_1",
		OrderID:  order.ID,
		Kind:     domain.PaymentKindOrderFull,
		Status:   domain.PaymentStatusPending,
		Amount:   domain.MoneyFromCents(12500),
		IntentID: "pi_1",
	})

	updated, err := w.svc.MarkPaidFromWebhook(context.Background(), PaymentConfirmedCommand{
		IntentID: "pi_1",
		EventID:  "evt_1",
	})
	if err != nil {
		t.Fatalf("MarkPaidFromWebhook: %v", err)
	}
	if updated.Status != domain.OrderStatusPaid || updated.PaidAt == nil {
		t.Fatalf("order = %+v", updated)
	}
	if w.payments[0].Status != domain.PaymentStatusPaid || w.payments[0].PaidAt == nil {
		t.Fatalf("payment = %+v", w.payments[0])
	}
	if len(w.stock.decremented) != 1 {
		t.Fatalf("stock decremented = %v", w.stock.decremented)
	}

	sent := w.notifier.Sent()
	if len(sent) != 1 || sent[0].Kind != "payment_confirmation" {
		t.Fatalf("notifications = %+v", sent)
	}

	last := w.changes[len(w.changes)-1]
	if last.TriggeredBy != domain.TriggerWebhook {
		t.Fatalf("triggered by = %s", last.TriggeredBy)
	}
	if last.Metadata["event_id"] != "evt_1" {
		t.Fatalf("metadata = %+v", last.Metadata)
	}
}

func TestMarkPaidFromWebhookReplayIsIdempotent(t *testing.T) {
	w := newOrderWorld(t)
	order := w.seedOrder(t, domain.OrderStatusPaid)
	paid := testNow
	w.payments = append(w.payments, domain.OrderPayment{
		ID:       "pay_1",
		OrderID:  order.ID,
		Kind:     domain.PaymentKindOrderFull,
		Status:   domain.PaymentStatusPaid,
		Amount:   domain.MoneyFromCents(12500),
		IntentID: "pi_1",
		PaidAt:   &paid,
	})

	updated, err := w.svc.MarkPaidFromWebhook(context.Background(), PaymentConfirmedCommand{IntentID: "pi_1"})
	if err != nil {
		t.Fatalf("replay returned error: %v", err)
	}
	if updated.Status != domain.OrderStatusPaid {
		t.Fatalf("status = %s", updated.Status)
	}
	if len(w.stock.decremented) != 0 || len(w.notifier.Sent()) != 0 {
		t.Fatal("replay ran side effects again")
	}
}

func TestTransitionStatusRejectsUnknownEdges(t *testing.T) {
	w := newOrderWorld(t)
	order := w.seedOrder(t, domain.OrderStatusShipped)

	_, err := w.svc.TransitionStatus(context.Background(), OrderTransitionCommand{
		OrderID:  order.ID,
		ToStatus: domain.OrderStatusCancelled,
		Reason:   "trop tard",
	})
	if !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected ErrOrderInvalidState, got %v", err)
	}
}

func TestCalculateFeesEstimatesWhenUnpaid(t *testing.T) {
	w := newOrderWorld(t)
	order := w.seedOrder(t, domain.OrderStatusNew)

	fees, err := w.svc.CalculateFees(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("CalculateFees: %v", err)
	}
	if !fees.Estimated {
		t.Fatal("expected estimated fee")
	}
	// round(12000 * 0.015) + 25: the estimate covers the order total only,
	// the shipment fee is not part of the card charge.
	if got, want := fees.ProcessorFee.Cents(), int64(205); got != want {
		t.Fatalf("fee = %d, want %d", got, want)
	}
	if got, want := fees.Total.Cents(), int64(12500); got != want {
		t.Fatalf("total = %d, want %d", got, want)
	}
}

func TestCalculateFeesUsesRecordedFeeWhenPaid(t *testing.T) {
	w := newOrderWorld(t)
	order := w.seedOrder(t, domain.OrderStatusPaid)
	w.payments = append(w.payments, domain.OrderPayment{
		ID:           "pay_1",
		OrderID:      order.ID,
		Kind:         domain.PaymentKindOrderFull,
		Status:       domain.PaymentStatusPaid,
		Amount:       domain.MoneyFromCents(12500),
		ProcessorFee: domain.MoneyFromCents(218),
	})

	fees, err := w.svc.CalculateFees(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("CalculateFees: %v", err)
	}
	if fees.Estimated {
		t.Fatal("expected recorded fee")
	}
	if got, want := fees.ProcessorFee.Cents(), int64(218); got != want {
		t.Fatalf("fee = %d, want %d", got, want)
	}
}

func TestCalculateFeesIgnoresCommissionPayments(t *testing.T) {
	w := newOrderWorld(t)
	order := w.seedOrder(t, domain.OrderStatusPaid)
	w.payments = append(w.payments,
		domain.OrderPayment{
			ID:           "pay_1",
			OrderID:      order.ID,
			Kind:         domain.PaymentKindOrderFull,
			Status:       domain.PaymentStatusPaid,
			Amount:       domain.MoneyFromCents(12500),
			ProcessorFee: domain.MoneyFromCents(218),
		},
		domain.OrderPayment{
			ID:           "pay_2",
			OrderID:      order.ID,
			Kind:         domain.PaymentKindIllustrationDeposit,
			Status:       domain.PaymentStatusPaid,
			Amount:       domain.MoneyFromCents(5000),
			ProcessorFee: domain.MoneyFromCents(100),
		},
	)

	fees, err := w.svc.CalculateFees(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("CalculateFees: %v", err)
	}
	if fees.Estimated {
		t.Fatal("expected recorded fee")
	}
	if got, want := fees.ProcessorFee.Cents(), int64(218); got != want {
		t.Fatalf("fee = %d, want %d", got, want)
	}
}
