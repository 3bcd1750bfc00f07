package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	domain "github.com/atelier-mirabelle/api/internal/domain"
	"github.com/atelier-mirabelle/api/internal/notifications"
	"github.com/atelier-mirabelle/api/internal/payments"
)

// illustrationWorld wires an illustration service against in-memory stores
// with a stubbed parent order service.
type illustrationWorld struct {
	orders    map[string]domain.Order
	ills      map[string]domain.Illustration
	payments  []domain.OrderPayment
	changes   []domain.IllustrationStatusChange
	notifier  *notifications.Capture
	publisher *capturePublisher
	provider  *stubProvider
	parent    *stubOrderService
	svc       IllustrationService
}

func newIllustrationWorld(t *testing.T) *illustrationWorld {
	t.Helper()

	w := &illustrationWorld{
		orders:    map[string]domain.Order{},
		ills:      map[string]domain.Illustration{},
		notifier:  &notifications.Capture{},
		publisher: &capturePublisher{},
		provider:  &stubProvider{},
		parent:    &stubOrderService{},
	}

	orderRepo := &stubOrderRepo{
		findFn: func(_ context.Context, orderID string) (domain.Order, error) {
			order, ok := w.orders[orderID]
			if !ok {
				return domain.Order{}, fmt.Errorf("order %s missing", orderID)
			}
			return order, nil
		},
	}
	illRepo := &stubIllustrationRepo{
		findFn: func(_ context.Context, orderID string, illustrationID string) (domain.Illustration, error) {
			ill, ok := w.ills[illustrationID]
			if !ok || ill.OrderID != orderID {
				return domain.Illustration{}, fmt.Errorf("illustration %s missing", illustrationID)
			}
			return ill, nil
		},
		updateFn: func(_ context.Context, ill domain.Illustration) error {
			w.ills[ill.ID] = ill
			return nil
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
	changeRepo := &stubStatusChangeRepo{
		appendIllFn: func(_ context.Context, change domain.IllustrationStatusChange) error {
			w.changes = append(w.changes, change)
			return nil
		},
	}

	ids := 0
	svc, err := NewIllustrationService(IllustrationServiceDeps{
		Orders:        orderRepo,
		Illustrations: illRepo,
		Payments:      paymentRepo,
		StatusChanges: changeRepo,
		Provider:      w.provider,
		OrderService:  w.parent,
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
			return fmt.Sprintf("01ill%04d", ids)
		},
	})
	if err != nil {
		t.Fatalf("NewIllustrationService: %v", err)
	}
	w.svc = svc
	return w
}

func (w *illustrationWorld) seed(t *testing.T, status domain.IllustrationStatus, priceCents int64) domain.Illustration {
	t.Helper()
	order := domain.Order{
		ID:        "ord_seed",
		Reference: "AB12CD34",
		Customer:  domain.Customer{GuestID: "guest_1", Email: "claire@example.com", Name: "Claire"},
		Status:    domain.OrderStatusNew,
		Total:     domain.MoneyFromCents(priceCents),
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	ill := domain.Illustration{
		ID:        "ill_seed",
		OrderID:   order.ID,
		Kind:      domain.IllustrationKindBust,
		Status:    status,
		Price:     domain.MoneyFromCents(priceCents),
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	order.Illustrations = []domain.Illustration{ill}
	w.orders[order.ID] = order
	w.ills[ill.ID] = ill
	return ill
}

func TestDepositTransitionCreatesHalfPriceLink(t *testing.T) {
	w := newIllustrationWorld(t)
	ill := w.seed(t, domain.IllustrationStatusPending, 10001)

	updated, err := w.svc.TransitionStatus(context.Background(), IllustrationTransitionCommand{
		OrderID:        ill.OrderID,
		IllustrationID: ill.ID,
		ToStatus:       domain.IllustrationStatusDepositPending,
	})
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if updated.Status != domain.IllustrationStatusDepositPending {
		t.Fatalf("status = %s", updated.Status)
	}

	if len(w.payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(w.payments))
	}
	p := w.payments[0]
	if p.Kind != domain.PaymentKindIllustrationDeposit || p.IllustrationID != ill.ID {
		t.Fatalf("payment = %+v", p)
	}
	// Half of an odd price rounds up so deposit plus balance equals the price.
	if got, want := p.Amount.Cents(), int64(5001); got != want {
		t.Fatalf("deposit = %d, want %d", got, want)
	}
	if p.IntentID == "" || p.PaymentLink == "" {
		t.Fatalf("link fields not recorded: %+v", p)
	}

	sent := w.notifier.Sent()
	if len(sent) != 1 || sent[0].Kind != "payment_link" || sent[0].IllustrationID != ill.ID {
		t.Fatalf("notifications = %+v", sent)
	}
}

func TestFinalChargeSubtractsPaidDeposit(t *testing.T) {
	w := newIllustrationWorld(t)
	ill := w.seed(t, domain.IllustrationStatusClientReview, 10000)
	paid := testNow
	w.payments = append(w.payments, domain.OrderPayment{
		ID:             "pay_dep",
		OrderID:        ill.OrderID,
		IllustrationID: ill.ID,
		Kind:           domain.PaymentKindIllustrationDeposit,
		Status:         domain.PaymentStatusPaid,
		Amount:         domain.MoneyFromCents(5000),
		PaidAt:         &paid,
	})

	var linkAmount int64
	w.provider.linkFn = func(_ context.Context, req payments.PaymentLinkRequest) (payments.PaymentLink, error) {
		linkAmount = req.Amount
		return payments.PaymentLink{SessionID: "cs_f", URL: "https://pay.example/cs_f", IntentID: "pi_f"}, nil
	}

	if _, err := w.svc.TransitionStatus(context.Background(), IllustrationTransitionCommand{
		OrderID:        ill.OrderID,
		IllustrationID: ill.ID,
		ToStatus:       domain.IllustrationStatusPaymentPending,
	}); err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}

	if len(w.payments) != 2 {
		t.Fatalf("payments = %d, want 2", len(w.payments))
	}
	final := w.payments[1]
	if final.Kind != domain.PaymentKindIllustrationFinal {
		t.Fatalf("kind = %s", final.Kind)
	}
	if got, want := final.Amount.Cents(), int64(5000); got != want {
		t.Fatalf("final amount = %d, want %d", got, want)
	}
	if linkAmount != 5000 {
		t.Fatalf("link amount = %d", linkAmount)
	}
}

func TestFinalChargeWithNoBalanceAborts(t *testing.T) {
	w := newIllustrationWorld(t)
	ill := w.seed(t, domain.IllustrationStatusClientReview, 10000)
	w.payments = append(w.payments, domain.OrderPayment{
		ID:             "pay_dep",
		OrderID:        ill.OrderID,
		IllustrationID: ill.ID,
		Kind:           domain.PaymentKindIllustrationDeposit,
		Status:         domain.PaymentStatusPaid,
		Amount:         domain.MoneyFromCents(10000),
	})

	_, err := w.svc.TransitionStatus(context.Background(), IllustrationTransitionCommand{
		OrderID:        ill.OrderID,
		IllustrationID: ill.ID,
		ToStatus:       domain.IllustrationStatusPaymentPending,
	})
	if err == nil || !strings.Contains(err.Error(), "no outstanding balance") {
		t.Fatalf("expected outstanding balance error, got %v", err)
	}
	if w.ills[ill.ID].Status != domain.IllustrationStatusClientReview {
		t.Fatalf("status advanced to %s", w.ills[ill.ID].Status)
	}
}

func TestDepositLinkFailureRollsBack(t *testing.T) {
	w := newIllustrationWorld(t)
	ill := w.seed(t, domain.IllustrationStatusPending, 10000)

	w.provider.linkFn = func(context.Context, payments.PaymentLinkRequest) (payments.PaymentLink, error) {
		return payments.PaymentLink{}, errors.New("stripe unreachable")
	}

	_, err := w.svc.TransitionStatus(context.Background(), IllustrationTransitionCommand{
		OrderID:        ill.OrderID,
		IllustrationID: ill.ID,
		ToStatus:       domain.IllustrationStatusDepositPending,
	})
	if err == nil || !strings.Contains(err.Error(), "stripe unreachable") {
		t.Fatalf("expected link failure, got %v", err)
	}
	if w.ills[ill.ID].Status != domain.IllustrationStatusPending {
		t.Fatalf("status advanced to %s", w.ills[ill.ID].Status)
	}
	if len(w.payments) != 0 {
		t.Fatalf("payment record not rolled back: %+v", w.payments)
	}
}

func TestIllustrationCancelRequiresReason(t *testing.T) {
	w := newIllustrationWorld(t)
	ill := w.seed(t, domain.IllustrationStatusDepositPaid, 10000)

	_, err := w.svc.TransitionStatus(context.Background(), IllustrationTransitionCommand{
		OrderID:        ill.OrderID,
		IllustrationID: ill.ID,
		ToStatus:       domain.IllustrationStatusCancelled,
	})
	if !errors.Is(err, ErrIllustrationInvalidInput) {
		t.Fatalf("expected ErrIllustrationInvalidInput, got %v", err)
	}

	updated, err := w.svc.TransitionStatus(context.Background(), IllustrationTransitionCommand{
		OrderID:        ill.OrderID,
		IllustrationID: ill.ID,
		ToStatus:       domain.IllustrationStatusCancelled,
		Reason:         "client injoignable",
	})
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if updated.CancelReason == nil || *updated.CancelReason != "client injoignable" || updated.CancelledAt == nil {
		t.Fatalf("cancellation fields = %+v", updated)
	}
}

func TestIllustrationRejectsUnknownEdges(t *testing.T) {
	w := newIllustrationWorld(t)
	ill := w.seed(t, domain.IllustrationStatusPending, 10000)

	_, err := w.svc.TransitionStatus(context.Background(), IllustrationTransitionCommand{
		OrderID:        ill.OrderID,
		IllustrationID: ill.ID,
		ToStatus:       domain.IllustrationStatusInProgress,
	})
	if !errors.Is(err, ErrIllustrationInvalidState) {
		t.Fatalf("expected ErrIllustrationInvalidState, got %v", err)
	}
}

func TestDepositWebhookAdvancesIllustrationAndParentOrder(t *testing.T) {
	w := newIllustrationWorld(t)
	ill := w.seed(t, domain.IllustrationStatusDepositPending, 10000)
	w.payments = append(w.payments, domain.OrderPayment{
		ID:             "pay_dep",
		OrderID:        ill.OrderID,
		IllustrationID: ill.ID,
		Kind:           domain.PaymentKindIllustrationDeposit,
		Status:         domain.PaymentStatusPending,
		Amount:         domain.MoneyFromCents(5000),
		IntentID:       "pi_dep",
	})

	parent := w.orders[ill.OrderID]
	parent.Lines = nil
	w.parent.getFn = func(context.Context, string, OrderReadOptions) (domain.Order, error) {
		return parent, nil
	}
	w.parent.transitionFn = func(_ context.Context, cmd OrderTransitionCommand) (domain.Order, error) {
		parent.Status = cmd.ToStatus
		return parent, nil
	}

	updated, err := w.svc.MarkPaidFromWebhook(context.Background(), PaymentConfirmedCommand{
		IntentID: "pi_dep",
		EventID:  "evt_dep",
	})
	if err != nil {
		t.Fatalf("MarkPaidFromWebhook: %v", err)
	}
	if updated.Status != domain.IllustrationStatusDepositPaid {
		t.Fatalf("status = %s", updated.Status)
	}
	if w.payments[0].Status != domain.PaymentStatusPaid || w.payments[0].PaidAt == nil {
		t.Fatalf("payment = %+v", w.payments[0])
	}

	if len(w.parent.transitions) != 1 {
		t.Fatalf("parent transitions = %+v", w.parent.transitions)
	}
	sync := w.parent.transitions[0]
	if sync.ToStatus != domain.OrderStatusInProgress || sync.TriggeredBy != domain.TriggerSystem {
		t.Fatalf("sync transition = %+v", sync)
	}

	sent := w.notifier.Sent()
	if len(sent) != 1 || sent[0].Kind != "illustration_update" {
		t.Fatalf("notifications = %+v", sent)
	}

	last := w.changes[len(w.changes)-1]
	if last.TriggeredBy != domain.TriggerWebhook || last.Metadata["event_id"] != "evt_dep" {
		t.Fatalf("change = %+v", last)
	}
}

func TestDepositWebhookSkipsOrderSyncForMixedOrders(t *testing.T) {
	w := newIllustrationWorld(t)
	ill := w.seed(t, domain.IllustrationStatusDepositPending, 10000)
	w.payments = append(w.payments, domain.OrderPayment{
		ID:             "pay_dep",
		OrderID:        ill.OrderID,
		IllustrationID: ill.ID,
		Kind:           domain.PaymentKindIllustrationDeposit,
		Status:         domain.PaymentStatusPending,
		Amount:         domain.MoneyFromCents(5000),
		IntentID:       "pi_dep",
	})

	parent := w.orders[ill.OrderID]
	parent.Lines = []domain.OrderLine{{ProductID: "prod_1", Name: "Affiche", Quantity: 1}}
	w.parent.getFn = func(context.Context, string, OrderReadOptions) (domain.Order, error) {
		return parent, nil
	}

	if _, err := w.svc.MarkPaidFromWebhook(context.Background(), PaymentConfirmedCommand{IntentID: "pi_dep"}); err != nil {
		t.Fatalf("MarkPaidFromWebhook: %v", err)
	}
	if len(w.parent.transitions) != 0 {
		t.Fatalf("mixed order was advanced: %+v", w.parent.transitions)
	}
}

func TestFinalWebhookCompletesIllustrationAndOrder(t *testing.T) {
	w := newIllustrationWorld(t)
	ill := w.seed(t, domain.IllustrationStatusPaymentPending, 10000)
	w.payments = append(w.payments, domain.OrderPayment{
		ID:             "pay_fin",
		OrderID:        ill.OrderID,
		IllustrationID: ill.ID,
		Kind:           domain.PaymentKindIllustrationFinal,
		Status:         domain.PaymentStatusPending,
		Amount:         domain.MoneyFromCents(5000),
		IntentID:       "pi_fin",
	})

	parent := w.orders[ill.OrderID]
	parent.Lines = nil
	parent.Status = domain.OrderStatusInProgress
	w.parent.getFn = func(context.Context, string, OrderReadOptions) (domain.Order, error) {
		snapshot := parent
		snapshot.Illustrations = []domain.Illustration{w.ills[ill.ID]}
		return snapshot, nil
	}
	w.parent.transitionFn = func(_ context.Context, cmd OrderTransitionCommand) (domain.Order, error) {
		parent.Status = cmd.ToStatus
		return parent, nil
	}

	updated, err := w.svc.MarkPaidFromWebhook(context.Background(), PaymentConfirmedCommand{IntentID: "pi_fin"})
	if err != nil {
		t.Fatalf("MarkPaidFromWebhook: %v", err)
	}
	if updated.Status != domain.IllustrationStatusCompleted || updated.CompletedAt == nil {
		t.Fatalf("illustration = %+v", updated)
	}

	if len(w.parent.transitions) != 2 {
		t.Fatalf("parent transitions = %+v", w.parent.transitions)
	}
	if w.parent.transitions[0].ToStatus != domain.OrderStatusPaid {
		t.Fatalf("first sync = %+v", w.parent.transitions[0])
	}
	if w.parent.transitions[1].ToStatus != domain.OrderStatusDone {
		t.Fatalf("second sync = %+v", w.parent.transitions[1])
	}
}

func TestFinalWebhookWaitsForActiveSiblings(t *testing.T) {
	w := newIllustrationWorld(t)
	ill := w.seed(t, domain.IllustrationStatusPaymentPending, 10000)
	w.payments = append(w.payments, domain.OrderPayment{
		ID:             "pay_fin",
		OrderID:        ill.OrderID,
		IllustrationID: ill.ID,
		Kind:           domain.PaymentKindIllustrationFinal,
		Status:         domain.PaymentStatusPending,
		Amount:         domain.MoneyFromCents(5000),
		IntentID:       "pi_fin",
	})

	parent := w.orders[ill.OrderID]
	parent.Lines = nil
	parent.Status = domain.OrderStatusInProgress
	w.parent.getFn = func(context.Context, string, OrderReadOptions) (domain.Order, error) {
		snapshot := parent
		snapshot.Illustrations = []domain.Illustration{
			w.ills[ill.ID],
			{ID: "ill_other", OrderID: parent.ID, Status: domain.IllustrationStatusInProgress},
		}
		return snapshot, nil
	}

	if _, err := w.svc.MarkPaidFromWebhook(context.Background(), PaymentConfirmedCommand{IntentID: "pi_fin"}); err != nil {
		t.Fatalf("MarkPaidFromWebhook: %v", err)
	}
	if len(w.parent.transitions) != 0 {
		t.Fatalf("order advanced with active sibling: %+v", w.parent.transitions)
	}
}

func TestDepositWebhookReplayIsAcknowledged(t *testing.T) {
	w := newIllustrationWorld(t)
	ill := w.seed(t, domain.IllustrationStatusInProgress, 10000)
	paid := testNow
	w.payments = append(w.payments, domain.OrderPayment{
		ID:             "pay_dep",
		OrderID:        ill.OrderID,
		IllustrationID: ill.ID,
		Kind:           domain.PaymentKindIllustrationDeposit,
		Status:         domain.PaymentStatusPaid,
		Amount:         domain.MoneyFromCents(5000),
		IntentID:       "pi_dep",
		PaidAt:         &paid,
	})

	updated, err := w.svc.MarkPaidFromWebhook(context.Background(), PaymentConfirmedCommand{IntentID: "pi_dep"})
	if err != nil {
		t.Fatalf("replay returned error: %v", err)
	}
	if updated.Status != domain.IllustrationStatusInProgress {
		t.Fatalf("status = %s", updated.Status)
	}
	if len(w.changes) != 0 || len(w.notifier.Sent()) != 0 {
		t.Fatal("replay ran side effects again")
	}
}

func TestWebhookRejectsOrderCharge(t *testing.T) {
	w := newIllustrationWorld(t)
	ill := w.seed(t, domain.IllustrationStatusDepositPending, 10000)
	w.payments = append(w.payments, domain.OrderPayment{
		ID:       "pay_full",
		OrderID:  ill.OrderID,
		Kind:     domain.PaymentKindOrderFull,
		Status:   domain.PaymentStatusPending,
		Amount:   domain.MoneyFromCents(10000),
		IntentID: "pi_full",
	})

	_, err := w.svc.MarkPaidFromWebhook(context.Background(), PaymentConfirmedCommand{IntentID: "pi_full"})
	if !errors.Is(err, ErrIllustrationInvalidInput) {
		t.Fatalf("expected ErrIllustrationInvalidInput, got %v", err)
	}
}
