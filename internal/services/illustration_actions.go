package services

import (
	"context"
	"fmt"

	domain "github.com/atelier-mirabelle/api/internal/domain"
	"github.com/atelier-mirabelle/api/internal/lifecycle"
	"github.com/atelier-mirabelle/api/internal/payments"
)

// transitionActions declares the illustration pipeline.
func (s *illustrationService) transitionActions() []lifecycle.Action[domain.Illustration, domain.IllustrationStatus] {
	return []lifecycle.Action[domain.Illustration, domain.IllustrationStatus]{
		createIllustrationPaymentAction{svc: s},
		sendIllustrationLinkAction{svc: s},
		sendIllustrationUpdateAction{svc: s},
		syncOrderProgressAction{svc: s},
		syncOrderCompletionAction{svc: s},
	}
}

// depositAmount is the up-front half of the commission price, rounded up so
// the deposit plus the balance always equals the price.
func depositAmount(price domain.Money) domain.Money {
	return domain.MoneyFromCents((price.Cents() + 1) / 2)
}

// createIllustrationPaymentAction records the deposit or balance charge and
// creates its hosted payment link before the illustration enters the matching
// payment-pending state. A link failure rolls the record back and aborts the
// transition.
type createIllustrationPaymentAction struct {
	svc *illustrationService
}

func (a createIllustrationPaymentAction) Name() string { return "create_illustration_payment" }

func (a createIllustrationPaymentAction) PrePersist() bool { return true }

func (a createIllustrationPaymentAction) Applies(from, to domain.IllustrationStatus, _ lifecycle.Transition) bool {
	return lifecycle.IllustrationTriggersPaymentLink(from, to)
}

func (a createIllustrationPaymentAction) Execute(ctx context.Context, illustration domain.Illustration, _, to domain.IllustrationStatus, _ lifecycle.Transition) error {
	s := a.svc

	kind := domain.PaymentKindIllustrationDeposit
	if to == domain.IllustrationStatusPaymentPending {
		kind = domain.PaymentKindIllustrationFinal
	}

	existing, err := s.payments.List(ctx, illustration.OrderID)
	if err != nil {
		return mapIllustrationRepositoryError(err)
	}
	amount := depositAmount(illustration.Price)
	if kind == domain.PaymentKindIllustrationFinal {
		amount = illustration.Price
	}
	for _, p := range existing {
		if p.IllustrationID != illustration.ID {
			continue
		}
		if p.Kind == kind && p.Status == domain.PaymentStatusPending {
			// An open link already exists for this charge.
			return nil
		}
		if kind == domain.PaymentKindIllustrationFinal &&
			p.Kind == domain.PaymentKindIllustrationDeposit && p.Status == domain.PaymentStatusPaid {
			amount = amount.Sub(p.Amount)
		}
	}
	if amount.Cents() <= 0 {
		return fmt.Errorf("illustration %s has no outstanding balance", illustration.ID)
	}

	order, err := s.orders.FindByID(ctx, illustration.OrderID)
	if err != nil {
		return mapIllustrationRepositoryError(err)
	}

	now := s.clock()
	payment := domain.OrderPayment{
		ID:             paymentIDPrefix + s.newID(),
		OrderID:        illustration.OrderID,
		IllustrationID: illustration.ID,
		Kind:           kind,
		Status:         domain.PaymentStatusPending,
		Amount:         amount,
		ProcessorFee:   payments.EstimateFee(amount, shippingRegion(order)),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.payments.Insert(ctx, payment); err != nil {
		return mapIllustrationRepositoryError(err)
	}

	label := "Acompte illustration"
	if kind == domain.PaymentKindIllustrationFinal {
		label = "Solde illustration"
	}
	link, err := s.provider.CreatePaymentLink(ctx, payments.PaymentLinkRequest{
		Amount:        amount.Cents(),
		Currency:      s.checkout.Currency,
		CustomerEmail: order.Customer.Email,
		SuccessURL:    s.checkout.SuccessURL,
		CancelURL:     s.checkout.CancelURL,
		Locale:        s.checkout.Locale,
		Metadata: map[string]string{
			"order_id":        order.ID,
			"illustration_id": illustration.ID,
			"payment_id":      payment.ID,
			"reference":       order.Reference,
		},
		IdempotencyKey: payment.ID,
		Items: []payments.LineItem{{
			Name:        fmt.Sprintf("%s %s", label, order.Reference),
			Description: illustration.Description,
			Quantity:    1,
			Amount:      amount.Cents(),
			Currency:    s.checkout.Currency,
		}},
	})
	if err != nil {
		if delErr := s.payments.Delete(ctx, illustration.OrderID, payment.ID); delErr != nil {
			s.logger(ctx, "illustration.payment_rollback_failed", map[string]any{
				"illustration_id": illustration.ID,
				"payment_id":      payment.ID,
				"error":           delErr.Error(),
			})
		}
		return fmt.Errorf("create payment link: %w", err)
	}

	payment.IntentID = link.IntentID
	payment.PaymentLink = link.URL
	payment.UpdatedAt = s.clock()
	if err := s.payments.Update(ctx, payment); err != nil {
		return mapIllustrationRepositoryError(err)
	}
	return nil
}

// sendIllustrationLinkAction emails the open deposit or balance link once the
// status change is committed.
type sendIllustrationLinkAction struct {
	svc *illustrationService
}

func (a sendIllustrationLinkAction) Name() string { return "send_illustration_link" }

func (a sendIllustrationLinkAction) PrePersist() bool { return false }

func (a sendIllustrationLinkAction) Applies(from, to domain.IllustrationStatus, _ lifecycle.Transition) bool {
	return lifecycle.IllustrationTriggersPaymentLink(from, to)
}

func (a sendIllustrationLinkAction) Execute(ctx context.Context, illustration domain.Illustration, _, to domain.IllustrationStatus, _ lifecycle.Transition) error {
	s := a.svc

	kind := domain.PaymentKindIllustrationDeposit
	if to == domain.IllustrationStatusPaymentPending {
		kind = domain.PaymentKindIllustrationFinal
	}

	order, err := s.orders.FindByID(ctx, illustration.OrderID)
	if err != nil {
		return mapIllustrationRepositoryError(err)
	}
	list, err := s.payments.List(ctx, illustration.OrderID)
	if err != nil {
		return mapIllustrationRepositoryError(err)
	}
	for _, p := range list {
		if p.IllustrationID == illustration.ID && p.Kind == kind &&
			p.Status == domain.PaymentStatusPending && p.PaymentLink != "" {
			return s.notifier.SendPaymentLink(ctx, order, p)
		}
	}
	return fmt.Errorf("illustration %s has no open payment link", illustration.ID)
}

// sendIllustrationUpdateAction notifies the customer about workflow milestones.
type sendIllustrationUpdateAction struct {
	svc *illustrationService
}

func (a sendIllustrationUpdateAction) Name() string { return "send_illustration_update" }

func (a sendIllustrationUpdateAction) PrePersist() bool { return false }

func (a sendIllustrationUpdateAction) Applies(_, to domain.IllustrationStatus, _ lifecycle.Transition) bool {
	switch to {
	case domain.IllustrationStatusDepositPaid, domain.IllustrationStatusClientReview, domain.IllustrationStatusCompleted:
		return true
	}
	return false
}

func (a sendIllustrationUpdateAction) Execute(ctx context.Context, illustration domain.Illustration, _, _ domain.IllustrationStatus, _ lifecycle.Transition) error {
	order, err := a.svc.orders.FindByID(ctx, illustration.OrderID)
	if err != nil {
		return mapIllustrationRepositoryError(err)
	}
	return a.svc.notifier.SendIllustrationUpdate(ctx, order, illustration)
}

// syncOrderProgressAction advances an illustration-only parent order from new
// to in_progress once the deposit is received.
type syncOrderProgressAction struct {
	svc *illustrationService
}

func (a syncOrderProgressAction) Name() string { return "sync_order_progress" }

func (a syncOrderProgressAction) PrePersist() bool { return false }

func (a syncOrderProgressAction) Applies(_, to domain.IllustrationStatus, _ lifecycle.Transition) bool {
	return to == domain.IllustrationStatusDepositPaid
}

func (a syncOrderProgressAction) Execute(ctx context.Context, illustration domain.Illustration, _, _ domain.IllustrationStatus, _ lifecycle.Transition) error {
	s := a.svc
	order, err := s.orderService.GetOrder(ctx, illustration.OrderID, OrderReadOptions{IncludeIllustrations: true})
	if err != nil {
		return err
	}
	if !order.IsIllustrationOnly() || order.Status != domain.OrderStatusNew {
		return nil
	}
	_, err = s.orderService.TransitionStatus(ctx, OrderTransitionCommand{
		OrderID:     order.ID,
		ToStatus:    domain.OrderStatusInProgress,
		TriggeredBy: domain.TriggerSystem,
		Metadata:    map[string]any{"illustration_id": illustration.ID},
	})
	return err
}

// syncOrderCompletionAction completes an illustration-only parent order once
// its last active commission is finished.
type syncOrderCompletionAction struct {
	svc *illustrationService
}

func (a syncOrderCompletionAction) Name() string { return "sync_order_completion" }

func (a syncOrderCompletionAction) PrePersist() bool { return false }

func (a syncOrderCompletionAction) Applies(_, to domain.IllustrationStatus, _ lifecycle.Transition) bool {
	return to == domain.IllustrationStatusCompleted
}

func (a syncOrderCompletionAction) Execute(ctx context.Context, illustration domain.Illustration, _, _ domain.IllustrationStatus, _ lifecycle.Transition) error {
	s := a.svc
	order, err := s.orderService.GetOrder(ctx, illustration.OrderID, OrderReadOptions{IncludeIllustrations: true})
	if err != nil {
		return err
	}
	if !order.IsIllustrationOnly() {
		return nil
	}
	completed := 0
	for _, ill := range order.Illustrations {
		switch ill.Status {
		case domain.IllustrationStatusCompleted:
			completed++
		case domain.IllustrationStatusCancelled:
			// Cancelled commissions do not block completion.
		default:
			return nil
		}
	}
	if completed == 0 {
		return nil
	}

	// An illustration-only order reaches done through paid: the balance of
	// the last commission is what pays the order.
	if order.Status == domain.OrderStatusInProgress {
		order, err = s.orderService.TransitionStatus(ctx, OrderTransitionCommand{
			OrderID:     order.ID,
			ToStatus:    domain.OrderStatusPaid,
			TriggeredBy: domain.TriggerSystem,
			Metadata:    map[string]any{"illustration_id": illustration.ID},
		})
		if err != nil {
			return err
		}
	}
	if order.Status != domain.OrderStatusPaid {
		return nil
	}
	_, err = s.orderService.TransitionStatus(ctx, OrderTransitionCommand{
		OrderID:     order.ID,
		ToStatus:    domain.OrderStatusDone,
		TriggeredBy: domain.TriggerSystem,
		Metadata:    map[string]any{"illustration_id": illustration.ID},
	})
	return err
}

func shippingRegion(order domain.Order) payments.Region {
	if order.ShippingTo != nil {
		return payments.RegionForCountry(order.ShippingTo.Country)
	}
	return payments.RegionEU
}
