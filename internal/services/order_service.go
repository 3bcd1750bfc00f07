package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/atelier-mirabelle/api/internal/domain"
	"github.com/atelier-mirabelle/api/internal/lifecycle"
	"github.com/atelier-mirabelle/api/internal/notifications"
	"github.com/atelier-mirabelle/api/internal/payments"
	"github.com/atelier-mirabelle/api/internal/platform/textutil"
	"github.com/atelier-mirabelle/api/internal/repositories"
)

var (
	// ErrOrderInvalidInput indicates the command failed validation.
	ErrOrderInvalidInput = errors.New("order service: invalid input")
	// ErrOrderNotFound indicates the requested order does not exist.
	ErrOrderNotFound = errors.New("order service: order not found")
	// ErrOrderInvalidState indicates the requested transition is not permitted
	// from the current status.
	ErrOrderInvalidState = errors.New("order service: invalid state")
	// ErrOrderConflict indicates a concurrent modification or duplicate write.
	ErrOrderConflict = errors.New("order service: conflict")
	// ErrOrderUnavailable indicates the persistence layer rejected the operation transiently.
	ErrOrderUnavailable = errors.New("order service: repository unavailable")
)

const (
	orderIDPrefix        = "ord_"
	illustrationIDPrefix = "ill_"
	paymentIDPrefix      = "pay_"
	orderChangeIDPrefix  = "osc_"

	referenceLength   = 8
	referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	referenceAttempts = 5

	defaultCurrency = "eur"
)

// CheckoutConfig carries the processor checkout settings applied to every
// payment link the service creates.
type CheckoutConfig struct {
	SuccessURL string
	CancelURL  string
	Locale     string
	Currency   string
}

// OrderServiceDeps bundles collaborators required to construct an order service.
type OrderServiceDeps struct {
	Orders        repositories.OrderRepository
	Illustrations repositories.IllustrationRepository
	Payments      repositories.OrderPaymentRepository
	StatusChanges repositories.StatusChangeRepository
	UnitOfWork    repositories.UnitOfWork
	Provider      payments.Provider
	Refunds       RefundService
	Stock         StockService
	Notifier      notifications.Notifier
	Publisher     LifecycleEventPublisher
	Checkout      CheckoutConfig
	Clock         func() time.Time
	NewID         func() string
	NewReference  func() (string, error)
	Logger        func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders        repositories.OrderRepository
	illustrations repositories.IllustrationRepository
	payments      repositories.OrderPaymentRepository
	statusChanges repositories.StatusChangeRepository
	uow           repositories.UnitOfWork
	provider      payments.Provider
	refunds       RefundService
	stock         StockService
	notifier      notifications.Notifier
	publisher     LifecycleEventPublisher
	checkout      CheckoutConfig
	clock         func() time.Time
	newID         func() string
	newReference  func() (string, error)
	logger        func(ctx context.Context, event string, fields map[string]any)
	engine        *lifecycle.Engine[domain.Order, domain.OrderStatus]
}

var _ OrderService = (*orderService)(nil)

// NewOrderService assembles the order lifecycle service.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: orders repository is required")
	}
	if deps.Illustrations == nil {
		return nil, errors.New("order service: illustrations repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("order service: payments repository is required")
	}
	if deps.StatusChanges == nil {
		return nil, errors.New("order service: status change repository is required")
	}
	if deps.Provider == nil {
		return nil, errors.New("order service: payment provider is required")
	}
	if deps.Refunds == nil {
		return nil, errors.New("order service: refund service is required")
	}
	if deps.Stock == nil {
		return nil, errors.New("order service: stock service is required")
	}

	uow := deps.UnitOfWork
	if uow == nil {
		uow = noopUnitOfWork{}
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.Noop{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.NewID
	if newID == nil {
		newID = func() string {
			return strings.ToLower(ulid.Make().String())
		}
	}
	newReference := deps.NewReference
	if newReference == nil {
		newReference = randomReference
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	checkout := deps.Checkout
	if strings.TrimSpace(checkout.Currency) == "" {
		checkout.Currency = defaultCurrency
	}

	svc := &orderService{
		orders:        deps.Orders,
		illustrations: deps.Illustrations,
		payments:      deps.Payments,
		statusChanges: deps.StatusChanges,
		uow:           uow,
		provider:      deps.Provider,
		refunds:       deps.Refunds,
		stock:         deps.Stock,
		notifier:      notifier,
		publisher:     deps.Publisher,
		checkout:      checkout,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:        newID,
		newReference: newReference,
		logger:       logger,
	}

	engine, err := lifecycle.NewEngine(lifecycle.EngineDeps[domain.Order, domain.OrderStatus]{
		Machine: lifecycle.NewOrderMachine(),
		Guards: lifecycle.Guards[domain.OrderStatus]{
			ReasonRequiredFor:   domain.OrderStatusCancelled,
			TrackingRequiredFor: domain.OrderStatusShipped,
		},
		Status:  func(o domain.Order) domain.OrderStatus { return o.Status },
		Persist: svc.persistTransition,
		Actions: svc.transitionActions(),
	})
	if err != nil {
		return nil, fmt.Errorf("order service: %w", err)
	}
	svc.engine = engine

	return svc, nil
}

func (s *orderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error) {
	if ctx == nil {
		return domain.Order{}, errors.New("order service: context is required")
	}
	if !cmd.Customer.Valid() {
		return domain.Order{}, fmt.Errorf("%w: exactly one of user id or guest id must be set", ErrOrderInvalidInput)
	}
	email := strings.TrimSpace(cmd.Customer.Email)
	if email == "" {
		return domain.Order{}, fmt.Errorf("%w: customer email is required", ErrOrderInvalidInput)
	}
	if len(cmd.Lines) == 0 && len(cmd.Illustrations) == 0 {
		return domain.Order{}, fmt.Errorf("%w: order needs at least one line or illustration", ErrOrderInvalidInput)
	}
	if cmd.ShipmentFee.IsNegative() {
		return domain.Order{}, fmt.Errorf("%w: shipment fee cannot be negative", ErrOrderInvalidInput)
	}

	now := s.clock()
	total := domain.Money(0)

	lines := make([]domain.OrderLine, 0, len(cmd.Lines))
	for i, in := range cmd.Lines {
		productID := strings.TrimSpace(in.ProductID)
		name := strings.TrimSpace(in.Name)
		if productID == "" || name == "" {
			return domain.Order{}, fmt.Errorf("%w: line %d is missing product id or name", ErrOrderInvalidInput, i)
		}
		if in.Quantity <= 0 {
			return domain.Order{}, fmt.Errorf("%w: line %d quantity must be positive", ErrOrderInvalidInput, i)
		}
		if in.UnitPrice.IsNegative() {
			return domain.Order{}, fmt.Errorf("%w: line %d unit price cannot be negative", ErrOrderInvalidInput, i)
		}
		lineTotal := in.UnitPrice.MulInt(in.Quantity)
		total = total.Add(lineTotal)
		lines = append(lines, domain.OrderLine{
			ProductID: productID,
			SKU:       strings.TrimSpace(in.SKU),
			Name:      name,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
			Total:     lineTotal,
		})
	}

	orderID := orderIDPrefix + s.newID()
	illustrations := make([]domain.Illustration, 0, len(cmd.Illustrations))
	for i, in := range cmd.Illustrations {
		if !validIllustrationKind(in.Kind) {
			return domain.Order{}, fmt.Errorf("%w: illustration %d has unknown kind %q", ErrOrderInvalidInput, i, in.Kind)
		}
		if in.Price.IsNegative() {
			return domain.Order{}, fmt.Errorf("%w: illustration %d price cannot be negative", ErrOrderInvalidInput, i)
		}
		total = total.Add(in.Price)
		illustrations = append(illustrations, domain.Illustration{
			ID:          illustrationIDPrefix + s.newID(),
			OrderID:     orderID,
			Kind:        in.Kind,
			Status:      domain.IllustrationStatusPending,
			HumanCount:  in.HumanCount,
			AnimalCount: in.AnimalCount,
			ItemCount:   in.ItemCount,
			Pose:        strings.TrimSpace(in.Pose),
			Background:  strings.TrimSpace(in.Background),
			Description: strings.TrimSpace(in.Description),
			Print:       in.Print,
			AddTracking: in.AddTracking,
			Price:       in.Price,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	reference, err := s.allocateReference(ctx)
	if err != nil {
		return domain.Order{}, err
	}

	order := domain.Order{
		ID:        orderID,
		Reference: reference,
		Customer: domain.Customer{
			UserID:  strings.TrimSpace(cmd.Customer.UserID),
			GuestID: strings.TrimSpace(cmd.Customer.GuestID),
			Email:   email,
			Name:    strings.TrimSpace(cmd.Customer.Name),
		},
		Status:         domain.OrderStatusNew,
		Total:          total,
		ShipmentFee:    cmd.ShipmentFee,
		ShippingTo:     cmd.ShippingTo,
		BillingTo:      cmd.BillingTo,
		UseSameAddress: cmd.UseSameAddress,
		Lines:          lines,
		Illustrations:  illustrations,
		Metadata:       stringMapToAny(textutil.NormalizeStringMap(cmd.Metadata)),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	change := domain.OrderStatusChange{
		ID:          orderChangeIDPrefix + s.newID(),
		OrderID:     order.ID,
		ToStatus:    domain.OrderStatusNew,
		TriggeredBy: domain.TriggerCustomer,
		UserID:      order.Customer.UserID,
		CreatedAt:   now,
	}

	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.orders.Insert(ctx, order); err != nil {
			return err
		}
		for _, ill := range order.Illustrations {
			if err := s.illustrations.Insert(ctx, ill); err != nil {
				return err
			}
		}
		return s.statusChanges.AppendOrderChange(ctx, change)
	})
	if err != nil {
		return domain.Order{}, mapOrderRepositoryError(err)
	}

	s.publishLifecycle(ctx, LifecycleEventMessage{
		EventID:     change.ID,
		Entity:      "order",
		EntityID:    order.ID,
		OrderID:     order.ID,
		ToStatus:    string(domain.OrderStatusNew),
		TriggeredBy: string(domain.TriggerCustomer),
		OccurredAt:  now,
	})
	s.logger(ctx, "order.created", map[string]any{
		"order_id":  order.ID,
		"reference": order.Reference,
		"total":     order.Total.Cents(),
	})

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string, opts OrderReadOptions) (domain.Order, error) {
	if ctx == nil {
		return domain.Order{}, errors.New("order service: context is required")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, mapOrderRepositoryError(err)
	}
	return s.hydrate(ctx, order, opts)
}

func (s *orderService) GetOrderByReference(ctx context.Context, reference string, opts OrderReadOptions) (domain.Order, error) {
	if ctx == nil {
		return domain.Order{}, errors.New("order service: context is required")
	}
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if reference == "" {
		return domain.Order{}, fmt.Errorf("%w: reference is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByReference(ctx, reference)
	if err != nil {
		return domain.Order{}, mapOrderRepositoryError(err)
	}
	return s.hydrate(ctx, order, opts)
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if ctx == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order service: context is required")
	}
	if filter.Pagination.PageSize <= 0 {
		filter.Pagination.PageSize = 50
	}
	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, mapOrderRepositoryError(err)
	}
	return page, nil
}

func (s *orderService) TransitionStatus(ctx context.Context, cmd OrderTransitionCommand) (domain.Order, error) {
	if ctx == nil {
		return domain.Order{}, errors.New("order service: context is required")
	}
	order, err := s.GetOrder(ctx, cmd.OrderID, OrderReadOptions{IncludeIllustrations: true, IncludePayments: true})
	if err != nil {
		return domain.Order{}, err
	}

	updated, err := s.engine.TransitionTo(ctx, order, cmd.ToStatus, lifecycle.Transition{
		Reason:         strings.TrimSpace(cmd.Reason),
		TrackingNumber: strings.TrimSpace(cmd.TrackingNumber),
		TriggeredBy:    cmd.TriggeredBy,
		ActorID:        strings.TrimSpace(cmd.ActorID),
		Metadata:       cloneAnyMap(cmd.Metadata),
	})
	if err != nil {
		return updated, s.mapTransitionError(ctx, err, updated)
	}
	return updated, nil
}

func (s *orderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error) {
	return s.TransitionStatus(ctx, OrderTransitionCommand{
		OrderID:     cmd.OrderID,
		ToStatus:    domain.OrderStatusCancelled,
		Reason:      cmd.Reason,
		TriggeredBy: cmd.TriggeredBy,
		ActorID:     cmd.ActorID,
	})
}

func (s *orderService) CalculateFees(ctx context.Context, orderID string) (FeeBreakdown, error) {
	order, err := s.GetOrder(ctx, orderID, OrderReadOptions{IncludePayments: true})
	if err != nil {
		return FeeBreakdown{}, err
	}

	// Only the order charge carries this breakdown's fee. Commission
	// deposits and balances record their own fees on their own payments.
	fee := domain.Money(0)
	for _, p := range order.Payments {
		if p.Kind != domain.PaymentKindOrderFull {
			continue
		}
		if p.Status == domain.PaymentStatusPaid || p.Status == domain.PaymentStatusPartiallyRefunded || p.Status == domain.PaymentStatusRefunded {
			fee = fee.Add(p.ProcessorFee)
		}
	}
	estimated := false
	if fee.IsZero() {
		region := payments.RegionEU
		if order.ShippingTo != nil {
			region = payments.RegionForCountry(order.ShippingTo.Country)
		}
		// The processor charges on the order total; shipping is settled
		// outside the card transaction.
		fee = payments.EstimateFee(order.Total, region)
		estimated = true
	}

	return FeeBreakdown{
		Subtotal:     order.Total,
		ShipmentFee:  order.ShipmentFee,
		ProcessorFee: fee,
		Estimated:    estimated,
		Total:        order.Total.Add(order.ShipmentFee),
	}, nil
}

func (s *orderService) MarkPaidFromWebhook(ctx context.Context, cmd PaymentConfirmedCommand) (domain.Order, error) {
	if ctx == nil {
		return domain.Order{}, errors.New("order service: context is required")
	}
	intentID := strings.TrimSpace(cmd.IntentID)
	if intentID == "" {
		return domain.Order{}, fmt.Errorf("%w: intent id is required", ErrOrderInvalidInput)
	}

	payment, err := s.payments.FindByIntentID(ctx, intentID)
	if err != nil {
		return domain.Order{}, mapOrderRepositoryError(err)
	}
	if payment.Kind != domain.PaymentKindOrderFull {
		return domain.Order{}, fmt.Errorf("%w: payment %s is not an order charge", ErrOrderInvalidInput, payment.ID)
	}

	order, err := s.GetOrder(ctx, payment.OrderID, OrderReadOptions{IncludeIllustrations: true, IncludePayments: true})
	if err != nil {
		return domain.Order{}, err
	}

	now := s.clock()
	if payment.Status != domain.PaymentStatusPaid {
		payment.Status = domain.PaymentStatusPaid
		payment.PaidAt = &now
		payment.UpdatedAt = now
		if err := s.payments.Update(ctx, payment); err != nil {
			return domain.Order{}, mapOrderRepositoryError(err)
		}
		replacePayment(order.Payments, payment)
	}

	// Replayed webhooks land here after the order already advanced.
	if !s.engine.Machine().CanTransition(order.Status, domain.OrderStatusPaid) {
		if order.Status == domain.OrderStatusNew {
			return domain.Order{}, fmt.Errorf("%w: order %s cannot be paid from status %s", ErrOrderInvalidState, order.ID, order.Status)
		}
		return order, nil
	}

	triggeredBy := cmd.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = domain.TriggerWebhook
	}
	metadata := map[string]any{"intent_id": intentID}
	if strings.TrimSpace(cmd.EventID) != "" {
		metadata["event_id"] = strings.TrimSpace(cmd.EventID)
	}

	updated, err := s.engine.TransitionTo(ctx, order, domain.OrderStatusPaid, lifecycle.Transition{
		TriggeredBy: triggeredBy,
		Metadata:    metadata,
	})
	if err != nil {
		return updated, s.mapTransitionError(ctx, err, updated)
	}
	return updated, nil
}

func (s *orderService) ListStatusChanges(ctx context.Context, orderID string) ([]domain.OrderStatusChange, error) {
	if ctx == nil {
		return nil, errors.New("order service: context is required")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	changes, err := s.statusChanges.ListOrderChanges(ctx, orderID)
	if err != nil {
		return nil, mapOrderRepositoryError(err)
	}
	return changes, nil
}

// persistTransition writes the new status together with its audit row. Both
// writes share one transaction so a concurrent transition cannot validate
// against a stale status.
func (s *orderService) persistTransition(ctx context.Context, order domain.Order, from, to domain.OrderStatus, tr lifecycle.Transition) (domain.Order, error) {
	now := s.clock()
	order.Status = to
	order.UpdatedAt = now

	switch to {
	case domain.OrderStatusPaid:
		order.PaidAt = &now
	case domain.OrderStatusShipped:
		order.ShippedAt = &now
		order.TrackingNumber = tr.TrackingNumber
	case domain.OrderStatusDone:
		order.CompletedAt = &now
	case domain.OrderStatusCancelled:
		order.CancelledAt = &now
		reason := tr.Reason
		order.CancelReason = &reason
	}

	change := domain.OrderStatusChange{
		ID:          orderChangeIDPrefix + s.newID(),
		OrderID:     order.ID,
		FromStatus:  &from,
		ToStatus:    to,
		Reason:      tr.Reason,
		Metadata:    cloneAnyMap(tr.Metadata),
		TriggeredBy: tr.TriggeredBy,
		UserID:      tr.ActorID,
		CreatedAt:   now,
	}

	err := s.uow.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.orders.Update(ctx, order); err != nil {
			return err
		}
		return s.statusChanges.AppendOrderChange(ctx, change)
	})
	if err != nil {
		return order, err
	}

	s.publishLifecycle(ctx, LifecycleEventMessage{
		EventID:     change.ID,
		Entity:      "order",
		EntityID:    order.ID,
		OrderID:     order.ID,
		FromStatus:  string(from),
		ToStatus:    string(to),
		TriggeredBy: string(tr.TriggeredBy),
		OccurredAt:  now,
	})
	s.logger(ctx, "order.status_changed", map[string]any{
		"order_id":     order.ID,
		"from_status":  string(from),
		"to_status":    string(to),
		"triggered_by": string(tr.TriggeredBy),
	})

	return order, nil
}

func (s *orderService) hydrate(ctx context.Context, order domain.Order, opts OrderReadOptions) (domain.Order, error) {
	if opts.IncludeIllustrations {
		illustrations, err := s.illustrations.ListByOrder(ctx, order.ID)
		if err != nil {
			return domain.Order{}, mapOrderRepositoryError(err)
		}
		order.Illustrations = illustrations
	}
	if opts.IncludePayments {
		orderPayments, err := s.payments.List(ctx, order.ID)
		if err != nil {
			return domain.Order{}, mapOrderRepositoryError(err)
		}
		order.Payments = orderPayments
	}
	return order, nil
}

func (s *orderService) allocateReference(ctx context.Context) (string, error) {
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		reference, err := s.newReference()
		if err != nil {
			return "", fmt.Errorf("order service: generate reference: %w", err)
		}
		exists, err := s.orders.ReferenceExists(ctx, reference)
		if err != nil {
			return "", mapOrderRepositoryError(err)
		}
		if !exists {
			return reference, nil
		}
	}
	return "", fmt.Errorf("%w: could not allocate a unique order reference", ErrOrderConflict)
}

func (s *orderService) publishLifecycle(ctx context.Context, event LifecycleEventMessage) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.PublishLifecycleEvent(ctx, event); err != nil {
		s.logger(ctx, "order.lifecycle_publish_failed", map[string]any{
			"order_id":  event.OrderID,
			"to_status": event.ToStatus,
			"error":     err.Error(),
		})
	}
}

// mapTransitionError translates engine failures into service sentinels. Action
// errors after the commit pass through untouched so callers can distinguish a
// rejected transition from a failed side effect.
func (s *orderService) mapTransitionError(ctx context.Context, err error, order domain.Order) error {
	var actionErr *lifecycle.ActionError
	if errors.As(err, &actionErr) {
		s.logger(ctx, "order.action_failed", map[string]any{
			"order_id": order.ID,
			"action":   actionErr.Action,
			"error":    actionErr.Err.Error(),
		})
		return err
	}
	switch {
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return fmt.Errorf("%w: %v", ErrOrderInvalidState, err)
	case errors.Is(err, lifecycle.ErrReasonRequired), errors.Is(err, lifecycle.ErrTrackingRequired):
		return fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
	}
	return mapOrderRepositoryError(err)
}

func mapOrderRepositoryError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
		}
	}
	return err
}

func validIllustrationKind(kind domain.IllustrationKind) bool {
	switch kind {
	case domain.IllustrationKindBust, domain.IllustrationKindFullLength, domain.IllustrationKindAnimal:
		return true
	}
	return false
}

func replacePayment(list []domain.OrderPayment, payment domain.OrderPayment) {
	for i := range list {
		if list[i].ID == payment.ID {
			list[i] = payment
			return
		}
	}
}

func randomReference() (string, error) {
	buf := make([]byte, referenceLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, referenceLength)
	for i, b := range buf {
		out[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return string(out), nil
}

func stringMapToAny(in map[string]string) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
