package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/atelier-mirabelle/api/internal/domain"
	"github.com/atelier-mirabelle/api/internal/lifecycle"
	"github.com/atelier-mirabelle/api/internal/notifications"
	"github.com/atelier-mirabelle/api/internal/payments"
	"github.com/atelier-mirabelle/api/internal/repositories"
)

var (
	// ErrIllustrationInvalidInput indicates the command failed validation.
	ErrIllustrationInvalidInput = errors.New("illustration service: invalid input")
	// ErrIllustrationNotFound indicates the requested illustration does not exist.
	ErrIllustrationNotFound = errors.New("illustration service: illustration not found")
	// ErrIllustrationInvalidState indicates the requested transition is not
	// permitted from the current status.
	ErrIllustrationInvalidState = errors.New("illustration service: invalid state")
	// ErrIllustrationConflict indicates a concurrent modification or duplicate write.
	ErrIllustrationConflict = errors.New("illustration service: conflict")
)

const illustrationChangeIDPrefix = "isc_"

// IllustrationServiceDeps bundles collaborators required to construct an
// illustration service.
type IllustrationServiceDeps struct {
	Orders        repositories.OrderRepository
	Illustrations repositories.IllustrationRepository
	Payments      repositories.OrderPaymentRepository
	StatusChanges repositories.StatusChangeRepository
	UnitOfWork    repositories.UnitOfWork
	Provider      payments.Provider
	OrderService  OrderService
	Notifier      notifications.Notifier
	Publisher     LifecycleEventPublisher
	Checkout      CheckoutConfig
	Clock         func() time.Time
	NewID         func() string
	Logger        func(ctx context.Context, event string, fields map[string]any)
}

type illustrationService struct {
	orders        repositories.OrderRepository
	illustrations repositories.IllustrationRepository
	payments      repositories.OrderPaymentRepository
	statusChanges repositories.StatusChangeRepository
	uow           repositories.UnitOfWork
	provider      payments.Provider
	orderService  OrderService
	notifier      notifications.Notifier
	publisher     LifecycleEventPublisher
	checkout      CheckoutConfig
	clock         func() time.Time
	newID         func() string
	logger        func(ctx context.Context, event string, fields map[string]any)
	engine        *lifecycle.Engine[domain.Illustration, domain.IllustrationStatus]
}

var _ IllustrationService = (*illustrationService)(nil)

// NewIllustrationService assembles the commissioned illustration service.
func NewIllustrationService(deps IllustrationServiceDeps) (IllustrationService, error) {
	if deps.Orders == nil {
		return nil, errors.New("illustration service: orders repository is required")
	}
	if deps.Illustrations == nil {
		return nil, errors.New("illustration service: illustrations repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("illustration service: payments repository is required")
	}
	if deps.StatusChanges == nil {
		return nil, errors.New("illustration service: status change repository is required")
	}
	if deps.Provider == nil {
		return nil, errors.New("illustration service: payment provider is required")
	}
	if deps.OrderService == nil {
		return nil, errors.New("illustration service: order service is required")
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
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	checkout := deps.Checkout
	if strings.TrimSpace(checkout.Currency) == "" {
		checkout.Currency = defaultCurrency
	}

	svc := &illustrationService{
		orders:        deps.Orders,
		illustrations: deps.Illustrations,
		payments:      deps.Payments,
		statusChanges: deps.StatusChanges,
		uow:           uow,
		provider:      deps.Provider,
		orderService:  deps.OrderService,
		notifier:      notifier,
		publisher:     deps.Publisher,
		checkout:      checkout,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  newID,
		logger: logger,
	}

	engine, err := lifecycle.NewEngine(lifecycle.EngineDeps[domain.Illustration, domain.IllustrationStatus]{
		Machine: lifecycle.NewIllustrationMachine(),
		Guards: lifecycle.Guards[domain.IllustrationStatus]{
			ReasonRequiredFor: domain.IllustrationStatusCancelled,
		},
		Status:  func(i domain.Illustration) domain.IllustrationStatus { return i.Status },
		Persist: svc.persistTransition,
		Actions: svc.transitionActions(),
	})
	if err != nil {
		return nil, fmt.Errorf("illustration service: %w", err)
	}
	svc.engine = engine

	return svc, nil
}

func (s *illustrationService) Get(ctx context.Context, orderID string, illustrationID string) (domain.Illustration, error) {
	if ctx == nil {
		return domain.Illustration{}, errors.New("illustration service: context is required")
	}
	orderID = strings.TrimSpace(orderID)
	illustrationID = strings.TrimSpace(illustrationID)
	if orderID == "" || illustrationID == "" {
		return domain.Illustration{}, fmt.Errorf("%w: order id and illustration id are required", ErrIllustrationInvalidInput)
	}
	illustration, err := s.illustrations.FindByID(ctx, orderID, illustrationID)
	if err != nil {
		return domain.Illustration{}, mapIllustrationRepositoryError(err)
	}
	return illustration, nil
}

func (s *illustrationService) ListByOrder(ctx context.Context, orderID string) ([]domain.Illustration, error) {
	if ctx == nil {
		return nil, errors.New("illustration service: context is required")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrIllustrationInvalidInput)
	}
	list, err := s.illustrations.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, mapIllustrationRepositoryError(err)
	}
	return list, nil
}

func (s *illustrationService) TransitionStatus(ctx context.Context, cmd IllustrationTransitionCommand) (domain.Illustration, error) {
	if ctx == nil {
		return domain.Illustration{}, errors.New("illustration service: context is required")
	}
	illustration, err := s.Get(ctx, cmd.OrderID, cmd.IllustrationID)
	if err != nil {
		return domain.Illustration{}, err
	}

	updated, err := s.engine.TransitionTo(ctx, illustration, cmd.ToStatus, lifecycle.Transition{
		Reason:      strings.TrimSpace(cmd.Reason),
		TriggeredBy: cmd.TriggeredBy,
		ActorID:     strings.TrimSpace(cmd.ActorID),
		Metadata:    cloneAnyMap(cmd.Metadata),
	})
	if err != nil {
		return updated, s.mapTransitionError(ctx, err, updated)
	}
	return updated, nil
}

func (s *illustrationService) MarkPaidFromWebhook(ctx context.Context, cmd PaymentConfirmedCommand) (domain.Illustration, error) {
	if ctx == nil {
		return domain.Illustration{}, errors.New("illustration service: context is required")
	}
	intentID := strings.TrimSpace(cmd.IntentID)
	if intentID == "" {
		return domain.Illustration{}, fmt.Errorf("%w: intent id is required", ErrIllustrationInvalidInput)
	}

	payment, err := s.payments.FindByIntentID(ctx, intentID)
	if err != nil {
		return domain.Illustration{}, mapIllustrationRepositoryError(err)
	}

	var target domain.IllustrationStatus
	switch payment.Kind {
	case domain.PaymentKindIllustrationDeposit:
		target = domain.IllustrationStatusDepositPaid
	case domain.PaymentKindIllustrationFinal:
		target = domain.IllustrationStatusCompleted
	default:
		return domain.Illustration{}, fmt.Errorf("%w: payment %s is not an illustration charge", ErrIllustrationInvalidInput, payment.ID)
	}

	illustration, err := s.Get(ctx, payment.OrderID, payment.IllustrationID)
	if err != nil {
		return domain.Illustration{}, err
	}

	now := s.clock()
	if payment.Status != domain.PaymentStatusPaid {
		payment.Status = domain.PaymentStatusPaid
		payment.PaidAt = &now
		payment.UpdatedAt = now
		if err := s.payments.Update(ctx, payment); err != nil {
			return domain.Illustration{}, mapIllustrationRepositoryError(err)
		}
	}

	if !s.engine.Machine().CanTransition(illustration.Status, target) {
		if s.settledByReplay(illustration.Status, payment.Kind) {
			return illustration, nil
		}
		return domain.Illustration{}, fmt.Errorf("%w: illustration %s cannot reach %s from %s",
			ErrIllustrationInvalidState, illustration.ID, target, illustration.Status)
	}

	triggeredBy := cmd.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = domain.TriggerWebhook
	}
	metadata := map[string]any{"intent_id": intentID}
	if strings.TrimSpace(cmd.EventID) != "" {
		metadata["event_id"] = strings.TrimSpace(cmd.EventID)
	}

	updated, err := s.engine.TransitionTo(ctx, illustration, target, lifecycle.Transition{
		TriggeredBy: triggeredBy,
		Metadata:    metadata,
	})
	if err != nil {
		return updated, s.mapTransitionError(ctx, err, updated)
	}
	return updated, nil
}

func (s *illustrationService) ListStatusChanges(ctx context.Context, orderID string, illustrationID string) ([]domain.IllustrationStatusChange, error) {
	if ctx == nil {
		return nil, errors.New("illustration service: context is required")
	}
	orderID = strings.TrimSpace(orderID)
	illustrationID = strings.TrimSpace(illustrationID)
	if orderID == "" || illustrationID == "" {
		return nil, fmt.Errorf("%w: order id and illustration id are required", ErrIllustrationInvalidInput)
	}
	changes, err := s.statusChanges.ListIllustrationChanges(ctx, orderID, illustrationID)
	if err != nil {
		return nil, mapIllustrationRepositoryError(err)
	}
	return changes, nil
}

// settledByReplay reports whether the current status shows the webhook's
// payment was already applied, so a redelivery is acknowledged silently.
func (s *illustrationService) settledByReplay(status domain.IllustrationStatus, kind domain.PaymentKind) bool {
	switch kind {
	case domain.PaymentKindIllustrationDeposit:
		switch status {
		case domain.IllustrationStatusPending, domain.IllustrationStatusDepositPending:
			return false
		}
		return true
	case domain.PaymentKindIllustrationFinal:
		return status == domain.IllustrationStatusCompleted
	}
	return false
}

func (s *illustrationService) persistTransition(ctx context.Context, illustration domain.Illustration, from, to domain.IllustrationStatus, tr lifecycle.Transition) (domain.Illustration, error) {
	now := s.clock()
	illustration.Status = to
	illustration.UpdatedAt = now

	switch to {
	case domain.IllustrationStatusCompleted:
		illustration.CompletedAt = &now
	case domain.IllustrationStatusCancelled:
		illustration.CancelledAt = &now
		reason := tr.Reason
		illustration.CancelReason = &reason
	}

	change := domain.IllustrationStatusChange{
		ID:             illustrationChangeIDPrefix + s.newID(),
		IllustrationID: illustration.ID,
		OrderID:        illustration.OrderID,
		FromStatus:     &from,
		ToStatus:       to,
		Reason:         tr.Reason,
		Metadata:       cloneAnyMap(tr.Metadata),
		TriggeredBy:    tr.TriggeredBy,
		UserID:         tr.ActorID,
		CreatedAt:      now,
	}

	err := s.uow.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.illustrations.Update(ctx, illustration); err != nil {
			return err
		}
		return s.statusChanges.AppendIllustrationChange(ctx, change)
	})
	if err != nil {
		return illustration, err
	}

	s.publishLifecycle(ctx, LifecycleEventMessage{
		EventID:     change.ID,
		Entity:      "illustration",
		EntityID:    illustration.ID,
		OrderID:     illustration.OrderID,
		FromStatus:  string(from),
		ToStatus:    string(to),
		TriggeredBy: string(tr.TriggeredBy),
		OccurredAt:  now,
	})
	s.logger(ctx, "illustration.status_changed", map[string]any{
		"illustration_id": illustration.ID,
		"order_id":        illustration.OrderID,
		"from_status":     string(from),
		"to_status":       string(to),
		"triggered_by":    string(tr.TriggeredBy),
	})

	return illustration, nil
}

func (s *illustrationService) publishLifecycle(ctx context.Context, event LifecycleEventMessage) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.PublishLifecycleEvent(ctx, event); err != nil {
		s.logger(ctx, "illustration.lifecycle_publish_failed", map[string]any{
			"illustration_id": event.EntityID,
			"to_status":       event.ToStatus,
			"error":           err.Error(),
		})
	}
}

func (s *illustrationService) mapTransitionError(ctx context.Context, err error, illustration domain.Illustration) error {
	var actionErr *lifecycle.ActionError
	if errors.As(err, &actionErr) {
		s.logger(ctx, "illustration.action_failed", map[string]any{
			"illustration_id": illustration.ID,
			"action":          actionErr.Action,
			"error":           actionErr.Err.Error(),
		})
		return err
	}
	switch {
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return fmt.Errorf("%w: %v", ErrIllustrationInvalidState, err)
	case errors.Is(err, lifecycle.ErrReasonRequired):
		return fmt.Errorf("%w: %v", ErrIllustrationInvalidInput, err)
	}
	return mapIllustrationRepositoryError(err)
}

func mapIllustrationRepositoryError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrIllustrationNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrIllustrationConflict, err)
		}
	}
	return err
}
