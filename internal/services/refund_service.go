package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/atelier-mirabelle/api/internal/domain"
	"github.com/atelier-mirabelle/api/internal/payments"
	"github.com/atelier-mirabelle/api/internal/repositories"
)

var (
	// ErrRefundInvalidInput indicates the refund command failed validation.
	ErrRefundInvalidInput = errors.New("refund service: invalid input")
	// ErrRefundNotFound indicates the referenced order or payment does not exist.
	ErrRefundNotFound = errors.New("refund service: not found")
)

// RefundServiceDeps bundles collaborators required to construct a refund service.
type RefundServiceDeps struct {
	Orders     repositories.OrderRepository
	Payments   repositories.OrderPaymentRepository
	UnitOfWork repositories.UnitOfWork
	Provider   payments.Provider
	Clock      func() time.Time
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type refundService struct {
	orders   repositories.OrderRepository
	payments repositories.OrderPaymentRepository
	uow      repositories.UnitOfWork
	provider payments.Provider
	clock    func() time.Time
	logger   func(ctx context.Context, event string, fields map[string]any)
}

var _ RefundService = (*refundService)(nil)

// NewRefundService assembles the refund orchestration service.
func NewRefundService(deps RefundServiceDeps) (RefundService, error) {
	if deps.Orders == nil {
		return nil, errors.New("refund service: orders repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("refund service: payments repository is required")
	}
	if deps.Provider == nil {
		return nil, errors.New("refund service: payment provider is required")
	}

	uow := deps.UnitOfWork
	if uow == nil {
		uow = noopUnitOfWork{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &refundService{
		orders:   deps.Orders,
		payments: deps.Payments,
		uow:      uow,
		provider: deps.Provider,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// ProcessOrderCancellationRefund refunds every captured payment of an order
// that is being cancelled from a paid state. Payments without a processor
// intent id are skipped. The outcome reports success only when every refund
// succeeded.
func (s *refundService) ProcessOrderCancellationRefund(ctx context.Context, order domain.Order, from domain.OrderStatus, reason string) (CancellationRefundOutcome, error) {
	if ctx == nil {
		return CancellationRefundOutcome{}, errors.New("refund service: context is required")
	}

	probe := order
	probe.Status = from
	if !probe.RequiresRefundOnCancellation() {
		return CancellationRefundOutcome{Required: false, Succeeded: true}, nil
	}

	outcome := CancellationRefundOutcome{Required: true, Succeeded: true}
	err := s.uow.RunInTx(ctx, func(ctx context.Context) error {
		list, err := s.payments.List(ctx, order.ID)
		if err != nil {
			return mapRefundRepositoryError(err)
		}
		for _, payment := range list {
			if payment.Status != domain.PaymentStatusPaid || payment.IntentID == "" {
				continue
			}
			result, err := s.RefundPayment(ctx, RefundPaymentCommand{
				OrderID:   order.ID,
				PaymentID: payment.ID,
				Amount:    payment.Amount,
				Reason:    reason,
			})
			if err != nil {
				return err
			}
			outcome.Results = append(outcome.Results, result)
			if !result.Succeeded {
				outcome.Succeeded = false
			}
		}
		return nil
	})
	if err != nil {
		return CancellationRefundOutcome{Required: true}, err
	}

	s.logger(ctx, "refund.cancellation_processed", map[string]any{
		"order_id":  order.ID,
		"refunds":   len(outcome.Results),
		"succeeded": outcome.Succeeded,
	})
	return outcome, nil
}

// RefundPayment performs one processor refund. Guard violations and processor
// failures come back inside the result so callers can aggregate partial
// outcomes; the error return is reserved for repository failures.
func (s *refundService) RefundPayment(ctx context.Context, cmd RefundPaymentCommand) (RefundResult, error) {
	if ctx == nil {
		return RefundResult{}, errors.New("refund service: context is required")
	}
	orderID := strings.TrimSpace(cmd.OrderID)
	paymentID := strings.TrimSpace(cmd.PaymentID)
	if orderID == "" || paymentID == "" {
		return RefundResult{}, fmt.Errorf("%w: order id and payment id are required", ErrRefundInvalidInput)
	}

	payment, err := s.payments.FindByID(ctx, orderID, paymentID)
	if err != nil {
		return RefundResult{}, mapRefundRepositoryError(err)
	}

	result := RefundResult{PaymentID: payment.ID}
	if payment.IntentID == "" {
		result.Error = "payment has no processor payment intent"
		return result, nil
	}
	if payment.IsFullyRefunded() {
		result.Error = "payment is already fully refunded"
		return result, nil
	}

	// The requested amount clamps to what is still refundable; a request
	// for zero or less never falls back to the remaining balance.
	amount := cmd.Amount.Min(payment.RemainingRefundable())
	if amount <= 0 {
		result.Error = "nothing to refund"
		return result, nil
	}
	result.Amount = amount

	cents := amount.Cents()
	refund, err := s.provider.Refund(ctx, payments.RefundRequest{
		IntentID: payment.IntentID,
		Amount:   &cents,
		Reason:   strings.TrimSpace(cmd.Reason),
		// Keyed on the refunded amount so far, so a retry of the same
		// attempt cannot issue a duplicate refund.
		IdempotencyKey: refundIdempotencyKey(payment),
		Metadata: map[string]string{
			"order_id":   payment.OrderID,
			"payment_id": payment.ID,
		},
	})
	if err != nil {
		// The processor error string goes out unmodified for support diagnosis.
		result.Error = err.Error()
		s.logger(ctx, "refund.processor_failed", map[string]any{
			"order_id":   payment.OrderID,
			"payment_id": payment.ID,
			"error":      err.Error(),
		})
		return result, nil
	}

	now := s.clock()
	payment.RefundedAmount = payment.RefundedAmount.Add(amount)
	payment.RefundedAt = &now
	payment.RefundReason = strings.TrimSpace(cmd.Reason)
	payment.UpdatedAt = now
	if payment.IsFullyRefunded() {
		payment.Status = domain.PaymentStatusRefunded
	} else {
		payment.Status = domain.PaymentStatusPartiallyRefunded
	}
	if err := s.payments.Update(ctx, payment); err != nil {
		// The processor already moved the money. Surface the persistence
		// failure but keep the result marked as succeeded.
		result.Succeeded = true
		return result, fmt.Errorf("refund service: record refund %s: %w", refund.ID, err)
	}

	result.Succeeded = true
	s.logger(ctx, "refund.issued", map[string]any{
		"order_id":   payment.OrderID,
		"payment_id": payment.ID,
		"refund_id":  refund.ID,
		"amount":     amount.Cents(),
	})
	return result, nil
}

// IllustrationRefundAmount applies the commission refund policy. Before any
// work starts the payment refunds in full. Once the piece is in progress the
// deposit is forfeited while a final payment still refunds in full. From
// client review on, the work counts as delivered and nothing refunds.
func (s *refundService) IllustrationRefundAmount(payment domain.OrderPayment, status domain.IllustrationStatus) domain.Money {
	switch status {
	case domain.IllustrationStatusPending, domain.IllustrationStatusDepositPending, domain.IllustrationStatusDepositPaid:
		return payment.RemainingRefundable()
	case domain.IllustrationStatusInProgress:
		if payment.Kind == domain.PaymentKindIllustrationDeposit {
			return 0
		}
		return payment.RemainingRefundable()
	}
	return 0
}

// OrderRefundSummary aggregates paid and refunded totals over every captured
// payment of the order.
func (s *refundService) OrderRefundSummary(ctx context.Context, orderID string) (RefundSummary, error) {
	if ctx == nil {
		return RefundSummary{}, errors.New("refund service: context is required")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return RefundSummary{}, fmt.Errorf("%w: order id is required", ErrRefundInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return RefundSummary{}, mapRefundRepositoryError(err)
	}
	list, err := s.payments.List(ctx, orderID)
	if err != nil {
		return RefundSummary{}, mapRefundRepositoryError(err)
	}

	summary := RefundSummary{CanBeRefunded: order.RequiresRefundOnCancellation()}
	for _, payment := range list {
		switch payment.Status {
		case domain.PaymentStatusPaid, domain.PaymentStatusPartiallyRefunded, domain.PaymentStatusRefunded:
		default:
			continue
		}
		summary.TotalPaid = summary.TotalPaid.Add(payment.Amount)
		summary.TotalRefunded = summary.TotalRefunded.Add(payment.RefundedAmount)
		if summary.CanBeRefunded && !payment.IsFullyRefunded() {
			summary.Refundable = summary.Refundable.Add(payment.RemainingRefundable())
		}
		summary.Payments = append(summary.Payments, payment)
	}
	return summary, nil
}

func refundIdempotencyKey(payment domain.OrderPayment) string {
	return fmt.Sprintf("refund_%s_%d", payment.ID, payment.RefundedAmount.Cents())
}

func mapRefundRepositoryError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %v", ErrRefundNotFound, err)
	}
	return err
}
