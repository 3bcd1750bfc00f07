package services

import (
	"context"
	"errors"

	domain "github.com/atelier-mirabelle/api/internal/domain"
	"github.com/atelier-mirabelle/api/internal/payments"
	"github.com/atelier-mirabelle/api/internal/repositories"
)

type stubOrderRepo struct {
	insertFn    func(context.Context, domain.Order) error
	updateFn    func(context.Context, domain.Order) error
	findFn      func(context.Context, string) (domain.Order, error)
	findRefFn   func(context.Context, string) (domain.Order, error)
	refExistsFn func(context.Context, string) (bool, error)
	listFn      func(context.Context, repositories.OrderListFilter) (domain.CursorPage[domain.Order], error)
}

func (s *stubOrderRepo) Insert(ctx context.Context, order domain.Order) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) Update(ctx context.Context, order domain.Order) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepo) FindByReference(ctx context.Context, reference string) (domain.Order, error) {
	if s.findRefFn != nil {
		return s.findRefFn(ctx, reference)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepo) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	if s.refExistsFn != nil {
		return s.refExistsFn(ctx, reference)
	}
	return false, nil
}

func (s *stubOrderRepo) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Order]{}, nil
}

type stubIllustrationRepo struct {
	insertFn func(context.Context, domain.Illustration) error
	updateFn func(context.Context, domain.Illustration) error
	findFn   func(context.Context, string, string) (domain.Illustration, error)
	listFn   func(context.Context, string) ([]domain.Illustration, error)
}

func (s *stubIllustrationRepo) Insert(ctx context.Context, illustration domain.Illustration) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, illustration)
	}
	return nil
}

func (s *stubIllustrationRepo) Update(ctx context.Context, illustration domain.Illustration) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, illustration)
	}
	return nil
}

func (s *stubIllustrationRepo) FindByID(ctx context.Context, orderID string, illustrationID string) (domain.Illustration, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID, illustrationID)
	}
	return domain.Illustration{}, errors.New("not implemented")
}

func (s *stubIllustrationRepo) ListByOrder(ctx context.Context, orderID string) ([]domain.Illustration, error) {
	if s.listFn != nil {
		return s.listFn(ctx, orderID)
	}
	return nil, nil
}

type stubPaymentRepo struct {
	insertFn     func(context.Context, domain.OrderPayment) error
	updateFn     func(context.Context, domain.OrderPayment) error
	deleteFn     func(context.Context, string, string) error
	findFn       func(context.Context, string, string) (domain.OrderPayment, error)
	findIntentFn func(context.Context, string) (domain.OrderPayment, error)
	listFn       func(context.Context, string) ([]domain.OrderPayment, error)
}

func (s *stubPaymentRepo) Insert(ctx context.Context, payment domain.OrderPayment) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, payment)
	}
	return nil
}

func (s *stubPaymentRepo) Update(ctx context.Context, payment domain.OrderPayment) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, payment)
	}
	return nil
}

func (s *stubPaymentRepo) Delete(ctx context.Context, orderID string, paymentID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, orderID, paymentID)
	}
	return nil
}

func (s *stubPaymentRepo) FindByID(ctx context.Context, orderID string, paymentID string) (domain.OrderPayment, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID, paymentID)
	}
	return domain.OrderPayment{}, errors.New("not implemented")
}

func (s *stubPaymentRepo) FindByIntentID(ctx context.Context, intentID string) (domain.OrderPayment, error) {
	if s.findIntentFn != nil {
		return s.findIntentFn(ctx, intentID)
	}
	return domain.OrderPayment{}, errors.New("not implemented")
}

func (s *stubPaymentRepo) List(ctx context.Context, orderID string) ([]domain.OrderPayment, error) {
	if s.listFn != nil {
		return s.listFn(ctx, orderID)
	}
	return nil, nil
}

type stubStatusChangeRepo struct {
	appendOrderFn func(context.Context, domain.OrderStatusChange) error
	appendIllFn   func(context.Context, domain.IllustrationStatusChange) error
	listOrderFn   func(context.Context, string) ([]domain.OrderStatusChange, error)
	listIllFn     func(context.Context, string, string) ([]domain.IllustrationStatusChange, error)
}

func (s *stubStatusChangeRepo) AppendOrderChange(ctx context.Context, change domain.OrderStatusChange) error {
	if s.appendOrderFn != nil {
		return s.appendOrderFn(ctx, change)
	}
	return nil
}

func (s *stubStatusChangeRepo) AppendIllustrationChange(ctx context.Context, change domain.IllustrationStatusChange) error {
	if s.appendIllFn != nil {
		return s.appendIllFn(ctx, change)
	}
	return nil
}

func (s *stubStatusChangeRepo) ListOrderChanges(ctx context.Context, orderID string) ([]domain.OrderStatusChange, error) {
	if s.listOrderFn != nil {
		return s.listOrderFn(ctx, orderID)
	}
	return nil, nil
}

func (s *stubStatusChangeRepo) ListIllustrationChanges(ctx context.Context, orderID string, illustrationID string) ([]domain.IllustrationStatusChange, error) {
	if s.listIllFn != nil {
		return s.listIllFn(ctx, orderID, illustrationID)
	}
	return nil, nil
}

type stubStockRepo struct {
	getFn    func(context.Context, string) (domain.ProductStock, error)
	adjustFn func(context.Context, repositories.StockAdjustRequest) (repositories.StockAdjustResult, error)
}

func (s *stubStockRepo) Get(ctx context.Context, productID string) (domain.ProductStock, error) {
	if s.getFn != nil {
		return s.getFn(ctx, productID)
	}
	return domain.ProductStock{}, errors.New("not implemented")
}

func (s *stubStockRepo) Adjust(ctx context.Context, req repositories.StockAdjustRequest) (repositories.StockAdjustResult, error) {
	if s.adjustFn != nil {
		return s.adjustFn(ctx, req)
	}
	return repositories.StockAdjustResult{}, nil
}

type stubProvider struct {
	linkFn   func(context.Context, payments.PaymentLinkRequest) (payments.PaymentLink, error)
	refundFn func(context.Context, payments.RefundRequest) (payments.Refund, error)
	lookupFn func(context.Context, payments.LookupRequest) (payments.PaymentDetails, error)
}

func (s *stubProvider) CreatePaymentLink(ctx context.Context, req payments.PaymentLinkRequest) (payments.PaymentLink, error) {
	if s.linkFn != nil {
		return s.linkFn(ctx, req)
	}
	return payments.PaymentLink{SessionID: "cs_test", URL: "https://pay.example/cs_test", IntentID: "pi_test"}, nil
}

func (s *stubProvider) Refund(ctx context.Context, req payments.RefundRequest) (payments.Refund, error) {
	if s.refundFn != nil {
		return s.refundFn(ctx, req)
	}
	return payments.Refund{ID: "re_test", Status: payments.StatusRefunded}, nil
}

func (s *stubProvider) LookupPayment(ctx context.Context, req payments.LookupRequest) (payments.PaymentDetails, error) {
	if s.lookupFn != nil {
		return s.lookupFn(ctx, req)
	}
	return payments.PaymentDetails{}, errors.New("not implemented")
}

type stubRefundService struct {
	processFn func(context.Context, domain.Order, domain.OrderStatus, string) (CancellationRefundOutcome, error)
	refundFn  func(context.Context, RefundPaymentCommand) (RefundResult, error)
}

func (s *stubRefundService) ProcessOrderCancellationRefund(ctx context.Context, order domain.Order, from domain.OrderStatus, reason string) (CancellationRefundOutcome, error) {
	if s.processFn != nil {
		return s.processFn(ctx, order, from, reason)
	}
	return CancellationRefundOutcome{Required: false, Succeeded: true}, nil
}

func (s *stubRefundService) RefundPayment(ctx context.Context, cmd RefundPaymentCommand) (RefundResult, error) {
	if s.refundFn != nil {
		return s.refundFn(ctx, cmd)
	}
	return RefundResult{PaymentID: cmd.PaymentID, Succeeded: true}, nil
}

func (s *stubRefundService) IllustrationRefundAmount(payment domain.OrderPayment, status domain.IllustrationStatus) domain.Money {
	return 0
}

func (s *stubRefundService) OrderRefundSummary(context.Context, string) (RefundSummary, error) {
	return RefundSummary{}, errors.New("not implemented")
}

type stubStockService struct {
	decremented []string
	restored    []string
	failWith    error
}

func (s *stubStockService) GetStock(context.Context, string) (domain.ProductStock, error) {
	return domain.ProductStock{}, errors.New("not implemented")
}

func (s *stubStockService) DecrementForOrder(_ context.Context, order domain.Order) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.decremented = append(s.decremented, order.ID)
	return nil
}

func (s *stubStockService) RestoreForOrder(_ context.Context, order domain.Order) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.restored = append(s.restored, order.ID)
	return nil
}

type stubOrderService struct {
	getFn        func(context.Context, string, OrderReadOptions) (domain.Order, error)
	transitionFn func(context.Context, OrderTransitionCommand) (domain.Order, error)
	transitions  []OrderTransitionCommand
}

func (s *stubOrderService) CreateOrder(context.Context, CreateOrderCommand) (domain.Order, error) {
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string, opts OrderReadOptions) (domain.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID, opts)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) GetOrderByReference(context.Context, string, OrderReadOptions) (domain.Order, error) {
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) ListOrders(context.Context, OrderListFilter) (domain.CursorPage[domain.Order], error) {
	return domain.CursorPage[domain.Order]{}, errors.New("not implemented")
}

func (s *stubOrderService) TransitionStatus(ctx context.Context, cmd OrderTransitionCommand) (domain.Order, error) {
	s.transitions = append(s.transitions, cmd)
	if s.transitionFn != nil {
		return s.transitionFn(ctx, cmd)
	}
	return domain.Order{}, nil
}

func (s *stubOrderService) Cancel(context.Context, CancelOrderCommand) (domain.Order, error) {
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) CalculateFees(context.Context, string) (FeeBreakdown, error) {
	return FeeBreakdown{}, errors.New("not implemented")
}

func (s *stubOrderService) MarkPaidFromWebhook(context.Context, PaymentConfirmedCommand) (domain.Order, error) {
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) ListStatusChanges(context.Context, string) ([]domain.OrderStatusChange, error) {
	return nil, errors.New("not implemented")
}

type capturePublisher struct {
	events []LifecycleEventMessage
	err    error
}

func (c *capturePublisher) PublishLifecycleEvent(_ context.Context, event LifecycleEventMessage) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.events = append(c.events, event)
	return "msg_1", nil
}

type stubHealthRepo struct {
	collectFn func(context.Context) (domain.SystemHealthReport, error)
}

func (s *stubHealthRepo) Collect(ctx context.Context) (domain.SystemHealthReport, error) {
	if s.collectFn != nil {
		return s.collectFn(ctx)
	}
	return domain.SystemHealthReport{}, nil
}

func sequentialIDs(prefixless ...string) func() string {
	i := 0
	return func() string {
		if i < len(prefixless) {
			id := prefixless[i]
			i++
			return id
		}
		i++
		return "zzzz"
	}
}
