package services

import (
	"context"
	"time"

	domain "github.com/atelier-mirabelle/api/internal/domain"
	"github.com/atelier-mirabelle/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination               = domain.Pagination
	Address                  = domain.Address
	Customer                 = domain.Customer
	Order                    = domain.Order
	OrderLine                = domain.OrderLine
	OrderStatus              = domain.OrderStatus
	OrderPayment             = domain.OrderPayment
	OrderStatusChange        = domain.OrderStatusChange
	Illustration             = domain.Illustration
	IllustrationStatus       = domain.IllustrationStatus
	IllustrationKind         = domain.IllustrationKind
	IllustrationStatusChange = domain.IllustrationStatusChange
	PaymentKind              = domain.PaymentKind
	PaymentStatus            = domain.PaymentStatus
	TriggerOrigin            = domain.TriggerOrigin
	Money                    = domain.Money
	ProductStock             = domain.ProductStock
	SystemHealthReport       = domain.SystemHealthReport
)

// OrderListFilter narrows admin and customer order listings.
type OrderListFilter = repositories.OrderListFilter

// OrderService orchestrates the order lifecycle, from checkout capture through
// payment, shipment and completion, including the cancellation path.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	GetOrder(ctx context.Context, orderID string, opts OrderReadOptions) (Order, error)
	GetOrderByReference(ctx context.Context, reference string, opts OrderReadOptions) (Order, error)
	ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error)
	TransitionStatus(ctx context.Context, cmd OrderTransitionCommand) (Order, error)
	Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error)
	CalculateFees(ctx context.Context, orderID string) (FeeBreakdown, error)
	MarkPaidFromWebhook(ctx context.Context, cmd PaymentConfirmedCommand) (Order, error)
	ListStatusChanges(ctx context.Context, orderID string) ([]OrderStatusChange, error)
}

// IllustrationService orchestrates commissioned illustration workflows nested
// underneath orders, including deposit and balance payment links and the
// synchronization of the parent order for illustration-only purchases.
type IllustrationService interface {
	Get(ctx context.Context, orderID string, illustrationID string) (Illustration, error)
	ListByOrder(ctx context.Context, orderID string) ([]Illustration, error)
	TransitionStatus(ctx context.Context, cmd IllustrationTransitionCommand) (Illustration, error)
	MarkPaidFromWebhook(ctx context.Context, cmd PaymentConfirmedCommand) (Illustration, error)
	ListStatusChanges(ctx context.Context, orderID string, illustrationID string) ([]IllustrationStatusChange, error)
}

// RefundService handles processor refunds for cancelled orders and exposes the
// commission refund policy.
type RefundService interface {
	ProcessOrderCancellationRefund(ctx context.Context, order Order, from OrderStatus, reason string) (CancellationRefundOutcome, error)
	RefundPayment(ctx context.Context, cmd RefundPaymentCommand) (RefundResult, error)
	IllustrationRefundAmount(payment OrderPayment, status IllustrationStatus) Money
	OrderRefundSummary(ctx context.Context, orderID string) (RefundSummary, error)
}

// StockService adjusts product stock in reaction to order lifecycle changes.
type StockService interface {
	GetStock(ctx context.Context, productID string) (ProductStock, error)
	DecrementForOrder(ctx context.Context, order Order) error
	RestoreForOrder(ctx context.Context, order Order) error
}

// SystemService aggregates operational utilities for health endpoints.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// LifecycleEventPublisher fans committed status transitions out to interested
// consumers. Implementations return the broker message id.
type LifecycleEventPublisher interface {
	PublishLifecycleEvent(ctx context.Context, event LifecycleEventMessage) (string, error)
}

// LifecycleEventMessage is the envelope published for every committed status
// transition, for both orders and illustrations.
type LifecycleEventMessage struct {
	EventID     string    `json:"event_id"`
	Entity      string    `json:"entity"`
	EntityID    string    `json:"entity_id"`
	OrderID     string    `json:"order_id"`
	FromStatus  string    `json:"from_status,omitempty"`
	ToStatus    string    `json:"to_status"`
	TriggeredBy string    `json:"triggered_by"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Command and DTO definitions ------------------------------------------------

// CreateOrderLine is one physical product line captured at checkout.
type CreateOrderLine struct {
	ProductID string
	SKU       string
	Name      string
	Quantity  int
	UnitPrice Money
}

// CreateIllustrationInput describes one commissioned piece attached to a new order.
type CreateIllustrationInput struct {
	Kind        IllustrationKind
	HumanCount  int
	AnimalCount int
	ItemCount   int
	Pose        string
	Background  string
	Description string
	Print       bool
	AddTracking bool
	Price       Money
}

// CreateOrderCommand captures a checkout submission.
type CreateOrderCommand struct {
	Customer       Customer
	Lines          []CreateOrderLine
	Illustrations  []CreateIllustrationInput
	ShipmentFee    Money
	ShippingTo     *Address
	BillingTo      *Address
	UseSameAddress bool
	Metadata       map[string]string
}

// OrderReadOptions toggles expensive sub-resource loading on order reads.
type OrderReadOptions struct {
	IncludeIllustrations bool
	IncludePayments      bool
}

// OrderTransitionCommand requests a single order status change.
type OrderTransitionCommand struct {
	OrderID        string
	ToStatus       OrderStatus
	Reason         string
	TrackingNumber string
	TriggeredBy    TriggerOrigin
	ActorID        string
	Metadata       map[string]any
}

// CancelOrderCommand requests an order cancellation with its mandatory reason.
type CancelOrderCommand struct {
	OrderID     string
	Reason      string
	TriggeredBy TriggerOrigin
	ActorID     string
}

// IllustrationTransitionCommand requests a single illustration status change.
type IllustrationTransitionCommand struct {
	OrderID        string
	IllustrationID string
	ToStatus       IllustrationStatus
	Reason         string
	TriggeredBy    TriggerOrigin
	ActorID        string
	Metadata       map[string]any
}

// PaymentConfirmedCommand relays a processor confirmation for one payment.
type PaymentConfirmedCommand struct {
	IntentID    string
	EventID     string
	TriggeredBy TriggerOrigin
}

// FeeBreakdown reports the cost composition of an order.
type FeeBreakdown struct {
	Subtotal     Money
	ShipmentFee  Money
	ProcessorFee Money
	// Estimated is true when the processor fee comes from the regional fee
	// table instead of a processor-reported amount.
	Estimated bool
	Total     Money
}

// RefundPaymentCommand requests a refund for a single payment record.
type RefundPaymentCommand struct {
	OrderID   string
	PaymentID string
	// Amount caps the refund. Zero means refund the full remaining amount.
	Amount Money
	Reason string
}

// RefundResult reports the outcome of one refund attempt. Guard violations and
// processor failures are reported here rather than as errors so callers can
// aggregate partial outcomes across several payments.
type RefundResult struct {
	PaymentID string
	Amount    Money
	Succeeded bool
	Error     string
}

// CancellationRefundOutcome aggregates the refunds issued while cancelling an order.
type CancellationRefundOutcome struct {
	Required  bool
	Succeeded bool
	Results   []RefundResult
}

// RefundSummary reports refund totals across all payments of an order.
type RefundSummary struct {
	TotalPaid     Money
	TotalRefunded Money
	// Refundable counts the outstanding amounts only while the order status
	// demands a refund on cancellation.
	Refundable    Money
	CanBeRefunded bool
	Payments      []OrderPayment
}
