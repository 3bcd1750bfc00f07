package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// RangeQuery expresses an optional closed interval filter.
type RangeQuery[T any] struct {
	From *T
	To   *T
}

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusNew indicates the order was just created at checkout.
	OrderStatusNew OrderStatus = "new"
	// OrderStatusInProgress indicates commissioned work on the order has started.
	OrderStatusInProgress OrderStatus = "in_progress"
	// OrderStatusPendingPayment indicates the order awaits payment completion.
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	// OrderStatusPaid indicates payment succeeded.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusToShip indicates the order is ready for shipment handoff.
	OrderStatusToShip OrderStatus = "to_ship"
	// OrderStatusShipped indicates the order has been shipped.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDone indicates the order has been completed. Terminal.
	OrderStatusDone OrderStatus = "done"
	// OrderStatusCancelled indicates the order has been cancelled. Terminal.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IllustrationStatus enumerates valid lifecycle states for commissioned illustrations.
type IllustrationStatus string

const (
	// IllustrationStatusPending indicates the commission awaits the deposit request.
	IllustrationStatusPending IllustrationStatus = "pending"
	// IllustrationStatusDepositPending indicates the deposit payment link was issued.
	IllustrationStatusDepositPending IllustrationStatus = "deposit_pending"
	// IllustrationStatusDepositPaid indicates the deposit has been received.
	IllustrationStatusDepositPaid IllustrationStatus = "deposit_paid"
	// IllustrationStatusInProgress indicates the artist is working on the piece.
	IllustrationStatusInProgress IllustrationStatus = "in_progress"
	// IllustrationStatusClientReview indicates a draft awaits customer feedback.
	IllustrationStatusClientReview IllustrationStatus = "client_review"
	// IllustrationStatusPaymentPending indicates the final payment link was issued.
	IllustrationStatusPaymentPending IllustrationStatus = "payment_pending"
	// IllustrationStatusCompleted indicates the commission is finished. Terminal.
	IllustrationStatusCompleted IllustrationStatus = "completed"
	// IllustrationStatusCancelled indicates the commission was cancelled. Terminal.
	IllustrationStatusCancelled IllustrationStatus = "cancelled"
)

// IllustrationKind enumerates the commission types sold by the shop.
type IllustrationKind string

const (
	// IllustrationKindBust is a bust portrait commission.
	IllustrationKindBust IllustrationKind = "bust"
	// IllustrationKindFullLength is a full-length portrait commission.
	IllustrationKindFullLength IllustrationKind = "full_length"
	// IllustrationKindAnimal is an animal portrait commission.
	IllustrationKindAnimal IllustrationKind = "animal"
)

// PaymentKind distinguishes the charge types recorded against an order.
type PaymentKind string

const (
	// PaymentKindOrderFull is a single charge for the entire order.
	PaymentKindOrderFull PaymentKind = "order_full"
	// PaymentKindIllustrationDeposit is the up-front deposit for a commission.
	PaymentKindIllustrationDeposit PaymentKind = "illustration_deposit"
	// PaymentKindIllustrationFinal is the remaining balance for a commission.
	PaymentKindIllustrationFinal PaymentKind = "illustration_final"
)

// PaymentStatus enumerates the lifecycle states of a payment record.
type PaymentStatus string

const (
	// PaymentStatusPending indicates the charge awaits processor confirmation.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusPaid indicates the processor confirmed the charge.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusFailed indicates the charge failed permanently.
	PaymentStatusFailed PaymentStatus = "failed"
	// PaymentStatusRefunded indicates the full amount was returned.
	PaymentStatusRefunded PaymentStatus = "refunded"
	// PaymentStatusPartiallyRefunded indicates part of the amount was returned.
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// TriggerOrigin tags the provenance of a status transition for the audit trail.
type TriggerOrigin string

const (
	// TriggerManual marks transitions performed by back-office staff.
	TriggerManual TriggerOrigin = "manual"
	// TriggerWebhook marks transitions driven by payment processor webhooks.
	TriggerWebhook TriggerOrigin = "webhook"
	// TriggerSystem marks transitions performed by internal synchronization or batch jobs.
	TriggerSystem TriggerOrigin = "system"
	// TriggerCustomer marks transitions requested by the customer.
	TriggerCustomer TriggerOrigin = "customer"
)

// Address represents a postal address attached to an order.
type Address struct {
	Recipient  string
	Line1      string
	Line2      *string
	City       string
	PostalCode string
	Country    string
	Phone      *string
}

// Customer identifies the buyer of an order. Exactly one of UserID or GuestID
// is set, never both and never neither.
type Customer struct {
	UserID  string
	GuestID string
	Email   string
	Name    string
}

// IsGuest reports whether the order belongs to a guest checkout.
func (c Customer) IsGuest() bool {
	return c.GuestID != ""
}

// Valid reports whether the user XOR guest invariant holds.
func (c Customer) Valid() bool {
	return (c.UserID == "") != (c.GuestID == "")
}

// OrderLine stores a physical product line item captured at checkout.
type OrderLine struct {
	ProductID string
	SKU       string
	Name      string
	Quantity  int
	UnitPrice Money
	Total     Money
}

// Order captures an order header with its line items and commissions.
type Order struct {
	ID             string
	Reference      string
	Customer       Customer
	Status         OrderStatus
	Total          Money
	ShipmentFee    Money
	ShippingTo     *Address
	BillingTo      *Address
	UseSameAddress bool
	Lines          []OrderLine
	Illustrations  []Illustration
	Payments       []OrderPayment
	TrackingNumber string
	CancelReason   *string
	Metadata       map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PaidAt         *time.Time
	ShippedAt      *time.Time
	CompletedAt    *time.Time
	CancelledAt    *time.Time
}

// IsIllustrationOnly reports whether the order has no physical line items and
// at least one commissioned illustration. Completion of such orders depends
// solely on their illustrations.
func (o Order) IsIllustrationOnly() bool {
	return len(o.Lines) == 0 && len(o.Illustrations) > 0
}

// RequiresRefundOnCancellation reports whether cancelling the order from its
// current status must trigger a refund. Only paid and to-ship orders qualify;
// shipped orders cannot be cancelled through the state machine.
func (o Order) RequiresRefundOnCancellation() bool {
	return o.Status == OrderStatusPaid || o.Status == OrderStatusToShip
}

// Illustration stores one commissioned piece attached to an order.
type Illustration struct {
	ID           string
	OrderID      string
	Kind         IllustrationKind
	Status       IllustrationStatus
	HumanCount   int
	AnimalCount  int
	ItemCount    int
	Pose         string
	Background   string
	Description  string
	Print        bool
	AddTracking  bool
	Price        Money
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
	CancelledAt  *time.Time
	CancelReason *string
}

// OrderPayment represents one charge attempt against an order or illustration.
type OrderPayment struct {
	ID             string
	OrderID        string
	IllustrationID string
	Kind           PaymentKind
	Status         PaymentStatus
	Amount         Money
	ProcessorFee   Money
	RefundedAmount Money
	IntentID       string
	PaymentLink    string
	RefundReason   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PaidAt         *time.Time
	RefundedAt     *time.Time
}

// IsFullyRefunded reports whether the refunded amount covers the full charge.
func (p OrderPayment) IsFullyRefunded() bool {
	return p.RefundedAmount >= p.Amount
}

// RemainingRefundable returns the amount still eligible for refund.
func (p OrderPayment) RemainingRefundable() Money {
	remaining := p.Amount - p.RefundedAmount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// OrderStatusChange is the immutable audit row appended per order transition.
type OrderStatusChange struct {
	ID          string
	OrderID     string
	FromStatus  *OrderStatus
	ToStatus    OrderStatus
	Reason      string
	Metadata    map[string]any
	TriggeredBy TriggerOrigin
	UserID      string
	CreatedAt   time.Time
}

// IllustrationStatusChange is the immutable audit row appended per illustration transition.
type IllustrationStatusChange struct {
	ID             string
	IllustrationID string
	OrderID        string
	FromStatus     *IllustrationStatus
	ToStatus       IllustrationStatus
	Reason         string
	Metadata       map[string]any
	TriggeredBy    TriggerOrigin
	UserID         string
	CreatedAt      time.Time
}

// ProductStock tracks the available quantity for a physical product.
type ProductStock struct {
	ProductID string
	SKU       string
	Quantity  int
	UpdatedAt time.Time
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}
