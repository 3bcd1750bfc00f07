package payments

import (
	"context"
	"time"
)

// Status enumerates the normalised payment states reported by the processor.
type Status string

const (
	// StatusPending indicates the payment is awaiting customer action or processor confirmation.
	StatusPending Status = "pending"
	// StatusSucceeded indicates the processor reports the payment as successfully captured.
	StatusSucceeded Status = "succeeded"
	// StatusFailed indicates the processor reports a failure and no further action is possible.
	StatusFailed Status = "failed"
	// StatusRefunded indicates the payment has been fully refunded.
	StatusRefunded Status = "refunded"
)

// LineItem describes a single item to include on a payment link.
type LineItem struct {
	Name        string
	Description string
	SKU         string
	Quantity    int64
	Amount      int64
	Currency    string
}

// PaymentLinkRequest captures the payload required to create a hosted payment link.
type PaymentLinkRequest struct {
	Amount         int64
	Currency       string
	CustomerEmail  string
	SuccessURL     string
	CancelURL      string
	Locale         string
	Metadata       map[string]string
	IdempotencyKey string
	Items          []LineItem
}

// PaymentLink is the hosted checkout page handed to the customer.
type PaymentLink struct {
	SessionID string
	URL       string
	IntentID  string
	ExpiresAt time.Time
	Raw       map[string]any
}

// RefundRequest defines a processor refund attempt.
type RefundRequest struct {
	IntentID       string
	Amount         *int64
	Reason         string
	IdempotencyKey string
	Metadata       map[string]string
}

// Refund reports the outcome of a successful processor refund call.
type Refund struct {
	ID     string
	Amount int64
	Status Status
}

// LookupRequest identifies a processor payment for reconciliation.
type LookupRequest struct {
	IntentID string
}

// PaymentDetails normalises processor specific fields for storage.
type PaymentDetails struct {
	Provider   string
	IntentID   string
	Status     Status
	Amount     int64
	Currency   string
	Captured   bool
	CapturedAt *time.Time
	RefundedAt *time.Time
	Raw        map[string]any
}

// Provider defines the contract the payment processor adapter implements.
type Provider interface {
	CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (PaymentLink, error)
	Refund(ctx context.Context, req RefundRequest) (Refund, error)
	LookupPayment(ctx context.Context, req LookupRequest) (PaymentDetails, error)
}
