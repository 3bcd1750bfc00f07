package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/atelier-mirabelle/api/internal/domain"
	pfirestore "github.com/atelier-mirabelle/api/internal/platform/firestore"
)

const paymentsCollection = "payments"

// OrderPaymentRepository stores payment records as a subcollection of their
// order. Webhook reconciliation finds payments across orders through a
// collection group query on the processor intent id.
type OrderPaymentRepository struct {
	provider *pfirestore.Provider
}

func NewOrderPaymentRepository(provider *pfirestore.Provider) (*OrderPaymentRepository, error) {
	if provider == nil {
		return nil, errors.New("payment repository requires firestore provider")
	}
	return &OrderPaymentRepository{provider: provider}, nil
}

func (r *OrderPaymentRepository) Insert(ctx context.Context, payment domain.OrderPayment) error {
	if r == nil || r.provider == nil {
		return errors.New("payment repository not initialised")
	}
	ref, err := r.docRef(ctx, payment.OrderID, payment.ID)
	if err != nil {
		return err
	}
	if err := txCreate(ctx, ref, newPaymentDocument(payment)); err != nil {
		return pfirestore.WrapError("payments.insert", err)
	}
	return nil
}

func (r *OrderPaymentRepository) Update(ctx context.Context, payment domain.OrderPayment) error {
	if r == nil || r.provider == nil {
		return errors.New("payment repository not initialised")
	}
	ref, err := r.docRef(ctx, payment.OrderID, payment.ID)
	if err != nil {
		return err
	}
	if err := txSet(ctx, ref, newPaymentDocument(payment)); err != nil {
		return pfirestore.WrapError("payments.update", err)
	}
	return nil
}

func (r *OrderPaymentRepository) Delete(ctx context.Context, orderID string, paymentID string) error {
	if r == nil || r.provider == nil {
		return errors.New("payment repository not initialised")
	}
	ref, err := r.docRef(ctx, orderID, paymentID)
	if err != nil {
		return err
	}
	if err := txDelete(ctx, ref); err != nil {
		return pfirestore.WrapError("payments.delete", err)
	}
	return nil
}

func (r *OrderPaymentRepository) FindByID(ctx context.Context, orderID string, paymentID string) (domain.OrderPayment, error) {
	if r == nil || r.provider == nil {
		return domain.OrderPayment{}, errors.New("payment repository not initialised")
	}
	ref, err := r.docRef(ctx, orderID, paymentID)
	if err != nil {
		return domain.OrderPayment{}, err
	}
	snap, err := txGet(ctx, ref)
	if err != nil {
		return domain.OrderPayment{}, pfirestore.WrapError("payments.find", err)
	}
	var doc paymentDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.OrderPayment{}, fmt.Errorf("decode payment %s: %w", paymentID, err)
	}
	return doc.toDomain(snap.Ref.ID, orderID), nil
}

func (r *OrderPaymentRepository) FindByIntentID(ctx context.Context, intentID string) (domain.OrderPayment, error) {
	if r == nil || r.provider == nil {
		return domain.OrderPayment{}, errors.New("payment repository not initialised")
	}
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return domain.OrderPayment{}, errors.New("payment find by intent: intent id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.OrderPayment{}, pfirestore.WrapError("payments.findByIntent", err)
	}
	iter := client.CollectionGroup(paymentsCollection).Where("intentId", "==", intentID).Limit(1).Documents(ctx)
	defer iter.Stop()
	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return domain.OrderPayment{}, pfirestore.WrapError("payments.findByIntent", status.Error(codes.NotFound, "payment not found"))
	}
	if err != nil {
		return domain.OrderPayment{}, pfirestore.WrapError("payments.findByIntent", err)
	}
	var doc paymentDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.OrderPayment{}, fmt.Errorf("decode payment %s: %w", snap.Ref.ID, err)
	}
	orderID := ""
	if parent := snap.Ref.Parent; parent != nil && parent.Parent != nil {
		orderID = parent.Parent.ID
	}
	return doc.toDomain(snap.Ref.ID, orderID), nil
}

func (r *OrderPaymentRepository) List(ctx context.Context, orderID string) ([]domain.OrderPayment, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("payment repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, errors.New("payment list: order id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, pfirestore.WrapError("payments.list", err)
	}
	iter := client.Collection(ordersCollection).Doc(orderID).
		Collection(paymentsCollection).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var paymentsOut []domain.OrderPayment
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("payments.list", err)
		}
		var doc paymentDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode payment %s: %w", snap.Ref.ID, err)
		}
		paymentsOut = append(paymentsOut, doc.toDomain(snap.Ref.ID, orderID))
	}
	return paymentsOut, nil
}

func (r *OrderPaymentRepository) docRef(ctx context.Context, orderID string, paymentID string) (*firestore.DocumentRef, error) {
	orderID = strings.TrimSpace(orderID)
	paymentID = strings.TrimSpace(paymentID)
	if orderID == "" || paymentID == "" {
		return nil, errors.New("payment ref: order id and payment id are required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, pfirestore.WrapError("payments.ref", err)
	}
	return client.Collection(ordersCollection).Doc(orderID).Collection(paymentsCollection).Doc(paymentID), nil
}

type paymentDocument struct {
	IllustrationID string     `firestore:"illustrationId,omitempty"`
	Kind           string     `firestore:"kind"`
	Status         string     `firestore:"status"`
	Amount         int64      `firestore:"amount"`
	ProcessorFee   int64      `firestore:"processorFee"`
	RefundedAmount int64      `firestore:"refundedAmount"`
	IntentID       string     `firestore:"intentId,omitempty"`
	PaymentLink    string     `firestore:"paymentLink,omitempty"`
	RefundReason   string     `firestore:"refundReason,omitempty"`
	CreatedAt      time.Time  `firestore:"createdAt"`
	UpdatedAt      time.Time  `firestore:"updatedAt"`
	PaidAt         *time.Time `firestore:"paidAt,omitempty"`
	RefundedAt     *time.Time `firestore:"refundedAt,omitempty"`
}

func newPaymentDocument(payment domain.OrderPayment) paymentDocument {
	return paymentDocument{
		IllustrationID: strings.TrimSpace(payment.IllustrationID),
		Kind:           string(payment.Kind),
		Status:         string(payment.Status),
		Amount:         payment.Amount.Cents(),
		ProcessorFee:   payment.ProcessorFee.Cents(),
		RefundedAmount: payment.RefundedAmount.Cents(),
		IntentID:       strings.TrimSpace(payment.IntentID),
		PaymentLink:    strings.TrimSpace(payment.PaymentLink),
		RefundReason:   strings.TrimSpace(payment.RefundReason),
		CreatedAt:      payment.CreatedAt.UTC(),
		UpdatedAt:      payment.UpdatedAt.UTC(),
		PaidAt:         timePtrUTC(payment.PaidAt),
		RefundedAt:     timePtrUTC(payment.RefundedAt),
	}
}

func (d paymentDocument) toDomain(id string, orderID string) domain.OrderPayment {
	return domain.OrderPayment{
		ID:             id,
		OrderID:        orderID,
		IllustrationID: d.IllustrationID,
		Kind:           domain.PaymentKind(d.Kind),
		Status:         domain.PaymentStatus(d.Status),
		Amount:         domain.MoneyFromCents(d.Amount),
		ProcessorFee:   domain.MoneyFromCents(d.ProcessorFee),
		RefundedAmount: domain.MoneyFromCents(d.RefundedAmount),
		IntentID:       d.IntentID,
		PaymentLink:    d.PaymentLink,
		RefundReason:   d.RefundReason,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
		PaidAt:         d.PaidAt,
		RefundedAt:     d.RefundedAt,
	}
}
