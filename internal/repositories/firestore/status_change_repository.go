package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/atelier-mirabelle/api/internal/domain"
	pfirestore "github.com/atelier-mirabelle/api/internal/platform/firestore"
)

const (
	orderStatusChangesCollection        = "statusChanges"
	illustrationStatusChangesCollection = "illustrationStatusChanges"
)

// StatusChangeRepository appends immutable audit rows beneath the order they
// belong to. Rows are never updated or deleted.
type StatusChangeRepository struct {
	provider *pfirestore.Provider
}

func NewStatusChangeRepository(provider *pfirestore.Provider) (*StatusChangeRepository, error) {
	if provider == nil {
		return nil, errors.New("status change repository requires firestore provider")
	}
	return &StatusChangeRepository{provider: provider}, nil
}

func (r *StatusChangeRepository) AppendOrderChange(ctx context.Context, change domain.OrderStatusChange) error {
	if r == nil || r.provider == nil {
		return errors.New("status change repository not initialised")
	}
	orderID := strings.TrimSpace(change.OrderID)
	changeID := strings.TrimSpace(change.ID)
	if orderID == "" || changeID == "" {
		return errors.New("order status change: order id and change id are required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return pfirestore.WrapError("statusChanges.append", err)
	}
	ref := client.Collection(ordersCollection).Doc(orderID).Collection(orderStatusChangesCollection).Doc(changeID)
	doc := statusChangeDocument{
		FromStatus:  orderStatusPtrString(change.FromStatus),
		ToStatus:    string(change.ToStatus),
		Reason:      strings.TrimSpace(change.Reason),
		Metadata:    change.Metadata,
		TriggeredBy: string(change.TriggeredBy),
		UserID:      strings.TrimSpace(change.UserID),
		CreatedAt:   change.CreatedAt.UTC(),
	}
	if err := txCreate(ctx, ref, doc); err != nil {
		return pfirestore.WrapError("statusChanges.append", err)
	}
	return nil
}

func (r *StatusChangeRepository) AppendIllustrationChange(ctx context.Context, change domain.IllustrationStatusChange) error {
	if r == nil || r.provider == nil {
		return errors.New("status change repository not initialised")
	}
	orderID := strings.TrimSpace(change.OrderID)
	changeID := strings.TrimSpace(change.ID)
	if orderID == "" || changeID == "" {
		return errors.New("illustration status change: order id and change id are required")
	}
	if strings.TrimSpace(change.IllustrationID) == "" {
		return errors.New("illustration status change: illustration id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return pfirestore.WrapError("statusChanges.appendIllustration", err)
	}
	ref := client.Collection(ordersCollection).Doc(orderID).Collection(illustrationStatusChangesCollection).Doc(changeID)
	doc := statusChangeDocument{
		IllustrationID: strings.TrimSpace(change.IllustrationID),
		FromStatus:     illustrationStatusPtrString(change.FromStatus),
		ToStatus:       string(change.ToStatus),
		Reason:         strings.TrimSpace(change.Reason),
		Metadata:       change.Metadata,
		TriggeredBy:    string(change.TriggeredBy),
		UserID:         strings.TrimSpace(change.UserID),
		CreatedAt:      change.CreatedAt.UTC(),
	}
	if err := txCreate(ctx, ref, doc); err != nil {
		return pfirestore.WrapError("statusChanges.appendIllustration", err)
	}
	return nil
}

func (r *StatusChangeRepository) ListOrderChanges(ctx context.Context, orderID string) ([]domain.OrderStatusChange, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("status change repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, errors.New("order status changes: order id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, pfirestore.WrapError("statusChanges.list", err)
	}
	iter := client.Collection(ordersCollection).Doc(orderID).
		Collection(orderStatusChangesCollection).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var changes []domain.OrderStatusChange
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("statusChanges.list", err)
		}
		var doc statusChangeDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode status change %s: %w", snap.Ref.ID, err)
		}
		changes = append(changes, domain.OrderStatusChange{
			ID:          snap.Ref.ID,
			OrderID:     orderID,
			FromStatus:  orderStatusPtr(doc.FromStatus),
			ToStatus:    domain.OrderStatus(doc.ToStatus),
			Reason:      doc.Reason,
			Metadata:    doc.Metadata,
			TriggeredBy: domain.TriggerOrigin(doc.TriggeredBy),
			UserID:      doc.UserID,
			CreatedAt:   doc.CreatedAt,
		})
	}
	return changes, nil
}

func (r *StatusChangeRepository) ListIllustrationChanges(ctx context.Context, orderID string, illustrationID string) ([]domain.IllustrationStatusChange, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("status change repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	illustrationID = strings.TrimSpace(illustrationID)
	if orderID == "" || illustrationID == "" {
		return nil, errors.New("illustration status changes: order id and illustration id are required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, pfirestore.WrapError("statusChanges.listIllustration", err)
	}
	iter := client.Collection(ordersCollection).Doc(orderID).
		Collection(illustrationStatusChangesCollection).
		Where("illustrationId", "==", illustrationID).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var changes []domain.IllustrationStatusChange
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("statusChanges.listIllustration", err)
		}
		var doc statusChangeDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode status change %s: %w", snap.Ref.ID, err)
		}
		changes = append(changes, domain.IllustrationStatusChange{
			ID:             snap.Ref.ID,
			IllustrationID: doc.IllustrationID,
			OrderID:        orderID,
			FromStatus:     illustrationStatusPtr(doc.FromStatus),
			ToStatus:       domain.IllustrationStatus(doc.ToStatus),
			Reason:         doc.Reason,
			Metadata:       doc.Metadata,
			TriggeredBy:    domain.TriggerOrigin(doc.TriggeredBy),
			UserID:         doc.UserID,
			CreatedAt:      doc.CreatedAt,
		})
	}
	return changes, nil
}

type statusChangeDocument struct {
	IllustrationID string         `firestore:"illustrationId,omitempty"`
	FromStatus     string         `firestore:"fromStatus,omitempty"`
	ToStatus       string         `firestore:"toStatus"`
	Reason         string         `firestore:"reason,omitempty"`
	Metadata       map[string]any `firestore:"metadata,omitempty"`
	TriggeredBy    string         `firestore:"triggeredBy"`
	UserID         string         `firestore:"userId,omitempty"`
	CreatedAt      time.Time      `firestore:"createdAt"`
}

func orderStatusPtrString(status *domain.OrderStatus) string {
	if status == nil {
		return ""
	}
	return string(*status)
}

func orderStatusPtr(raw string) *domain.OrderStatus {
	if raw == "" {
		return nil
	}
	status := domain.OrderStatus(raw)
	return &status
}

func illustrationStatusPtrString(status *domain.IllustrationStatus) string {
	if status == nil {
		return ""
	}
	return string(*status)
}

func illustrationStatusPtr(raw string) *domain.IllustrationStatus {
	if raw == "" {
		return nil
	}
	status := domain.IllustrationStatus(raw)
	return &status
}
