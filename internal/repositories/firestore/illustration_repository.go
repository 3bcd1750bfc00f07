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

const illustrationsCollection = "illustrations"

// IllustrationRepository stores illustrations as a subcollection of their order.
type IllustrationRepository struct {
	provider *pfirestore.Provider
}

func NewIllustrationRepository(provider *pfirestore.Provider) (*IllustrationRepository, error) {
	if provider == nil {
		return nil, errors.New("illustration repository requires firestore provider")
	}
	return &IllustrationRepository{provider: provider}, nil
}

func (r *IllustrationRepository) Insert(ctx context.Context, illustration domain.Illustration) error {
	if r == nil || r.provider == nil {
		return errors.New("illustration repository not initialised")
	}
	ref, err := r.docRef(ctx, illustration.OrderID, illustration.ID)
	if err != nil {
		return err
	}
	if err := txCreate(ctx, ref, newIllustrationDocument(illustration)); err != nil {
		return pfirestore.WrapError("illustrations.insert", err)
	}
	return nil
}

func (r *IllustrationRepository) Update(ctx context.Context, illustration domain.Illustration) error {
	if r == nil || r.provider == nil {
		return errors.New("illustration repository not initialised")
	}
	ref, err := r.docRef(ctx, illustration.OrderID, illustration.ID)
	if err != nil {
		return err
	}
	if err := txSet(ctx, ref, newIllustrationDocument(illustration)); err != nil {
		return pfirestore.WrapError("illustrations.update", err)
	}
	return nil
}

func (r *IllustrationRepository) FindByID(ctx context.Context, orderID string, illustrationID string) (domain.Illustration, error) {
	if r == nil || r.provider == nil {
		return domain.Illustration{}, errors.New("illustration repository not initialised")
	}
	ref, err := r.docRef(ctx, orderID, illustrationID)
	if err != nil {
		return domain.Illustration{}, err
	}
	snap, err := txGet(ctx, ref)
	if err != nil {
		return domain.Illustration{}, pfirestore.WrapError("illustrations.find", err)
	}
	var doc illustrationDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Illustration{}, fmt.Errorf("decode illustration %s: %w", illustrationID, err)
	}
	return doc.toDomain(snap.Ref.ID, orderID), nil
}

func (r *IllustrationRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.Illustration, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("illustration repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, errors.New("illustration list: order id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, pfirestore.WrapError("illustrations.list", err)
	}
	iter := client.Collection(ordersCollection).Doc(orderID).
		Collection(illustrationsCollection).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var illustrations []domain.Illustration
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("illustrations.list", err)
		}
		var doc illustrationDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode illustration %s: %w", snap.Ref.ID, err)
		}
		illustrations = append(illustrations, doc.toDomain(snap.Ref.ID, orderID))
	}
	return illustrations, nil
}

func (r *IllustrationRepository) docRef(ctx context.Context, orderID string, illustrationID string) (*firestore.DocumentRef, error) {
	orderID = strings.TrimSpace(orderID)
	illustrationID = strings.TrimSpace(illustrationID)
	if orderID == "" || illustrationID == "" {
		return nil, errors.New("illustration ref: order id and illustration id are required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, pfirestore.WrapError("illustrations.ref", err)
	}
	return client.Collection(ordersCollection).Doc(orderID).Collection(illustrationsCollection).Doc(illustrationID), nil
}

type illustrationDocument struct {
	Kind         string     `firestore:"kind"`
	Status       string     `firestore:"status"`
	HumanCount   int        `firestore:"humanCount"`
	AnimalCount  int        `firestore:"animalCount"`
	ItemCount    int        `firestore:"itemCount"`
	Pose         string     `firestore:"pose,omitempty"`
	Background   string     `firestore:"background,omitempty"`
	Description  string     `firestore:"description,omitempty"`
	Print        bool       `firestore:"print"`
	AddTracking  bool       `firestore:"addTracking"`
	Price        int64      `firestore:"price"`
	CreatedAt    time.Time  `firestore:"createdAt"`
	UpdatedAt    time.Time  `firestore:"updatedAt"`
	CompletedAt  *time.Time `firestore:"completedAt,omitempty"`
	CancelledAt  *time.Time `firestore:"cancelledAt,omitempty"`
	CancelReason *string    `firestore:"cancelReason,omitempty"`
}

func newIllustrationDocument(illustration domain.Illustration) illustrationDocument {
	return illustrationDocument{
		Kind:         string(illustration.Kind),
		Status:       string(illustration.Status),
		HumanCount:   illustration.HumanCount,
		AnimalCount:  illustration.AnimalCount,
		ItemCount:    illustration.ItemCount,
		Pose:         strings.TrimSpace(illustration.Pose),
		Background:   strings.TrimSpace(illustration.Background),
		Description:  strings.TrimSpace(illustration.Description),
		Print:        illustration.Print,
		AddTracking:  illustration.AddTracking,
		Price:        illustration.Price.Cents(),
		CreatedAt:    illustration.CreatedAt.UTC(),
		UpdatedAt:    illustration.UpdatedAt.UTC(),
		CompletedAt:  timePtrUTC(illustration.CompletedAt),
		CancelledAt:  timePtrUTC(illustration.CancelledAt),
		CancelReason: illustration.CancelReason,
	}
}

func (d illustrationDocument) toDomain(id string, orderID string) domain.Illustration {
	return domain.Illustration{
		ID:           id,
		OrderID:      orderID,
		Kind:         domain.IllustrationKind(d.Kind),
		Status:       domain.IllustrationStatus(d.Status),
		HumanCount:   d.HumanCount,
		AnimalCount:  d.AnimalCount,
		ItemCount:    d.ItemCount,
		Pose:         d.Pose,
		Background:   d.Background,
		Description:  d.Description,
		Print:        d.Print,
		AddTracking:  d.AddTracking,
		Price:        domain.MoneyFromCents(d.Price),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		CompletedAt:  d.CompletedAt,
		CancelledAt:  d.CancelledAt,
		CancelReason: d.CancelReason,
	}
}
