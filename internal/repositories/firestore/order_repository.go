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
	"github.com/atelier-mirabelle/api/internal/platform/pagination"
	"github.com/atelier-mirabelle/api/internal/repositories"
)

const ordersCollection = "orders"

// OrderRepository persists order headers in the orders collection.
// Illustrations, payments and audit rows live in subcollections owned by their
// dedicated repositories.
type OrderRepository struct {
	provider *pfirestore.Provider
}

func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{provider: provider}, nil
}

func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order insert: id is required")
	}
	ref, err := r.docRef(ctx, order.ID)
	if err != nil {
		return err
	}
	if err := txCreate(ctx, ref, newOrderDocument(order)); err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order update: id is required")
	}
	ref, err := r.docRef(ctx, order.ID)
	if err != nil {
		return err
	}
	if err := txSet(ctx, ref, newOrderDocument(order)); err != nil {
		return pfirestore.WrapError("orders.update", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order find: id is required")
	}
	ref, err := r.docRef(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	snap, err := txGet(ctx, ref)
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.find", err)
	}
	var doc orderDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Order{}, fmt.Errorf("decode order %s: %w", orderID, err)
	}
	return doc.toDomain(orderID), nil
}

func (r *OrderRepository) FindByReference(ctx context.Context, reference string) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if reference == "" {
		return domain.Order{}, errors.New("order find by reference: reference is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.findByReference", err)
	}
	iter := client.Collection(ordersCollection).Where("reference", "==", reference).Limit(1).Documents(ctx)
	defer iter.Stop()
	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return domain.Order{}, pfirestore.WrapError("orders.findByReference", status.Error(codes.NotFound, "order not found"))
	}
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.findByReference", err)
	}
	var doc orderDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Order{}, fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

func (r *OrderRepository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	if r == nil || r.provider == nil {
		return false, errors.New("order repository not initialised")
	}
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if reference == "" {
		return false, errors.New("order reference exists: reference is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return false, pfirestore.WrapError("orders.referenceExists", err)
	}
	iter := client.Collection(ordersCollection).Where("reference", "==", reference).Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); errors.Is(err, iterator.Done) {
		return false, nil
	} else if err != nil {
		return false, pfirestore.WrapError("orders.referenceExists", err)
	}
	return true, nil
}

func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	pageSize := filter.Pagination.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
	}

	query := client.Collection(ordersCollection).Query
	if userID := strings.TrimSpace(filter.UserID); userID != "" {
		query = query.Where("userId", "==", userID)
	}
	if guestID := strings.TrimSpace(filter.GuestID); guestID != "" {
		query = query.Where("guestId", "==", guestID)
	}
	if len(filter.Status) == 1 {
		query = query.Where("status", "==", string(filter.Status[0]))
	} else if len(filter.Status) > 1 {
		statuses := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			statuses[i] = string(s)
		}
		query = query.Where("status", "in", statuses)
	}
	if filter.DateRange.From != nil {
		query = query.Where("createdAt", ">=", filter.DateRange.From.UTC())
	}
	if filter.DateRange.To != nil {
		query = query.Where("createdAt", "<=", filter.DateRange.To.UTC())
	}
	query = query.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Asc).Limit(pageSize + 1)

	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		createdAt, id, err := decodeOrderCursor(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
		}
		query = query.StartAfter(createdAt, id)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var orders []domain.Order
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
		}
		orders = append(orders, doc.toDomain(snap.Ref.ID))
	}

	hasMore := len(orders) > pageSize
	if hasMore {
		orders = orders[:pageSize]
	}
	var nextToken string
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		encoded, err := pagination.EncodeToken(pagination.Cursor{
			StartAfter: []any{last.CreatedAt.UTC().Format(time.RFC3339Nano), last.ID},
		})
		if err != nil {
			return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.Order]{
		Items:         orders,
		NextPageToken: nextToken,
	}, nil
}

func (r *OrderRepository) docRef(ctx context.Context, orderID string) (*firestore.DocumentRef, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, pfirestore.WrapError("orders.ref", err)
	}
	return client.Collection(ordersCollection).Doc(orderID), nil
}

// Document mapping ----------------------------------------------------------

type orderDocument struct {
	Reference      string              `firestore:"reference"`
	UserID         string              `firestore:"userId,omitempty"`
	GuestID        string              `firestore:"guestId,omitempty"`
	Email          string              `firestore:"email"`
	Name           string              `firestore:"name,omitempty"`
	Status         string              `firestore:"status"`
	Total          int64               `firestore:"total"`
	ShipmentFee    int64               `firestore:"shipmentFee"`
	ShippingTo     *addressDocument    `firestore:"shippingTo,omitempty"`
	BillingTo      *addressDocument    `firestore:"billingTo,omitempty"`
	UseSameAddress bool                `firestore:"useSameAddress"`
	Lines          []orderLineDocument `firestore:"lines"`
	TrackingNumber string              `firestore:"trackingNumber,omitempty"`
	CancelReason   *string             `firestore:"cancelReason,omitempty"`
	Metadata       map[string]any      `firestore:"metadata,omitempty"`
	CreatedAt      time.Time           `firestore:"createdAt"`
	UpdatedAt      time.Time           `firestore:"updatedAt"`
	PaidAt         *time.Time          `firestore:"paidAt,omitempty"`
	ShippedAt      *time.Time          `firestore:"shippedAt,omitempty"`
	CompletedAt    *time.Time          `firestore:"completedAt,omitempty"`
	CancelledAt    *time.Time          `firestore:"cancelledAt,omitempty"`
}

type orderLineDocument struct {
	ProductID string `firestore:"productId"`
	SKU       string `firestore:"sku,omitempty"`
	Name      string `firestore:"name"`
	Quantity  int    `firestore:"qty"`
	UnitPrice int64  `firestore:"unitPrice"`
	Total     int64  `firestore:"total"`
}

type addressDocument struct {
	Recipient  string  `firestore:"recipient"`
	Line1      string  `firestore:"line1"`
	Line2      *string `firestore:"line2,omitempty"`
	City       string  `firestore:"city"`
	PostalCode string  `firestore:"postalCode"`
	Country    string  `firestore:"country"`
	Phone      *string `firestore:"phone,omitempty"`
}

func newOrderDocument(order domain.Order) orderDocument {
	lines := make([]orderLineDocument, len(order.Lines))
	for i, line := range order.Lines {
		lines[i] = orderLineDocument{
			ProductID: strings.TrimSpace(line.ProductID),
			SKU:       strings.TrimSpace(line.SKU),
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.Cents(),
			Total:     line.Total.Cents(),
		}
	}
	return orderDocument{
		Reference:      strings.ToUpper(strings.TrimSpace(order.Reference)),
		UserID:         strings.TrimSpace(order.Customer.UserID),
		GuestID:        strings.TrimSpace(order.Customer.GuestID),
		Email:          strings.TrimSpace(order.Customer.Email),
		Name:           strings.TrimSpace(order.Customer.Name),
		Status:         string(order.Status),
		Total:          order.Total.Cents(),
		ShipmentFee:    order.ShipmentFee.Cents(),
		ShippingTo:     newAddressDocument(order.ShippingTo),
		BillingTo:      newAddressDocument(order.BillingTo),
		UseSameAddress: order.UseSameAddress,
		Lines:          lines,
		TrackingNumber: strings.TrimSpace(order.TrackingNumber),
		CancelReason:   order.CancelReason,
		Metadata:       order.Metadata,
		CreatedAt:      order.CreatedAt.UTC(),
		UpdatedAt:      order.UpdatedAt.UTC(),
		PaidAt:         timePtrUTC(order.PaidAt),
		ShippedAt:      timePtrUTC(order.ShippedAt),
		CompletedAt:    timePtrUTC(order.CompletedAt),
		CancelledAt:    timePtrUTC(order.CancelledAt),
	}
}

func (d orderDocument) toDomain(id string) domain.Order {
	lines := make([]domain.OrderLine, len(d.Lines))
	for i, line := range d.Lines {
		lines[i] = domain.OrderLine{
			ProductID: line.ProductID,
			SKU:       line.SKU,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: domain.MoneyFromCents(line.UnitPrice),
			Total:     domain.MoneyFromCents(line.Total),
		}
	}
	return domain.Order{
		ID:        id,
		Reference: d.Reference,
		Customer: domain.Customer{
			UserID:  d.UserID,
			GuestID: d.GuestID,
			Email:   d.Email,
			Name:    d.Name,
		},
		Status:         domain.OrderStatus(d.Status),
		Total:          domain.MoneyFromCents(d.Total),
		ShipmentFee:    domain.MoneyFromCents(d.ShipmentFee),
		ShippingTo:     d.ShippingTo.toDomain(),
		BillingTo:      d.BillingTo.toDomain(),
		UseSameAddress: d.UseSameAddress,
		Lines:          lines,
		TrackingNumber: d.TrackingNumber,
		CancelReason:   d.CancelReason,
		Metadata:       d.Metadata,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
		PaidAt:         d.PaidAt,
		ShippedAt:      d.ShippedAt,
		CompletedAt:    d.CompletedAt,
		CancelledAt:    d.CancelledAt,
	}
}

func newAddressDocument(addr *domain.Address) *addressDocument {
	if addr == nil {
		return nil
	}
	return &addressDocument{
		Recipient:  strings.TrimSpace(addr.Recipient),
		Line1:      strings.TrimSpace(addr.Line1),
		Line2:      addr.Line2,
		City:       strings.TrimSpace(addr.City),
		PostalCode: strings.TrimSpace(addr.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(addr.Country)),
		Phone:      addr.Phone,
	}
}

func (d *addressDocument) toDomain() *domain.Address {
	if d == nil {
		return nil
	}
	return &domain.Address{
		Recipient:  d.Recipient,
		Line1:      d.Line1,
		Line2:      d.Line2,
		City:       d.City,
		PostalCode: d.PostalCode,
		Country:    d.Country,
		Phone:      d.Phone,
	}
}

func timePtrUTC(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

// decodeOrderCursor unpacks an order list cursor into its StartAfter values.
// The cursor carries the createdAt timestamp and document id of the last item
// on the previous page.
func decodeOrderCursor(token string) (time.Time, string, error) {
	cursor, err := pagination.DecodeToken(token)
	if err != nil {
		return time.Time{}, "", err
	}
	if len(cursor.StartAfter) != 2 {
		return time.Time{}, "", fmt.Errorf("%w: unexpected cursor shape", pagination.ErrInvalidPageToken)
	}
	rawCreatedAt, ok := cursor.StartAfter[0].(string)
	if !ok {
		return time.Time{}, "", fmt.Errorf("%w: unexpected cursor timestamp", pagination.ErrInvalidPageToken)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, rawCreatedAt)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: unexpected cursor timestamp", pagination.ErrInvalidPageToken)
	}
	id, ok := cursor.StartAfter[1].(string)
	if !ok || strings.TrimSpace(id) == "" {
		return time.Time{}, "", fmt.Errorf("%w: unexpected cursor id", pagination.ErrInvalidPageToken)
	}
	return createdAt, id, nil
}
