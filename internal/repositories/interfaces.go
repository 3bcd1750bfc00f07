package repositories

import (
	"context"
	"time"

	domain "github.com/atelier-mirabelle/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository persists order headers and provides query helpers for customers and admins.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByReference(ctx context.Context, reference string) (domain.Order, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
}

// IllustrationRepository stores commissioned illustrations underneath an order document.
type IllustrationRepository interface {
	Insert(ctx context.Context, illustration domain.Illustration) error
	Update(ctx context.Context, illustration domain.Illustration) error
	FindByID(ctx context.Context, orderID string, illustrationID string) (domain.Illustration, error)
	ListByOrder(ctx context.Context, orderID string) ([]domain.Illustration, error)
}

// OrderPaymentRepository stores payment records underneath an order document.
type OrderPaymentRepository interface {
	Insert(ctx context.Context, payment domain.OrderPayment) error
	Update(ctx context.Context, payment domain.OrderPayment) error
	// Delete removes a payment record. Only used as a compensating action when
	// payment link creation fails right after the record was inserted.
	Delete(ctx context.Context, orderID string, paymentID string) error
	FindByID(ctx context.Context, orderID string, paymentID string) (domain.OrderPayment, error)
	FindByIntentID(ctx context.Context, intentID string) (domain.OrderPayment, error)
	List(ctx context.Context, orderID string) ([]domain.OrderPayment, error)
}

// StatusChangeRepository appends immutable audit rows for lifecycle transitions.
type StatusChangeRepository interface {
	AppendOrderChange(ctx context.Context, change domain.OrderStatusChange) error
	AppendIllustrationChange(ctx context.Context, change domain.IllustrationStatusChange) error
	ListOrderChanges(ctx context.Context, orderID string) ([]domain.OrderStatusChange, error)
	ListIllustrationChanges(ctx context.Context, orderID string, illustrationID string) ([]domain.IllustrationStatusChange, error)
}

// StockRepository manages product stock levels with transactional guarantees.
type StockRepository interface {
	Get(ctx context.Context, productID string) (domain.ProductStock, error)
	// Adjust applies every delta inside one transaction, flooring each
	// resulting quantity at zero. Partial application is not possible.
	Adjust(ctx context.Context, req StockAdjustRequest) (StockAdjustResult, error)
}

// StockAdjustRequest carries the per-product deltas for one atomic adjustment.
type StockAdjustRequest struct {
	// Deltas maps product id to a signed quantity change. Negative values
	// decrement stock, positive values restore it.
	Deltas   map[string]int
	OrderRef string
	Now      time.Time
}

// StockAdjustResult reports the stock levels after the adjustment.
type StockAdjustResult struct {
	Stocks map[string]domain.ProductStock
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// OrderListFilter narrows order listings.
type OrderListFilter struct {
	UserID     string
	GuestID    string
	Status     []domain.OrderStatus
	DateRange  domain.RangeQuery[time.Time]
	Pagination domain.Pagination
}
