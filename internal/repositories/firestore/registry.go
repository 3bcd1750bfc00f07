package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/atelier-mirabelle/api/internal/platform/firestore"
	"github.com/atelier-mirabelle/api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind one provider and
// implements the UnitOfWork boundary services run transitions inside.
type Registry struct {
	provider      *pfirestore.Provider
	orders        *OrderRepository
	illustrations *IllustrationRepository
	payments      *OrderPaymentRepository
	statusChanges *StatusChangeRepository
	stocks        *StockRepository
}

// NewRegistry constructs the repository set over a shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	illustrations, err := NewIllustrationRepository(provider)
	if err != nil {
		return nil, err
	}
	payments, err := NewOrderPaymentRepository(provider)
	if err != nil {
		return nil, err
	}
	statusChanges, err := NewStatusChangeRepository(provider)
	if err != nil {
		return nil, err
	}
	stocks, err := NewStockRepository(provider)
	if err != nil {
		return nil, err
	}
	return &Registry{
		provider:      provider,
		orders:        orders,
		illustrations: illustrations,
		payments:      payments,
		statusChanges: statusChanges,
		stocks:        stocks,
	}, nil
}

// Orders returns the order repository.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

// Illustrations returns the illustration repository.
func (r *Registry) Illustrations() repositories.IllustrationRepository { return r.illustrations }

// Payments returns the order payment repository.
func (r *Registry) Payments() repositories.OrderPaymentRepository { return r.payments }

// StatusChanges returns the audit row repository.
func (r *Registry) StatusChanges() repositories.StatusChangeRepository { return r.statusChanges }

// Stocks returns the product stock repository.
func (r *Registry) Stocks() repositories.StockRepository { return r.stocks }

// RunInTx executes fn inside one Firestore transaction. Repository writes made
// through the registry's repositories within fn join the same transaction.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.provider == nil {
		return errors.New("registry not initialised")
	}
	if _, ok := txFrom(ctx); ok {
		// Already inside a transaction; Firestore does not support nesting.
		return fn(ctx)
	}
	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(withTx(ctx, tx))
	})
}

// Close releases the underlying client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

type txContextKey struct{}

func withTx(ctx context.Context, tx *firestore.Transaction) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

func txFrom(ctx context.Context) (*firestore.Transaction, bool) {
	tx, ok := ctx.Value(txContextKey{}).(*firestore.Transaction)
	return tx, ok && tx != nil
}

// txSet writes through the ambient transaction when one is present.
func txSet(ctx context.Context, ref *firestore.DocumentRef, data any) error {
	if tx, ok := txFrom(ctx); ok {
		return tx.Set(ref, data)
	}
	_, err := ref.Set(ctx, data)
	return err
}

// txCreate creates through the ambient transaction when one is present.
func txCreate(ctx context.Context, ref *firestore.DocumentRef, data any) error {
	if tx, ok := txFrom(ctx); ok {
		return tx.Create(ref, data)
	}
	_, err := ref.Create(ctx, data)
	return err
}

// txDelete deletes through the ambient transaction when one is present.
func txDelete(ctx context.Context, ref *firestore.DocumentRef) error {
	if tx, ok := txFrom(ctx); ok {
		return tx.Delete(ref)
	}
	_, err := ref.Delete(ctx)
	return err
}

// txGet reads through the ambient transaction when one is present.
func txGet(ctx context.Context, ref *firestore.DocumentRef) (*firestore.DocumentSnapshot, error) {
	if tx, ok := txFrom(ctx); ok {
		return tx.Get(ref)
	}
	return ref.Get(ctx)
}
