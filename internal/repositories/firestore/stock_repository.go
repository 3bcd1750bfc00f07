package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/atelier-mirabelle/api/internal/domain"
	pfirestore "github.com/atelier-mirabelle/api/internal/platform/firestore"
	"github.com/atelier-mirabelle/api/internal/repositories"
)

const stocksCollection = "stocks"

// StockRepository manages per-product stock counters. Point reads go through
// the typed base repository; Adjust keeps direct transaction access because
// every delta must commit atomically.
type StockRepository struct {
	provider *pfirestore.Provider
	docs     *pfirestore.BaseRepository[productStockDocument]
}

func NewStockRepository(provider *pfirestore.Provider) (*StockRepository, error) {
	if provider == nil {
		return nil, errors.New("stock repository requires firestore provider")
	}
	return &StockRepository{
		provider: provider,
		docs:     pfirestore.NewBaseRepository[productStockDocument](provider, stocksCollection, nil, nil),
	}, nil
}

func (r *StockRepository) Get(ctx context.Context, productID string) (domain.ProductStock, error) {
	if r == nil || r.provider == nil {
		return domain.ProductStock{}, errors.New("stock repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.ProductStock{}, repositories.NewStockError(repositories.StockErrorInvalidInput, "stock get: product id is required", nil)
	}
	doc, err := r.docs.Get(ctx, productID)
	if err != nil {
		var repoErr *pfirestore.Error
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return domain.ProductStock{}, repositories.NewStockError(repositories.StockErrorNotFound, fmt.Sprintf("stock %s not found", productID), err)
		}
		return domain.ProductStock{}, wrapStockError("stocks.get", err)
	}
	return doc.Data.toDomain(productID), nil
}

// Adjust applies every delta inside one transaction. Decrements floor the
// resulting quantity at zero instead of failing; restores add back the full
// quantity. Either all products are adjusted or none.
func (r *StockRepository) Adjust(ctx context.Context, req repositories.StockAdjustRequest) (repositories.StockAdjustResult, error) {
	if r == nil || r.provider == nil {
		return repositories.StockAdjustResult{}, errors.New("stock repository not initialised")
	}
	if len(req.Deltas) == 0 {
		return repositories.StockAdjustResult{}, repositories.NewStockError(repositories.StockErrorInvalidInput, "stock adjust: at least one delta is required", nil)
	}

	// Deterministic ordering keeps transaction read sets stable across retries.
	productIDs := make([]string, 0, len(req.Deltas))
	for productID := range req.Deltas {
		productID = strings.TrimSpace(productID)
		if productID == "" {
			return repositories.StockAdjustResult{}, repositories.NewStockError(repositories.StockErrorInvalidInput, "stock adjust: product id is required", nil)
		}
		productIDs = append(productIDs, productID)
	}
	sort.Strings(productIDs)

	now := req.Now.UTC()
	var result repositories.StockAdjustResult
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		client, err := r.provider.Client(ctx)
		if err != nil {
			return err
		}
		stocks := make(map[string]domain.ProductStock, len(productIDs))
		for _, productID := range productIDs {
			ref := client.Collection(stocksCollection).Doc(productID)
			var doc productStockDocument
			snap, err := tx.Get(ref)
			if err != nil {
				if status.Code(err) != codes.NotFound {
					return err
				}
				// Restores may target products whose stock record was never
				// seeded. Decrements on a missing record are a caller bug.
				if req.Deltas[productID] < 0 {
					return repositories.NewStockError(repositories.StockErrorNotFound, fmt.Sprintf("stock %s not found", productID), err)
				}
				doc = productStockDocument{}
			} else if err := snap.DataTo(&doc); err != nil {
				return fmt.Errorf("decode stock %s: %w", productID, err)
			}

			doc.Quantity += req.Deltas[productID]
			if doc.Quantity < 0 {
				doc.Quantity = 0
			}
			doc.UpdatedAt = now
			if err := tx.Set(ref, doc); err != nil {
				return err
			}
			stocks[productID] = doc.toDomain(productID)
		}
		result = repositories.StockAdjustResult{Stocks: stocks}
		return nil
	})
	if err != nil {
		return repositories.StockAdjustResult{}, wrapStockError("stocks.adjust", err)
	}
	return result, nil
}

type productStockDocument struct {
	SKU       string    `firestore:"sku,omitempty"`
	Quantity  int       `firestore:"qty"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func (d productStockDocument) toDomain(productID string) domain.ProductStock {
	return domain.ProductStock{
		ProductID: productID,
		SKU:       strings.TrimSpace(d.SKU),
		Quantity:  d.Quantity,
		UpdatedAt: d.UpdatedAt,
	}
}

func wrapStockError(op string, err error) error {
	if err == nil {
		return nil
	}
	var stockErr *repositories.StockError
	if errors.As(err, &stockErr) {
		if stockErr.Op == "" {
			stockErr.Op = op
		}
		return stockErr
	}
	return pfirestore.WrapError(op, err)
}
