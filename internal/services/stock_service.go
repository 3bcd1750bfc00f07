package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/atelier-mirabelle/api/internal/domain"
	"github.com/atelier-mirabelle/api/internal/repositories"
)

var (
	// ErrStockInvalidInput indicates the stock command failed validation.
	ErrStockInvalidInput = errors.New("stock service: invalid input")
	// ErrStockNotFound indicates the product has no stock record.
	ErrStockNotFound = errors.New("stock service: stock not found")
)

// StockServiceDeps bundles collaborators required to construct a stock service.
type StockServiceDeps struct {
	Stocks repositories.StockRepository
	Clock  func() time.Time
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type stockService struct {
	stocks repositories.StockRepository
	clock  func() time.Time
	logger func(ctx context.Context, event string, fields map[string]any)
}

var _ StockService = (*stockService)(nil)

// NewStockService assembles the product stock service.
func NewStockService(deps StockServiceDeps) (StockService, error) {
	if deps.Stocks == nil {
		return nil, errors.New("stock service: stock repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &stockService{
		stocks: deps.Stocks,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *stockService) GetStock(ctx context.Context, productID string) (domain.ProductStock, error) {
	if ctx == nil {
		return domain.ProductStock{}, errors.New("stock service: context is required")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.ProductStock{}, fmt.Errorf("%w: product id is required", ErrStockInvalidInput)
	}
	stock, err := s.stocks.Get(ctx, productID)
	if err != nil {
		return domain.ProductStock{}, mapStockRepositoryError(err)
	}
	return stock, nil
}

// DecrementForOrder removes the ordered quantities from stock in one atomic
// adjustment. Resulting quantities floor at zero rather than going negative.
func (s *stockService) DecrementForOrder(ctx context.Context, order domain.Order) error {
	return s.adjustForOrder(ctx, order, -1, "stock.decremented")
}

// RestoreForOrder returns the ordered quantities to stock after a paid order
// is cancelled.
func (s *stockService) RestoreForOrder(ctx context.Context, order domain.Order) error {
	return s.adjustForOrder(ctx, order, 1, "stock.restored")
}

func (s *stockService) adjustForOrder(ctx context.Context, order domain.Order, sign int, event string) error {
	if ctx == nil {
		return errors.New("stock service: context is required")
	}
	if len(order.Lines) == 0 {
		return nil
	}

	deltas := make(map[string]int, len(order.Lines))
	for _, line := range order.Lines {
		if line.ProductID == "" || line.Quantity <= 0 {
			return fmt.Errorf("%w: order %s has an invalid line", ErrStockInvalidInput, order.ID)
		}
		deltas[line.ProductID] += sign * line.Quantity
	}

	result, err := s.stocks.Adjust(ctx, repositories.StockAdjustRequest{
		Deltas:   deltas,
		OrderRef: order.Reference,
		Now:      s.clock(),
	})
	if err != nil {
		return mapStockRepositoryError(err)
	}

	s.logger(ctx, event, map[string]any{
		"order_id": order.ID,
		"products": len(result.Stocks),
	})
	return nil
}

func mapStockRepositoryError(err error) error {
	var stockErr *repositories.StockError
	if errors.As(err, &stockErr) {
		switch stockErr.Code {
		case repositories.StockErrorNotFound:
			return fmt.Errorf("%w: %v", ErrStockNotFound, err)
		case repositories.StockErrorInvalidInput:
			return fmt.Errorf("%w: %v", ErrStockInvalidInput, err)
		}
	}
	return err
}
