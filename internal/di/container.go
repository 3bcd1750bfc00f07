package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/atelier-mirabelle/api/internal/notifications"
	"github.com/atelier-mirabelle/api/internal/payments"
	"github.com/atelier-mirabelle/api/internal/platform/config"
	"github.com/atelier-mirabelle/api/internal/repositories"
	"github.com/atelier-mirabelle/api/internal/services"
)

// Registry groups the repository set behind the transactional boundary the
// services run lifecycle transitions inside. The Firestore registry satisfies
// it in production; tests can supply in-memory fakes.
type Registry interface {
	repositories.UnitOfWork
	Orders() repositories.OrderRepository
	Illustrations() repositories.IllustrationRepository
	Payments() repositories.OrderPaymentRepository
	StatusChanges() repositories.StatusChangeRepository
	Stocks() repositories.StockRepository
	Close(ctx context.Context) error
}

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Orders        services.OrderService
	Illustrations services.IllustrationService
	Refunds       services.RefundService
	Stock         services.StockService
	System        services.SystemService
}

// ContainerDeps carries the runtime collaborators the container cannot build
// itself: external clients, feature-gated adapters, and build metadata.
type ContainerDeps struct {
	Config    config.Config
	Registry  Registry
	Provider  payments.Provider
	Health    repositories.HealthRepository
	Notifier  notifications.Notifier
	Publisher services.LifecycleEventPublisher
	Build     services.BuildInfo
	Clock     func() time.Time
	Logger    *zap.Logger
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides real
// implementations, while tests can supply in-memory registries.
func NewContainer(deps ContainerDeps) (*Container, error) {
	if deps.Registry == nil {
		return nil, errors.New("repositories registry is required")
	}
	if deps.Provider == nil {
		return nil, errors.New("payment provider is required")
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	svc, err := buildServices(deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       deps.Config,
		Repositories: deps.Registry,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(deps ContainerDeps) (Services, error) {
	var svc Services
	reg := deps.Registry

	stockSvc, err := services.NewStockService(services.StockServiceDeps{
		Stocks: reg.Stocks(),
		Clock:  deps.Clock,
		Logger: eventLogger(deps.Logger.Named("stock")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build stock service: %w", err)
	}
	svc.Stock = stockSvc

	refundSvc, err := services.NewRefundService(services.RefundServiceDeps{
		Orders:     reg.Orders(),
		Payments:   reg.Payments(),
		UnitOfWork: reg,
		Provider:   deps.Provider,
		Clock:      deps.Clock,
		Logger:     eventLogger(deps.Logger.Named("refunds")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build refund service: %w", err)
	}
	svc.Refunds = refundSvc

	checkout := services.CheckoutConfig{
		SuccessURL: deps.Config.PSP.CheckoutSuccessURL,
		CancelURL:  deps.Config.PSP.CheckoutCancelURL,
		Locale:     deps.Config.PSP.CheckoutLocale,
	}

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:        reg.Orders(),
		Illustrations: reg.Illustrations(),
		Payments:      reg.Payments(),
		StatusChanges: reg.StatusChanges(),
		UnitOfWork:    reg,
		Provider:      deps.Provider,
		Refunds:       refundSvc,
		Stock:         stockSvc,
		Notifier:      deps.Notifier,
		Publisher:     deps.Publisher,
		Checkout:      checkout,
		Clock:         deps.Clock,
		Logger:        eventLogger(deps.Logger.Named("orders")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	illustrationSvc, err := services.NewIllustrationService(services.IllustrationServiceDeps{
		Orders:        reg.Orders(),
		Illustrations: reg.Illustrations(),
		Payments:      reg.Payments(),
		StatusChanges: reg.StatusChanges(),
		UnitOfWork:    reg,
		Provider:      deps.Provider,
		OrderService:  orderSvc,
		Notifier:      deps.Notifier,
		Publisher:     deps.Publisher,
		Checkout:      checkout,
		Clock:         deps.Clock,
		Logger:        eventLogger(deps.Logger.Named("illustrations")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build illustration service: %w", err)
	}
	svc.Illustrations = illustrationSvc

	if deps.Health != nil {
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: deps.Health,
			Clock:            deps.Clock,
			Build:            deps.Build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}

func eventLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Info(event, zFields...)
	}
}
