//go:build wireinject
// +build wireinject

package order

import (
	"github.com/google/wire"
	"gorm.io/gorm"

	"github.com/tair/storefront/internal/order/delivery/http"
	"github.com/tair/storefront/internal/order/domain"
	"github.com/tair/storefront/internal/order/payment"
	"github.com/tair/storefront/internal/order/repository"
	"github.com/tair/storefront/internal/order/usecase/command"
	"github.com/tair/storefront/internal/order/usecase/query"
)

// ProvideOrderRepository provides the traced order repository
func ProvideOrderRepository(db *gorm.DB) domain.OrderRepository {
	return repository.NewTracingOrderRepository(repository.NewGormOrderRepository(db))
}

// Wire sets
var RepositorySet = wire.NewSet(
	ProvideOrderRepository,
)

var CommandHandlerSet = wire.NewSet(
	command.NewCheckoutHandler,
	command.NewConfirmPaymentHandler,
	command.NewUpdateStatusHandler,
)

var QueryHandlerSet = wire.NewSet(
	query.NewGetOrderHandler,
	query.NewGetMyOrdersHandler,
	query.NewListOrdersHandler,
)

// InitializeOrderHandler initializes the order handler with all dependencies
func InitializeOrderHandler(
	db *gorm.DB,
	cart domain.CartReader,
	gateway payment.Gateway,
	publisher domain.EventPublisher,
	currency domain.Currency,
) (*http.OrderHandler, error) {
	wire.Build(
		RepositorySet,
		CommandHandlerSet,
		QueryHandlerSet,
		http.NewOrderHandler,
	)
	return nil, nil
}
