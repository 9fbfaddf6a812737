//go:build wireinject
// +build wireinject

package catalog

import (
	"github.com/google/wire"
	"gorm.io/gorm"

	"github.com/tair/storefront/internal/catalog/delivery/http"
	"github.com/tair/storefront/internal/catalog/domain"
	"github.com/tair/storefront/internal/catalog/repository"
	"github.com/tair/storefront/internal/catalog/usecase/command"
	"github.com/tair/storefront/internal/catalog/usecase/query"
)

// ProvideProductRepository provides the traced product repository
func ProvideProductRepository(db *gorm.DB) domain.ProductRepository {
	return repository.NewTracingProductRepository(repository.NewGormProductRepository(db))
}

// ProvideFabricRepository provides the traced fabric repository
func ProvideFabricRepository(db *gorm.DB) domain.FabricRepository {
	return repository.NewTracingFabricRepository(repository.NewGormFabricRepository(db))
}

// Wire sets
var RepositorySet = wire.NewSet(
	ProvideProductRepository,
	ProvideFabricRepository,
)

var CommandHandlerSet = wire.NewSet(
	command.NewCreateProductHandler,
	command.NewUpdateProductHandler,
	command.NewDeleteProductHandler,
	command.NewImportProductsHandler,
	command.NewSaveFabricHandler,
	command.NewDeleteFabricHandler,
)

var QueryHandlerSet = wire.NewSet(
	query.NewGetProductHandler,
	query.NewListProductsHandler,
	query.NewGetStatsHandler,
	query.NewListFabricsHandler,
	query.NewGetFabricHandler,
)

// InitializeProductHandler initializes the catalog handler with all dependencies
func InitializeProductHandler(db *gorm.DB) (*http.ProductHandler, error) {
	wire.Build(
		RepositorySet,
		CommandHandlerSet,
		QueryHandlerSet,
		http.NewProductHandler,
	)
	return nil, nil
}
