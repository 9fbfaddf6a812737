//go:build wireinject
// +build wireinject

package cart

import (
	"github.com/google/wire"
	"gorm.io/gorm"

	"github.com/tair/storefront/internal/cart/client"
	"github.com/tair/storefront/internal/cart/delivery/http"
	"github.com/tair/storefront/internal/cart/domain"
	"github.com/tair/storefront/internal/cart/events"
	"github.com/tair/storefront/internal/cart/repository"
	"github.com/tair/storefront/internal/cart/usecase/command"
	"github.com/tair/storefront/internal/cart/usecase/query"
)

// CatalogURL is the catalog service base URL
type CatalogURL string

// ProvideCartRepository provides the traced cart repository
func ProvideCartRepository(db *gorm.DB) domain.CartRepository {
	return repository.NewTracingCartRepository(repository.NewGormCartRepository(db))
}

// ProvideFavoriteRepository provides the traced favorites repository
func ProvideFavoriteRepository(db *gorm.DB) domain.FavoriteRepository {
	return repository.NewTracingFavoriteRepository(repository.NewGormFavoriteRepository(db))
}

// ProvideProductReader provides the catalog client
func ProvideProductReader(url CatalogURL) domain.ProductReader {
	return client.NewCatalogClient(string(url))
}

// Wire sets
var RepositorySet = wire.NewSet(
	ProvideCartRepository,
	ProvideFavoriteRepository,
	ProvideProductReader,
)

var UsecaseSet = wire.NewSet(
	command.NewAddLineHandler,
	command.NewSetQuantityHandler,
	command.NewRemoveLineHandler,
	command.NewClearCartHandler,
	command.NewAddFavoriteHandler,
	command.NewRemoveFavoriteHandler,
	query.NewGetCartHandler,
	query.NewListFavoritesHandler,
)

// Service is everything cmd/cart serves
type Service struct {
	HTTP        *http.CartHandler
	OrderPlaced *events.OrderPlacedHandler
}

// InitializeService initializes the cart service with all dependencies
func InitializeService(db *gorm.DB, catalogURL CatalogURL) (*Service, error) {
	wire.Build(
		RepositorySet,
		UsecaseSet,
		http.NewCartHandler,
		events.NewOrderPlacedHandler,
		wire.Struct(new(Service), "*"),
	)
	return nil, nil
}
