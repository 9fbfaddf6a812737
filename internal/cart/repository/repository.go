package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/storefront/internal/cart/domain"
	"github.com/tair/storefront/internal/storefront"
)

// GormCartRepository implements the cart and favorites repositories using GORM
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GORM cart repository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// AutoMigrate creates the cart_lines and favorites tables
func (r *GormCartRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.CartLine{}, &domain.Favorite{})
}

func (r *GormCartRepository) keyed(ctx context.Context, userID string, key storefront.LineKey) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND size = ? AND color = ?", userID, key.ProductID, key.Size, key.Color)
}

// UpsertLine relies on the unique key index so concurrent adds of the same
// line sum instead of racing.
func (r *GormCartRepository) UpsertLine(ctx context.Context, line *domain.CartLine, delta int) error {
	line.Quantity = delta
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}, {Name: "size"}, {Name: "color"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":         gorm.Expr("cart_lines.quantity + EXCLUDED.quantity"),
			"product_name":     gorm.Expr("EXCLUDED.product_name"),
			"unit_price_cents": gorm.Expr("EXCLUDED.unit_price_cents"),
			"images":           gorm.Expr("EXCLUDED.images"),
			"updated_at":       gorm.Expr("EXCLUDED.updated_at"),
		}),
	}).Create(line).Error
	if err != nil {
		return fmt.Errorf("failed to upsert cart line: %w", err)
	}
	return nil
}

// SetQuantity overwrites the quantity of an existing line
func (r *GormCartRepository) SetQuantity(ctx context.Context, userID string, key storefront.LineKey, quantity int) error {
	result := r.keyed(ctx, userID, key).Model(&domain.CartLine{}).Update("quantity", quantity)
	if result.Error != nil {
		return fmt.Errorf("failed to set quantity: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteLine removes a line; a missing line is reported as ErrNotFound
func (r *GormCartRepository) DeleteLine(ctx context.Context, userID string, key storefront.LineKey) error {
	result := r.keyed(ctx, userID, key).Delete(&domain.CartLine{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete cart line: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Clear removes every line of the user's cart
func (r *GormCartRepository) Clear(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.CartLine{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ListLines returns the user's lines in insertion order
func (r *GormCartRepository) ListLines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	var lines []domain.CartLine
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&lines).Error; err != nil {
		return nil, fmt.Errorf("failed to list cart lines: %w", err)
	}
	return lines, nil
}

// UpdateSnapshot stores refreshed display fields of a line
func (r *GormCartRepository) UpdateSnapshot(ctx context.Context, line *domain.CartLine) error {
	err := r.db.WithContext(ctx).Model(line).
		Select("ProductName", "UnitPriceCents", "Images").
		Updates(line).Error
	if err != nil {
		return fmt.Errorf("failed to update line snapshot: %w", err)
	}
	return nil
}

// GormFavoriteRepository implements FavoriteRepository using GORM
type GormFavoriteRepository struct {
	db *gorm.DB
}

// NewGormFavoriteRepository creates a new GORM favorites repository
func NewGormFavoriteRepository(db *gorm.DB) *GormFavoriteRepository {
	return &GormFavoriteRepository{db: db}
}

// Add inserts the favorite unless it already exists
func (r *GormFavoriteRepository) Add(ctx context.Context, userID, productID string) error {
	fav := &domain.Favorite{UserID: userID, ProductID: productID}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(fav).Error
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

// Delete removes a favorite; a missing one is reported as ErrNotFound
func (r *GormFavoriteRepository) Delete(ctx context.Context, userID, productID string) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&domain.Favorite{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete favorite: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns the user's favorites, oldest first
func (r *GormFavoriteRepository) List(ctx context.Context, userID string) ([]domain.Favorite, error) {
	var favs []domain.Favorite
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&favs).Error; err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return favs, nil
}
