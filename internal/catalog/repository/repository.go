package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/storefront/internal/catalog/domain"
)

type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Fabric{}, &domain.Product{})
}

func (r *GormProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *GormProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &product, nil
}

func (r *GormProductRepository) filtered(ctx context.Context, filter domain.ProductFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&domain.Product{})
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if !filter.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	return q
}

// List returns one page of products, newest first, and the total match count.
func (r *GormProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	var products []domain.Product
	err := r.filtered(ctx, filter).
		Order("created_at DESC").Order("id ASC").
		Limit(filter.Limit).Offset(filter.Offset).
		Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

func (r *GormProductRepository) Update(ctx context.Context, product *domain.Product) error {
	result := r.db.WithContext(ctx).Model(product).
		Select("Name", "PriceCents", "OriginalPriceCents", "Images", "Category", "Sizes", "Colors", "Description", "FabricID", "IsActive").
		Updates(product)
	if result.Error != nil {
		return fmt.Errorf("failed to update product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Save upserts by id and revives a soft-deleted row with the same id.
func (r *GormProductRepository) Save(ctx context.Context, product *domain.Product) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "price_cents", "original_price_cents", "images", "category",
			"sizes", "colors", "description", "is_active", "updated_at", "deleted_at",
		}),
	}).Create(product).Error
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

func (r *GormProductRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Product{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CategoryStats aggregates active products per category in one query.
func (r *GormProductRepository) CategoryStats(ctx context.Context) ([]domain.CategoryStats, error) {
	var stats []domain.CategoryStats
	err := r.db.WithContext(ctx).Model(&domain.Product{}).
		Select(`category,
			COUNT(*) AS product_count,
			COALESCE(MIN(price_cents), 0) AS min_price_cents,
			COALESCE(MAX(price_cents), 0) AS max_price_cents,
			COUNT(*) FILTER (WHERE original_price_cents > price_cents) AS on_sale_count`).
		Where("is_active = ?", true).
		Group("category").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate products: %w", err)
	}
	return stats, nil
}

// GormFabricRepository implements FabricRepository using GORM
type GormFabricRepository struct {
	db *gorm.DB
}

func NewGormFabricRepository(db *gorm.DB) *GormFabricRepository {
	return &GormFabricRepository{db: db}
}

func (r *GormFabricRepository) Create(ctx context.Context, fabric *domain.Fabric) error {
	if err := r.db.WithContext(ctx).Create(fabric).Error; err != nil {
		return fmt.Errorf("failed to create fabric: %w", err)
	}
	return nil
}

func (r *GormFabricRepository) FindByID(ctx context.Context, id uint) (*domain.Fabric, error) {
	var fabric domain.Fabric
	err := r.db.WithContext(ctx).First(&fabric, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find fabric: %w", err)
	}
	return &fabric, nil
}

func (r *GormFabricRepository) FindByName(ctx context.Context, name string) (*domain.Fabric, error) {
	var fabric domain.Fabric
	err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&fabric).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find fabric: %w", err)
	}
	return &fabric, nil
}

func (r *GormFabricRepository) List(ctx context.Context) ([]domain.Fabric, error) {
	var fabrics []domain.Fabric
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&fabrics).Error; err != nil {
		return nil, fmt.Errorf("failed to list fabrics: %w", err)
	}
	return fabrics, nil
}

func (r *GormFabricRepository) Update(ctx context.Context, fabric *domain.Fabric) error {
	result := r.db.WithContext(ctx).Model(fabric).
		Select("Name", "Composition", "Description").
		Updates(fabric)
	if result.Error != nil {
		return fmt.Errorf("failed to update fabric: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the fabric and detaches the products that reference it.
func (r *GormFabricRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Product{}).Where("fabric_id = ?", id).Update("fabric_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach products: %w", err)
		}
		result := tx.Delete(&domain.Fabric{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete fabric: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}
