package repository

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/storefront/internal/catalog/domain"
)

var tracer = otel.Tracer("catalog-repository")

// TracingProductRepository wraps a ProductRepository with tracing
type TracingProductRepository struct {
	next domain.ProductRepository
}

// NewTracingProductRepository creates a new repository with tracing
func NewTracingProductRepository(next domain.ProductRepository) *TracingProductRepository {
	return &TracingProductRepository{next: next}
}

func finish(span trace.Span, err error) {
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func productAttrs(p *domain.Product) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("product.id", p.ID),
		attribute.String("product.name", p.Name),
		attribute.String("product.category", string(p.Category)),
		attribute.Int64("product.price_cents", p.PriceCents),
		attribute.Bool("product.is_active", p.IsActive),
	}
}

func (r *TracingProductRepository) Create(ctx context.Context, product *domain.Product) (err error) {
	ctx, span := tracer.Start(ctx, "repository.Create", trace.WithAttributes(productAttrs(product)...))
	defer func() { finish(span, err) }()

	return r.next.Create(ctx, product)
}

func (r *TracingProductRepository) FindByID(ctx context.Context, id string) (p *domain.Product, err error) {
	ctx, span := tracer.Start(ctx, "repository.FindByID",
		trace.WithAttributes(attribute.String("product.id", id)),
	)
	defer func() {
		if p != nil {
			span.SetAttributes(
				attribute.String("product.name", p.Name),
				attribute.Bool("product.is_active", p.IsActive),
			)
		}
		finish(span, err)
	}()

	return r.next.FindByID(ctx, id)
}

func (r *TracingProductRepository) List(ctx context.Context, filter domain.ProductFilter) (products []domain.Product, total int64, err error) {
	ctx, span := tracer.Start(ctx, "repository.List",
		trace.WithAttributes(
			attribute.String("filter.category", string(filter.Category)),
			attribute.Bool("filter.include_inactive", filter.IncludeInactive),
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer func() {
		span.SetAttributes(
			attribute.Int("result.count", len(products)),
			attribute.Int64("result.total", total),
		)
		finish(span, err)
	}()

	return r.next.List(ctx, filter)
}

func (r *TracingProductRepository) Update(ctx context.Context, product *domain.Product) (err error) {
	ctx, span := tracer.Start(ctx, "repository.Update", trace.WithAttributes(productAttrs(product)...))
	defer func() { finish(span, err) }()

	return r.next.Update(ctx, product)
}

func (r *TracingProductRepository) Save(ctx context.Context, product *domain.Product) (err error) {
	ctx, span := tracer.Start(ctx, "repository.Save", trace.WithAttributes(productAttrs(product)...))
	defer func() { finish(span, err) }()

	return r.next.Save(ctx, product)
}

func (r *TracingProductRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "repository.Delete",
		trace.WithAttributes(attribute.String("product.id", id)),
	)
	defer func() { finish(span, err) }()

	return r.next.Delete(ctx, id)
}

func (r *TracingProductRepository) CategoryStats(ctx context.Context) (stats []domain.CategoryStats, err error) {
	ctx, span := tracer.Start(ctx, "repository.CategoryStats")
	defer func() {
		span.SetAttributes(attribute.Int("result.categories", len(stats)))
		finish(span, err)
	}()

	return r.next.CategoryStats(ctx)
}

// TracingFabricRepository wraps a FabricRepository with tracing
type TracingFabricRepository struct {
	next domain.FabricRepository
}

func NewTracingFabricRepository(next domain.FabricRepository) *TracingFabricRepository {
	return &TracingFabricRepository{next: next}
}

func (r *TracingFabricRepository) Create(ctx context.Context, fabric *domain.Fabric) (err error) {
	ctx, span := tracer.Start(ctx, "repository.CreateFabric",
		trace.WithAttributes(attribute.String("fabric.name", fabric.Name)),
	)
	defer func() {
		span.SetAttributes(attribute.Int("fabric.id", int(fabric.ID)))
		finish(span, err)
	}()

	return r.next.Create(ctx, fabric)
}

func (r *TracingFabricRepository) FindByID(ctx context.Context, id uint) (f *domain.Fabric, err error) {
	ctx, span := tracer.Start(ctx, "repository.FindFabricByID",
		trace.WithAttributes(attribute.Int("fabric.id", int(id))),
	)
	defer func() { finish(span, err) }()

	return r.next.FindByID(ctx, id)
}

func (r *TracingFabricRepository) FindByName(ctx context.Context, name string) (f *domain.Fabric, err error) {
	ctx, span := tracer.Start(ctx, "repository.FindFabricByName",
		trace.WithAttributes(attribute.String("fabric.name", name)),
	)
	defer func() { finish(span, err) }()

	return r.next.FindByName(ctx, name)
}

func (r *TracingFabricRepository) List(ctx context.Context) (fabrics []domain.Fabric, err error) {
	ctx, span := tracer.Start(ctx, "repository.ListFabrics")
	defer func() {
		span.SetAttributes(attribute.Int("result.count", len(fabrics)))
		finish(span, err)
	}()

	return r.next.List(ctx)
}

func (r *TracingFabricRepository) Update(ctx context.Context, fabric *domain.Fabric) (err error) {
	ctx, span := tracer.Start(ctx, "repository.UpdateFabric",
		trace.WithAttributes(
			attribute.Int("fabric.id", int(fabric.ID)),
			attribute.String("fabric.name", fabric.Name),
		),
	)
	defer func() { finish(span, err) }()

	return r.next.Update(ctx, fabric)
}

func (r *TracingFabricRepository) Delete(ctx context.Context, id uint) (err error) {
	ctx, span := tracer.Start(ctx, "repository.DeleteFabric",
		trace.WithAttributes(attribute.Int("fabric.id", int(id))),
	)
	defer func() { finish(span, err) }()

	return r.next.Delete(ctx, id)
}

var (
	_ domain.ProductRepository = (*TracingProductRepository)(nil)
	_ domain.FabricRepository  = (*TracingFabricRepository)(nil)
	_ domain.ProductRepository = (*GormProductRepository)(nil)
	_ domain.FabricRepository  = (*GormFabricRepository)(nil)
)
