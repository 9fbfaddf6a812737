package repository

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/storefront/internal/cart/domain"
	"github.com/tair/storefront/internal/storefront"
)

var tracer = otel.Tracer("cart-repository")

// TracingCartRepository wraps a CartRepository with tracing
type TracingCartRepository struct {
	next domain.CartRepository
}

// NewTracingCartRepository creates a new repository with tracing
func NewTracingCartRepository(next domain.CartRepository) *TracingCartRepository {
	return &TracingCartRepository{next: next}
}

func lineAttrs(userID string, key storefront.LineKey) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("cart.user_id", userID),
		attribute.String("cart.product_id", key.ProductID),
		attribute.String("cart.size", key.Size),
		attribute.String("cart.color", key.Color),
	}
}

// finish records err on span. ErrNotFound is an expected outcome.
func finish(span trace.Span, err error) {
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (r *TracingCartRepository) UpsertLine(ctx context.Context, line *domain.CartLine, delta int) (err error) {
	ctx, span := tracer.Start(ctx, "repository.UpsertLine",
		trace.WithAttributes(append(lineAttrs(line.UserID, line.Key()), attribute.Int("cart.delta", delta))...),
	)
	defer func() { finish(span, err) }()

	return r.next.UpsertLine(ctx, line, delta)
}

func (r *TracingCartRepository) SetQuantity(ctx context.Context, userID string, key storefront.LineKey, quantity int) (err error) {
	ctx, span := tracer.Start(ctx, "repository.SetQuantity",
		trace.WithAttributes(append(lineAttrs(userID, key), attribute.Int("cart.quantity", quantity))...),
	)
	defer func() { finish(span, err) }()

	return r.next.SetQuantity(ctx, userID, key, quantity)
}

func (r *TracingCartRepository) DeleteLine(ctx context.Context, userID string, key storefront.LineKey) (err error) {
	ctx, span := tracer.Start(ctx, "repository.DeleteLine", trace.WithAttributes(lineAttrs(userID, key)...))
	defer func() { finish(span, err) }()

	return r.next.DeleteLine(ctx, userID, key)
}

func (r *TracingCartRepository) Clear(ctx context.Context, userID string) (n int64, err error) {
	ctx, span := tracer.Start(ctx, "repository.Clear",
		trace.WithAttributes(attribute.String("cart.user_id", userID)),
	)
	defer func() {
		span.SetAttributes(attribute.Int64("result.deleted", n))
		finish(span, err)
	}()

	return r.next.Clear(ctx, userID)
}

func (r *TracingCartRepository) ListLines(ctx context.Context, userID string) (lines []domain.CartLine, err error) {
	ctx, span := tracer.Start(ctx, "repository.ListLines",
		trace.WithAttributes(attribute.String("cart.user_id", userID)),
	)
	defer func() {
		span.SetAttributes(attribute.Int("result.count", len(lines)))
		finish(span, err)
	}()

	return r.next.ListLines(ctx, userID)
}

func (r *TracingCartRepository) UpdateSnapshot(ctx context.Context, line *domain.CartLine) (err error) {
	ctx, span := tracer.Start(ctx, "repository.UpdateSnapshot",
		trace.WithAttributes(lineAttrs(line.UserID, line.Key())...),
	)
	defer func() { finish(span, err) }()

	return r.next.UpdateSnapshot(ctx, line)
}

// TracingFavoriteRepository wraps a FavoriteRepository with tracing
type TracingFavoriteRepository struct {
	next domain.FavoriteRepository
}

// NewTracingFavoriteRepository creates a new repository with tracing
func NewTracingFavoriteRepository(next domain.FavoriteRepository) *TracingFavoriteRepository {
	return &TracingFavoriteRepository{next: next}
}

func (r *TracingFavoriteRepository) Add(ctx context.Context, userID, productID string) (err error) {
	ctx, span := tracer.Start(ctx, "repository.AddFavorite",
		trace.WithAttributes(
			attribute.String("favorite.user_id", userID),
			attribute.String("favorite.product_id", productID),
		),
	)
	defer func() { finish(span, err) }()

	return r.next.Add(ctx, userID, productID)
}

func (r *TracingFavoriteRepository) Delete(ctx context.Context, userID, productID string) (err error) {
	ctx, span := tracer.Start(ctx, "repository.DeleteFavorite",
		trace.WithAttributes(
			attribute.String("favorite.user_id", userID),
			attribute.String("favorite.product_id", productID),
		),
	)
	defer func() { finish(span, err) }()

	return r.next.Delete(ctx, userID, productID)
}

func (r *TracingFavoriteRepository) List(ctx context.Context, userID string) (favs []domain.Favorite, err error) {
	ctx, span := tracer.Start(ctx, "repository.ListFavorites",
		trace.WithAttributes(attribute.String("favorite.user_id", userID)),
	)
	defer func() {
		span.SetAttributes(attribute.Int("result.count", len(favs)))
		finish(span, err)
	}()

	return r.next.List(ctx, userID)
}

var (
	_ domain.CartRepository     = (*TracingCartRepository)(nil)
	_ domain.FavoriteRepository = (*TracingFavoriteRepository)(nil)
	_ domain.CartRepository     = (*GormCartRepository)(nil)
	_ domain.FavoriteRepository = (*GormFavoriteRepository)(nil)
)
