package repository

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/storefront/internal/order/domain"
)

var tracer = otel.Tracer("order-repository")

// TracingOrderRepository wraps an OrderRepository with tracing
type TracingOrderRepository struct {
	next domain.OrderRepository
}

func NewTracingOrderRepository(next domain.OrderRepository) *TracingOrderRepository {
	return &TracingOrderRepository{next: next}
}

func finish(span trace.Span, err error) {
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (r *TracingOrderRepository) Create(ctx context.Context, order *domain.Order) (err error) {
	ctx, span := tracer.Start(ctx, "repository.Create",
		trace.WithAttributes(
			attribute.String("order.number", order.OrderNumber),
			attribute.String("order.user_id", order.UserID),
			attribute.Int64("order.total_cents", order.TotalCents),
			attribute.Int("order.items", len(order.Items)),
		),
	)
	defer func() {
		span.SetAttributes(attribute.Int("order.id", int(order.ID)))
		finish(span, err)
	}()

	return r.next.Create(ctx, order)
}

func (r *TracingOrderRepository) FindByNumber(ctx context.Context, number string) (o *domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "repository.FindByNumber",
		trace.WithAttributes(attribute.String("order.number", number)),
	)
	defer func() {
		if o != nil {
			span.SetAttributes(attribute.String("order.status", string(o.Status)))
		}
		finish(span, err)
	}()

	return r.next.FindByNumber(ctx, number)
}

func (r *TracingOrderRepository) ListByUser(ctx context.Context, userID string, limit, offset int) (orders []domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "repository.ListByUser",
		trace.WithAttributes(
			attribute.String("order.user_id", userID),
			attribute.Int("limit", limit),
			attribute.Int("offset", offset),
		),
	)
	defer func() {
		span.SetAttributes(attribute.Int("result.count", len(orders)))
		finish(span, err)
	}()

	return r.next.ListByUser(ctx, userID, limit, offset)
}

func (r *TracingOrderRepository) List(ctx context.Context, filter domain.OrderFilter) (orders []domain.Order, total int64, err error) {
	ctx, span := tracer.Start(ctx, "repository.List",
		trace.WithAttributes(
			attribute.String("filter.status", string(filter.Status)),
			attribute.Int("limit", filter.Limit),
			attribute.Int("offset", filter.Offset),
		),
	)
	defer func() {
		span.SetAttributes(attribute.Int("result.count", len(orders)), attribute.Int64("result.total", total))
		finish(span, err)
	}()

	return r.next.List(ctx, filter)
}

func (r *TracingOrderRepository) UpdatePayment(ctx context.Context, number, intentID, clientToken string, status domain.Status) (err error) {
	ctx, span := tracer.Start(ctx, "repository.UpdatePayment",
		trace.WithAttributes(
			attribute.String("order.number", number),
			attribute.String("payment.intent_id", intentID),
			attribute.String("order.status", string(status)),
		),
	)
	defer func() { finish(span, err) }()

	return r.next.UpdatePayment(ctx, number, intentID, clientToken, status)
}

func (r *TracingOrderRepository) UpdateStatus(ctx context.Context, number string, status domain.Status) (err error) {
	ctx, span := tracer.Start(ctx, "repository.UpdateStatus",
		trace.WithAttributes(
			attribute.String("order.number", number),
			attribute.String("order.status", string(status)),
		),
	)
	defer func() { finish(span, err) }()

	return r.next.UpdateStatus(ctx, number, status)
}

var (
	_ domain.OrderRepository = (*TracingOrderRepository)(nil)
	_ domain.OrderRepository = (*GormOrderRepository)(nil)
	_ domain.OrderRepository = (*MemoryRepository)(nil)
)
