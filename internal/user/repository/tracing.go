package repository

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/storefront/internal/user/domain"
)

var tracer = otel.Tracer("user-repository")

// TracingUserRepository wraps a UserRepository with tracing
type TracingUserRepository struct {
	next domain.UserRepository
}

// NewTracingUserRepository creates a new repository with tracing
func NewTracingUserRepository(next domain.UserRepository) *TracingUserRepository {
	return &TracingUserRepository{next: next}
}

func finish(span trace.Span, err error) {
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (r *TracingUserRepository) Create(ctx context.Context, user *domain.User) (err error) {
	ctx, span := tracer.Start(ctx, "repository.Create",
		trace.WithAttributes(
			attribute.String("user.username", user.Username),
			attribute.String("user.role", user.Role),
		),
	)
	defer func() {
		span.SetAttributes(attribute.Int("user.id", int(user.ID)))
		finish(span, err)
	}()

	return r.next.Create(ctx, user)
}

func (r *TracingUserRepository) FindByID(ctx context.Context, id uint) (u *domain.User, err error) {
	ctx, span := tracer.Start(ctx, "repository.FindByID",
		trace.WithAttributes(attribute.Int("user.id", int(id))),
	)
	defer func() { finish(span, err) }()

	return r.next.FindByID(ctx, id)
}

func (r *TracingUserRepository) FindByUsername(ctx context.Context, username string) (u *domain.User, err error) {
	ctx, span := tracer.Start(ctx, "repository.FindByUsername",
		trace.WithAttributes(attribute.String("user.username", username)),
	)
	defer func() { finish(span, err) }()

	return r.next.FindByUsername(ctx, username)
}

func (r *TracingUserRepository) FindByEmail(ctx context.Context, email string) (u *domain.User, err error) {
	ctx, span := tracer.Start(ctx, "repository.FindByEmail")
	defer func() { finish(span, err) }()

	return r.next.FindByEmail(ctx, email)
}

func (r *TracingUserRepository) List(ctx context.Context, role string, limit, offset int) (users []domain.User, total int64, err error) {
	ctx, span := tracer.Start(ctx, "repository.List",
		trace.WithAttributes(
			attribute.String("filter.role", role),
			attribute.Int("limit", limit),
			attribute.Int("offset", offset),
		),
	)
	defer func() {
		span.SetAttributes(attribute.Int("result.count", len(users)), attribute.Int64("result.total", total))
		finish(span, err)
	}()

	return r.next.List(ctx, role, limit, offset)
}

func (r *TracingUserRepository) Update(ctx context.Context, user *domain.User) (err error) {
	ctx, span := tracer.Start(ctx, "repository.Update",
		trace.WithAttributes(
			attribute.Int("user.id", int(user.ID)),
			attribute.String("user.role", user.Role),
			attribute.Bool("user.is_active", user.IsActive),
		),
	)
	defer func() { finish(span, err) }()

	return r.next.Update(ctx, user)
}

func (r *TracingUserRepository) Delete(ctx context.Context, id uint) (err error) {
	ctx, span := tracer.Start(ctx, "repository.Delete",
		trace.WithAttributes(attribute.Int("user.id", int(id))),
	)
	defer func() { finish(span, err) }()

	return r.next.Delete(ctx, id)
}

func (r *TracingUserRepository) Stats(ctx context.Context) (s *domain.UserStats, err error) {
	ctx, span := tracer.Start(ctx, "repository.Stats")
	defer func() { finish(span, err) }()

	return r.next.Stats(ctx)
}

var (
	_ domain.UserRepository = (*TracingUserRepository)(nil)
	_ domain.UserRepository = (*GormUserRepository)(nil)
	_ domain.UserRepository = (*MemoryRepository)(nil)
)
