package query

import (
	"context"
	"fmt"

	"github.com/tair/storefront/internal/user/domain"
)

// ListUsersQuery represents the query to list users
type ListUsersQuery struct {
	Role   string
	Limit  int
	Offset int
}

// UserPage is one page of users
type UserPage struct {
	Users  []domain.User `json:"users"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// ListUsersHandler handles list users query
type ListUsersHandler struct {
	repo domain.UserRepository
}

// NewListUsersHandler creates a new list users handler
func NewListUsersHandler(repo domain.UserRepository) *ListUsersHandler {
	return &ListUsersHandler{repo: repo}
}

// Handle executes the list users query
func (h *ListUsersHandler) Handle(ctx context.Context, q ListUsersQuery) (*UserPage, error) {
	if q.Role != "" && !domain.ValidRole(q.Role) {
		return nil, fmt.Errorf("%w: invalid role", domain.ErrValidation)
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	users, total, err := h.repo.List(ctx, q.Role, q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return &UserPage{Users: users, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}
