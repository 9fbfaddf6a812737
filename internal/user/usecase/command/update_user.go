package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tair/storefront/internal/user/domain"
	"github.com/tair/storefront/pkg/auth"
)

// UpdateUserCommand represents the command to update a user's profile.
// Empty fields are left unchanged.
type UpdateUserCommand struct {
	ID       uint
	Email    string
	FullName string
	Password string
}

// UpdateUserHandler handles user update command
type UpdateUserHandler struct {
	repo domain.UserRepository
}

// NewUpdateUserHandler creates a new update user handler
func NewUpdateUserHandler(repo domain.UserRepository) *UpdateUserHandler {
	return &UpdateUserHandler{repo: repo}
}

// Handle executes the update user command
func (h *UpdateUserHandler) Handle(ctx context.Context, cmd UpdateUserCommand) (*domain.User, error) {
	if cmd.ID == 0 {
		return nil, fmt.Errorf("%w: invalid user id", domain.ErrValidation)
	}

	user, err := h.repo.FindByID(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}

	if cmd.Email != "" {
		email, err := domain.NormalizeEmail(cmd.Email)
		if err != nil {
			return nil, err
		}
		if email != user.Email {
			other, err := h.repo.FindByEmail(ctx, email)
			if err == nil && other.ID != user.ID {
				return nil, fmt.Errorf("%w: email already exists", domain.ErrConflict)
			}
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
			user.Email = email
		}
	}
	if name := strings.TrimSpace(cmd.FullName); name != "" {
		user.FullName = name
	}
	if cmd.Password != "" {
		if len(cmd.Password) < domain.MinPasswordLength {
			return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, domain.MinPasswordLength)
		}
		hashed, err := auth.HashPassword(cmd.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = hashed
	}

	if err := h.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
