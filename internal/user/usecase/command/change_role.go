package command

import (
	"context"
	"fmt"

	"github.com/tair/storefront/internal/user/domain"
)

// ChangeRoleCommand represents the command to change user role (admin only)
type ChangeRoleCommand struct {
	UserID  uint
	ActorID uint
	Role    string
}

// ChangeRoleHandler handles user role change command
type ChangeRoleHandler struct {
	repo domain.UserRepository
}

// NewChangeRoleHandler creates a new change role handler
func NewChangeRoleHandler(repo domain.UserRepository) *ChangeRoleHandler {
	return &ChangeRoleHandler{repo: repo}
}

// Handle executes the change role command
func (h *ChangeRoleHandler) Handle(ctx context.Context, cmd ChangeRoleCommand) (*domain.User, error) {
	if cmd.UserID == 0 {
		return nil, fmt.Errorf("%w: invalid user id", domain.ErrValidation)
	}
	if !domain.ValidRole(cmd.Role) {
		return nil, fmt.Errorf("%w: invalid role", domain.ErrValidation)
	}
	if cmd.UserID == cmd.ActorID && cmd.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: cannot demote yourself", domain.ErrValidation)
	}

	user, err := h.repo.FindByID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	user.Role = cmd.Role
	if err := h.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
