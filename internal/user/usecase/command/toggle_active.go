package command

import (
	"context"
	"fmt"

	"github.com/tair/storefront/internal/user/domain"
)

// ToggleActiveCommand represents the command to activate/deactivate user (admin only)
type ToggleActiveCommand struct {
	UserID   uint
	ActorID  uint
	IsActive bool
}

// ToggleActiveHandler handles user activation toggle command
type ToggleActiveHandler struct {
	repo domain.UserRepository
}

// NewToggleActiveHandler creates a new toggle active handler
func NewToggleActiveHandler(repo domain.UserRepository) *ToggleActiveHandler {
	return &ToggleActiveHandler{repo: repo}
}

// Handle executes the toggle active command. Deactivated users cannot log
// in; tokens already issued stay valid until they expire.
func (h *ToggleActiveHandler) Handle(ctx context.Context, cmd ToggleActiveCommand) (*domain.User, error) {
	if cmd.UserID == 0 {
		return nil, fmt.Errorf("%w: invalid user id", domain.ErrValidation)
	}
	if cmd.UserID == cmd.ActorID && !cmd.IsActive {
		return nil, fmt.Errorf("%w: cannot deactivate yourself", domain.ErrValidation)
	}

	user, err := h.repo.FindByID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	user.IsActive = cmd.IsActive
	if err := h.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
