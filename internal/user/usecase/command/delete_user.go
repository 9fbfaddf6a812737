package command

import (
	"context"
	"fmt"

	"github.com/tair/storefront/internal/user/domain"
)

// DeleteUserCommand represents the command to delete a user
type DeleteUserCommand struct {
	ID      uint
	ActorID uint
}

// DeleteUserHandler handles user deletion command
type DeleteUserHandler struct {
	repo domain.UserRepository
}

// NewDeleteUserHandler creates a new delete user handler
func NewDeleteUserHandler(repo domain.UserRepository) *DeleteUserHandler {
	return &DeleteUserHandler{repo: repo}
}

// Handle executes the delete user command. Admins cannot delete themselves.
func (h *DeleteUserHandler) Handle(ctx context.Context, cmd DeleteUserCommand) error {
	if cmd.ID == 0 {
		return fmt.Errorf("%w: invalid user id", domain.ErrValidation)
	}
	if cmd.ID == cmd.ActorID {
		return fmt.Errorf("%w: cannot delete your own account", domain.ErrValidation)
	}
	return h.repo.Delete(ctx, cmd.ID)
}
