package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tair/storefront/internal/user/domain"
	"github.com/tair/storefront/pkg/auth"
)

// RegisterUserCommand represents the command to register a new user
type RegisterUserCommand struct {
	Username string
	Email    string
	Password string
	FullName string
	Role     string // Optional, defaults to "user"
}

// RegisterUserHandler handles user registration command
type RegisterUserHandler struct {
	repo domain.UserRepository
}

// NewRegisterUserHandler creates a new register user handler
func NewRegisterUserHandler(repo domain.UserRepository) *RegisterUserHandler {
	return &RegisterUserHandler{repo: repo}
}

// Handle executes the register user command
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*domain.User, error) {
	cmd.Username = strings.TrimSpace(cmd.Username)
	cmd.FullName = strings.TrimSpace(cmd.FullName)
	if cmd.Username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	if len(cmd.Password) < domain.MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, domain.MinPasswordLength)
	}
	if cmd.FullName == "" {
		return nil, fmt.Errorf("%w: full name is required", domain.ErrValidation)
	}
	email, err := domain.NormalizeEmail(cmd.Email)
	if err != nil {
		return nil, err
	}

	role := cmd.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("%w: invalid role", domain.ErrValidation)
	}

	if err := h.checkUnique(ctx, cmd.Username, email); err != nil {
		return nil, err
	}

	hashedPassword, err := auth.HashPassword(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Username: cmd.Username,
		Email:    email,
		Password: hashedPassword,
		FullName: cmd.FullName,
		Role:     role,
		IsActive: true,
	}
	if err := h.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// checkUnique looks the user up before inserting; the driver's unique
// violations are not translated into a sentinel.
func (h *RegisterUserHandler) checkUnique(ctx context.Context, username, email string) error {
	if _, err := h.repo.FindByUsername(ctx, username); err == nil {
		return fmt.Errorf("%w: username already exists", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if _, err := h.repo.FindByEmail(ctx, email); err == nil {
		return fmt.Errorf("%w: email already exists", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}
