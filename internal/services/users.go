package services

import (
	"context"
	"fmt"
	"strings"

	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/repositories"

	"github.com/gofrs/uuid"
)

// Caller is the authenticated principal as placed on the request by the
// auth middleware.
type Caller struct {
	ID   uuid.UUID
	Role models.Role
}

func (c Caller) IsAdmin() bool { return c.Role == models.RoleAdmin }

type ProfileUpdate struct {
	Username *string
	Email    *string
}

type UserService interface {
	ListUsers(ctx context.Context, caller Caller) ([]models.User, error)
	GetUser(ctx context.Context, caller Caller, id uuid.UUID) (*models.User, error)
	UpdateUser(ctx context.Context, caller Caller, id uuid.UUID, in ProfileUpdate) (*models.User, error)
	SetRole(ctx context.Context, caller Caller, id uuid.UUID, role models.Role) (*models.User, error)
}

type UserServiceImpl struct {
	users *repositories.UserRepository
}

func NewUserService(users *repositories.UserRepository) *UserServiceImpl {
	return &UserServiceImpl{users: users}
}

func (s *UserServiceImpl) ListUsers(ctx context.Context, caller Caller) ([]models.User, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: admin role required", models.ErrForbidden)
	}
	return s.users.List(ctx)
}

func (s *UserServiceImpl) GetUser(ctx context.Context, caller Caller, id uuid.UUID) (*models.User, error) {
	if caller.ID != id && !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: cannot view another user", models.ErrForbidden)
	}
	return s.users.GetByID(ctx, id)
}

func (s *UserServiceImpl) UpdateUser(ctx context.Context, caller Caller, id uuid.UUID, in ProfileUpdate) (*models.User, error) {
	if caller.ID != id && !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: cannot modify another user", models.ErrForbidden)
	}

	cols := map[string]interface{}{}
	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if len(name) < 3 || len(name) > 50 {
			return nil, fmt.Errorf("%w: username must be 3 to 50 characters", models.ErrInvalidInput)
		}
		cols["username"] = name
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if !strings.Contains(email, "@") {
			return nil, fmt.Errorf("%w: invalid email", models.ErrInvalidInput)
		}
		cols["email"] = email
	}
	return s.users.Update(ctx, id, cols)
}

func (s *UserServiceImpl) SetRole(ctx context.Context, caller Caller, id uuid.UUID, role models.Role) (*models.User, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: admin role required", models.ErrForbidden)
	}
	if role != models.RoleMember && role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: unknown role %q", models.ErrInvalidInput, role)
	}
	return s.users.Update(ctx, id, map[string]interface{}{"role": role})
}
