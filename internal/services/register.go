package services

import (
	"context"
	"strings"

	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

type RegistrationRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type RegisterService interface {
	RegisterUser(ctx context.Context, req RegistrationRequest) (*models.User, error)
}

type RegisterServiceImpl struct {
	users *repositories.UserRepository
	cost  int
}

func NewRegisterService(users *repositories.UserRepository, cost int) *RegisterServiceImpl {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &RegisterServiceImpl{users: users, cost: cost}
}

// RegisterUser creates a member account. A taken username or email comes
// back as ErrConflict from the unique indexes.
func (s *RegisterServiceImpl) RegisterUser(ctx context.Context, req RegistrationRequest) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: string(hashedPassword),
		Role:     models.RoleMember,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
