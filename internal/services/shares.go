package services

import (
	"context"
	"fmt"

	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/repositories"

	"github.com/gofrs/uuid"
)

type ShareService interface {
	ShareTask(ctx context.Context, taskID, ownerID, granteeID uuid.UUID, permission models.SharePermission) (*models.ShareGrant, error)
	RevokeShare(ctx context.Context, taskID, ownerID, granteeID uuid.UUID) error
	ListGrants(ctx context.Context, taskID, ownerID uuid.UUID) ([]models.ShareGrant, error)
	ListSharedWithMe(ctx context.Context, userID uuid.UUID) ([]models.SharedTask, error)
	LeaveShare(ctx context.Context, taskID, userID uuid.UUID) error
}

type ShareServiceImpl struct {
	shares *repositories.ShareRepository
	users  *repositories.UserRepository
	access *AccessResolver
	source AccessSource
}

func NewShareService(shares *repositories.ShareRepository, users *repositories.UserRepository, source AccessSource) *ShareServiceImpl {
	return &ShareServiceImpl{
		shares: shares,
		users:  users,
		access: NewAccessResolver(source),
		source: source,
	}
}

// ShareTask grants or re-grants access. Sharing again with the same user
// replaces the permission, which is how an owner upgrades read to write.
func (s *ShareServiceImpl) ShareTask(ctx context.Context, taskID, ownerID, granteeID uuid.UUID, permission models.SharePermission) (*models.ShareGrant, error) {
	if permission != models.PermissionRead && permission != models.PermissionWrite {
		return nil, fmt.Errorf("%w: unknown permission %q", models.ErrInvalidInput, permission)
	}

	task, _, err := s.access.Authorize(ctx, ownerID, taskID, models.AccessOwner)
	if err != nil {
		return nil, err
	}

	if granteeID == task.OwnerID {
		return nil, fmt.Errorf("%w: a task cannot be shared with its owner", models.ErrInvalidInput)
	}

	exists, err := s.users.Exists(ctx, granteeID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, granteeID)
	}

	grant := &models.ShareGrant{TaskID: taskID, SharedWithID: granteeID, Permission: permission}
	err = s.shares.Upsert(ctx, grant)
	s.source.ForgetGrant(ctx, taskID, granteeID)
	if err != nil {
		return nil, err
	}
	return grant, nil
}

func (s *ShareServiceImpl) RevokeShare(ctx context.Context, taskID, ownerID, granteeID uuid.UUID) error {
	if _, _, err := s.access.Authorize(ctx, ownerID, taskID, models.AccessOwner); err != nil {
		return err
	}

	err := s.shares.Delete(ctx, taskID, granteeID)
	s.source.ForgetGrant(ctx, taskID, granteeID)
	return err
}

func (s *ShareServiceImpl) ListGrants(ctx context.Context, taskID, ownerID uuid.UUID) ([]models.ShareGrant, error) {
	if _, _, err := s.access.Authorize(ctx, ownerID, taskID, models.AccessOwner); err != nil {
		return nil, err
	}
	return s.shares.ListForTask(ctx, taskID)
}

func (s *ShareServiceImpl) ListSharedWithMe(ctx context.Context, userID uuid.UUID) ([]models.SharedTask, error) {
	return s.shares.ListSharedWith(ctx, userID)
}

// LeaveShare removes the caller's own grant on a task shared with them.
func (s *ShareServiceImpl) LeaveShare(ctx context.Context, taskID, userID uuid.UUID) error {
	err := s.shares.Delete(ctx, taskID, userID)
	s.source.ForgetGrant(ctx, taskID, userID)
	return err
}
