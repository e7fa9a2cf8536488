package services

import (
	"context"
	"errors"
	"fmt"

	"task-tracker/backend/internal/models"

	"github.com/gofrs/uuid"
)

// AccessResolver decides what a caller may do with a task. Every task
// operation goes through Authorize, so the NotFound/Forbidden policy lives in
// one place: a missing task is NotFound, an existing task the caller may not
// touch is Forbidden.
type AccessResolver struct {
	source AccessSource
}

func NewAccessResolver(source AccessSource) *AccessResolver {
	return &AccessResolver{source: source}
}

// ResolveAccess returns the caller's effective level on the task. The owner
// always resolves to AccessOwner, whatever grant rows exist.
func (r *AccessResolver) ResolveAccess(ctx context.Context, userID, taskID uuid.UUID) (models.AccessLevel, error) {
	task, err := r.source.Task(ctx, taskID)
	if err != nil {
		return models.AccessNone, err
	}
	return r.levelFor(ctx, task, userID)
}

func (r *AccessResolver) levelFor(ctx context.Context, task *models.Task, userID uuid.UUID) (models.AccessLevel, error) {
	if task.OwnerID == userID {
		return models.AccessOwner, nil
	}

	grant, err := r.source.Grant(ctx, task.ID, userID)
	if errors.Is(err, models.ErrNotFound) {
		return models.AccessNone, nil
	}
	if err != nil {
		return models.AccessNone, err
	}
	return models.AccessFromPermission(grant.Permission), nil
}

// Authorize loads the task and checks that userID holds at least required.
// It returns the task and the resolved level on success.
func (r *AccessResolver) Authorize(ctx context.Context, userID, taskID uuid.UUID, required models.AccessLevel) (*models.Task, models.AccessLevel, error) {
	task, err := r.source.Task(ctx, taskID)
	if err != nil {
		return nil, models.AccessNone, err
	}

	level, err := r.levelFor(ctx, task, userID)
	if err != nil {
		return nil, models.AccessNone, err
	}

	if !level.Allows(required) {
		return nil, level, fmt.Errorf("%w: %s access required on task %s", models.ErrForbidden, required, taskID)
	}
	return task, level, nil
}
