package services

import (
	"context"
	"fmt"
	"strings"

	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/repositories"

	"github.com/gofrs/uuid"
)

const maxCommentLength = 4000

type CommentService interface {
	AddComment(ctx context.Context, taskID, callerID uuid.UUID, body string) (*models.Comment, error)
	ListComments(ctx context.Context, taskID, callerID uuid.UUID) ([]models.Comment, error)
}

type CommentServiceImpl struct {
	comments *repositories.CommentRepository
	access   *AccessResolver
}

func NewCommentService(comments *repositories.CommentRepository, source AccessSource) *CommentServiceImpl {
	return &CommentServiceImpl{comments: comments, access: NewAccessResolver(source)}
}

// AddComment appends to the task's log; any access level may comment.
func (s *CommentServiceImpl) AddComment(ctx context.Context, taskID, callerID uuid.UUID, body string) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: comment body is required", models.ErrInvalidInput)
	}
	if len(body) > maxCommentLength {
		return nil, fmt.Errorf("%w: comment longer than %d characters", models.ErrInvalidInput, maxCommentLength)
	}

	if _, _, err := s.access.Authorize(ctx, callerID, taskID, models.AccessRead); err != nil {
		return nil, err
	}

	comment := &models.Comment{TaskID: taskID, AuthorID: callerID, Body: body}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommentServiceImpl) ListComments(ctx context.Context, taskID, callerID uuid.UUID) ([]models.Comment, error) {
	if _, _, err := s.access.Authorize(ctx, callerID, taskID, models.AccessRead); err != nil {
		return nil, err
	}
	return s.comments.ListForTask(ctx, taskID)
}
