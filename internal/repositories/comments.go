package repositories

import (
	"context"

	"task-tracker/backend/internal/models"

	"github.com/gofrs/uuid"
)

type CommentRepository struct {
	*Store
}

func NewCommentRepository(store *Store) *CommentRepository {
	return &CommentRepository{Store: store}
}

func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return translate(db.Create(comment).Error)
}

func (r *CommentRepository) ListForTask(ctx context.Context, taskID uuid.UUID) ([]models.Comment, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	comments := []models.Comment{}
	err := db.Where("task_id = ?", taskID).Order("created_at ASC, id ASC").Find(&comments).Error
	return comments, translate(err)
}
