package repositories

import (
	"context"

	"task-tracker/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ShareRepository struct {
	*Store
}

func NewShareRepository(store *Store) *ShareRepository {
	return &ShareRepository{Store: store}
}

// Upsert creates the grant or replaces the permission of an existing one, so a
// (task, user) pair never holds more than one grant.
func (r *ShareRepository) Upsert(ctx context.Context, grant *models.ShareGrant) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "task_id"}, {Name: "shared_with_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"permission"}),
	}).Create(grant).Error
	return translate(err)
}

func (r *ShareRepository) Find(ctx context.Context, taskID, userID uuid.UUID) (*models.ShareGrant, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var grant models.ShareGrant
	err := db.Where("task_id = ? AND shared_with_id = ?", taskID, userID).First(&grant).Error
	if err != nil {
		return nil, translate(err)
	}
	return &grant, nil
}

func (r *ShareRepository) Delete(ctx context.Context, taskID, userID uuid.UUID) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	res := db.Where("task_id = ? AND shared_with_id = ?", taskID, userID).Delete(&models.ShareGrant{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *ShareRepository) ListForTask(ctx context.Context, taskID uuid.UUID) ([]models.ShareGrant, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	grants := []models.ShareGrant{}
	err := db.Where("task_id = ?", taskID).Order("created_at ASC, shared_with_id ASC").Find(&grants).Error
	return grants, translate(err)
}

const sharedTasksQuery = `SELECT t.id, t.owner_id, t.title, t.description, t.due_date, t.status, t.priority,
	t.created_at, t.updated_at, s.permission
FROM shared_tasks s
JOIN tasks t ON t.id = s.task_id
WHERE s.shared_with_id = ?
ORDER BY (t.due_date IS NULL) ASC, t.due_date ASC, t.id ASC`

// ListSharedWith returns every task shared with userID along with the
// permission of the grant.
func (r *ShareRepository) ListSharedWith(ctx context.Context, userID uuid.UUID) ([]models.SharedTask, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tasks := []models.SharedTask{}
	if err := r.x.SelectContext(ctx, &tasks, r.x.Rebind(sharedTasksQuery), userID); err != nil {
		return nil, translate(err)
	}
	return tasks, nil
}
