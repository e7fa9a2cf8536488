package repositories

import (
	"context"
	"fmt"
	"time"

	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/query"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// TaskChanges lists the columns an update writes. Nil fields are untouched;
// ClearDueDate removes the due date.
type TaskChanges struct {
	Title        *string
	Description  *string
	DueDate      *time.Time
	ClearDueDate bool
	Status       *models.TaskStatus
	Priority     *models.TaskPriority
}

func (c TaskChanges) columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if c.Title != nil {
		cols["title"] = *c.Title
	}
	if c.Description != nil {
		cols["description"] = *c.Description
	}
	if c.ClearDueDate {
		cols["due_date"] = nil
	} else if c.DueDate != nil {
		cols["due_date"] = *c.DueDate
	}
	if c.Status != nil {
		cols["status"] = string(*c.Status)
	}
	if c.Priority != nil {
		cols["priority"] = string(*c.Priority)
	}
	return cols
}

type TaskRepository struct {
	*Store
}

func NewTaskRepository(store *Store) *TaskRepository {
	return &TaskRepository{Store: store}
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return translate(db.Create(task).Error)
}

func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var task models.Task
	if err := db.Where("id = ?", id).First(&task).Error; err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

// List runs the composed owner query through sqlx so the placeholders are
// rebound for the active dialect.
func (r *TaskRepository) List(ctx context.Context, ownerID uuid.UUID, f query.Filter, s query.Sort) ([]models.Task, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	text, args := query.ComposeTaskQuery(ownerID, f, s)

	tasks := []models.Task{}
	if err := r.x.SelectContext(ctx, &tasks, r.x.Rebind(text), args...); err != nil {
		return nil, translate(fmt.Errorf("listing tasks: %w", err))
	}
	return tasks, nil
}

// Update applies changes in one transaction. When the due date moves, the
// task's notifications for any other due date are deleted with it.
func (r *TaskRepository) Update(ctx context.Context, id uuid.UUID, changes TaskChanges) (*models.Task, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	cols := changes.columns()
	var task models.Task

	err := db.Transaction(func(tx *gorm.DB) error {
		if len(cols) > 0 {
			cols["updated_at"] = time.Now().UTC()
			res := tx.Model(&models.Task{}).Where("id = ?", id).Updates(cols)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}

		if err := tx.Where("id = ?", id).First(&task).Error; err != nil {
			return err
		}

		if _, touched := cols["due_date"]; touched {
			return supersedeNotifications(tx, &task)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

// supersedeNotifications drops notifications generated for a due date the
// task no longer has.
func supersedeNotifications(tx *gorm.DB, task *models.Task) error {
	q := tx.Where("task_id = ?", task.ID)
	if task.DueDate != nil {
		q = q.Where("due_date <> ?", *task.DueDate)
	}
	return q.Delete(&models.Notification{}).Error
}

// Delete removes the task together with its grants, comments and
// notifications.
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, child := range []interface{}{&models.Notification{}, &models.Comment{}, &models.ShareGrant{}} {
			if err := tx.Where("task_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&models.Task{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate(err)
}

// DueSoon returns the owner's incomplete tasks due at or before deadline.
func (r *TaskRepository) DueSoon(ctx context.Context, ownerID uuid.UUID, deadline time.Time) ([]models.Task, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var tasks []models.Task
	err := db.
		Where("owner_id = ? AND due_date IS NOT NULL AND due_date <= ? AND status <> ?",
			ownerID, deadline, models.StatusCompleted).
		Order("due_date ASC").
		Find(&tasks).Error
	return tasks, translate(err)
}

// OwnersWithDueSoon lists every owner with at least one incomplete task due
// at or before deadline.
func (r *TaskRepository) OwnersWithDueSoon(ctx context.Context, deadline time.Time) ([]uuid.UUID, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var owners []uuid.UUID
	err := db.Model(&models.Task{}).
		Distinct("owner_id").
		Where("due_date IS NOT NULL AND due_date <= ? AND status <> ?", deadline, models.StatusCompleted).
		Pluck("owner_id", &owners).Error
	return owners, translate(err)
}
