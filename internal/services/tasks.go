package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/query"
	"task-tracker/backend/internal/repositories"

	"github.com/gofrs/uuid"
)

const maxTitleLength = 200

// TaskInput carries the fields of a new task. Empty status and priority take
// the defaults.
type TaskInput struct {
	Title       string
	Description string
	DueDate     *time.Time
	Status      models.TaskStatus
	Priority    models.TaskPriority
}

// TaskUpdate lists the fields to change; nil fields are left alone.
type TaskUpdate struct {
	Title        *string
	Description  *string
	DueDate      *time.Time
	ClearDueDate bool
	Status       *models.TaskStatus
	Priority     *models.TaskPriority
}

type TaskService interface {
	ListTasks(ctx context.Context, ownerID uuid.UUID, f query.Filter, s query.Sort) ([]models.Task, error)
	GetTask(ctx context.Context, taskID, callerID uuid.UUID) (*models.Task, models.AccessLevel, error)
	CreateTask(ctx context.Context, ownerID uuid.UUID, in TaskInput) (*models.Task, error)
	UpdateTask(ctx context.Context, taskID, callerID uuid.UUID, in TaskUpdate) (*models.Task, error)
	DeleteTask(ctx context.Context, taskID, callerID uuid.UUID) error
	SetStatus(ctx context.Context, taskID, callerID uuid.UUID, status models.TaskStatus) (*models.Task, error)
}

type TaskServiceImpl struct {
	tasks  *repositories.TaskRepository
	access *AccessResolver
	source AccessSource
}

func NewTaskService(tasks *repositories.TaskRepository, source AccessSource) *TaskServiceImpl {
	return &TaskServiceImpl{
		tasks:  tasks,
		access: NewAccessResolver(source),
		source: source,
	}
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title is required", models.ErrInvalidInput)
	}
	if len(title) > maxTitleLength {
		return "", fmt.Errorf("%w: title longer than %d characters", models.ErrInvalidInput, maxTitleLength)
	}
	return title, nil
}

func normalizeDue(d *time.Time) *time.Time {
	if d == nil {
		return nil
	}
	v := models.NormalizeTime(*d)
	return &v
}

// ListTasks returns the owner's tasks. The three historical listing
// endpoints all land here with different filter and sort arguments.
func (s *TaskServiceImpl) ListTasks(ctx context.Context, ownerID uuid.UUID, f query.Filter, srt query.Sort) ([]models.Task, error) {
	return s.tasks.List(ctx, ownerID, f, srt)
}

func (s *TaskServiceImpl) GetTask(ctx context.Context, taskID, callerID uuid.UUID) (*models.Task, models.AccessLevel, error) {
	return s.access.Authorize(ctx, callerID, taskID, models.AccessRead)
}

func (s *TaskServiceImpl) CreateTask(ctx context.Context, ownerID uuid.UUID, in TaskInput) (*models.Task, error) {
	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = models.StatusNotStarted
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrInvalidInput, status)
	}

	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", models.ErrInvalidInput, priority)
	}

	task := &models.Task{
		OwnerID:     ownerID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		DueDate:     normalizeDue(in.DueDate),
		Status:      status,
		Priority:    priority,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskServiceImpl) UpdateTask(ctx context.Context, taskID, callerID uuid.UUID, in TaskUpdate) (*models.Task, error) {
	changes := repositories.TaskChanges{
		Description:  in.Description,
		DueDate:      normalizeDue(in.DueDate),
		ClearDueDate: in.ClearDueDate,
		Status:       in.Status,
		Priority:     in.Priority,
	}

	if in.Title != nil {
		title, err := validateTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		changes.Title = &title
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrInvalidInput, *in.Status)
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", models.ErrInvalidInput, *in.Priority)
	}

	if _, _, err := s.access.Authorize(ctx, callerID, taskID, models.AccessWrite); err != nil {
		return nil, err
	}

	task, err := s.tasks.Update(ctx, taskID, changes)
	s.source.ForgetTask(ctx, taskID)
	return task, err
}

func (s *TaskServiceImpl) SetStatus(ctx context.Context, taskID, callerID uuid.UUID, status models.TaskStatus) (*models.Task, error) {
	return s.UpdateTask(ctx, taskID, callerID, TaskUpdate{Status: &status})
}

func (s *TaskServiceImpl) DeleteTask(ctx context.Context, taskID, callerID uuid.UUID) error {
	if _, _, err := s.access.Authorize(ctx, callerID, taskID, models.AccessOwner); err != nil {
		return err
	}

	err := s.tasks.Delete(ctx, taskID)
	s.source.ForgetTask(ctx, taskID)
	return err
}
