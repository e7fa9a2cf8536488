package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
)

type TaskStatus string

const (
	StatusNotStarted TaskStatus = "not_started"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func ParseTaskStatus(v string) (TaskStatus, error) {
	s := TaskStatus(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, v)
	}
	return s, nil
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func ParseTaskPriority(v string) (TaskPriority, error) {
	p := TaskPriority(strings.ToLower(strings.TrimSpace(v)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, v)
	}
	return p, nil
}

type Task struct {
	ID          uuid.UUID    `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	OwnerID     uuid.UUID    `json:"owner_id" db:"owner_id" gorm:"type:uuid;not null;index"`
	Title       string       `json:"title" db:"title" gorm:"not null"`
	Description string       `json:"description" db:"description" gorm:"not null;default:''"`
	DueDate     *time.Time   `json:"due_date" db:"due_date" gorm:"index"`
	Status      TaskStatus   `json:"status" db:"status" gorm:"type:varchar(20);not null;default:not_started"`
	Priority    TaskPriority `json:"priority" db:"priority" gorm:"type:varchar(10);not null;default:medium"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`
}

func (Task) TableName() string { return "tasks" }

// SameDueDate reports whether the task is due at exactly d (both may be nil).
func (t *Task) SameDueDate(d *time.Time) bool {
	if t.DueDate == nil || d == nil {
		return t.DueDate == nil && d == nil
	}
	return t.DueDate.Equal(*d)
}

// NormalizeTime puts a timestamp in the stored form: UTC, whole seconds.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
