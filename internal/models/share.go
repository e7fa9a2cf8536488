package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
)

type SharePermission string

const (
	PermissionRead  SharePermission = "read"
	PermissionWrite SharePermission = "write"
)

func ParseSharePermission(v string) (SharePermission, error) {
	p := SharePermission(strings.ToLower(strings.TrimSpace(v)))
	if p != PermissionRead && p != PermissionWrite {
		return "", fmt.Errorf("%w: unknown permission %q", ErrInvalidInput, v)
	}
	return p, nil
}

// ShareGrant gives a non-owner read or write access to one task.
type ShareGrant struct {
	TaskID       uuid.UUID       `json:"task_id" db:"task_id" gorm:"primaryKey;type:uuid"`
	SharedWithID uuid.UUID       `json:"shared_with_id" db:"shared_with_id" gorm:"primaryKey;type:uuid;index"`
	Permission   SharePermission `json:"permission" db:"permission" gorm:"type:varchar(10);not null"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
}

func (ShareGrant) TableName() string { return "shared_tasks" }

// SharedTask is a task seen through a grant held by the caller.
type SharedTask struct {
	Task
	Permission SharePermission `json:"permission" db:"permission"`
}
