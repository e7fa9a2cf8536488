package models

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
)

// Notification tells a task owner that the task is due soon. One row exists
// per (user, task, due date); the unique index enforces it.
type Notification struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_notifications_dedup,priority:1"`
	TaskID    uuid.UUID `json:"task_id" gorm:"type:uuid;not null;uniqueIndex:idx_notifications_dedup,priority:2;index"`
	Message   string    `json:"message" gorm:"not null"`
	DueDate   time.Time `json:"due_date" gorm:"not null;uniqueIndex:idx_notifications_dedup,priority:3"`
	IsRead    bool      `json:"is_read" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (Notification) TableName() string { return "notifications" }

func DueSoonMessage(title string) string {
	return fmt.Sprintf("Task \"%s\" is due soon", title)
}
