package repositories

import (
	"context"

	"task-tracker/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm/clause"
)

type NotificationRepository struct {
	*Store
}

func NewNotificationRepository(store *Store) *NotificationRepository {
	return &NotificationRepository{Store: store}
}

// InsertIfAbsent stores n unless a notification for the same user, task and
// due date already exists. It reports whether a row was written.
func (r *NotificationRepository) InsertIfAbsent(ctx context.Context, n *models.Notification) (bool, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "task_id"}, {Name: "due_date"}},
		DoNothing: true,
	}).Create(n)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ListForUser returns the user's notifications, soonest due first.
func (r *NotificationRepository) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	q := db.Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	notifications := []models.Notification{}
	err := q.Order("due_date ASC, id ASC").Find(&notifications).Error
	return notifications, translate(err)
}

// MarkAllRead flags every unread notification of the user and returns how
// many changed.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	res := db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, translate(res.Error)
}
