package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/repositories"

	"github.com/gofrs/uuid"
)

const (
	DefaultHorizon    = 24 * time.Hour
	DefaultMaxHorizon = 7 * 24 * time.Hour
)

type NotificationService interface {
	GenerateDueSoon(ctx context.Context, userID uuid.UUID, horizon time.Duration) ([]models.Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	SweepDueSoon(ctx context.Context, horizon time.Duration) (SweepResult, error)
}

type SweepResult struct {
	Users   int `json:"users"`
	Created int `json:"created"`
}

type NotificationServiceImpl struct {
	tasks          *repositories.TaskRepository
	notifications  *repositories.NotificationRepository
	defaultHorizon time.Duration
	maxHorizon     time.Duration
	now            func() time.Time
}

func NewNotificationService(tasks *repositories.TaskRepository, notifications *repositories.NotificationRepository, defaultHorizon, maxHorizon time.Duration) *NotificationServiceImpl {
	if defaultHorizon <= 0 {
		defaultHorizon = DefaultHorizon
	}
	if maxHorizon <= 0 {
		maxHorizon = DefaultMaxHorizon
	}
	return &NotificationServiceImpl{
		tasks:          tasks,
		notifications:  notifications,
		defaultHorizon: defaultHorizon,
		maxHorizon:     maxHorizon,
		now:            time.Now,
	}
}

func (s *NotificationServiceImpl) horizon(h time.Duration) (time.Duration, error) {
	if h == 0 {
		return s.defaultHorizon, nil
	}
	if h < 0 || h > s.maxHorizon {
		return 0, fmt.Errorf("%w: horizon must be positive and at most %s", models.ErrInvalidInput, s.maxHorizon)
	}
	return h, nil
}

// GenerateDueSoon records a notification for each of the user's own
// incomplete tasks due within horizon (overdue ones included) and returns
// every notification the user has, soonest due first. Zero horizon means the
// configured default.
func (s *NotificationServiceImpl) GenerateDueSoon(ctx context.Context, userID uuid.UUID, horizon time.Duration) ([]models.Notification, error) {
	h, err := s.horizon(horizon)
	if err != nil {
		return nil, err
	}

	if _, err := s.generate(ctx, userID, s.now().UTC().Add(h)); err != nil {
		return nil, err
	}
	return s.notifications.ListForUser(ctx, userID, false)
}

// generate inserts the missing notifications and reports how many rows it
// wrote. The unique index makes concurrent callers safe: the loser of a race
// simply writes nothing.
func (s *NotificationServiceImpl) generate(ctx context.Context, userID uuid.UUID, deadline time.Time) (int, error) {
	tasks, err := s.tasks.DueSoon(ctx, userID, deadline)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, task := range tasks {
		inserted, err := s.notifications.InsertIfAbsent(ctx, &models.Notification{
			UserID:  userID,
			TaskID:  task.ID,
			Message: models.DueSoonMessage(task.Title),
			DueDate: *task.DueDate,
		})
		if errors.Is(err, models.ErrConflict) {
			continue
		}
		if err != nil {
			return created, err
		}
		if inserted {
			created++
		}
	}
	return created, nil
}

func (s *NotificationServiceImpl) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	_, err := s.notifications.MarkAllRead(ctx, userID)
	return err
}

// SweepDueSoon runs generation for every owner with candidate tasks. A
// failure for one user is logged and the sweep moves on; only a failure to
// list owners aborts it.
func (s *NotificationServiceImpl) SweepDueSoon(ctx context.Context, horizon time.Duration) (SweepResult, error) {
	var result SweepResult

	h, err := s.horizon(horizon)
	if err != nil {
		return result, err
	}
	deadline := s.now().UTC().Add(h)

	owners, err := s.tasks.OwnersWithDueSoon(ctx, deadline)
	if err != nil {
		return result, err
	}

	var firstErr error
	for _, owner := range owners {
		created, err := s.generate(ctx, owner, deadline)
		result.Created += created
		if err != nil {
			log.Printf("due-soon sweep failed for user %s: %v", owner, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		result.Users++
	}
	return result, firstErr
}
