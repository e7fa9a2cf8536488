package worker

import (
	"context"
	"log"
	"time"

	"task-tracker/backend/internal/services"

	"github.com/spf13/cast"
)

// Sweeper is the part of the notification service the sweep job needs.
type Sweeper interface {
	SweepDueSoon(ctx context.Context, horizon time.Duration) (services.SweepResult, error)
}

// DueSoonSweepHandler runs due-soon generation for every owner. The payload
// may carry "horizon" as a duration string; otherwise the default applies.
func DueSoonSweepHandler(sweeper Sweeper) JobHandler {
	return func(ctx context.Context, job *Job) error {
		var horizon time.Duration
		if raw, ok := job.Payload["horizon"]; ok {
			horizon = cast.ToDuration(raw)
		}

		result, err := sweeper.SweepDueSoon(ctx, horizon)
		log.Printf("Due-soon sweep: %d users, %d notifications created", result.Users, result.Created)
		return err
	}
}

// TokenPurger removes refresh tokens that expired before now.
type TokenPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

func TokenCleanupHandler(tokens TokenPurger) JobHandler {
	return func(ctx context.Context, job *Job) error {
		removed, err := tokens.DeleteExpired(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		log.Printf("Token cleanup removed %d expired tokens", removed)
		return nil
	}
}
