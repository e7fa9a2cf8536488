package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"task-tracker/backend/internal/cache"
	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/repositories"

	"github.com/gofrs/uuid"
)

// AccessSource supplies the rows the resolver decides on. Writers call the
// Forget methods after changing a task or a grant.
type AccessSource interface {
	Task(ctx context.Context, taskID uuid.UUID) (*models.Task, error)
	Grant(ctx context.Context, taskID, userID uuid.UUID) (*models.ShareGrant, error)
	ForgetTask(ctx context.Context, taskID uuid.UUID)
	ForgetGrant(ctx context.Context, taskID, userID uuid.UUID)
}

// StoreAccessSource reads straight from the repositories.
type StoreAccessSource struct {
	tasks  *repositories.TaskRepository
	shares *repositories.ShareRepository
}

func NewStoreAccessSource(tasks *repositories.TaskRepository, shares *repositories.ShareRepository) *StoreAccessSource {
	return &StoreAccessSource{tasks: tasks, shares: shares}
}

func (s *StoreAccessSource) Task(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	return s.tasks.GetByID(ctx, taskID)
}

func (s *StoreAccessSource) Grant(ctx context.Context, taskID, userID uuid.UUID) (*models.ShareGrant, error) {
	return s.shares.Find(ctx, taskID, userID)
}

func (s *StoreAccessSource) ForgetTask(context.Context, uuid.UUID) {}

func (s *StoreAccessSource) ForgetGrant(context.Context, uuid.UUID, uuid.UUID) {}

// cachedGrant records both a grant and its absence, so repeated checks by a
// caller without access do not reach the store either.
type cachedGrant struct {
	Present    bool                   `json:"present"`
	Permission models.SharePermission `json:"permission,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// CachedAccessSource puts the multi-level cache in front of another source.
// Keys carry the task's cache generation, which every Forget call bumps
// after the store write. A read that raced the write stores its result under
// the retired generation where nothing looks it up again.
type CachedAccessSource struct {
	next  AccessSource
	cache cache.Cache
	ttl   time.Duration
}

func NewCachedAccessSource(next AccessSource, c cache.Cache, ttl time.Duration) *CachedAccessSource {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedAccessSource{next: next, cache: c, ttl: ttl}
}

func taskCacheKey(taskID uuid.UUID, gen string) string {
	return fmt.Sprintf("task:%s@%s", taskID, gen)
}

func grantCacheKey(taskID, userID uuid.UUID, gen string) string {
	return fmt.Sprintf("grant:%s:%s@%s", taskID, userID, gen)
}

func taskTag(taskID uuid.UUID) string {
	return fmt.Sprintf("task-access:%s", taskID)
}

// generation must be read before the store so a concurrent Forget retires
// whatever this call caches.
func (s *CachedAccessSource) generation(ctx context.Context, taskID uuid.UUID) (string, bool) {
	gen, err := s.cache.Generation(ctx, taskTag(taskID))
	if err != nil {
		log.Printf("access cache: bypassing for task %s: %v", taskID, err)
		return "", false
	}
	return gen, true
}

func (s *CachedAccessSource) Task(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	gen, ok := s.generation(ctx, taskID)
	if !ok {
		return s.next.Task(ctx, taskID)
	}
	key := taskCacheKey(taskID, gen)

	var cached models.Task
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	task, err := s.next.Task(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetWithTags(ctx, key, task, s.ttl, []string{taskTag(taskID)}); err != nil {
		log.Printf("access cache: failed to store %s: %v", key, err)
	}
	return task, nil
}

func (s *CachedAccessSource) Grant(ctx context.Context, taskID, userID uuid.UUID) (*models.ShareGrant, error) {
	gen, ok := s.generation(ctx, taskID)
	if !ok {
		return s.next.Grant(ctx, taskID, userID)
	}
	key := grantCacheKey(taskID, userID, gen)

	var cached cachedGrant
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		if !cached.Present {
			return nil, fmt.Errorf("%w: no grant for task %s", models.ErrNotFound, taskID)
		}
		return &models.ShareGrant{TaskID: taskID, SharedWithID: userID, Permission: cached.Permission, CreatedAt: cached.CreatedAt}, nil
	}

	grant, err := s.next.Grant(ctx, taskID, userID)
	entry := cachedGrant{}
	switch {
	case err == nil:
		entry = cachedGrant{Present: true, Permission: grant.Permission, CreatedAt: grant.CreatedAt}
	case errors.Is(err, models.ErrNotFound):
	default:
		return nil, err
	}

	if cerr := s.cache.SetWithTags(ctx, key, entry, s.ttl, []string{taskTag(taskID)}); cerr != nil {
		log.Printf("access cache: failed to store %s: %v", key, cerr)
	}
	return grant, err
}

// forget retires the task's generation, then drops the entries it covered.
// The drop only frees memory; a failed drop leaves unreachable keys behind.
func (s *CachedAccessSource) forget(ctx context.Context, taskID uuid.UUID) {
	if err := s.cache.Bump(ctx, taskTag(taskID)); err != nil {
		log.Printf("access cache: generation bump for task %s deferred: %v", taskID, err)
	}
	if err := s.cache.InvalidateByTag(ctx, taskTag(taskID)); err != nil {
		log.Printf("access cache: failed to invalidate task %s: %v", taskID, err)
	}
}

func (s *CachedAccessSource) ForgetTask(ctx context.Context, taskID uuid.UUID) {
	s.forget(ctx, taskID)
	s.next.ForgetTask(ctx, taskID)
}

// ForgetGrant retires every cached entry of the task, not just the one grant.
func (s *CachedAccessSource) ForgetGrant(ctx context.Context, taskID, userID uuid.UUID) {
	s.forget(ctx, taskID)
	s.next.ForgetGrant(ctx, taskID, userID)
}
