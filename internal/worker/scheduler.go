package worker

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Scheduler enqueues a job on a fixed interval. A Redis lock per period
// keeps several instances from enqueueing the same run.
type Scheduler struct {
	queue    *JobQueue
	name     string
	jobType  JobType
	payload  map[string]interface{}
	interval time.Duration
}

func NewScheduler(queue *JobQueue, name string, jobType JobType, payload map[string]interface{}, interval time.Duration) *Scheduler {
	return &Scheduler{
		queue:    queue,
		name:     name,
		jobType:  jobType,
		payload:  payload,
		interval: interval,
	}
}

func (s *Scheduler) lockKey(now time.Time) string {
	return fmt.Sprintf("schedule:%s:%s:%d", s.jobType, s.name, now.Truncate(s.interval).Unix())
}

// Tick enqueues the job unless this period's run was already claimed. It
// reports whether a job was enqueued.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) (bool, error) {
	claimed, err := s.queue.client.SetNX(ctx, s.lockKey(now), now.Unix(), s.interval).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim schedule slot: %w", err)
	}
	if !claimed {
		return false, nil
	}

	if _, err := s.queue.Enqueue(ctx, DefaultQueue, s.jobType, s.payload); err != nil {
		return false, err
	}
	return true, nil
}

// Run ticks immediately and then every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	tick := func() {
		if _, err := s.Tick(ctx, time.Now()); err != nil && ctx.Err() == nil {
			log.Printf("Scheduler %s: %v", s.name, err)
		}
	}

	tick()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}
