package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
)

type JobType string

const (
	JobTypeDueSoonSweep JobType = "due_soon_sweep"
	JobTypeTokenCleanup JobType = "token_cleanup"
)

const (
	DefaultQueue = "maintenance"
	DeadQueue    = "dead_queue"
)

type Job struct {
	ID        string                 `json:"id"`
	Type      JobType                `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Attempts  int                    `json:"attempts"`
	MaxTries  int                    `json:"max_tries"`
	Queue     string                 `json:"queue"`
	CreatedAt time.Time              `json:"created_at"`
	ProcessAt time.Time              `json:"process_at"`
}

type JobHandler func(ctx context.Context, job *Job) error

var errNotDue = errors.New("job not due yet")

const requeueTimeout = 5 * time.Second

// detach gives the Redis writes that follow a pop their own deadline, so a
// popped job still reaches its queue after ctx is cancelled.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), requeueTimeout)
}

type Worker struct {
	client       *redis.Client
	handlers     map[JobType]JobHandler
	queues       []string
	pollInterval time.Duration
	retryBase    time.Duration
	jobTimeout   time.Duration
	mu           sync.RWMutex
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

type WorkerConfig struct {
	RedisClient  *redis.Client
	PollInterval time.Duration
	Queues       []string
	// RetryBase is the delay before the first retry; it doubles per attempt.
	RetryBase  time.Duration
	JobTimeout time.Duration
}

func NewWorker(config WorkerConfig) *Worker {
	if len(config.Queues) == 0 {
		config.Queues = []string{DefaultQueue}
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.RetryBase <= 0 {
		config.RetryBase = time.Minute
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 30 * time.Second
	}

	return &Worker{
		client:       config.RedisClient,
		handlers:     make(map[JobType]JobHandler),
		queues:       config.Queues,
		pollInterval: config.PollInterval,
		retryBase:    config.RetryBase,
		jobTimeout:   config.JobTimeout,
	}
}

func (w *Worker) RegisterHandler(jobType JobType, handler JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = handler
}

// Start launches concurrency consumers that run until ctx is done or Stop is
// called.
func (w *Worker) Start(ctx context.Context, concurrency int) {
	if concurrency <= 0 {
		concurrency = 1
	}
	ctx, w.cancel = context.WithCancel(ctx)
	log.Printf("Starting worker with %d goroutines on %v", concurrency, w.queues)

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx)
	}
}

func (w *Worker) Stop() {
	log.Println("Stopping worker...")
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	log.Println("Worker stopped")
}

func (w *Worker) workerLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := w.processNextJob(ctx)
		if err == nil {
			continue
		}
		if !errors.Is(err, errNotDue) && ctx.Err() == nil {
			log.Printf("Error processing job: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.pollInterval):
		}
	}
}

func (w *Worker) processNextJob(ctx context.Context) error {
	result, err := w.client.BLPop(ctx, w.pollInterval, w.queues...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("failed to pop job: %w", err)
	}

	if len(result) < 2 {
		return fmt.Errorf("invalid job result")
	}

	queue := result[0]
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}
	if job.Queue == "" {
		job.Queue = queue
	}

	if time.Now().Before(job.ProcessAt) {
		saveCtx, release := detach(ctx)
		defer release()
		if err := w.enqueueJob(saveCtx, queue, &job); err != nil {
			return err
		}
		return errNotDue
	}

	return w.executeJob(ctx, &job)
}

func (w *Worker) executeJob(ctx context.Context, job *Job) error {
	w.mu.RLock()
	handler, exists := w.handlers[job.Type]
	w.mu.RUnlock()

	if !exists {
		saveCtx, release := detach(ctx)
		defer release()
		return w.moveToDeadQueue(saveCtx, job, fmt.Errorf("no handler registered for job type: %s", job.Type))
	}

	log.Printf("Processing job %s of type %s", job.ID, job.Type)

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	err := handler(jobCtx, job)
	cancel()
	if err == nil {
		log.Printf("Job %s completed successfully", job.ID)
		return nil
	}

	saveCtx, release := detach(ctx)
	defer release()

	// Interrupted by shutdown: requeue without spending an attempt.
	if ctx.Err() != nil {
		log.Printf("Job %s interrupted by shutdown, requeued: %v", job.ID, err)
		return w.enqueueJob(saveCtx, job.Queue, job)
	}

	job.Attempts++
	if job.Attempts < job.MaxTries {
		log.Printf("Job %s failed (attempt %d/%d), retrying: %v",
			job.ID, job.Attempts, job.MaxTries, err)
		return w.retryJob(saveCtx, job)
	}

	log.Printf("Job %s failed permanently after %d attempts: %v",
		job.ID, job.Attempts, err)
	return w.moveToDeadQueue(saveCtx, job, err)
}

// retryJob puts the job back on its own queue, due after a delay that
// doubles with each attempt.
func (w *Worker) retryJob(ctx context.Context, job *Job) error {
	delay := w.retryBase * time.Duration(1<<(job.Attempts-1))
	job.ProcessAt = time.Now().Add(delay)
	return w.enqueueJob(ctx, job.Queue, job)
}

func (w *Worker) enqueueJob(ctx context.Context, queue string, job *Job) error {
	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return w.client.RPush(ctx, queue, jobData).Err()
}

type DeadJob struct {
	Job      *Job      `json:"original_job"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

func (w *Worker) moveToDeadQueue(ctx context.Context, job *Job, jobErr error) error {
	deadJobData, err := json.Marshal(DeadJob{Job: job, Error: jobErr.Error(), FailedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to marshal dead job: %w", err)
	}
	return w.client.RPush(ctx, DeadQueue, deadJobData).Err()
}

type JobQueue struct {
	client   *redis.Client
	maxTries int
}

func NewJobQueue(client *redis.Client, maxTries int) *JobQueue {
	if maxTries <= 0 {
		maxTries = 3
	}
	return &JobQueue{client: client, maxTries: maxTries}
}

func (q *JobQueue) Enqueue(ctx context.Context, queue string, jobType JobType, payload map[string]interface{}) (*Job, error) {
	return q.EnqueueAt(ctx, queue, jobType, payload, time.Now())
}

func (q *JobQueue) EnqueueAt(ctx context.Context, queue string, jobType JobType, payload map[string]interface{}, processAt time.Time) (*Job, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	job := &Job{
		ID:        id.String(),
		Type:      jobType,
		Payload:   payload,
		MaxTries:  q.maxTries,
		Queue:     queue,
		CreatedAt: time.Now(),
		ProcessAt: processAt,
	}

	jobData, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := q.client.RPush(ctx, queue, jobData).Err(); err != nil {
		return nil, err
	}
	return job, nil
}

func (q *JobQueue) GetQueueSize(ctx context.Context, queue string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return q.client.LLen(ctx, queue).Result()
}
