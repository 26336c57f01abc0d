package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Deleter removes a stored blob by name.
type Deleter interface {
	Delete(ctx context.Context, name string) error
}

// Task is one pending photo removal.
type Task struct {
	ReportID string
	Photo    string
	Attempt  int
	Enqueued time.Time
}

// Config configures the janitor worker pool.
type Config struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// PhotoJanitor retries photo deletions that failed while serving a request.
// Scheduling never blocks; a full buffer drops the task with an error.
type PhotoJanitor struct {
	store Deleter

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	tasks   chan Task
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewPhotoJanitor builds a janitor deleting through store.
func NewPhotoJanitor(store Deleter, cfg Config) *PhotoJanitor {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &PhotoJanitor{
		store:      store,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		tasks:      make(chan Task, cfg.BufferSize),
	}
}

// Start begins worker consumption. Safe to call once.
func (j *PhotoJanitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.started {
		return
	}
	j.ctx, j.cancel = context.WithCancel(ctx)
	for i := 0; i < j.workers; i++ {
		j.wg.Add(1)
		go j.worker()
	}
	j.started = true
	j.logger.Info("photo janitor started", zap.Int("workers", j.workers))
}

// Stop cancels workers and waits for them to exit. Pending tasks are dropped.
func (j *PhotoJanitor) Stop() {
	j.mu.Lock()
	if !j.started {
		j.mu.Unlock()
		return
	}
	j.cancel()
	j.mu.Unlock()
	j.wg.Wait()
	j.logger.Info("photo janitor stopped", zap.Int("dropped", len(j.tasks)))
}

// Schedule queues photo for deletion on behalf of reportID.
func (j *PhotoJanitor) Schedule(reportID, photo string) error {
	return j.enqueue(Task{ReportID: reportID, Photo: photo, Enqueued: time.Now().UTC()})
}

func (j *PhotoJanitor) enqueue(task Task) error {
	j.mu.Lock()
	ctx, started := j.ctx, j.started
	j.mu.Unlock()

	if !started {
		return fmt.Errorf("photo janitor not started")
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("photo janitor stopped: %w", ctx.Err())
	case j.tasks <- task:
		return nil
	default:
		return fmt.Errorf("photo janitor buffer full")
	}
}

func (j *PhotoJanitor) worker() {
	defer j.wg.Done()
	for {
		select {
		case <-j.ctx.Done():
			return
		case task := <-j.tasks:
			if err := j.store.Delete(j.ctx, task.Photo); err != nil {
				j.handleFailure(task, err)
				continue
			}
			j.logger.Info("orphaned photo removed", zap.String("report_id", task.ReportID), zap.String("photo", task.Photo), zap.Int("attempt", task.Attempt+1))
		}
	}
}

func (j *PhotoJanitor) handleFailure(task Task, err error) {
	task.Attempt++
	if task.Attempt >= j.maxRetries {
		j.logger.Error("giving up on photo delete", zap.String("report_id", task.ReportID), zap.String("photo", task.Photo), zap.Int("attempts", task.Attempt), zap.Error(err))
		return
	}
	j.logger.Warn("photo delete failed, retrying", zap.String("report_id", task.ReportID), zap.String("photo", task.Photo), zap.Int("attempt", task.Attempt), zap.Error(err))

	go func(t Task) {
		timer := time.NewTimer(j.retryDelay)
		defer timer.Stop()
		select {
		case <-j.ctx.Done():
			return
		case <-timer.C:
			if err := j.enqueue(t); err != nil {
				j.logger.Error("failed to requeue photo delete", zap.String("photo", t.Photo), zap.Error(err))
			}
		}
	}(task)
}
