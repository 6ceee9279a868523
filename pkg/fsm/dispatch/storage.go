package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Storage persists queued tasks. Implementations must be safe for concurrent
// use; ClaimTask must hand each pending task to exactly one caller.
type Storage interface {
	CreateTask(ctx context.Context, task *Task) error
	// ClaimTask atomically claims the highest-priority due pending task,
	// marking it processing. Returns ErrNoTask when nothing is claimable.
	ClaimTask(ctx context.Context) (*Task, error)
	CompleteTask(ctx context.Context, id uuid.UUID, status TaskStatus) error
	// FailTask records the error and either reschedules the task with backoff
	// or marks it failed once retries are exhausted.
	FailTask(ctx context.Context, id uuid.UUID, errorMsg string) error
}

// retryBackoff spaces retry attempts linearly: 30s, 60s, 90s.
const retryBackoff = 30 * time.Second

// MemoryStorage implements Storage in memory. For tests and single-process
// deployments; distributed setups back Storage with a shared database.
type MemoryStorage struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*Task
	now   func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		tasks: make(map[uuid.UUID]*Task),
		now:   time.Now,
	}
}

func (s *MemoryStorage) CreateTask(_ context.Context, task *Task) error {
	if task == nil {
		return errors.New("dispatch: task cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *task
	s.tasks[task.ID] = &cp
	return nil
}

func (s *MemoryStorage) ClaimTask(_ context.Context) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var best *Task
	for _, task := range s.tasks {
		if task.Status != TaskStatusPending || task.ScheduledAt.After(now) {
			continue
		}
		if best == nil ||
			task.Priority > best.Priority ||
			(task.Priority == best.Priority && task.ScheduledAt.Before(best.ScheduledAt)) {
			best = task
		}
	}
	if best == nil {
		return nil, ErrNoTask
	}

	best.Status = TaskStatusProcessing
	cp := *best
	return &cp, nil
}

func (s *MemoryStorage) CompleteTask(_ context.Context, id uuid.UUID, status TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	task.Status = status
	return nil
}

func (s *MemoryStorage) FailTask(_ context.Context, id uuid.UUID, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	task.RetryCount++
	task.Error = &errorMsg
	if task.RetryCount >= task.MaxRetries {
		task.Status = TaskStatusFailed
		return nil
	}
	task.Status = TaskStatusPending
	task.ScheduledAt = s.now().Add(time.Duration(task.RetryCount) * retryBackoff)
	return nil
}

// Task returns a copy of the stored task. Test helper.
func (s *MemoryStorage) Task(id uuid.UUID) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

// Tasks returns copies of all stored tasks. Test helper.
func (s *MemoryStorage) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		out = append(out, *task)
	}
	return out
}
