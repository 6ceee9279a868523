package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
)

// DefaultMaxRetries bounds worker attempts per queued invocation.
const DefaultMaxRetries = 3

// Enqueuer serializes queued invocations into task storage. It satisfies the
// engine's Dispatcher interface, so wiring async execution is one option:
//
//	eng, err := engine.New(reg, store, engine.WithDispatcher(enqueuer))
type Enqueuer struct {
	storage    Storage
	maxRetries int
}

// EnqueuerOption configures an Enqueuer.
type EnqueuerOption func(*Enqueuer)

// WithMaxRetries overrides the retry budget of enqueued tasks.
func WithMaxRetries(n int) EnqueuerOption {
	return func(e *Enqueuer) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

func NewEnqueuer(storage Storage, opts ...EnqueuerOption) (*Enqueuer, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	e := &Enqueuer{storage: storage, maxRetries: DefaultMaxRetries}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Dispatch stores the invocation as a pending task. The invocation arrives
// already flattened: a named callable plus the serializable transition input.
func (e *Enqueuer) Dispatch(ctx context.Context, inv fsm.Invocation) error {
	payload, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("marshal invocation %q: %w", inv.Callable, err)
	}
	now := time.Now()
	task := &Task{
		ID:          uuid.New(),
		Name:        TaskName,
		Payload:     payload,
		Status:      TaskStatusPending,
		Priority:    inv.Priority,
		MaxRetries:  e.maxRetries,
		ScheduledAt: now,
		CreatedAt:   now,
	}
	if err := e.storage.CreateTask(ctx, task); err != nil {
		return fmt.Errorf("enqueue invocation %q: %w", inv.Callable, err)
	}
	return nil
}
