package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
)

// SubjectResolver loads the stateful record a queued invocation refers to.
// Returning found=false is not an error: the subject was deleted between
// enqueue and execution and the task is skipped with a warning.
type SubjectResolver interface {
	Resolve(ctx context.Context, entityType, id string) (subject any, found bool, err error)
}

// SubjectResolverFunc adapts a function to the SubjectResolver interface.
type SubjectResolverFunc func(ctx context.Context, entityType, id string) (any, bool, error)

func (f SubjectResolverFunc) Resolve(ctx context.Context, entityType, id string) (any, bool, error) {
	return f(ctx, entityType, id)
}

// Worker pulls queued invocations from storage and executes them against the
// invoker registry. One worker handles one task at a time per pull tick;
// run several workers for parallelism.
type Worker struct {
	storage      Storage
	invoker      *fsm.InvokerRegistry
	resolver     SubjectResolver
	pullInterval time.Duration
	log          *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithPullInterval sets how often the worker polls storage for due tasks.
func WithPullInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.pullInterval = d
		}
	}
}

// WithWorkerLogger sets the worker's structured logger.
func WithWorkerLogger(log *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if log != nil {
			w.log = log
		}
	}
}

func NewWorker(storage Storage, invoker *fsm.InvokerRegistry, resolver SubjectResolver, opts ...WorkerOption) (*Worker, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	if invoker == nil {
		return nil, ErrInvokerNil
	}
	if resolver == nil {
		return nil, ErrResolverNil
	}
	w := &Worker{
		storage:      storage,
		invoker:      invoker,
		resolver:     resolver,
		pullInterval: 5 * time.Second,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins pulling tasks in the background until Stop or context
// cancellation.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return ErrAlreadyRun
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	go w.run(runCtx)
	w.log.Info("dispatch worker started", slog.Duration("pull_interval", w.pullInterval))
	return nil
}

// Stop shuts the worker down, waiting for the in-flight task to finish.
func (w *Worker) Stop() error {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()
	if cancel == nil {
		return ErrNotStarted
	}
	cancel()
	w.wg.Wait()
	w.log.Info("dispatch worker stopped")
	return nil
}

// Run returns a function suitable for errgroup: start, block on the context,
// then stop.
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return w.Stop()
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pullInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.DrainOnce(ctx)
		}
	}
}

// DrainOnce processes due tasks until storage reports none left. Exposed for
// tests and for hosts that drive the queue from their own scheduler.
func (w *Worker) DrainOnce(ctx context.Context) {
	for {
		if err := w.ProcessOne(ctx); err != nil {
			if !errors.Is(err, ErrNoTask) {
				w.log.Error("task processing failed", slog.Any("error", err))
			}
			return
		}
	}
}

// ProcessOne claims and executes a single task. Returns ErrNoTask when the
// queue is empty.
func (w *Worker) ProcessOne(ctx context.Context) error {
	task, err := w.storage.ClaimTask(ctx)
	if err != nil {
		return err
	}
	if task.Name != TaskName {
		msg := fmt.Sprintf("%v: %q", ErrUnknownTask, task.Name)
		if ferr := w.storage.FailTask(ctx, task.ID, msg); ferr != nil {
			return ferr
		}
		return nil
	}

	var inv fsm.Invocation
	if err := json.Unmarshal(task.Payload, &inv); err != nil {
		if ferr := w.storage.FailTask(ctx, task.ID, "decode invocation: "+err.Error()); ferr != nil {
			return ferr
		}
		return nil
	}

	subject, found, err := w.resolver.Resolve(ctx, inv.EntityType, inv.SubjectID)
	if err != nil {
		if ferr := w.storage.FailTask(ctx, task.ID, "resolve subject: "+err.Error()); ferr != nil {
			return ferr
		}
		return nil
	}
	if !found {
		// Subject deleted after enqueue: skip, never raise.
		w.log.Warn("queued invocation skipped, subject not found",
			slog.String("callable", inv.Callable),
			slog.String("entity_type", inv.EntityType),
			slog.String("subject_id", inv.SubjectID))
		return w.storage.CompleteTask(ctx, task.ID, TaskStatusSkipped)
	}

	in := inv.Rehydrate(subject)
	if _, err := w.invoker.Invoke(ctx, fsm.Ref(inv.Callable), in, inv.Params); err != nil {
		w.log.Error("queued invocation failed",
			slog.String("callable", inv.Callable),
			slog.String("entity_type", inv.EntityType),
			slog.String("subject_id", inv.SubjectID),
			slog.Int("retry_count", task.RetryCount),
			slog.Any("error", err))
		return w.storage.FailTask(ctx, task.ID, err.Error())
	}

	w.log.Info("queued invocation completed",
		slog.String("callable", inv.Callable),
		slog.String("entity_type", inv.EntityType),
		slog.String("subject_id", inv.SubjectID))
	return w.storage.CompleteTask(ctx, task.ID, TaskStatusCompleted)
}
