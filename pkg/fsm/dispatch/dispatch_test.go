package dispatch_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
	"github.com/dmitrymomot/fsmkit/pkg/fsm/dispatch"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleInvocation() fsm.Invocation {
	return fsm.Invocation{
		Callable:   "Order.SendReceipt",
		Params:     map[string]any{"template": "receipt_v2"},
		EntityType: "order",
		SubjectID:  "42",
		Column:     "status",
		From:       "pending",
		To:         "paid",
		Event:      "pay",
		Priority:   7,
		OccurredAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func alwaysResolve(subject any) dispatch.SubjectResolverFunc {
	return func(context.Context, string, string) (any, bool, error) {
		return subject, true, nil
	}
}

func TestEnqueuer(t *testing.T) {
	t.Parallel()

	t.Run("stores invocation as pending task", func(t *testing.T) {
		t.Parallel()
		storage := dispatch.NewMemoryStorage()
		enq, err := dispatch.NewEnqueuer(storage)
		require.NoError(t, err)

		require.NoError(t, enq.Dispatch(context.Background(), sampleInvocation()))

		tasks := storage.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, dispatch.TaskName, tasks[0].Name)
		assert.Equal(t, dispatch.TaskStatusPending, tasks[0].Status)
		assert.Equal(t, 7, tasks[0].Priority)
		assert.Equal(t, dispatch.DefaultMaxRetries, tasks[0].MaxRetries)
		assert.NotEmpty(t, tasks[0].Payload)
	})

	t.Run("nil storage is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := dispatch.NewEnqueuer(nil)
		assert.ErrorIs(t, err, dispatch.ErrStorageNil)
	})
}

func TestWorkerProcessOne(t *testing.T) {
	t.Parallel()

	t.Run("executes the invocation against the registry", func(t *testing.T) {
		t.Parallel()
		storage := dispatch.NewMemoryStorage()
		enq, err := dispatch.NewEnqueuer(storage)
		require.NoError(t, err)
		require.NoError(t, enq.Dispatch(context.Background(), sampleInvocation()))

		invoker := fsm.NewInvokerRegistry()
		var calls atomic.Int32
		var gotSubject any
		require.NoError(t, invoker.Register("Order.SendReceipt", func(_ context.Context, in *fsm.Input, params map[string]any) (any, error) {
			calls.Add(1)
			gotSubject = in.Subject
			assert.Equal(t, "receipt_v2", params["template"])
			assert.Equal(t, "pending", in.From)
			assert.Equal(t, "paid", in.To)
			return nil, nil
		}))

		subject := struct{ ID string }{ID: "42"}
		worker, err := dispatch.NewWorker(storage, invoker, alwaysResolve(subject), dispatch.WithWorkerLogger(quietLogger()))
		require.NoError(t, err)

		require.NoError(t, worker.ProcessOne(context.Background()))
		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, subject, gotSubject)

		tasks := storage.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, dispatch.TaskStatusCompleted, tasks[0].Status)
	})

	t.Run("empty queue reports ErrNoTask", func(t *testing.T) {
		t.Parallel()
		worker, err := dispatch.NewWorker(dispatch.NewMemoryStorage(), fsm.NewInvokerRegistry(),
			alwaysResolve(nil), dispatch.WithWorkerLogger(quietLogger()))
		require.NoError(t, err)
		assert.ErrorIs(t, worker.ProcessOne(context.Background()), dispatch.ErrNoTask)
	})

	t.Run("missing subject skips without raising", func(t *testing.T) {
		t.Parallel()
		storage := dispatch.NewMemoryStorage()
		enq, err := dispatch.NewEnqueuer(storage)
		require.NoError(t, err)
		require.NoError(t, enq.Dispatch(context.Background(), sampleInvocation()))

		invoker := fsm.NewInvokerRegistry()
		var calls atomic.Int32
		require.NoError(t, invoker.Register("Order.SendReceipt", func(context.Context, *fsm.Input, map[string]any) (any, error) {
			calls.Add(1)
			return nil, nil
		}))

		gone := dispatch.SubjectResolverFunc(func(context.Context, string, string) (any, bool, error) {
			return nil, false, nil
		})
		worker, err := dispatch.NewWorker(storage, invoker, gone, dispatch.WithWorkerLogger(quietLogger()))
		require.NoError(t, err)

		require.NoError(t, worker.ProcessOne(context.Background()))
		assert.Zero(t, calls.Load(), "callable must not run for a deleted subject")

		tasks := storage.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, dispatch.TaskStatusSkipped, tasks[0].Status)
	})

	t.Run("failing callable retries then fails", func(t *testing.T) {
		t.Parallel()
		storage := dispatch.NewMemoryStorage()
		enq, err := dispatch.NewEnqueuer(storage, dispatch.WithMaxRetries(2))
		require.NoError(t, err)
		require.NoError(t, enq.Dispatch(context.Background(), sampleInvocation()))

		invoker := fsm.NewInvokerRegistry()
		require.NoError(t, invoker.Register("Order.SendReceipt", func(context.Context, *fsm.Input, map[string]any) (any, error) {
			return nil, errors.New("smtp unavailable")
		}))
		worker, err := dispatch.NewWorker(storage, invoker, alwaysResolve(nil), dispatch.WithWorkerLogger(quietLogger()))
		require.NoError(t, err)

		require.NoError(t, worker.ProcessOne(context.Background()))
		tasks := storage.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, dispatch.TaskStatusPending, tasks[0].Status, "first failure reschedules")
		assert.Equal(t, 1, tasks[0].RetryCount)
		require.NotNil(t, tasks[0].Error)
		assert.Contains(t, *tasks[0].Error, "smtp unavailable")

		// The retry is scheduled in the future, so nothing is claimable now.
		assert.ErrorIs(t, worker.ProcessOne(context.Background()), dispatch.ErrNoTask)
	})

	t.Run("unregistered callable fails the task", func(t *testing.T) {
		t.Parallel()
		storage := dispatch.NewMemoryStorage()
		enq, err := dispatch.NewEnqueuer(storage, dispatch.WithMaxRetries(1))
		require.NoError(t, err)
		require.NoError(t, enq.Dispatch(context.Background(), sampleInvocation()))

		worker, err := dispatch.NewWorker(storage, fsm.NewInvokerRegistry(), alwaysResolve(nil), dispatch.WithWorkerLogger(quietLogger()))
		require.NoError(t, err)

		require.NoError(t, worker.ProcessOne(context.Background()))
		tasks := storage.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, dispatch.TaskStatusFailed, tasks[0].Status)
	})
}

func TestMemoryStorageClaimOrder(t *testing.T) {
	t.Parallel()

	storage := dispatch.NewMemoryStorage()
	enq, err := dispatch.NewEnqueuer(storage)
	require.NoError(t, err)

	low := sampleInvocation()
	low.Priority = 1
	low.Callable = "Order.Low"
	high := sampleInvocation()
	high.Priority = 9
	high.Callable = "Order.High"

	require.NoError(t, enq.Dispatch(context.Background(), low))
	require.NoError(t, enq.Dispatch(context.Background(), high))

	first, err := storage.ClaimTask(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, first.Priority, "higher priority claims first")

	second, err := storage.ClaimTask(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.Priority)

	_, err = storage.ClaimTask(context.Background())
	assert.ErrorIs(t, err, dispatch.ErrNoTask)
}

func TestWorkerLifecycle(t *testing.T) {
	t.Parallel()

	worker, err := dispatch.NewWorker(dispatch.NewMemoryStorage(), fsm.NewInvokerRegistry(),
		alwaysResolve(nil),
		dispatch.WithPullInterval(10*time.Millisecond),
		dispatch.WithWorkerLogger(quietLogger()))
	require.NoError(t, err)

	require.NoError(t, worker.Start(context.Background()))
	assert.ErrorIs(t, worker.Start(context.Background()), dispatch.ErrAlreadyRun)
	require.NoError(t, worker.Stop())
	assert.ErrorIs(t, worker.Stop(), dispatch.ErrNotStarted)
}
