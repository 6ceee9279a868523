package fsm_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
)

func passingGuard(calls *atomic.Int32) fsm.Guard {
	return fsm.GuardFunc(func(ctx context.Context, in *fsm.Input, params map[string]any) (bool, error) {
		calls.Add(1)
		return true, nil
	})
}

func failingGuard(calls *atomic.Int32, desc string) fsm.Guard {
	return fsm.GuardFunc(func(ctx context.Context, in *fsm.Input, params map[string]any) (bool, error) {
		calls.Add(1)
		return false, nil
	}).WithDescription(desc)
}

func erroringGuard(calls *atomic.Int32, err error) fsm.Guard {
	return fsm.GuardFunc(func(ctx context.Context, in *fsm.Input, params map[string]any) (bool, error) {
		calls.Add(1)
		return false, err
	})
}

func TestEvaluateGuards_AllMustPass(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	in := &fsm.Input{}

	t.Run("all pass", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		err := fsm.EvaluateGuards(ctx, fsm.AllMustPass,
			[]fsm.Guard{passingGuard(&calls), passingGuard(&calls)}, in, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("failures accumulate and report jointly", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		err := fsm.EvaluateGuards(ctx, fsm.AllMustPass,
			[]fsm.Guard{failingGuard(&calls, "first"), failingGuard(&calls, "second")}, in, nil, nil)
		require.Error(t, err)
		assert.Equal(t, int32(2), calls.Load())

		var guardErr *fsm.GuardError
		require.ErrorAs(t, err, &guardErr)
		require.Len(t, guardErr.Failures, 2)
		assert.Contains(t, err.Error(), "first")
		assert.Contains(t, err.Error(), "second")
	})

	t.Run("stop on failure short-circuits siblings", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		guards := []fsm.Guard{
			failingGuard(&calls, "critical").Critical().WithPriority(10),
			passingGuard(&calls),
		}
		err := fsm.EvaluateGuards(ctx, fsm.AllMustPass, guards, in, nil, nil)
		require.Error(t, err)
		// The second guard must never run.
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("priority orders evaluation descending", func(t *testing.T) {
		t.Parallel()
		var order []string
		record := func(name string, verdict bool) fsm.Guard {
			return fsm.GuardFunc(func(ctx context.Context, in *fsm.Input, params map[string]any) (bool, error) {
				order = append(order, name)
				return verdict, nil
			})
		}
		guards := []fsm.Guard{
			record("low", true).WithPriority(1),
			record("high", true).WithPriority(100),
			record("mid", true).WithPriority(50),
		}
		require.NoError(t, fsm.EvaluateGuards(ctx, fsm.AllMustPass, guards, in, nil, nil))
		assert.Equal(t, []string{"high", "mid", "low"}, order)
	})

	t.Run("guard error preserved as failure cause", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		boom := errors.New("boom")
		err := fsm.EvaluateGuards(ctx, fsm.AllMustPass,
			[]fsm.Guard{erroringGuard(&calls, boom)}, in, nil, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
	})
}

func TestEvaluateGuards_AnyMustPass(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	in := &fsm.Input{}

	t.Run("short-circuits on first pass", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		guards := []fsm.Guard{
			passingGuard(&calls).WithPriority(10),
			failingGuard(&calls, "never evaluated").WithPriority(1),
		}
		require.NoError(t, fsm.EvaluateGuards(ctx, fsm.AnyMustPass, guards, in, nil, nil))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("all fail joins reasons", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		err := fsm.EvaluateGuards(ctx, fsm.AnyMustPass,
			[]fsm.Guard{failingGuard(&calls, "a"), failingGuard(&calls, "b")}, in, nil, nil)
		require.Error(t, err)
		var guardErr *fsm.GuardError
		require.ErrorAs(t, err, &guardErr)
		assert.Len(t, guardErr.Failures, 2)
	})
}

func TestEvaluateGuards_PriorityFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	in := &fsm.Input{}

	t.Run("first passing wins", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		guards := []fsm.Guard{
			failingGuard(&calls, "first"),
			passingGuard(&calls),
			failingGuard(&calls, "unreached"),
		}
		require.NoError(t, fsm.EvaluateGuards(ctx, fsm.PriorityFirst, guards, in, nil, nil))
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("errors are swallowed and reported", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		var reported []error
		boom := errors.New("boom")
		guards := []fsm.Guard{
			erroringGuard(&calls, boom).WithPriority(10),
			passingGuard(&calls),
		}
		err := fsm.EvaluateGuards(ctx, fsm.PriorityFirst, guards, in, nil,
			func(ctx context.Context, err error) { reported = append(reported, err) })
		require.NoError(t, err)
		require.Len(t, reported, 1)
		assert.ErrorIs(t, reported[0], boom)
	})

	t.Run("all failed or thrown", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		guards := []fsm.Guard{
			erroringGuard(&calls, errors.New("boom")),
			failingGuard(&calls, "no"),
		}
		err := fsm.EvaluateGuards(ctx, fsm.PriorityFirst, guards, in, nil, nil)
		require.Error(t, err)
		assert.True(t, fsm.IsGuardRejected(err))
	})
}
