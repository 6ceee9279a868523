package eventlog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fsmkit/pkg/fsm/eventlog"
)

func ptr(s string) *string { return &s }

func chain(t *testing.T) []eventlog.Record {
	t.Helper()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return []eventlog.Record{
		{ModelType: "order", ModelID: "42", Column: "status", FromState: nil, ToState: "pending", OccurredAt: base},
		{ModelType: "order", ModelID: "42", Column: "status", FromState: ptr("pending"), ToState: "paid", OccurredAt: base.Add(time.Hour)},
		{ModelType: "order", ModelID: "42", Column: "status", FromState: ptr("paid"), ToState: "shipped", OccurredAt: base.Add(2 * time.Hour)},
	}
}

func TestReplay(t *testing.T) {
	t.Parallel()

	t.Run("reduces to endpoints", func(t *testing.T) {
		t.Parallel()
		result := eventlog.Replay(chain(t))
		assert.Nil(t, result.InitialState)
		assert.Equal(t, "shipped", result.FinalState)
		assert.Equal(t, 3, result.Count)
		assert.Len(t, result.Transitions, 3)
	})

	t.Run("empty stream", func(t *testing.T) {
		t.Parallel()
		result := eventlog.Replay(nil)
		assert.Zero(t, result.Count)
		assert.Empty(t, result.FinalState)
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	t.Run("unbroken chain is valid", func(t *testing.T) {
		t.Parallel()
		result := eventlog.Validate(chain(t))
		assert.True(t, result.Valid)
		assert.Empty(t, result.Errors)
	})

	t.Run("first record exempt from matching", func(t *testing.T) {
		t.Parallel()
		records := chain(t)[:1]
		assert.True(t, eventlog.Validate(records).Valid)
	})

	t.Run("mismatch names the broken pair", func(t *testing.T) {
		t.Parallel()
		records := chain(t)
		records[2].FromState = ptr("refunded")

		result := eventlog.Validate(records)
		assert.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "refunded")
		assert.Contains(t, result.Errors[0], "paid")
	})
}

func TestStats(t *testing.T) {
	t.Parallel()

	stats := eventlog.Stats(chain(t))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.UniqueStates)
	assert.Equal(t, 2, stats.StateFrequency["pending"])
	assert.Equal(t, 2, stats.StateFrequency["paid"])
	assert.Equal(t, 1, stats.StateFrequency["shipped"])
	assert.Equal(t, 1, stats.TransitionFrequency["null -> pending"])
	assert.Equal(t, 1, stats.TransitionFrequency["pending -> paid"])
	assert.Equal(t, 1, stats.TransitionFrequency["paid -> shipped"])
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	store := eventlog.NewMemoryStore()
	ctx := context.Background()
	records := chain(t)
	// Append out of order; List must return chronological order.
	require.NoError(t, store.Append(ctx, records[2]))
	require.NoError(t, store.Append(ctx, records[0]))
	require.NoError(t, store.Append(ctx, records[1]))
	require.NoError(t, store.Append(ctx, eventlog.Record{ModelType: "invoice", ModelID: "1", Column: "status", ToState: "sent"}))

	got, err := store.List(ctx, "order", "42", "status")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "pending", got[0].ToState)
	assert.Equal(t, "shipped", got[2].ToState)
}
