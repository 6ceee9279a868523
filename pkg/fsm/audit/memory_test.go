package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fsmkit/pkg/fsm/audit"
)

func TestMemoryStore_Timeline(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := audit.NewMemoryStore()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []audit.Record{
		{ID: "3", SubjectType: "order", SubjectID: "42", Column: "status", FromState: "paid", ToState: "shipped", Result: audit.ResultSuccess, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "1", SubjectType: "order", SubjectID: "42", Column: "status", FromState: "pending", ToState: "paid", Result: audit.ResultSuccess, CreatedAt: base},
		{ID: "2", SubjectType: "order", SubjectID: "42", Column: "status", FromState: "paid", ToState: "refunded", Result: audit.ResultFailure, CreatedAt: base.Add(time.Hour)},
		{ID: "x", SubjectType: "order", SubjectID: "99", Column: "status", CreatedAt: base},
		{ID: "y", SubjectType: "order", SubjectID: "42", Column: "fulfillment", CreatedAt: base},
	}
	for _, rec := range records {
		require.NoError(t, store.Record(ctx, rec))
	}

	t.Run("ascending order scoped to subject and column", func(t *testing.T) {
		t.Parallel()
		got, err := store.Timeline(ctx, audit.TimelineQuery{
			SubjectType: "order", SubjectID: "42", Column: "status",
		})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"1", "2", "3"}, []string{got[0].ID, got[1].ID, got[2].ID})
	})

	t.Run("date bounds", func(t *testing.T) {
		t.Parallel()
		from := base.Add(30 * time.Minute)
		to := base.Add(90 * time.Minute)
		got, err := store.Timeline(ctx, audit.TimelineQuery{
			SubjectType: "order", SubjectID: "42", Column: "status",
			From: &from, To: &to,
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "2", got[0].ID)
	})
}
