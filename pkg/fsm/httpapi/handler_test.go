package httpapi_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
	"github.com/dmitrymomot/fsmkit/pkg/fsm/audit"
	"github.com/dmitrymomot/fsmkit/pkg/fsm/eventlog"
	"github.com/dmitrymomot/fsmkit/pkg/fsm/httpapi"
)

type stubDefs struct {
	def *fsm.RuntimeDefinition
}

func (s stubDefs) Definition(_ context.Context, entityType, column string) (*fsm.RuntimeDefinition, error) {
	if s.def == nil {
		return nil, &fsm.DefinitionNotFoundError{EntityType: entityType, Column: column}
	}
	return s.def, nil
}

func ptr(s string) *string { return &s }

func seededHandler(t *testing.T) *httpapi.Handler {
	t.Helper()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	auditStore := audit.NewMemoryStore()
	require.NoError(t, auditStore.Record(context.Background(), audit.Record{
		ID: "a1", SubjectID: "42", SubjectType: "order", Column: "status",
		FromState: "pending", ToState: "paid", Result: audit.ResultSuccess, CreatedAt: base,
	}))
	require.NoError(t, auditStore.Record(context.Background(), audit.Record{
		ID: "a2", SubjectID: "42", SubjectType: "order", Column: "status",
		FromState: "paid", ToState: "shipped", Result: audit.ResultSuccess, CreatedAt: base.Add(time.Hour),
	}))

	events := eventlog.NewMemoryStore()
	require.NoError(t, events.Append(context.Background(), eventlog.Record{
		ModelType: "order", ModelID: "42", Column: "status",
		ToState: "pending", OccurredAt: base,
	}))
	require.NoError(t, events.Append(context.Background(), eventlog.Record{
		ModelType: "order", ModelID: "42", Column: "status",
		FromState: ptr("pending"), ToState: "paid", OccurredAt: base.Add(time.Hour),
	}))

	def := fsm.New("order", "status").
		Initial("pending").
		From("pending").To("paid").On("pay").
		Guard(fsm.NamedGuard("Order.PaymentCaptured")).
		MustBuild()

	return httpapi.NewHandler(
		httpapi.WithAuditReader(auditStore),
		httpapi.WithEventLog(events),
		httpapi.WithDefinitions(stubDefs{def: def}),
		httpapi.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func get(t *testing.T, h *httpapi.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func TestTimelineEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("returns records in chronological order", func(t *testing.T) {
		t.Parallel()
		rec := get(t, seededHandler(t), "/subjects/order/42/status/timeline")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Timeline []audit.Record `json:"timeline"`
		}
		decode(t, rec, &body)
		require.Len(t, body.Timeline, 2)
		assert.Equal(t, "paid", body.Timeline[0].ToState)
		assert.Equal(t, "shipped", body.Timeline[1].ToState)
	})

	t.Run("date bounds filter", func(t *testing.T) {
		t.Parallel()
		rec := get(t, seededHandler(t), "/subjects/order/42/status/timeline?from=2025-03-01T09%3A30%3A00Z")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Timeline []audit.Record `json:"timeline"`
		}
		decode(t, rec, &body)
		require.Len(t, body.Timeline, 1)
		assert.Equal(t, "shipped", body.Timeline[0].ToState)
	})

	t.Run("malformed bound is a 400", func(t *testing.T) {
		t.Parallel()
		rec := get(t, seededHandler(t), "/subjects/order/42/status/timeline?from=yesterday")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing store is a 404", func(t *testing.T) {
		t.Parallel()
		h := httpapi.NewHandler(httpapi.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		rec := get(t, h, "/subjects/order/42/status/timeline")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestReplayEndpoint(t *testing.T) {
	t.Parallel()

	rec := get(t, seededHandler(t), "/subjects/order/42/status/replay")
	require.Equal(t, http.StatusOK, rec.Code)

	var result eventlog.ReplayResult
	decode(t, rec, &result)
	assert.Nil(t, result.InitialState)
	assert.Equal(t, "paid", result.FinalState)
	assert.Equal(t, 2, result.Count)
}

func TestValidateEndpoint(t *testing.T) {
	t.Parallel()

	rec := get(t, seededHandler(t), "/subjects/order/42/status/validate")
	require.Equal(t, http.StatusOK, rec.Code)

	var result eventlog.ValidationResult
	decode(t, rec, &result)
	assert.True(t, result.Valid)
}

func TestStatisticsEndpoint(t *testing.T) {
	t.Parallel()

	rec := get(t, seededHandler(t), "/subjects/order/42/status/statistics")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats eventlog.Statistics
	decode(t, rec, &stats)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.TransitionFrequency["null -> pending"])
	assert.Equal(t, 1, stats.TransitionFrequency["pending -> paid"])
}

func TestDefinitionEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("summarizes the definition", func(t *testing.T) {
		t.Parallel()
		rec := get(t, seededHandler(t), "/definitions/order/status")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			EntityType   string `json:"entity_type"`
			InitialState string `json:"initial_state"`
			States       []struct {
				Name string `json:"name"`
			} `json:"states"`
			Transitions []struct {
				From   string `json:"from"`
				To     string `json:"to"`
				Event  string `json:"event"`
				Guards int    `json:"guards"`
			} `json:"transitions"`
		}
		decode(t, rec, &body)
		assert.Equal(t, "order", body.EntityType)
		assert.Equal(t, "pending", body.InitialState)
		require.Len(t, body.States, 2)
		assert.Equal(t, "paid", body.States[0].Name)
		require.Len(t, body.Transitions, 1)
		assert.Equal(t, "pay", body.Transitions[0].Event)
		assert.Equal(t, 1, body.Transitions[0].Guards)
	})

	t.Run("unknown machine is a 404", func(t *testing.T) {
		t.Parallel()
		h := httpapi.NewHandler(
			httpapi.WithDefinitions(stubDefs{}),
			httpapi.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		rec := get(t, h, "/definitions/order/status")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDiagramEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("defaults to mermaid", func(t *testing.T) {
		t.Parallel()
		rec := get(t, seededHandler(t), "/diagrams/order/status")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "stateDiagram-v2")
	})

	t.Run("dot on request", func(t *testing.T) {
		t.Parallel()
		rec := get(t, seededHandler(t), "/diagrams/order/status?format=dot")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "digraph")
	})

	t.Run("unknown format is a 400", func(t *testing.T) {
		t.Parallel()
		rec := get(t, seededHandler(t), "/diagrams/order/status?format=png")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
