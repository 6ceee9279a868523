package fsm_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
)

type testExtension struct {
	name     string
	priority int
	entity   string
	column   string
	extend   func(b *fsm.Builder) error
}

func (e *testExtension) Name() string  { return e.name }
func (e *testExtension) Priority() int { return e.priority }
func (e *testExtension) AppliesTo(entityType, column string) bool {
	return entityType == e.entity && column == e.column
}
func (e *testExtension) Extend(b *fsm.Builder) error {
	if e.extend != nil {
		return e.extend(b)
	}
	return nil
}

func TestExtensionRegistry_Ordering(t *testing.T) {
	t.Parallel()

	reg, err := fsm.NewExtensionRegistry()
	require.NoError(t, err)

	reg.Register(&testExtension{name: "low", priority: 1, entity: "order", column: "status"})
	reg.Register(&testExtension{name: "high", priority: 100, entity: "order", column: "status"})
	reg.Register(&testExtension{name: "tie-a", priority: 50, entity: "order", column: "status"})
	reg.Register(&testExtension{name: "tie-b", priority: 50, entity: "order", column: "status"})
	reg.Register(&testExtension{name: "other", priority: 99, entity: "invoice", column: "status"})

	got := reg.ExtensionsFor("order", "status")
	require.Len(t, got, 4)
	names := make([]string, len(got))
	for i, ext := range got {
		names[i] = ext.Name()
	}
	// Descending priority, registration order breaking the 50/50 tie.
	assert.Equal(t, []string{"high", "tie-a", "tie-b", "low"}, names)
}

func TestExtensionRegistry_Apply(t *testing.T) {
	t.Parallel()

	reg, err := fsm.NewExtensionRegistry()
	require.NoError(t, err)

	reg.RegisterStatePatch(fsm.StatePatch{
		EntityType: "order", Column: "status", Priority: 10, Override: true,
		State: fsm.StateDefinition{Name: "refunded", Terminal: true},
	})
	reg.RegisterTransitionPatch(fsm.TransitionPatch{
		EntityType: "order", Column: "status", Override: true,
		Transition: fsm.TransitionDefinition{From: "paid", To: "refunded", Event: "refund"},
	})
	reg.Register(&testExtension{
		name: "audit-hook", priority: 5, entity: "order", column: "status",
		extend: func(b *fsm.Builder) error {
			b.State("flagged")
			return nil
		},
	})

	b := fsm.New("order", "status").
		From("pending").To("paid").On("pay")
	require.NoError(t, reg.Apply(b))

	def, err := b.Build()
	require.NoError(t, err)

	refunded, ok := def.State("refunded")
	require.True(t, ok)
	assert.True(t, refunded.Terminal)

	_, ok = def.State("flagged")
	assert.True(t, ok)

	_, ok = def.FindTransition("paid", "refunded", "refund")
	assert.True(t, ok)
}

func TestLoadExtensionConfig(t *testing.T) {
	t.Parallel()

	t.Run("missing file yields empty results", func(t *testing.T) {
		t.Parallel()
		states, transitions, err := fsm.LoadExtensionConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Empty(t, states)
		assert.Empty(t, transitions)
	})

	t.Run("parses declarations", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "fsm_overrides.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
states:
  - entity_type: order
    column: status
    override: true
    priority: 10
    name: refunded
    terminal: true
    metadata:
      reason_required: true
transitions:
  - entity_type: order
    column: status
    from: paid
    to: refunded
    event: refund
    guards:
      - callable: refund_window_open
        description: refund window still open
        priority: 5
    actions:
      - callable: notify_customer
        timing: after
        queued: true
`), 0o644))

		states, transitions, err := fsm.LoadExtensionConfig(path)
		require.NoError(t, err)

		require.Len(t, states, 1)
		assert.Equal(t, "order", states[0].EntityType)
		assert.True(t, states[0].Override)
		assert.True(t, states[0].State.Terminal)
		assert.Equal(t, true, states[0].State.Metadata["reason_required"])

		require.Len(t, transitions, 1)
		tr := transitions[0].Transition
		assert.Equal(t, "paid", tr.From)
		require.Len(t, tr.Guards, 1)
		name, ok := tr.Guards[0].Callable.Ref()
		require.True(t, ok)
		assert.Equal(t, "refund_window_open", name)
		require.Len(t, tr.Actions, 1)
		assert.True(t, tr.Actions[0].Queued)
		assert.Equal(t, fsm.TimingAfter, tr.Actions[0].Timing)
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("states: {not: [valid"), 0o644))
		_, _, err := fsm.LoadExtensionConfig(path)
		require.Error(t, err)
	})
}
