package diagram_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
	"github.com/dmitrymomot/fsmkit/pkg/fsm/diagram"
)

func orderDefinition(t *testing.T) *fsm.RuntimeDefinition {
	t.Helper()
	return fsm.New("order", "status").
		Initial("pending").
		State("shipped", func(s *fsm.StateBuilder) { s.Terminal() }).
		From("pending").To("paid").On("pay").
		Guard(fsm.NamedGuard("Order.PaymentCaptured")).
		From("paid").To("shipped").On("ship").
		FromAny().To("canceled").On("cancel").
		MustBuild()
}

func TestMermaid(t *testing.T) {
	t.Parallel()

	got := diagram.Mermaid(orderDefinition(t))

	assert.Contains(t, got, "stateDiagram-v2\n")
	assert.Contains(t, got, "[*] --> pending\n")
	assert.Contains(t, got, "pending --> paid : pay\n")
	assert.Contains(t, got, "paid --> shipped : ship\n")
	assert.Contains(t, got, "any_state --> canceled : cancel\n")
	assert.Contains(t, got, "shipped --> [*]\n")

	// Deterministic output.
	assert.Equal(t, got, diagram.Mermaid(orderDefinition(t)))
}

func TestDOT(t *testing.T) {
	t.Parallel()

	got := diagram.DOT(orderDefinition(t))

	assert.Contains(t, got, `digraph "order_status" {`)
	assert.Contains(t, got, `"shipped" [label="shipped", shape=doublecircle];`)
	assert.Contains(t, got, `__start -> "pending";`)
	assert.Contains(t, got, `"pending" -> "paid" [label="pay", style=dashed];`)
	assert.Contains(t, got, `"paid" -> "shipped" [label="ship"];`)
	assert.Contains(t, got, `"any_state" -> "canceled" [label="cancel"];`)
}

func TestRender(t *testing.T) {
	t.Parallel()

	def := orderDefinition(t)

	mmd, err := diagram.Render(def, diagram.FormatMermaid)
	require.NoError(t, err)
	assert.Equal(t, diagram.Mermaid(def), mmd)

	dot, err := diagram.Render(def, diagram.FormatDOT)
	require.NoError(t, err)
	assert.Equal(t, diagram.DOT(def), dot)

	_, err = diagram.Render(def, diagram.Format("svg"))
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	def := orderDefinition(t)

	require.NoError(t, diagram.Export(dir, []*fsm.RuntimeDefinition{def}, diagram.FormatMermaid, diagram.FormatDOT))

	mmd, err := os.ReadFile(filepath.Join(dir, "order_status.mmd"))
	require.NoError(t, err)
	assert.Equal(t, diagram.Mermaid(def), string(mmd))

	dot, err := os.ReadFile(filepath.Join(dir, "order_status.dot"))
	require.NoError(t, err)
	assert.Equal(t, diagram.DOT(def), string(dot))
}

func TestFileName(t *testing.T) {
	t.Parallel()

	def := fsm.New("Invoice", "Payment Status").Initial("draft").MustBuild()
	assert.Equal(t, "invoice_payment_status.mmd", diagram.FileName(def, diagram.FormatMermaid))
}
