package engine_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fsmkit/pkg/fsm/engine"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	t.Run("removes dotted paths", func(t *testing.T) {
		t.Parallel()
		s := engine.NewSanitizer([]string{"metadata.payment.token", "secret"}, 0)
		in := map[string]any{
			"secret": "shh",
			"metadata": map[string]any{
				"payment": map[string]any{"token": "tok_1", "amount": 99, "card_last4": "4242"},
				"source":  "web",
			},
		}

		out := s.Sanitize(in)
		assert.NotContains(t, out, "secret")
		payment := out["metadata"].(map[string]any)["payment"].(map[string]any)
		assert.NotContains(t, payment, "token")
		assert.Equal(t, 99, payment["amount"])
		assert.Equal(t, "4242", payment["card_last4"])
		assert.Equal(t, "web", out["metadata"].(map[string]any)["source"])
	})

	t.Run("wildcard segment matches any key", func(t *testing.T) {
		t.Parallel()
		s := engine.NewSanitizer([]string{"*.password"}, 0)
		in := map[string]any{
			"admin": map[string]any{"password": "a", "name": "root"},
			"user":  map[string]any{"password": "b", "name": "joe"},
		}

		out := s.Sanitize(in)
		assert.NotContains(t, out["admin"].(map[string]any), "password")
		assert.NotContains(t, out["user"].(map[string]any), "password")
		assert.Equal(t, "root", out["admin"].(map[string]any)["name"])
	})

	t.Run("input map is never mutated", func(t *testing.T) {
		t.Parallel()
		s := engine.NewSanitizer([]string{"nested.key"}, 0)
		in := map[string]any{"nested": map[string]any{"key": "v"}}

		_ = s.Sanitize(in)
		require.Contains(t, in["nested"].(map[string]any), "key")
	})

	t.Run("nil map stays nil", func(t *testing.T) {
		t.Parallel()
		s := engine.NewSanitizer([]string{"a"}, 0)
		assert.Nil(t, s.Sanitize(nil))
	})
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	t.Run("short text passes through", func(t *testing.T) {
		t.Parallel()
		s := engine.NewSanitizer(nil, 10)
		assert.Equal(t, "short", s.Truncate("short"))
	})

	t.Run("exact limit is untouched", func(t *testing.T) {
		t.Parallel()
		s := engine.NewSanitizer(nil, 5)
		assert.Equal(t, "12345", s.Truncate("12345"))
	})

	t.Run("overflow gets an ellipsis", func(t *testing.T) {
		t.Parallel()
		s := engine.NewSanitizer(nil, 5)
		got := s.Truncate(strings.Repeat("a", 20))
		assert.Equal(t, "aaaaa…", got)
	})

	t.Run("multibyte runes are not split", func(t *testing.T) {
		t.Parallel()
		s := engine.NewSanitizer(nil, 3)
		assert.Equal(t, "héé…", s.Truncate("hééééé"))
	})
}
