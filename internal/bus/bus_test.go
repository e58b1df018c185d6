package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus(t *testing.T) {
	t.Run("publishes in registration order", func(t *testing.T) {
		b := New()
		var calls []string
		b.Subscribe(func() { calls = append(calls, "first") })
		b.Subscribe(func() { calls = append(calls, "second") })
		b.Subscribe(func() { calls = append(calls, "third") })

		b.Publish()

		assert.Equal(t, []string{"first", "second", "third"}, calls)
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		b := New()
		count := 0
		unsubscribe := b.Subscribe(func() { count++ })

		b.Publish()
		unsubscribe()
		b.Publish()

		assert.Equal(t, 1, count)

		// Second call is a no-op.
		unsubscribe()
		b.Publish()
		assert.Equal(t, 1, count)
	})

	t.Run("a panicking listener does not block the rest", func(t *testing.T) {
		b := New()
		reached := false
		b.Subscribe(func() { panic("boom") })
		b.Subscribe(func() { reached = true })

		assert.NotPanics(t, b.Publish)
		assert.True(t, reached)
	})

	t.Run("publish with no subscribers", func(t *testing.T) {
		assert.NotPanics(t, New().Publish)
	})
}
