package payload

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	c := NewCache()

	t.Run("EmptyOnCreate", func(t *testing.T) {
		p, ok := c.Load()
		assert.False(t, ok)
		assert.True(t, p.Empty())
		assert.True(t, c.StoredAt().IsZero())
	})

	t.Run("StoreLoad", func(t *testing.T) {
		require.NoError(t, c.Store("Zmlyc3Q="))
		p, ok := c.Load()
		assert.True(t, ok)
		assert.Equal(t, Payload("Zmlyc3Q="), p)
		assert.False(t, c.StoredAt().IsZero())
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, c.Store("c2Vjb25k"))
		p, _ := c.Load()
		assert.Equal(t, Payload("c2Vjb25k"), p)
	})

	t.Run("RejectEmpty", func(t *testing.T) {
		err := c.Store("")
		assert.True(t, errors.Is(err, ErrEmptyPayload))
		p, ok := c.Load()
		assert.True(t, ok)
		assert.Equal(t, Payload("c2Vjb25k"), p, "rejected store must leave contents untouched")
	})

	t.Run("Clear", func(t *testing.T) {
		c.Clear()
		_, ok := c.Load()
		assert.False(t, ok)
	})
}
