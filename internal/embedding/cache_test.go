package embedding

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCompute(t *testing.T) {
	t.Run("computes once per key", func(t *testing.T) {
		c := NewCache(8, time.Minute)
		calls := 0
		compute := func() ([]float64, error) {
			calls++
			return []float64{1, 2, 3}, nil
		}

		first, err := c.GetOrCompute("math", compute)
		require.NoError(t, err)
		second, err := c.GetOrCompute("math", compute)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, calls)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		c := NewCache(8, time.Minute)
		_, err := c.GetOrCompute("math", func() ([]float64, error) {
			return nil, errors.New("provider down")
		})
		require.Error(t, err)

		v, err := c.GetOrCompute("math", func() ([]float64, error) {
			return []float64{1}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []float64{1}, v)
	})

	t.Run("size bound evicts old entries", func(t *testing.T) {
		c := NewCache(2, time.Minute)
		for _, key := range []string{"a", "b", "c"} {
			_, err := c.GetOrCompute(key, func() ([]float64, error) { return []float64{1}, nil })
			require.NoError(t, err)
		}
		assert.Equal(t, 2, c.Len())
	})

	t.Run("purge drops everything", func(t *testing.T) {
		c := NewCache(8, time.Minute)
		_, err := c.GetOrCompute("a", func() ([]float64, error) { return []float64{1}, nil })
		require.NoError(t, err)
		c.Purge()
		assert.Equal(t, 0, c.Len())
	})
}
