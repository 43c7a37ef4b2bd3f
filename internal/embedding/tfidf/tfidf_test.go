package tfidf

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("embed before prepare fails", func(t *testing.T) {
		_, err := NewEmbedder().Embed(ctx, "topology")
		assert.Error(t, err)
	})

	t.Run("prepare on empty corpus fails", func(t *testing.T) {
		assert.Error(t, NewEmbedder().Prepare(nil))
	})

	t.Run("vectors are normalized and deterministic", func(t *testing.T) {
		corpus := []string{
			"Knowledge domain: math Representative topics: algebra calculus",
			"Knowledge domain: physics Representative topics: optics mechanics",
		}
		e := NewEmbedder()
		require.NoError(t, e.Prepare(corpus))
		assert.Positive(t, e.Dimension())

		v1, err := e.Embed(ctx, corpus[0])
		require.NoError(t, err)
		v2, err := e.Embed(ctx, corpus[0])
		require.NoError(t, err)
		assert.Equal(t, v1, v2)

		norm := 0.0
		for _, x := range v1 {
			norm += x * x
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
	})

	t.Run("unknown tokens produce the zero vector", func(t *testing.T) {
		e := NewEmbedder()
		require.NoError(t, e.Prepare([]string{"algebra calculus"}))
		v, err := e.Embed(ctx, "zzz qqq")
		require.NoError(t, err)
		for _, x := range v {
			assert.Zero(t, x)
		}
	})

	t.Run("embed is safe against concurrent re-preparation", func(t *testing.T) {
		e := NewEmbedder()
		require.NoError(t, e.Prepare([]string{"algebra calculus", "optics mechanics"}))

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					v, err := e.Embed(ctx, "algebra optics")
					assert.NoError(t, err)
					assert.NotEmpty(t, v)
				}
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.NoError(t, e.Prepare([]string{"algebra calculus", "optics mechanics"}))
			}
		}()
		wg.Wait()
	})
}
