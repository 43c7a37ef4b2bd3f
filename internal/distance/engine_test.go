package distance

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verbum/internal/domain"
	"verbum/internal/embedding"
	"verbum/internal/embedding/tfidf"
	"verbum/internal/hierarchy"
	"verbum/internal/summarizer"
)

// stubEmbedder returns a fixed vector per distinct input text.
type stubEmbedder struct {
	vectors  map[string][]float64
	fallback []float64
	fail     map[string]bool
}

func (s *stubEmbedder) Name() string { return "stub" }

func (s *stubEmbedder) Prepare(corpus []string) error { return nil }

func (s *stubEmbedder) Dimension() int { return len(s.fallback) }
func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if s.fail[text] {
		return nil, errors.New("provider unavailable")
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return s.fallback, nil
}

// stubProfile is a fixed ProfileSource.
type stubProfile struct {
	summary string
	weights map[string]float64
}

func (s *stubProfile) Summarize() string { return s.summary }
func (s *stubProfile) DomainWeight(name string) (float64, bool) {
	w, ok := s.weights[name]
	return w, ok
}

// newLandscape builds a root with folder A (one PDF) and folder B (empty).
func newLandscape(t *testing.T) *hierarchy.Walker {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "A"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "B"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "A", "Intro_to_Topology.pdf"), []byte("%PDF"), 0o644))
	return hierarchy.NewWalker(root, nil)
}

func newEngine(t *testing.T, walker *hierarchy.Walker, emb *stubEmbedder, prof *stubProfile) *Engine {
	t.Helper()
	cache := embedding.NewCache(16, time.Minute)
	return NewEngine(walker, summarizer.NewFolderSummarizer(walker, nil), prof, emb, cache, 2, nil)
}

func TestWeighted(t *testing.T) {
	v := []float64{1, -2, 3}

	t.Run("weight one is identity", func(t *testing.T) {
		assert.Equal(t, v, Weighted(v, 1.0))
	})

	t.Run("weight zero is the zero vector", func(t *testing.T) {
		zero := Weighted(v, 0.0)
		assert.Equal(t, []float64{0, 0, 0}, zero)
		d, degenerate := cosineDistance(zero, v)
		assert.True(t, degenerate)
		assert.Equal(t, 1.0, d)
	})

	t.Run("weight scales components linearly", func(t *testing.T) {
		assert.Equal(t, []float64{0.5, -1, 1.5}, Weighted(v, 0.5))
	})
}

func TestCosineDistance(t *testing.T) {
	t.Run("identical vectors have distance zero", func(t *testing.T) {
		d, _ := cosineDistance([]float64{1, 2}, []float64{1, 2})
		assert.InDelta(t, 0.0, d, 1e-9)
	})

	t.Run("symmetric", func(t *testing.T) {
		a, b := []float64{1, 0, 2}, []float64{-1, 3, 0.5}
		d1, _ := cosineDistance(a, b)
		d2, _ := cosineDistance(b, a)
		assert.Equal(t, d1, d2)
	})

	t.Run("opposite vectors approach two", func(t *testing.T) {
		d, _ := cosineDistance([]float64{1, 0}, []float64{-1, 0})
		assert.InDelta(t, 2.0, d, 1e-9)
	})

	t.Run("magnitude scaling does not change the angle", func(t *testing.T) {
		a, b := []float64{1, 2}, []float64{2, 1}
		d1, _ := cosineDistance(a, b)
		d2, _ := cosineDistance(Weighted(a, 0.3), b)
		assert.InDelta(t, d1, d2, 1e-9)
	})

	t.Run("mismatched lengths are degenerate, never truncated", func(t *testing.T) {
		d, degenerate := cosineDistance([]float64{1, 0, 0}, []float64{1, 0})
		assert.True(t, degenerate)
		assert.Equal(t, 1.0, d)
	})
}

func TestComputeLevel0(t *testing.T) {
	meVec := []float64{1, 0}
	folderVec := []float64{1, 1}

	t.Run("empty folder is excluded and distance matches the formula", func(t *testing.T) {
		walker := newLandscape(t)
		prof := &stubProfile{summary: "me profile", weights: map[string]float64{"A": 1.0}}
		emb := &stubEmbedder{
			vectors:  map[string][]float64{"me profile": meVec},
			fallback: folderVec,
		}
		matrix := newEngine(t, walker, emb, prof).ComputeLevel0(context.Background())

		assert.Equal(t, []string{"Me", "A"}, matrix.Nodes)
		require.Len(t, matrix.Distances, 1)
		want := 1 - 1/math.Sqrt2 // cos between (1,0) and (1,1)
		assert.InDelta(t, want, matrix.Distances["Me|A"], 1e-9)
	})

	t.Run("provider failure excludes only that node", func(t *testing.T) {
		walker := newLandscape(t)
		prof := &stubProfile{summary: "me profile", weights: map[string]float64{}}
		emb := &stubEmbedder{
			vectors:  map[string][]float64{"me profile": meVec},
			fallback: folderVec,
			fail:     map[string]bool{"Knowledge domain: A Representative topics: Intro to Topology": true},
		}
		matrix := newEngine(t, walker, emb, prof).ComputeLevel0(context.Background())

		assert.Equal(t, []string{"Me"}, matrix.Nodes)
		assert.Empty(t, matrix.Distances)
	})

	t.Run("no embedder yields an empty matrix", func(t *testing.T) {
		walker := newLandscape(t)
		prof := &stubProfile{summary: "me profile"}
		engine := NewEngine(walker, summarizer.NewFolderSummarizer(walker, nil), prof, nil, embedding.NewCache(4, 0), 1, nil)
		matrix := engine.ComputeLevel0(context.Background())

		assert.Empty(t, matrix.Nodes)
		assert.Empty(t, matrix.Distances)
	})

	t.Run("default weight applies to unknown domains", func(t *testing.T) {
		walker := newLandscape(t)
		prof := &stubProfile{summary: "me profile", weights: map[string]float64{}}
		emb := &stubEmbedder{
			vectors:  map[string][]float64{"me profile": meVec},
			fallback: folderVec,
		}
		matrix := newEngine(t, walker, emb, prof).ComputeLevel0(context.Background())

		// cosine distance is scale-invariant, so the 0.5 default weight
		// yields the same angle; the point is the node still participates.
		require.Contains(t, matrix.Distances, "Me|A")
		want := 1 - 1/math.Sqrt2
		assert.InDelta(t, want, matrix.Distances["Me|A"], 1e-9)
	})

	t.Run("repeated calls are deterministic", func(t *testing.T) {
		walker := newLandscape(t)
		prof := &stubProfile{summary: "me profile", weights: map[string]float64{"A": 0.8}}
		emb := &stubEmbedder{
			vectors:  map[string][]float64{"me profile": meVec},
			fallback: folderVec,
		}
		engine := newEngine(t, walker, emb, prof)

		first := engine.ComputeLevel0(context.Background())
		second := engine.ComputeLevel0(context.Background())
		assert.Equal(t, first.Nodes, second.Nodes)
		assert.Equal(t, first.Distances, second.Distances)
	})

	t.Run("zero weight triggers the zero-norm fallback", func(t *testing.T) {
		walker := newLandscape(t)
		prof := &stubProfile{summary: "me profile", weights: map[string]float64{"A": 0.0}}
		emb := &stubEmbedder{
			vectors:  map[string][]float64{"me profile": meVec},
			fallback: folderVec,
		}
		matrix := newEngine(t, walker, emb, prof).ComputeLevel0(context.Background())

		require.Contains(t, matrix.Distances, "Me|A")
		assert.Equal(t, 1.0, matrix.Distances["Me|A"])
	})
}

// newCorpusLandscape builds a root with two folders whose documents give a
// TF-IDF vocabulary distinct terms.
func newCorpusLandscape(t *testing.T) *hierarchy.Walker {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Algebra"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Biology"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Algebra", "Group_Theory.txt"), []byte("groups"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Biology", "Cell_Structure.txt"), []byte("cells"), 0o644))
	return hierarchy.NewWalker(root, nil)
}

func TestComputeLevel0CachedVectorsSurviveProfileChanges(t *testing.T) {
	walker := newCorpusLandscape(t)
	prof := &stubProfile{summary: "Personal knowledge profile", weights: map[string]float64{}}
	engine := NewEngine(walker, summarizer.NewFolderSummarizer(walker, nil), prof,
		tfidf.NewEmbedder(), embedding.NewCache(16, time.Minute), 2, nil)

	first := engine.ComputeLevel0(context.Background())
	require.Equal(t, []string{"Me", "Algebra", "Biology"}, first.Nodes)

	// A click between requests rewrites the profile summary. Folder vectors
	// cached during the first call must still live in the same embedding
	// space as the freshly computed "Me" vector.
	prof.summary = "Personal knowledge profile Primary interests: algebra"
	warm := engine.ComputeLevel0(context.Background())

	fresh := NewEngine(walker, summarizer.NewFolderSummarizer(walker, nil), prof,
		tfidf.NewEmbedder(), embedding.NewCache(16, time.Minute), 2, nil).ComputeLevel0(context.Background())

	require.Equal(t, fresh.Nodes, warm.Nodes)
	require.Len(t, warm.Distances, len(fresh.Distances))
	for pair, want := range fresh.Distances {
		assert.InDelta(t, want, warm.Distances[pair], 1e-9, pair)
	}
}

func TestComputeLevel0ConcurrentRequests(t *testing.T) {
	walker := newCorpusLandscape(t)
	prof := &stubProfile{summary: "Personal knowledge profile", weights: map[string]float64{}}
	engine := NewEngine(walker, summarizer.NewFolderSummarizer(walker, nil), prof,
		tfidf.NewEmbedder(), embedding.NewCache(16, time.Minute), 2, nil)

	results := make([]domain.DistanceMatrix, 4)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = engine.ComputeLevel0(context.Background())
		}(i)
	}
	wg.Wait()

	for _, matrix := range results[1:] {
		assert.Equal(t, results[0].Nodes, matrix.Nodes)
		assert.Equal(t, results[0].Distances, matrix.Distances)
	}
}
