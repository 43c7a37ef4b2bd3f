package distance

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"math"
	"sync"

	"verbum/internal/domain"
	"verbum/internal/embedding"
	"verbum/internal/hierarchy"
)

// MeNode is the synthetic node representing the user's interest profile.
const MeNode = "Me"

// defaultDomainWeight applies to folders the profile has no opinion about.
const defaultDomainWeight = 0.5

// ProfileSource is the engine-facing subset of the user profile store.
type ProfileSource interface {
	Summarize() string
	DomainWeight(name string) (float64, bool)
}

// Engine combines the user profile, folder summaries and an embedder into a
// pairwise semantic distance matrix over the knowledge landscape.
type Engine struct {
	walker      *hierarchy.Walker
	summarizer  domain.FolderSummarizer
	profile     ProfileSource
	embedder    domain.Embedder
	cache       *embedding.Cache
	concurrency int
	logger      *slog.Logger
}

// NewEngine wires a distance engine. embedder may be nil when no provider is
// configured; computations then yield an empty matrix. concurrency bounds how
// many embedding calls run at once.
func NewEngine(walker *hierarchy.Walker, summarizer domain.FolderSummarizer, prof ProfileSource, embedder domain.Embedder, cache *embedding.Cache, concurrency int, logger *slog.Logger) *Engine {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		walker:      walker,
		summarizer:  summarizer,
		profile:     prof,
		embedder:    embedder,
		cache:       cache,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ComputeLevel0 computes pairwise cosine distances between the "Me" node and
// every top-level folder that produced a usable embedding. Folder vectors are
// scaled by the user's domain weight; the "Me" vector is not weighted.
// Failures never abort the whole computation: a folder without a summary or
// with a failing embedding call is simply left out of the matrix, and with no
// embedder at all the matrix comes back empty.
func (e *Engine) ComputeLevel0(ctx context.Context) domain.DistanceMatrix {
	empty := domain.DistanceMatrix{Nodes: []string{}, Distances: map[string]float64{}}
	if e.embedder == nil {
		e.logger.Warn("no embedder configured, returning empty distance matrix")
		return empty
	}

	folders := e.walker.TopLevelFolders()
	e.logger.Info("computing level-0 distances", "folders", len(folders))

	// Node order is the contract: "Me" first, then folders in listing order.
	allNodes := append([]string{MeNode}, folders...)

	summaries := map[string]string{MeNode: e.profile.Summarize()}
	var corpus []string
	for _, folder := range folders {
		summary := e.summarizer.Summarize(folder)
		if summary == "" {
			e.logger.Warn("no usable content, excluding folder", "folder", folder)
			continue
		}
		summaries[folder] = summary
		corpus = append(corpus, summary)
	}

	// The folder summaries alone define the embedding space, so a profile
	// change between requests (every click rewrites the "Me" summary) does
	// not invalidate cached folder vectors.
	if err := e.embedder.Prepare(corpus); err != nil {
		e.logger.Error("embedder preparation failed", "error", err)
		return empty
	}
	space := corpusFingerprint(e.embedder.Name(), corpus)

	vectors := e.embedNodes(ctx, space, allNodes, summaries)

	// Merge deterministically: only nodes that produced a vector participate,
	// in the established order.
	var nodes []string
	for _, node := range allNodes {
		if _, ok := vectors[node]; ok {
			nodes = append(nodes, node)
		}
	}
	if nodes == nil {
		nodes = []string{}
	}

	distances := make(map[string]float64)
	for i, a := range nodes {
		for _, b := range nodes[i+1:] {
			d, degenerate := cosineDistance(vectors[a], vectors[b])
			if degenerate {
				e.logger.Warn("degenerate vector pair, substituting maximum distance", "nodeA", a, "nodeB", b)
			}
			distances[a+"|"+b] = d
		}
	}
	return domain.DistanceMatrix{Nodes: nodes, Distances: distances}
}

// embedNodes fetches one vector per summarized node with bounded parallelism.
// Folder vectors are served from the cache when possible and weighted by the
// user's domain interest after retrieval, so the cache always holds raw
// vectors. A per-node provider failure excludes only that node.
func (e *Engine) embedNodes(ctx context.Context, space string, allNodes []string, summaries map[string]string) map[string][]float64 {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		sem     = make(chan struct{}, e.concurrency)
		vectors = make(map[string][]float64, len(summaries))
	)
	for _, node := range allNodes {
		summary, ok := summaries[node]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(node, summary string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			vec, err := e.nodeVector(ctx, space, node, summary)
			if err != nil {
				e.logger.Warn("embedding failed, excluding node", "node", node, "error", err)
				return
			}
			mu.Lock()
			vectors[node] = vec
			mu.Unlock()
		}(node, summary)
	}
	wg.Wait()
	return vectors
}

func (e *Engine) nodeVector(ctx context.Context, space, node, summary string) ([]float64, error) {
	if node == MeNode {
		return e.embedder.Embed(ctx, summary)
	}
	raw, err := e.cache.GetOrCompute(space+"|"+node, func() ([]float64, error) {
		return e.embedder.Embed(ctx, summary)
	})
	if err != nil {
		return nil, err
	}
	weight, ok := e.profile.DomainWeight(node)
	if !ok {
		weight = defaultDomainWeight
	}
	return Weighted(raw, weight), nil
}

// Weighted scales a vector's magnitude by a domain weight. This is linear
// scaling, not a convex combination, and it changes relative distances; the
// behavior is kept as-is for compatibility.
func Weighted(v []float64, weight float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x * weight
	}
	return out
}

// corpusFingerprint identifies the embedding space a prepared corpus defines.
// Cache keys carry it so vectors computed under an older vocabulary are never
// compared against vectors from the current one.
func corpusFingerprint(embedderName string, corpus []string) string {
	h := fnv.New64a()
	_, _ = io.WriteString(h, embedderName)
	for _, text := range corpus {
		_, _ = h.Write([]byte{0})
		_, _ = io.WriteString(h, text)
	}
	return fmt.Sprintf("%s-%016x", embedderName, h.Sum64())
}

// cosineDistance returns 1 - cos(a, b), in [0, 2]. Vectors of different
// lengths come from different embedding spaces and a zero norm leaves the
// angle undefined; both cases substitute the maximum sensible value 1.0 and
// report the degenerate case in the second return.
func cosineDistance(a, b []float64) (float64, bool) {
	if len(a) != len(b) {
		return 1.0, true
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	na, nb = math.Sqrt(na), math.Sqrt(nb)
	if na == 0 || nb == 0 {
		return 1.0, true
	}
	return 1 - dot/(na*nb), false
}
