package domain

import "context"

// NodeType distinguishes folders from documents in the hierarchy.
type NodeType string

const (
	NodeFolder   NodeType = "folder"
	NodeDocument NodeType = "document"
)

// Node is an entry in the indexed document tree. Folders carry children,
// documents do not.
type Node struct {
	Name     string   `json:"name"`
	Type     NodeType `json:"type"`
	Path     string   `json:"path"`
	Children []Node   `json:"children,omitempty"`
}

// Profile is the persisted record of a user's interests and navigation habits.
type Profile struct {
	Domains         map[string]float64 `json:"domains"`
	RecentClicks    []string           `json:"recent_clicks"`
	ExpertiseLevels map[string]float64 `json:"expertise_levels"`
}

// DistanceMatrix holds pairwise semantic distances between landscape nodes.
// Nodes are listed in computation order ("Me" first, then top-level folders);
// Distances is keyed "nodeA|nodeB" for each unordered pair i<j that produced
// a usable embedding. Self-distances are never materialized.
type DistanceMatrix struct {
	Nodes     []string           `json:"nodes"`
	Distances map[string]float64 `json:"distances"`
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Completer answers a question grounded in provided document text.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Extractor pulls plain text out of a stored document.
type Extractor interface {
	Text(path string) (string, error)
	Preview(path string, maxChars int) (string, error)
}

// FolderSummarizer produces the short descriptive text used as the embedding
// input for a folder. An empty summary means the folder has no usable content.
type FolderSummarizer interface {
	Summarize(folderRel string) string
}
