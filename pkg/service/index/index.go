package index

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/moneta-lab/moneta/pkg/domain/model"
	"github.com/moneta-lab/moneta/pkg/domain/types"
	"github.com/moneta-lab/moneta/pkg/service/chunk"
)

// DefaultDimension is the embedding vector dimension used when none is
// configured. Matches common 768-dimension text embedding models.
const DefaultDimension = 768

// DefaultLimit is the number of results returned by Search when the caller
// passes a non-positive limit.
const DefaultLimit = 5

type entry struct {
	id     int64
	vector []float32
	chunk  model.Chunk
}

// Index is an embedding-backed nearest-neighbor store over document chunks.
// Reader/writer discipline: many concurrent Search calls are allowed, Add
// holds the index exclusively while inserting. The vector dimension is fixed
// for the lifetime of the index.
type Index struct {
	mu        sync.RWMutex
	llm       gollem.LLMClient
	dimension int
	entries   []entry
	nextID    int64
}

// Option configures an Index at construction time
type Option func(*Index)

// WithDimension sets the embedding vector dimension
func WithDimension(dim int) Option {
	return func(x *Index) {
		x.dimension = dim
	}
}

// New initializes an empty index bound to the given embedding model
func New(llm gollem.LLMClient, opts ...Option) (*Index, error) {
	if llm == nil {
		return nil, goerr.New("LLM client is required for embedding index")
	}
	x := &Index{
		llm:       llm,
		dimension: DefaultDimension,
		nextID:    1,
	}
	for _, opt := range opts {
		opt(x)
	}
	if x.dimension <= 0 {
		return nil, goerr.New("embedding dimension must be positive", goerr.V("dimension", x.dimension))
	}
	return x, nil
}

// AddOption configures one Add call
type AddOption func(*addConfig)

type addConfig struct {
	size      int
	overlap   int
	separator string
}

// WithChunkSize overrides the default chunk size for this Add call
func WithChunkSize(size int) AddOption {
	return func(c *addConfig) { c.size = size }
}

// WithChunkOverlap overrides the default chunk overlap for this Add call
func WithChunkOverlap(overlap int) AddOption {
	return func(c *addConfig) { c.overlap = overlap }
}

// WithSeparator overrides the default chunk separator for this Add call
func WithSeparator(sep string) AddOption {
	return func(c *addConfig) { c.separator = sep }
}

// Add chunks each document, computes one embedding per chunk and inserts the
// results. Entries are copied in; the index is the sole owner of the vector
// representation. No deduplication is performed.
func (x *Index) Add(ctx context.Context, docs []model.Document, opts ...AddOption) error {
	cfg := &addConfig{
		size:      chunk.DefaultSize,
		overlap:   chunk.DefaultOverlap,
		separator: chunk.DefaultSeparator,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	splitter, err := chunk.New(cfg.size, cfg.overlap, cfg.separator)
	if err != nil {
		return err
	}

	var chunks []model.Chunk
	for _, doc := range docs {
		chunks = append(chunks, splitter.Split(doc)...)
	}
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := x.embed(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return goerr.New("embedding count mismatch",
			goerr.T(types.ErrTagEmbedding),
			goerr.V("chunks", len(chunks)),
			goerr.V("vectors", len(vectors)),
		)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	for i, c := range chunks {
		x.entries = append(x.entries, entry{
			id:     x.nextID,
			vector: vectors[i],
			chunk:  c,
		})
		x.nextID++
	}
	return nil
}

// Search embeds the query and returns up to limit chunks ordered best-first
// by cosine similarity. A never-populated index yields an empty result, not
// an error; no embedding call is made in that case.
func (x *Index) Search(ctx context.Context, query string, limit int) ([]model.Chunk, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if x.Size() == 0 {
		return []model.Chunk{}, nil
	}

	vectors, err := x.embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	queryVec := vectors[0]

	x.mu.RLock()
	defer x.mu.RUnlock()

	type scored struct {
		id    int64
		score float64
		chunk model.Chunk
	}
	candidates := make([]scored, 0, len(x.entries))
	for _, e := range x.entries {
		candidates = append(candidates, scored{
			id:    e.id,
			score: cosineSimilarity(queryVec, e.vector),
			chunk: e.chunk,
		})
	}

	// Tie-break on insertion order so repeated queries return a stable order
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id < candidates[j].id
	})

	if limit > len(candidates) {
		limit = len(candidates)
	}
	results := make([]model.Chunk, limit)
	for i := 0; i < limit; i++ {
		results[i] = candidates[i].chunk
	}
	return results, nil
}

// Size returns the number of indexed entries
func (x *Index) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Dimension returns the fixed embedding dimension of the index
func (x *Index) Dimension() int {
	return x.dimension
}

func (x *Index) embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings, err := x.llm.GenerateEmbedding(ctx, x.dimension, texts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate embeddings",
			goerr.T(types.ErrTagEmbedding),
			goerr.V("texts", len(texts)),
		)
	}
	if len(embeddings) == 0 {
		return nil, goerr.New("embedding model returned no vectors",
			goerr.T(types.ErrTagEmbedding),
		)
	}

	vectors := make([][]float32, len(embeddings))
	for i, emb := range embeddings {
		v := make([]float32, len(emb))
		for j, f := range emb {
			v[j] = float32(f)
		}
		vectors[i] = v
	}
	return vectors, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}

	return dot / denom
}
