// Package collection implements a single named vector collection: its
// fixed schema (dimension, distance metric, declared field order), its
// embeddings, and the three top-k search entry points. A Collection does
// no locking of its own; callers (internal/vecdb) are responsible for
// holding whatever lock guards concurrent access.
package collection

import (
	"container/heap"
	"context"
	"errors"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/VantageDataChat/vecdb/internal/bitmap"
	"github.com/VantageDataChat/vecdb/internal/distance"
	"github.com/VantageDataChat/vecdb/internal/metaval"
)

// ErrDimensionMismatch is returned when a vector's length does not match
// a collection's declared dimension.
var ErrDimensionMismatch = errors.New("collection: vector dimension mismatch")

// ErrEmbeddingNotFound is returned when an operation names an id that
// does not exist in the collection.
var ErrEmbeddingNotFound = errors.New("collection: embedding not found")

// Embedding is a stored record: a unique id, a dense vector, optional
// structured metadata, and a bitmap derived from that metadata against
// the owning collection's declared fields.
type Embedding struct {
	ID       uint64
	Vector   []float32
	Metadata *metaval.Object
	Bitmap   *bitmap.Set
}

// Result is a single scored hit returned from a search.
type Result struct {
	ID       uint64
	Score    float32
	Metadata *metaval.Object
}

// Collection is a named, fixed-schema sequence of embeddings.
type Collection struct {
	name       string
	dimension  int
	metric     distance.Metric
	fields     []string
	embeddings []Embedding
}

// New returns an empty Collection. fields defines the bitmap's bit
// order and is immutable for the life of the collection.
func New(name string, dimension int, metric distance.Metric, fields []string) *Collection {
	f := make([]string, len(fields))
	copy(f, fields)
	return &Collection{
		name:      name,
		dimension: dimension,
		metric:    metric,
		fields:    f,
	}
}

func (c *Collection) Name() string             { return c.name }
func (c *Collection) Dimension() int           { return c.dimension }
func (c *Collection) Metric() distance.Metric  { return c.metric }
func (c *Collection) Fields() []string {
	out := make([]string, len(c.fields))
	copy(out, c.fields)
	return out
}
func (c *Collection) Len() int { return len(c.embeddings) }

func (c *Collection) projectBitmap(metadata *metaval.Object) *bitmap.Set {
	var hasKey func(string) bool
	if metadata != nil {
		hasKey = metadata.HasKey
	}
	return bitmap.Project(c.fields, hasKey)
}

// Add validates vector length, projects the bitmap, normalizes the
// vector for a Cosine collection, and appends a new embedding under the
// given id (already allocated by the caller).
func (c *Collection) Add(id uint64, vector []float32, metadata *metaval.Object) error {
	if len(vector) != c.dimension {
		return ErrDimensionMismatch
	}
	stored := vector
	if c.metric == distance.Cosine {
		stored = distance.Normalize(vector)
	} else {
		stored = append([]float32(nil), vector...)
	}
	c.embeddings = append(c.embeddings, Embedding{
		ID:       id,
		Vector:   stored,
		Metadata: metadata,
		Bitmap:   c.projectBitmap(metadata),
	})
	return nil
}

// Update replaces the vector, metadata, and bitmap of the embedding at
// id, preserving id and storage position.
func (c *Collection) Update(id uint64, vector []float32, metadata *metaval.Object) error {
	idx := c.indexOf(id)
	if idx < 0 {
		return ErrEmbeddingNotFound
	}
	if len(vector) != c.dimension {
		return ErrDimensionMismatch
	}
	stored := vector
	if c.metric == distance.Cosine {
		stored = distance.Normalize(vector)
	} else {
		stored = append([]float32(nil), vector...)
	}
	c.embeddings[idx].Vector = stored
	c.embeddings[idx].Metadata = metadata
	c.embeddings[idx].Bitmap = c.projectBitmap(metadata)
	return nil
}

// Remove deletes the embedding at id. Storage order of the remaining
// embeddings is preserved.
func (c *Collection) Remove(id uint64) error {
	idx := c.indexOf(id)
	if idx < 0 {
		return ErrEmbeddingNotFound
	}
	c.embeddings = append(c.embeddings[:idx], c.embeddings[idx+1:]...)
	return nil
}

// Get returns the embedding at id, if present.
func (c *Collection) Get(id uint64) (Embedding, bool) {
	idx := c.indexOf(id)
	if idx < 0 {
		return Embedding{}, false
	}
	return c.embeddings[idx], true
}

func (c *Collection) indexOf(id uint64) int {
	for i := range c.embeddings {
		if c.embeddings[i].ID == id {
			return i
		}
	}
	return -1
}

// Embeddings returns a snapshot of every embedding currently stored, in
// storage order. Used by internal/snapshot to encode a collection.
func (c *Collection) Embeddings() []Embedding {
	out := make([]Embedding, len(c.embeddings))
	copy(out, c.embeddings)
	return out
}

// Restore appends an embedding exactly as given, without renormalizing
// the vector (it is assumed already stored in its normalized form, as
// written by a snapshot) and without allocating a fresh id. The bitmap
// is re-derived from metadata, never read from the caller.
func (c *Collection) Restore(id uint64, vector []float32, metadata *metaval.Object) error {
	if len(vector) != c.dimension {
		return ErrDimensionMismatch
	}
	c.embeddings = append(c.embeddings, Embedding{
		ID:       id,
		Vector:   append([]float32(nil), vector...),
		Metadata: metadata,
		Bitmap:   c.projectBitmap(metadata),
	})
	return nil
}

// minWorkersThreshold is the minimum number of embeddings handed to each
// scan worker before splitting the work further pays for itself.
const minWorkersThreshold = 500

func adaptiveWorkers(n int) int {
	if n < minWorkersThreshold {
		return 1
	}
	w := n / minWorkersThreshold
	if cpus := runtime.NumCPU(); w > cpus {
		w = cpus
	}
	if w < 1 {
		w = 1
	}
	return w
}

// candidate is a scored embedding index, tracked with its original
// storage position so ties break by insertion order.
type candidate struct {
	score float32
	index int
}

// candidateHeap is a bounded heap whose root is always the worst
// retained candidate under metric, so a better arrival can evict it in
// O(log k).
type candidateHeap struct {
	items  []candidate
	metric distance.Metric
}

func (h *candidateHeap) Len() int { return len(h.items) }
func (h *candidateHeap) Less(i, j int) bool {
	return h.metric.Worse(h.items[i].score, h.items[j].score)
}
func (h *candidateHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *candidateHeap) Push(x any)    { h.items = append(h.items, x.(candidate)) }
func (h *candidateHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

func newBoundedHeap(metric distance.Metric) *candidateHeap {
	h := &candidateHeap{metric: metric}
	heap.Init(h)
	return h
}

func (h *candidateHeap) offer(c candidate, k int) {
	if h.Len() < k {
		heap.Push(h, c)
		return
	}
	if h.Len() == 0 {
		return
	}
	if h.metric.Better(c.score, h.items[0].score) {
		h.items[0] = c
		heap.Fix(h, 0)
	}
}

// sortedBest drains h into best-first order, breaking ties by ascending
// original index.
func sortedBest(h *candidateHeap) []candidate {
	out := make([]candidate, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(candidate)
	}
	// heap.Pop yields worst-first; reverse is best-first only when the
	// heap's "worst" ordering is a strict total order, so re-sort
	// explicitly to also settle ties by insertion index.
	metric := h.metric
	for i := 1; i < len(out); i++ {
		for j := i; j > 0; j-- {
			a, b := out[j-1], out[j]
			if lessCandidate(metric, b, a) {
				out[j-1], out[j] = b, a
			} else {
				break
			}
		}
	}
	return out
}

// lessCandidate reports whether a should sort before b in a best-first
// ordering: a strictly better score sorts first; equal scores sort by
// ascending original index.
func lessCandidate(metric distance.Metric, a, b candidate) bool {
	if a.score == b.score {
		return a.index < b.index
	}
	return metric.Better(a.score, b.score)
}

func (c *Collection) toResult(idx int, score float32) Result {
	e := c.embeddings[idx]
	return Result{ID: e.ID, Score: score, Metadata: e.Metadata}
}

// SearchVector scores every embedding against query and returns the k
// best under the collection's metric. Fewer than k embeddings yields
// all of them.
func (c *Collection) SearchVector(ctx context.Context, query []float32, k int) ([]Result, error) {
	if len(query) != c.dimension {
		return nil, ErrDimensionMismatch
	}
	if k <= 0 || len(c.embeddings) == 0 {
		return nil, nil
	}
	cache := distance.QueryCache(c.metric, query)
	metric := c.metric
	score := func(idx int) (float32, bool) {
		return distance.Score(metric, c.embeddings[idx].Vector, query, cache), true
	}
	return c.parallelTopK(ctx, k, score)
}

// SearchFilter returns up to k embeddings whose bitmap satisfies filter,
// in storage order, with every score reported as 0.0. A nil filter
// matches everything.
func (c *Collection) SearchFilter(ctx context.Context, filter *metaval.Object, k int) ([]Result, error) {
	if k <= 0 || len(c.embeddings) == 0 {
		return nil, nil
	}
	filterBitmap := c.projectBitmap(filter)
	out := make([]Result, 0, k)
	for i := range c.embeddings {
		if len(out) == k {
			break
		}
		if c.embeddings[i].Bitmap.Matches(filterBitmap) {
			out = append(out, c.toResult(i, 0.0))
		}
	}
	return out, nil
}

// SearchHybrid restricts the scan to embeddings whose bitmap satisfies
// filter, then ranks the survivors by query exactly as SearchVector does.
func (c *Collection) SearchHybrid(ctx context.Context, query []float32, filter *metaval.Object, k int) ([]Result, error) {
	if len(query) != c.dimension {
		return nil, ErrDimensionMismatch
	}
	if k <= 0 || len(c.embeddings) == 0 {
		return nil, nil
	}
	filterBitmap := c.projectBitmap(filter)
	cache := distance.QueryCache(c.metric, query)
	metric := c.metric
	score := func(idx int) (float32, bool) {
		if !c.embeddings[idx].Bitmap.Matches(filterBitmap) {
			return 0, false
		}
		return distance.Score(metric, c.embeddings[idx].Vector, query, cache), true
	}
	return c.parallelTopK(ctx, k, score)
}

// parallelTopK scores every embedding index via score (which may reject
// a candidate by returning ok=false), splitting the scan across
// adaptiveWorkers(len(embeddings)) goroutines with per-worker bounded
// heaps, then merges the per-worker heaps into a single top-k.
func (c *Collection) parallelTopK(ctx context.Context, k int, score func(idx int) (s float32, ok bool)) ([]Result, error) {
	n := len(c.embeddings)
	numWorkers := adaptiveWorkers(n)
	chunkSize := (n + numWorkers - 1) / numWorkers

	partials := make([]*candidateHeap, numWorkers)
	g, _ := errgroup.WithContext(ctx)
	for w := 0; w < numWorkers; w++ {
		w := w
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			partials[w] = newBoundedHeap(c.metric)
			continue
		}
		g.Go(func() error {
			local := newBoundedHeap(c.metric)
			for idx := start; idx < end; idx++ {
				s, ok := score(idx)
				if !ok {
					continue
				}
				local.offer(candidate{score: s, index: idx}, k)
			}
			partials[w] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := newBoundedHeap(c.metric)
	for _, p := range partials {
		for _, item := range p.items {
			merged.offer(item, k)
		}
	}

	best := sortedBest(merged)
	out := make([]Result, len(best))
	for i, cnd := range best {
		out[i] = c.toResult(cnd.index, cnd.score)
	}
	return out, nil
}
