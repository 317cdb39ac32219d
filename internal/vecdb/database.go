// Package vecdb implements the database: a named collection map, the
// process-wide id allocator, and the single reader/writer lock guarding
// both. This is the orchestration layer: locking and error-kind mapping
// live here, while the pure collection logic lives in internal/collection.
package vecdb

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/VantageDataChat/vecdb/internal/collection"
	"github.com/VantageDataChat/vecdb/internal/distance"
	"github.com/VantageDataChat/vecdb/internal/idalloc"
	"github.com/VantageDataChat/vecdb/internal/metaval"
)

// Database is a mapping from collection name to collection, guarded by
// a single sync.RWMutex. Reads (GetCollection, all search modes) take
// RLock; mutations take Lock.
type Database struct {
	mu           sync.RWMutex
	collections  map[string]*collection.Collection
	alloc        *idalloc.Allocator
	snapshotPath string
}

// New returns an empty Database whose allocator starts at 1.
func New() *Database {
	return &Database{
		collections: make(map[string]*collection.Collection),
		alloc:       idalloc.New(),
	}
}

// CreateCollection inserts a fresh, empty collection. Fails with
// UniqueViolation if name already exists.
func (d *Database) CreateCollection(name string, dimension int, metric distance.Metric, fields []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.collections[name]; exists {
		return newError(UniqueViolation, "collection "+name+" already exists")
	}
	d.collections[name] = collection.New(name, dimension, metric, fields)
	return nil
}

// DeleteCollection removes a collection and drops its embeddings
// outright. Fails with NotFound if name is absent.
func (d *Database) DeleteCollection(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.collections[name]; !exists {
		return newError(NotFound, "collection "+name+" not found")
	}
	delete(d.collections, name)
	return nil
}

// GetCollection returns a read-only handle to a collection. Absence is
// reported via the boolean, not an error.
func (d *Database) GetCollection(name string) (*collection.Collection, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.collections[name]
	return c, ok
}

// CollectionNames returns every collection name currently in the
// database, in no particular order.
func (d *Database) CollectionNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.collections))
	for name := range d.collections {
		names = append(names, name)
	}
	return names
}

// AddEmbedding allocates a fresh id, validates the vector against coll's
// dimension, projects the bitmap, normalizes for Cosine collections, and
// appends the record. Returns the assigned id.
func (d *Database) AddEmbedding(coll string, vector []float32, metadata *metaval.Object) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.collections[coll]
	if !ok {
		return 0, newError(NotFound, "collection "+coll+" not found")
	}
	if len(vector) != c.Dimension() {
		return 0, newError(DimensionMismatch, "vector length does not match collection dimension")
	}
	id := d.alloc.Next()
	if err := c.Add(id, vector, metadata); err != nil {
		// Unreachable given the dimension check above, but kept so a
		// future change to Add's precondition doesn't silently skip
		// the id it would have consumed.
		return 0, wrapError(DimensionMismatch, "add embedding", err)
	}
	return id, nil
}

// UpdateEmbedding replaces the vector, metadata, and bitmap of an
// existing embedding by id, preserving the id.
func (d *Database) UpdateEmbedding(coll string, id uint64, vector []float32, metadata *metaval.Object) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.collections[coll]
	if !ok {
		return newError(NotFound, "collection "+coll+" not found")
	}
	err := c.Update(id, vector, metadata)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, collection.ErrDimensionMismatch):
		return wrapError(DimensionMismatch, "vector length does not match collection dimension", err)
	case errors.Is(err, collection.ErrEmbeddingNotFound):
		return wrapError(NotFound, "embedding not found", err)
	default:
		return wrapError(NotFound, "update embedding", err)
	}
}

// RemoveEmbedding deletes an embedding by id. Storage order of the
// remaining embeddings is preserved.
func (d *Database) RemoveEmbedding(coll string, id uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.collections[coll]
	if !ok {
		return newError(NotFound, "collection "+coll+" not found")
	}
	if err := c.Remove(id); err != nil {
		return wrapError(NotFound, "embedding not found", err)
	}
	return nil
}

// SearchVector runs a vector-only top-k search against coll.
func (d *Database) SearchVector(ctx context.Context, coll string, query []float32, k int) ([]collection.Result, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.collections[coll]
	if !ok {
		return nil, newError(NotFound, "collection "+coll+" not found")
	}
	results, err := c.SearchVector(ctx, query, k)
	if err != nil {
		return nil, mapSearchError(err)
	}
	return results, nil
}

// SearchFilter runs a filter-only search against coll.
func (d *Database) SearchFilter(ctx context.Context, coll string, filter *metaval.Object, k int) ([]collection.Result, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.collections[coll]
	if !ok {
		return nil, newError(NotFound, "collection "+coll+" not found")
	}
	results, err := c.SearchFilter(ctx, filter, k)
	if err != nil {
		return nil, mapSearchError(err)
	}
	return results, nil
}

// SearchHybrid runs a filter-then-rank search against coll.
func (d *Database) SearchHybrid(ctx context.Context, coll string, query []float32, filter *metaval.Object, k int) ([]collection.Result, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.collections[coll]
	if !ok {
		return nil, newError(NotFound, "collection "+coll+" not found")
	}
	results, err := c.SearchHybrid(ctx, query, filter, k)
	if err != nil {
		return nil, mapSearchError(err)
	}
	return results, nil
}

func mapSearchError(err error) error {
	if errors.Is(err, collection.ErrDimensionMismatch) {
		return wrapError(DimensionMismatch, "query vector length does not match collection dimension", err)
	}
	return wrapError(IoFailure, "search failed", err)
}

// Close triggers a best-effort snapshot save if a snapshot path was
// configured via SetSnapshotPath. A failed save is logged and swallowed,
// matching the original prototype's save-on-drop policy: shutdown
// cannot fail.
func (d *Database) Close() error {
	d.mu.RLock()
	path := d.snapshotPath
	d.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := d.saveSnapshot(path); err != nil {
		log.Printf("[vecdb] snapshot save on close failed: %v", err)
	}
	return nil
}

// SetSnapshotPath records where Close should save a snapshot. Open calls
// it with the path it loaded from.
func (d *Database) SetSnapshotPath(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snapshotPath = path
}
