package vecdb

import (
	"log"

	"github.com/VantageDataChat/vecdb/internal/collection"
	"github.com/VantageDataChat/vecdb/internal/idalloc"
	"github.com/VantageDataChat/vecdb/internal/snapshot"
)

// Open constructs a Database from the snapshot at path. A missing file
// yields an empty database (not an error). A present-but-corrupt file
// is fatal: the process should refuse to start rather than silently
// discard data, so the error is returned rather than swallowed.
//
// The id allocator is seeded to one past the highest id found in the
// snapshot, so ids issued after a reload never collide with ids already
// on disk.
func Open(path string) (*Database, error) {
	data, found, err := snapshot.Load(path)
	if err != nil {
		return nil, wrapError(SerializationFailure, "load snapshot", err)
	}

	db := New()
	db.SetSnapshotPath(path)
	if !found {
		return db, nil
	}

	var highestID uint64
	for _, cd := range data.Collections {
		c := collection.New(cd.Name, cd.Dimension, cd.Metric, cd.Fields)
		for _, ed := range cd.Embeddings {
			if err := c.Restore(ed.ID, ed.Vector, ed.Metadata); err != nil {
				return nil, wrapError(SerializationFailure, "restore embedding from snapshot", err)
			}
			if ed.ID > highestID {
				highestID = ed.ID
			}
		}
		db.collections[cd.Name] = c
	}
	db.alloc = idalloc.Restore(highestID)
	log.Printf("[vecdb] loaded %d collections from %s", len(data.Collections), path)
	return db, nil
}

func (d *Database) saveSnapshot(path string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	data := snapshot.DatabaseData{Collections: make([]snapshot.CollectionData, 0, len(d.collections))}
	for _, c := range d.collections {
		embeddings := c.Embeddings()
		ed := make([]snapshot.EmbeddingData, len(embeddings))
		for i, e := range embeddings {
			ed[i] = snapshot.EmbeddingData{ID: e.ID, Vector: e.Vector, Metadata: e.Metadata}
		}
		data.Collections = append(data.Collections, snapshot.CollectionData{
			Name:       c.Name(),
			Dimension:  c.Dimension(),
			Metric:     c.Metric(),
			Fields:     c.Fields(),
			Embeddings: ed,
		})
	}
	return snapshot.Save(path, data)
}

// Save writes a snapshot of the database to path immediately, without
// waiting for Close. The HTTP binding exposes no route for it; tests
// call it directly.
func (d *Database) Save(path string) error {
	if err := d.saveSnapshot(path); err != nil {
		return wrapError(IoFailure, "save snapshot", err)
	}
	return nil
}
