// Package snapshot implements the single-file, version-tagged binary
// encoding of a whole database: every collection's schema followed by
// its embeddings. Bitmaps are never encoded: they are derived state,
// rebuilt from metadata on load.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/VantageDataChat/vecdb/internal/distance"
	"github.com/VantageDataChat/vecdb/internal/metaval"
)

// formatVersion is the first four bytes of every snapshot file, so a
// future incompatible format change fails loudly instead of misparsing.
const formatVersion uint32 = 1

// EmbeddingData is the on-disk shape of a single embedding.
type EmbeddingData struct {
	ID       uint64
	Vector   []float32
	Metadata *metaval.Object
}

// CollectionData is the on-disk shape of a single collection, schema
// plus its embeddings in storage order.
type CollectionData struct {
	Name       string
	Dimension  int
	Metric     distance.Metric
	Fields     []string
	Embeddings []EmbeddingData
}

// DatabaseData is the on-disk shape of the whole database.
type DatabaseData struct {
	Collections []CollectionData
}

// Encode serializes data into the binary snapshot format.
func Encode(data DatabaseData) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, formatVersion); err != nil {
		return nil, err
	}
	if err := writeUint32(&buf, uint32(len(data.Collections))); err != nil {
		return nil, err
	}
	for _, c := range data.Collections {
		if err := encodeCollection(&buf, c); err != nil {
			return nil, fmt.Errorf("snapshot: encode collection %q: %w", c.Name, err)
		}
	}
	return buf.Bytes(), nil
}

func encodeCollection(buf *bytes.Buffer, c CollectionData) error {
	if err := writeString(buf, c.Name); err != nil {
		return err
	}
	if err := writeUint32(buf, uint32(c.Dimension)); err != nil {
		return err
	}
	if err := writeString(buf, c.Metric.String()); err != nil {
		return err
	}
	if err := writeUint32(buf, uint32(len(c.Fields))); err != nil {
		return err
	}
	for _, f := range c.Fields {
		if err := writeString(buf, f); err != nil {
			return err
		}
	}
	if err := writeUint32(buf, uint32(len(c.Embeddings))); err != nil {
		return err
	}
	for _, e := range c.Embeddings {
		if err := encodeEmbedding(buf, e); err != nil {
			return err
		}
	}
	return nil
}

func encodeEmbedding(buf *bytes.Buffer, e EmbeddingData) error {
	if err := binary.Write(buf, binary.LittleEndian, e.ID); err != nil {
		return err
	}
	if err := writeUint32(buf, uint32(len(e.Vector))); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, e.Vector); err != nil {
		return err
	}
	metaJSON, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return writeBytes(buf, metaJSON)
}

func writeUint32(w io.Writer, v uint32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func writeBytes(w io.Writer, b []byte) error {
	if err := writeUint32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func writeString(w io.Writer, s string) error {
	return writeBytes(w, []byte(s))
}

// Decode parses the binary snapshot format produced by Encode.
func Decode(raw []byte) (DatabaseData, error) {
	r := bytes.NewReader(raw)
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return DatabaseData{}, fmt.Errorf("snapshot: read format version: %w", err)
	}
	if version != formatVersion {
		return DatabaseData{}, fmt.Errorf("snapshot: unsupported format version %d", version)
	}
	numCollections, err := readUint32(r)
	if err != nil {
		return DatabaseData{}, fmt.Errorf("snapshot: read collection count: %w", err)
	}
	data := DatabaseData{Collections: make([]CollectionData, 0, numCollections)}
	for i := uint32(0); i < numCollections; i++ {
		c, err := decodeCollection(r)
		if err != nil {
			return DatabaseData{}, fmt.Errorf("snapshot: decode collection %d: %w", i, err)
		}
		data.Collections = append(data.Collections, c)
	}
	return data, nil
}

func decodeCollection(r *bytes.Reader) (CollectionData, error) {
	var c CollectionData
	name, err := readString(r)
	if err != nil {
		return c, err
	}
	dimension, err := readUint32(r)
	if err != nil {
		return c, err
	}
	metricTag, err := readString(r)
	if err != nil {
		return c, err
	}
	metric, err := distance.ParseMetric(metricTag)
	if err != nil {
		return c, err
	}
	numFields, err := readUint32(r)
	if err != nil {
		return c, err
	}
	fields := make([]string, numFields)
	for i := range fields {
		f, err := readString(r)
		if err != nil {
			return c, err
		}
		fields[i] = f
	}
	numEmbeddings, err := readUint32(r)
	if err != nil {
		return c, err
	}
	embeddings := make([]EmbeddingData, numEmbeddings)
	for i := range embeddings {
		e, err := decodeEmbedding(r)
		if err != nil {
			return c, err
		}
		embeddings[i] = e
	}
	c.Name = name
	c.Dimension = int(dimension)
	c.Metric = metric
	c.Fields = fields
	c.Embeddings = embeddings
	return c, nil
}

func decodeEmbedding(r *bytes.Reader) (EmbeddingData, error) {
	var e EmbeddingData
	if err := binary.Read(r, binary.LittleEndian, &e.ID); err != nil {
		return e, err
	}
	numFloats, err := readUint32(r)
	if err != nil {
		return e, err
	}
	vector := make([]float32, numFloats)
	if err := binary.Read(r, binary.LittleEndian, vector); err != nil {
		return e, err
	}
	metaJSON, err := readBytes(r)
	if err != nil {
		return e, err
	}
	e.Vector = vector
	if string(metaJSON) != "null" {
		meta := metaval.NewObject()
		if err := json.Unmarshal(metaJSON, meta); err != nil {
			return e, fmt.Errorf("decode metadata: %w", err)
		}
		e.Metadata = meta
	}
	return e, nil
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func readString(r *bytes.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Load reads and decodes the snapshot at path. A missing file is not an
// error: it reports ok=false with a zero-value DatabaseData so callers
// can start from an empty database. A present-but-corrupt file returns
// an error, never a partial result.
func Load(path string) (data DatabaseData, ok bool, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DatabaseData{}, false, nil
		}
		return DatabaseData{}, false, fmt.Errorf("snapshot: read %s: %w", path, err)
	}
	data, err = Decode(raw)
	if err != nil {
		return DatabaseData{}, false, err
	}
	return data, true, nil
}

// Save encodes data and atomically replaces the file at path: it writes
// to a temporary file in the same directory, then renames over the
// final path so a reader never observes a partially-written snapshot.
func Save(path string, data DatabaseData) error {
	encoded, err := Encode(data)
	if err != nil {
		return fmt.Errorf("snapshot: encode: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("snapshot: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: rename temp file into place: %w", err)
	}
	return nil
}
