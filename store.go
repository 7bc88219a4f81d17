package eventsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var (
	_ VectorStore   = (*FileStore)(nil)
	_ DetailFetcher = (*FileStore)(nil)
	_ RecordGetter  = (*FileStore)(nil)
	_ RecordRemover = (*FileStore)(nil)
)

// FileStoreConfig configures a FileStore.
type FileStoreConfig struct {
	Dir    string // Root directory; records live in Dir/records
	Dims   int    // Embedding dimensions (required)
	Metric Metric // Distance metric (default l2)
}

// FileStore implements VectorStore with one JSON file per record and brute-force
// ranking in memory. Suitable for small collections and tests.
type FileStore struct {
	dir     string
	dims    int
	metric  Metric
	mu      sync.RWMutex
	records map[string]*EmbeddingRecord
}

// NewFileStore opens (or creates) a file store and loads every record from disk.
func NewFileStore(cfg FileStoreConfig) (*FileStore, error) {
	if cfg.Dims <= 0 {
		return nil, fmt.Errorf("file store: dimensions must be > 0, got %d", cfg.Dims)
	}
	if cfg.Metric == "" {
		cfg.Metric = DefaultMetric
	}

	recordsDir := filepath.Join(cfg.Dir, "records")
	if err := os.MkdirAll(recordsDir, 0755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", recordsDir, err)
	}

	fs := &FileStore{
		dir:     cfg.Dir,
		dims:    cfg.Dims,
		metric:  cfg.Metric,
		records: make(map[string]*EmbeddingRecord),
	}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileStore) recordPath(id string) string {
	return filepath.Join(fs.dir, "records", id+".json")
}

func (fs *FileStore) load() error {
	dir := filepath.Join(fs.dir, "records")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read records dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read record %s: %w", entry.Name(), err)
		}

		var rec EmbeddingRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("unmarshal record %s: %w", entry.Name(), err)
		}

		// A record of the wrong length would poison every ranking.
		if err := CheckDimensions(rec.Embedding, fs.dims); err != nil {
			return fmt.Errorf("record %s: %w", rec.ID, err)
		}
		fs.records[rec.ID] = &rec
	}
	return nil
}

// Insert validates the embedding length and persists the record. An empty ID is
// replaced with a new UUID.
func (fs *FileStore) Insert(_ context.Context, rec *EmbeddingRecord) error {
	if err := CheckDimensions(rec.Embedding, fs.dims); err != nil {
		return fmt.Errorf("insert record %q: %w", rec.Name, err)
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	stored := *rec
	stored.Embedding = append([]float32(nil), rec.Embedding...)
	if err := atomicWriteJSON(fs.recordPath(rec.ID), &stored); err != nil {
		return fmt.Errorf("save record %s: %w", rec.ID, err)
	}
	fs.records[rec.ID] = &stored
	return nil
}

// Get returns a copy of the record with the given ID.
func (fs *FileStore) Get(_ context.Context, id string) (*EmbeddingRecord, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	rec, ok := fs.records[id]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	out := *rec
	return &out, nil
}

// Delete removes a record from disk and memory. Deleting a missing record is not an error.
func (fs *FileStore) Delete(_ context.Context, id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(fs.recordPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	delete(fs.records, id)
	return nil
}

// Detail returns the stored copy of the event with the given source and reference id.
// The file store keeps no source tables, so Fields is nil.
func (fs *FileStore) Detail(_ context.Context, source string, referenceID int64) (*EventDetail, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var match *EmbeddingRecord
	for _, rec := range fs.records {
		if rec.Source != source || rec.ReferenceID == nil || *rec.ReferenceID != referenceID {
			continue
		}
		// Lowest ID wins when an event was embedded more than once.
		if match == nil || rec.ID < match.ID {
			match = rec
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%s %d: %w", source, referenceID, ErrNotFound)
	}
	return &EventDetail{
		Source:      source,
		ReferenceID: referenceID,
		Name:        match.Name,
		Description: match.Description,
	}, nil
}

// Len returns the number of stored records.
func (fs *FileStore) Len() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.records)
}

// NearestNeighbors ranks every record against embedding and returns the k closest.
// Ties are broken by record ID so results are deterministic.
func (fs *FileStore) NearestNeighbors(ctx context.Context, embedding []float32, k int) ([]Candidate, error) {
	if err := CheckDimensions(embedding, fs.dims); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []Candidate{}, nil
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	type scored struct {
		rec   *EmbeddingRecord
		score float64
	}
	ranked := make([]scored, 0, len(fs.records))
	for _, rec := range fs.records {
		if err := ctx.Err(); err != nil {
			return nil, StoreError("file store scan", err)
		}
		ranked = append(ranked, scored{rec: rec, score: fs.metric.score(embedding, rec.Embedding)})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score < ranked[j].score
		}
		return ranked[i].rec.ID < ranked[j].rec.ID
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}

	out := make([]Candidate, len(ranked))
	for i, r := range ranked {
		out[i] = r.rec.candidate(math.Max(0, r.score))
	}
	return out, nil
}

// Close is a no-op; records are written through on Insert.
func (fs *FileStore) Close() error {
	return nil
}

// atomicWriteJSON writes data as JSON to a file atomically (temp file + rename).
func atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
