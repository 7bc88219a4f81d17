package eventsearch

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeVectors returns canned neighbors and counts calls.
type fakeVectors struct {
	mu       sync.Mutex
	results  []Candidate
	err      error
	calls    int
	lastK    int
	lastEmb  []float32
	inserted []*EmbeddingRecord
	closed   bool
	block    bool // wait for ctx cancellation
}

func (f *fakeVectors) NearestNeighbors(ctx context.Context, embedding []float32, k int) ([]Candidate, error) {
	f.mu.Lock()
	f.calls++
	f.lastK = k
	f.lastEmb = embedding
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]Candidate, len(f.results))
	copy(out, f.results)
	return out, nil
}

func (f *fakeVectors) Insert(_ context.Context, rec *EmbeddingRecord) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, rec)
	return nil
}

func (f *fakeVectors) Close() error {
	f.closed = true
	return nil
}

// fakeText returns canned full-text matches and counts calls.
type fakeText struct {
	mu       sync.Mutex
	results  []Candidate
	err      error
	calls    int
	lastText string
	lastK    int
	indexed  []*Event
	closed   bool
}

func (f *fakeText) SearchText(_ context.Context, text string, k int) ([]Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastText = text
	f.lastK = k
	if f.err != nil {
		return nil, f.err
	}
	out := make([]Candidate, len(f.results))
	copy(out, f.results)
	return out, nil
}

func (f *fakeText) IndexEvent(_ context.Context, ev *Event) error {
	f.indexed = append(f.indexed, ev)
	return nil
}

func (f *fakeText) Close() error {
	f.closed = true
	return nil
}

func semantic(name string, distance float64) Candidate {
	return Candidate{Name: name, Source: "eventos", Distance: Float64(distance)}
}

func keyword(name string, id int64) Candidate {
	return Candidate{Name: name, Source: "eventos", ReferenceID: Int64(id)}
}

func names(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}
