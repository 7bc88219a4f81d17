package eventsearch

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope used for search spans.
const TracerName = "github.com/lucas-stellet/eventsearch"

// VectorSearcher returns the k stored records closest to embedding, ordered by
// ascending distance under the store's fixed metric.
type VectorSearcher interface {
	NearestNeighbors(ctx context.Context, embedding []float32, k int) ([]Candidate, error)
}

// VectorStore is a VectorSearcher that also accepts new records.
type VectorStore interface {
	VectorSearcher
	Insert(ctx context.Context, rec *EmbeddingRecord) error
	Close() error
}

// DetailFetcher loads the source row behind a Candidate. A missing row wraps ErrNotFound.
type DetailFetcher interface {
	Detail(ctx context.Context, source string, referenceID int64) (*EventDetail, error)
}

// RecordGetter returns a stored record by ID.
type RecordGetter interface {
	Get(ctx context.Context, id string) (*EmbeddingRecord, error)
}

// RecordRemover deletes a stored record by ID.
type RecordRemover interface {
	Delete(ctx context.Context, id string) error
}

// Searcher runs semantic search with a distance threshold and a full-text fallback.
// It holds no mutable state and is safe for concurrent use.
type Searcher struct {
	vectors  VectorSearcher
	fallback *FallbackResolver
	timeout  time.Duration
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithTextSearcher enables the full-text fallback.
func WithTextSearcher(text TextSearcher) Option {
	return func(s *Searcher) {
		s.fallback = NewFallbackResolver(text)
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTimeout bounds each store round trip. Zero leaves only the caller's deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *Searcher) {
		s.timeout = d
	}
}

// WithTracer sets the tracer used for search spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Searcher) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// NewSearcher creates a Searcher over the given vector store.
func NewSearcher(vectors VectorSearcher, opts ...Option) *Searcher {
	s := &Searcher{
		vectors:  vectors,
		fallback: NewFallbackResolver(nil),
		logger:   slog.Default(),
		tracer:   otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search validates the query, fetches the top-k nearest neighbours, drops those beyond
// MaxDistance and, when nothing is left, consults the full-text fallback.
//
// A vector store failure aborts the call and the fallback is not attempted. A fallback
// failure is logged and the empty semantic result is returned without error.
// "No results" is an empty slice, not an error.
func (s *Searcher) Search(ctx context.Context, q SearchQuery) ([]Candidate, error) {
	ctx, span := s.tracer.Start(ctx, "eventsearch.Search", trace.WithAttributes(
		attribute.Int("search.top_k", q.TopK),
		attribute.Int("search.dims", len(q.Embedding)),
		attribute.Bool("search.has_max_distance", q.MaxDistance != nil),
	))
	defer span.End()

	if err := q.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid query")
		return nil, err
	}

	candidates, err := s.nearest(ctx, q.Embedding, q.TopK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "nearest neighbors")
		return nil, err
	}

	filtered := FilterByDistance(candidates, q.MaxDistance)
	span.SetAttributes(
		attribute.Int("search.candidates", len(candidates)),
		attribute.Int("search.within_distance", len(filtered)),
	)
	if len(filtered) > 0 {
		span.SetAttributes(attribute.Bool("search.fallback", false))
		return filtered, nil
	}

	span.SetAttributes(attribute.Bool("search.fallback", true))
	results, err := s.resolveFallback(ctx, filtered, q.FallbackText, q.TopK)
	if err != nil {
		s.logger.Warn("full-text fallback failed, returning empty result", "error", err)
		span.AddEvent("fallback failed", trace.WithAttributes(attribute.String("error", err.Error())))
		return []Candidate{}, nil
	}
	span.SetAttributes(attribute.Int("search.results", len(results)))
	return results, nil
}

func (s *Searcher) nearest(ctx context.Context, embedding []float32, k int) ([]Candidate, error) {
	ctx, span := s.tracer.Start(ctx, "eventsearch.NearestNeighbors")
	defer span.End()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	candidates, err := s.vectors.NearestNeighbors(ctx, embedding, k)
	if err != nil {
		err = StoreError("nearest neighbors", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

func (s *Searcher) resolveFallback(ctx context.Context, filtered []Candidate, text string, k int) ([]Candidate, error) {
	ctx, span := s.tracer.Start(ctx, "eventsearch.Fallback")
	defer span.End()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	results, err := s.fallback.Resolve(ctx, filtered, text, k)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return results, nil
}

func (s *Searcher) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}
