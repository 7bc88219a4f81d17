package eventsearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lucas-stellet/eventsearch/embed"
	"go.opentelemetry.io/otel/trace"
)

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Vectors     VectorStore         // Vector store (required)
	Text        TextSearcher        // Full-text fallback (nil = no fallback)
	Details     DetailFetcher       // Source row lookup (nil = the vector store, if it can)
	EmbedFunc   embed.EmbeddingFunc // Embedding generator (required)
	TopK        int                 // Default candidates per search (default 10)
	MaxDistance *float64            // Default distance threshold (nil = none)
	Timeout     time.Duration       // Per store round trip (0 = caller deadline only)
	Logger      *slog.Logger        // Logger (nil = slog.Default())
	Tracer      trace.Tracer        // Tracer (nil = global provider)
}

// Service turns caller text into embeddings and runs them through the Searcher.
// The embedding generator is constructed once by the caller and shared.
type Service struct {
	vectors  VectorStore
	text     TextSearcher
	details  DetailFetcher
	embedFn  embed.EmbeddingFunc
	searcher *Searcher
	cfg      ServiceConfig
	log      *slog.Logger
}

// SearchRequest is a text search issued by a caller.
type SearchRequest struct {
	Text         string   // Text to embed
	TopK         int      // 0 = service default
	MaxDistance  *float64 // nil = service default
	FallbackText string   // "" = same as Text
	NoFallback   bool     // Skip the full-text fallback entirely
}

// NewRecord describes an event to embed and store.
type NewRecord struct {
	Name        string
	Description string
	Source      string
	ReferenceID *int64
}

// NewService wires a Service from its collaborators.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Vectors == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if cfg.EmbedFunc == nil {
		return nil, fmt.Errorf("embedding function is required")
	}
	if cfg.TopK == 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Details == nil {
		cfg.Details, _ = cfg.Vectors.(DetailFetcher)
	}

	opts := []Option{
		WithLogger(cfg.Logger),
		WithTimeout(cfg.Timeout),
		WithTracer(cfg.Tracer),
	}
	if cfg.Text != nil {
		opts = append(opts, WithTextSearcher(cfg.Text))
	}

	return &Service{
		vectors:  cfg.Vectors,
		text:     cfg.Text,
		details:  cfg.Details,
		embedFn:  cfg.EmbedFunc,
		searcher: NewSearcher(cfg.Vectors, opts...),
		cfg:      cfg,
		log:      cfg.Logger,
	}, nil
}

// Close releases the vector store and, when closable and distinct, the text searcher.
func (s *Service) Close() error {
	err := s.vectors.Close()
	if c, ok := s.text.(interface{ Close() error }); ok && any(c) != any(s.vectors) {
		err = errors.Join(err, c.Close())
	}
	return err
}

// Search embeds req.Text once and runs the semantic search with fallback. If the
// embedding generator fails or yields an empty vector, ErrEmptyEmbedding is returned
// and no store is queried.
func (s *Service) Search(ctx context.Context, req SearchRequest) ([]Candidate, error) {
	emb, err := s.embedFn(ctx, req.Text)
	if err != nil {
		s.log.Warn("embedding failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrEmptyEmbedding, err)
	}
	if len(emb) == 0 {
		return nil, ErrEmptyEmbedding
	}

	q := SearchQuery{
		Embedding:    emb,
		TopK:         req.TopK,
		MaxDistance:  req.MaxDistance,
		FallbackText: req.FallbackText,
	}
	if q.TopK == 0 {
		q.TopK = s.cfg.TopK
	}
	if q.MaxDistance == nil {
		q.MaxDistance = s.cfg.MaxDistance
	}
	if q.FallbackText == "" {
		q.FallbackText = req.Text
	}
	if req.NoFallback {
		q.FallbackText = ""
	}

	results, err := s.searcher.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return results, nil
}

// AddRecord embeds the event text and inserts it into the vector store. A vector whose
// length disagrees with the store is rejected with ErrDimensionMismatch.
func (s *Service) AddRecord(ctx context.Context, nr NewRecord) (*EmbeddingRecord, error) {
	text := embed.TextForEvent(nr.Name, nr.Description)
	if text == "" {
		return nil, fmt.Errorf("record needs a name or description")
	}

	emb, err := s.embedFn(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("generate embedding: %w", err)
	}
	if len(emb) == 0 {
		return nil, ErrEmptyEmbedding
	}

	rec := &EmbeddingRecord{
		Name:        nr.Name,
		Description: nr.Description,
		Source:      nr.Source,
		ReferenceID: nr.ReferenceID,
		Embedding:   emb,
	}
	if err := s.vectors.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	return rec, nil
}

// AddEvent makes a raw event searchable by the full-text fallback.
func (s *Service) AddEvent(ctx context.Context, ev *Event) error {
	indexer, ok := s.text.(TextIndexer)
	if !ok {
		return fmt.Errorf("full-text backend does not accept events")
	}
	if err := indexer.IndexEvent(ctx, ev); err != nil {
		return fmt.Errorf("index event: %w", err)
	}
	return nil
}

// Detail loads the source row for one hit.
func (s *Service) Detail(ctx context.Context, source string, referenceID int64) (*EventDetail, error) {
	if s.details == nil {
		return nil, fmt.Errorf("vector backend does not provide source rows")
	}
	ctx, cancel := s.roundTrip(ctx)
	defer cancel()
	return s.details.Detail(ctx, source, referenceID)
}

// Details loads the source row behind each hit, in order. Hits without a source
// or reference id are skipped, as are hits whose row no longer exists.
func (s *Service) Details(ctx context.Context, hits []Candidate) ([]EventDetail, error) {
	out := make([]EventDetail, 0, len(hits))
	for _, c := range hits {
		if c.Source == "" || c.ReferenceID == nil {
			continue
		}
		d, err := s.Detail(ctx, c.Source, *c.ReferenceID)
		if errors.Is(err, ErrNotFound) {
			s.log.Debug("source row missing", "source", c.Source, "reference_id", *c.ReferenceID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("detail %s/%d: %w", c.Source, *c.ReferenceID, err)
		}
		if d.Name == "" {
			d.Name = c.Name
		}
		out = append(out, *d)
	}
	return out, nil
}

// Record returns a stored embedding record by ID.
func (s *Service) Record(ctx context.Context, id string) (*EmbeddingRecord, error) {
	getter, ok := s.vectors.(RecordGetter)
	if !ok {
		return nil, fmt.Errorf("vector backend does not support lookup by id")
	}
	return getter.Get(ctx, id)
}

// Remove deletes a record from the vector store and, when the text index can drop
// events, the event indexed under the same ID. When the vector store supports lookup
// a missing record returns ErrNotFound.
func (s *Service) Remove(ctx context.Context, id string) error {
	remover, ok := s.vectors.(RecordRemover)
	if !ok {
		return fmt.Errorf("vector backend does not support deletion")
	}
	if getter, ok := s.vectors.(RecordGetter); ok {
		if _, err := getter.Get(ctx, id); err != nil {
			return err
		}
	}
	if err := remover.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if er, ok := s.text.(EventRemover); ok {
		if err := er.RemoveEvent(ctx, id); err != nil {
			return fmt.Errorf("remove event: %w", err)
		}
	}
	return nil
}

func (s *Service) roundTrip(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Timeout)
	}
	return ctx, func() {}
}
