package eventsearch

import (
	"fmt"
	"math"
)

// SearchQuery configures a single retrieval call.
type SearchQuery struct {
	Embedding    []float32 // Query embedding, same length as the stored vectors
	TopK         int       // Max semantic candidates (>= 1)
	MaxDistance  *float64  // Drop candidates farther than this (nil = keep all)
	FallbackText string    // Full-text query used when nothing survives filtering
}

// DefaultTopK is the default number of candidates requested.
const DefaultTopK = 10

// Validate checks the query invariants. Errors wrap ErrInvalidQuery.
func (q SearchQuery) Validate() error {
	if q.TopK < 1 {
		return fmt.Errorf("%w: top_k must be >= 1, got %d", ErrInvalidQuery, q.TopK)
	}
	if len(q.Embedding) == 0 {
		return fmt.Errorf("%w: empty embedding", ErrInvalidQuery)
	}
	for i, v := range q.Embedding {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: embedding component %d is not finite", ErrInvalidQuery, i)
		}
	}
	if q.MaxDistance != nil {
		d := *q.MaxDistance
		if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
			return fmt.Errorf("%w: max_distance must be a non-negative number, got %v", ErrInvalidQuery, d)
		}
	}
	return nil
}
