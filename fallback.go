package eventsearch

import (
	"context"
	"strings"
)

// TextSearcher runs a keyword (full-text) query against the raw events.
// Matching is stemmed for the configured language and insensitive to case and accents.
type TextSearcher interface {
	SearchText(ctx context.Context, text string, k int) ([]Candidate, error)
}

// TextIndexer is implemented by text searchers that accept new events.
type TextIndexer interface {
	TextSearcher
	IndexEvent(ctx context.Context, ev *Event) error
}

// EventRemover is implemented by text indexes that can drop events.
type EventRemover interface {
	RemoveEvent(ctx context.Context, id string) error
}

// FallbackResolver decides whether the full-text collaborator is consulted.
type FallbackResolver struct {
	text TextSearcher
}

// NewFallbackResolver returns a resolver backed by text. A nil text searcher disables
// the fallback.
func NewFallbackResolver(text TextSearcher) *FallbackResolver {
	return &FallbackResolver{text: text}
}

// Resolve returns filtered unchanged when it is non-empty; semantic hits always win.
// Otherwise, when fallbackText is not blank, it returns up to k full-text matches with
// no distance. With nothing to search for it returns an empty slice and no error.
func (r *FallbackResolver) Resolve(ctx context.Context, filtered []Candidate, fallbackText string, k int) ([]Candidate, error) {
	if len(filtered) > 0 {
		return filtered, nil
	}
	text := strings.TrimSpace(fallbackText)
	if text == "" || r.text == nil {
		return []Candidate{}, nil
	}

	matches, err := r.text.SearchText(ctx, text, k)
	if err != nil {
		return []Candidate{}, StoreError("full-text search", err)
	}

	out := make([]Candidate, 0, min(len(matches), k))
	for _, m := range matches {
		if len(out) == k {
			break
		}
		m.Distance = nil
		out = append(out, m)
	}
	return out, nil
}
