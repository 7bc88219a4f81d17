package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lucas-stellet/eventsearch"
)

func TestNewDefaults(t *testing.T) {
	s, err := New(nil, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.table != DefaultTable {
		t.Errorf("table = %q, want %q", s.table, DefaultTable)
	}
	if s.eventsTable != DefaultEventsTable {
		t.Errorf("eventsTable = %q, want %q", s.eventsTable, DefaultEventsTable)
	}
	if s.metric != eventsearch.MetricL2 {
		t.Errorf("metric = %q, want l2", s.metric)
	}
	if s.textConfig != "spanish" {
		t.Errorf("textConfig = %q, want spanish", s.textConfig)
	}
	if !s.unaccent {
		t.Error("unaccent should default to true")
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"injected table", Config{Table: "embeddings; DROP TABLE eventos"}},
		{"quoted events table", Config{EventsTable: `"eventos"`}},
		{"three part name", Config{Table: "a.b.c"}},
		{"unknown metric", Config{Metric: "manhattan"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(nil, tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDistanceSQL(t *testing.T) {
	tests := []struct {
		metric   eventsearch.Metric
		distance string
		order    string
	}{
		{eventsearch.MetricL2, "embedding <-> @vec", "embedding <-> @vec"},
		{eventsearch.MetricInnerProduct, "GREATEST(0, 1 + (embedding <#> @vec))", "embedding <#> @vec"},
		{eventsearch.MetricCosine, "embedding <=> @vec", "embedding <=> @vec"},
	}
	for _, tt := range tests {
		t.Run(string(tt.metric), func(t *testing.T) {
			distance, order, err := distanceSQL(tt.metric)
			if err != nil {
				t.Fatalf("distanceSQL: %v", err)
			}
			if distance != tt.distance {
				t.Errorf("distance = %q, want %q", distance, tt.distance)
			}
			if order != tt.order {
				t.Errorf("order = %q, want %q", order, tt.order)
			}
		})
	}
}

func TestNeighborsQueryBindsVector(t *testing.T) {
	s, err := New(nil, Config{Table: "public.embeddings_index_384"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	q, err := s.neighborsQuery()
	if err != nil {
		t.Fatalf("neighborsQuery: %v", err)
	}
	if !strings.Contains(q, `FROM "public"."embeddings_index_384"`) {
		t.Errorf("query does not reference quoted table: %s", q)
	}
	if !strings.Contains(q, "@vec") || !strings.Contains(q, "LIMIT @k") {
		t.Errorf("query should use bound parameters: %s", q)
	}
	if strings.Contains(q, "[") {
		t.Errorf("query should not contain a vector literal: %s", q)
	}
}

func TestTextQuery(t *testing.T) {
	s, err := New(nil, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	q := s.textQuery()
	if !strings.Contains(q, "unaccent(@q)") {
		t.Errorf("expected unaccented query text: %s", q)
	}
	if !strings.Contains(q, "ORDER BY ts_rank(") || !strings.HasSuffix(q, "DESC, id LIMIT @k") {
		t.Errorf("expected rank ordering with id tiebreak: %s", q)
	}

	s.unaccent = false
	if strings.Contains(s.textQuery(), "unaccent") {
		t.Error("unaccent should be absent when disabled")
	}
}

func TestTextSearchConfig(t *testing.T) {
	tests := map[string]string{
		"":        "spanish",
		"es":      "spanish",
		"EN":      "english",
		"pt":      "portuguese",
		"de":      "german",
		"klingon": "simple",
	}
	for lang, want := range tests {
		if got := textSearchConfig(lang); got != want {
			t.Errorf("textSearchConfig(%q) = %q, want %q", lang, got, want)
		}
	}
}

func TestNearestNeighborsChecksDimensionsLocally(t *testing.T) {
	// A nil db proves the mismatch is caught before any round trip.
	s, err := New(nil, Config{Dims: 384})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = s.NearestNeighbors(context.Background(), make([]float32, 200), 5)
	if !errors.Is(err, eventsearch.ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}

	err = s.Insert(context.Background(), &eventsearch.EmbeddingRecord{Name: "x", Embedding: make([]float32, 3)})
	if !errors.Is(err, eventsearch.ErrDimensionMismatch) {
		t.Errorf("insert err = %v, want ErrDimensionMismatch", err)
	}
}

func TestDetailRejectsBadSourceLocally(t *testing.T) {
	s, err := New(nil, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, source := range []string{"eventos; DROP TABLE eventos", `"museos"`, ""} {
		_, err := s.Detail(context.Background(), source, 1)
		if !errors.Is(err, eventsearch.ErrInvalidQuery) {
			t.Errorf("Detail(%q) err = %v, want ErrInvalidQuery", source, err)
		}
	}
	if err := s.Delete(context.Background(), "not-a-number"); err == nil {
		t.Error("expected error for non-numeric id")
	}
}

func TestTextColumn(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"Feria", "Feria"},
		{[]byte("Museo"), "Museo"},
		{int64(7), "7"},
	}
	for _, tt := range tests {
		if got := textColumn(tt.in); got != tt.want {
			t.Errorf("textColumn(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	bg := context.Background()
	cancelled, cancel := context.WithCancel(bg)
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		want error
	}{
		{"dimension on compare", bg, &pgconn.PgError{Code: "22000", Message: "different vector dimensions 200 and 384"}, eventsearch.ErrDimensionMismatch},
		{"dimension on insert", bg, &pgconn.PgError{Code: "22000", Message: "expected 384 dimensions, not 200"}, eventsearch.ErrDimensionMismatch},
		{"statement timeout", bg, &pgconn.PgError{Code: "57014", Message: "canceling statement due to statement timeout"}, eventsearch.ErrStoreTimeout},
		{"context cancelled", cancelled, errors.New("conn closed"), eventsearch.ErrStoreTimeout},
		{"wrapped deadline", bg, fmt.Errorf("timeout: %w", context.DeadlineExceeded), eventsearch.ErrStoreTimeout},
		{"undefined table", bg, &pgconn.PgError{Code: "42P01", Message: `relation "eventos" does not exist`}, eventsearch.ErrStoreUnavailable},
		{"connection refused", bg, errors.New("dial tcp: connection refused"), eventsearch.ErrStoreUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.ctx, "op", tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("classify() = %v, want %v", got, tt.want)
			}
		})
	}
}
