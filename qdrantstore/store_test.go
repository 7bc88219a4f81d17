package qdrantstore

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/lucas-stellet/eventsearch"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// --- Mocks ---

type mockPoints struct {
	searchResp *pb.SearchResponse
	searchErr  error
	lastSearch *pb.SearchPoints
	upsertErr  error
	lastUpsert *pb.UpsertPoints
	calls      int
}

func (m *mockPoints) Search(_ context.Context, in *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	m.calls++
	m.lastSearch = in
	return m.searchResp, m.searchErr
}

func (m *mockPoints) Upsert(_ context.Context, in *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	m.calls++
	m.lastUpsert = in
	return &pb.PointsOperationResponse{}, m.upsertErr
}

type mockCollections struct {
	listResp   *pb.ListCollectionsResponse
	listErr    error
	createErr  error
	lastCreate *pb.CreateCollection
}

func (m *mockCollections) List(_ context.Context, _ *pb.ListCollectionsRequest, _ ...grpc.CallOption) (*pb.ListCollectionsResponse, error) {
	return m.listResp, m.listErr
}

func (m *mockCollections) Create(_ context.Context, in *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	m.lastCreate = in
	return &pb.CollectionOperationResponse{Result: true}, m.createErr
}

func newTestStore(t *testing.T, points *mockPoints, cols *mockCollections, metric eventsearch.Metric) *Store {
	t.Helper()
	s, err := NewWithClients(points, cols, Config{Collection: "test", Dims: 3, Metric: metric})
	if err != nil {
		t.Fatalf("NewWithClients: %v", err)
	}
	return s
}

func scored(name string, score float32, ref *int64) *pb.ScoredPoint {
	payload := map[string]*pb.Value{
		keyName:   stringValue(name),
		keySource: stringValue("eventos"),
	}
	if ref != nil {
		payload[keyReferenceID] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: *ref}}
	}
	return &pb.ScoredPoint{Score: score, Payload: payload}
}

// --- Tests ---

func TestNewWithClientsRejectsUnknownMetric(t *testing.T) {
	if _, err := NewWithClients(&mockPoints{}, &mockCollections{}, Config{Metric: "manhattan"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestCloseWithoutConn(t *testing.T) {
	s := newTestStore(t, &mockPoints{}, &mockCollections{}, "")
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestEnsureCollection(t *testing.T) {
	t.Run("already exists", func(t *testing.T) {
		cols := &mockCollections{listResp: &pb.ListCollectionsResponse{
			Collections: []*pb.CollectionDescription{{Name: "test"}},
		}}
		s := newTestStore(t, &mockPoints{}, cols, "")
		if err := s.EnsureCollection(context.Background()); err != nil {
			t.Fatalf("EnsureCollection: %v", err)
		}
		if cols.lastCreate != nil {
			t.Error("should not create an existing collection")
		}
	})

	t.Run("creates with metric", func(t *testing.T) {
		cols := &mockCollections{listResp: &pb.ListCollectionsResponse{}}
		s := newTestStore(t, &mockPoints{}, cols, eventsearch.MetricCosine)
		if err := s.EnsureCollection(context.Background()); err != nil {
			t.Fatalf("EnsureCollection: %v", err)
		}
		params := cols.lastCreate.GetVectorsConfig().GetParams()
		if params.GetDistance() != pb.Distance_Cosine {
			t.Errorf("Distance = %v, want Cosine", params.GetDistance())
		}
		if params.GetSize() != 3 {
			t.Errorf("Size = %d, want 3", params.GetSize())
		}
	})

	t.Run("list error", func(t *testing.T) {
		cols := &mockCollections{listErr: status.Error(codes.Unavailable, "connection refused")}
		s := newTestStore(t, &mockPoints{}, cols, "")
		err := s.EnsureCollection(context.Background())
		if !errors.Is(err, eventsearch.ErrStoreUnavailable) {
			t.Errorf("err = %v, want ErrStoreUnavailable", err)
		}
	})
}

func TestNearestNeighborsEuclid(t *testing.T) {
	points := &mockPoints{searchResp: &pb.SearchResponse{Result: []*pb.ScoredPoint{
		scored("Rock Night", 0.20, eventsearch.Int64(7)),
		scored("Jazz Brunch", 0.90, nil),
	}}}
	s := newTestStore(t, points, &mockCollections{}, eventsearch.MetricL2)

	got, err := s.NearestNeighbors(context.Background(), []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("NearestNeighbors: %v", err)
	}
	if points.lastSearch.GetLimit() != 2 {
		t.Errorf("Limit = %d, want 2", points.lastSearch.GetLimit())
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Name != "Rock Night" || got[0].Source != "eventos" {
		t.Errorf("first = %+v", got[0])
	}
	if math.Abs(*got[0].Distance-0.20) > 1e-6 {
		t.Errorf("Distance = %v, want 0.20", *got[0].Distance)
	}
	if got[0].ReferenceID == nil || *got[0].ReferenceID != 7 {
		t.Errorf("ReferenceID = %v, want 7", got[0].ReferenceID)
	}
	if got[1].ReferenceID != nil {
		t.Errorf("ReferenceID = %v, want nil", *got[1].ReferenceID)
	}
}

func TestNearestNeighborsSimilarityBecomesDistance(t *testing.T) {
	// Qdrant returns cosine results by descending similarity.
	points := &mockPoints{searchResp: &pb.SearchResponse{Result: []*pb.ScoredPoint{
		scored("close", 0.95, nil),
		scored("far", 0.10, nil),
	}}}
	s := newTestStore(t, points, &mockCollections{}, eventsearch.MetricCosine)

	got, err := s.NearestNeighbors(context.Background(), []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("NearestNeighbors: %v", err)
	}
	if got[0].Name != "close" {
		t.Errorf("first = %q, want close", got[0].Name)
	}
	if math.Abs(*got[0].Distance-0.05) > 1e-6 {
		t.Errorf("Distance = %v, want 0.05", *got[0].Distance)
	}
	if *got[0].Distance > *got[1].Distance {
		t.Error("results not ascending by distance")
	}
}

func TestNearestNeighborsDotScoreAboveOne(t *testing.T) {
	points := &mockPoints{searchResp: &pb.SearchResponse{Result: []*pb.ScoredPoint{
		scored("longest", 2.5, nil),
		scored("long", 1.2, nil),
		scored("unit", 0.8, nil),
	}}}
	s := newTestStore(t, points, &mockCollections{}, eventsearch.MetricInnerProduct)

	got, err := s.NearestNeighbors(context.Background(), []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("NearestNeighbors: %v", err)
	}
	want := []string{"longest", "long", "unit"}
	for i, c := range got {
		if c.Name != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, c.Name, want[i])
		}
		if *c.Distance < 0 {
			t.Errorf("%s: distance %v is negative", c.Name, *c.Distance)
		}
	}
	if *got[0].Distance != 0 || *got[1].Distance != 0 {
		t.Errorf("distances = %v, %v, want 0, 0", *got[0].Distance, *got[1].Distance)
	}
}

func TestNearestNeighborsDimensionMismatch(t *testing.T) {
	points := &mockPoints{}
	s := newTestStore(t, points, &mockCollections{}, "")

	_, err := s.NearestNeighbors(context.Background(), []float32{1, 0}, 5)
	if !errors.Is(err, eventsearch.ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
	if points.calls != 0 {
		t.Errorf("calls = %d, want 0", points.calls)
	}
}

func TestNearestNeighborsErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"deadline", status.Error(codes.DeadlineExceeded, "context deadline exceeded"), eventsearch.ErrStoreTimeout},
		{"unavailable", status.Error(codes.Unavailable, "connection refused"), eventsearch.ErrStoreUnavailable},
		{"wrong dims", status.Error(codes.InvalidArgument, "Wrong input: Vector dimension error: expected dim: 3, got 2"), eventsearch.ErrDimensionMismatch},
		{"plain", errors.New("boom"), eventsearch.ErrStoreUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, &mockPoints{searchErr: tt.err}, &mockCollections{}, "")
			_, err := s.NearestNeighbors(context.Background(), []float32{1, 0, 0}, 5)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestInsert(t *testing.T) {
	points := &mockPoints{}
	s := newTestStore(t, points, &mockCollections{}, "")

	rec := &eventsearch.EmbeddingRecord{
		Name:        "Rock Night",
		Description: "Live bands",
		Source:      "eventos",
		ReferenceID: eventsearch.Int64(3),
		Embedding:   []float32{1, 0, 0},
	}
	if err := s.Insert(context.Background(), rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if rec.ID == "" {
		t.Error("expected generated ID")
	}

	pt := points.lastUpsert.GetPoints()[0]
	if pt.GetId().GetUuid() != rec.ID {
		t.Errorf("point id = %q, want %q", pt.GetId().GetUuid(), rec.ID)
	}
	if got := pt.GetPayload()[keyReferenceID].GetIntegerValue(); got != 3 {
		t.Errorf("reference_id = %d, want 3", got)
	}
	if got := pt.GetPayload()[keyName].GetStringValue(); got != "Rock Night" {
		t.Errorf("name = %q, want Rock Night", got)
	}
	if !points.lastUpsert.GetWait() {
		t.Error("upsert should wait for the write")
	}
}

func TestInsertDimensionMismatch(t *testing.T) {
	points := &mockPoints{}
	s := newTestStore(t, points, &mockCollections{}, "")

	err := s.Insert(context.Background(), &eventsearch.EmbeddingRecord{Name: "x", Embedding: []float32{1}})
	if !errors.Is(err, eventsearch.ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
	if points.calls != 0 {
		t.Errorf("calls = %d, want 0", points.calls)
	}
}
