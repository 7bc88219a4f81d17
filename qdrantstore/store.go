// Package qdrantstore implements the vector store on a Qdrant collection over gRPC.
package qdrantstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lucas-stellet/eventsearch"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// DefaultCollection is used when no collection name is configured.
const DefaultCollection = "embeddings_index_384"

// Payload keys.
const (
	keyName        = "name"
	keyDescription = "description"
	keySource      = "source"
	keyReferenceID = "reference_id"
)

var _ eventsearch.VectorStore = (*Store)(nil)

// PointsAPI is the subset of the Qdrant points service the store calls.
type PointsAPI interface {
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
}

// CollectionsAPI is the subset of the Qdrant collections service the store calls.
type CollectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// Config configures a Store.
type Config struct {
	Addr       string             // gRPC address, e.g. localhost:6334
	Collection string             // Collection name (default embeddings_index_384)
	Dims       int                // Embedding dimensions (required to create the collection)
	Metric     eventsearch.Metric // Distance metric (default l2)
}

// Store is a Qdrant-backed vector store.
type Store struct {
	conn        *grpc.ClientConn
	points      PointsAPI
	collections CollectionsAPI
	collection  string
	dims        int
	metric      eventsearch.Metric
}

// New dials Qdrant at cfg.Addr. The connection is established lazily.
func New(cfg Config) (*Store, error) {
	conn, err := grpc.NewClient(cfg.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrantstore: dial %s: %w", cfg.Addr, err)
	}
	s, err := NewWithClients(pb.NewPointsClient(conn), pb.NewCollectionsClient(conn), cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	s.conn = conn
	return s, nil
}

// NewWithClients builds a Store on caller-supplied service clients.
func NewWithClients(points PointsAPI, collections CollectionsAPI, cfg Config) (*Store, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Metric == "" {
		cfg.Metric = eventsearch.DefaultMetric
	}
	if _, err := qdrantDistance(cfg.Metric); err != nil {
		return nil, fmt.Errorf("qdrantstore: %w", err)
	}
	return &Store{
		points:      points,
		collections: collections,
		collection:  cfg.Collection,
		dims:        cfg.Dims,
		metric:      cfg.Metric,
	}, nil
}

// Close closes the gRPC connection, if the store owns one.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// EnsureCollection creates the collection with the store's metric if it doesn't exist.
func (s *Store) EnsureCollection(ctx context.Context) error {
	if s.dims <= 0 {
		return fmt.Errorf("qdrantstore: dimensions required to create collection %s", s.collection)
	}
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return classify("qdrantstore: list collections", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	distance, _ := qdrantDistance(s.metric)
	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(s.dims),
					Distance: distance,
				},
			},
		},
	})
	if err != nil {
		return classify("qdrantstore: create collection "+s.collection, err)
	}
	return nil
}

// Insert upserts a record as a point. An empty rec.ID is replaced with a new UUID.
func (s *Store) Insert(ctx context.Context, rec *eventsearch.EmbeddingRecord) error {
	if err := eventsearch.CheckDimensions(rec.Embedding, s.dims); err != nil {
		return fmt.Errorf("qdrantstore: insert %q: %w", rec.Name, err)
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	payload := map[string]*pb.Value{
		keyName:        stringValue(rec.Name),
		keyDescription: stringValue(rec.Description),
		keySource:      stringValue(rec.Source),
	}
	if rec.ReferenceID != nil {
		payload[keyReferenceID] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: *rec.ReferenceID}}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: []*pb.PointStruct{{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: rec.ID}},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: rec.Embedding}},
			},
			Payload: payload,
		}},
	})
	if err != nil {
		return classify("qdrantstore: upsert", err)
	}
	return nil
}

// NearestNeighbors returns the k points closest to embedding, ascending by distance.
// Similarity scores are converted to distances so the threshold applies uniformly.
func (s *Store) NearestNeighbors(ctx context.Context, embedding []float32, k int) ([]eventsearch.Candidate, error) {
	if err := eventsearch.CheckDimensions(embedding, s.dims); err != nil {
		return nil, err
	}

	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         embedding,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, classify("qdrantstore: search", err)
	}

	out := make([]eventsearch.Candidate, 0, len(resp.GetResult()))
	for _, r := range resp.GetResult() {
		out = append(out, s.candidate(r))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].Distance < *out[j].Distance
	})
	return out, nil
}

func (s *Store) candidate(r *pb.ScoredPoint) eventsearch.Candidate {
	p := r.GetPayload()
	c := eventsearch.Candidate{
		Name:        p[keyName].GetStringValue(),
		Description: p[keyDescription].GetStringValue(),
		Source:      p[keySource].GetStringValue(),
		Distance:    eventsearch.Float64(scoreToDistance(s.metric, r.GetScore())),
	}
	if v, ok := p[keyReferenceID]; ok {
		if iv, ok := v.GetKind().(*pb.Value_IntegerValue); ok {
			c.ReferenceID = eventsearch.Int64(iv.IntegerValue)
		}
	}
	return c
}

// qdrantDistance maps a metric onto the collection distance.
func qdrantDistance(m eventsearch.Metric) (pb.Distance, error) {
	switch m {
	case eventsearch.MetricL2:
		return pb.Distance_Euclid, nil
	case eventsearch.MetricInnerProduct:
		return pb.Distance_Dot, nil
	case eventsearch.MetricCosine:
		return pb.Distance_Cosine, nil
	}
	return pb.Distance_UnknownDistance, fmt.Errorf("unsupported metric %q", m)
}

// scoreToDistance converts a Qdrant score to a smaller-is-closer distance. Euclid
// scores are already distances; dot and cosine scores are similarities. Dot scores
// above 1 clamp to 0.
func scoreToDistance(m eventsearch.Metric, score float32) float64 {
	if m == eventsearch.MetricL2 {
		return float64(score)
	}
	return math.Max(0, 1-float64(score))
}

func classify(op string, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return eventsearch.StoreError(op, err)
	}
	switch st.Code() {
	case codes.DeadlineExceeded, codes.Canceled:
		return fmt.Errorf("%s: %w: %s", op, eventsearch.ErrStoreTimeout, st.Message())
	case codes.InvalidArgument:
		if strings.Contains(strings.ToLower(st.Message()), "dimension") {
			return fmt.Errorf("%s: %w: %s", op, eventsearch.ErrDimensionMismatch, st.Message())
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %v", op, eventsearch.ErrStoreTimeout, err)
	}
	return fmt.Errorf("%s: %w: %s", op, eventsearch.ErrStoreUnavailable, st.Message())
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}
