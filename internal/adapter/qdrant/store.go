package qdrant

import (
	"context"
	"fmt"

	"nutriagent/internal/domain"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Store is the Qdrant-backed document store, talking gRPC to a local or
// cloud Qdrant instance.
type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// New creates a Store connected to Qdrant at the given gRPC address.
func New(addr string, collection string) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial qdrant %s: %w", addr, err)
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Search performs k-NN similarity search over the collection.
func (s *Store) Search(ctx context.Context, queryVector []float32, k int) ([]domain.SearchResult, error) {
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         queryVector,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(resp.GetResult()))
	for _, r := range resp.GetResult() {
		id, err := uuid.Parse(r.GetId().GetUuid())
		if err != nil {
			return nil, fmt.Errorf("qdrant returned malformed point id %q: %w", r.GetId().GetUuid(), err)
		}
		res := domain.SearchResult{
			Chunk: domain.Chunk{ID: id},
			Score: r.GetScore(),
		}
		for key, val := range r.GetPayload() {
			switch key {
			case "content":
				res.Chunk.Content = val.GetStringValue()
			case "source_name":
				res.Chunk.SourceName = val.GetStringValue()
			case "page":
				res.Chunk.Page = int(val.GetIntegerValue())
			case "ordinal":
				res.Chunk.Ordinal = int(val.GetIntegerValue())
			}
		}
		results = append(results, res)
	}
	return results, nil
}

// Ping verifies the collection exists, surfacing ErrStoreUnavailable when
// the index has not been created yet.
func (s *Store) Ping(ctx context.Context) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("qdrant unreachable: %w", domain.ErrStoreUnavailable)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}
	return fmt.Errorf("collection %s missing, run ingest init: %w", s.collection, domain.ErrStoreUnavailable)
}

// Init creates the collection for the given embedding dimension if it does
// not exist.
func (s *Store) Init(ctx context.Context, dimension int) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", s.collection, err)
	}
	return nil
}

// Reset deletes the collection.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.collections.Delete(ctx, &pb.DeleteCollection{
		CollectionName: s.collection,
	})
	if err != nil {
		return fmt.Errorf("delete collection %s: %w", s.collection, err)
	}
	return nil
}

// Upsert stores chunks with their embeddings as Qdrant points.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}

	points := make([]*pb.PointStruct, len(chunks))
	for i, chunk := range chunks {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: chunk.ID.String()},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: vectors[i]},
				},
			},
			Payload: map[string]*pb.Value{
				"content":     {Kind: &pb.Value_StringValue{StringValue: chunk.Content}},
				"source_name": {Kind: &pb.Value_StringValue{StringValue: chunk.SourceName}},
				"page":        {Kind: &pb.Value_IntegerValue{IntegerValue: int64(chunk.Page)}},
				"ordinal":     {Kind: &pb.Value_IntegerValue{IntegerValue: int64(chunk.Ordinal)}},
			},
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

var (
	_ domain.DocumentStore = (*Store)(nil)
	_ domain.ChunkWriter   = (*Store)(nil)
)
