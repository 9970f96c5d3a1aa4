package domain

import "context"

// DocumentStore persists chunk vectors and metadata and supports top-k
// similarity search. Stores are long-lived and shared across requests;
// the query path issues only reads.
type DocumentStore interface {
	// Search returns up to k chunks nearest to the query vector,
	// best-match-first. A missing index surfaces ErrStoreUnavailable.
	Search(ctx context.Context, queryVector []float32, k int) ([]SearchResult, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// ChunkWriter is the ingestion-side extension of a document store. Only
// the ingest CLI writes; the query core never does.
type ChunkWriter interface {
	// Init creates the index for the given embedding dimension if it does
	// not exist yet.
	Init(ctx context.Context, dimension int) error

	// Reset drops the index so a following Init starts from scratch.
	Reset(ctx context.Context) error

	// Upsert stores chunks with their embeddings. len(vectors) must equal
	// len(chunks).
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float32) error
}
