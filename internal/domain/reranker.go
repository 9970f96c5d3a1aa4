package domain

import "context"

// RerankCandidate represents a chunk candidate for cross-encoder reranking.
type RerankCandidate struct {
	// ID is the unique identifier for the chunk (used to map back results).
	ID string
	// Content is the text content to be scored against the query.
	Content string
	// Score is the initial retrieval score (for debugging/logging).
	Score float32
}

// RerankResult represents a reranked chunk with its cross-encoder
// relevance score. Only the relative order of scores is meaningful.
type RerankResult struct {
	// ID matches the candidate ID for result mapping.
	ID string
	// Score is the cross-encoder relevance score.
	Score float32
}

// Reranker defines the interface for cross-encoder reranking. Scoring every
// (query, candidate) pair is the most expensive retrieval step, so
// implementations should batch candidates into a single inference call.
type Reranker interface {
	// Rerank scores candidates against the query using a cross-encoder
	// model. Returns results sorted by score descending. If an error
	// occurs, callers fall back to the original retrieval order.
	Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]RerankResult, error)

	// ModelName returns the model identifier for logging/debugging.
	ModelName() string
}
