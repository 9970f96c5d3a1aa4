package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nutriagent/internal/domain"

	"golang.org/x/sync/errgroup"
)

// Retrieve embeds all query variants in one batch call, runs one similarity
// search per variant concurrently, and merges the results into a
// deduplicated candidate set.
//
// Store and embedding failures are wrapped as *domain.RetrievalError and
// propagated; retrieval errors are never silently swallowed below the
// orchestrator boundary.
func Retrieve(
	ctx context.Context,
	encoder domain.VectorEncoder,
	store domain.DocumentStore,
	variants []string,
	kPerVariant int,
	logger *slog.Logger,
) (*CandidateSet, error) {
	if len(variants) == 0 {
		return NewCandidateSet(), nil
	}

	embeddings, err := encoder.Encode(ctx, variants)
	if err != nil {
		return nil, &domain.RetrievalError{Stage: "encode", Err: err}
	}
	if len(embeddings) != len(variants) {
		return nil, &domain.RetrievalError{
			Stage: "encode",
			Err:   fmt.Errorf("expected %d embeddings, got %d", len(variants), len(embeddings)),
		}
	}

	searchStart := time.Now()
	perVariant := make([][]domain.SearchResult, len(variants))

	g, gctx := errgroup.WithContext(ctx)
	for i := range variants {
		i := i
		g.Go(func() error {
			results, err := store.Search(gctx, embeddings[i], kPerVariant)
			if err != nil {
				return &domain.RetrievalError{Stage: "search", Err: err}
			}
			perVariant[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge in variant order, then rank order. Collecting slices by index
	// above keeps this deterministic no matter which search finished first.
	set := NewCandidateSet()
	total := 0
	for variant, results := range perVariant {
		total += len(results)
		for rank, res := range results {
			set.Add(Candidate{Result: res, Rank: rank, Variant: variant})
		}
	}

	logger.Info("candidates_merged",
		slog.Int("variant_count", len(variants)),
		slog.Int("raw_hits", total),
		slog.Int("distinct_candidates", set.Len()),
		slog.Int64("search_duration_ms", time.Since(searchStart).Milliseconds()))

	return set, nil
}
