package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"nutriagent/internal/domain"
)

// RerankConfig holds reranking stage parameters.
type RerankConfig struct {
	TopN    int
	Timeout time.Duration
}

// Rerank scores every (question, candidate) pair with the cross-encoder and
// returns at most cfg.TopN chunks sorted by relevance score descending.
// Ties are broken by the candidate's original retrieval rank (lower wins),
// then by variant index, so identical inputs always produce identical
// output. The input candidate set is not mutated.
//
// A nil reranker or a reranker failure falls back to first-seen retrieval
// order, still truncated to TopN.
func Rerank(
	ctx context.Context,
	reranker domain.Reranker,
	question string,
	candidates *CandidateSet,
	cfg RerankConfig,
	logger *slog.Logger,
) []RankedChunk {
	items := candidates.Items()
	if len(items) == 0 || cfg.TopN <= 0 {
		return nil
	}

	if reranker == nil {
		return truncate(toRanked(items), cfg.TopN)
	}

	rerankCandidates := make([]domain.RerankCandidate, len(items))
	for i, c := range items {
		rerankCandidates[i] = domain.RerankCandidate{
			ID:      c.Result.Chunk.ID.String(),
			Content: c.Result.Chunk.Content,
			Score:   c.Result.Score,
		}
	}

	rerankCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		rerankCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	rerankStart := time.Now()
	results, err := reranker.Rerank(rerankCtx, question, rerankCandidates)
	if err != nil {
		logger.Warn("reranking_failed_using_retrieval_order",
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(rerankStart).Milliseconds()))
		return truncate(toRanked(items), cfg.TopN)
	}

	logger.Info("reranking_completed",
		slog.Int("candidate_count", len(rerankCandidates)),
		slog.Int("scored_count", len(results)),
		slog.String("model", reranker.ModelName()),
		slog.Int64("duration_ms", time.Since(rerankStart).Milliseconds()))

	scores := make(map[string]float32, len(results))
	for _, r := range results {
		scores[r.ID] = r.Score
	}

	ranked := make([]RankedChunk, len(items))
	order := make([]Candidate, len(items))
	copy(order, items)
	for i, c := range order {
		score, ok := scores[c.Result.Chunk.ID.String()]
		if !ok {
			score = c.Result.Score
		}
		ranked[i] = RankedChunk{Chunk: c.Result.Chunk, Score: score, Rank: c.Rank}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Rank < ranked[j].Rank
	})

	return truncate(ranked, cfg.TopN)
}

func toRanked(items []Candidate) []RankedChunk {
	ranked := make([]RankedChunk, len(items))
	for i, c := range items {
		ranked[i] = RankedChunk{Chunk: c.Result.Chunk, Score: c.Result.Score, Rank: c.Rank}
	}
	return ranked
}

func truncate(ranked []RankedChunk, topN int) []RankedChunk {
	if len(ranked) > topN {
		return ranked[:topN]
	}
	return ranked
}
