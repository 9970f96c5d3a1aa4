package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"nutriagent/internal/domain"
	"nutriagent/internal/usecase/retrieval"
)

var errEmptyGeneration = errors.New("empty generator response")

// degradedAnswer is the fixed user-facing apology returned whenever the
// pipeline fails. A chat-facing system must always produce a renderable turn.
const degradedAnswer = "Xin lỗi, hệ thống đang gặp sự cố khi xử lý câu hỏi."

// Status classifies a research result for the caller.
type Status string

const (
	StatusOK        Status = "ok"
	StatusDegraded  Status = "degraded"
	StatusNoContext Status = "no_context"
)

// StructuredAnswer is the result of one research turn. It is constructed
// once per request and returned to the caller; persistence for session
// replay is the caller's responsibility.
type StructuredAnswer struct {
	Answer        string
	Sources       []retrieval.RankedChunk
	ModelThoughts string
	Status        Status
}

// ResearchConfig is the immutable construction-time configuration of a
// research pipeline.
type ResearchConfig struct {
	ReasoningEnabled bool
	TopKInitial      int
	TopKFinal        int
	NumQueryVariants int
	AnswerMaxTokens  int
	RerankTimeout    time.Duration
}

func (c ResearchConfig) withDefaults() ResearchConfig {
	if c.TopKInitial <= 0 {
		c.TopKInitial = 20
	}
	if c.TopKFinal <= 0 {
		c.TopKFinal = 5
	}
	if c.NumQueryVariants <= 0 {
		c.NumQueryVariants = 4
	}
	if c.AnswerMaxTokens <= 0 {
		c.AnswerMaxTokens = 2048
	}
	return c
}

// ResearchUsecase answers a natural-language question grounded on the
// ingested documents.
type ResearchUsecase interface {
	// Research runs the full pipeline: history rewrite, query expansion,
	// candidate retrieval, rerank, answer synthesis. It never returns an
	// error: any failure is expressed as a degraded StructuredAnswer.
	Research(ctx context.Context, query string, history []domain.ChatTurn) *StructuredAnswer
}

type researchUsecase struct {
	rewriter  *HistoryRewriter
	encoder   domain.VectorEncoder
	store     domain.DocumentStore
	reranker  domain.Reranker
	generator domain.TextGenerator
	builder   PromptBuilder
	cfg       ResearchConfig
	logger    *slog.Logger
}

// NewResearchUsecase wires the research pipeline. All configuration is
// fixed here; no state is kept across requests.
func NewResearchUsecase(
	rewriter *HistoryRewriter,
	encoder domain.VectorEncoder,
	store domain.DocumentStore,
	reranker domain.Reranker,
	generator domain.TextGenerator,
	builder PromptBuilder,
	cfg ResearchConfig,
	logger *slog.Logger,
) ResearchUsecase {
	return &researchUsecase{
		rewriter:  rewriter,
		encoder:   encoder,
		store:     store,
		reranker:  reranker,
		generator: generator,
		builder:   builder,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

func (u *researchUsecase) Research(ctx context.Context, query string, history []domain.ChatTurn) *StructuredAnswer {
	start := time.Now()
	result, err := u.run(ctx, query, history)
	if err != nil {
		// Single boundary: whatever stage failed, the caller still gets a
		// renderable turn. The error detail is surfaced for operators only.
		u.logger.Error("research_failed",
			slog.String("query", query),
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()))
		return &StructuredAnswer{
			Answer:        degradedAnswer,
			ModelThoughts: err.Error(),
			Status:        StatusDegraded,
		}
	}

	u.logger.Info("research_completed",
		slog.String("status", string(result.Status)),
		slog.Int("source_count", len(result.Sources)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return result
}

func (u *researchUsecase) run(ctx context.Context, query string, history []domain.ChatTurn) (*StructuredAnswer, error) {
	// Stage 1: collapse history into a standalone question.
	standalone := u.rewriter.Rewrite(ctx, history, query)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 2: widen recall with query variants.
	variants := retrieval.ExpandQueries(ctx, u.generator, standalone, u.cfg.NumQueryVariants, u.logger)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 3: fan out searches and merge into a deduplicated pool.
	candidates, err := retrieval.Retrieve(ctx, u.encoder, u.store, variants, u.cfg.TopKInitial, u.logger)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 4: cross-encoder rerank down to the context window.
	ranked := retrieval.Rerank(ctx, u.reranker, standalone, candidates, retrieval.RerankConfig{
		TopN:    u.cfg.TopKFinal,
		Timeout: u.cfg.RerankTimeout,
	}, u.logger)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 5: synthesize the grounded answer.
	messages := u.builder.Build(PromptInput{
		Question: standalone,
		History:  history,
		Context:  ranked,
	})
	resp, err := u.generator.Generate(ctx, messages, u.cfg.AnswerMaxTokens)
	if err != nil {
		return nil, &domain.GenerationError{Op: "synthesize", Err: err}
	}
	if strings.TrimSpace(resp.Text) == "" {
		return nil, &domain.GenerationError{Op: "synthesize", Err: errEmptyGeneration}
	}

	parsed := ParseGeneratedAnswer(resp.Text, u.mode())

	status := StatusOK
	if candidates.Len() == 0 {
		// Distinguish "nothing relevant was found" from a system failure;
		// the model is still asked so it can apologize in the user's
		// language.
		status = StatusNoContext
	}

	return &StructuredAnswer{
		Answer:        parsed.Answer,
		Sources:       ranked,
		ModelThoughts: parsed.Reasoning,
		Status:        status,
	}, nil
}

func (u *researchUsecase) mode() PromptMode {
	if u.cfg.ReasoningEnabled {
		return ModeReasoning
	}
	return ModeDirect
}
