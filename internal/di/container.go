package di

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nutriagent/internal/adapter/groq"
	"nutriagent/internal/adapter/inference"
	"nutriagent/internal/adapter/qdrant"
	"nutriagent/internal/adapter/rag_http"
	"nutriagent/internal/adapter/repository"
	"nutriagent/internal/domain"
	"nutriagent/internal/infra"
	"nutriagent/internal/infra/config"
	"nutriagent/internal/infra/httpclient"
	"nutriagent/internal/usecase"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	// Document store, both read and write sides
	Store  domain.DocumentStore
	Writer domain.ChunkWriter

	// External clients
	Encoder   domain.VectorEncoder
	Generator domain.TextGenerator
	Reranker  domain.Reranker

	// Research pipeline
	Researchers *usecase.ResearcherCache
	BaseConfig  usecase.ResearchConfig

	// HTTP surface
	Handler *rag_http.Handler

	closers []func()
}

// Close releases pooled connections held by the container.
func (c *ApplicationComponents) Close() {
	for _, fn := range c.closers {
		fn()
	}
}

// NewApplicationComponents wires all dependencies from config.
func NewApplicationComponents(ctx context.Context, cfg *config.Config, log *slog.Logger) (*ApplicationComponents, error) {
	components := &ApplicationComponents{}

	// Document store backend selection
	switch cfg.VectorDBType {
	case "qdrant":
		store, err := qdrant.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
		}
		components.Store = store
		components.Writer = store
		components.closers = append(components.closers, func() { _ = store.Close() })
	case "pgvector":
		pool, err := infra.NewPostgresDB(ctx, cfg.DB.DSN(), infra.PoolConfig{
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to db: %w", err)
		}
		repo := repository.NewChunkRepository(pool)
		components.Store = repo
		components.Writer = repo
		components.closers = append(components.closers, pool.Close)
	default:
		return nil, fmt.Errorf("unknown vector db type %q", cfg.VectorDBType)
	}

	// Shared HTTP clients with connection pooling
	embedderHTTP := httpclient.NewPooledClient(time.Duration(cfg.Embedder.TimeoutSeconds) * time.Second)
	rerankerHTTP := httpclient.NewPooledClient(time.Duration(cfg.Reranker.TimeoutSeconds) * time.Second)
	generatorHTTP := httpclient.NewPooledClient(time.Duration(cfg.Generator.TimeoutSeconds) * time.Second)

	components.Encoder = inference.NewEmbedder(
		cfg.Embedder.URL, cfg.Embedder.Model,
		time.Duration(cfg.Embedder.TimeoutSeconds)*time.Second,
		log, embedderHTTP,
	)
	components.Reranker = inference.NewRerankerClient(
		cfg.Reranker.URL, cfg.Reranker.Model,
		time.Duration(cfg.Reranker.TimeoutSeconds)*time.Second,
		log, rerankerHTTP,
	)
	components.Generator = groq.NewGenerator(
		cfg.Generator.URL, cfg.Generator.APIKey, cfg.Generator.Model,
		cfg.Generator.RequestsPerMinute,
		time.Duration(cfg.Generator.TimeoutSeconds)*time.Second,
		log, generatorHTTP,
	)

	components.BaseConfig = usecase.ResearchConfig{
		ReasoningEnabled: cfg.Pipeline.ReasoningEnabled,
		TopKInitial:      cfg.Pipeline.TopKInitial,
		TopKFinal:        cfg.Pipeline.TopKFinal,
		NumQueryVariants: cfg.Pipeline.NumQueryVariants,
		AnswerMaxTokens:  cfg.Pipeline.AnswerMaxTokens,
		RerankTimeout:    time.Duration(cfg.Pipeline.RerankTimeoutSeconds) * time.Second,
	}

	// Researchers are built per effective config so a per-request
	// reasoning toggle gets its own prompt builder.
	rewriter := usecase.NewHistoryRewriter(components.Generator, log)
	components.Researchers = usecase.NewResearcherCache(func(rc usecase.ResearchConfig) usecase.ResearchUsecase {
		mode := usecase.ModeDirect
		if rc.ReasoningEnabled {
			mode = usecase.ModeReasoning
		}
		return usecase.NewResearchUsecase(
			rewriter,
			components.Encoder,
			components.Store,
			components.Reranker,
			components.Generator,
			usecase.NewNutriPromptBuilder(mode),
			rc,
			log,
		)
	})

	components.Handler = rag_http.NewHandler(components.Researchers, components.BaseConfig, log)

	log.Info("components_wired",
		slog.String("vector_db", cfg.VectorDBType),
		slog.String("generator_model", cfg.Generator.Model),
		slog.String("embedding_model", cfg.Embedder.Model),
		slog.String("reranker_model", cfg.Reranker.Model))

	return components, nil
}
