package repository

import (
	"context"
	"errors"
	"fmt"

	"nutriagent/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const undefinedTableCode = "42P01"

type chunkRepository struct {
	pool *pgxpool.Pool
}

// ChunkRepository is the pgvector-backed document store.
type ChunkRepository interface {
	domain.DocumentStore
	domain.ChunkWriter
}

// NewChunkRepository creates a chunk repository on the given pool.
func NewChunkRepository(pool *pgxpool.Pool) ChunkRepository {
	return &chunkRepository{pool: pool}
}

// Search performs cosine similarity search over the chunk embeddings.
func (r *chunkRepository) Search(ctx context.Context, queryVector []float32, k int) ([]domain.SearchResult, error) {
	query := `
		SELECT id, content, source_name, page, ordinal,
		       1 - (embedding <=> $1) AS score
		FROM nutrition_chunks
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, pgvector.NewVector(queryVector), k)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode {
			return nil, fmt.Errorf("nutrition_chunks table missing, run ingest init: %w", domain.ErrStoreUnavailable)
		}
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var res domain.SearchResult
		if err := rows.Scan(
			&res.Chunk.ID,
			&res.Chunk.Content,
			&res.Chunk.SourceName,
			&res.Chunk.Page,
			&res.Chunk.Ordinal,
			&res.Score,
		); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}
	return results, nil
}

// Ping reports database reachability.
func (r *chunkRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Init creates the extension, table, and ANN index for the given embedding
// dimension.
func (r *chunkRepository) Init(ctx context.Context, dimension int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS nutrition_chunks (
			id UUID PRIMARY KEY,
			content TEXT NOT NULL,
			source_name TEXT NOT NULL,
			page INT NOT NULL DEFAULT 0,
			ordinal INT NOT NULL DEFAULT 0,
			embedding vector(%d) NOT NULL
		)`, dimension),
		`CREATE INDEX IF NOT EXISTS nutrition_chunks_embedding_idx
			ON nutrition_chunks USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to init chunk store: %w", err)
		}
	}
	return nil
}

// Reset drops the chunk table so a following Init starts from scratch.
func (r *chunkRepository) Reset(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DROP TABLE IF EXISTS nutrition_chunks`); err != nil {
		return fmt.Errorf("failed to reset chunk store: %w", err)
	}
	return nil
}

// Upsert bulk-loads chunks with their embeddings via COPY. The ingest CLI
// recreates the table before a full load, so plain inserts are sufficient.
func (r *chunkRepository) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}

	rows := make([][]interface{}, len(chunks))
	for i, chunk := range chunks {
		rows[i] = []interface{}{
			chunk.ID,
			chunk.Content,
			chunk.SourceName,
			chunk.Page,
			chunk.Ordinal,
			pgvector.NewVector(vectors[i]),
		}
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"nutrition_chunks"},
		[]string{"id", "content", "source_name", "page", "ordinal", "embedding"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk insert chunks: %w", err)
	}
	return nil
}
