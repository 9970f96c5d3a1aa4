package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"nutriagent/internal/di"
	"nutriagent/internal/domain"
	"nutriagent/internal/infra/config"
)

var (
	version = "dev"

	// Global flags
	verbose bool

	// Run command flags
	filePath  string
	batchSize int
	dryRun    bool
	recreate  bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "ingest",
	Short:   "Load nutrition document chunks into the vector store",
	Version: version,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the vector store schema",
	RunE:  runInit,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Embed and upsert chunks from a JSONL file",
	Long: `Read pre-chunked documents from a JSONL file, embed each batch,
and upsert the vectors into the configured store.

Each line is one chunk:
  {"id": "optional-uuid", "content": "...", "source": "handbook.pdf", "page": 12, "ordinal": 3}

Examples:
  # Load a chunk file
  ingest run --file chunks.jsonl

  # Rebuild the collection from scratch
  ingest run --file chunks.jsonl --recreate

  # Count what would be loaded
  ingest run --file chunks.jsonl --dry-run`,
	RunE: runIngest,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	runCmd.Flags().StringVar(&filePath, "file", "", "JSONL chunk file (required)")
	runCmd.Flags().IntVar(&batchSize, "batch-size", 32, "chunks per embedding batch")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and count without embedding or writing")
	runCmd.Flags().BoolVar(&recreate, "recreate", false, "drop and recreate the store before loading")
	_ = runCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// chunkRecord is one JSONL line of the ingest file.
type chunkRecord struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Source  string `json:"source"`
	Page    int    `json:"page"`
	Ordinal int    `json:"ordinal"`
}

func (r chunkRecord) toChunk() (domain.Chunk, error) {
	chunk := domain.Chunk{
		Content:    r.Content,
		SourceName: r.Source,
		Page:       r.Page,
		Ordinal:    r.Ordinal,
	}
	if r.ID == "" {
		chunk.ID = uuid.New()
		return chunk, nil
	}
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return domain.Chunk{}, fmt.Errorf("invalid chunk id %q: %w", r.ID, err)
	}
	chunk.ID = id
	return chunk, nil
}

func runInit(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg := config.Load()

	ctx := cmd.Context()
	components, err := di.NewApplicationComponents(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("wire components: %w", err)
	}
	defer components.Close()

	if err := components.Writer.Init(ctx, cfg.EmbeddingDim); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	logger.Info("store_initialized",
		slog.String("vector_db", cfg.VectorDBType),
		slog.Int("dimension", cfg.EmbeddingDim))
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg := config.Load()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down...", slog.String("signal", sig.String()))
		cancel()
	}()

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open chunk file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if dryRun {
		count, err := countRecords(file)
		if err != nil {
			return err
		}
		logger.Info("dry_run_completed", slog.Int("chunk_count", count))
		return nil
	}

	components, err := di.NewApplicationComponents(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("wire components: %w", err)
	}
	defer components.Close()

	if recreate {
		if err := components.Writer.Reset(ctx); err != nil {
			return fmt.Errorf("reset store: %w", err)
		}
		logger.Info("store_reset")
	}
	if err := components.Writer.Init(ctx, cfg.EmbeddingDim); err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	total := 0
	batch := make([]domain.Chunk, 0, batchSize)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec chunkRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("line %d: parse record: %w", line, err)
		}
		if rec.Content == "" {
			logger.Warn("skipping_empty_chunk", slog.Int("line", line))
			continue
		}
		chunk, err := rec.toChunk()
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		batch = append(batch, chunk)
		if len(batch) >= batchSize {
			if err := flushBatch(ctx, components, batch, logger); err != nil {
				return err
			}
			total += len(batch)
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read chunk file: %w", err)
	}
	if len(batch) > 0 {
		if err := flushBatch(ctx, components, batch, logger); err != nil {
			return err
		}
		total += len(batch)
	}

	logger.Info("ingest_completed",
		slog.Int("chunk_count", total),
		slog.String("vector_db", cfg.VectorDBType))
	return nil
}

func flushBatch(ctx context.Context, components *di.ApplicationComponents, batch []domain.Chunk, logger *slog.Logger) error {
	texts := make([]string, len(batch))
	for i, chunk := range batch {
		texts[i] = chunk.Content
	}

	vectors, err := components.Encoder.Encode(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if err := components.Writer.Upsert(ctx, batch, vectors); err != nil {
		return fmt.Errorf("upsert batch: %w", err)
	}

	logger.Debug("batch_ingested", slog.Int("size", len(batch)))
	return nil
}

func countRecords(file *os.File) (int, error) {
	count := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec chunkRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return 0, fmt.Errorf("parse record: %w", err)
		}
		if rec.Content != "" {
			count++
		}
	}
	return count, scanner.Err()
}
