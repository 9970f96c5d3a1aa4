package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DBConfig holds PostgreSQL connection parameters for the pgvector store.
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	MaxConns int
	MinConns int
}

// DSN renders the pool connection string.
func (d DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// QdrantConfig holds the gRPC endpoint and collection for the Qdrant store.
type QdrantConfig struct {
	Addr       string
	Collection string
}

// GeneratorConfig holds the Groq (OpenAI-compatible) chat completion
// endpoint parameters.
type GeneratorConfig struct {
	URL               string
	APIKey            string
	Model             string
	RequestsPerMinute int
	TimeoutSeconds    int
}

// InferenceConfig holds one text-embeddings-inference endpoint.
type InferenceConfig struct {
	URL            string
	Model          string
	TimeoutSeconds int
}

// PipelineConfig holds the retrieval and generation tunables.
type PipelineConfig struct {
	ReasoningEnabled     bool
	TopKInitial          int
	TopKFinal            int
	NumQueryVariants     int
	AnswerMaxTokens      int
	RerankTimeoutSeconds int
}

type Config struct {
	Env  string
	Port string

	// VectorDBType selects the document store backend: "pgvector" or
	// "qdrant".
	VectorDBType string

	DB           DBConfig
	Qdrant       QdrantConfig
	Generator    GeneratorConfig
	Embedder     InferenceConfig
	EmbeddingDim int
	Reranker     InferenceConfig
	Pipeline     PipelineConfig
}

func Load() *Config {
	// Local development keeps secrets in .env; a missing file is fine.
	_ = godotenv.Load()

	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "9020"),

		VectorDBType: getEnv("VECTOR_DB_TYPE", "pgvector"),

		DB: DBConfig{
			Host:     getEnv("DB_HOST", "nutri-db"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "nutri_user"),
			Password: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "nutri_password"),
			Name:     getEnv("DB_NAME", "nutri_db"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
			MinConns: getEnvInt("DB_MIN_CONNS", 2),
		},

		Qdrant: QdrantConfig{
			Addr:       getEnv("QDRANT_ADDR", "localhost:6334"),
			Collection: getEnv("QDRANT_COLLECTION", "nutrition_agent"),
		},

		Generator: GeneratorConfig{
			URL:               getEnv("GROQ_URL", "https://api.groq.com/openai/v1"),
			APIKey:            getSecret("GROQ_API_KEY", "GROQ_API_KEY_FILE", ""),
			Model:             getEnv("GROQ_MODEL_NAME", "llama-3.1-8b-instant"),
			RequestsPerMinute: getEnvInt("GROQ_REQUESTS_PER_MINUTE", 30),
			TimeoutSeconds:    getEnvInt("GENERATOR_TIMEOUT_SECONDS", 60),
		},

		Embedder: InferenceConfig{
			URL:            getEnv("EMBEDDER_URL", "http://localhost:8080"),
			Model:          getEnv("EMBEDDING_MODEL", "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2"),
			TimeoutSeconds: getEnvInt("EMBEDDER_TIMEOUT_SECONDS", 30),
		},
		EmbeddingDim: getEnvInt("EMBEDDING_DIM", 384),

		Reranker: InferenceConfig{
			URL:            getEnv("RERANKER_URL", "http://localhost:8081"),
			Model:          getEnv("RERANKER_MODEL", "BAAI/bge-reranker-base"),
			TimeoutSeconds: getEnvInt("RERANKER_TIMEOUT_SECONDS", 30),
		},

		Pipeline: PipelineConfig{
			ReasoningEnabled:     getEnvBool("REASONING_ENABLED", true),
			TopKInitial:          getEnvInt("TOP_K_INITIAL", 20),
			TopKFinal:            getEnvInt("TOP_K_FINAL", 5),
			NumQueryVariants:     getEnvInt("NUM_QUERY_VARIANTS", 4),
			AnswerMaxTokens:      getEnvInt("ANSWER_MAX_TOKENS", 2048),
			RerankTimeoutSeconds: getEnvInt("RERANK_STAGE_TIMEOUT_SECONDS", 10),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
