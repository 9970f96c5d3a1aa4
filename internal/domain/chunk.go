package domain

import "github.com/google/uuid"

// Chunk is the atomic retrieval unit: a bounded span of source-document
// text plus its provenance. Chunks are written once by the ingestion CLI
// and are read-only at query time.
type Chunk struct {
	ID         uuid.UUID
	Content    string
	SourceName string
	Page       int
	Ordinal    int
}

// SearchResult represents a chunk found via vector search, including its
// similarity score. Stores return results best-match-first.
type SearchResult struct {
	Chunk Chunk
	Score float32
}

// ChatTurn is one turn of the conversation history as supplied by the caller.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message is a single chat message sent to the text generator.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
