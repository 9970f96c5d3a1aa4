package rag_http

import (
	"log/slog"
	"net/http"
	"strings"

	"nutriagent/internal/domain"
	"nutriagent/internal/usecase"

	"github.com/labstack/echo/v4"
)

// ResearchRequest is the payload for POST /v1/research.
type ResearchRequest struct {
	Query string `json:"query"`
	// History is the prior conversation, oldest first. The latest question
	// goes in Query, not here.
	History []domain.ChatTurn `json:"history,omitempty"`
	// Reasoning overrides the server default for chain-of-thought mode.
	Reasoning *bool `json:"reasoning,omitempty"`
}

// ChunkRef is one cited source chunk in the response.
type ChunkRef struct {
	ID      string  `json:"id"`
	Source  string  `json:"source"`
	Page    int     `json:"page"`
	Content string  `json:"content"`
	Score   float32 `json:"score"`
}

// ResearchResponse is the rendered result of one research turn. The
// endpoint always answers 200 with a renderable turn; failures show up as
// status "degraded", never as a 5xx.
type ResearchResponse struct {
	Answer        string     `json:"answer"`
	Sources       []ChunkRef `json:"sources"`
	ModelThoughts string     `json:"model_thoughts"`
	Status        string     `json:"status"`
}

// Handler exposes the research pipeline over HTTP.
type Handler struct {
	researchers *usecase.ResearcherCache
	baseConfig  usecase.ResearchConfig
	logger      *slog.Logger
}

// NewHandler creates the HTTP handler.
func NewHandler(researchers *usecase.ResearcherCache, baseConfig usecase.ResearchConfig, logger *slog.Logger) *Handler {
	return &Handler{
		researchers: researchers,
		baseConfig:  baseConfig,
		logger:      logger,
	}
}

// Research handles POST /v1/research.
func (h *Handler) Research(c echo.Context) error {
	var req ResearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Query) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}
	for _, turn := range req.History {
		if turn.Role != domain.RoleUser && turn.Role != domain.RoleAssistant {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "history roles must be user or assistant"})
		}
	}

	cfg := h.baseConfig
	if req.Reasoning != nil {
		cfg.ReasoningEnabled = *req.Reasoning
	}

	uc := h.researchers.Get(cfg)
	answer := uc.Research(c.Request().Context(), req.Query, req.History)

	sources := make([]ChunkRef, 0, len(answer.Sources))
	for _, src := range answer.Sources {
		sources = append(sources, ChunkRef{
			ID:      src.Chunk.ID.String(),
			Source:  src.Chunk.SourceName,
			Page:    src.Chunk.Page,
			Content: src.Chunk.Content,
			Score:   src.Score,
		})
	}

	return c.JSON(http.StatusOK, ResearchResponse{
		Answer:        answer.Answer,
		Sources:       sources,
		ModelThoughts: answer.ModelThoughts,
		Status:        string(answer.Status),
	})
}
