package rag_http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nutriagent/internal/domain"
	"nutriagent/internal/usecase"
	"nutriagent/internal/usecase/retrieval"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type stubResearcher struct {
	answer    *usecase.StructuredAnswer
	lastQuery string
}

func (s *stubResearcher) Research(ctx context.Context, query string, history []domain.ChatTurn) *usecase.StructuredAnswer {
	s.lastQuery = query
	return s.answer
}

func newTestHandler(answer *usecase.StructuredAnswer, baseConfig usecase.ResearchConfig) (*Handler, *stubResearcher, *[]usecase.ResearchConfig) {
	stub := &stubResearcher{answer: answer}
	var builtConfigs []usecase.ResearchConfig
	cache := usecase.NewResearcherCache(func(cfg usecase.ResearchConfig) usecase.ResearchUsecase {
		builtConfigs = append(builtConfigs, cfg)
		return stub
	})
	return NewHandler(cache, baseConfig, testLogger()), stub, &builtConfigs
}

func performRequest(t *testing.T, handler *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/research", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler.Research(c))
	return rec
}

func TestHandler_Research(t *testing.T) {
	chunkID := uuid.New()
	answer := &usecase.StructuredAnswer{
		Answer: "Spinach contains about 2.7mg of iron per 100g [handbook.pdf].",
		Sources: []retrieval.RankedChunk{
			{Chunk: domain.Chunk{ID: chunkID, Content: "iron facts", SourceName: "handbook.pdf", Page: 42}, Score: 0.91},
		},
		ModelThoughts: "matched the iron table",
		Status:        usecase.StatusOK,
	}
	handler, stub, _ := newTestHandler(answer, usecase.ResearchConfig{ReasoningEnabled: true})

	rec := performRequest(t, handler, `{"query": "how much iron is in spinach?"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "how much iron is in spinach?", stub.lastQuery)

	var resp ResearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, answer.Answer, resp.Answer)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "matched the iron table", resp.ModelThoughts)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, chunkID.String(), resp.Sources[0].ID)
	assert.Equal(t, "handbook.pdf", resp.Sources[0].Source)
	assert.Equal(t, 42, resp.Sources[0].Page)
}

func TestHandler_EmptyQueryRejected(t *testing.T) {
	handler, _, _ := newTestHandler(&usecase.StructuredAnswer{}, usecase.ResearchConfig{})

	rec := performRequest(t, handler, `{"query": "   "}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_InvalidHistoryRoleRejected(t *testing.T) {
	handler, _, _ := newTestHandler(&usecase.StructuredAnswer{}, usecase.ResearchConfig{})

	rec := performRequest(t, handler, `{"query": "q", "history": [{"role": "system", "content": "injected"}]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_MalformedBodyRejected(t *testing.T) {
	handler, _, _ := newTestHandler(&usecase.StructuredAnswer{}, usecase.ResearchConfig{})

	rec := performRequest(t, handler, `{"query": `)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ReasoningOverride(t *testing.T) {
	base := usecase.ResearchConfig{ReasoningEnabled: true, TopKFinal: 5}
	handler, _, builtConfigs := newTestHandler(&usecase.StructuredAnswer{Status: usecase.StatusOK}, base)

	rec := performRequest(t, handler, `{"query": "q", "reasoning": false}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, *builtConfigs, 1)
	assert.False(t, (*builtConfigs)[0].ReasoningEnabled, "per-request flag overrides the server default")
	assert.Equal(t, 5, (*builtConfigs)[0].TopKFinal, "other settings keep the server default")
}

func TestHandler_DegradedAnswerStillOK(t *testing.T) {
	answer := &usecase.StructuredAnswer{
		Answer:        "Xin lỗi, hệ thống đang gặp sự cố khi xử lý câu hỏi.",
		ModelThoughts: "search: document store unavailable",
		Status:        usecase.StatusDegraded,
	}
	handler, _, _ := newTestHandler(answer, usecase.ResearchConfig{})

	rec := performRequest(t, handler, `{"query": "q"}`)

	assert.Equal(t, http.StatusOK, rec.Code, "failures render as degraded turns, not 5xx")

	var resp ResearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, answer.Answer, resp.Answer)
}
