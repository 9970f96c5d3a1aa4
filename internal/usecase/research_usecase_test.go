package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"nutriagent/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testConfig() ResearchConfig {
	return ResearchConfig{
		ReasoningEnabled: true,
		TopKInitial:      5,
		TopKFinal:        2,
		NumQueryVariants: 1,
		AnswerMaxTokens:  512,
	}
}

func searchResult(content string, score float32) domain.SearchResult {
	return domain.SearchResult{
		Chunk: domain.Chunk{ID: uuid.New(), Content: content, SourceName: "handbook.pdf", Page: 1},
		Score: score,
	}
}

func newTestResearcher(gen *mockGenerator, encoder *mockEncoder, store *mockStore, reranker domain.Reranker) ResearchUsecase {
	return NewResearchUsecase(
		NewHistoryRewriter(gen, testLogger()),
		encoder,
		store,
		reranker,
		gen,
		NewNutriPromptBuilder(ModeReasoning),
		testConfig(),
		testLogger(),
	)
}

func TestResearch_HappyPath(t *testing.T) {
	resA := searchResult("Spinach has 2.7mg iron per 100g.", 0.9)
	resB := searchResult("Iron absorption improves with vitamin C.", 0.8)
	resC := searchResult("Unrelated chunk about sodium.", 0.7)

	encoder := new(mockEncoder)
	encoder.On("Encode", mock.Anything, []string{"how much iron is in spinach?"}).
		Return([][]float32{{0.1}}, nil)

	store := new(mockStore)
	store.On("Search", mock.Anything, []float32{0.1}, 5).
		Return([]domain.SearchResult{resA, resB, resC}, nil)

	reranker := new(mockReranker)
	reranker.On("Rerank", mock.Anything, "how much iron is in spinach?", mock.Anything).
		Return([]domain.RerankResult{
			{ID: resA.Chunk.ID.String(), Score: 0.95},
			{ID: resB.Chunk.ID.String(), Score: 0.5},
			{ID: resC.Chunk.ID.String(), Score: 0.1},
		}, nil)

	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, 512).
		Return(&domain.LLMResponse{
			Text: "<thinking>The context covers iron in spinach.</thinking><answer>Spinach contains about 2.7mg of iron per 100g [handbook.pdf].</answer>",
			Done: true,
		}, nil)

	uc := newTestResearcher(gen, encoder, store, reranker)
	answer := uc.Research(context.Background(), "how much iron is in spinach?", nil)

	assert.Equal(t, StatusOK, answer.Status)
	assert.Equal(t, "Spinach contains about 2.7mg of iron per 100g [handbook.pdf].", answer.Answer)
	assert.Equal(t, "The context covers iron in spinach.", answer.ModelThoughts)
	require.Len(t, answer.Sources, 2, "context truncated to the final top-k")
	assert.Equal(t, resA.Chunk.ID, answer.Sources[0].Chunk.ID)
	assert.Equal(t, resB.Chunk.ID, answer.Sources[1].Chunk.ID)
}

func TestResearch_StoreFailureReturnsDegradedTurn(t *testing.T) {
	encoder := new(mockEncoder)
	encoder.On("Encode", mock.Anything, mock.Anything).
		Return([][]float32{{0.1}}, nil)

	store := new(mockStore)
	store.On("Search", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.ErrStoreUnavailable)

	uc := newTestResearcher(new(mockGenerator), encoder, store, new(mockReranker))
	answer := uc.Research(context.Background(), "any question", nil)

	assert.Equal(t, StatusDegraded, answer.Status)
	assert.Equal(t, "Xin lỗi, hệ thống đang gặp sự cố khi xử lý câu hỏi.", answer.Answer)
	assert.Contains(t, answer.ModelThoughts, "document store unavailable")
	assert.Empty(t, answer.Sources)
}

func TestResearch_GenerationFailureReturnsDegradedTurn(t *testing.T) {
	res := searchResult("some chunk", 0.9)

	encoder := new(mockEncoder)
	encoder.On("Encode", mock.Anything, mock.Anything).
		Return([][]float32{{0.1}}, nil)

	store := new(mockStore)
	store.On("Search", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.SearchResult{res}, nil)

	reranker := new(mockReranker)
	reranker.On("Rerank", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.RerankResult{{ID: res.Chunk.ID.String(), Score: 0.9}}, nil)

	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("429 too many requests"))

	uc := newTestResearcher(gen, encoder, store, reranker)
	answer := uc.Research(context.Background(), "any question", nil)

	assert.Equal(t, StatusDegraded, answer.Status)
	assert.Equal(t, "Xin lỗi, hệ thống đang gặp sự cố khi xử lý câu hỏi.", answer.Answer)
	assert.Contains(t, answer.ModelThoughts, "429")
}

func TestResearch_EmptyGenerationReturnsDegradedTurn(t *testing.T) {
	res := searchResult("some chunk", 0.9)

	encoder := new(mockEncoder)
	encoder.On("Encode", mock.Anything, mock.Anything).
		Return([][]float32{{0.1}}, nil)

	store := new(mockStore)
	store.On("Search", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.SearchResult{res}, nil)

	reranker := new(mockReranker)
	reranker.On("Rerank", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.RerankResult{{ID: res.Chunk.ID.String(), Score: 0.9}}, nil)

	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.LLMResponse{Text: "  ", Done: true}, nil)

	uc := newTestResearcher(gen, encoder, store, reranker)
	answer := uc.Research(context.Background(), "any question", nil)

	assert.Equal(t, StatusDegraded, answer.Status)
	assert.Contains(t, answer.ModelThoughts, "empty generator response")
}

func TestResearch_NoCandidatesYieldsNoContextStatus(t *testing.T) {
	encoder := new(mockEncoder)
	encoder.On("Encode", mock.Anything, mock.Anything).
		Return([][]float32{{0.1}}, nil)

	store := new(mockStore)
	store.On("Search", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.SearchResult{}, nil)

	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(messages []domain.Message) bool {
		return strings.Contains(messages[0].Content, "(no relevant documents found)")
	}), mock.Anything).
		Return(&domain.LLMResponse{
			Text: "<answer>Xin lỗi, tài liệu hiện tại không có thông tin về vấn đề này.</answer>",
			Done: true,
		}, nil)

	uc := newTestResearcher(gen, encoder, store, new(mockReranker))
	answer := uc.Research(context.Background(), "completely unknown topic", nil)

	assert.Equal(t, StatusNoContext, answer.Status)
	assert.Equal(t, "Xin lỗi, tài liệu hiện tại không có thông tin về vấn đề này.", answer.Answer)
	assert.Empty(t, answer.Sources)
	gen.AssertExpectations(t)
}

func TestResearch_RerankerFailureStillAnswers(t *testing.T) {
	res := searchResult("chunk", 0.9)

	encoder := new(mockEncoder)
	encoder.On("Encode", mock.Anything, mock.Anything).
		Return([][]float32{{0.1}}, nil)

	store := new(mockStore)
	store.On("Search", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.SearchResult{res}, nil)

	reranker := new(mockReranker)
	reranker.On("Rerank", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("cross-encoder down"))

	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.LLMResponse{Text: "<answer>still answered</answer>", Done: true}, nil)

	uc := newTestResearcher(gen, encoder, store, reranker)
	answer := uc.Research(context.Background(), "q", nil)

	assert.Equal(t, StatusOK, answer.Status)
	assert.Equal(t, "still answered", answer.Answer)
	require.Len(t, answer.Sources, 1, "retrieval order used when reranking fails")
}
