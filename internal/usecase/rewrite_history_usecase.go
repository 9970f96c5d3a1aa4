package usecase

import (
	"context"
	"log/slog"
	"strings"

	"nutriagent/internal/domain"
)

const rewriteMaxTokens = 256

const contextualizeSystemPrompt = `Given a chat history and the latest user question which might reference context in the chat history, formulate a standalone question which can be understood without the chat history.

### INSTRUCTIONS:
1. **RESOLVE COREFERENCES:** Replace "it", "they", "that", "nó", "người đó" with specific nouns from history.
2. **KEEP LANGUAGE:** If the user speaks Vietnamese, output Vietnamese. If English, output English.
3. **NO ANSWERING:** Do NOT answer. Just rewrite.
4. **FORMAT:** Output ONLY the standalone question.`

// HistoryRewriter collapses the chat history and the latest question into a
// single standalone question that can be retrieved against without any
// conversational context.
type HistoryRewriter struct {
	generator domain.TextGenerator
	logger    *slog.Logger
}

// NewHistoryRewriter creates a HistoryRewriter backed by the given generator.
func NewHistoryRewriter(generator domain.TextGenerator, logger *slog.Logger) *HistoryRewriter {
	return &HistoryRewriter{generator: generator, logger: logger}
}

// Rewrite returns the standalone form of latest. An empty history is the
// identity: the question is returned as-is with no generation call.
// Otherwise exactly one generation call is made and its output is used
// verbatim; a failed or empty generation degrades to the raw question,
// since losing anaphora resolution is strictly better than losing the turn.
func (r *HistoryRewriter) Rewrite(ctx context.Context, history []domain.ChatTurn, latest string) string {
	if len(history) == 0 {
		return latest
	}

	messages := make([]domain.Message, 0, len(history)+2)
	messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: contextualizeSystemPrompt})
	for _, turn := range history {
		messages = append(messages, domain.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: latest})

	resp, err := r.generator.Generate(ctx, messages, rewriteMaxTokens)
	if err != nil {
		r.logger.Warn("history_rewrite_failed",
			slog.String("query", latest),
			slog.String("error", err.Error()))
		return latest
	}

	rewritten := strings.TrimSpace(resp.Text)
	if rewritten == "" {
		r.logger.Warn("history_rewrite_empty", slog.String("query", latest))
		return latest
	}

	r.logger.Info("history_rewritten",
		slog.String("original", latest),
		slog.String("standalone", rewritten))
	return rewritten
}
