package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"nutriagent/internal/domain"
)

const expansionMaxTokens = 256

// ExpandQueries generates n variants of the question to widen retrieval
// recall. The result always has length n and always contains the original
// question. One generation call is made; if it fails or returns fewer
// paraphrases than requested, the original question fills the gap so the
// candidate pool downstream is never empty.
func ExpandQueries(ctx context.Context, generator domain.TextGenerator, question string, n int, logger *slog.Logger) []string {
	if n <= 1 {
		return []string{question}
	}

	prompt := fmt.Sprintf(`You are an AI assistant specialized in nutrition and food composition.
Your task is to generate %d different versions of the given user question to retrieve relevant documents from a vector database.
By generating multiple perspectives on the user question, your goal is to help the user overcome some of the limitations of distance-based similarity search.
Keep the same language as the original question.

Provide these alternative questions separated by newlines. Output ONLY the questions, without numbering or explanations.
Original question: %s`, n-1, question)

	resp, err := generator.Generate(ctx, []domain.Message{{Role: domain.RoleUser, Content: prompt}}, expansionMaxTokens)
	if err != nil {
		logger.Warn("query_expansion_failed",
			slog.String("query", question),
			slog.String("error", err.Error()))
		return padVariants(nil, question, n)
	}

	return padVariants(parseVariantLines(resp.Text), question, n)
}

// parseVariantLines splits line-delimited generator output, trimming
// whitespace and stray list markers.
func parseVariantLines(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		trimmed = strings.TrimLeft(trimmed, "-*• \t")
		if i := strings.IndexAny(trimmed, ".)"); i > 0 && i <= 2 {
			if isDigits(trimmed[:i]) {
				trimmed = strings.TrimSpace(trimmed[i+1:])
			}
		}
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// padVariants builds the final variant list: the original question first,
// then distinct paraphrases, padded by repeating the original up to n.
func padVariants(paraphrases []string, question string, n int) []string {
	variants := make([]string, 0, n)
	variants = append(variants, question)
	seen := map[string]struct{}{question: {}}

	for _, p := range paraphrases {
		if len(variants) == n {
			break
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		variants = append(variants, p)
	}
	for len(variants) < n {
		variants = append(variants, question)
	}
	return variants
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
