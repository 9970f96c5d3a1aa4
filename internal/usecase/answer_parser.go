package usecase

import (
	"regexp"
	"strings"
)

// The generation contract is exactly two optional tag pairs, first match,
// non-greedy, multiline. Kept as a narrow regex parser on purpose.
var (
	thinkingRe = regexp.MustCompile(`(?s)<thinking>(.*?)</thinking>`)
	answerRe   = regexp.MustCompile(`(?s)<answer>(.*?)</answer>`)
)

// ParsedAnswer is the reasoning/answer split extracted from raw generator
// output. Missing tags are a recovery path, never an error.
type ParsedAnswer struct {
	Reasoning string
	Answer    string
}

// ParseGeneratedAnswer extracts the answer (and, in reasoning mode, the
// thinking block) from the raw generated text.
//
// Reasoning mode: the first <thinking> span becomes Reasoning (absence
// yields empty reasoning); the first <answer> span becomes Answer. If no
// <answer> span is found, the thinking span is stripped from the raw text
// and any stray answer tokens are removed from the remainder.
//
// Direct mode: stray <answer> tokens are stripped; no reasoning extracted.
func ParseGeneratedAnswer(raw string, mode PromptMode) ParsedAnswer {
	if mode != ModeReasoning {
		return ParsedAnswer{Answer: stripAnswerTags(raw)}
	}

	var parsed ParsedAnswer
	if m := thinkingRe.FindStringSubmatch(raw); m != nil {
		parsed.Reasoning = strings.TrimSpace(m[1])
	}
	if m := answerRe.FindStringSubmatch(raw); m != nil {
		parsed.Answer = strings.TrimSpace(m[1])
		return parsed
	}

	// The model forgot to close (or open) the answer tag: whatever remains
	// after the thinking block is the answer.
	remainder := thinkingRe.ReplaceAllString(raw, "")
	parsed.Answer = stripAnswerTags(remainder)
	return parsed
}

func stripAnswerTags(s string) string {
	s = strings.ReplaceAll(s, "<answer>", "")
	s = strings.ReplaceAll(s, "</answer>", "")
	return strings.TrimSpace(s)
}
