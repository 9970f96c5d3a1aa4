package usecase

import (
	"fmt"
	"strings"

	"nutriagent/internal/domain"
	"nutriagent/internal/usecase/retrieval"
)

// PromptMode selects the instruction set embedded in the generation prompt.
// It is fixed when the research pipeline is constructed, not re-evaluated
// per request.
type PromptMode int

const (
	// ModeDirect asks for a plain answer wrapped in <answer> tags.
	ModeDirect PromptMode = iota
	// ModeReasoning asks for an explicit <thinking> block before <answer>.
	ModeReasoning
)

// PromptInput contains the pieces that feed into the prompt builder.
type PromptInput struct {
	Question string
	History  []domain.ChatTurn
	Context  []retrieval.RankedChunk
}

// PromptBuilder builds the chat messages sent to the LLM.
type PromptBuilder interface {
	Build(input PromptInput) []domain.Message
}

const reasoningInstructions = `You are a Critical Thinking Nutritionist. Follow this structure strictly:

1.  **Analyze (<thinking>)**:
    - Identify the user's core intent.
    - Scan the provided Context for keywords.
    - Discard irrelevant information.
    - Check for conflicting information.

2.  **Formulate (<answer>)**:
    - Answer the question DIRECTLY based *only* on the context.
    - If the context is empty or insufficient, state: "Xin lỗi, tài liệu hiện tại không có thông tin về vấn đề này."
    - Do not use outside knowledge.
    - Answer in the same language as the user's question.
    - **CITATION REQUIREMENT:** You MUST cite sources using the format [source-name]. Append the citation directly after the relevant sentence.

FORMAT YOUR OUTPUT AS:
<thinking>
[Your step-by-step reasoning here]
</thinking>
<answer>
[Your final response to the user here with citations]
</answer>`

const directInstructions = `You are a helpful Nutrition Assistant.
- Answer DIRECTLY based on the Context.
- Do not include internal thoughts.
- Answer in the same language as the user's question.
- Cite sources using the format [source-name] after the relevant sentence.
- If the context is empty or insufficient, say "Xin lỗi, tài liệu hiện tại không có thông tin về vấn đề này."
- Wrap your final response in <answer> tags for consistency.`

// NutriPromptBuilder renders the system message (mode-dependent
// instructions plus the ranked context), the conversation history, and the
// user question into chat messages.
type NutriPromptBuilder struct {
	mode PromptMode
}

// NewNutriPromptBuilder creates a prompt builder for the given mode.
func NewNutriPromptBuilder(mode PromptMode) PromptBuilder {
	return &NutriPromptBuilder{mode: mode}
}

// Build renders the messages for the chat API.
func (b *NutriPromptBuilder) Build(input PromptInput) []domain.Message {
	instructions := directInstructions
	if b.mode == ModeReasoning {
		instructions = reasoningInstructions
	}

	var sb strings.Builder
	sb.WriteString("You are NutriAgent, an expert assistant for nutrition and food composition questions.\n\n")
	sb.WriteString("### INSTRUCTIONS:\n")
	sb.WriteString(instructions)
	sb.WriteString("\n\n### CONTEXT:\n")
	if len(input.Context) == 0 {
		sb.WriteString("(no relevant documents found)\n")
	}
	for _, item := range input.Context {
		sb.WriteString(fmt.Sprintf("[%s (p.%d)]\n", item.Chunk.SourceName, item.Chunk.Page))
		sb.WriteString(strings.TrimSpace(item.Chunk.Content))
		sb.WriteString("\n\n")
	}

	messages := make([]domain.Message, 0, len(input.History)+2)
	messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: sb.String()})
	for _, turn := range input.History {
		messages = append(messages, domain.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: input.Question})
	return messages
}
