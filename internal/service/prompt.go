package service

import (
	"strings"

	"documentor/internal/domain"
)

// ContextDelimiter separates retrieved chunks inside the user turn.
const ContextDelimiter = "\n---\n"

const systemPrompt = `You are DocuMentor, an assistant that answers questions about a single document uploaded by the user.
Answer using only the information in the context supplied with the question. Do not rely on prior knowledge.
If the context does not contain the answer, reply that there is not enough information in the document to answer the question.
The context consists of excerpts from the document separated by lines containing only "---".`

// BuildMessages assembles the grounded prompt: a system turn with the
// instructions and a user turn with the retrieved excerpts, in retrieval
// order, followed by the question.
func BuildMessages(question string, results []domain.SearchResult) []domain.Message {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Chunk.Text
	}

	var sb strings.Builder
	sb.WriteString("Context:\n")
	sb.WriteString(strings.Join(texts, ContextDelimiter))
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(strings.TrimSpace(question))

	return []domain.Message{
		{Role: domain.RoleSystem, Content: systemPrompt},
		{Role: domain.RoleUser, Content: sb.String()},
	}
}
