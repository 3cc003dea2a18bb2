package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"documentor/internal/domain"
)

func TestBuildMessages(t *testing.T) {
	results := []domain.SearchResult{
		{Chunk: domain.Chunk{ID: 2, Text: "second chunk"}, Score: 0.9},
		{Chunk: domain.Chunk{ID: 0, Text: "first chunk"}, Score: 0.4},
	}

	msgs := BuildMessages("  what is inside?  ", results)
	require.Len(t, msgs, 2)

	assert.Equal(t, domain.RoleSystem, msgs[0].Role)
	assert.Equal(t, systemPrompt, msgs[0].Content)

	user := msgs[1].Content
	assert.Equal(t, domain.RoleUser, msgs[1].Role)
	assert.True(t, strings.HasPrefix(user, "Context:\nsecond chunk\n---\nfirst chunk\n\n"))
	assert.True(t, strings.HasSuffix(user, "Question: what is inside?"))
}

func TestBuildMessagesSingleChunkHasNoDelimiter(t *testing.T) {
	msgs := BuildMessages("q", []domain.SearchResult{{Chunk: domain.Chunk{Text: "only"}}})
	assert.NotContains(t, msgs[1].Content, ContextDelimiter)
}
