package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"documentor/internal/completion"
	"documentor/internal/domain"
)

type chatRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestCompleteSendsTurnsInOrder(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer groq-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  got.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": "Cats sleep a lot."},
				"finish_reason": "stop",
			}},
		})
	}))
	defer srv.Close()

	t.Setenv("TEST_GROQ_KEY", "groq-key")
	p, err := New(Config{
		BaseURL:   srv.URL,
		APIKeyEnv: "TEST_GROQ_KEY",
		Options:   completion.Options{Model: "llama3-8b-8192", MaxTokens: 256},
	})
	require.NoError(t, err)
	assert.Equal(t, "openai:llama3-8b-8192", p.Name())

	reply, err := p.Complete(context.Background(), []domain.Message{
		{Role: domain.RoleSystem, Content: "answer from context"},
		{Role: domain.RoleUser, Content: "how long do cats sleep?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Cats sleep a lot.", reply)

	assert.Equal(t, "llama3-8b-8192", got.Model)
	assert.Equal(t, 256, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "how long do cats sleep?", got.Messages[1].Content)
}

func TestCompleteSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	t.Setenv("TEST_GROQ_KEY", "bad")
	p, err := New(Config{BaseURL: srv.URL, APIKeyEnv: "TEST_GROQ_KEY", Options: completion.Options{Model: "m"}})
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestCompleteWithoutChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	p, err := New(Config{BaseURL: srv.URL, Options: completion.Options{Model: "m"}})
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "hi"}})
	assert.ErrorContains(t, err, "no choices")
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Options: completion.Options{}})
	assert.ErrorContains(t, err, "missing model")

	t.Setenv("EMPTY_GROQ_KEY", "")
	_, err = New(Config{BaseURL: GroqBaseURL, APIKeyEnv: "EMPTY_GROQ_KEY", Options: completion.Options{Model: "m"}})
	assert.ErrorContains(t, err, "EMPTY_GROQ_KEY")
}
