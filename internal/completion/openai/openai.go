// Package openai implements the completion provider for OpenAI-compatible
// chat endpoints such as OpenAI, Groq and Ollama.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"documentor/internal/completion"
	"documentor/internal/domain"
)

// GroqBaseURL is the OpenAI-compatible endpoint of Groq.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// Config configures the OpenAI-compatible chat client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	completion.Options
}

// Provider implements domain.CompletionProvider over the chat completions API.
type Provider struct {
	client *openai.Client
	opts   completion.Options
}

var _ domain.CompletionProvider = (*Provider)(nil)

// New creates a chat client. The API key is read from cfg.APIKeyEnv.
func New(cfg Config) (*Provider, error) {
	if cfg.Model == "" {
		return nil, errors.New("openai completion: missing model")
	}
	key := ""
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	if key == "" && !isLocal(cfg.BaseURL) {
		return nil, fmt.Errorf("openai completion: missing API key in env %s", cfg.APIKeyEnv)
	}

	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Provider{
		client: openai.NewClientWithConfig(clientCfg),
		opts:   cfg.Options.WithDefaults(),
	}, nil
}

func (p *Provider) Name() string { return "openai:" + p.opts.Model }

// Complete sends the turns in order and returns the first choice.
func (p *Provider) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.opts.Model,
		Messages:    convertMessages(messages),
		MaxTokens:   p.opts.MaxTokens,
		Temperature: float32(p.opts.Temperature),
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func convertMessages(msgs []domain.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, msg := range msgs {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case domain.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case domain.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	return out
}

// isLocal reports whether baseURL points at a server that usually runs
// without authentication.
func isLocal(baseURL string) bool {
	return strings.Contains(baseURL, "localhost") || strings.Contains(baseURL, "127.0.0.1")
}
