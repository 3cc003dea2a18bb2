// Package anthropic implements the completion provider on the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"documentor/internal/completion"
	"documentor/internal/domain"
)

// Config holds Anthropic provider configuration.
type Config struct {
	APIKeyEnv  string
	BaseURL    string // optional, useful for testing against a mock server
	MaxRetries int
	completion.Options
}

// Provider implements domain.CompletionProvider using the Anthropic Messages API.
type Provider struct {
	client anthropicsdk.Client
	opts   completion.Options
}

var _ domain.CompletionProvider = (*Provider)(nil)

// New creates a new Anthropic provider. Returns an error if the API key is missing.
func New(cfg Config) (*Provider, error) {
	if cfg.Model == "" {
		return nil, errors.New("anthropic: missing model")
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if cfg.APIKeyEnv == "" || key == "" {
		return nil, fmt.Errorf("anthropic: missing API key in env %s", cfg.APIKeyEnv)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(key),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	} else if cfg.MaxRetries < 0 {
		opts = append(opts, option.WithMaxRetries(0))
	}

	return &Provider{
		client: anthropicsdk.NewClient(opts...),
		opts:   cfg.Options.WithDefaults(),
	}, nil
}

func (p *Provider) Name() string { return "anthropic:" + p.opts.Model }

// Complete sends the conversation and joins the text blocks of the reply.
// System turns are lifted into the top-level system parameter.
func (p *Provider) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	params := buildParams(p.opts, messages)
	if len(params.Messages) == 0 {
		return "", errors.New("anthropic: no user or assistant turns")
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic: messages: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("anthropic: reply contained no text")
	}
	return sb.String(), nil
}

func buildParams(opts completion.Options, messages []domain.Message) anthropicsdk.MessageNewParams {
	params := anthropicsdk.MessageNewParams{
		Model:       anthropicsdk.Model(opts.Model),
		MaxTokens:   int64(opts.MaxTokens),
		Temperature: anthropicsdk.Float(opts.Temperature),
	}

	for _, msg := range messages {
		switch msg.Role {
		case domain.RoleSystem:
			params.System = append(params.System, anthropicsdk.TextBlockParam{Text: msg.Content})
		case domain.RoleAssistant:
			params.Messages = append(params.Messages, anthropicsdk.NewAssistantMessage(
				anthropicsdk.NewTextBlock(msg.Content),
			))
		default:
			params.Messages = append(params.Messages, anthropicsdk.NewUserMessage(
				anthropicsdk.NewTextBlock(msg.Content),
			))
		}
	}
	return params
}
