package main

import (
	"log/slog"
	"time"

	"documentor/internal/chunker"
	"documentor/internal/completion"
	anthropicprov "documentor/internal/completion/anthropic"
	openaiprov "documentor/internal/completion/openai"
	"documentor/internal/config"
	"documentor/internal/domain"
	"documentor/internal/embedding"
	"documentor/internal/embedding/hashing"
	openaiemb "documentor/internal/embedding/openai"
	ragerr "documentor/internal/errors"
	"documentor/internal/extractor"
	"documentor/internal/server"
	"documentor/internal/service"
	"documentor/internal/vectorstore/memory"
)

// App holds the wired components of a running server.
type App struct {
	Service *service.RAGService
	Server  *server.Server
}

// Wire builds every component named by cfg.
func Wire(cfg *config.AppConfig, logger *slog.Logger) (*App, error) {
	ch, err := chunker.New(
		chunker.WithChunkSize(cfg.Chunker.ChunkSize),
		chunker.WithOverlap(cfg.Chunker.Overlap),
	)
	if err != nil {
		return nil, err
	}

	emb, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}

	completer, err := newCompleter(cfg.Completion)
	if err != nil {
		return nil, err
	}

	svc := service.NewRAGService(extractor.Default(), ch, emb, memory.NewStorage(), completer,
		service.WithTopK(cfg.Retrieval.TopK),
		service.WithEmbedTimeout(cfg.EmbedTimeout()),
		service.WithCompletionTimeout(cfg.CompletionTimeout()),
		service.WithLogger(logger),
	)

	srv, err := server.New(server.Config{
		ListenAddr:     cfg.Server.Listen,
		CORSOrigins:    cfg.Server.CORSOrigins,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		RateLimit: server.RateLimitConfig{
			RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
			Burst:             cfg.Server.RateLimit.Burst,
		},
		Logger: logger,
	}, svc)
	if err != nil {
		return nil, err
	}

	logger.Debug("components wired",
		"embedder", emb.Name(),
		"completion", completer.Name(),
		"chunk_size", ch.ChunkSize(),
		"overlap", ch.Overlap())

	return &App{Service: svc, Server: srv}, nil
}

func newEmbedder(cfg config.EmbedderConfig) (embedding.Embedder, error) {
	switch cfg.Type {
	case "hashing", "":
		emb, err := hashing.New(cfg.Hashing.Dimension)
		if err != nil {
			return nil, err
		}
		return emb, nil
	case "openai":
		client, err := openaiemb.NewClient(openaiemb.Config{
			BaseURL:     cfg.OpenAI.BaseURL,
			APIKeyEnv:   cfg.OpenAI.APIKeyEnv,
			Model:       cfg.OpenAI.Model,
			Dimensions:  cfg.OpenAI.Dimensions,
			BatchSize:   cfg.OpenAI.BatchSize,
			Concurrency: cfg.OpenAI.Concurrency,
		})
		if err != nil {
			return nil, ragerr.Wrap(err, ragerr.CodeConfigInvalid, "openai embedder init failed")
		}
		return client, nil
	}
	return nil, ragerr.Errorf(ragerr.CodeConfigInvalid, "unknown embedder: %s", cfg.Type)
}

func newCompleter(cfg config.CompletionConfig) (domain.CompletionProvider, error) {
	opts := completion.Options{
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}

	switch cfg.Type {
	case "openai", "":
		p, err := openaiprov.New(openaiprov.Config{BaseURL: cfg.BaseURL, APIKeyEnv: cfg.APIKeyEnv, Options: opts})
		if err != nil {
			return nil, ragerr.Wrap(err, ragerr.CodeConfigInvalid, "openai completion init failed")
		}
		return p, nil
	case "anthropic":
		p, err := anthropicprov.New(anthropicprov.Config{BaseURL: cfg.BaseURL, APIKeyEnv: cfg.APIKeyEnv, Options: opts})
		if err != nil {
			return nil, ragerr.Wrap(err, ragerr.CodeConfigInvalid, "anthropic completion init failed")
		}
		return p, nil
	}
	return nil, ragerr.Errorf(ragerr.CodeConfigInvalid, "unknown completion provider: %s", cfg.Type)
}
