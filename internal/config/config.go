package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	ragerr "documentor/internal/errors"
)

// EnvPrefix prefixes environment overrides, e.g. DOCUMENTOR_CHUNKER_CHUNK_SIZE.
const EnvPrefix = "DOCUMENTOR"

// RateLimitConfig configures per-client request throttling. A zero rate
// disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen           string          `yaml:"listen" mapstructure:"listen"`
	CORSOrigins      []string        `yaml:"cors_origins" mapstructure:"cors_origins"`
	ReadTimeoutSecs  int             `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	WriteTimeoutSecs int             `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
	MaxUploadBytes   int64           `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	RateLimit        RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	ChunkSize int `yaml:"chunk_size" mapstructure:"chunk_size"`
	Overlap   int `yaml:"overlap" mapstructure:"overlap"`
}

// HashingEmbedderConfig configures the local hashing embedder.
type HashingEmbedderConfig struct {
	Dimension int `yaml:"dimension" mapstructure:"dimension"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env" mapstructure:"api_key_env"`
	Model       string `yaml:"model" mapstructure:"model"`
	Dimensions  int    `yaml:"dimensions" mapstructure:"dimensions"`
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type        string                `yaml:"type" mapstructure:"type"`
	TimeoutSecs int                   `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Hashing     HashingEmbedderConfig `yaml:"hashing" mapstructure:"hashing"`
	OpenAI      OpenAIEmbedderConfig  `yaml:"openai" mapstructure:"openai"`
}

// CompletionConfig selects the chat completion backend.
type CompletionConfig struct {
	Type        string  `yaml:"type" mapstructure:"type"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env" mapstructure:"api_key_env"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// RetrievalConfig tunes the query pipeline.
type RetrievalConfig struct {
	TopK int `yaml:"top_k" mapstructure:"top_k"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Chunker    ChunkerConfig    `yaml:"chunker" mapstructure:"chunker"`
	Embedder   EmbedderConfig   `yaml:"embedder" mapstructure:"embedder"`
	Completion CompletionConfig `yaml:"completion" mapstructure:"completion"`
	Retrieval  RetrievalConfig  `yaml:"retrieval" mapstructure:"retrieval"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// EmbedTimeout returns the embedder call timeout.
func (c *AppConfig) EmbedTimeout() time.Duration {
	return time.Duration(c.Embedder.TimeoutSecs) * time.Second
}

// CompletionTimeout returns the completion call timeout.
func (c *AppConfig) CompletionTimeout() time.Duration {
	return time.Duration(c.Completion.TimeoutSecs) * time.Second
}

// LoadOption adjusts loading, typically to apply command-line flags.
type LoadOption func(*viper.Viper)

// WithOverride sets key to value with the highest precedence.
func WithOverride(key string, value any) LoadOption {
	return func(v *viper.Viper) {
		v.Set(key, value)
	}
}

// Load reads a config from path, layered over defaults and overridden by
// DOCUMENTOR_* environment variables. A missing file yields the defaults.
func Load(path string, opts ...LoadOption) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, ragerr.Errorf(ragerr.CodeConfigInvalid, "reading config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, ragerr.Errorf(ragerr.CodeConfigInvalid, "reading config %s: %w", path, err)
		}
	}

	for _, opt := range opts {
		opt(v)
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, ragerr.Errorf(ragerr.CodeConfigInvalid, "unmarshalling config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ragerr.Errorf(ragerr.CodeConfigInvalid, "validating config: %w", errors.Join(errs...))
	}
	return &cfg, nil
}

// LoadDefault tries ./documentor.yaml first, then ~/.config/documentor/config.yaml.
// If neither exists, it writes defaults to ~/.config/documentor/config.yaml and returns them.
func LoadDefault(opts ...LoadOption) (*AppConfig, string, error) {
	cwdPath := "documentor.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath, opts...)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err != nil {
		if err := Save(userPath, Default()); err != nil {
			return nil, "", err
		}
	}
	cfg, err := Load(userPath, opts...)
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "documentor", "config.yaml"), nil
}

// Default returns the built-in configuration: a local hashing embedder and
// Groq's OpenAI-compatible chat endpoint.
func Default() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Listen:           "127.0.0.1:5000",
			CORSOrigins:      []string{"http://localhost:5173", "http://localhost:3000"},
			ReadTimeoutSecs:  30,
			WriteTimeoutSecs: 120,
			MaxUploadBytes:   20 << 20,
			RateLimit:        RateLimitConfig{RequestsPerSecond: 5, Burst: 10},
		},
		Chunker: ChunkerConfig{ChunkSize: 1000, Overlap: 200},
		Embedder: EmbedderConfig{
			Type:        "hashing",
			TimeoutSecs: 30,
			Hashing:     HashingEmbedderConfig{Dimension: 512},
			OpenAI: OpenAIEmbedderConfig{
				BaseURL:     "https://api.openai.com/v1",
				APIKeyEnv:   "OPENAI_API_KEY",
				Model:       "text-embedding-3-small",
				BatchSize:   64,
				Concurrency: 4,
			},
		},
		Completion: CompletionConfig{
			Type:        "openai",
			BaseURL:     "https://api.groq.com/openai/v1",
			APIKeyEnv:   "GROQ_API_KEY",
			Model:       "llama3-8b-8192",
			MaxTokens:   1024,
			Temperature: 0.2,
			TimeoutSecs: 60,
		},
		Retrieval: RetrievalConfig{TopK: 4},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.read_timeout_secs", d.Server.ReadTimeoutSecs)
	v.SetDefault("server.write_timeout_secs", d.Server.WriteTimeoutSecs)
	v.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)
	v.SetDefault("server.rate_limit.requests_per_second", d.Server.RateLimit.RequestsPerSecond)
	v.SetDefault("server.rate_limit.burst", d.Server.RateLimit.Burst)

	v.SetDefault("chunker.chunk_size", d.Chunker.ChunkSize)
	v.SetDefault("chunker.overlap", d.Chunker.Overlap)

	v.SetDefault("embedder.type", d.Embedder.Type)
	v.SetDefault("embedder.timeout_secs", d.Embedder.TimeoutSecs)
	v.SetDefault("embedder.hashing.dimension", d.Embedder.Hashing.Dimension)
	v.SetDefault("embedder.openai.base_url", d.Embedder.OpenAI.BaseURL)
	v.SetDefault("embedder.openai.api_key_env", d.Embedder.OpenAI.APIKeyEnv)
	v.SetDefault("embedder.openai.model", d.Embedder.OpenAI.Model)
	v.SetDefault("embedder.openai.dimensions", d.Embedder.OpenAI.Dimensions)
	v.SetDefault("embedder.openai.batch_size", d.Embedder.OpenAI.BatchSize)
	v.SetDefault("embedder.openai.concurrency", d.Embedder.OpenAI.Concurrency)

	v.SetDefault("completion.type", d.Completion.Type)
	v.SetDefault("completion.base_url", d.Completion.BaseURL)
	v.SetDefault("completion.api_key_env", d.Completion.APIKeyEnv)
	v.SetDefault("completion.model", d.Completion.Model)
	v.SetDefault("completion.max_tokens", d.Completion.MaxTokens)
	v.SetDefault("completion.temperature", d.Completion.Temperature)
	v.SetDefault("completion.timeout_secs", d.Completion.TimeoutSecs)

	v.SetDefault("retrieval.top_k", d.Retrieval.TopK)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Validate checks the configuration for logical errors. It collects every
// problem rather than stopping at the first one.
func (c *AppConfig) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateChunker()...)
	errs = append(errs, c.validateEmbedder()...)
	errs = append(errs, c.validateCompletion()...)

	if c.Retrieval.TopK < 1 {
		errs = append(errs, invalid("retrieval.top_k must be at least 1, got %d", c.Retrieval.TopK))
	}
	if !oneOf(c.Log.Level, "debug", "info", "warn", "error") {
		errs = append(errs, invalid("log.level must be one of [debug, info, warn, error], got %q", c.Log.Level))
	}
	if !oneOf(c.Log.Format, "text", "json") {
		errs = append(errs, invalid("log.format must be one of [text, json], got %q", c.Log.Format))
	}

	return errs
}

func (c *AppConfig) validateServer() []error {
	var errs []error

	if _, portStr, err := net.SplitHostPort(c.Server.Listen); err != nil {
		errs = append(errs, invalid("server.listen must be a valid host:port address, got %q", c.Server.Listen))
	} else if port, err := strconv.Atoi(portStr); err != nil || port < 0 || port > 65535 {
		errs = append(errs, invalid("server.listen port must be between 0 and 65535, got %q", portStr))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, invalid("server.max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes))
	}
	if c.Server.ReadTimeoutSecs < 0 || c.Server.WriteTimeoutSecs < 0 {
		errs = append(errs, invalid("server timeouts must not be negative"))
	}
	if c.Server.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, invalid("server.rate_limit.requests_per_second must not be negative, got %v",
			c.Server.RateLimit.RequestsPerSecond))
	}
	if c.Server.RateLimit.RequestsPerSecond > 0 && c.Server.RateLimit.Burst < 1 {
		errs = append(errs, invalid("server.rate_limit.burst must be at least 1 when rate limiting is enabled"))
	}

	return errs
}

func (c *AppConfig) validateChunker() []error {
	var errs []error

	if c.Chunker.Overlap < 0 {
		errs = append(errs, invalid("chunker.overlap must not be negative, got %d", c.Chunker.Overlap))
	}
	if c.Chunker.ChunkSize <= c.Chunker.Overlap {
		errs = append(errs, invalid("chunker.chunk_size (%d) must be greater than chunker.overlap (%d)",
			c.Chunker.ChunkSize, c.Chunker.Overlap))
	}

	return errs
}

func (c *AppConfig) validateEmbedder() []error {
	var errs []error

	switch c.Embedder.Type {
	case "hashing":
		if c.Embedder.Hashing.Dimension <= 0 {
			errs = append(errs, invalid("embedder.hashing.dimension must be positive, got %d", c.Embedder.Hashing.Dimension))
		}
	case "openai":
		if c.Embedder.OpenAI.Model == "" {
			errs = append(errs, invalid("embedder.openai.model must not be empty"))
		}
	default:
		errs = append(errs, invalid("embedder.type must be one of [hashing, openai], got %q", c.Embedder.Type))
	}
	if c.Embedder.TimeoutSecs <= 0 {
		errs = append(errs, invalid("embedder.timeout_secs must be positive, got %d", c.Embedder.TimeoutSecs))
	}

	return errs
}

func (c *AppConfig) validateCompletion() []error {
	var errs []error

	if !oneOf(c.Completion.Type, "openai", "anthropic") {
		errs = append(errs, invalid("completion.type must be one of [openai, anthropic], got %q", c.Completion.Type))
	}
	if c.Completion.Model == "" {
		errs = append(errs, invalid("completion.model must not be empty"))
	}
	if c.Completion.TimeoutSecs <= 0 {
		errs = append(errs, invalid("completion.timeout_secs must be positive, got %d", c.Completion.TimeoutSecs))
	}
	if c.Completion.Temperature < 0 || c.Completion.Temperature > 2 {
		errs = append(errs, invalid("completion.temperature must be between 0 and 2, got %v", c.Completion.Temperature))
	}

	return errs
}

func invalid(format string, args ...any) error {
	return ragerr.New(ragerr.CodeConfigInvalid, "config: "+fmt.Sprintf(format, args...))
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
