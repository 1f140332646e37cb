// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the per-call request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "market-edge/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SearchConfig holds settings for the search gateway and its providers.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// ExaAPIKey authenticates against the primary provider.
	ExaAPIKey string `json:"exa_api_key,omitempty" yaml:"exa_api_key,omitempty" mapstructure:"exa_api_key"`

	// JinaAPIKey authenticates against the secondary provider.
	JinaAPIKey string `json:"jina_api_key,omitempty" yaml:"jina_api_key,omitempty" mapstructure:"jina_api_key"`

	// ResultCount is the number of snippets stages request per search (default 2).
	ResultCount int `json:"result_count" yaml:"result_count" mapstructure:"result_count"`

	// RateLimitRetries is how many times a provider call is repeated on
	// HTTP 429. Zero disables rate-limit retries.
	RateLimitRetries int `json:"rate_limit_retries" yaml:"rate_limit_retries" mapstructure:"rate_limit_retries"`
}

// Provider identifies a generative backend.
type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderGemini Provider = "gemini"
)

// AIConfig holds settings for the generative backend.
type AIConfig struct {
	// Provider selects the backend: claude or gemini.
	Provider Provider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Temperature is the sampling temperature in [0,1] (default 0.7).
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`

	// MaxTokens caps the length of each completion (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
}

// EmbeddingConfig holds settings for the artifact embedder.
type EmbeddingConfig struct {
	Model  string `json:"model" yaml:"model" mapstructure:"model"`
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// ArtifactConfig holds settings for the artifact store.
type ArtifactConfig struct {
	// Dir is the base directory for the store (contains index/).
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// ChunkWords is the number of words per chunk (default 500).
	ChunkWords int `json:"chunk_words" yaml:"chunk_words" mapstructure:"chunk_words"`

	// TopK is the default number of chunks a query returns (default 5).
	TopK int `json:"top_k" yaml:"top_k" mapstructure:"top_k"`
}

// RetryConfig configures the optional caller-side retry decorator.
// Attempts of 1 or less disables retries.
type RetryConfig struct {
	Attempts  int           `json:"attempts" yaml:"attempts" mapstructure:"attempts"`
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay" mapstructure:"base_delay"`
}

// StageConfig holds settings shared by every pipeline stage.
type StageConfig struct {
	// ArchiveTimeout bounds each asynchronous artifact write (default 2m).
	ArchiveTimeout time.Duration `json:"archive_timeout" yaml:"archive_timeout" mapstructure:"archive_timeout"`
}

// RedisConfig locates the report sink.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr" mapstructure:"addr"`
	Password string `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`
	DB       int    `json:"db" yaml:"db" mapstructure:"db"`
	Prefix   string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`
}

// ServerConfig holds settings for the HTTP surface.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// Config groups every component configuration.
type Config struct {
	Search    SearchConfig    `json:"search" yaml:"search" mapstructure:"search"`
	AI        AIConfig        `json:"ai" yaml:"ai" mapstructure:"ai"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding" mapstructure:"embedding"`
	Artifacts ArtifactConfig  `json:"artifacts" yaml:"artifacts" mapstructure:"artifacts"`
	Retry     RetryConfig     `json:"retry" yaml:"retry" mapstructure:"retry"`
	Stage     StageConfig     `json:"stage" yaml:"stage" mapstructure:"stage"`
	Redis     RedisConfig     `json:"redis" yaml:"redis" mapstructure:"redis"`
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
}

// DefaultConfig returns the configuration used when no file or flag
// overrides a value.
func DefaultConfig() Config {
	return Config{
		Search: SearchConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "market-edge/0.1",
			},
			ResultCount: 2,
		},
		AI: AIConfig{
			Provider:    ProviderClaude,
			Model:       "claude-sonnet-4-5-20250929",
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Embedding: EmbeddingConfig{
			Model: "gemini-embedding-001",
		},
		Artifacts: ArtifactConfig{
			Dir:        "artifacts",
			ChunkWords: 500,
			TopK:       5,
		},
		Retry: RetryConfig{
			Attempts:  1,
			BaseDelay: time.Second,
		},
		Stage: StageConfig{
			ArchiveTimeout: 2 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "market-edge",
		},
		Server: ServerConfig{
			Addr: ":8000",
		},
	}
}
