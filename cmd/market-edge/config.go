// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/pdiddy/market-edge/internal/secrets"
	"github.com/pdiddy/market-edge/pkg/types"
)

// setDefaults registers every configuration default with v so that
// Unmarshal and environment overrides see the full key set.
func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()
	v.SetDefault("search.timeout", d.Search.Timeout)
	v.SetDefault("search.user_agent", d.Search.UserAgent)
	v.SetDefault("search.exa_api_key", "")
	v.SetDefault("search.jina_api_key", "")
	v.SetDefault("search.result_count", d.Search.ResultCount)
	v.SetDefault("search.rate_limit_retries", d.Search.RateLimitRetries)
	v.SetDefault("ai.provider", string(d.AI.Provider))
	v.SetDefault("ai.model", d.AI.Model)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.temperature", d.AI.Temperature)
	v.SetDefault("ai.max_tokens", d.AI.MaxTokens)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("artifacts.dir", d.Artifacts.Dir)
	v.SetDefault("artifacts.chunk_words", d.Artifacts.ChunkWords)
	v.SetDefault("artifacts.top_k", d.Artifacts.TopK)
	v.SetDefault("retry.attempts", d.Retry.Attempts)
	v.SetDefault("retry.base_delay", d.Retry.BaseDelay)
	v.SetDefault("stage.archive_timeout", d.Stage.ArchiveTimeout)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.prefix", d.Redis.Prefix)
	v.SetDefault("server.addr", d.Server.Addr)
}

// loadConfig reads the merged configuration and fills API keys that the
// config file leaves empty from the loaded secrets.
func loadConfig(v *viper.Viper) (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("parsing configuration: %w", err)
	}

	aiKey := secrets.AnthropicAPIKey
	if cfg.AI.Provider == types.ProviderGemini {
		aiKey = secrets.GeminiAPIKey
	}
	cfg.AI.APIKey = secretDefault(aiKey, cfg.AI.APIKey)
	cfg.Embedding.APIKey = secretDefault(secrets.GeminiAPIKey, cfg.Embedding.APIKey)
	cfg.Search.ExaAPIKey = secretDefault(secrets.ExaAPIKey, cfg.Search.ExaAPIKey)
	cfg.Search.JinaAPIKey = secretDefault(secrets.JinaAPIKey, cfg.Search.JinaAPIKey)
	cfg.Redis.Password = secretDefault(secrets.RedisPassword, cfg.Redis.Password)
	return cfg, nil
}
