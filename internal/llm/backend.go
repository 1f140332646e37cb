// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/market-edge/pkg/types"
)

// NewBackend builds the backend selected by cfg.Provider.
func NewBackend(ctx context.Context, cfg types.AIConfig, httpCfg types.HTTPConfig) (Backend, error) {
	switch cfg.Provider {
	case types.ProviderClaude, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Claude API key is required")
		}
		return &ClaudeBackend{
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
			Client: &http.Client{Timeout: httpCfg.Timeout},
		}, nil
	case types.ProviderGemini:
		model := cfg.Model
		if strings.HasPrefix(model, "claude-") {
			model = ""
		}
		return NewGeminiBackend(ctx, cfg.APIKey, model)
	}
	return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
}
