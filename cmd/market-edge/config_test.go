// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/market-edge/internal/pipeline"
	"github.com/pdiddy/market-edge/internal/secrets"
	"github.com/pdiddy/market-edge/pkg/types"
)

func withSecrets(t *testing.T, s map[string]string) {
	t.Helper()
	prev := loadedSecrets
	loadedSecrets = s
	t.Cleanup(func() { loadedSecrets = prev })
}

func TestLoadConfigDefaults(t *testing.T) {
	withSecrets(t, nil)
	v := viper.New()
	setDefaults(v)

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultConfig(), cfg)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	withSecrets(t, map[string]string{
		secrets.GeminiAPIKey: "gem-key",
		secrets.ExaAPIKey:    "exa-key",
	})
	t.Setenv("MARKET_EDGE_SEARCH_RESULT_COUNT", "4")

	path := filepath.Join(t.TempDir(), "market-edge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ai:
  provider: gemini
  model: gemini-2.5-pro
search:
  timeout: 5s
  jina_api_key: from-file
stage:
  archive_timeout: 30s
`), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	bindEnv(v)
	setDefaults(v)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, types.ProviderGemini, cfg.AI.Provider)
	assert.Equal(t, "gemini-2.5-pro", cfg.AI.Model)
	assert.Equal(t, "gem-key", cfg.AI.APIKey, "gemini provider takes the gemini secret")
	assert.Equal(t, "gem-key", cfg.Embedding.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Search.Timeout)
	assert.Equal(t, "exa-key", cfg.Search.ExaAPIKey)
	assert.Equal(t, "from-file", cfg.Search.JinaAPIKey, "config value wins over secrets")
	assert.Equal(t, 4, cfg.Search.ResultCount)
	assert.Equal(t, 30*time.Second, cfg.Stage.ArchiveTimeout)
	assert.Equal(t, "market-edge", cfg.Redis.Prefix)
}

func TestReadInput(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "in.json")
	yamlPath := filepath.Join(dir, "in.yaml")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"product_name":"Tutorly","product_description":"AI tutor"}`), 0o644))
	require.NoError(t, os.WriteFile(yamlPath, []byte("product_name: Tutorly\nproduct_description: AI tutor\n"), 0o644))

	for _, path := range []string{jsonPath, yamlPath} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			var in pipeline.CompetitiveInput
			require.NoError(t, readInput(path, &in))
			assert.Equal(t, pipeline.CompetitiveInput{ProductName: "Tutorly", ProductDescription: "AI tutor"}, in)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		var in pipeline.CompetitiveInput
		err := readInput(filepath.Join(dir, "nope.yaml"), &in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading input")
	})

	t.Run("malformed json", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{"product_name":`), 0o644))
		var in pipeline.CompetitiveInput
		err := readInput(bad, &in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing")
	})
}

func TestWriteOutput(t *testing.T) {
	v := map[string]any{"total_market_size": 7000000000}

	var y bytes.Buffer
	require.NoError(t, writeOutput(&y, "yaml", v))
	assert.Equal(t, "total_market_size: 7000000000\n", y.String())

	var j bytes.Buffer
	require.NoError(t, writeOutput(&j, "json", v))
	assert.JSONEq(t, `{"total_market_size":7000000000}`, j.String())

	err := writeOutput(&bytes.Buffer{}, "xml", v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}
