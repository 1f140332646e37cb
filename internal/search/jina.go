// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/market-edge/internal/httputil"
	"github.com/pdiddy/market-edge/pkg/types"
)

// jinaAPIBase is the Jina search endpoint; the escaped query is appended as
// the path. Declared as a var so tests can substitute an httptest server.
var jinaAPIBase = "https://s.jina.ai/"

// maxJinaBody caps the combined text read from one Jina response.
const maxJinaBody = 1 << 20

// JinaProvider queries the Jina search reader. It answers with a single
// combined text blob, so its results are never ranked.
type JinaProvider struct {
	Client           *http.Client
	APIKey           string
	UserAgent        string
	RateLimitRetries int
}

// NewJinaProvider builds the secondary provider from the search configuration.
func NewJinaProvider(cfg types.SearchConfig) *JinaProvider {
	return &JinaProvider{
		Client:           &http.Client{},
		APIKey:           cfg.JinaAPIKey,
		UserAgent:        cfg.UserAgent,
		RateLimitRetries: cfg.RateLimitRetries,
	}
}

// Name returns the provider identifier.
func (p *JinaProvider) Name() string { return "jina" }

// Search fetches the reader's text rendering of the result page for query.
// count is ignored: Jina decides how many hits to fold into the blob.
func (p *JinaProvider) Search(ctx context.Context, query string, _ int) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jinaAPIBase+url.PathEscape(query), nil)
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, p.Client, req, p.RateLimitRetries)
	if err != nil {
		return Result{}, &types.TransportError{Provider: p.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJinaBody))
	if err != nil {
		return Result{}, &types.TransportError{Provider: p.Name(), Err: fmt.Errorf("reading response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, &types.TransportError{
			Provider: p.Name(),
			Err:      &httputil.StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))},
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return Result{}, nil
	}
	return Result{Snippets: []string{text}, Ranked: false}, nil
}
