// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"net/http"

	"github.com/pdiddy/market-edge/internal/httputil"
	"github.com/pdiddy/market-edge/pkg/types"
)

// exaAPIURL is the Exa search endpoint. Declared as a var so tests can
// substitute an httptest server.
var exaAPIURL = "https://api.exa.ai/search"

// ExaProvider queries the Exa search API and returns the page text of each
// hit in relevance order.
type ExaProvider struct {
	Client           *http.Client
	APIKey           string
	UserAgent        string
	RateLimitRetries int
}

// NewExaProvider builds the primary provider from the search configuration.
func NewExaProvider(cfg types.SearchConfig) *ExaProvider {
	return &ExaProvider{
		Client:           &http.Client{},
		APIKey:           cfg.ExaAPIKey,
		UserAgent:        cfg.UserAgent,
		RateLimitRetries: cfg.RateLimitRetries,
	}
}

// Name returns the provider identifier.
func (p *ExaProvider) Name() string { return "exa" }

type exaRequest struct {
	Query      string      `json:"query"`
	NumResults int         `json:"numResults"`
	Contents   exaContents `json:"contents"`
}

type exaContents struct {
	Text bool `json:"text"`
}

type exaResponse struct {
	Results []exaResult `json:"results"`
}

type exaResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
}

// Search asks Exa for count results with their page contents.
func (p *ExaProvider) Search(ctx context.Context, query string, count int) (Result, error) {
	req, err := httputil.NewJSONRequest(ctx, exaAPIURL, exaRequest{
		Query:      query,
		NumResults: count,
		Contents:   exaContents{Text: true},
	})
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("x-api-key", p.APIKey)
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	var er exaResponse
	if err := httputil.DoJSON(ctx, p.Client, req, p.RateLimitRetries, &er); err != nil {
		return Result{}, &types.TransportError{Provider: p.Name(), Err: err}
	}

	snippets := make([]string, 0, len(er.Results))
	for _, r := range er.Results {
		snippets = append(snippets, r.Text)
	}
	return Result{Snippets: snippets, Ranked: true}, nil
}
