// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/pdiddy/market-edge/internal/llm"
	"github.com/pdiddy/market-edge/internal/llm/llmtest"
	"github.com/pdiddy/market-edge/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// Canned answers for every schema the stages request.
var canned = map[string]string{
	"IdentifyMarketNiche": `{"niches": ["Corporate upskilling", "K-12 AI tutors"]}`,
	"NicheAnalysis":       `{"market_size": 1000000000, "growth_potential": 0.1, "key_characteristics": ["remote teams"]}`,
	"ProblemBreakdown":    `{"questions": ["Who buys?", "How big?", "Who competes?", "What regulation applies?", "Where is growth?"]}`,
	"MarketTrendVisualization": `{
		"x_axis_labels": ["2019", "2020", "2021", "2022", "2023", "2024"],
		"y_axis_labels": ["Market growth rate", "Innovation index"],
		"x_axis_name": "Year",
		"y_axis_name": "Index",
		"data": [[10, 20, 30, 40, 50, 60], [15, 25, 20, 35, 45, 70]],
		"reasoning": "steady adoption",
		"key_insights": ["growth accelerates after 2022"]
	}`,
	"ExpansionDomains": `{"domains": ["HealthTech", "FinTech"]}`,
	"DomainAnalysis":   `{"strategic_rationale": "shared buyers", "competitive_landscape": "fragmented", "investment_requirement": 2500000, "risk_score": 0.4, "synergies": ["content reuse"]}`,
	"ProductEvolutionPhase": `{
		"phase_number": 1,
		"name": "Launch",
		"description": "core offering",
		"target_customer_segments": ["early adopters"],
		"key_features": ["feature"],
		"value_proposition": "faster learning",
		"expected_market_reaction": "curious",
		"success_metrics": ["activation"],
		"risk_mitigation_strategies": ["pilot programs"]
	}`,
	"EvolutionStrategy": `{"overall_vision": "lifelong learning platform", "long_term_goals": ["global reach"], "competitive_differentiation": ["adaptive paths"]}`,
	"UserAdoptionTrend": `{
		"x_axis_labels": ["Phase 1", "Phase 2", "Phase 3"],
		"y_axis_labels": ["Total users"],
		"x_axis_data": [1, 2, 3],
		"y_axis_data": [1000, 10000, 100000],
		"x_axis_name": "Phase",
		"y_axis_name": "Users",
		"reasoning": "network effects",
		"key_insights": ["phase 2 is the inflection"]
	}`,
	"ListCompetitorProfile": `{"competitors": [{"name": "Rival", "description": "incumbent", "main_products": ["Rival Learn"], "target_market": "enterprise", "key_differentiators": ["brand"]}]}`,
	"ListProductDerivative": `{"derivatives": [{"name": "Acme Lite", "description": "cheaper tier", "target_market": "SMB"}]}`,
}

// script answers structured calls from overrides first, then canned, and
// free-text calls with a fixed sentence.
type script map[string]llmtest.Handler

func (s script) handler() llmtest.Handler {
	return func(req llm.Request) (string, error) {
		name := llmtest.SchemaName(req)
		if h, ok := s[name]; ok {
			return h(req)
		}
		if name == "" {
			return "generated text", nil
		}
		if body, ok := canned[name]; ok {
			return body, nil
		}
		return "", errors.New("no canned answer for " + name)
	}
}

// fakeSearch answers every query with one snippet naming it, unless fn
// overrides. It records the queries in arrival order.
type fakeSearch struct {
	mu      sync.Mutex
	fn      func(q string) ([]string, error)
	queries []string
}

func (f *fakeSearch) Search(ctx context.Context, q string, _ int) ([]string, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.fn != nil {
		return f.fn(q)
	}
	return []string{"snippet for " + q}, nil
}

func (f *fakeSearch) asked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.queries))
	copy(out, f.queries)
	return out
}

// memArchiver stores artifacts in memory. fail, when set, decides per kind
// whether the write errors; delay slows every write.
type memArchiver struct {
	mu    sync.Mutex
	fail  func(meta types.ArtifactMetadata) error
	delay time.Duration
	saved []types.Artifact
}

func (m *memArchiver) Upsert(ctx context.Context, text string, meta types.ArtifactMetadata) (string, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.fail != nil {
		if err := m.fail(meta); err != nil {
			return "", err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := string(meta.Kind) + "-" + strings.ToLower(strings.ReplaceAll(meta.Subject, " ", "-"))
	m.saved = append(m.saved, types.Artifact{ID: id, Text: text, Metadata: meta})
	return id, nil
}

func (m *memArchiver) artifacts() []types.Artifact {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Artifact, len(m.saved))
	copy(out, m.saved)
	return out
}

func newTestDeps(t *testing.T, s script, web *fakeSearch, store Archiver) (Deps, *llmtest.Backend) {
	t.Helper()
	b := llmtest.New(s.handler())
	client := llm.NewClient(b, llm.NewRegistry(), types.AIConfig{}, zap.NewNop())
	if web == nil {
		web = &fakeSearch{}
	}
	return Deps{LLM: client, Search: web, Store: store, Logger: zap.NewNop()}, b
}

// requestsFor returns the recorded requests for one schema.
func requestsFor(b *llmtest.Backend, schema string) []llm.Request {
	var out []llm.Request
	for _, r := range b.Requests() {
		if llmtest.SchemaName(r) == schema {
			out = append(out, r)
		}
	}
	return out
}

func waitArchive(t *testing.T, a *Archive) (string, error) {
	t.Helper()
	require.NotNil(t, a)
	return a.Wait(context.Background())
}
