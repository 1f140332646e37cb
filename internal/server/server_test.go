// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/pdiddy/market-edge/internal/llm"
	"github.com/pdiddy/market-edge/internal/llm/llmtest"
	"github.com/pdiddy/market-edge/internal/pipeline"
	"github.com/pdiddy/market-edge/internal/rag"
	"github.com/pdiddy/market-edge/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type snippets struct{}

func (snippets) Search(_ context.Context, q string, _ int) ([]string, error) {
	return []string{"result for " + q}, nil
}

type archiver struct{ err error }

func (a archiver) Upsert(context.Context, string, types.ArtifactMetadata) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	return "artifact-1", nil
}

type savedReport struct {
	user    string
	kind    types.ArtifactKind
	subject string
}

type memSink struct {
	mu    sync.Mutex
	saved []savedReport
}

func (m *memSink) SaveReport(_ context.Context, user string, kind types.ArtifactKind, subject string, _ any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, savedReport{user: user, kind: kind, subject: subject})
	return "report-1", nil
}

func discoveryHandler(req llm.Request) (string, error) {
	switch llmtest.SchemaName(req) {
	case "IdentifyMarketNiche":
		return `{"niches": ["Corporate upskilling"]}`, nil
	case "NicheAnalysis":
		return `{"market_size": 3000000000, "growth_potential": 0.25, "key_characteristics": ["budget owners"]}`, nil
	case "RAGCheck":
		return `{"rag_needed": false, "rag_queries": []}`, nil
	case "ProblemBreakdown":
		return "", &types.TransportError{Provider: "scripted", Err: errors.New("quota exceeded")}
	}
	return "generated text", nil
}

func newServer(t *testing.T, store pipeline.Archiver, sink ReportSaver, withChat bool) *httptest.Server {
	t.Helper()
	client := llm.NewClient(llmtest.New(discoveryHandler), llm.NewRegistry(), types.AIConfig{}, zap.NewNop())
	runner := pipeline.NewRunner(pipeline.Deps{LLM: client, Search: snippets{}, Store: store, Logger: zap.NewNop()})

	var chat Chatter
	if withChat {
		engine, err := rag.NewEngine(client, nil, nil, rag.Config{}, zap.NewNop())
		require.NoError(t, err)
		chat = rag.NewChat(engine)
	}
	srv := httptest.NewServer(New(runner, chat, sink, zap.NewNop()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	srv := newServer(t, nil, nil, false)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, map[string]string{"status": "healthy"}, out)
}

func TestDiscoverFromQueryParams(t *testing.T) {
	sink := &memSink{}
	srv := newServer(t, archiver{}, sink, false)

	status, out := post(t, srv.URL+"/customer-discovery/discover?domain=Edutech&user=alice", "")
	require.Equal(t, http.StatusOK, status, out)

	report := out["report"].(map[string]any)
	assert.Equal(t, "Edutech", report["primary_domain"])
	assert.Equal(t, float64(3_000_000_000), report["total_market_size"])
	assert.Equal(t, "artifact-1", out["artifact_id"])
	assert.Equal(t, "report-1", out["report_id"])
	assert.NotContains(t, out, "warnings")
	assert.Equal(t, []savedReport{{user: "alice", kind: types.KindCustomerDiscovery, subject: "Edutech"}}, sink.saved)
}

func TestDiscoverFromBodyWithArchiveWarning(t *testing.T) {
	srv := newServer(t, archiver{err: errors.New("database is locked")}, nil, false)

	status, out := post(t, srv.URL+"/customer-discovery/discover", `{"domain": "Edutech"}`)
	require.Equal(t, http.StatusOK, status, out)

	assert.NotContains(t, out, "artifact_id")
	warnings := out["warnings"].([]any)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "database is locked")
}

func TestDiscoverMissingDomain(t *testing.T) {
	srv := newServer(t, nil, nil, false)

	status, out := post(t, srv.URL+"/customer-discovery/discover", "")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, out["detail"], "domain")
}

func TestMalformedBody(t *testing.T) {
	srv := newServer(t, nil, nil, false)

	status, out := post(t, srv.URL+"/market-analysis/analyze", `{"query": `)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, out["detail"], "body")
}

func TestStageFailureIs500(t *testing.T) {
	srv := newServer(t, nil, nil, false)

	status, out := post(t, srv.URL+"/market-analysis/analyze?query=EV+charging", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, out["detail"], "quota exceeded")
}

func TestChat(t *testing.T) {
	srv := newServer(t, nil, nil, true)

	status, out := post(t, srv.URL+"/chat", `{"messages": [{"role": "user", "content": "How big is Edutech?"}]}`)
	require.Equal(t, http.StatusOK, status, out)
	assert.Equal(t, "generated text", out["response"])
}

func TestChatRejectsBadConversation(t *testing.T) {
	srv := newServer(t, nil, nil, true)

	status, out := post(t, srv.URL+"/chat", `{"messages": [{"role": "user", "content": "hi"}, {"role": "assistant", "content": "hello"}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.NotEmpty(t, out["detail"])

	status, _ = post(t, srv.URL+"/chat", `{"messages": []}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestChatNotConfigured(t *testing.T) {
	srv := newServer(t, nil, nil, false)

	status, _ := post(t, srv.URL+"/chat", `{"messages": [{"role": "user", "content": "hi"}]}`)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}
