// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/market-edge/internal/llm"
	"github.com/pdiddy/market-edge/internal/llm/llmtest"
	"github.com/pdiddy/market-edge/pkg/types"
)

func TestRunnerThreadsReports(t *testing.T) {
	store := &memArchiver{}
	d, b := newTestDeps(t, script{"ProductEvolutionPhase": phaseReply}, nil, store)

	out, err := NewRunner(d).Run(context.Background(), RunInput{
		Discovery:   DiscoveryInput{Domain: "Edutech"},
		Competitive: &CompetitiveInput{ProductName: "Tutorly", ProductDescription: "AI tutor"},
		Trend:       true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Edutech", out.Discovery.PrimaryDomain)
	assert.Equal(t, DefaultQuery(DiscoveryInput{Domain: "Edutech"}), out.Market.OriginalQuery)
	assert.Equal(t, []string{"HealthTech", "FinTech"}, out.Expansion.ExpansionDomains)
	assert.Len(t, out.Evolution.Phases, 3)
	require.NotNil(t, out.Competitive)
	require.NotNil(t, out.Trend)
	assert.Empty(t, out.Warnings)
	assert.Len(t, out.ArtifactIDs, 6)
	assert.Len(t, store.artifacts(), 6)

	// Expansion sees discovery and market reports as context.
	ranked := requestsFor(b, "ExpansionDomains")
	require.Len(t, ranked, 1)
	assert.Contains(t, llmtest.Prompt(ranked[0]), "total_market_size: 2000000000")
	assert.Contains(t, llmtest.Prompt(ranked[0]), "comprehensive_report: generated text")
}

func TestRunnerReportsArchiveFailureAsWarning(t *testing.T) {
	store := &memArchiver{fail: func(meta types.ArtifactMetadata) error {
		if meta.Kind == types.KindMarketAnalysis {
			return errors.New("database is locked")
		}
		return nil
	}}
	d, _ := newTestDeps(t, script{"ProductEvolutionPhase": phaseReply}, nil, store)

	out, err := NewRunner(d).Run(context.Background(), RunInput{
		Discovery: DiscoveryInput{Domain: "Edutech"},
		Query:     "Edutech growth",
	})
	require.NoError(t, err)
	assert.Equal(t, "Edutech growth", out.Market.OriginalQuery)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "database is locked")
	assert.Len(t, out.ArtifactIDs, 3)
	assert.NotContains(t, out.ArtifactIDs, types.KindMarketAnalysis)
}

func TestRunnerStopsOnStageFailure(t *testing.T) {
	store := &memArchiver{}
	d, b := newTestDeps(t, script{
		"ProblemBreakdown": func(llm.Request) (string, error) {
			return "", &types.TransportError{Provider: "scripted", Err: errors.New("quota exceeded")}
		},
	}, nil, store)

	_, err := NewRunner(d).Run(context.Background(), RunInput{Discovery: DiscoveryInput{Domain: "Edutech"}})
	assert.True(t, types.IsTransport(err))
	assert.Empty(t, requestsFor(b, "ExpansionDomains"))
}

func TestRunnerSettlesCompletedArchivesOnFailure(t *testing.T) {
	store := &memArchiver{delay: 100 * time.Millisecond}
	d, _ := newTestDeps(t, script{
		"ProductEvolutionPhase": func(llm.Request) (string, error) {
			return "", &types.TransportError{Provider: "scripted", Err: errors.New("down")}
		},
	}, nil, store)

	out, err := NewRunner(d).Run(context.Background(), RunInput{Discovery: DiscoveryInput{Domain: "Edutech"}})
	require.Error(t, err)
	assert.True(t, types.IsTransport(err))

	// Discovery, market analysis and expansion finished and were archived
	// before Run returned.
	assert.Len(t, store.artifacts(), 3)
	require.NotNil(t, out)
	assert.Len(t, out.ArtifactIDs, 3)
	assert.Contains(t, out.ArtifactIDs, types.KindMarketExpansion)
	assert.NotContains(t, out.ArtifactIDs, types.KindProductEvolution)
	assert.Equal(t, "Edutech", out.Discovery.PrimaryDomain)
	assert.Empty(t, out.Evolution.Phases)
}

func TestRunnerRequiresDomain(t *testing.T) {
	d, b := newTestDeps(t, script{}, nil, nil)
	_, err := NewRunner(d).Run(context.Background(), RunInput{})
	assert.True(t, types.IsValidation(err))
	assert.Equal(t, 0, b.Calls())
}
