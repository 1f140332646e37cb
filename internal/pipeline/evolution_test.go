// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/market-edge/internal/llm"
	"github.com/pdiddy/market-edge/internal/llm/llmtest"
	"github.com/pdiddy/market-edge/pkg/types"
)

// phaseReply answers each phase request with features named after the
// phase it recognises in the prompt.
func phaseReply(req llm.Request) (string, error) {
	prompt := llmtest.LastUser(req)
	n := "1"
	switch {
	case strings.Contains(prompt, "phase 3"):
		n = "3"
	case strings.Contains(prompt, "phase 2"):
		n = "2"
	}
	data, err := json.Marshal(types.EvolutionPhase{
		PhaseNumber:              1,
		Name:                     "Phase " + n,
		Description:              "description " + n,
		TargetCustomerSegments:   []string{"segment " + n},
		KeyFeatures:              []string{"feature " + n + "a", "feature " + n + "b"},
		ValueProposition:         "value " + n,
		ExpectedMarketReaction:   "reaction " + n,
		SuccessMetrics:           []string{"metric " + n},
		RiskMitigationStrategies: []string{"mitigation " + n},
	})
	return string(data), err
}

var expansionFixture = types.ExpansionStrategy{
	PrimaryDomain:      "Edutech",
	ExpansionDomains:   []string{"HealthTech", "FinTech"},
	StrategicRationale: map[string]string{"HealthTech": "clinician training", "FinTech": "financial literacy"},
}

func TestEvolutionChainsPhases(t *testing.T) {
	d, b := newTestDeps(t, script{"ProductEvolutionPhase": phaseReply}, nil, nil)

	res, err := NewEvolution(d).Run(context.Background(), EvolutionInput{
		Discovery: discoveryFixture,
		Market:    marketFixture,
		Expansion: expansionFixture,
	})
	require.NoError(t, err)

	r := res.Report
	require.Len(t, r.Phases, 3)
	for i, p := range r.Phases {
		assert.Equal(t, i+1, p.PhaseNumber)
	}
	assert.Equal(t, "Phase 2", r.Phases[1].Name)
	assert.Equal(t, "lifelong learning platform", r.OverallVision)
	assert.Equal(t, []float64{1000, 10000, 100000}, r.UserAdoptionTrend.YAxisData)
	require.NoError(t, r.Validate())

	phases := requestsFor(b, "ProductEvolutionPhase")
	require.Len(t, phases, 3)
	first := llmtest.LastUser(phases[0])
	assert.Contains(t, first, "Primary target niche: Corporate upskilling")
	assert.Contains(t, first, "Ideal customer: HR leaders at mid-size firms")
	assert.Contains(t, llmtest.LastUser(phases[1]), "- feature 1a\n- feature 1b")
	assert.Contains(t, llmtest.LastUser(phases[1]), "Additional target niches: K-12 AI tutors")
	assert.Contains(t, llmtest.LastUser(phases[1]), "Spend shifted to AI-native tools")
	third := llmtest.LastUser(phases[2])
	assert.Contains(t, third, "- feature 2a\n- feature 2b")
	assert.Contains(t, third, "Expansion domains: HealthTech, FinTech")
	assert.Contains(t, third, "HealthTech:\nclinician training")

	overview := requestsFor(b, "EvolutionStrategy")
	require.Len(t, overview, 1)
	assert.Contains(t, llmtest.LastUser(overview[0]), "Phase 3 (Maturity): description 3")

	adoption := requestsFor(b, "UserAdoptionTrend")
	require.Len(t, adoption, 1)
	assert.Contains(t, llmtest.LastUser(adoption[0]), "Features: feature 2a, feature 2b")
	_, err = waitArchive(t, res.Archive)
	assert.NoError(t, err)
}

func TestEvolutionWithoutPriorContext(t *testing.T) {
	d, b := newTestDeps(t, script{"ProductEvolutionPhase": phaseReply}, nil, nil)

	res, err := NewEvolution(d).Run(context.Background(), EvolutionInput{
		Discovery: types.CustomerDiscoveryReport{PrimaryDomain: "Robotics"},
	})
	require.NoError(t, err)
	assert.Len(t, res.Report.Phases, 3)

	phases := requestsFor(b, "ProductEvolutionPhase")
	assert.Contains(t, llmtest.LastUser(phases[0]), "Primary target niche: Robotics")
	assert.Contains(t, llmtest.LastUser(phases[1]), "Additional target niches: none identified")
}

func TestEvolutionPhaseFailureStopsChain(t *testing.T) {
	d, b := newTestDeps(t, script{
		"ProductEvolutionPhase": func(req llm.Request) (string, error) {
			if strings.Contains(llmtest.LastUser(req), "phase 2") {
				return `{"phase_number": 2}`, nil
			}
			return phaseReply(req)
		},
	}, nil, nil)

	res, err := NewEvolution(d).Run(context.Background(), EvolutionInput{Discovery: discoveryFixture})
	assert.True(t, types.IsSchema(err))
	assert.Equal(t, StateFailed, res.State())
	assert.Len(t, requestsFor(b, "ProductEvolutionPhase"), 2)
	assert.Empty(t, requestsFor(b, "EvolutionStrategy"))
}
