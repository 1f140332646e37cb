// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/market-edge/internal/llm"
	"github.com/pdiddy/market-edge/internal/llm/llmtest"
	"github.com/pdiddy/market-edge/pkg/types"
)

func TestDiscoverySumsNicheMarkets(t *testing.T) {
	store := &memArchiver{}
	web := &fakeSearch{}
	d, b := newTestDeps(t, script{
		"NicheAnalysis": func(req llm.Request) (string, error) {
			if strings.Contains(llmtest.Prompt(req), "Corporate upskilling") {
				return `{"market_size": 2000000000, "growth_potential": 0.2, "key_characteristics": ["L&D budgets"]}`, nil
			}
			return `{"market_size": 5000000000, "growth_potential": 0.35, "key_characteristics": ["parents pay"]}`, nil
		},
	}, web, store)

	res, err := NewDiscovery(d).Run(context.Background(), DiscoveryInput{Domain: "Edutech, GenAI upskilling"})
	require.NoError(t, err)

	r := res.Report
	assert.Equal(t, "Edutech, GenAI upskilling", r.PrimaryDomain)
	assert.Equal(t, int64(7_000_000_000), r.TotalMarketSize)
	require.Len(t, r.Niches, 2)
	assert.Equal(t, "Corporate upskilling", r.Niches[0].Name)
	assert.Equal(t, int64(2_000_000_000), r.Niches[0].MarketSize)
	assert.Equal(t, "K-12 AI tutors", r.Niches[1].Name)
	assert.Equal(t, "Market niche in Edutech, GenAI upskilling domain", r.Niches[1].Description)
	assert.Equal(t, "generated text", r.IdealCustomerProfile.Insights)
	assert.Equal(t, "generated text", r.InvestorSentiment.Insights)
	require.NoError(t, r.Validate())

	assert.Len(t, web.asked(), 2)
	assert.Len(t, requestsFor(b, "NicheAnalysis"), 2)

	id, err := waitArchive(t, res.Archive)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, StatePersisted, res.State())
	saved := store.artifacts()
	require.Len(t, saved, 1)
	assert.Equal(t, types.KindCustomerDiscovery, saved[0].Metadata.Kind)
	assert.Equal(t, "Edutech, GenAI upskilling", saved[0].Metadata.Subject)
}

func TestDiscoveryKeepsFirstFourNiches(t *testing.T) {
	d, b := newTestDeps(t, script{
		"IdentifyMarketNiche": func(llm.Request) (string, error) {
			return `{"niches": ["A", " ", "B", "C", "D", "E", "F"]}`, nil
		},
	}, nil, nil)

	res, err := NewDiscovery(d).Run(context.Background(), DiscoveryInput{Domain: "Logistics"})
	require.NoError(t, err)

	var names []string
	for _, n := range res.Report.Niches {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, names)
	assert.Equal(t, int64(4_000_000_000), res.Report.TotalMarketSize)
	assert.Len(t, requestsFor(b, "NicheAnalysis"), 4)

	// The candidate request asks for 5 to 10 niches in both prompt and schema.
	listed := requestsFor(b, "IdentifyMarketNiche")
	require.Len(t, listed, 1)
	assert.Contains(t, llmtest.Prompt(listed[0]), "List 5 to 10 specific market niches")
	require.NotNil(t, listed[0].Schema)
	require.Len(t, listed[0].Schema.Root.Fields, 1)
	niches := listed[0].Schema.Root.Fields[0]
	assert.Equal(t, "niches", niches.Name)
	assert.Contains(t, niches.Description, "5 to 10")
}

func TestDiscoveryNoSearchResults(t *testing.T) {
	web := &fakeSearch{fn: func(string) ([]string, error) { return nil, nil }}
	d, b := newTestDeps(t, script{}, web, nil)

	_, err := NewDiscovery(d).Run(context.Background(), DiscoveryInput{Domain: "Logistics"})
	require.NoError(t, err)

	for _, req := range requestsFor(b, "NicheAnalysis") {
		assert.Equal(t, noSearchResults, llmtest.LastUser(req))
	}
}

func TestDiscoverySchemaFailure(t *testing.T) {
	store := &memArchiver{}
	d, _ := newTestDeps(t, script{
		"NicheAnalysis": func(llm.Request) (string, error) {
			return `{"growth_potential": 0.2, "key_characteristics": []}`, nil
		},
	}, nil, store)

	res, err := NewDiscovery(d).Run(context.Background(), DiscoveryInput{Domain: "Logistics"})
	var se *types.SchemaValidationError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "market_size", se.Path)
	assert.Equal(t, StateFailed, res.State())
	assert.Empty(t, store.artifacts())
}

func TestDiscoveryRequiresDomain(t *testing.T) {
	d, b := newTestDeps(t, script{}, nil, nil)

	_, err := NewDiscovery(d).Run(context.Background(), DiscoveryInput{Domain: "  "})
	assert.True(t, types.IsValidation(err))
	assert.Equal(t, 0, b.Calls())
}

func TestDiscoveryInputSubject(t *testing.T) {
	assert.Equal(t, "Edutech", DiscoveryInput{Domain: " Edutech "}.Subject())
	assert.Equal(t,
		"Product: Tutorly Description: AI tutor Offerings: courses in the domain of Edutech",
		DiscoveryInput{Domain: "Edutech", ProductName: "Tutorly", ProductDescription: "AI tutor", Offerings: "courses"}.Subject())
}
