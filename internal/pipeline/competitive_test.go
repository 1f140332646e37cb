// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/market-edge/internal/llm"
	"github.com/pdiddy/market-edge/pkg/types"
)

func TestCompetitiveResolvesDerivatives(t *testing.T) {
	web := &fakeSearch{fn: func(q string) ([]string, error) {
		if strings.Contains(q, `"Tutorly Kids"`) {
			return nil, nil
		}
		return []string{"Rival launched an AI tutor"}, nil
	}}
	d, b := newTestDeps(t, script{
		"ListProductDerivative": func(llm.Request) (string, error) {
			return `{"derivatives": [
				{"name": "Tutorly Pro", "description": "for enterprises", "target_market": "enterprise"},
				{"name": "Tutorly Kids", "description": "for children", "target_market": "K-12"},
				{"name": "Tutorly Lite", "description": "free tier", "target_market": "students"},
				{"name": "Tutorly Max", "description": "premium", "target_market": "power users"}
			]}`, nil
		},
	}, web, nil)

	res, err := NewCompetitive(d).Run(context.Background(), CompetitiveInput{ProductName: "Tutorly", ProductDescription: "AI tutor"})
	require.NoError(t, err)

	r := res.Report
	assert.Equal(t, "Tutorly", r.ProductName)
	require.Len(t, r.Competitors, 1)
	assert.Equal(t, "Rival", r.Competitors[0].Name)

	require.Len(t, r.Derivatives, 3)
	assert.Equal(t, "Tutorly Pro", r.Derivatives[0].Name)
	assert.Len(t, r.Derivatives[0].Competitors, 1)
	assert.Equal(t, "Tutorly Kids", r.Derivatives[1].Name)
	assert.NotNil(t, r.Derivatives[1].Competitors)
	assert.Empty(t, r.Derivatives[1].Competitors)
	assert.Equal(t, "Tutorly Lite", r.Derivatives[2].Name)
	assert.Equal(t, "students", r.Derivatives[2].TargetMarket)
	require.NoError(t, r.Validate())

	assert.Len(t, requestsFor(b, "ListCompetitorProfile"), 3)
	assert.Len(t, web.asked(), 4)
	_, err = waitArchive(t, res.Archive)
	assert.NoError(t, err)
}

func TestCompetitiveNoResults(t *testing.T) {
	web := &fakeSearch{fn: func(string) ([]string, error) { return nil, nil }}
	d, b := newTestDeps(t, script{}, web, nil)

	res, err := NewCompetitive(d).Run(context.Background(), CompetitiveInput{ProductName: "Tutorly"})
	require.NoError(t, err)
	assert.Empty(t, res.Report.Competitors)
	assert.Empty(t, requestsFor(b, "ListCompetitorProfile"))
	require.Len(t, res.Report.Derivatives, 1)
}

func TestCompetitiveRequiresName(t *testing.T) {
	d, _ := newTestDeps(t, script{}, nil, nil)
	_, err := NewCompetitive(d).Run(context.Background(), CompetitiveInput{ProductDescription: "AI tutor"})
	assert.True(t, types.IsValidation(err))
}
