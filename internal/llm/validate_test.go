// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/market-edge/pkg/types"
)

type analysis struct {
	MarketSize int64    `json:"market_size" schema:"min=0"`
	Growth     float64  `json:"growth_potential" schema:"min=0,max=1"`
	Traits     []string `json:"key_characteristics"`
	Hot        bool     `json:"hot"`
	Note       string   `json:"note" schema:"optional"`
}

func analysisSchema(t *testing.T) *Schema {
	t.Helper()
	return MustRegister[analysis](NewRegistry(), "Analysis")
}

func TestDecodeAccepts(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want analysis
	}{
		{
			name: "plain object",
			raw:  `{"market_size": 2000000000, "growth_potential": 0.18, "key_characteristics": ["a"], "hot": true}`,
			want: analysis{MarketSize: 2000000000, Growth: 0.18, Traits: []string{"a"}, Hot: true},
		},
		{
			name: "exponent integer",
			raw:  `{"market_size": 5e9, "growth_potential": 0.1, "key_characteristics": [], "hot": false}`,
			want: analysis{MarketSize: 5000000000, Growth: 0.1, Traits: []string{}},
		},
		{
			name: "code fence",
			raw:  "```json\n{\"market_size\": 1, \"growth_potential\": 0, \"key_characteristics\": [], \"hot\": false}\n```",
			want: analysis{MarketSize: 1, Traits: []string{}},
		},
		{
			name: "surrounding prose",
			raw:  `Here is the analysis: {"market_size": 3, "growth_potential": 1, "key_characteristics": ["x"], "hot": true, "note": "n"} Hope it helps.`,
			want: analysis{MarketSize: 3, Growth: 1, Traits: []string{"x"}, Hot: true, Note: "n"},
		},
		{
			name: "extra fields ignored",
			raw:  `{"market_size": 3, "growth_potential": 0.5, "key_characteristics": [], "hot": true, "confidence": 0.9}`,
			want: analysis{MarketSize: 3, Growth: 0.5, Traits: []string{}, Hot: true},
		},
	}
	s := analysisSchema(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got analysis
			require.NoError(t, Decode(s, tt.raw, &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantPath string
	}{
		{"missing required field", `{"growth_potential": 0.1, "key_characteristics": [], "hot": true}`, "market_size"},
		{"null required field", `{"market_size": null, "growth_potential": 0.1, "key_characteristics": [], "hot": true}`, "market_size"},
		{"string for integer", `{"market_size": "2B", "growth_potential": 0.1, "key_characteristics": [], "hot": true}`, "market_size"},
		{"fractional integer", `{"market_size": 1.5, "growth_potential": 0.1, "key_characteristics": [], "hot": true}`, "market_size"},
		{"below minimum", `{"market_size": -1, "growth_potential": 0.1, "key_characteristics": [], "hot": true}`, "market_size"},
		{"above maximum", `{"market_size": 1, "growth_potential": 15, "key_characteristics": [], "hot": true}`, "growth_potential"},
		{"wrong element type", `{"market_size": 1, "growth_potential": 0.1, "key_characteristics": ["a", 2], "hot": true}`, "key_characteristics[1]"},
		{"string for boolean", `{"market_size": 1, "growth_potential": 0.1, "key_characteristics": [], "hot": "yes"}`, "hot"},
		{"array root", `[1, 2]`, ""},
		{"no json", `I cannot answer that.`, ""},
		{"truncated json", `{"market_size": 1, "growth_potential"`, ""},
	}
	s := analysisSchema(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got analysis
			err := Decode(s, tt.raw, &got)
			var se *types.SchemaValidationError
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.Equal(t, "Analysis", se.Schema)
			assert.Equal(t, tt.wantPath, se.Path)
			assert.Equal(t, analysis{}, got, "output must stay untouched")
		})
	}
}

func TestDecodeNestedPaths(t *testing.T) {
	type list struct {
		Competitors []types.CompetitorProfile `json:"competitors"`
	}
	s := MustRegister[list](NewRegistry(), "CompetitorList")

	raw := `{"competitors": [
		{"name": "A", "description": "d", "main_products": [], "target_market": "t", "key_differentiators": []},
		{"name": "B", "description": "d", "main_products": [], "key_differentiators": []}
	]}`
	var got list
	err := Decode(s, raw, &got)
	var se *types.SchemaValidationError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "competitors[1].target_market", se.Path)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":{"b":2}}`, extractJSON(`prefix {"a":{"b":2}} suffix`))
	assert.Equal(t, "", extractJSON("nothing here"))
}
