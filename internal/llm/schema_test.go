// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/market-edge/pkg/types"
)

type sampleNiche struct {
	Name       string   `json:"name"`
	MarketSize int64    `json:"market_size" schema:"min=0"`
	Growth     float64  `json:"growth_potential" schema:"min=0,max=1" desc:"annual rate"`
	Traits     []string `json:"key_characteristics" schema:"minItems=1"`
	Note       string   `json:"note,omitempty" schema:"optional"`
	Rank       *int     `json:"rank"`
	internal   string
	Skipped    string `json:"-"`
}

func TestRegisterDerivesFields(t *testing.T) {
	r := NewRegistry()
	s, err := Register[sampleNiche](r, "Niche")
	require.NoError(t, err)

	assert.Equal(t, "Niche", s.Name)
	assert.Equal(t, KindObject, s.Root.Kind)
	require.Len(t, s.Root.Fields, 6)

	byName := map[string]Field{}
	for _, f := range s.Root.Fields {
		byName[f.Name] = f
	}
	assert.Equal(t, KindString, byName["name"].Kind)
	assert.Equal(t, KindInteger, byName["market_size"].Kind)
	require.NotNil(t, byName["market_size"].Min)
	assert.Equal(t, 0.0, *byName["market_size"].Min)
	assert.Equal(t, KindNumber, byName["growth_potential"].Kind)
	assert.Equal(t, 1.0, *byName["growth_potential"].Max)
	assert.Equal(t, "annual rate", byName["growth_potential"].Description)
	assert.Equal(t, KindArray, byName["key_characteristics"].Kind)
	assert.Equal(t, KindString, byName["key_characteristics"].Items.Kind)
	assert.Equal(t, 1, byName["key_characteristics"].MinItems)
	assert.True(t, byName["note"].Optional)
	assert.True(t, byName["rank"].Optional)
	assert.False(t, byName["name"].Optional)
}

func TestRegisterLookup(t *testing.T) {
	r := NewRegistry()
	s := MustRegister[types.EvolutionPhase](r, "EvolutionPhase")

	got, ok := r.Lookup("EvolutionPhase")
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = r.Lookup("Missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"EvolutionPhase"}, r.Names())
}

func TestRegisterIsIdempotentPerType(t *testing.T) {
	r := NewRegistry()
	first := MustRegister[sampleNiche](r, "Niche")
	second, err := Register[sampleNiche](r, "Niche")
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = Register[types.CompetitorProfile](r, "Niche")
	assert.Error(t, err)
}

func TestRegisterRejectsUnsupportedTypes(t *testing.T) {
	r := NewRegistry()

	_, err := Register[string](r, "Plain")
	assert.Error(t, err)

	type withMap struct {
		Scores map[string]float64 `json:"scores"`
	}
	_, err = Register[withMap](r, "WithMap")
	assert.Error(t, err)

	type badTag struct {
		Name string `json:"name" schema:"unique"`
	}
	_, err = Register[badTag](r, "BadTag")
	assert.Error(t, err)
}

func TestJSONSchemaRequiredList(t *testing.T) {
	r := NewRegistry()
	s := MustRegister[sampleNiche](r, "Niche")

	doc := s.JSONSchema()
	assert.Equal(t, "object", doc["type"])
	assert.ElementsMatch(t, []string{"name", "market_size", "growth_potential", "key_characteristics"}, doc["required"])

	props := doc["properties"].(map[string]any)
	growth := props["growth_potential"].(map[string]any)
	assert.Equal(t, 0.0, growth["minimum"])
	assert.Equal(t, 1.0, growth["maximum"])
	traits := props["key_characteristics"].(map[string]any)
	assert.Equal(t, 1, traits["minItems"])
}

func TestGenAISchemaConversion(t *testing.T) {
	r := NewRegistry()
	s := MustRegister[sampleNiche](r, "Niche")

	g := GenAISchema(s.Root)
	assert.Equal(t, "OBJECT", string(g.Type))
	assert.Equal(t, []string{"name", "market_size", "growth_potential", "key_characteristics"}, g.Required)
	assert.Equal(t, "INTEGER", string(g.Properties["market_size"].Type))
	assert.Equal(t, "ARRAY", string(g.Properties["key_characteristics"].Type))
	assert.Equal(t, "STRING", string(g.Properties["key_characteristics"].Items.Type))
	require.NotNil(t, g.Properties["key_characteristics"].MinItems)
	assert.Equal(t, int64(1), *g.Properties["key_characteristics"].MinItems)
	assert.Len(t, g.PropertyOrdering, 6)
}
