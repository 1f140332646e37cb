// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/market-edge/pkg/types"
)

func TestAssemblerOrdersByKey(t *testing.T) {
	a := NewAssembler[int, string]()
	var wg sync.WaitGroup
	for _, year := range []int{2024, 2019, 2022, 2020, 2023, 2021} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, a.Put(year, "y"+string(rune('0'+year%10))))
		}()
	}
	wg.Wait()

	assert.Equal(t, 6, a.Len())
	assert.Equal(t, []int{2019, 2020, 2021, 2022, 2023, 2024}, a.Keys())
	assert.Equal(t, []string{"y9", "y0", "y1", "y2", "y3", "y4"}, a.Values())
}

func TestAssemblerRejectsDuplicate(t *testing.T) {
	a := NewAssembler[int, string]()
	require.NoError(t, a.Put(1, "first"))
	assert.Error(t, a.Put(1, "second"))
	assert.Equal(t, []string{"first"}, a.Values())
}

func TestRenderSections(t *testing.T) {
	got := RenderSections(
		Section{Label: "2019", Body: "  slow start \n"},
		Section{Label: "2020", Body: " "},
		Section{Label: "2021", Body: "surge"},
	)
	assert.Equal(t, "2019:\nslow start\n\n2021:\nsurge", got)
	assert.Empty(t, RenderSections())
}

func TestBullets(t *testing.T) {
	assert.Equal(t, "- live classes\n- quizzes", Bullets([]string{"live classes", "", "quizzes"}))
	assert.Empty(t, Bullets(nil))
}

func TestArtifactText(t *testing.T) {
	r := types.NewCustomerDiscoveryReport("Edutech", []types.NicheProfile{{Name: "Tutoring", MarketSize: 42}}, "icp", "bullish")
	text, err := ArtifactText("Customer discovery report: Edutech", r)
	require.NoError(t, err)

	assert.Contains(t, text, "Customer discovery report: Edutech\n\n")
	assert.Contains(t, text, "total_market_size: 42")
	assert.Contains(t, text, "name: Tutoring")
	assert.Contains(t, ReportContext(r), "primary_domain: Edutech")
}
