// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"github.com/pdiddy/market-edge/internal/llm"
	"github.com/pdiddy/market-edge/pkg/types"
)

// Intermediate shapes the stages request from the generative backend.
// Report types that are returned whole (TrendChart, EvolutionPhase,
// UserAdoptionTrend) are registered directly.

type nicheList struct {
	Niches []string `json:"niches" schema:"minItems=1" desc:"5 to 10 market niche names, most significant first"`
}

type nicheAnalysis struct {
	MarketSize         int64    `json:"market_size" schema:"min=0" desc:"total market size in USD"`
	GrowthPotential    float64  `json:"growth_potential" schema:"min=0,max=1" desc:"annual growth rate as a decimal"`
	KeyCharacteristics []string `json:"key_characteristics" desc:"3 to 5 key customer characteristics"`
}

type problemBreakdown struct {
	Questions []string `json:"questions" schema:"minItems=5" desc:"exactly 5 sub-problems derived from the main query"`
}

type expansionDomains struct {
	Domains []string `json:"domains" schema:"minItems=1" desc:"expansion domains ranked by promise"`
}

type domainAnalysis struct {
	StrategicRationale    string   `json:"strategic_rationale"`
	CompetitiveLandscape  string   `json:"competitive_landscape"`
	InvestmentRequirement float64  `json:"investment_requirement" schema:"min=0" desc:"estimated investment in USD"`
	RiskScore             float64  `json:"risk_score" schema:"min=0,max=1" desc:"0 is low risk, 1 is high risk"`
	Synergies             []string `json:"synergies"`
}

type strategyOverview struct {
	OverallVision              string   `json:"overall_vision" desc:"long-term product vision"`
	LongTermGoals              []string `json:"long_term_goals"`
	CompetitiveDifferentiation []string `json:"competitive_differentiation"`
}

type competitorList struct {
	Competitors []types.CompetitorProfile `json:"competitors"`
}

type derivativeIdea struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	TargetMarket string `json:"target_market"`
}

type derivativeList struct {
	Derivatives []derivativeIdea `json:"derivatives" schema:"minItems=1"`
}

// RegisterSchemas declares every shape the stages request. It is safe to
// call more than once on the same registry.
func RegisterSchemas(r *llm.Registry) {
	llm.MustRegister[nicheList](r, "IdentifyMarketNiche")
	llm.MustRegister[nicheAnalysis](r, "NicheAnalysis")
	llm.MustRegister[problemBreakdown](r, "ProblemBreakdown")
	llm.MustRegister[types.TrendChart](r, "MarketTrendVisualization")
	llm.MustRegister[expansionDomains](r, "ExpansionDomains")
	llm.MustRegister[domainAnalysis](r, "DomainAnalysis")
	llm.MustRegister[types.EvolutionPhase](r, "ProductEvolutionPhase")
	llm.MustRegister[strategyOverview](r, "EvolutionStrategy")
	llm.MustRegister[types.UserAdoptionTrend](r, "UserAdoptionTrend")
	llm.MustRegister[competitorList](r, "ListCompetitorProfile")
	llm.MustRegister[derivativeList](r, "ListProductDerivative")
}
