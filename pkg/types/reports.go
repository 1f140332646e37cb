// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
)

// Field tags on the structures below are read by the schema registry in
// internal/llm. The json tag names the field; schema carries bounds
// (min, max, minItems) and the optional marker; desc is passed to the
// backend as the field description.

// Fixed widths shared by the stages and the report validators.
const (
	MaxDiscoveryNiches  = 4
	SubQuestionCount    = 5
	MaxExpansionDomains = 7
	EvolutionPhaseCount = 3
	MaxDerivatives      = 3
	FirstAnalysisYear   = 2019
	LastAnalysisYear    = 2024
)

// AnalysisYears returns the fixed yearly window in ascending order.
func AnalysisYears() []int {
	years := make([]int, 0, LastAnalysisYear-FirstAnalysisYear+1)
	for y := FirstAnalysisYear; y <= LastAnalysisYear; y++ {
		years = append(years, y)
	}
	return years
}

// NicheProfile is one market sub-segment resolved by the discovery stage.
type NicheProfile struct {
	Name               string   `json:"name" yaml:"name"`
	Description        string   `json:"description" yaml:"description"`
	MarketSize         int64    `json:"market_size" yaml:"market_size"`
	GrowthPotential    float64  `json:"growth_potential" yaml:"growth_potential"`
	KeyCharacteristics []string `json:"key_characteristics" yaml:"key_characteristics"`
}

// Insight wraps a free-text analysis block.
type Insight struct {
	Insights string `json:"insights" yaml:"insights"`
}

// CustomerDiscoveryReport is the output of the discovery stage.
type CustomerDiscoveryReport struct {
	PrimaryDomain        string         `json:"primary_domain" yaml:"primary_domain"`
	TotalMarketSize      int64          `json:"total_market_size" yaml:"total_market_size"`
	Niches               []NicheProfile `json:"niches" yaml:"niches"`
	IdealCustomerProfile Insight        `json:"ideal_customer_profile" yaml:"ideal_customer_profile"`
	InvestorSentiment    Insight        `json:"investor_sentiment" yaml:"investor_sentiment"`
}

// NewCustomerDiscoveryReport builds a report whose total market size is the
// sum of its niches. Niches keep their discovery order.
func NewCustomerDiscoveryReport(domain string, niches []NicheProfile, icp, sentiment string) CustomerDiscoveryReport {
	kept := make([]NicheProfile, len(niches))
	copy(kept, niches)
	var total int64
	for _, n := range kept {
		total += n.MarketSize
	}
	return CustomerDiscoveryReport{
		PrimaryDomain:        domain,
		TotalMarketSize:      total,
		Niches:               kept,
		IdealCustomerProfile: Insight{Insights: icp},
		InvestorSentiment:    Insight{Insights: sentiment},
	}
}

// Validate checks the market-size sum and the bounds of every niche.
func (r CustomerDiscoveryReport) Validate() error {
	if r.PrimaryDomain == "" {
		return &ValidationError{Field: "primary_domain", Reason: "is empty"}
	}
	var sum int64
	for i, n := range r.Niches {
		if n.Name == "" {
			return &ValidationError{Field: fmt.Sprintf("niches[%d].name", i), Reason: "is empty"}
		}
		if n.MarketSize < 0 {
			return &ValidationError{Field: fmt.Sprintf("niches[%d].market_size", i), Reason: "is negative"}
		}
		if n.GrowthPotential < 0 || n.GrowthPotential > 1 {
			return &ValidationError{
				Field:  fmt.Sprintf("niches[%d].growth_potential", i),
				Reason: fmt.Sprintf("%g outside [0,1]", n.GrowthPotential),
			}
		}
		sum += n.MarketSize
	}
	if sum != r.TotalMarketSize {
		return &ValidationError{
			Field:  "total_market_size",
			Reason: fmt.Sprintf("%d does not equal the niche sum %d", r.TotalMarketSize, sum),
		}
	}
	return nil
}

// YearInsight is one year's analysis inside a fixed yearly window.
type YearInsight struct {
	Year     int    `json:"year" yaml:"year"`
	Analysis string `json:"analysis" yaml:"analysis"`
}

// QuestionFinding is one sub-question's search and analysis cycle.
type QuestionFinding struct {
	Question    string   `json:"question" yaml:"question"`
	SearchQuery string   `json:"search_query" yaml:"search_query"`
	Snippets    []string `json:"snippets" yaml:"snippets"`
	Analysis    string   `json:"analysis" yaml:"analysis"`
}

// MarketAnalysisReport is the output of the market analysis stage.
type MarketAnalysisReport struct {
	OriginalQuery       string            `json:"original_query" yaml:"original_query"`
	Questions           []string          `json:"questions" yaml:"questions"`
	YearlyInsights      []YearInsight     `json:"yearly_insights" yaml:"yearly_insights"`
	TrendNarrative      string            `json:"trend_narrative" yaml:"trend_narrative"`
	Findings            []QuestionFinding `json:"findings" yaml:"findings"`
	ComprehensiveReport string            `json:"comprehensive_report" yaml:"comprehensive_report"`
}

// Validate checks the decomposition width and the yearly ordering.
func (r MarketAnalysisReport) Validate() error {
	if r.OriginalQuery == "" {
		return &ValidationError{Field: "original_query", Reason: "is empty"}
	}
	if len(r.Questions) != SubQuestionCount {
		return &ValidationError{
			Field:  "questions",
			Reason: fmt.Sprintf("has %d entries, want %d", len(r.Questions), SubQuestionCount),
		}
	}
	return validateYears("yearly_insights", r.YearlyInsights)
}

// TrendChart is the chart data a backend returns for a trend visualization.
// Data holds one row per y-axis label.
type TrendChart struct {
	XAxisLabels []string    `json:"x_axis_labels" yaml:"x_axis_labels" desc:"time period labels, one per year"`
	YAxisLabels []string    `json:"y_axis_labels" yaml:"y_axis_labels" schema:"minItems=1" desc:"metric names, one per trend line"`
	XAxisName   string      `json:"x_axis_name" yaml:"x_axis_name"`
	YAxisName   string      `json:"y_axis_name" yaml:"y_axis_name"`
	Data        [][]float64 `json:"data" yaml:"data" desc:"one row of values per metric, values between 0 and 100"`
	Reasoning   string      `json:"reasoning" yaml:"reasoning"`
	KeyInsights []string    `json:"key_insights" yaml:"key_insights"`
}

// Validate checks that every metric has a data row and that each row spans
// the x axis.
func (c TrendChart) Validate() error {
	if len(c.Data) != len(c.YAxisLabels) {
		return &ValidationError{
			Field:  "data",
			Reason: fmt.Sprintf("has %d rows for %d metrics", len(c.Data), len(c.YAxisLabels)),
		}
	}
	for i, row := range c.Data {
		if len(c.XAxisLabels) > 0 && len(row) != len(c.XAxisLabels) {
			return &ValidationError{
				Field:  fmt.Sprintf("data[%d]", i),
				Reason: fmt.Sprintf("has %d points for %d x-axis labels", len(row), len(c.XAxisLabels)),
			}
		}
	}
	return nil
}

// TrendVisualization pairs chart data with the per-year analyses it was
// derived from. No image is rendered.
type TrendVisualization struct {
	Query        string        `json:"query" yaml:"query"`
	Chart        TrendChart    `json:"chart" yaml:"chart"`
	YearlyTrends []YearInsight `json:"yearly_trends" yaml:"yearly_trends"`
}

// Validate checks the chart shape and the yearly ordering.
func (v TrendVisualization) Validate() error {
	if err := v.Chart.Validate(); err != nil {
		return err
	}
	return validateYears("yearly_trends", v.YearlyTrends)
}

// ExpansionStrategy is the output of the expansion stage. Domains whose
// analysis failed stay in ExpansionDomains and are listed in SkippedDomains;
// they have no entry in the per-domain maps.
type ExpansionStrategy struct {
	PrimaryDomain          string             `json:"primary_domain" yaml:"primary_domain"`
	ExpansionDomains       []string           `json:"expansion_domains" yaml:"expansion_domains"`
	StrategicRationale     map[string]string  `json:"strategic_rationale" yaml:"strategic_rationale"`
	CompetitiveLandscape   map[string]string  `json:"competitive_landscape" yaml:"competitive_landscape"`
	InvestmentRequirements map[string]float64 `json:"investment_requirements" yaml:"investment_requirements"`
	RiskAssessment         map[string]float64 `json:"risk_assessment" yaml:"risk_assessment"`
	PotentialSynergies     []string           `json:"potential_synergies" yaml:"potential_synergies"`
	SkippedDomains         []string           `json:"skipped_domains,omitempty" yaml:"skipped_domains,omitempty"`
}

// Validate checks the domain limit and that every per-domain entry belongs
// to a listed domain.
func (s ExpansionStrategy) Validate() error {
	if s.PrimaryDomain == "" {
		return &ValidationError{Field: "primary_domain", Reason: "is empty"}
	}
	if len(s.ExpansionDomains) > MaxExpansionDomains {
		return &ValidationError{
			Field:  "expansion_domains",
			Reason: fmt.Sprintf("has %d entries, limit is %d", len(s.ExpansionDomains), MaxExpansionDomains),
		}
	}
	listed := make(map[string]bool, len(s.ExpansionDomains))
	for _, d := range s.ExpansionDomains {
		listed[d] = true
	}
	for d := range s.StrategicRationale {
		if !listed[d] {
			return &ValidationError{Field: "strategic_rationale", Reason: fmt.Sprintf("unknown domain %q", d)}
		}
	}
	for d, risk := range s.RiskAssessment {
		if !listed[d] {
			return &ValidationError{Field: "risk_assessment", Reason: fmt.Sprintf("unknown domain %q", d)}
		}
		if risk < 0 || risk > 1 {
			return &ValidationError{Field: "risk_assessment", Reason: fmt.Sprintf("%q risk %g outside [0,1]", d, risk)}
		}
	}
	return nil
}

// EvolutionPhase is one step of a product roadmap.
type EvolutionPhase struct {
	PhaseNumber              int      `json:"phase_number" yaml:"phase_number" schema:"min=1,max=3"`
	Name                     string   `json:"name" yaml:"name"`
	Description              string   `json:"description" yaml:"description"`
	TargetCustomerSegments   []string `json:"target_customer_segments" yaml:"target_customer_segments"`
	KeyFeatures              []string `json:"key_features" yaml:"key_features" schema:"minItems=1"`
	ValueProposition         string   `json:"value_proposition" yaml:"value_proposition"`
	ExpectedMarketReaction   string   `json:"expected_market_reaction" yaml:"expected_market_reaction"`
	SuccessMetrics           []string `json:"success_metrics" yaml:"success_metrics"`
	RiskMitigationStrategies []string `json:"risk_mitigation_strategies" yaml:"risk_mitigation_strategies"`
}

// UserAdoptionTrend is a hypothetical adoption curve across the phases.
type UserAdoptionTrend struct {
	XAxisLabels []string  `json:"x_axis_labels" yaml:"x_axis_labels"`
	YAxisLabels []string  `json:"y_axis_labels" yaml:"y_axis_labels"`
	XAxisData   []float64 `json:"x_axis_data" yaml:"x_axis_data"`
	YAxisData   []float64 `json:"y_axis_data" yaml:"y_axis_data"`
	XAxisName   string    `json:"x_axis_name" yaml:"x_axis_name"`
	YAxisName   string    `json:"y_axis_name" yaml:"y_axis_name"`
	Reasoning   string    `json:"reasoning" yaml:"reasoning"`
	KeyInsights []string  `json:"key_insights" yaml:"key_insights"`
}

// EvolutionStrategy is the output of the evolution stage.
type EvolutionStrategy struct {
	PrimaryDomain              string            `json:"primary_domain" yaml:"primary_domain"`
	Phases                     []EvolutionPhase  `json:"phases" yaml:"phases"`
	OverallVision              string            `json:"overall_vision" yaml:"overall_vision"`
	LongTermGoals              []string          `json:"long_term_goals" yaml:"long_term_goals"`
	CompetitiveDifferentiation []string          `json:"competitive_differentiation" yaml:"competitive_differentiation"`
	UserAdoptionTrend          UserAdoptionTrend `json:"user_adoption_trend" yaml:"user_adoption_trend"`
}

// Validate checks that there are exactly three phases numbered in order.
func (s EvolutionStrategy) Validate() error {
	if len(s.Phases) != EvolutionPhaseCount {
		return &ValidationError{
			Field:  "phases",
			Reason: fmt.Sprintf("has %d entries, want %d", len(s.Phases), EvolutionPhaseCount),
		}
	}
	for i, p := range s.Phases {
		if p.PhaseNumber != i+1 {
			return &ValidationError{
				Field:  fmt.Sprintf("phases[%d].phase_number", i),
				Reason: fmt.Sprintf("is %d, want %d", p.PhaseNumber, i+1),
			}
		}
	}
	return nil
}

// CompetitorProfile describes one competing company.
type CompetitorProfile struct {
	Name               string   `json:"name" yaml:"name"`
	Description        string   `json:"description" yaml:"description"`
	MainProducts       []string `json:"main_products" yaml:"main_products"`
	TargetMarket       string   `json:"target_market" yaml:"target_market"`
	KeyDifferentiators []string `json:"key_differentiators" yaml:"key_differentiators"`
}

// Derivative is a product variation with its own competitor lookup.
type Derivative struct {
	Name         string              `json:"name" yaml:"name"`
	Description  string              `json:"description" yaml:"description"`
	TargetMarket string              `json:"target_market" yaml:"target_market"`
	Competitors  []CompetitorProfile `json:"competitors" yaml:"competitors"`
}

// CompetitiveReport is the output of the competitive intelligence stage.
type CompetitiveReport struct {
	ProductName string              `json:"product_name" yaml:"product_name"`
	Competitors []CompetitorProfile `json:"competitors" yaml:"competitors"`
	Derivatives []Derivative        `json:"derivatives" yaml:"derivatives"`
}

// Validate checks the derivative limit.
func (r CompetitiveReport) Validate() error {
	if r.ProductName == "" {
		return &ValidationError{Field: "product_name", Reason: "is empty"}
	}
	if len(r.Derivatives) > MaxDerivatives {
		return &ValidationError{
			Field:  "derivatives",
			Reason: fmt.Sprintf("has %d entries, limit is %d", len(r.Derivatives), MaxDerivatives),
		}
	}
	return nil
}

func validateYears(field string, insights []YearInsight) error {
	for i := 1; i < len(insights); i++ {
		if insights[i].Year <= insights[i-1].Year {
			return &ValidationError{
				Field:  fmt.Sprintf("%s[%d].year", field, i),
				Reason: fmt.Sprintf("%d does not follow %d", insights[i].Year, insights[i-1].Year),
			}
		}
	}
	return nil
}
