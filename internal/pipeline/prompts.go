// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// System prompts. Each names the role the backend plays for one call.
const (
	researchAnalystPrompt = `You are an expert research analyst. Synthesize the provided search results into a clear, concise report. Focus on key insights, trends and actionable information.`

	decompositionPrompt = `You are an expert problem decomposition assistant. Break complex queries into exactly 5 distinct, focused sub-problems. Each sub-problem must be specific, actionable and offer a different perspective.`

	searchQueryPrompt = `You are an expert search query generator. Write one precise, targeted web search query that will surface comprehensive information. Reply with the query only.`

	reportCompilerPrompt = `You are a master report compiler. Synthesize the individual research reports into one cohesive document. Highlight interconnections, overarching themes and strategic insights.`

	trendAnalystPrompt = `You are an expert trend analyst. Provide concise, data-driven insights.`

	visualizationPrompt = `You are a data visualization expert. Produce structured trend data with numerical values.`

	expansionStrategistPrompt = `You are an expert market strategist specializing in business expansion.`

	adoptionAnalystPrompt = `You are an expert in user adoption trend analysis. Produce realistic, strategic user growth data.`

	evolutionStrategistPrompt = `You are a strategic product evolution expert. Create a cohesive strategy that connects all phases.`

	noSearchResults = `No search results were available. Base the analysis on established knowledge of this market and state your assumptions.`
)

var (
	highLevelQueryTmpl = parse("high-level-query", `Write a comprehensive market research query for understanding customer markets in the {{.Domain}} domain.
Focus on identifying key customer segments, workflows and market characteristics. Reply with the query only.`)

	nicheListTmpl = parse("niche-list", `Based on the market research query: '{{.Query}}'
List 5 to 10 specific market niches or sub-domains within the {{.Domain}} domain, most significant first.
If no established niche exists, propose a credible new one.`)

	nicheSearchTmpl = parse("niche-search", `Write a precise web search query to research the market niche '{{.Niche}}' in the context of the {{.Domain}} domain.
Focus on customer characteristics, market size and key trends. Reply with the query only.`)

	nicheAnalysisTmpl = parse("niche-analysis", `Analyze the market data for the '{{.Niche}}' niche in {{.Domain}}.
Return:
- market_size: total market size in USD as an integer
- growth_potential: annual growth rate as a decimal between 0 and 1 (0.15 for 15%)
- key_characteristics: 3 to 5 key customer characteristics

Base the analysis on concrete market data and trends. Where exact numbers are unavailable give conservative estimates.`)

	investorSentimentTmpl = parse("investor-sentiment", `Research investor sentiment and the future outlook for the {{.Domain}} domain.
Include perspectives from top consulting firms such as McKinsey, BCG and Bain.`)

	idealCustomerTmpl = parse("ideal-customer", `Based on market research for the {{.Domain}} domain, develop a comprehensive ideal customer profile covering:
1. Demographic characteristics
2. Psychographic traits
3. Pain points and challenges
4. Buying behaviours
5. Technology adoption levels
6. Decision-making process`)

	breakdownTmpl = parse("breakdown", `Break down this query into detailed sub-problems: {{.Query}}`)

	yearSearchTmpl = parse("year-search", `Analyze the market for {{.Query}} in the year {{.Year}} with focus on:
1. Market size and economic indicators
2. Technological innovations
3. Key market disruptions
4. Regulatory landscape
5. Investment and funding trends
6. Competitive dynamics`)

	yearAnalysisTmpl = parse("year-analysis", `Comprehensively analyze the search results for the market question '{{.Query}}' in {{.Year}}.
Cover:
- Market size and growth
- Key technological developments
- Major market events
- Investment trends
- Competitive landscape shifts`)

	trendNarrativeTmpl = parse("trend-narrative", `Synthesize the year-by-year market insights for the query '{{.Query}}'.
Create an analysis that:
1. Identifies overarching trends
2. Highlights key inflection points
3. Provides predictive insights
4. Suggests strategic recommendations`)

	questionSearchTmpl = parse("question-search", `Generate a search query to research: {{.Question}}`)

	questionAnalysisTmpl = parse("question-analysis", `Question: {{.Question}}
Search Results: {{.Results}}`)

	yearTrendTmpl = parse("year-trend", `Analyze market trends for {{.Query}} in the year {{.Year}}, focusing on:
1. Key performance indicators
2. Growth metrics
3. Technological advancements
4. Market sentiment
5. Predictive insights`)

	trendChartTmpl = parse("trend-chart", `Based on these yearly trend analyses for {{.Query}}:

{{.Yearly}}

Create a trend visualization dataset:
1. Produce 3 to 5 distinct trend lines for market metrics such as market growth rate, innovation index, investment sentiment, technology adoption and competitive intensity.
2. Use one x-axis label per year from {{.First}} to {{.Last}}.
3. Give one data row per metric, one value per x-axis label, each a number between 0 and 100.
4. Keep year-over-year progression plausible, including realistic fluctuations.
5. Explain the reasoning behind each trend line and list the key strategic insights.`)

	expansionDomainsTmpl = parse("expansion-domains", `Based on the market analysis and customer discovery for the {{.Domain}} domain, identify 5 to 7 adjacent or complementary market domains for strategic expansion.

Consider technological adjacency, customer base overlap, transferability of skills and resources, market growth potential, the competitive landscape, investment requirements and potential synergies.

Return the domains ranked, most promising first.`)

	expansionSearchTmpl = parse("expansion-search", `Market expansion opportunities in {{.Target}} related to {{.Domain}}`)

	domainAnalysisTmpl = parse("domain-analysis", `Comprehensively analyze the potential for expanding from {{.Domain}} into {{.Target}}.

Provide:
- strategic_rationale: why this expansion makes sense
- competitive_landscape: the competitive dynamics in {{.Target}}
- investment_requirement: estimated investment needed in USD
- risk_score: overall risk between 0 (low) and 1 (high)
- synergies: concrete synergies between {{.Domain}} and {{.Target}}

Context from search results:
{{.Results}}`)

	phaseOneTmpl = parse("phase-one", `Design the MVP (minimum viable product) phase, phase 1, for {{.Domain}}.

Context:
- Primary target niche: {{.Niche}}
- Ideal customer: {{.ICP}}

Focus on:
1. A core feature set that solves immediate pain points
2. Quick market entry and validation
3. Early adopter engagement
4. Feedback collection mechanisms`)

	phaseTwoTmpl = parse("phase-two", `Design the market expansion phase, phase 2, for {{.Domain}}.

Previous phase key features:
{{.Previous}}

Context:
- Additional target niches: {{.Niches}}
- Market trends: {{.Trends}}

Focus on:
1. Feature expansion based on MVP learnings
2. Market share growth
3. An enhanced value proposition
4. Scaling operations`)

	phaseThreeTmpl = parse("phase-three", `Design the maturity and innovation phase, phase 3, for {{.Domain}}.

Previous phase key features:
{{.Previous}}

Context:
- Expansion domains: {{.Expansion}}
- Strategic rationale: {{.Rationale}}

Focus on:
1. Innovation and differentiation
2. Market leadership
3. New market opportunities
4. Long-term sustainability`)

	strategyOverviewTmpl = parse("strategy-overview", `Create an overall product evolution strategy for {{.Domain}} based on these phases:

Phase 1 (MVP): {{index .Descriptions 0}}
Phase 2 (Expansion): {{index .Descriptions 1}}
Phase 3 (Maturity): {{index .Descriptions 2}}

Provide the overall vision connecting all phases, the long-term strategic goals and the competitive differentiation strategy.`)

	adoptionTrendTmpl = parse("adoption-trend", `Generate a user adoption trend for {{.Domain}} across these phases:
{{range .Phases}}
Phase {{.PhaseNumber}} ({{.Name}}):
- Features: {{join .KeyFeatures}}
- Target segments: {{join .TargetCustomerSegments}}
{{end}}
Show adoption for beta users, paying users and total users, highlight phase transition points, explain the adoption pattern of each phase and give data-driven insights.`)

	competitorSearchTmpl = parse("competitor-search", `"{{.Product}}" ("{{.Description}}") (competitor OR alternative OR "market leader" OR "similar product") (features OR pricing OR comparison OR review) -job -careers`)

	competitorAnalysisTmpl = parse("competitor-analysis", `Based on the search results, identify and analyze the top competitors for {{.Product}}.
Focus on companies that directly compete with: {{.Description}}

For each competitor give its name, a brief description, its main competing products, its primary target market and what makes it unique.
Return only verified competitors with clear product overlap.`)

	derivativesTmpl = parse("derivatives", `For the product {{.Product}} ({{.Description}}), suggest 2 to 3 potential product derivatives or variations.

For each give a name, a brief description of how it differs and the specific market segment it targets.
Focus on meaningful variations that serve different use cases or markets.`)
)

var promptFuncs = template.FuncMap{
	"join": func(items []string) string { return strings.Join(items, ", ") },
}

func parse(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(promptFuncs).Parse(text))
}

// render executes t with data.
func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}
