// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/market-edge/internal/llm"
	"github.com/pdiddy/market-edge/pkg/types"
)

// MarketAnalysis decomposes a query into sub-questions and researches each.
type MarketAnalysis struct {
	deps Deps
}

// NewMarketAnalysis returns the market analysis stage.
func NewMarketAnalysis(d Deps) *MarketAnalysis {
	RegisterSchemas(d.LLM.Schemas())
	return &MarketAnalysis{deps: d.withDefaults()}
}

// Name returns the stage identifier.
func (s *MarketAnalysis) Name() string { return "market_analysis" }

// Run breaks query into five sub-questions, walks the 2019-2024 window for
// the original query one year at a time, researches each sub-question and
// compiles everything into one report.
func (s *MarketAnalysis) Run(ctx context.Context, query string) (Result[types.MarketAnalysisReport], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result[types.MarketAnalysisReport]{}, &types.ValidationError{Field: "query", Reason: "is required"}
	}
	spec := runSpec{
		stage:   s.Name(),
		kind:    types.KindMarketAnalysis,
		subject: query,
		title:   "Market analysis report: " + query,
	}

	return execute(ctx, s.deps, spec, func(ctx context.Context, lc *Lifecycle) (types.MarketAnalysisReport, error) {
		var zero types.MarketAnalysisReport
		d := s.deps

		prompt, err := render(breakdownTmpl, map[string]any{"Query": query})
		if err != nil {
			return zero, err
		}
		breakdown, err := llm.Structured[problemBreakdown](ctx, d.LLM, converse(decompositionPrompt, prompt))
		if err != nil {
			return zero, fmt.Errorf("decomposing query: %w", err)
		}
		questions := nonBlank(breakdown.Questions)
		if len(questions) < types.SubQuestionCount {
			return zero, &types.SchemaValidationError{
				Schema: "ProblemBreakdown",
				Path:   "questions",
				Reason: fmt.Sprintf("has %d usable questions, need %d", len(questions), types.SubQuestionCount),
			}
		}
		questions = questions[:types.SubQuestionCount]

		yearly := make([]types.YearInsight, 0, len(types.AnalysisYears()))
		for _, year := range types.AnalysisYears() {
			analysis, err := s.analyzeYear(ctx, query, year)
			if err != nil {
				return zero, fmt.Errorf("analyzing %d: %w", year, err)
			}
			yearly = append(yearly, types.YearInsight{Year: year, Analysis: analysis})
		}

		narrativeSystem, err := render(trendNarrativeTmpl, map[string]any{"Query": query})
		if err != nil {
			return zero, err
		}
		narrative, err := d.LLM.Complete(ctx, converse(narrativeSystem, yearSections(yearly)))
		if err != nil {
			return zero, fmt.Errorf("synthesizing trend narrative: %w", err)
		}

		findings := make([]types.QuestionFinding, 0, len(questions))
		for _, q := range questions {
			f, err := s.researchQuestion(ctx, q)
			if err != nil {
				return zero, fmt.Errorf("researching %q: %w", q, err)
			}
			findings = append(findings, f)
		}

		if err := enterSynthesis(lc); err != nil {
			return zero, err
		}

		reports := []Section{{Label: query, Body: narrative}}
		for _, f := range findings {
			reports = append(reports, Section{Label: f.Question, Body: f.Analysis})
		}
		compiled, err := d.LLM.Complete(ctx, converse(reportCompilerPrompt,
			"Original Query: "+query+"\nIndividual Reports:\n\n"+RenderSections(reports...)))
		if err != nil {
			return zero, fmt.Errorf("compiling report: %w", err)
		}

		return types.MarketAnalysisReport{
			OriginalQuery:       query,
			Questions:           questions,
			YearlyInsights:      yearly,
			TrendNarrative:      strings.TrimSpace(narrative),
			Findings:            findings,
			ComprehensiveReport: strings.TrimSpace(compiled),
		}, nil
	})
}

// analyzeYear runs one search and analysis cycle for query in year.
func (s *MarketAnalysis) analyzeYear(ctx context.Context, query string, year int) (string, error) {
	d := s.deps
	data := map[string]any{"Query": query, "Year": year}

	searchText, err := render(yearSearchTmpl, data)
	if err != nil {
		return "", err
	}
	snippets, err := d.Search.Search(ctx, searchText, d.SearchCount)
	if err != nil {
		return "", err
	}
	system, err := render(yearAnalysisTmpl, data)
	if err != nil {
		return "", err
	}
	text, err := d.LLM.Complete(ctx, converse(system, evidence(snippets)))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// researchQuestion runs one search and analysis cycle for a sub-question.
func (s *MarketAnalysis) researchQuestion(ctx context.Context, question string) (types.QuestionFinding, error) {
	d := s.deps
	q, err := searchQuery(ctx, d, searchQueryPrompt, questionSearchTmpl, map[string]any{"Question": question}, question)
	if err != nil {
		return types.QuestionFinding{}, err
	}
	snippets, err := d.Search.Search(ctx, q, d.SearchCount)
	if err != nil {
		return types.QuestionFinding{}, err
	}
	analysis, err := askText(ctx, d, researchAnalystPrompt, questionAnalysisTmpl, map[string]any{
		"Question": question,
		"Results":  evidence(snippets),
	})
	if err != nil {
		return types.QuestionFinding{}, err
	}
	if snippets == nil {
		snippets = []string{}
	}
	return types.QuestionFinding{
		Question:    question,
		SearchQuery: q,
		Snippets:    snippets,
		Analysis:    analysis,
	}, nil
}

// yearSections renders yearly analyses as labelled sections in year order.
func yearSections(insights []types.YearInsight) string {
	sections := make([]Section, len(insights))
	for i, in := range insights {
		sections[i] = Section{Label: strconv.Itoa(in.Year), Body: in.Analysis}
	}
	return RenderSections(sections...)
}
