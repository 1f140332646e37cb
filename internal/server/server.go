// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the pipeline stages and the analyst chat over HTTP.
// Every stage endpoint accepts its input as query parameters or a JSON body,
// waits for the report's archive and answers with the report plus any
// persistence warnings.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pdiddy/market-edge/internal/pipeline"
	"github.com/pdiddy/market-edge/internal/rag"
	"github.com/pdiddy/market-edge/pkg/types"
)

// Chatter answers a conversation. rag.Chat satisfies it.
type Chatter interface {
	Reply(ctx context.Context, conv types.Conversation) (rag.Reply, error)
}

// ReportSaver keeps a copy of a finished report for a user. reportsink.Sink
// satisfies it.
type ReportSaver interface {
	SaveReport(ctx context.Context, user string, kind types.ArtifactKind, subject string, report any) (string, error)
}

// Response is the envelope every stage endpoint returns.
type Response struct {
	Report     any      `json:"report"`
	ArtifactID string   `json:"artifact_id,omitempty"`
	ReportID   string   `json:"report_id,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// Server routes HTTP requests to the stages.
type Server struct {
	runner *pipeline.Runner
	chat   Chatter
	sink   ReportSaver
	logger *zap.Logger
	router chi.Router
}

// New builds a server. chat and sink may be nil; /chat then answers 503 and
// reports are not saved per user.
func New(runner *pipeline.Runner, chat Chatter, sink ReportSaver, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runner: runner,
		chat:   chat,
		sink:   sink,
		logger: logger.Named("server"),
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.logRequests)

	s.router.Get("/health", s.handleHealth)
	s.router.Post("/customer-discovery/discover", s.handleDiscover)
	s.router.Post("/market-analysis/analyze", s.handleAnalyze)
	s.router.Post("/market-analysis/visualize-trend", s.handleTrend)
	s.router.Post("/market-expansion/expand", s.handleExpand)
	s.router.Post("/product-evolution/evolve", s.handleEvolve)
	s.router.Post("/competitive-intelligence/analyze", s.handleCompete)
	s.router.Post("/chat", s.handleChat)
}

// logRequests logs one line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	var in pipeline.DiscoveryInput
	if !s.bind(w, r, &in) {
		return
	}
	q := r.URL.Query()
	fromQuery(q.Get("domain"), &in.Domain)
	fromQuery(q.Get("product_name"), &in.ProductName)
	fromQuery(q.Get("product_description"), &in.ProductDescription)
	fromQuery(q.Get("offerings"), &in.Offerings)

	res, err := s.runner.Discovery.Run(r.Context(), in)
	finish(s, w, r, types.KindCustomerDiscovery, in.Domain, res, err)
}

type queryInput struct {
	Query string `json:"query"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var in queryInput
	if !s.bind(w, r, &in) {
		return
	}
	fromQuery(r.URL.Query().Get("query"), &in.Query)

	res, err := s.runner.Market.Run(r.Context(), in.Query)
	finish(s, w, r, types.KindMarketAnalysis, in.Query, res, err)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	var in queryInput
	if !s.bind(w, r, &in) {
		return
	}
	fromQuery(r.URL.Query().Get("query"), &in.Query)

	res, err := s.runner.Trend.Run(r.Context(), in.Query)
	finish(s, w, r, types.KindMarketTrend, in.Query, res, err)
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	var in pipeline.ExpansionInput
	if !s.bind(w, r, &in) {
		return
	}
	res, err := s.runner.Expansion.Run(r.Context(), in)
	finish(s, w, r, types.KindMarketExpansion, in.Discovery.PrimaryDomain, res, err)
}

func (s *Server) handleEvolve(w http.ResponseWriter, r *http.Request) {
	var in pipeline.EvolutionInput
	if !s.bind(w, r, &in) {
		return
	}
	res, err := s.runner.Evolution.Run(r.Context(), in)
	finish(s, w, r, types.KindProductEvolution, in.Discovery.PrimaryDomain, res, err)
}

func (s *Server) handleCompete(w http.ResponseWriter, r *http.Request) {
	var in pipeline.CompetitiveInput
	if !s.bind(w, r, &in) {
		return
	}
	q := r.URL.Query()
	fromQuery(q.Get("product_name"), &in.ProductName)
	fromQuery(q.Get("product_description"), &in.ProductDescription)

	res, err := s.runner.Competitive.Run(r.Context(), in)
	finish(s, w, r, types.KindCompetitiveAnalysis, in.ProductName, res, err)
}

type chatRequest struct {
	Messages types.Conversation `json:"messages"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "chat is not configured"})
		return
	}
	var in chatRequest
	if !s.bind(w, r, &in) {
		return
	}
	reply, err := s.chat.Reply(r.Context(), in.Messages)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// finish writes a stage result once its archive has settled. When the
// request names a user and a sink is configured the report is also saved
// for that user.
func finish[O any](s *Server, w http.ResponseWriter, r *http.Request, kind types.ArtifactKind, subject string, res pipeline.Result[O], err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := Response{Report: res.Report}

	id, warning, err := pipeline.Settle(r.Context(), res.Archive)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out.ArtifactID = id
	if warning != "" {
		out.Warnings = append(out.Warnings, warning)
	}

	if user := r.URL.Query().Get("user"); user != "" && s.sink != nil {
		rid, err := s.sink.SaveReport(r.Context(), user, kind, subject, res.Report)
		if err != nil {
			s.logger.Warn("saving report for user failed", zap.String("user", user), zap.Error(err))
			out.Warnings = append(out.Warnings, err.Error())
		} else {
			out.ReportID = rid
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// bind decodes an optional JSON body into v. It writes a 422 and returns
// false when the body is present but malformed.
func (s *Server) bind(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		return true
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		s.fail(w, r, &types.ValidationError{Field: "body", Reason: err.Error()})
		return false
	}
	return true
}

// fail maps err onto a status code: malformed input is 422, everything else
// is 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if types.IsValidation(err) {
		status = http.StatusUnprocessableEntity
	}
	s.logger.Warn("request failed",
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err))
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}

func fromQuery(v string, dst *string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
