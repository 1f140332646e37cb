// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline implements the report stages. Each stage gathers
// evidence through the search gateway and the generative client, assembles
// one typed report, validates it and archives it asynchronously. Stages are
// independent; Runner threads reports between them.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/market-edge/internal/llm"
	"github.com/pdiddy/market-edge/pkg/types"
)

// State is a stage run's position in its lifecycle.
type State string

const (
	StateInitialized  State = "initialized"
	StateGathering    State = "gathering"
	StateSynthesizing State = "synthesizing"
	StatePersisted    State = "persisted"
	StateFailed       State = "failed"
)

var transitions = map[State][]State{
	StateInitialized:  {StateGathering, StateFailed},
	StateGathering:    {StateSynthesizing, StateFailed},
	StateSynthesizing: {StatePersisted, StateFailed},
}

// Lifecycle records the states one stage run passes through. It is safe for
// concurrent use; the archive goroutine advances it after the run returns.
type Lifecycle struct {
	mu     sync.Mutex
	states []State
}

func newLifecycle() *Lifecycle {
	return &Lifecycle{states: []State{StateInitialized}}
}

// Current returns the latest state.
func (l *Lifecycle) Current() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.states[len(l.states)-1]
}

// States returns every state entered so far, in order.
func (l *Lifecycle) States() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]State, len(l.states))
	copy(out, l.states)
	return out
}

// Advance moves to next, or returns an error if the move is not allowed
// from the current state.
func (l *Lifecycle) Advance(next State) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur := l.states[len(l.states)-1]
	for _, allowed := range transitions[cur] {
		if allowed == next {
			l.states = append(l.states, next)
			return nil
		}
	}
	return fmt.Errorf("illegal stage transition %s -> %s", cur, next)
}

// Archiver writes report text to durable storage. artifact.Store satisfies it.
type Archiver interface {
	Upsert(ctx context.Context, text string, meta types.ArtifactMetadata) (string, error)
}

// Searcher returns web snippets for a query. search.Gateway satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]string, error)
}

// Deps are the shared service handles every stage is built from.
type Deps struct {
	LLM    *llm.Client
	Search Searcher
	Store  Archiver
	Logger *zap.Logger

	// SearchCount is the number of snippets requested per search (default 2).
	SearchCount int

	// ArchiveTimeout bounds each artifact write (default 2m).
	ArchiveTimeout time.Duration
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.SearchCount <= 0 {
		d.SearchCount = 2
	}
	if d.ArchiveTimeout <= 0 {
		d.ArchiveTimeout = 2 * time.Minute
	}
	return d
}

// Archive tracks the asynchronous write of one report.
type Archive struct {
	done chan struct{}
	id   string
	err  error
}

// Done is closed once the write has finished.
func (a *Archive) Done() <-chan struct{} { return a.done }

// Wait blocks until the write finishes or ctx ends. It returns the artifact
// id, or a *types.PersistenceError when the write failed. An id of "" with
// no error means no store is configured.
func (a *Archive) Wait(ctx context.Context) (string, error) {
	select {
	case <-a.done:
		return a.id, a.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Result is what a stage run returns: the validated report, the states it
// passed through and the handle of its pending archive.
type Result[O any] struct {
	Report    O
	Archive   *Archive
	lifecycle *Lifecycle
}

// States returns the lifecycle states entered so far.
func (r Result[O]) States() []State {
	if r.lifecycle == nil {
		return nil
	}
	return r.lifecycle.States()
}

// State returns the latest lifecycle state.
func (r Result[O]) State() State {
	if r.lifecycle == nil {
		return StateInitialized
	}
	return r.lifecycle.Current()
}

// Stage turns an input into a report. Implementations hold no per-run state
// and may run concurrently.
type Stage[I, O any] interface {
	Name() string
	Run(ctx context.Context, in I) (Result[O], error)
}

type report interface {
	Validate() error
}

// runSpec names what a run produces and how its artifact is labelled.
type runSpec struct {
	stage   string
	kind    types.ArtifactKind
	subject string
	title   string
}

// execute drives one stage run through its lifecycle. gather performs every
// sub-call and must call enterSynthesis before its final assembly calls.
// Any error fails the run and nothing is archived.
func execute[O report](ctx context.Context, d Deps, spec runSpec, gather func(ctx context.Context, lc *Lifecycle) (O, error)) (Result[O], error) {
	log := d.Logger.With(zap.String("stage", spec.stage), zap.String("subject", spec.subject))
	lc := newLifecycle()
	start := time.Now()

	fail := func(err error) (Result[O], error) {
		_ = lc.Advance(StateFailed)
		log.Warn("stage failed",
			zap.Stringer("state", stateList(lc.States())),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		var zero O
		return Result[O]{Report: zero, lifecycle: lc}, err
	}

	if err := lc.Advance(StateGathering); err != nil {
		return fail(err)
	}
	log.Info("stage started")

	out, err := gather(ctx, lc)
	if err != nil {
		return fail(err)
	}
	if lc.Current() != StateSynthesizing {
		if err := lc.Advance(StateSynthesizing); err != nil {
			return fail(err)
		}
	}
	if err := out.Validate(); err != nil {
		return fail(fmt.Errorf("%s report failed validation: %w", spec.stage, err))
	}

	log.Info("stage synthesized", zap.Duration("elapsed", time.Since(start)))
	return Result[O]{
		Report:    out,
		Archive:   archiveAsync(ctx, d, spec, out, lc, log),
		lifecycle: lc,
	}, nil
}

// enterSynthesis marks the end of gathering.
func enterSynthesis(lc *Lifecycle) error {
	return lc.Advance(StateSynthesizing)
}

// archiveAsync writes the report in the background. The write survives
// caller cancellation and is bounded by the archive timeout instead.
func archiveAsync(ctx context.Context, d Deps, spec runSpec, out any, lc *Lifecycle, log *zap.Logger) *Archive {
	a := &Archive{done: make(chan struct{})}
	if d.Store == nil {
		close(a.done)
		return a
	}

	meta := types.ArtifactMetadata{
		Kind:        spec.kind,
		Subject:     spec.subject,
		GeneratedAt: time.Now().UTC(),
	}
	text, err := ArtifactText(spec.title, out)
	if err != nil {
		a.err = &types.PersistenceError{Kind: spec.kind, Subject: spec.subject, Err: err}
		close(a.done)
		return a
	}

	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.ArchiveTimeout)
	go func() {
		defer close(a.done)
		defer cancel()
		id, err := d.Store.Upsert(actx, text, meta)
		if err != nil {
			a.err = &types.PersistenceError{Kind: spec.kind, Subject: spec.subject, Err: err}
			log.Warn("report archive failed", zap.Error(err))
			return
		}
		a.id = id
		_ = lc.Advance(StatePersisted)
		log.Info("report archived", zap.String("artifact_id", id))
	}()
	return a
}

type stateList []State

func (s stateList) String() string {
	out := ""
	for i, st := range s {
		if i > 0 {
			out += " -> "
		}
		out += string(st)
	}
	return out
}
