// Package engine owns the serving index: it schedules builds on a worker,
// installs finished indexes atomically and answers searches against
// whichever index is installed.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/verselens-search-api/internal/corpus"
	"github.com/verselens-search-api/internal/index"
	"github.com/verselens-search-api/internal/verses"
	"github.com/verselens-search-api/internal/worker"
)

var logger = log.New("engine")

// Embedder is the part of the embeddings service the engine depends on
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
	EmbedVerses(ctx context.Context, texts []string) ([][]float64, error)
}

// dimensioned is implemented by embedders that know their output size
// before embedding anything
type dimensioned interface {
	Dimensions() int
}

// Scheduler runs build tasks off the request path
type Scheduler interface {
	Submit(task worker.Task) error
}

// Config tunes builds and searches. Zero values fall back to defaults.
type Config struct {
	BatchSize          int
	Concurrency        int
	BuildTimeout       time.Duration // 0 means no limit
	SearchTimeout      time.Duration
	MinQueryLength     int
	DefaultTranslation string
}

func (c Config) withDefaults() Config {
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = 10 * time.Second
	}
	if c.MinQueryLength <= 0 {
		c.MinQueryLength = 2
	}
	if c.DefaultTranslation == "" {
		c.DefaultTranslation = "KJV"
	}
	return c
}

// State is the readiness of the engine
type State string

const (
	StateEmpty    State = "empty"
	StateBuilding State = "building"
	StateReady    State = "ready"
)

// Status is a point-in-time view of the engine
type Status struct {
	State               State
	VerseCount          int
	Dimension           int
	Translation         string
	BuildID             string
	BuildingTranslation string
	LastError           string
	LastBuiltAt         time.Time
	LastBuildDuration   time.Duration
}

// BuildOutcome describes what a build request did
type BuildOutcome string

const (
	BuildStarted    BuildOutcome = "started"
	BuildExists     BuildOutcome = "exists"
	BuildInProgress BuildOutcome = "in_progress"
)

// BuildAck acknowledges a build request
type BuildAck struct {
	Outcome     BuildOutcome
	Translation string
	BuildID     string
	Message     string
}

// Result is one ranked verse returned by Search
type Result struct {
	verses.Reference
	Text  string
	Score float64
	Rank  int
}

// snapshot is the installed index with the build that produced it
type snapshot struct {
	index       *index.Index
	translation string
	buildID     string
	builtAt     time.Time
}

// Engine serves searches from the installed index while at most one build
// runs in the background
type Engine struct {
	source    corpus.Source
	embedder  Embedder
	scheduler Scheduler
	cfg       Config

	current atomic.Pointer[snapshot]

	mu                  sync.Mutex
	building            bool
	buildingTranslation string
	buildingID          string
	lastErr             error
	lastDuration        time.Duration
}

// New creates an engine in the empty state
func New(source corpus.Source, embedder Embedder, scheduler Scheduler, cfg Config) *Engine {
	return &Engine{
		source:    source,
		embedder:  embedder,
		scheduler: scheduler,
		cfg:       cfg.withDefaults(),
	}
}

// Status never waits on a running build. Before the first index is
// installed Dimension is the embedder's declared size, if it has one.
func (e *Engine) Status() Status {
	snap := e.current.Load()

	e.mu.Lock()
	st := Status{
		LastBuildDuration: e.lastDuration,
	}
	if e.building {
		st.State = StateBuilding
		st.BuildingTranslation = e.buildingTranslation
	}
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	e.mu.Unlock()

	if snap != nil {
		if st.State == "" {
			st.State = StateReady
		}
		st.VerseCount = snap.index.Len()
		st.Dimension = snap.index.Dimension()
		st.Translation = snap.translation
		st.BuildID = snap.buildID
		st.LastBuiltAt = snap.builtAt
	}
	if snap == nil {
		if d, ok := e.embedder.(dimensioned); ok {
			st.Dimension = d.Dimensions()
		}
	}
	if st.State == "" {
		st.State = StateEmpty
	}
	return st
}

// Build schedules a build of translation unless an index is already
// installed, in which case it acknowledges with BuildExists.
func (e *Engine) Build(translation string) (BuildAck, error) {
	return e.startBuild(translation, false)
}

// Rebuild schedules a build even when an index is installed. The installed
// index keeps serving until the new one replaces it.
func (e *Engine) Rebuild(translation string) (BuildAck, error) {
	return e.startBuild(translation, true)
}

func (e *Engine) startBuild(translation string, force bool) (BuildAck, error) {
	translation = strings.ToUpper(strings.TrimSpace(translation))
	if translation == "" {
		translation = e.cfg.DefaultTranslation
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.building {
		return BuildAck{
			Outcome:     BuildInProgress,
			Translation: e.buildingTranslation,
			BuildID:     e.buildingID,
			Message:     "index build already in progress",
		}, ErrBuildAlreadyInProgress
	}
	if snap := e.current.Load(); snap != nil && !force {
		return BuildAck{
			Outcome:     BuildExists,
			Translation: snap.translation,
			BuildID:     snap.buildID,
			Message:     "index already exists",
		}, nil
	}

	id := uuid.NewString()
	e.building = true
	e.buildingTranslation = translation
	e.buildingID = id

	if err := e.scheduler.Submit(func(ctx context.Context) { e.runBuild(ctx, translation, id) }); err != nil {
		e.building = false
		e.buildingTranslation = ""
		e.buildingID = ""
		return BuildAck{}, fmt.Errorf("schedule index build: %w", err)
	}

	logger.Infoj(log.JSON{"message": "index build scheduled", "build_id": id, "translation": translation, "forced": force})
	return BuildAck{
		Outcome:     BuildStarted,
		Translation: translation,
		BuildID:     id,
		Message:     fmt.Sprintf("index build started for %s", translation),
	}, nil
}

func (e *Engine) runBuild(ctx context.Context, translation, id string) {
	start := time.Now()
	if e.cfg.BuildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.BuildTimeout)
		defer cancel()
	}
	ctx, span := tracer.Start(ctx, "engine.build", trace.WithAttributes(
		attribute.String("verselens.build.id", id),
		attribute.String("verselens.build.translation", translation),
	))
	defer span.End()

	var (
		idx *index.Index
		err error
	)
	defer func() {
		if r := recover(); r != nil {
			idx, err = nil, fmt.Errorf("index build panicked: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		e.finishBuild(translation, id, idx, err, time.Since(start))
	}()

	idx, err = e.build(ctx, translation, id)
}

func (e *Engine) build(ctx context.Context, translation, id string) (*index.Index, error) {
	c, err := e.source.Load(ctx, translation)
	if err != nil {
		if !errors.Is(err, corpus.ErrCorpusUnavailable) {
			err = fmt.Errorf("%w: %w", corpus.ErrCorpusUnavailable, err)
		}
		return nil, err
	}

	records, err := verses.Flatten(c)
	if err != nil {
		return nil, err
	}
	trace.SpanFromContext(ctx).AddEvent("corpus flattened", trace.WithAttributes(attribute.Int("verselens.build.verses", len(records))))
	logger.Infoj(log.JSON{"message": "embedding verses", "build_id": id, "translation": translation, "verses": len(records)})

	return index.Build(ctx, records, e.embedder.EmbedVerses, index.BuildOptions{
		BatchSize:   e.cfg.BatchSize,
		Concurrency: e.cfg.Concurrency,
		Progress: func(done, total int) {
			logger.Debugf("build %s: embedded %d/%d verses", id, done, total)
		},
	})
}

// finishBuild installs idx on success. On failure the installed index, if
// any, stays in place.
func (e *Engine) finishBuild(translation, id string, idx *index.Index, err error, took time.Duration) {
	if err == nil {
		e.current.Store(&snapshot{
			index:       idx,
			translation: translation,
			buildID:     id,
			builtAt:     time.Now(),
		})
		indexedVerses.Set(float64(idx.Len()))
	}

	e.mu.Lock()
	e.building = false
	e.buildingTranslation = ""
	e.buildingID = ""
	e.lastErr = err
	e.lastDuration = took
	e.mu.Unlock()

	buildDuration.Observe(took.Seconds())
	if err != nil {
		buildsTotal.WithLabelValues("failed").Inc()
		logger.Errorj(log.JSON{"message": "index build failed", "build_id": id, "translation": translation, "error": err.Error(), "duration": took.String()})
		return
	}
	buildsTotal.WithLabelValues("succeeded").Inc()
	logger.Infoj(log.JSON{"message": "index installed", "build_id": id, "translation": translation, "verses": idx.Len(), "dimension": idx.Dimension(), "duration": took.String()})
}

// Search ranks the installed index against query and returns the k best
// verses. k is clamped to the index size.
func (e *Engine) Search(ctx context.Context, query string, k int) (results []Result, err error) {
	start := time.Now()
	defer func() {
		searchDuration.Observe(time.Since(start).Seconds())
		searchesTotal.WithLabelValues(searchOutcome(err)).Inc()
	}()

	snap := e.current.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	query = strings.TrimSpace(query)
	if n := utf8.RuneCountInString(query); n < e.cfg.MinQueryLength {
		return nil, fmt.Errorf("%w: query must be at least %d characters", ErrInvalidQuery, e.cfg.MinQueryLength)
	}

	ctx, span := tracer.Start(ctx, "engine.search", trace.WithAttributes(
		attribute.Int("verselens.search.k", k),
		attribute.String("verselens.search.build_id", snap.buildID),
	))
	defer span.End()

	embedCtx, cancel := context.WithTimeout(ctx, e.cfg.SearchTimeout)
	defer cancel()
	vec, err := e.embedder.EmbedQuery(embedCtx, query)
	if err != nil {
		span.RecordError(err)
		return nil, &SearchFailedError{Cause: err}
	}

	hits, err := snap.index.Query(vec, k)
	if err != nil {
		span.RecordError(err)
		return nil, &SearchFailedError{Cause: err}
	}

	results = make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			Reference: h.Record.Reference,
			Text:      h.Record.Text,
			Score:     h.Score,
			Rank:      h.Rank,
		}
	}
	return results, nil
}

func searchOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotReady):
		return "not_ready"
	case errors.Is(err, ErrInvalidQuery):
		return "invalid"
	default:
		return "failed"
	}
}
