package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/labstack/gommon/log"

	"github.com/verselens-search-api/internal/corpus"
	"github.com/verselens-search-api/internal/engine"
	"github.com/verselens-search-api/internal/models"
)

var logger = log.New("services")

// ErrUnknownTranslation is returned when a build names a translation the
// corpus source does not list
var ErrUnknownTranslation = corpus.ErrUnknownTranslation

// SearchEngine is the index engine surface the service drives
type SearchEngine interface {
	Status() engine.Status
	Build(translation string) (engine.BuildAck, error)
	Rebuild(translation string) (engine.BuildAck, error)
	Search(ctx context.Context, query string, k int) ([]engine.Result, error)
}

// VerseSearchService adapts the index engine and corpus source to the API models
type VerseSearchService struct {
	engine   SearchEngine
	source   corpus.Source
	defaultK int
	maxK     int
}

// NewVerseSearchService creates a new verse search service. maxK <= 0 leaves
// k bounded only by the index size.
func NewVerseSearchService(eng SearchEngine, source corpus.Source, defaultK, maxK int) *VerseSearchService {
	if defaultK <= 0 {
		defaultK = 8
	}
	return &VerseSearchService{
		engine:   eng,
		source:   source,
		defaultK: defaultK,
		maxK:     maxK,
	}
}

// Search embeds a query and ranks it against the installed index
func (s *VerseSearchService) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
	k := s.defaultK
	if req.K != nil {
		k = *req.K
	}
	if s.maxK > 0 && k > s.maxK {
		k = s.maxK
	}

	results, err := s.engine.Search(ctx, req.Query, k)
	if err != nil {
		return nil, err
	}

	out := make([]models.VerseResult, len(results))
	for i, r := range results {
		out[i] = models.VerseResult{
			Reference: r.Reference.String(),
			Book:      r.Book,
			Chapter:   r.Chapter,
			Verse:     r.Verse,
			Text:      r.Text,
			Score:     r.Score,
			Rank:      r.Rank,
		}
	}
	return &models.SearchResponse{
		Query:   req.Query,
		Results: out,
		Total:   len(out),
	}, nil
}

// Status reports the engine state
func (s *VerseSearchService) Status() models.StatusResponse {
	st := s.engine.Status()
	resp := models.StatusResponse{
		State:               string(st.State),
		Ready:               st.VerseCount > 0,
		VerseCount:          st.VerseCount,
		Dimension:           st.Dimension,
		Translation:         st.Translation,
		BuildID:             st.BuildID,
		BuildingTranslation: st.BuildingTranslation,
		LastError:           st.LastError,
		LastBuildSeconds:    st.LastBuildDuration.Seconds(),
	}
	if !st.LastBuiltAt.IsZero() {
		builtAt := st.LastBuiltAt.UTC()
		resp.LastBuiltAt = &builtAt
	}
	return resp
}

// BuildIndex requests a background build of translation. With force set an
// installed index is replaced. engine.ErrBuildAlreadyInProgress is returned
// together with a filled response.
func (s *VerseSearchService) BuildIndex(ctx context.Context, translation string, force bool) (models.BuildResponse, error) {
	translation = strings.ToUpper(strings.TrimSpace(translation))
	if translation != "" && s.willBuild(force) {
		if err := s.checkTranslation(ctx, translation); err != nil {
			return models.BuildResponse{}, err
		}
	}

	build := s.engine.Build
	if force {
		build = s.engine.Rebuild
	}
	ack, err := build(translation)
	if err != nil && !errors.Is(err, engine.ErrBuildAlreadyInProgress) {
		return models.BuildResponse{}, err
	}
	return models.BuildResponse{
		Message:     ack.Message,
		Status:      string(ack.Outcome),
		Translation: ack.Translation,
		BuildID:     ack.BuildID,
	}, err
}

// willBuild reports whether a build request would start a build rather than
// be answered from the engine state alone
func (s *VerseSearchService) willBuild(force bool) bool {
	switch s.engine.Status().State {
	case engine.StateBuilding:
		return false
	case engine.StateReady:
		return force
	default:
		return true
	}
}

// checkTranslation rejects translations the source does not list. A source
// that cannot list its translations is not treated as a rejection.
func (s *VerseSearchService) checkTranslation(ctx context.Context, translation string) error {
	available, err := s.source.Translations(ctx)
	if err != nil {
		logger.Warnf("Could not list translations, building %s unchecked: %v", translation, err)
		return nil
	}
	if !slices.Contains(available, translation) {
		return fmt.Errorf("%w: %s", ErrUnknownTranslation, translation)
	}
	return nil
}

// Translations lists the translations the source offers and those cached locally
func (s *VerseSearchService) Translations(ctx context.Context) (*models.TranslationsResponse, error) {
	available, err := s.source.Translations(ctx)
	if err != nil {
		return nil, err
	}

	cached := []string{}
	if lister, ok := s.source.(corpus.CacheLister); ok {
		names, err := lister.CachedTranslations()
		if err != nil {
			logger.Warnf("Failed to list cached translations: %v", err)
		} else if names != nil {
			cached = names
		}
	}
	if available == nil {
		available = []string{}
	}
	return &models.TranslationsResponse{Available: available, Cached: cached, Total: len(available)}, nil
}
