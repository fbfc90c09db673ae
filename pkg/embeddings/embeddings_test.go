package embeddings

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedEmbedder returns queued errors before falling back to hashing
type scriptedEmbedder struct {
	mu         sync.Mutex
	errs       []error
	short      bool
	queryCalls int
	batchCalls int
	tasks      []TaskType
	hashing    *HashingEmbedder
	closed     bool
}

func newScripted(errs ...error) *scriptedEmbedder {
	return &scriptedEmbedder{errs: errs, hashing: NewHashingEmbedder(16)}
}

func (s *scriptedEmbedder) next() error {
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func (s *scriptedEmbedder) Embed(ctx context.Context, text string, taskType TaskType) ([]float64, error) {
	s.mu.Lock()
	s.queryCalls++
	s.tasks = append(s.tasks, taskType)
	err := s.next()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.hashing.Embed(ctx, text, taskType)
}

func (s *scriptedEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType TaskType) ([][]float64, error) {
	s.mu.Lock()
	s.batchCalls++
	s.tasks = append(s.tasks, taskType)
	err, short := s.next(), s.short
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if short {
		texts = texts[1:]
	}
	return s.hashing.EmbedBatch(ctx, texts, taskType)
}

func (s *scriptedEmbedder) Close() error {
	s.closed = true
	return nil
}

func newService(t *testing.T, e Embedder, cfg ServiceConfig) *EmbeddingsService {
	t.Helper()
	if cfg.RetryInitialInterval == 0 {
		cfg.RetryInitialInterval = time.Millisecond
	}
	s, err := NewEmbeddingsService(e, cfg)
	require.NoError(t, err)
	return s
}

func TestEmbedQuery_UsesCache(t *testing.T) {
	e := newScripted()
	s := newService(t, e, ServiceConfig{QueryCacheSize: 4})

	first, err := s.EmbedQuery(context.Background(), "love your enemies")
	require.NoError(t, err)
	first[0] = 42 // callers own the returned slice

	second, err := s.EmbedQuery(context.Background(), "love your enemies")
	require.NoError(t, err)
	assert.NotEqual(t, 42.0, second[0])
	assert.Equal(t, 1, e.queryCalls)
	assert.Equal(t, []TaskType{TaskTypeQuery}, e.tasks)
}

func TestEmbedQuery_NoCache(t *testing.T) {
	e := newScripted()
	s := newService(t, e, ServiceConfig{})

	for i := 0; i < 3; i++ {
		_, err := s.EmbedQuery(context.Background(), "grace")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, e.queryCalls)
}

func TestEmbedQuery_ErrorNotCached(t *testing.T) {
	cause := errors.New("backend down")
	e := newScripted(cause)
	s := newService(t, e, ServiceConfig{QueryCacheSize: 4})

	_, err := s.EmbedQuery(context.Background(), "peace")
	assert.ErrorIs(t, err, cause)

	_, err = s.EmbedQuery(context.Background(), "peace")
	require.NoError(t, err)
	assert.Equal(t, 2, e.queryCalls)
}

func TestEmbedVerses_RetriesTransientErrors(t *testing.T) {
	e := newScripted(errors.New("connection reset"), &StatusError{StatusCode: http.StatusServiceUnavailable})
	s := newService(t, e, ServiceConfig{MaxRetries: 3})

	vecs, err := s.EmbedVerses(context.Background(), []string{"Jesus wept", "God is love"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, 3, e.batchCalls)
	assert.Equal(t, TaskTypeDocument, e.tasks[0])
}

func TestEmbedVerses_GivesUpAfterMaxRetries(t *testing.T) {
	cause := errors.New("timeout")
	e := newScripted(cause, cause, cause)
	s := newService(t, e, ServiceConfig{MaxRetries: 1})

	_, err := s.EmbedVerses(context.Background(), []string{"Jesus wept"})
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 2, e.batchCalls)
}

func TestEmbedVerses_ClientErrorsAreNotRetried(t *testing.T) {
	e := newScripted(&StatusError{StatusCode: http.StatusBadRequest, Body: "text too long"})
	s := newService(t, e, ServiceConfig{MaxRetries: 5})

	_, err := s.EmbedVerses(context.Background(), []string{"Jesus wept"})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 1, e.batchCalls)
}

func TestEmbedVerses_CountMismatch(t *testing.T) {
	e := newScripted()
	e.short = true
	s := newService(t, e, ServiceConfig{MaxRetries: 5})

	_, err := s.EmbedVerses(context.Background(), []string{"a b", "c d"})
	assert.ErrorContains(t, err, "1 embeddings for 2 texts")
	assert.Equal(t, 1, e.batchCalls)
}

func TestEmbedVerses_Empty(t *testing.T) {
	e := newScripted()
	s := newService(t, e, ServiceConfig{})

	vecs, err := s.EmbedVerses(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
	assert.Zero(t, e.batchCalls)
}

func TestEmbedVerses_CancelledWhileRateLimited(t *testing.T) {
	e := newScripted()
	s := newService(t, e, ServiceConfig{RateLimit: 0.001})

	_, err := s.EmbedVerses(context.Background(), []string{"first"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = s.EmbedVerses(ctx, []string{"second"})
	assert.Error(t, err)
	assert.Equal(t, 1, e.batchCalls)
}

func TestDimensions(t *testing.T) {
	s := newService(t, NewHashingEmbedder(96), ServiceConfig{})
	assert.Equal(t, 96, s.Dimensions())

	s = newService(t, newScripted(), ServiceConfig{})
	assert.Zero(t, s.Dimensions())
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	cause := errors.New("backend down")
	e := newScripted(cause, cause, cause, cause, cause)
	s := newService(t, e, ServiceConfig{BreakerTimeout: time.Hour})

	for i := 0; i < 5; i++ {
		_, err := s.EmbedQuery(context.Background(), "hope")
		assert.ErrorIs(t, err, cause)
	}

	_, err := s.EmbedQuery(context.Background(), "hope")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, e.queryCalls)

	_, err = s.EmbedVerses(context.Background(), []string{"hope"})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Zero(t, e.batchCalls)
}

func TestCancelledCallsDoNotTripBreaker(t *testing.T) {
	errs := make([]error, 10)
	for i := range errs {
		errs[i] = context.Canceled
	}
	e := newScripted(errs...)
	s := newService(t, e, ServiceConfig{BreakerTimeout: time.Hour})

	for i := 0; i < 10; i++ {
		_, err := s.EmbedQuery(context.Background(), "faith")
		assert.ErrorIs(t, err, context.Canceled)
	}
	_, err := s.EmbedQuery(context.Background(), "faith")
	assert.NoError(t, err)
}

func TestClose(t *testing.T) {
	e := newScripted()
	s := newService(t, e, ServiceConfig{})
	require.NoError(t, s.Close())
	assert.True(t, e.closed)

	assert.NoError(t, newService(t, NewHashingEmbedder(8), ServiceConfig{}).Close())
}
