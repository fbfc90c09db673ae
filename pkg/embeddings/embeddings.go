package embeddings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

var logger = log.New("embeddings")

var (
	embedRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verselens_embedding_requests_total",
			Help: "Embedding provider calls by task and outcome",
		},
		[]string{"task", "outcome"},
	)
	queryCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "verselens_query_cache_hits_total",
			Help: "Query embeddings served from the cache",
		},
	)
)

func init() {
	prometheus.MustRegister(embedRequests, queryCacheHits)
}

// ServiceConfig tunes the resilience wrappers around an Embedder
type ServiceConfig struct {
	QueryCacheSize       int     // 0 disables the query cache
	RateLimit            float64 // document batches per second, 0 is unlimited
	MaxRetries           int
	RetryInitialInterval time.Duration
	BreakerTimeout       time.Duration // how long the breaker stays open
}

// EmbeddingsService handles text embedding operations using a pluggable
// backend. Query embeddings are cached; document batches are rate limited
// and retried. Both go through one circuit breaker.
type EmbeddingsService struct {
	embedder Embedder
	cfg      ServiceConfig
	cache    *lru.Cache[string, []float64]
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
}

// NewEmbeddingsService wraps embedder
func NewEmbeddingsService(embedder Embedder, cfg ServiceConfig) (*EmbeddingsService, error) {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = 500 * time.Millisecond
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	s := &EmbeddingsService{
		embedder: embedder,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Inf, 1),
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(1, int(cfg.RateLimit)))
	}
	if cfg.QueryCacheSize > 0 {
		cache, err := lru.New[string, []float64](cfg.QueryCacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create query cache: %w", err)
		}
		s.cache = cache
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embeddings",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warnf("Circuit breaker %s state change: %s -> %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return s, nil
}

// Close releases the backend if it holds resources
func (s *EmbeddingsService) Close() error {
	if c, ok := s.embedder.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// EmbedQuery embeds a query for retrieval. Repeated queries are served from
// the cache.
func (s *EmbeddingsService) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(query); ok {
			queryCacheHits.Inc()
			return append([]float64(nil), v...), nil
		}
	}

	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.embedder.Embed(ctx, query, TaskTypeQuery)
	})
	embedRequests.WithLabelValues("query", outcome(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	v := out.([]float64)
	if len(v) == 0 {
		return nil, fmt.Errorf("embed query: empty embedding")
	}
	if s.cache != nil {
		s.cache.Add(query, append([]float64(nil), v...))
	}
	return v, nil
}

// Dimensions returns the backend's output size, or 0 when it is only known
// after the first embedding
func (s *EmbeddingsService) Dimensions() int {
	if d, ok := s.embedder.(interface{ Dimensions() int }); ok {
		return d.Dimensions()
	}
	return 0
}

// EmbedVerses embeds a batch of verses as documents, one vector per text in
// order. Transient failures are retried with exponential backoff.
func (s *EmbeddingsService) EmbedVerses(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embed verses: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.RetryInitialInterval
	b.MaxElapsedTime = 0

	attempt := 0
	vecs, err := backoff.RetryWithData(func() ([][]float64, error) {
		attempt++
		out, err := s.breaker.Execute(func() (interface{}, error) {
			return s.embedder.EmbedBatch(ctx, texts, TaskTypeDocument)
		})
		embedRequests.WithLabelValues("document", outcome(err)).Inc()
		if err != nil {
			if !retryable(ctx, err) {
				return nil, backoff.Permanent(err)
			}
			logger.Warnf("Embedding batch of %d failed (attempt %d): %v", len(texts), attempt, err)
			return nil, err
		}

		vecs := out.([][]float64)
		if len(vecs) != len(texts) {
			return nil, backoff.Permanent(fmt.Errorf("provider returned %d embeddings for %d texts", len(vecs), len(texts)))
		}
		return vecs, nil
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.cfg.MaxRetries)), ctx))
	if err != nil {
		return nil, fmt.Errorf("embed verses: %w", err)
	}
	return vecs, nil
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return true
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "rejected"
	default:
		return "error"
	}
}
