package index

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/verselens-search-api/internal/verses"
)

const (
	defaultBatchSize   = 32
	defaultConcurrency = 4
)

// EmbedFunc embeds a batch of texts, returning one vector per text in order
type EmbedFunc func(ctx context.Context, texts []string) ([][]float64, error)

// BuildOptions tunes how Build drives the embedding provider
type BuildOptions struct {
	BatchSize   int // texts per EmbedFunc call
	Concurrency int // EmbedFunc calls in flight

	// Progress, if set, is called after each batch with the number of
	// verses embedded so far. It may be called from several goroutines.
	Progress func(done, total int)
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = defaultConcurrency
	}
	return o
}

// Build embeds every record and returns the resulting index. A failure on
// any verse aborts the whole build; no partial index is ever returned.
func Build(ctx context.Context, records []verses.Record, embed EmbedFunc, opts BuildOptions) (*Index, error) {
	if len(records) == 0 {
		return nil, verses.ErrEmptyCorpus
	}
	opts = opts.withDefaults()

	vectors := make([][]float64, len(records))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for start := 0; start < len(records); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(records))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := embedBatch(gctx, records[start:end], embed, vectors[start:end]); err != nil {
				return err
			}
			n := done.Add(int64(end - start))
			if opts.Progress != nil {
				opts.Progress(int(n), len(records))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// A cancelled parent outranks whichever batch noticed it first
		if ctx.Err() != nil && !errors.Is(err, ErrEmbeddingFailed) {
			return nil, fmt.Errorf("build index: %w", ctx.Err())
		}
		return nil, err
	}
	return newIndex(records, vectors)
}

// embedBatch fills out with the embeddings of batch. When a multi-verse batch
// fails, each verse is retried alone so the error names the failing verse.
func embedBatch(ctx context.Context, batch []verses.Record, embed EmbedFunc, out [][]float64) error {
	texts := make([]string, len(batch))
	for i, r := range batch {
		texts[i] = r.Text
	}

	vecs, err := embed(ctx, texts)
	if err == nil && len(vecs) != len(batch) {
		err = fmt.Errorf("provider returned %d vectors for %d texts", len(vecs), len(batch))
	}
	if err == nil {
		for i, v := range vecs {
			if len(v) == 0 {
				return &EmbeddingFailedError{Reference: batch[i].Reference, Cause: errors.New("empty embedding")}
			}
		}
		copy(out, vecs)
		return nil
	}

	if len(batch) == 1 || ctx.Err() != nil {
		return &EmbeddingFailedError{Reference: batch[0].Reference, Cause: err}
	}
	for i := range batch {
		if err := embedBatch(ctx, batch[i:i+1], embed, out[i:i+1]); err != nil {
			return err
		}
	}
	return nil
}
