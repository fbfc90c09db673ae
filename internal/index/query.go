package index

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/verselens-search-api/internal/verses"
)

// Hit is one ranked query result
type Hit struct {
	Position int // index-local identity of the verse
	Record   verses.Record
	Score    float64 // cosine similarity in [-1, 1]
	Rank     int     // 1-based
}

type scored struct {
	pos   int
	score float64
}

// outranks orders by descending score, then ascending corpus position
func (a scored) outranks(b scored) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.pos < b.pos
}

// worstFirst is a min-heap with the lowest-ranked candidate at the root
type worstFirst []scored

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return h[j].outranks(h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *worstFirst) Push(x any)        { *h = append(*h, x.(scored)) }
func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Query ranks every verse against q and returns the k best. k is clamped to
// [1, Len()]. Equal scores keep corpus order.
func (x *Index) Query(q []float64, k int) ([]Hit, error) {
	n := len(x.records)
	if n == 0 {
		return []Hit{}, nil
	}
	if len(q) != x.dim {
		return nil, fmt.Errorf("%w: query has %d components, index has %d", ErrDimensionMismatch, len(q), x.dim)
	}
	k = ClampK(k, n)

	qm := magnitude64(q)
	top := make(worstFirst, 0, k)
	for i, v := range x.vectors {
		c := scored{pos: i, score: cosine(q, qm, v, x.mags[i])}
		if len(top) < k {
			heap.Push(&top, c)
			continue
		}
		if c.outranks(top[0]) {
			top[0] = c
			heap.Fix(&top, 0)
		}
	}

	sort.Slice(top, func(i, j int) bool { return top[i].outranks(top[j]) })

	hits := make([]Hit, len(top))
	for i, c := range top {
		hits[i] = Hit{
			Position: c.pos,
			Record:   x.records[c.pos],
			Score:    c.score,
			Rank:     i + 1,
		}
	}
	return hits, nil
}

// ClampK bounds a requested result count to [1, n]
func ClampK(k, n int) int {
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return k
}
