// Package index holds verse embeddings in memory and ranks them against a
// query vector by cosine similarity.
package index

import (
	"math"

	"github.com/verselens-search-api/internal/verses"
)

// Index is an immutable set of verse records and their embeddings.
// records[i] and vectors[i] always describe the same verse.
type Index struct {
	records []verses.Record
	vectors [][]float32
	mags    []float64
	dim     int
}

// newIndex validates vector dimensions and precomputes magnitudes
func newIndex(records []verses.Record, vectors [][]float64) (*Index, error) {
	dim := len(vectors[0])

	idx := &Index{
		records: records,
		vectors: make([][]float32, len(vectors)),
		mags:    make([]float64, len(vectors)),
		dim:     dim,
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, &DimensionMismatchError{Reference: records[i].Reference, Got: len(v), Want: dim}
		}
		vec := make([]float32, dim)
		for j, x := range v {
			vec[j] = float32(x)
		}
		idx.vectors[i] = vec
		idx.mags[i] = magnitude32(vec)
	}
	return idx, nil
}

// Len returns the number of verses in the index
func (x *Index) Len() int { return len(x.records) }

// Dimension returns the embedding length shared by every vector
func (x *Index) Dimension() int { return x.dim }

// cosine returns the cosine similarity of q and v, or 0 when either has no
// magnitude. The result is clamped to [-1, 1].
func cosine(q []float64, qm float64, v []float32, vm float64) float64 {
	if qm == 0 || vm == 0 {
		return 0
	}
	var dot float64
	for i := range v {
		dot += q[i] * float64(v[i])
	}
	s := dot / (qm * vm)
	switch {
	case math.IsNaN(s):
		return 0
	case s > 1:
		return 1
	case s < -1:
		return -1
	}
	return s
}

func magnitude32(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func magnitude64(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}
