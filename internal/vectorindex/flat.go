// Package vectorindex implements an exact nearest-neighbour index over
// squared Euclidean distance. Vectors are addressed by insertion position;
// callers keep their own position-to-key mapping.
package vectorindex

import (
	"errors"
	"fmt"
	"slices"
)

// Sentinel errors for index operations.
var (
	ErrDimensionMismatch = errors.New("vectorindex: dimension mismatch")
	ErrInvalidDimension  = errors.New("vectorindex: dimension must be positive")
)

// Hit is one search result: the position of the stored vector and its
// squared L2 distance to the query.
type Hit struct {
	Pos      int
	Distance float32
}

// Flat is a brute-force index. Vectors are stored row-major in a single
// slice. Flat is not safe for concurrent mutation; readers may share it
// once it is no longer written to.
type Flat struct {
	dim  int
	data []float32
}

// New returns an empty index for vectors of length dim.
func New(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, ErrInvalidDimension
	}
	return &Flat{dim: dim}, nil
}

// Build returns an index holding vectors in the given order.
func Build(dim int, vectors [][]float32) (*Flat, error) {
	f, err := New(dim)
	if err != nil {
		return nil, err
	}
	f.data = make([]float32, 0, dim*len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d components, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
		f.data = append(f.data, v...)
	}
	return f, nil
}

// Dim returns the vector length accepted by the index.
func (f *Flat) Dim() int { return f.dim }

// Len returns the number of stored vectors.
func (f *Flat) Len() int { return len(f.data) / f.dim }

// Add appends vec at position Len().
func (f *Flat) Add(vec []float32) error {
	if len(vec) != f.dim {
		return fmt.Errorf("%w: got %d components, want %d", ErrDimensionMismatch, len(vec), f.dim)
	}
	f.data = append(f.data, vec...)
	return nil
}

// Search returns the k nearest stored vectors ordered by ascending
// distance. Equal distances keep insertion order. k larger than Len()
// returns every vector; k <= 0 returns nothing.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	return f.SearchFunc(query, k, nil)
}

// SearchFunc is Search restricted to positions accepted by keep. A nil
// keep accepts every position.
func (f *Flat) SearchFunc(query []float32, k int, keep func(pos int) bool) ([]Hit, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has %d components, want %d", ErrDimensionMismatch, len(query), f.dim)
	}
	n := f.Len()
	if k <= 0 || n == 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, n)
	for pos := range n {
		if keep != nil && !keep(pos) {
			continue
		}
		row := f.data[pos*f.dim : (pos+1)*f.dim]
		hits = append(hits, Hit{Pos: pos, Distance: SquaredL2(query, row)})
	}

	slices.SortStableFunc(hits, func(a, b Hit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// SquaredL2 returns the squared Euclidean distance between a and b, which
// must have equal length.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Similarity maps a squared distance onto (0, 1]; identical vectors score 1.
func Similarity(distance float32) float64 {
	return 1 / (1 + float64(distance))
}
