// Package similarity answers k-nearest-neighbor queries over sparse vectors.
//
// Scores are similarities: higher means closer. For L2-normalised vectors
// the dot product used by the built-in backends is the cosine similarity.
package similarity

import (
	"context"
	"errors"
)

// ErrInvalidK is returned when k is not positive.
var ErrInvalidK = errors.New("k must be positive")

// Vector is a sparse vector. Indices are strictly increasing.
type Vector struct {
	Indices []uint32
	Values  []float32
}

// Len returns the number of non-zero entries.
func (v Vector) Len() int {
	return len(v.Indices)
}

// Dot returns the dot product of two sparse vectors.
func (v Vector) Dot(o Vector) float32 {
	var sum float32
	i, j := 0, 0
	for i < len(v.Indices) && j < len(o.Indices) {
		switch {
		case v.Indices[i] == o.Indices[j]:
			sum += v.Values[i] * o.Values[j]
			i++
			j++
		case v.Indices[i] < o.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Neighbor is one candidate returned for a query.
type Neighbor struct {
	Index int     // position of the candidate in the index set
	Score float32 // similarity, higher is closer
}

// Backend answers batched k-nearest-neighbor queries.
//
// Search returns, for every query, at most k candidates from index ordered by
// descending score, ties broken by ascending candidate index. Candidates that
// share no non-zero dimension with the query may be omitted.
type Backend interface {
	Search(ctx context.Context, index, queries []Vector, k int) ([][]Neighbor, error)
}

type options struct {
	workers   int
	batchSize int
}

// Option configures a backend.
type Option func(*options)

// WithWorkers bounds the number of goroutines answering queries.
// Values <= 0 select runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithBatchSize sets how many queries one worker task answers.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}
