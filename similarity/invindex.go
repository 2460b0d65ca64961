package similarity

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/entitynet/internal/queue"
)

type posting struct {
	doc    uint32
	weight float32
}

// InvertedIndex is an exact sparse dot-product backend. It builds posting
// lists over the index vectors and scores each query term-at-a-time, so only
// candidates sharing at least one dimension with the query are visited.
type InvertedIndex struct {
	opts options
}

// NewInvertedIndex creates an inverted index backend.
func NewInvertedIndex(optFns ...Option) *InvertedIndex {
	o := options{batchSize: 64}
	for _, fn := range optFns {
		fn(&o)
	}
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	return &InvertedIndex{opts: o}
}

// Search implements Backend.
func (b *InvertedIndex) Search(ctx context.Context, index, queries []Vector, k int) ([][]Neighbor, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}

	postings := buildPostings(index)
	results := make([][]Neighbor, len(queries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.workers)

	for start := 0; start < len(queries); start += b.opts.batchSize {
		end := min(start+b.opts.batchSize, len(queries))
		g.Go(func() error {
			s := newScorer(len(index), k)
			for qi := start; qi < end; qi++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				results[qi] = s.search(postings, queries[qi])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func buildPostings(index []Vector) map[uint32][]posting {
	postings := make(map[uint32][]posting)
	for doc, v := range index {
		for i, term := range v.Indices {
			postings[term] = append(postings[term], posting{doc: uint32(doc), weight: v.Values[i]})
		}
	}
	return postings
}

// scorer holds per-worker scratch space.
type scorer struct {
	acc     []float32
	seen    []bool
	touched []uint32
	heap    *queue.TopK
	k       int
	buf     []queue.Item
}

func newScorer(n, k int) *scorer {
	return &scorer{
		acc:  make([]float32, n),
		seen: make([]bool, n),
		heap: queue.NewTopK(k),
		k:    k,
	}
}

func (s *scorer) search(postings map[uint32][]posting, q Vector) []Neighbor {
	for i, term := range q.Indices {
		w := q.Values[i]
		for _, p := range postings[term] {
			if !s.seen[p.doc] {
				s.seen[p.doc] = true
				s.touched = append(s.touched, p.doc)
			}
			s.acc[p.doc] += w * p.weight
		}
	}

	s.heap.Reset(s.k)
	for _, doc := range s.touched {
		s.heap.Push(queue.Item{Index: doc, Score: s.acc[doc]})
		s.acc[doc] = 0
		s.seen[doc] = false
	}
	s.touched = s.touched[:0]

	s.buf = s.heap.Drain(s.buf[:0])
	out := make([]Neighbor, len(s.buf))
	for i, it := range s.buf {
		out[i] = Neighbor{Index: int(it.Index), Score: it.Score}
	}
	return out
}
