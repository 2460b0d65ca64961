package similarity

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/entitynet/internal/queue"
)

// BruteForce scores every query against every index vector. It is meant for
// small inputs and as a reference for other backends.
type BruteForce struct {
	opts options
}

// NewBruteForce creates a brute force backend.
func NewBruteForce(optFns ...Option) *BruteForce {
	o := options{batchSize: 16}
	for _, fn := range optFns {
		fn(&o)
	}
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	return &BruteForce{opts: o}
}

// Search implements Backend. Candidates with a zero score are omitted.
func (b *BruteForce) Search(ctx context.Context, index, queries []Vector, k int) ([][]Neighbor, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}

	results := make([][]Neighbor, len(queries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.workers)

	for start := 0; start < len(queries); start += b.opts.batchSize {
		end := min(start+b.opts.batchSize, len(queries))
		g.Go(func() error {
			h := queue.NewTopK(k)
			var buf []queue.Item
			for qi := start; qi < end; qi++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				h.Reset(k)
				for doc, v := range index {
					if score := queries[qi].Dot(v); score != 0 {
						h.Push(queue.Item{Index: uint32(doc), Score: score})
					}
				}
				buf = h.Drain(buf[:0])
				out := make([]Neighbor, len(buf))
				for i, it := range buf {
					out[i] = Neighbor{Index: int(it.Index), Score: it.Score}
				}
				results[qi] = out
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
