package hnsw

import (
	"context"
	"iter"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/lexivec/lexivec/model"
)

// BulkOptions contains configuration for BulkInsert.
type BulkOptions struct {
	// NumWorkers is the number of concurrent insert workers. Defaults to
	// GOMAXPROCS.
	NumWorkers int

	// Progress, when set, is called after each successful insert with the
	// number of items inserted so far and the expected total. Total is
	// zero when unknown. Progress may be called from multiple goroutines.
	Progress func(done, total int)

	// Total is the expected number of items, forwarded to Progress.
	Total int

	// SkipErrors continues past per-item insert failures (for example
	// duplicate words in a corpus) instead of aborting the whole bulk
	// operation. Iterator errors still abort.
	SkipErrors bool
}

// BulkInsert inserts all items from the sequence using a pool of
// workers. It returns the number of items inserted and the first error
// encountered, if any. The graph remains usable after a partial insert.
func (g *Graph) BulkInsert(ctx context.Context, items iter.Seq2[model.Item, error], optFns ...func(o *BulkOptions)) (int, error) {
	opts := BulkOptions{
		NumWorkers: runtime.GOMAXPROCS(0),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.NumWorkers < 1 {
		opts.NumWorkers = 1
	}

	grp, ctx := errgroup.WithContext(ctx)

	feed := make(chan model.Item, opts.NumWorkers*2)

	grp.Go(func() error {
		defer close(feed)

		for item, err := range items {
			if err != nil {
				return err
			}
			select {
			case feed <- item:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		return nil
	})

	var done atomic.Int64

	for range opts.NumWorkers {
		grp.Go(func() error {
			for item := range feed {
				if _, err := g.Insert(ctx, item); err != nil {
					if opts.SkipErrors {
						continue
					}
					return err
				}

				n := done.Add(1)
				if opts.Progress != nil {
					opts.Progress(int(n), opts.Total)
				}
			}

			return nil
		})
	}

	err := grp.Wait()

	return int(done.Load()), err
}
