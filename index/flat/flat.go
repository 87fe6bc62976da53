// Package flat provides an exhaustive (brute-force) k-NN index.
//
// The flat index owns no vector data: it scans the shared vector store,
// so exact and approximate search always observe the same items. It is
// O(N*D) per query and serves as ground truth for recall evaluation,
// never as the serving path.
package flat

import (
	"context"

	"github.com/lexivec/lexivec/distance"
	"github.com/lexivec/lexivec/index"
	"github.com/lexivec/lexivec/model"
	"github.com/lexivec/lexivec/vectorstore"
)

// Options represents the options for configuring a Flat index.
type Options struct {
	// Metric selects the distance function. Must match the metric of any
	// index this one is compared against.
	Metric distance.Metric
}

// DefaultOptions contains the default options for a Flat index.
var DefaultOptions = Options{
	Metric: distance.MetricInnerProduct,
}

// Flat is an exhaustive linear-scan index over a shared vector store.
type Flat struct {
	vectors      *vectorstore.Store
	distanceFunc distance.Func
	opts         Options
}

// Name returns the name of the index.
func (*Flat) Name() string { return "Flat" }

// New creates a new Flat index over the given store.
func New(vectors *vectorstore.Store, optFns ...func(o *Options)) (*Flat, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	distanceFunc, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}

	return &Flat{
		vectors:      vectors,
		distanceFunc: distanceFunc,
		opts:         opts,
	}, nil
}

// Len returns the number of searchable items.
func (f *Flat) Len() int {
	return f.vectors.Len()
}

// KNNSearch returns the k nearest stored items to q by exhaustive scan,
// ordered by ascending distance with ties broken by ascending word.
func (f *Flat) KNNSearch(ctx context.Context, q []float32, k int) ([]index.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, index.ErrInvalidK
	}
	if f.vectors.Len() == 0 {
		return nil, index.ErrEmptyIndex
	}
	if dim := f.vectors.Dimension(); len(q) != dim {
		return nil, &vectorstore.ErrDimensionMismatch{Expected: dim, Actual: len(q)}
	}

	// Bounded max-heap: the worst kept result sits on top for cheap
	// eviction. The heap orders by the full (distance, word) rule so
	// exact ties at the k boundary resolve deterministically.
	h := resultHeap{items: make([]index.SearchResult, 0, k)}

	f.vectors.Range(func(id model.RowID, vector []float32) bool {
		d := f.distanceFunc(q, vector)
		if h.len() == k && d > h.top().Distance {
			// Strictly worse than the worst kept result; skip the word
			// lookup entirely. Ties still go through pushBounded so the
			// word tie-break decides.
			return true
		}
		word, _ := f.vectors.Word(id)
		h.pushBounded(index.SearchResult{ID: id, Word: word, Distance: d}, k)
		return true
	})

	res := make([]index.SearchResult, h.len())
	for i := h.len() - 1; i >= 0; i-- {
		res[i] = h.pop()
	}

	return res, nil
}

// worse reports whether candidate (d, word) ranks after r.
func worse(d float32, word string, r index.SearchResult) bool {
	if d != r.Distance {
		return d > r.Distance
	}
	return word > r.Word
}

// resultHeap is a max-heap over (distance, word): the worst kept result
// is on top.
type resultHeap struct {
	items []index.SearchResult
}

func (h *resultHeap) len() int { return len(h.items) }

func (h *resultHeap) top() index.SearchResult { return h.items[0] }

func (h *resultHeap) pushBounded(r index.SearchResult, capacity int) {
	if len(h.items) < capacity {
		h.items = append(h.items, r)
		h.siftUp(len(h.items) - 1)
		return
	}
	if worse(r.Distance, r.Word, h.items[0]) {
		return
	}
	h.items[0] = r
	h.siftDown(0)
}

func (h *resultHeap) pop() index.SearchResult {
	n := len(h.items)
	r := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return r
}

func (h *resultHeap) less(i, j int) bool {
	// Max-heap: the result that ranks later sorts first.
	return worse(h.items[i].Distance, h.items[i].Word, h.items[j])
}

func (h *resultHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *resultHeap) siftDown(i int) {
	n := len(h.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		child := left
		if right := left + 1; right < n && h.less(right, left) {
			child = right
		}
		if !h.less(child, i) {
			break
		}
		h.items[i], h.items[child] = h.items[child], h.items[i]
		i = child
	}
}
