package lexivec

import (
	"context"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/lexivec/lexivec/index"
	"github.com/lexivec/lexivec/index/flat"
	"github.com/lexivec/lexivec/index/hnsw"
	"github.com/lexivec/lexivec/vectorstore"
)

// Evaluation is the outcome of comparing an approximate query against
// the exhaustive ground truth for one word.
type Evaluation struct {
	// Word is the query word.
	Word string

	// K is the number of neighbors requested.
	K int

	// Approximate holds the graph's results, the query word excluded.
	Approximate []index.SearchResult

	// Exact holds the linear scan's results, the query word excluded.
	Exact []index.SearchResult

	// Recall is the fraction of exact results also present in the
	// approximate results. 1.0 means the result sets are identical.
	Recall float64

	// ApproxLatency and ExactLatency are the respective query times.
	ApproxLatency time.Duration
	ExactLatency  time.Duration
}

// Summary aggregates evaluations over a batch of query words.
type Summary struct {
	Queries     int
	MeanRecall  float64
	Evaluations []*Evaluation
}

// EvaluatorOptions contains configuration for an Evaluator.
type EvaluatorOptions struct {
	// Logger defaults to a no-op logger.
	Logger *Logger
}

// Evaluator measures approximate search quality by running each query
// against both the graph and an exhaustive scan over the same store.
type Evaluator struct {
	store  *vectorstore.Store
	graph  *hnsw.Graph
	exact  *flat.Flat
	logger *Logger
}

// NewEvaluator creates an Evaluator. The graph and the flat index must
// share the given store.
func NewEvaluator(store *vectorstore.Store, graph *hnsw.Graph, exact *flat.Flat, optFns ...func(o *EvaluatorOptions)) *Evaluator {
	opts := EvaluatorOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = NoopLogger()
	}

	return &Evaluator{
		store:  store,
		graph:  graph,
		exact:  exact,
		logger: opts.Logger,
	}
}

// Evaluate queries both indexes for the k nearest neighbors of an
// indexed word. The word itself is excluded from both result lists, so
// both indexes are asked for k+1 results. Returns ErrNotFound when the
// word is not in the vocabulary.
func (e *Evaluator) Evaluate(ctx context.Context, word string, k int) (*Evaluation, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}

	item, err := e.store.Get(word)
	if err != nil {
		return nil, translateError(err)
	}

	start := time.Now()
	approx, err := e.graph.KNNSearch(ctx, item.Vector, k+1)
	approxLatency := time.Since(start)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	exact, err := e.exact.KNNSearch(ctx, item.Vector, k+1)
	exactLatency := time.Since(start)
	if err != nil {
		return nil, err
	}

	approx = excludeWord(approx, word, k)
	exact = excludeWord(exact, word, k)

	ev := &Evaluation{
		Word:          word,
		K:             k,
		Approximate:   approx,
		Exact:         exact,
		Recall:        recall(approx, exact),
		ApproxLatency: approxLatency,
		ExactLatency:  exactLatency,
	}

	e.logger.LogEvaluation(ctx, ev)

	return ev, nil
}

// Run evaluates a batch of words and aggregates the mean recall.
func (e *Evaluator) Run(ctx context.Context, words []string, k int) (*Summary, error) {
	summary := &Summary{
		Evaluations: make([]*Evaluation, 0, len(words)),
	}

	var total float64
	for _, word := range words {
		ev, err := e.Evaluate(ctx, word, k)
		if err != nil {
			return nil, err
		}

		summary.Queries++
		summary.Evaluations = append(summary.Evaluations, ev)
		total += ev.Recall
	}

	if summary.Queries > 0 {
		summary.MeanRecall = total / float64(summary.Queries)
	}

	return summary, nil
}

// excludeWord removes the query word from results and truncates to k.
func excludeWord(results []index.SearchResult, word string, k int) []index.SearchResult {
	out := results[:0]
	for _, r := range results {
		if r.Word == word {
			continue
		}
		out = append(out, r)
	}
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// recall computes |approx ∩ exact| / |exact| over result IDs.
func recall(approx, exact []index.SearchResult) float64 {
	if len(exact) == 0 {
		return 1
	}

	approxSet := roaring.New()
	for _, r := range approx {
		approxSet.Add(uint32(r.ID))
	}

	exactSet := roaring.New()
	for _, r := range exact {
		exactSet.Add(uint32(r.ID))
	}

	return float64(approxSet.AndCardinality(exactSet)) / float64(exactSet.GetCardinality())
}
