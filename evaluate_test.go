package lexivec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexivec/lexivec/distance"
	"github.com/lexivec/lexivec/index"
	"github.com/lexivec/lexivec/index/flat"
	"github.com/lexivec/lexivec/index/hnsw"
	"github.com/lexivec/lexivec/model"
	"github.com/lexivec/lexivec/testutil"
	"github.com/lexivec/lexivec/vectorstore"
)

func newTestEvaluator(t *testing.T, items []model.Item) *Evaluator {
	t.Helper()

	store := vectorstore.New()

	seed := int64(1)
	graph, err := hnsw.New(store, func(o *hnsw.Options) {
		o.RandomSeed = &seed
	})
	require.NoError(t, err)

	ctx := context.Background()
	for _, item := range items {
		_, err := graph.Insert(ctx, item)
		require.NoError(t, err)
	}

	exact, err := flat.New(store)
	require.NoError(t, err)

	return NewEvaluator(store, graph, exact)
}

func TestEvaluate(t *testing.T) {
	dogVec, ok := distance.NormalizeL2Copy([]float32{0.9, 0.1})
	require.True(t, ok)

	e := newTestEvaluator(t, []model.Item{
		{Word: "cat", Vector: []float32{1, 0}},
		{Word: "dog", Vector: dogVec},
		{Word: "car", Vector: []float32{0, 1}},
	})

	ev, err := e.Evaluate(context.Background(), "cat", 2)
	require.NoError(t, err)

	assert.Equal(t, "cat", ev.Word)
	assert.Equal(t, 2, ev.K)
	assert.Equal(t, 1.0, ev.Recall)

	require.Len(t, ev.Approximate, 2)
	require.Len(t, ev.Exact, 2)

	// The query word never appears in its own neighbor lists.
	assert.Equal(t, "dog", ev.Approximate[0].Word)
	assert.Equal(t, "car", ev.Approximate[1].Word)
	assert.Equal(t, "dog", ev.Exact[0].Word)
	assert.Equal(t, "car", ev.Exact[1].Word)
}

func TestEvaluateKLargerThanVocabulary(t *testing.T) {
	e := newTestEvaluator(t, []model.Item{
		{Word: "cat", Vector: []float32{1, 0}},
		{Word: "car", Vector: []float32{0, 1}},
	})

	ev, err := e.Evaluate(context.Background(), "cat", 10)
	require.NoError(t, err)

	assert.Len(t, ev.Approximate, 1)
	assert.Len(t, ev.Exact, 1)
	assert.Equal(t, 1.0, ev.Recall)
}

func TestEvaluateErrors(t *testing.T) {
	e := newTestEvaluator(t, []model.Item{
		{Word: "cat", Vector: []float32{1, 0}},
	})

	t.Run("unknown word", func(t *testing.T) {
		_, err := e.Evaluate(context.Background(), "zebra", 2)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("invalid k", func(t *testing.T) {
		_, err := e.Evaluate(context.Background(), "cat", 0)
		assert.ErrorIs(t, err, ErrInvalidK)
	})
}

func TestRun(t *testing.T) {
	rng := testutil.NewRNG(51)
	items := rng.Vocabulary(300, 16)

	e := newTestEvaluator(t, items)

	words := make([]string, 0, 20)
	for _, item := range items[:20] {
		words = append(words, item.Word)
	}

	summary, err := e.Run(context.Background(), words, 10)
	require.NoError(t, err)

	assert.Equal(t, 20, summary.Queries)
	assert.Len(t, summary.Evaluations, 20)
	assert.GreaterOrEqual(t, summary.MeanRecall, 0.9)
	assert.LessOrEqual(t, summary.MeanRecall, 1.0)
}

func TestRunUnknownWordFails(t *testing.T) {
	e := newTestEvaluator(t, []model.Item{
		{Word: "cat", Vector: []float32{1, 0}},
		{Word: "car", Vector: []float32{0, 1}},
	})

	_, err := e.Run(context.Background(), []string{"cat", "zebra"}, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecall(t *testing.T) {
	r := func(ids ...model.RowID) []index.SearchResult {
		out := make([]index.SearchResult, len(ids))
		for i, id := range ids {
			out[i] = index.SearchResult{ID: id}
		}
		return out
	}

	assert.Equal(t, 1.0, recall(r(1, 2, 3), r(1, 2, 3)))
	assert.Equal(t, 0.0, recall(r(4, 5, 6), r(1, 2, 3)))
	assert.InDelta(t, 2.0/3.0, recall(r(1, 2, 9), r(1, 2, 3)), 1e-9)
	assert.Equal(t, 1.0, recall(nil, nil))
}

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))

	err := translateError(&vectorstore.ErrNotFound{Word: "zebra"})
	assert.ErrorIs(t, err, ErrNotFound)

	err = translateError(&vectorstore.ErrDuplicate{Word: "cat"})
	assert.ErrorIs(t, err, ErrDuplicate)
}
