package hnsw

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexivec/lexivec/model"
	"github.com/lexivec/lexivec/testutil"
)

func itemSeq(items []model.Item) iter.Seq2[model.Item, error] {
	return func(yield func(model.Item, error) bool) {
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}

func TestBulkInsert(t *testing.T) {
	g := newTestGraph(t, seeded(31))
	ctx := context.Background()

	rng := testutil.NewRNG(31)
	items := rng.Vocabulary(200, 8)

	var progressCalls atomic.Int64
	var last atomic.Int64

	n, err := g.BulkInsert(ctx, itemSeq(items), func(o *BulkOptions) {
		o.NumWorkers = 4
		o.Total = len(items)
		o.Progress = func(done, total int) {
			progressCalls.Add(1)
			last.Store(int64(done))
			assert.Equal(t, len(items), total)
		}
	})
	require.NoError(t, err)
	assert.Equal(t, len(items), n)
	assert.Equal(t, len(items), g.Len())
	assert.Equal(t, int64(len(items)), progressCalls.Load())
	assert.Equal(t, int64(len(items)), last.Load())

	// Every inserted word must be findable.
	for _, item := range items[:10] {
		results, err := g.KNNSearch(ctx, item.Vector, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, item.Word, results[0].Word)
	}
}

func TestBulkInsertSkipErrors(t *testing.T) {
	g := newTestGraph(t, seeded(37))
	ctx := context.Background()

	rng := testutil.NewRNG(37)
	items := rng.Vocabulary(50, 8)
	// Duplicate every word once.
	items = append(items, items...)

	n, err := g.BulkInsert(ctx, itemSeq(items), func(o *BulkOptions) {
		o.NumWorkers = 4
		o.SkipErrors = true
	})
	require.NoError(t, err)
	assert.Equal(t, 50, n)
	assert.Equal(t, 50, g.Len())
}

func TestBulkInsertAbortsOnError(t *testing.T) {
	g := newTestGraph(t, seeded(41))
	ctx := context.Background()

	rng := testutil.NewRNG(41)
	items := rng.Vocabulary(20, 8)
	items = append(items, model.Item{Word: items[0].Word, Vector: items[0].Vector})

	_, err := g.BulkInsert(ctx, itemSeq(items), func(o *BulkOptions) {
		o.NumWorkers = 1
	})
	require.Error(t, err)
}

func TestBulkInsertIteratorError(t *testing.T) {
	g := newTestGraph(t, seeded(43))
	ctx := context.Background()

	boom := errors.New("corpus read failed")
	seq := func(yield func(model.Item, error) bool) {
		if !yield(model.Item{Word: "ok", Vector: []float32{1, 0}}, nil) {
			return
		}
		yield(model.Item{}, boom)
	}

	_, err := g.BulkInsert(ctx, seq, func(o *BulkOptions) {
		o.NumWorkers = 2
		o.SkipErrors = true
	})
	assert.ErrorIs(t, err, boom)
}
