package searcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityQueueMinHeap(t *testing.T) {
	pq := NewPriorityQueue(false)

	pq.PushItem(PriorityQueueItem{Node: 1, Distance: 0.5})
	pq.PushItem(PriorityQueueItem{Node: 2, Distance: 0.1})
	pq.PushItem(PriorityQueueItem{Node: 3, Distance: 0.9})

	top, ok := pq.TopItem()
	require.True(t, ok)
	assert.Equal(t, PriorityQueueItem{Node: 2, Distance: 0.1}, top)

	item, ok := pq.PopItem()
	require.True(t, ok)
	assert.EqualValues(t, 2, item.Node)
	item, _ = pq.PopItem()
	assert.EqualValues(t, 1, item.Node)
	item, _ = pq.PopItem()
	assert.EqualValues(t, 3, item.Node)

	_, ok = pq.PopItem()
	assert.False(t, ok)
}

func TestPriorityQueueMaxHeap(t *testing.T) {
	pq := NewPriorityQueue(true)

	pq.PushItem(PriorityQueueItem{Node: 1, Distance: 0.5})
	pq.PushItem(PriorityQueueItem{Node: 2, Distance: 0.1})
	pq.PushItem(PriorityQueueItem{Node: 3, Distance: 0.9})

	top, ok := pq.TopItem()
	require.True(t, ok)
	assert.EqualValues(t, 3, top.Node)

	minItem, ok := pq.MinItem()
	require.True(t, ok)
	assert.EqualValues(t, 2, minItem.Node)
}

func TestPriorityQueuePushItemBounded(t *testing.T) {
	pq := NewPriorityQueue(true)

	pq.PushItemBounded(PriorityQueueItem{Node: 1, Distance: 0.5}, 2)
	pq.PushItemBounded(PriorityQueueItem{Node: 2, Distance: 0.1}, 2)
	// Full: worse than current worst, skipped.
	pq.PushItemBounded(PriorityQueueItem{Node: 3, Distance: 0.9}, 2)
	assert.Equal(t, 2, pq.Len())
	top, _ := pq.TopItem()
	assert.EqualValues(t, 1, top.Node)

	// Full: better than current worst, evicts it.
	pq.PushItemBounded(PriorityQueueItem{Node: 4, Distance: 0.2}, 2)
	assert.Equal(t, 2, pq.Len())
	top, _ = pq.TopItem()
	assert.EqualValues(t, 4, top.Node)
}

func TestPriorityQueueReset(t *testing.T) {
	pq := NewPriorityQueue(false)
	pq.PushItem(PriorityQueueItem{Node: 1, Distance: 0.5})
	pq.Reset()
	assert.Equal(t, 0, pq.Len())
}
