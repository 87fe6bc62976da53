package hnsw

import (
	"sync"
	"sync/atomic"

	"github.com/lexivec/lexivec/model"
)

const (
	// nodeSegmentSize is the size of each node segment (65536).
	// Using segments avoids copying the entire node array during growth.
	nodeSegmentBits = 16
	nodeSegmentSize = 1 << nodeSegmentBits
	nodeSegmentMask = nodeSegmentSize - 1
)

// nodeSegment is a fixed-size array of node pointers.
type nodeSegment [nodeSegmentSize]atomic.Pointer[node]

// node is one graph vertex. The level is immutable after creation;
// neighbor lists are guarded by the graph's sharded locks.
type node struct {
	id    model.RowID
	level int
	// neighbors[layer] is the bounded, unordered adjacency list for each
	// layer in [0, level].
	neighbors [][]model.RowID
}

func newNode(id model.RowID, level, maxConns, maxConns0 int) *node {
	n := &node{
		id:        id,
		level:     level,
		neighbors: make([][]model.RowID, level+1),
	}
	n.neighbors[0] = make([]model.RowID, 0, maxConns0)
	for l := 1; l <= level; l++ {
		n.neighbors[l] = make([]model.RowID, 0, maxConns)
	}
	return n
}

// nodes is a growable, concurrently readable collection of graph nodes
// addressed by RowID.
type nodes struct {
	segments atomic.Pointer[[]*nodeSegment]
	growMu   sync.Mutex
}

// get returns the node for id, or nil if not (yet) published.
func (ns *nodes) get(id model.RowID) *node {
	segments := ns.segments.Load()
	if segments == nil {
		return nil
	}
	segmentIdx := int(id >> nodeSegmentBits)
	if segmentIdx >= len(*segments) {
		return nil
	}
	segment := (*segments)[segmentIdx]
	if segment == nil {
		return nil
	}
	return segment[id&nodeSegmentMask].Load()
}

// set publishes the node for id, growing segment storage as needed.
func (ns *nodes) set(id model.RowID, n *node) {
	ns.grow(id)
	segments := ns.segments.Load()
	(*segments)[id>>nodeSegmentBits][id&nodeSegmentMask].Store(n)
}

// grow ensures capacity for id.
func (ns *nodes) grow(id model.RowID) {
	segmentIdx := int(id >> nodeSegmentBits)

	// Fast path: segment exists.
	segments := ns.segments.Load()
	if segments != nil && segmentIdx < len(*segments) && (*segments)[segmentIdx] != nil {
		return
	}

	ns.growMu.Lock()
	defer ns.growMu.Unlock()

	// Reload under lock.
	segments = ns.segments.Load()
	var current []*nodeSegment
	if segments != nil {
		current = *segments
	}
	if segmentIdx < len(current) && current[segmentIdx] != nil {
		return
	}

	grown := make([]*nodeSegment, segmentIdx+1)
	copy(grown, current)
	for i := range grown {
		if grown[i] == nil {
			grown[i] = new(nodeSegment)
		}
	}
	ns.segments.Store(&grown)
}

// forEach calls fn for every published node, stopping early if fn
// returns false.
func (ns *nodes) forEach(fn func(*node) bool) {
	segments := ns.segments.Load()
	if segments == nil {
		return
	}
	for _, segment := range *segments {
		if segment == nil {
			continue
		}
		for i := range segment {
			n := segment[i].Load()
			if n == nil {
				continue
			}
			if !fn(n) {
				return
			}
		}
	}
}
