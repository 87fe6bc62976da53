// Package hnsw provides a Hierarchical Navigable Small World graph for
// approximate nearest neighbor search over a shared vector store.
package hnsw

import (
	"context"
	"math"
	"math/rand"
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/lexivec/lexivec/distance"
	"github.com/lexivec/lexivec/index"
	"github.com/lexivec/lexivec/internal/searcher"
	"github.com/lexivec/lexivec/model"
	"github.com/lexivec/lexivec/vectorstore"
)

const (
	// DefaultM is the default number of bidirectional links created for
	// each node on layers above the base layer.
	DefaultM = 16

	// DefaultEF is the default size of the dynamic candidate list during
	// search.
	DefaultEF = 200

	// DefaultEFConstruction is the default size of the dynamic candidate
	// list during index construction.
	DefaultEFConstruction = 200

	// numLockShards is the number of lock shards guarding neighbor lists.
	numLockShards = 128
)

// Options contains configuration for the graph.
type Options struct {
	// M is the maximum number of connections per node on layers above the
	// base layer. The base layer allows 2*M connections.
	M int

	// EF is the default size of the dynamic candidate list during search.
	// Raised to k per query when smaller.
	EF int

	// EFConstruction is the size of the dynamic candidate list during
	// insertion.
	EFConstruction int

	// Metric is the distance metric used to compare vectors.
	Metric distance.Metric

	// RandomSeed seeds the level generator. When nil, a fixed default
	// seed is used so that builds are reproducible.
	RandomSeed *int64
}

// DefaultOptions are the graph's default options.
var DefaultOptions = Options{
	M:              DefaultM,
	EF:             DefaultEF,
	EFConstruction: DefaultEFConstruction,
	Metric:         distance.MetricInnerProduct,
}

// SearchOptions contains per-query overrides.
type SearchOptions struct {
	// EF overrides the graph's candidate list size for this query. Must
	// be at least k when set.
	EF int
}

// Graph is a navigable small world graph with hierarchical layers. It is
// safe for concurrent use.
type Graph struct {
	vectors      *vectorstore.Store
	distanceFunc distance.Func

	nodes nodes

	// entryPoint packs (level+1)<<32 | id. Zero means the graph is empty.
	entryPoint atomic.Uint64

	// shardedLocks guard neighbor lists, keyed by id % numLockShards.
	shardedLocks []sync.RWMutex

	maxConnections       int // layers >= 1
	maxConnectionsLayer0 int
	layerMultiplier      float64

	rngMu sync.Mutex
	rng   *rand.Rand

	opts Options
}

// New creates a new graph over the given vector store.
func New(vectors *vectorstore.Store, optFns ...func(o *Options)) (*Graph, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.M < 2 {
		opts.M = 2
	}
	if opts.EF < 1 {
		opts.EF = DefaultEF
	}
	if opts.EFConstruction < opts.M {
		opts.EFConstruction = DefaultEFConstruction
	}

	distanceFunc, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}

	seed := int64(42)
	if opts.RandomSeed != nil {
		seed = *opts.RandomSeed
	}

	return &Graph{
		vectors:              vectors,
		distanceFunc:         distanceFunc,
		shardedLocks:         make([]sync.RWMutex, numLockShards),
		maxConnections:       opts.M,
		maxConnectionsLayer0: opts.M * 2,
		layerMultiplier:      1 / math.Log(float64(opts.M)),
		rng:                  rand.New(rand.NewSource(seed)),
		opts:                 opts,
	}, nil
}

// Len returns the number of indexed items.
func (g *Graph) Len() int {
	return g.vectors.Len()
}

// Insert adds an item to the graph. The vector must match the store's
// dimension and the word must not already be indexed.
func (g *Graph) Insert(ctx context.Context, item model.Item) (model.RowID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	id, err := g.vectors.Add(item)
	if err != nil {
		return 0, err
	}

	level := g.randomLevel()

	n := newNode(id, level, g.maxConnections, g.maxConnectionsLayer0)
	g.nodes.set(id, n)

	// First node becomes the entry point without any linking.
	if g.entryPoint.CompareAndSwap(0, packEntryPoint(level, id)) {
		return id, nil
	}

	g.link(item.Vector, id, level)
	g.raiseEntryPoint(id, level)

	return id, nil
}

// link connects a freshly published node into every layer up to its level.
func (g *Graph) link(vector []float32, id model.RowID, level int) {
	epLevel, epID := unpackEntryPoint(g.entryPoint.Load())
	curr, currDist := epID, g.distanceFunc(vector, g.vector(epID))

	// Greedy descent through layers above the node's level.
	if epLevel > level {
		curr, currDist = g.greedyDescend(vector, curr, currDist, epLevel, level+1)
	}

	s := searcher.Get()
	defer searcher.Put(s)

	for layer := min(level, epLevel); layer >= 0; layer-- {
		g.searchLayer(s, vector, curr, currDist, layer, g.opts.EFConstruction)

		candidates := drainSorted(g, s.Candidates)

		// A concurrent insert may already have linked back to this node,
		// making it discoverable during its own search.
		candidates = slices.DeleteFunc(candidates, func(c searcher.PriorityQueueItem) bool {
			return c.Node == id
		})

		if len(candidates) > 0 {
			curr, currDist = candidates[0].Node, candidates[0].Distance
		}

		maxConns := g.maxConnectionsForLayer(layer)
		selected := g.selectNeighbors(candidates, maxConns)

		lock := g.lockFor(id)
		lock.Lock()
		n := g.nodes.get(id)
		n.neighbors[layer] = append(n.neighbors[layer][:0], selected...)
		lock.Unlock()

		for _, neighborID := range selected {
			g.connect(neighborID, id, layer)
		}
	}
}

// connect adds newID to the neighbor list of id on the given layer,
// pruning with the diversification heuristic when the list would exceed
// its cap. Edges dropped by pruning have their reverse edge removed to
// keep links mutual.
func (g *Graph) connect(id, newID model.RowID, layer int) {
	maxConns := g.maxConnectionsForLayer(layer)

	var dropped []model.RowID

	lock := g.lockFor(id)
	lock.Lock()

	n := g.nodes.get(id)
	conns := n.neighbors[layer]

	for _, c := range conns {
		if c == newID {
			lock.Unlock()
			return
		}
	}

	if len(conns) < maxConns {
		n.neighbors[layer] = append(conns, newID)
		lock.Unlock()
		return
	}

	// Overflow: re-select over existing plus new.
	vector := g.vector(id)
	candidates := make([]searcher.PriorityQueueItem, 0, len(conns)+1)
	for _, c := range conns {
		candidates = append(candidates, searcher.PriorityQueueItem{
			Node:     c,
			Distance: g.distanceFunc(vector, g.vector(c)),
		})
	}
	candidates = append(candidates, searcher.PriorityQueueItem{
		Node:     newID,
		Distance: g.distanceFunc(vector, g.vector(newID)),
	})
	sortCandidates(g, candidates)

	selected := g.selectNeighbors(candidates, maxConns)

	kept := make(map[model.RowID]struct{}, len(selected))
	for _, c := range selected {
		kept[c] = struct{}{}
	}
	for _, c := range candidates {
		if _, ok := kept[c.Node]; !ok {
			dropped = append(dropped, c.Node)
		}
	}

	n.neighbors[layer] = append(n.neighbors[layer][:0], selected...)
	lock.Unlock()

	// Remove reverse edges of pruned connections outside our own lock so
	// shard locks never nest.
	for _, d := range dropped {
		g.removeLink(d, id, layer)
	}
}

// removeLink removes neighbor from id's list on the given layer.
func (g *Graph) removeLink(id, neighbor model.RowID, layer int) {
	lock := g.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	n := g.nodes.get(id)
	if n == nil || layer > n.level {
		return
	}

	conns := n.neighbors[layer]
	for i, c := range conns {
		if c == neighbor {
			n.neighbors[layer] = append(conns[:i], conns[i+1:]...)
			return
		}
	}
}

// selectNeighbors applies the diversification heuristic: walking the
// candidates in ascending order, a candidate is kept only when it is
// closer to the inserted item than to every already-selected neighbor.
// Candidates must be pre-sorted ascending.
func (g *Graph) selectNeighbors(candidates []searcher.PriorityQueueItem, max int) []model.RowID {
	selected := make([]model.RowID, 0, max)

	for _, c := range candidates {
		if len(selected) >= max {
			break
		}

		vector := g.vector(c.Node)

		diverse := true
		for _, s := range selected {
			if g.distanceFunc(vector, g.vector(s)) < c.Distance {
				diverse = false
				break
			}
		}

		if diverse {
			selected = append(selected, c.Node)
		}
	}

	return selected
}

// KNNSearch returns the k nearest neighbors of the query vector, sorted
// by ascending distance with ties broken by word.
func (g *Graph) KNNSearch(ctx context.Context, query []float32, k int, optFns ...func(o *SearchOptions)) ([]index.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if k <= 0 {
		return nil, index.ErrInvalidK
	}

	sopts := SearchOptions{}
	for _, fn := range optFns {
		fn(&sopts)
	}

	if sopts.EF > 0 && sopts.EF < k {
		return nil, index.ErrInvalidEF
	}

	packed := g.entryPoint.Load()
	if packed == 0 {
		return nil, index.ErrEmptyIndex
	}

	if dim := g.vectors.Dimension(); len(query) != dim {
		return nil, &vectorstore.ErrDimensionMismatch{Expected: dim, Actual: len(query)}
	}

	ef := g.opts.EF
	if sopts.EF > 0 {
		ef = sopts.EF
	}
	if ef < k {
		ef = k
	}

	epLevel, epID := unpackEntryPoint(packed)
	curr, currDist := epID, g.distanceFunc(query, g.vector(epID))
	if epLevel > 0 {
		curr, currDist = g.greedyDescend(query, curr, currDist, epLevel, 1)
	}

	s := searcher.Get()
	defer searcher.Put(s)

	g.searchLayer(s, query, curr, currDist, 0, ef)

	results := make([]index.SearchResult, 0, s.Candidates.Len())
	for s.Candidates.Len() > 0 {
		c, _ := s.Candidates.PopItem()
		results = append(results, index.SearchResult{
			ID:       c.Node,
			Word:     g.word(c.Node),
			Distance: c.Distance,
		})
	}

	index.SortResults(results)
	if len(results) > k {
		results = results[:k]
	}

	return results, nil
}

// greedyDescend walks layers fromLevel down to toLevel, moving to the
// closest neighbor at each layer until no improvement is found.
func (g *Graph) greedyDescend(query []float32, entry model.RowID, entryDist float32, fromLevel, toLevel int) (model.RowID, float32) {
	curr, currDist := entry, entryDist

	var conns []model.RowID

	for layer := fromLevel; layer >= toLevel; layer-- {
		for improved := true; improved; {
			improved = false

			conns = g.copyConnections(conns[:0], curr, layer)
			for _, c := range conns {
				if d := g.distanceFunc(query, g.vector(c)); d < currDist {
					curr, currDist = c, d
					improved = true
				}
			}
		}
	}

	return curr, currDist
}

// searchLayer performs a best-first search restricted to one layer,
// leaving up to ef results in s.Candidates.
func (g *Graph) searchLayer(s *searcher.Searcher, query []float32, entry model.RowID, entryDist float32, layer, ef int) {
	s.Reset()

	s.Visited.Visit(entry)
	s.ScratchCandidates.PushItem(searcher.PriorityQueueItem{Node: entry, Distance: entryDist})
	s.Candidates.PushItem(searcher.PriorityQueueItem{Node: entry, Distance: entryDist})

	var conns []model.RowID

	for s.ScratchCandidates.Len() > 0 {
		current, _ := s.ScratchCandidates.PopItem()

		if worst, ok := s.Candidates.TopItem(); ok && current.Distance > worst.Distance && s.Candidates.Len() >= ef {
			break
		}

		conns = g.copyConnections(conns[:0], current.Node, layer)
		for _, c := range conns {
			if s.Visited.Visited(c) {
				continue
			}
			s.Visited.Visit(c)

			d := g.distanceFunc(query, g.vector(c))

			if worst, ok := s.Candidates.TopItem(); !ok || s.Candidates.Len() < ef || d < worst.Distance {
				s.ScratchCandidates.PushItem(searcher.PriorityQueueItem{Node: c, Distance: d})
				s.Candidates.PushItemBounded(searcher.PriorityQueueItem{Node: c, Distance: d}, ef)
			}
		}
	}
}

// copyConnections copies id's neighbor list on the given layer into dst
// under the shard's read lock.
func (g *Graph) copyConnections(dst []model.RowID, id model.RowID, layer int) []model.RowID {
	lock := g.lockFor(id)
	lock.RLock()
	defer lock.RUnlock()

	n := g.nodes.get(id)
	if n == nil || layer > n.level {
		return dst
	}

	return append(dst, n.neighbors[layer]...)
}

// randomLevel draws the layer for a new node from the standard
// exponentially decaying distribution.
func (g *Graph) randomLevel() int {
	g.rngMu.Lock()
	r := g.rng.Float64()
	g.rngMu.Unlock()

	if r == 0 {
		r = math.SmallestNonzeroFloat64
	}

	return int(math.Floor(-math.Log(r) * g.layerMultiplier))
}

// raiseEntryPoint promotes id to entry point if its level exceeds the
// current entry point's level.
func (g *Graph) raiseEntryPoint(id model.RowID, level int) {
	packed := packEntryPoint(level, id)

	for {
		current := g.entryPoint.Load()
		if current != 0 && entryPointLevel(current) >= level {
			return
		}
		if g.entryPoint.CompareAndSwap(current, packed) {
			return
		}
	}
}

func (g *Graph) maxConnectionsForLayer(layer int) int {
	if layer == 0 {
		return g.maxConnectionsLayer0
	}
	return g.maxConnections
}

func (g *Graph) lockFor(id model.RowID) *sync.RWMutex {
	return &g.shardedLocks[id%numLockShards]
}

// vector returns the stored vector for an indexed id.
func (g *Graph) vector(id model.RowID) []float32 {
	v, _ := g.vectors.Vector(id)
	return v
}

func (g *Graph) word(id model.RowID) string {
	w, _ := g.vectors.Word(id)
	return w
}

func packEntryPoint(level int, id model.RowID) uint64 {
	return uint64(level+1)<<32 | uint64(id)
}

func unpackEntryPoint(packed uint64) (int, model.RowID) {
	return entryPointLevel(packed), model.RowID(uint32(packed))
}

func entryPointLevel(packed uint64) int {
	return int(packed>>32) - 1
}

// drainSorted empties the results heap and returns its items in
// ascending order by distance, ties broken by word.
func drainSorted(g *Graph, pq *searcher.PriorityQueue) []searcher.PriorityQueueItem {
	items := make([]searcher.PriorityQueueItem, 0, pq.Len())
	for pq.Len() > 0 {
		item, _ := pq.PopItem()
		items = append(items, item)
	}
	sortCandidates(g, items)
	return items
}

// sortCandidates sorts ascending by distance, ties broken by word.
func sortCandidates(g *Graph, items []searcher.PriorityQueueItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Distance != items[j].Distance {
			return items[i].Distance < items[j].Distance
		}
		wi := g.word(items[i].Node)
		wj := g.word(items[j].Node)
		return wi < wj
	})
}
