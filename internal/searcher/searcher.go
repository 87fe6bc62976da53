package searcher

import "sync"

// Searcher is a reusable execution context for graph traversal.
// It owns all scratch memory required for a search, eliminating heap
// allocations in the steady state.
//
// Searcher is NOT thread-safe. It is intended to be owned by a single
// goroutine for the duration of one operation.
type Searcher struct {
	// Visited tracks visited nodes during graph traversal.
	Visited *VisitedSet

	// Candidates is a max-heap holding the current best ef results.
	Candidates *PriorityQueue

	// ScratchCandidates is a min-heap of candidates still to explore.
	ScratchCandidates *PriorityQueue
}

// Reset clears all scratch state for reuse.
func (s *Searcher) Reset() {
	s.Visited.Reset()
	s.Candidates.Reset()
	s.ScratchCandidates.Reset()
}

var pool = sync.Pool{
	New: func() any {
		return &Searcher{
			Visited:           NewVisitedSet(1024),
			Candidates:        NewPriorityQueue(true),
			ScratchCandidates: NewPriorityQueue(false),
		}
	},
}

// Get acquires a Searcher from the pool.
func Get() *Searcher {
	return pool.Get().(*Searcher)
}

// Put resets and returns a Searcher to the pool.
func Put(s *Searcher) {
	s.Reset()
	pool.Put(s)
}
