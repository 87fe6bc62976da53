package hnsw

// LevelStats describes one layer of the graph.
type LevelStats struct {
	Level       int
	Nodes       int
	Connections int
}

// Stats is a point-in-time summary of the graph topology.
type Stats struct {
	// Count is the number of indexed items.
	Count int

	// MaxLevel is the level of the entry point, or -1 when empty.
	MaxLevel int

	// EntryWord is the word of the entry point node.
	EntryWord string

	// Levels holds per-layer node and connection counts, base layer
	// first.
	Levels []LevelStats
}

// Stats walks the graph and returns a topology summary. Counts are
// approximate while inserts are in flight.
func (g *Graph) Stats() Stats {
	stats := Stats{
		Count:    g.Len(),
		MaxLevel: -1,
	}

	packed := g.entryPoint.Load()
	if packed == 0 {
		return stats
	}

	epLevel, epID := unpackEntryPoint(packed)
	stats.MaxLevel = epLevel
	stats.EntryWord, _ = g.vectors.Word(epID)
	stats.Levels = make([]LevelStats, epLevel+1)
	for l := range stats.Levels {
		stats.Levels[l].Level = l
	}

	g.nodes.forEach(func(n *node) bool {
		lock := g.lockFor(n.id)
		lock.RLock()
		for l := 0; l <= n.level && l < len(stats.Levels); l++ {
			stats.Levels[l].Nodes++
			stats.Levels[l].Connections += len(n.neighbors[l])
		}
		lock.RUnlock()
		return true
	})

	return stats
}
