// Package index defines the types shared by the vector index implementations.
package index

import (
	"errors"
	"sort"

	"github.com/lexivec/lexivec/model"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrInvalidEF is returned when a per-query ef is smaller than k.
	ErrInvalidEF = errors.New("ef must be >= k")

	// ErrEmptyIndex is returned when a query is issued before any insert.
	ErrEmptyIndex = errors.New("index is empty")
)

// SearchResult is a single ranked match.
type SearchResult struct {
	ID       model.RowID
	Word     string
	Distance float32
}

// SortResults orders results by ascending distance, breaking exact distance
// ties by ascending word. The fixed tie-break keeps query output and built
// graphs reproducible.
func SortResults(res []SearchResult) {
	sort.Slice(res, func(i, j int) bool {
		if res[i].Distance != res[j].Distance {
			return res[i].Distance < res[j].Distance
		}
		return res[i].Word < res[j].Word
	})
}
