package model

import "fmt"

// RowID is a dense, index-local identifier for a stored item.
// IDs are assigned sequentially by the vector store at insertion time
// and are never reused.
type RowID uint32

// Item is a single record: a unique word and its embedding vector.
// Vectors are expected to be L2-normalized by the producer before
// they reach the store; the index core never re-normalizes.
type Item struct {
	Word   string
	Vector []float32
}

// String returns a short representation for logging.
func (it Item) String() string {
	return fmt.Sprintf("Item(%q, dim=%d)", it.Word, len(it.Vector))
}
