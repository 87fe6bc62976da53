// Package vectorstore provides storage for word-embedding items.
//
// The store maps each word to a dense RowID and keeps vectors in columnar
// chunks (SOA layout). Chunks are immutable once allocated, so vector reads
// need no locking: a row is only reachable through a RowID after it has been
// fully written.
package vectorstore

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lexivec/lexivec/model"
)

const (
	// chunkBits fixes the number of rows per columnar chunk (1024).
	// Chunked growth avoids copying vector data while inserts are in flight.
	chunkBits = 10
	chunkRows = 1 << chunkBits
	chunkMask = chunkRows - 1
)

var (
	// ErrEmptyVector is returned when an item carries no vector data.
	ErrEmptyVector = errors.New("vector cannot be empty")
)

// ErrDimensionMismatch indicates a vector that does not match the store dimension.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrDuplicate indicates a word that is already stored.
// Re-insertion is always rejected, never silently overwritten.
type ErrDuplicate struct {
	Word string
}

func (e *ErrDuplicate) Error() string {
	return fmt.Sprintf("duplicate word: %q", e.Word)
}

// ErrNotFound indicates a lookup of an unknown word.
type ErrNotFound struct {
	Word string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("word not found: %q", e.Word)
}

// Options represents the options for configuring a Store.
type Options struct {
	// Dimension is the fixed vector dimensionality. If 0, the dimension is
	// fixed by the first item added.
	Dimension int
}

// DefaultOptions contains the default options for a Store.
var DefaultOptions = Options{
	Dimension: 0,
}

type chunk struct {
	data []float32 // chunkRows * dimension
}

// Store holds (word, vector) items with dimension enforcement.
// Add is safe for concurrent use; reads are lock-free once a RowID has
// been handed out.
type Store struct {
	mu        sync.RWMutex
	byWord    map[string]model.RowID
	words     []string
	chunks    atomic.Pointer[[]*chunk]
	dimension atomic.Int32
	count     atomic.Int64
}

// New creates a new Store.
func New(optFns ...func(o *Options)) *Store {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Store{
		byWord: make(map[string]model.RowID),
	}
	s.dimension.Store(int32(opts.Dimension))
	return s
}

// Dimension returns the fixed vector dimensionality, or 0 if no item has
// been added yet and no dimension was configured.
func (s *Store) Dimension() int {
	return int(s.dimension.Load())
}

// Len returns the number of stored items.
func (s *Store) Len() int {
	return int(s.count.Load())
}

// Add validates and stores an item, assigning it the next RowID.
// The first item fixes the store dimension when none was configured.
// A failed Add leaves the store unchanged.
func (s *Store) Add(item model.Item) (model.RowID, error) {
	if len(item.Vector) == 0 {
		return 0, ErrEmptyVector
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := int(s.dimension.Load())
	if dim == 0 {
		dim = len(item.Vector)
		s.dimension.Store(int32(dim))
	} else if len(item.Vector) != dim {
		return 0, &ErrDimensionMismatch{Expected: dim, Actual: len(item.Vector)}
	}

	if _, ok := s.byWord[item.Word]; ok {
		return 0, &ErrDuplicate{Word: item.Word}
	}

	id := model.RowID(len(s.words))
	s.writeVector(id, item.Vector, dim)
	s.words = append(s.words, item.Word)
	s.byWord[item.Word] = id
	s.count.Add(1)

	return id, nil
}

// writeVector copies v into the columnar chunk for id, growing the chunk
// list if needed. Caller holds mu.
func (s *Store) writeVector(id model.RowID, v []float32, dim int) {
	chunkIdx := int(id >> chunkBits)

	chunks := s.chunks.Load()
	var cur []*chunk
	if chunks != nil {
		cur = *chunks
	}

	if chunkIdx >= len(cur) {
		grown := make([]*chunk, chunkIdx+1)
		copy(grown, cur)
		for i := len(cur); i <= chunkIdx; i++ {
			grown[i] = &chunk{data: make([]float32, chunkRows*dim)}
		}
		s.chunks.Store(&grown)
		cur = grown
	}

	off := int(id&chunkMask) * dim
	copy(cur[chunkIdx].data[off:off+dim], v)
}

// Vector returns the stored vector for id. The returned slice aliases
// internal storage and must not be mutated.
func (s *Store) Vector(id model.RowID) ([]float32, bool) {
	if int64(id) >= s.count.Load() {
		return nil, false
	}
	chunks := s.chunks.Load()
	if chunks == nil {
		return nil, false
	}
	chunkIdx := int(id >> chunkBits)
	if chunkIdx >= len(*chunks) {
		return nil, false
	}
	dim := int(s.dimension.Load())
	off := int(id&chunkMask) * dim
	return (*chunks)[chunkIdx].data[off : off+dim : off+dim], true
}

// Word returns the word assigned to id.
func (s *Store) Word(id model.RowID) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(id) >= len(s.words) {
		return "", false
	}
	return s.words[id], true
}

// Lookup returns the RowID assigned to word.
func (s *Store) Lookup(word string) (model.RowID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byWord[word]
	return id, ok
}

// Get returns the stored item for word, or ErrNotFound.
func (s *Store) Get(word string) (model.Item, error) {
	id, ok := s.Lookup(word)
	if !ok {
		return model.Item{}, &ErrNotFound{Word: word}
	}
	v, _ := s.Vector(id)
	return model.Item{Word: word, Vector: v}, nil
}

// Range calls fn for every stored (id, vector) pair in RowID order,
// stopping early if fn returns false. It observes the item count at call
// time, so it is safe to run concurrently with Add.
func (s *Store) Range(fn func(id model.RowID, vector []float32) bool) {
	n := s.count.Load()
	for i := int64(0); i < n; i++ {
		v, ok := s.Vector(model.RowID(i))
		if !ok {
			return
		}
		if !fn(model.RowID(i), v) {
			return
		}
	}
}
