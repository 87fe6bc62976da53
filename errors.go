package lexivec

import (
	"errors"
	"fmt"

	"github.com/lexivec/lexivec/index"
	"github.com/lexivec/lexivec/vectorstore"
)

var (
	// ErrNotFound is returned when a queried word is not in the
	// vocabulary.
	ErrNotFound = errors.New("word not found")

	// ErrDuplicate is returned when a word is inserted twice.
	ErrDuplicate = errors.New("duplicate word")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = index.ErrInvalidK

	// ErrInvalidEF is returned when a per-query ef is smaller than k.
	ErrInvalidEF = index.ErrInvalidEF

	// ErrEmptyIndex is returned when searching an empty index.
	ErrEmptyIndex = index.ErrEmptyIndex
)

// translateError unifies lower-level errors into the package's
// sentinels while keeping the original error in the chain.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var nf *vectorstore.ErrNotFound
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var dup *vectorstore.ErrDuplicate
	if errors.As(err, &dup) {
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	}

	return err
}
