// Package corpus reads word embedding corpora in the fastText text
// format: an optional "count dimension" header line followed by one
// record per line, each a word and its vector components separated by
// spaces. Plain, gzip (.gz) and lz4 (.lz4) encoded files are supported.
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"

	"github.com/lexivec/lexivec/distance"
	"github.com/lexivec/lexivec/model"
)

// scanBufferSize bounds a single corpus line. fastText lines with 300
// dimensions run about 3 KB; 1 MB leaves generous headroom.
const scanBufferSize = 1 << 20

// Options contains configuration for a Reader.
type Options struct {
	// Normalize scales every vector to unit length, so that inner
	// product search behaves as cosine similarity.
	Normalize bool

	// MaxRecords stops reading after this many records. Zero reads all.
	MaxRecords int
}

// DefaultOptions are the reader's default options.
var DefaultOptions = Options{
	Normalize: true,
}

// Reader streams items from a word embedding corpus.
type Reader struct {
	scanner *bufio.Scanner
	closers []io.Closer

	count     int
	dimension int

	// first holds a pre-read record when the corpus has no header line.
	first *model.Item

	line int
	opts Options
}

// Open opens a corpus file, transparently decompressing .gz and .lz4
// files by extension.
func Open(path string, optFns ...func(o *Options)) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}

	var (
		src     io.Reader = f
		closers           = []io.Closer{f}
	)

	switch filepath.Ext(path) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open corpus: %w", err)
		}
		src = zr
		closers = append([]io.Closer{zr}, closers...)
	case ".lz4":
		src = lz4.NewReader(f)
	}

	r, err := NewReader(src, optFns...)
	if err != nil {
		for _, c := range closers {
			c.Close()
		}
		return nil, err
	}

	r.closers = closers

	return r, nil
}

// NewReader creates a Reader over an already-open stream. The header
// line, when present, is consumed immediately.
func NewReader(src io.Reader, optFns ...func(o *Options)) (*Reader, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), scanBufferSize)

	r := &Reader{
		scanner: scanner,
		opts:    opts,
	}

	if err := r.readHeader(); err != nil {
		return nil, err
	}

	return r, nil
}

// readHeader consumes the first line. A line with exactly two integer
// fields is a "count dimension" header; anything else is treated as the
// first record (headerless corpora such as GloVe) and the dimension is
// inferred from it.
func (r *Reader) readHeader() error {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return fmt.Errorf("read corpus header: %w", err)
		}
		return fmt.Errorf("read corpus header: %w", io.ErrUnexpectedEOF)
	}

	r.line++
	fields := strings.Fields(r.scanner.Text())

	if len(fields) == 2 {
		count, err1 := strconv.Atoi(fields[0])
		dim, err2 := strconv.Atoi(fields[1])
		if err1 == nil && err2 == nil && count >= 0 && dim > 0 {
			r.count = count
			r.dimension = dim
			return nil
		}
	}

	// No header. Parse the line as the first record.
	item, err := r.parseRecord(fields)
	if err != nil {
		return err
	}

	r.dimension = len(item.Vector)
	r.first = &item

	return nil
}

// Count returns the record count announced by the header, or zero when
// the corpus has no header.
func (r *Reader) Count() int {
	return r.count
}

// Dimension returns the vector dimension.
func (r *Reader) Dimension() int {
	return r.dimension
}

// Records returns a single-use iterator over the corpus. Iteration
// stops at the first malformed record.
func (r *Reader) Records() iter.Seq2[model.Item, error] {
	return func(yield func(model.Item, error) bool) {
		n := 0

		if r.first != nil {
			item := *r.first
			r.first = nil
			n++
			if !yield(item, nil) {
				return
			}
		}

		for r.scanner.Scan() {
			if r.opts.MaxRecords > 0 && n >= r.opts.MaxRecords {
				return
			}

			r.line++

			text := r.scanner.Text()
			if strings.TrimSpace(text) == "" {
				continue
			}

			item, err := r.parseRecord(strings.Fields(text))
			if err != nil {
				yield(model.Item{}, err)
				return
			}

			n++
			if !yield(item, nil) {
				return
			}
		}

		if err := r.scanner.Err(); err != nil {
			yield(model.Item{}, fmt.Errorf("read corpus: %w", err))
		}
	}
}

func (r *Reader) parseRecord(fields []string) (model.Item, error) {
	if len(fields) < 2 {
		return model.Item{}, fmt.Errorf("corpus line %d: malformed record", r.line)
	}

	word := fields[0]
	values := fields[1:]

	if r.dimension > 0 && len(values) != r.dimension {
		return model.Item{}, fmt.Errorf("corpus line %d: word %q has %d components, want %d", r.line, word, len(values), r.dimension)
	}

	vector := make([]float32, len(values))
	for i, v := range values {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return model.Item{}, fmt.Errorf("corpus line %d: word %q: %w", r.line, word, err)
		}
		vector[i] = float32(f)
	}

	if r.opts.Normalize {
		distance.NormalizeL2InPlace(vector)
	}

	return model.Item{Word: word, Vector: vector}, nil
}

// Close releases the underlying file handles, if the Reader owns any.
func (r *Reader) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
