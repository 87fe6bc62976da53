package corpus

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexivec/lexivec/model"
)

const sampleCorpus = `3 2
cat 1.0 0.0
dog 0.9 0.1
car 0.0 1.0
`

func collect(t *testing.T, r *Reader) []model.Item {
	t.Helper()
	var items []model.Item
	for item, err := range r.Records() {
		require.NoError(t, err)
		items = append(items, item)
	}
	return items
}

func TestReaderHeader(t *testing.T) {
	r, err := NewReader(strings.NewReader(sampleCorpus))
	require.NoError(t, err)

	assert.Equal(t, 3, r.Count())
	assert.Equal(t, 2, r.Dimension())

	items := collect(t, r)
	require.Len(t, items, 3)
	assert.Equal(t, "cat", items[0].Word)
	assert.Equal(t, "dog", items[1].Word)
	assert.Equal(t, "car", items[2].Word)

	// Vectors are unit length by default.
	for _, item := range items {
		var norm float64
		for _, v := range item.Vector {
			norm += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, norm, 1e-5, "word %s", item.Word)
	}
}

func TestReaderNoNormalize(t *testing.T) {
	r, err := NewReader(strings.NewReader(sampleCorpus), func(o *Options) {
		o.Normalize = false
	})
	require.NoError(t, err)

	items := collect(t, r)
	require.Len(t, items, 3)
	assert.Equal(t, []float32{0.9, 0.1}, items[1].Vector)
}

func TestReaderHeaderless(t *testing.T) {
	in := "cat 1.0 0.0\ndog 0.0 1.0\n"

	r, err := NewReader(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, 0, r.Count())
	assert.Equal(t, 2, r.Dimension())

	items := collect(t, r)
	require.Len(t, items, 2)
	assert.Equal(t, "cat", items[0].Word)
}

func TestReaderMaxRecords(t *testing.T) {
	r, err := NewReader(strings.NewReader(sampleCorpus), func(o *Options) {
		o.MaxRecords = 2
	})
	require.NoError(t, err)

	items := collect(t, r)
	assert.Len(t, items, 2)
}

func TestReaderMalformed(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, err := NewReader(strings.NewReader(""))
		require.Error(t, err)
	})

	t.Run("wrong component count", func(t *testing.T) {
		r, err := NewReader(strings.NewReader("2 3\ncat 1.0 0.0\n"))
		require.NoError(t, err)

		var firstErr error
		for _, err := range r.Records() {
			if err != nil {
				firstErr = err
				break
			}
		}
		require.Error(t, firstErr)
		assert.Contains(t, firstErr.Error(), "cat")
	})

	t.Run("bad float", func(t *testing.T) {
		r, err := NewReader(strings.NewReader("1 2\ncat 1.0 oops\n"))
		require.NoError(t, err)

		var firstErr error
		for _, err := range r.Records() {
			if err != nil {
				firstErr = err
				break
			}
		}
		require.Error(t, firstErr)
	})
}

func TestReaderSkipsBlankLines(t *testing.T) {
	r, err := NewReader(strings.NewReader("2 2\ncat 1.0 0.0\n\ndog 0.0 1.0\n"))
	require.NoError(t, err)

	items := collect(t, r)
	assert.Len(t, items, 2)
}

func TestOpenGzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.vec.gz")

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(sampleCorpus))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 3, r.Count())
	assert.Len(t, collect(t, r), 3)
}

func TestOpenLZ4(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.vec.lz4")

	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	_, err := zw.Write([]byte(sampleCorpus))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 3, r.Count())
	assert.Len(t, collect(t, r), 3)
}

func TestOpenPlain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.vec")
	require.NoError(t, os.WriteFile(path, []byte(sampleCorpus), 0o600))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Len(t, collect(t, r), 3)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.vec"))
	require.Error(t, err)
}
