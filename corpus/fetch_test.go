package corpus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSource(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    any
		wantErr bool
	}{
		{name: "http", url: "http://example.com/corpus.vec.gz", want: &HTTPSource{}},
		{name: "https", url: "https://example.com/corpus.vec.gz", want: &HTTPSource{}},
		{name: "s3", url: "s3://bucket/path/corpus.vec.gz", want: &S3Source{}},
		{name: "minio", url: "minio://localhost:9000/bucket/corpus.vec.gz", want: &MinioSource{}},
		{name: "minio tls", url: "minios://minio.internal/bucket/corpus.vec.gz", want: &MinioSource{}},
		{name: "s3 missing key", url: "s3://bucket", wantErr: true},
		{name: "minio missing key", url: "minio://host/bucket", wantErr: true},
		{name: "unsupported", url: "ftp://example.com/corpus.vec", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewSource(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, src)
		})
	}
}

func TestNewSourceFields(t *testing.T) {
	src, err := NewSource("s3://embeddings/fasttext/cc.en.300.vec.gz")
	require.NoError(t, err)

	s3src := src.(*S3Source)
	assert.Equal(t, "embeddings", s3src.Bucket)
	assert.Equal(t, "fasttext/cc.en.300.vec.gz", s3src.Key)

	src, err = NewSource("minios://minio.internal:9000/corpora/cc.en.300.vec.gz")
	require.NoError(t, err)

	msrc := src.(*MinioSource)
	assert.Equal(t, "minio.internal:9000", msrc.Endpoint)
	assert.Equal(t, "corpora", msrc.Bucket)
	assert.Equal(t, "cc.en.300.vec.gz", msrc.Key)
	assert.True(t, msrc.Secure)
}

func TestHTTPSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(sampleCorpus))
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "corpus.vec")

	src := &HTTPSource{URL: srv.URL, Client: srv.Client()}
	require.NoError(t, src.Fetch(context.Background(), dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, sampleCorpus, string(got))
}

func TestHTTPSourceFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "corpus.vec")

	src := &HTTPSource{URL: srv.URL, Client: srv.Client()}
	err := src.Fetch(context.Background(), dst)
	require.Error(t, err)

	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr), "failed fetch must not leave a partial file")
}

func TestEnsure(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write([]byte(sampleCorpus))
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "corpus.vec")

	downloaded, err := Ensure(context.Background(), srv.URL, dst)
	require.NoError(t, err)
	assert.True(t, downloaded)
	assert.Equal(t, 1, hits)

	// Second call finds the file and skips the download.
	downloaded, err = Ensure(context.Background(), srv.URL, dst)
	require.NoError(t, err)
	assert.False(t, downloaded)
	assert.Equal(t, 1, hits)
}

func TestThrottleProgress(t *testing.T) {
	var calls int
	fn := ThrottleProgress(func(done, total int) {
		calls++
	}, time.Hour)

	for i := range 100 {
		fn(i, 100)
	}

	assert.Equal(t, 1, calls)
}
