package corpus

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Source fetches a remote corpus into a local file.
type Source interface {
	// Fetch downloads the corpus to dst.
	Fetch(ctx context.Context, dst string) error
}

// NewSource builds a Source from a URL. Supported schemes:
//
//	http:// https://          plain HTTP download
//	s3://bucket/key           S3 via the default AWS credential chain
//	minio://host/bucket/key   MinIO without TLS, credentials from
//	                          MINIO_ACCESS_KEY / MINIO_SECRET_KEY
//	minios://host/bucket/key  MinIO with TLS
func NewSource(rawURL string) (Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse corpus url: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		return &HTTPSource{URL: rawURL}, nil
	case "s3":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("corpus url %q: want s3://bucket/key", rawURL)
		}
		return &S3Source{Bucket: u.Host, Key: key}, nil
	case "minio", "minios":
		bucket, key, ok := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		if !ok || u.Host == "" || bucket == "" || key == "" {
			return nil, fmt.Errorf("corpus url %q: want %s://host/bucket/key", rawURL, u.Scheme)
		}
		return &MinioSource{
			Endpoint: u.Host,
			Bucket:   bucket,
			Key:      key,
			Secure:   u.Scheme == "minios",
		}, nil
	default:
		return nil, fmt.Errorf("corpus url %q: unsupported scheme %q", rawURL, u.Scheme)
	}
}

// Ensure fetches the corpus at rawURL into dst unless dst already
// exists. It returns true when a download happened.
func Ensure(ctx context.Context, rawURL, dst string) (bool, error) {
	if _, err := os.Stat(dst); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}

	src, err := NewSource(rawURL)
	if err != nil {
		return false, err
	}

	if err := src.Fetch(ctx, dst); err != nil {
		return false, err
	}

	return true, nil
}

// HTTPSource downloads a corpus over HTTP(S).
type HTTPSource struct {
	URL string

	// Client defaults to http.DefaultClient.
	Client *http.Client
}

// Fetch implements Source. The download goes to a temporary file that
// is renamed into place on success, so dst is never left truncated.
func (s *HTTPSource) Fetch(ctx context.Context, dst string) error {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return fmt.Errorf("fetch corpus: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch corpus: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch corpus %s: unexpected status %s", s.URL, resp.Status)
	}

	return writeAtomic(dst, func(f *os.File) error {
		_, err := io.Copy(f, resp.Body)
		return err
	})
}

// S3Source downloads a corpus object from S3 using the default AWS
// credential chain.
type S3Source struct {
	Bucket string
	Key    string

	// Client defaults to a client built from the ambient AWS config.
	Client manager.DownloadAPIClient
}

// Fetch implements Source.
func (s *S3Source) Fetch(ctx context.Context, dst string) error {
	client := s.Client
	if client == nil {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("fetch corpus: load aws config: %w", err)
		}
		client = s3.NewFromConfig(cfg)
	}

	downloader := manager.NewDownloader(client)

	return writeAtomic(dst, func(f *os.File) error {
		_, err := downloader.Download(ctx, f, &s3.GetObjectInput{
			Bucket: aws.String(s.Bucket),
			Key:    aws.String(s.Key),
		})
		return err
	})
}

// MinioSource downloads a corpus object from a MinIO deployment.
// Credentials come from the MINIO_ACCESS_KEY and MINIO_SECRET_KEY
// environment variables.
type MinioSource struct {
	Endpoint string
	Bucket   string
	Key      string
	Secure   bool
}

// Fetch implements Source.
func (s *MinioSource) Fetch(ctx context.Context, dst string) error {
	client, err := minio.New(s.Endpoint, &minio.Options{
		Creds:  credentials.NewEnvMinio(),
		Secure: s.Secure,
	})
	if err != nil {
		return fmt.Errorf("fetch corpus: %w", err)
	}

	if err := client.FGetObject(ctx, s.Bucket, s.Key, dst, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("fetch corpus: %w", err)
	}

	return nil
}

// writeAtomic writes dst via a temporary sibling file and rename.
func writeAtomic(dst string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".corpus-*")
	if err != nil {
		return fmt.Errorf("fetch corpus: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("fetch corpus: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("fetch corpus: %w", err)
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("fetch corpus: %w", err)
	}

	return nil
}
