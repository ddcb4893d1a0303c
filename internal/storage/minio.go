package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"lawdocs/internal/config"
)

// minioStore implements BlobStore on an S3-compatible backend (MinIO, AWS S3, etc.).
// It exists so a deployment can move off local disk without touching the
// pipelines. It is safe for concurrent use by multiple goroutines.
type minioStore struct {
	client *minio.Client
	bucket string
}

var _ BlobStore = (*minioStore)(nil)

// NewMinIO creates an S3-compatible store backed by MinIO.
// It validates connectivity and ensures the bucket exists (creates it if missing).
func NewMinIO(cfg config.MinIOConfig) (BlobStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ms := &minioStore{client: cli, bucket: cfg.Bucket}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Ensure bucket exists.
	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return ms, nil
}

// Write uploads the object using streaming I/O only.
// PutObject would silently overwrite, so existence is checked first to keep
// the same exclusive-create contract as the local backend.
func (m *minioStore) Write(ctx context.Context, storedName string, r io.Reader, size int64, contentType string) error {
	if !validName(storedName) {
		return &Error{Op: "write", Name: storedName, Err: ErrInvalidName}
	}
	if _, err := m.client.StatObject(ctx, m.bucket, storedName, minio.StatObjectOptions{}); err == nil {
		return &Error{Op: "write", Name: storedName, Err: ErrExists}
	} else if !isNoSuchKey(err) {
		return &Error{Op: "write", Name: storedName, Err: err}
	}

	_, err := m.client.PutObject(ctx, m.bucket, storedName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return &Error{Op: "write", Name: storedName, Err: err}
	}
	return nil
}

// Open downloads the object content as a ReadCloser along with its size.
func (m *minioStore) Open(ctx context.Context, storedName string) (io.ReadCloser, int64, error) {
	if !validName(storedName) {
		return nil, 0, &Error{Op: "open", Name: storedName, Err: ErrInvalidName}
	}
	obj, err := m.client.GetObject(ctx, m.bucket, storedName, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, &Error{Op: "open", Name: storedName, Err: err}
	}
	// GetObject is lazy; Stat forces the round-trip and surfaces NoSuchKey.
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		if isNoSuchKey(err) {
			return nil, 0, &Error{Op: "open", Name: storedName, Err: ErrNotExist}
		}
		return nil, 0, &Error{Op: "open", Name: storedName, Err: err}
	}
	return obj, st.Size, nil
}

// Remove deletes the object. RemoveObject on a missing key already succeeds,
// which matches the idempotent contract.
func (m *minioStore) Remove(ctx context.Context, storedName string) error {
	if !validName(storedName) {
		return &Error{Op: "remove", Name: storedName, Err: ErrInvalidName}
	}
	if err := m.client.RemoveObject(ctx, m.bucket, storedName, minio.RemoveObjectOptions{}); err != nil {
		return &Error{Op: "remove", Name: storedName, Err: err}
	}
	return nil
}

// Entries lists all objects in the bucket.
func (m *minioStore) Entries(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		entries = append(entries, Entry{Name: obj.Key, ModTime: obj.LastModified})
	}
	return entries, nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
