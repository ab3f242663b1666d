package export

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
)

// ErrBucketNotFound is returned when the target bucket does not exist.
// This is a configuration problem, not a retryable condition.
var ErrBucketNotFound = errors.New("bucket not found")

// Store durably stores named bytes under a bucket and key.
type Store interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

// GCSStore stores objects in Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore creates a GCS-backed store using ambient credentials.
func NewGCSStore(ctx context.Context) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

// Put writes the object. A missing bucket maps to ErrBucketNotFound.
func (s *GCSStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	handle := s.client.Bucket(bucket)
	if _, err := handle.Attrs(ctx); err != nil {
		if errors.Is(err, storage.ErrBucketNotExist) {
			return fmt.Errorf("%w: %s", ErrBucketNotFound, bucket)
		}
		return fmt.Errorf("bucket attrs: %w", err)
	}

	w := handle.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close object %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
