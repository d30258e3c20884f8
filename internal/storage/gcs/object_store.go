// Package gcs provides an ObjectStore backed by Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/civicledger/actas-harvester/internal/harvest"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	// Bucket receives the harvested tally-sheet files.
	Bucket string `mapstructure:"bucket"`
	// Prefix is prepended to every object key, e.g. "actas/".
	Prefix string `mapstructure:"prefix"`
}

// ObjectStore writes tally-sheet files to a configured GCS bucket.
type ObjectStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates a GCS-backed object store.
func New(client *storage.Client, cfg Config) (*ObjectStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &ObjectStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Put uploads data under key, streaming byte counts to progress as the copy
// advances. Re-uploading the same key overwrites the object, which is safe
// because keys are content-addressed.
func (s *ObjectStore) Put(ctx context.Context, key string, data []byte, progress harvest.ProgressFunc) error {
	if key == "" {
		return fmt.Errorf("object key is required")
	}
	writer := s.client.Bucket(s.bucket).Object(s.prefix + key).NewWriter(ctx)
	writer.ContentType = "image/jpeg"

	var src io.Reader = bytes.NewReader(data)
	if progress != nil {
		src = &progressReader{r: src, progress: progress}
	}
	if _, err := io.Copy(writer, src); err != nil {
		_ = writer.Close()
		return fmt.Errorf("upload object %s: %w", key, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close object writer %s: %w", key, err)
	}
	return nil
}

// Size returns the stored byte size of key.
func (s *ObjectStore) Size(ctx context.Context, key string) (int64, error) {
	attrs, err := s.client.Bucket(s.bucket).Object(s.prefix + key).Attrs(ctx)
	if err != nil {
		return 0, fmt.Errorf("stat object %s: %w", key, err)
	}
	return attrs.Size, nil
}

// Delete removes key from the bucket.
func (s *ObjectStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Bucket(s.bucket).Object(s.prefix + key).Delete(ctx); err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// progressReader reports byte deltas as they are consumed.
type progressReader struct {
	r        io.Reader
	progress harvest.ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.progress(int64(n))
	}
	return n, err
}
