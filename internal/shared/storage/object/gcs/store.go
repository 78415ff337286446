package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"coi-backend/internal/shared/storage/object"
)

// Store implements ArtifactStore on a Cloud Storage bucket under an optional prefix.
type Store struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	prefix string
}

// New creates a GCS-backed artifact store using application default credentials.
func New(ctx context.Context, bucket, prefix string) (*Store, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &Store{
		client: client,
		bucket: client.Bucket(bucket),
		name:   bucket,
		prefix: strings.Trim(strings.TrimSpace(prefix), "/"),
	}, nil
}

// Put writes data to the named object, replacing any previous generation.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	key := objectKey(s.prefix, name)
	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs write bucket=%s object=%s: %w", s.name, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs finalize bucket=%s object=%s: %w", s.name, key, err)
	}
	return nil
}

// Get reads the named object.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	key := objectKey(s.prefix, name)
	r, err := s.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, object.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gcs read bucket=%s object=%s: %w", s.name, key, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gcs read body object=%s: %w", key, err)
	}
	return data, nil
}

// Exists fetches the object attributes.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	key := objectKey(s.prefix, name)
	_, err := s.bucket.Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("gcs attrs bucket=%s object=%s: %w", s.name, key, err)
	}
	return true, nil
}

// Delete removes the named object if present.
func (s *Store) Delete(ctx context.Context, name string) error {
	key := objectKey(s.prefix, name)
	err := s.bucket.Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs delete bucket=%s object=%s: %w", s.name, key, err)
	}
	return nil
}

// List returns the top-level object names under the prefix ending in suffix.
func (s *Store) List(ctx context.Context, suffix string) ([]string, error) {
	listPrefix := ""
	if s.prefix != "" {
		listPrefix = s.prefix + "/"
	}
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: listPrefix, Delimiter: "/"})

	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs list bucket=%s prefix=%s: %w", s.name, listPrefix, err)
		}
		if attrs.Name == "" {
			// synthetic directory entry
			continue
		}
		name := strings.TrimPrefix(attrs.Name, listPrefix)
		if strings.HasSuffix(name, suffix) {
			names = append(names, name)
		}
	}
	return names, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func objectKey(prefix, name string) string {
	name = strings.TrimLeft(name, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

var _ object.ArtifactStore = (*Store)(nil)
