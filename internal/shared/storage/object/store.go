package object

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the named artifact does not exist.
var ErrNotFound = errors.New("object not found")

// ArtifactStore keeps artifacts in a flat namespace keyed by file name.
type ArtifactStore interface {
	// Put creates or replaces the named artifact.
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	Exists(ctx context.Context, name string) (bool, error)
	// Delete is a no-op when the artifact is already absent.
	Delete(ctx context.Context, name string) error
	// List returns the names of stored artifacts carrying the given suffix.
	List(ctx context.Context, suffix string) ([]string, error)
}
