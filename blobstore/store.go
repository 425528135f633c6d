// Package blobstore abstracts where model files live. Remote stores
// fetch blobs into a local cache directory before the model is opened;
// the memory-mapped loader always reads local files.
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction for reading immutable model blobs.
type BlobStore interface {
	// Fetch copies the blob with the given name into w.
	Fetch(ctx context.Context, name string, w io.Writer) error

	// List returns the names of blobs under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
