package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Open when the key does not exist.
var ErrNotFound = errors.New("object not found")

// Saved describes a stored object.
type Saved struct {
	Key      string
	Size     int64
	MimeType string
}

// ObjectStore stores résumé files and other uploads.
type ObjectStore interface {
	// Save writes r under namespace with a random prefix on fileName.
	Save(ctx context.Context, namespace string, fileName string, r io.Reader) (Saved, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
