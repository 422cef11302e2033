// Package storage provides the keyed object store behind the render cache.
package storage

import (
	"context"
	"errors"
	"time"
)

// ObjectStore stores immutable blobs under a hash key. When the caller does
// not supply a key, the SHA-256 of the data is used.
type ObjectStore interface {
	// Put stores obj and returns its key. Existing keys are not rewritten.
	Put(ctx context.Context, obj *Object) (hash string, err error)

	// Get returns ErrNotFound when the key is unknown.
	Get(ctx context.Context, hash string) (*Object, error)

	Exists(ctx context.Context, hash string) (bool, error)
	Delete(ctx context.Context, hash string) error

	// List returns the keys of objects of the given type, or all keys when
	// objectType is empty.
	List(ctx context.Context, objectType ObjectType) ([]string, error)

	// GC deletes every object whose key is not in keep and returns the count.
	GC(ctx context.Context, keep map[string]bool) (int, error)

	Close() error
}

// Object is a stored blob with its metadata.
type Object struct {
	Hash     string
	Type     ObjectType
	Size     int64
	Data     []byte
	Metadata Metadata
}

// Metadata is kept next to each object.
type Metadata struct {
	CreatedAt    time.Time         `json:"created_at"`
	LastAccessed time.Time         `json:"last_accessed"`
	Custom       map[string]string `json:"custom,omitempty"`
}

// ObjectType identifies the kind of stored object.
type ObjectType string

const (
	// ObjectTypeRenderedDoc is a cached Markdown render keyed by the
	// document fingerprint and the render options hash.
	ObjectTypeRenderedDoc ObjectType = "rendered_doc"
)

// ErrNotFound is returned when an object doesn't exist.
type ErrNotFound struct {
	Hash string
}

func (e ErrNotFound) Error() string {
	return "object not found: " + e.Hash
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}
