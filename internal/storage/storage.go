// Package storage defines the object-store seam the API, seeder, and
// retention sweeps share. Two key families live under it: chat file
// uploads (date-partitioned, swept by retention) and parquet dataset
// parts (long-lived, audited by the dataset check).
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned, possibly wrapped, by Get and Stat when
// the key does not exist. The S3 adapter maps the backend's no-such-key
// responses onto it.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo describes one stored object. LastModified drives the
// retention cutoff for uploads; Size feeds the bytes-freed counters.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

type PutOptions struct {
	ContentType string
}

// ObjectStore is the minimal surface salescope needs from a bucket.
// List walks every object under the given key prefix, recursing into
// nested date or table directories.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}
