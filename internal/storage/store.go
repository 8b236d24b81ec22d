// Package storage provides the object store contract the pipeline and the
// follow-up engine persist table blobs through.
package storage

import "context"

// ObjectStore is the blob storage contract. Paths are deterministic,
// {prefix}/{session_id}.{ext}, chosen by the caller.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, path string, data []byte) error
	Download(ctx context.Context, bucket, path string) ([]byte, error)
}
