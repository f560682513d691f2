// Package storage provides the raw-payload object store used to stage feed
// submissions between the ingestion endpoint and the processing pipeline.
// Payloads are written once, read at most once, and never mutated.
package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned when no object exists under a key.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore stages immutable raw payloads under opaque keys.
type ObjectStore interface {
	// Put writes a payload under the given key.
	Put(ctx context.Context, key string, data []byte) error

	// Get reads a payload back. Returns ErrObjectNotFound for unknown keys.
	Get(ctx context.Context, key string) ([]byte, error)
}
