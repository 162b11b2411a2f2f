// Package backend provides the key-value media the storage engine is
// layered on. Keys are opaque strings and values are byte blobs; a backend
// may be shared with data that does not belong to the engine.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrClosed is returned by operations on a closed backend
var ErrClosed = errors.New("backend is closed")

// Backend is the key-value medium contract
type Backend interface {
	// Set writes value under key, replacing any previous value
	Set(ctx context.Context, key string, value []byte) error

	// Get returns the value under key; found is false when the key is absent
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteMany removes every key in keys. Absent keys are ignored.
	DeleteMany(ctx context.Context, keys []string) error

	// ListAllKeys returns every key in the backend, owned or not
	ListAllKeys(ctx context.Context) ([]string, error)

	// Close releases the backend's resources
	Close() error
}

// Kind names a backend implementation
type Kind string

const (
	KindMemory Kind = "memory"
	KindPebble Kind = "pebble"
	KindSQLite Kind = "sqlite"
	KindRedis  Kind = "redis"
)

// ParseKind parses a backend kind name (case-insensitive)
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindMemory, KindPebble, KindSQLite, KindRedis:
		return k, nil
	default:
		return "", fmt.Errorf("unknown backend kind: %q", s)
	}
}
