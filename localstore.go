// Package localstore is a namespaced key-value storage engine with
// timestamped entries, optional per-entry expiry, bulk purge of expired
// entries and usage reporting. Values are JSON documents kept in a shared
// backend: memory, Pebble, SQLite or Redis.
//
//	s, err := localstore.Open(ctx, localstore.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer s.Close(ctx)
//
//	err = s.Store().Put(ctx, "session", token, localstore.PutOptions{TTL: localstore.TTLMinutes(30)})
package localstore

import (
	"context"
	"time"

	"github.com/flowmesh/localstore/internal/config"
	"github.com/flowmesh/localstore/internal/storage"
	"github.com/flowmesh/localstore/internal/storage/backend"
	"github.com/flowmesh/localstore/internal/storage/store"
)

type (
	// Storage owns an opened backend and the engine built over it
	Storage = storage.Storage

	// Store is the storage engine
	Store = store.Store

	// StorageConfig selects and configures the backend
	StorageConfig = config.StorageConfig

	// Option configures the engine
	Option = store.Option

	// Observer receives engine events
	Observer = store.Observer

	// Sweeper purges expired entries on an interval
	Sweeper = store.Sweeper

	PutOptions = store.PutOptions
	Info       = store.Info

	BackendError          = store.BackendError
	InvalidKeyError       = store.InvalidKeyError
	InvalidTTLError       = store.InvalidTTLError
	SchemaValidationError = store.SchemaValidationError
	ValueTypeError        = store.ValueTypeError
)

// ErrClosed is returned, wrapped in a BackendError, after the storage is closed
var ErrClosed = backend.ErrClosed

// DefaultConfig returns a configuration for a Pebble database under ./data
func DefaultConfig() StorageConfig {
	return StorageConfig{
		Backend:       string(backend.KindPebble),
		DataDir:       "data",
		Prefix:        store.DefaultPrefix,
		SyncWrites:    true,
		SweepInterval: store.DefaultSweepInterval,
	}
}

// Open opens the configured backend and builds the engine over it
func Open(ctx context.Context, cfg StorageConfig, opts ...Option) (*Storage, error) {
	return storage.NewBuilder().
		WithConfig(cfg).
		WithStoreOptions(opts...).
		Build(ctx)
}

// WithClock replaces the wall clock used for timestamps and expiry checks
func WithClock(now func() time.Time) Option {
	return store.WithClock(now)
}

// WithObserver registers an observer for engine events
func WithObserver(o Observer) Option {
	return store.WithObserver(o)
}

// WithSchema requires values under logical keys starting with keyPrefix to
// satisfy a JSON schema
func WithSchema(keyPrefix string, schemaDefinition []byte) Option {
	return store.WithSchema(keyPrefix, schemaDefinition)
}

// TTLMinutes converts a lifetime in minutes to a TTL
func TTLMinutes(minutes int) time.Duration {
	return store.TTLMinutes(minutes)
}

// GetAs reads key and unmarshals its value into T
func GetAs[T any](ctx context.Context, s *Store, key string) (T, bool, error) {
	return store.GetAs[T](ctx, s, key)
}
