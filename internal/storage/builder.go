package storage

import (
	"context"
	"fmt"

	"github.com/flowmesh/localstore/internal/config"
	"github.com/flowmesh/localstore/internal/logger"
	"github.com/flowmesh/localstore/internal/storage/backend"
	"github.com/flowmesh/localstore/internal/storage/store"
	"github.com/rs/zerolog"
)

// Builder provides a fluent interface for building Storage instances
type Builder struct {
	config   config.StorageConfig
	backend  backend.Backend
	observer store.Observer
	options  []store.Option
	log      zerolog.Logger
}

// NewBuilder creates a new Storage builder with an in-memory backend
func NewBuilder() *Builder {
	return &Builder{
		config: config.StorageConfig{
			Backend:       string(backend.KindMemory),
			Prefix:        store.DefaultPrefix,
			SweepInterval: store.DefaultSweepInterval,
		},
		log: logger.WithComponent("storage.builder"),
	}
}

// WithConfig sets the configuration
func (b *Builder) WithConfig(cfg config.StorageConfig) *Builder {
	b.config = cfg
	return b
}

// WithBackend uses an already opened backend instead of opening one from
// the configuration. The built Storage takes ownership of it.
func (b *Builder) WithBackend(be backend.Backend) *Builder {
	b.backend = be
	return b
}

// WithObserver sets the engine observer (optional)
func (b *Builder) WithObserver(o store.Observer) *Builder {
	b.observer = o
	return b
}

// WithStoreOptions appends engine options such as clocks and schemas
func (b *Builder) WithStoreOptions(opts ...store.Option) *Builder {
	b.options = append(b.options, opts...)
	return b
}

// Build opens the backend and creates the engine over it
func (b *Builder) Build(ctx context.Context) (*Storage, error) {
	kind, err := backend.ParseKind(b.config.Backend)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	be := b.backend
	var paths *StoragePaths
	if be == nil {
		be, paths, err = openBackend(ctx, kind, b.config)
		if err != nil {
			return nil, err
		}
	}

	opts := append([]store.Option(nil), b.options...)
	if b.observer != nil {
		opts = append(opts, store.WithObserver(b.observer))
	}

	prefix := b.config.Prefix
	if prefix == "" {
		prefix = store.DefaultPrefix
	}

	engine, err := store.New(be, prefix, opts...)
	if err != nil {
		if closeErr := be.Close(); closeErr != nil {
			b.log.Error().Err(closeErr).Msg("Failed to close backend after build error")
		}
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	storage := &Storage{
		kind:    kind,
		paths:   paths,
		backend: be,
		store:   engine,
		sweeper: store.NewSweeper(engine, b.config.SweepInterval),
		log:     logger.WithComponent("storage"),
	}

	b.log.Info().
		Str("backend", string(kind)).
		Str("prefix", prefix).
		Msg("Storage built successfully")

	return storage, nil
}

func openBackend(ctx context.Context, kind backend.Kind, cfg config.StorageConfig) (backend.Backend, *StoragePaths, error) {
	switch kind {
	case backend.KindMemory:
		return backend.NewMemory(), nil, nil
	case backend.KindPebble:
		paths, err := InitDirectories(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize directories: %w", err)
		}
		db, err := backend.OpenPebble(paths.PebbleDir, backend.PebbleOptions{Sync: cfg.SyncWrites})
		if err != nil {
			return nil, nil, err
		}
		return db, paths, nil
	case backend.KindSQLite:
		paths, err := InitDirectories(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize directories: %w", err)
		}
		db, err := backend.OpenSQLite(paths.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return db, paths, nil
	case backend.KindRedis:
		client, err := backend.OpenRedis(ctx, backend.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported backend: %s", kind)
	}
}
