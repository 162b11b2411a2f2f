// Package storage assembles a configured backend and the storage engine
// into one closeable unit.
package storage

import (
	"context"
	"sync"

	"github.com/flowmesh/localstore/internal/storage/backend"
	"github.com/flowmesh/localstore/internal/storage/store"
	"github.com/rs/zerolog"
)

// Storage owns a backend and the engine built over it
type Storage struct {
	kind    backend.Kind
	paths   *StoragePaths
	backend backend.Backend
	store   *store.Store
	sweeper *store.Sweeper
	log     zerolog.Logger
	mu      sync.Mutex
	closed  bool
}

// Store returns the storage engine
func (s *Storage) Store() *store.Store {
	return s.store
}

// Backend returns the underlying backend
func (s *Storage) Backend() backend.Backend {
	return s.backend
}

// Kind returns the backend kind
func (s *Storage) Kind() backend.Kind {
	return s.kind
}

// Paths returns the storage paths, nil for backends without local files
func (s *Storage) Paths() *StoragePaths {
	return s.paths
}

// Sweeper returns the expired-entry sweeper. It is not started automatically.
func (s *Storage) Sweeper() *store.Sweeper {
	return s.sweeper
}

// Close stops the sweeper and closes the backend
func (s *Storage) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.log.Info().Msg("Closing storage...")

	s.sweeper.Stop()

	var lastErr error
	if err := s.backend.Close(); err != nil {
		s.log.Error().Err(err).Msg("Failed to close backend")
		lastErr = err
	}

	s.closed = true
	s.log.Info().Msg("Storage closed")

	return lastErr
}
