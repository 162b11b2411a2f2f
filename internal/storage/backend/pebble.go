package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/flowmesh/localstore/internal/logger"
	"github.com/rs/zerolog"
)

// Pebble is an on-disk backend backed by a single Pebble database
type Pebble struct {
	db   *pebble.DB
	dir  string
	sync bool
	log  zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// PebbleOptions configures a Pebble backend
type PebbleOptions struct {
	// Sync makes every write durable before returning
	Sync bool
}

// OpenPebble opens (creating if needed) a Pebble database in dir
func OpenPebble(dir string, opts PebbleOptions) (*Pebble, error) {
	if dir == "" {
		return nil, fmt.Errorf("pebble directory cannot be empty")
	}
	if err := ensureDirectory(dir); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open Pebble DB: %w", err)
	}

	log := logger.WithComponent("backend.pebble")
	log.Debug().Str("dir", dir).Msg("Opened Pebble DB")

	return &Pebble{
		db:   db,
		dir:  dir,
		sync: opts.Sync,
		log:  log,
	}, nil
}

func (p *Pebble) writeOptions() *pebble.WriteOptions {
	if p.sync {
		return pebble.Sync
	}
	return pebble.NoSync
}

// acquire holds the read lock for the duration of an operation so Close
// cannot release the DB underneath it
func (p *Pebble) acquire() (func(), error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, ErrClosed
	}
	return p.mu.RUnlock, nil
}

// Set writes a key
func (p *Pebble) Set(ctx context.Context, key string, value []byte) error {
	release, err := p.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := p.db.Set([]byte(key), value, p.writeOptions()); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

// Get reads a key
func (p *Pebble) Get(ctx context.Context, key string) ([]byte, bool, error) {
	release, err := p.acquire()
	if err != nil {
		return nil, false, err
	}
	defer release()

	valueBytes, closer, err := p.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get key: %w", err)
	}
	defer closer.Close()

	// Copy value bytes (closer will free the original)
	valueCopy := make([]byte, len(valueBytes))
	copy(valueCopy, valueBytes)
	return valueCopy, true, nil
}

// Delete removes a key
func (p *Pebble) Delete(ctx context.Context, key string) error {
	release, err := p.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := p.db.Delete([]byte(key), p.writeOptions()); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// DeleteMany removes keys in a single batch commit
func (p *Pebble) DeleteMany(ctx context.Context, keys []string) error {
	release, err := p.acquire()
	if err != nil {
		return err
	}
	defer release()

	if len(keys) == 0 {
		return nil
	}

	batch := p.db.NewBatch()
	defer batch.Close()

	for _, key := range keys {
		if err := batch.Delete([]byte(key), nil); err != nil {
			return fmt.Errorf("failed to stage delete: %w", err)
		}
	}
	if err := batch.Commit(p.writeOptions()); err != nil {
		return fmt.Errorf("failed to commit delete batch: %w", err)
	}
	return nil
}

// ListAllKeys iterates the whole database
func (p *Pebble) ListAllKeys(ctx context.Context) ([]string, error) {
	release, err := p.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	iter, err := p.db.NewIter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	var keys []string
	for iter.First(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate keys: %w", err)
	}
	return keys, nil
}

// Close flushes and closes the database
func (p *Pebble) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if err := p.db.Close(); err != nil {
		p.log.Error().Err(err).Str("dir", p.dir).Msg("Failed to close Pebble DB")
		return err
	}
	return nil
}

// ensureDirectory ensures a directory exists
func ensureDirectory(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0755)
	}
	return nil
}
