package backend

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultMemoryShards = 16

// memoryShard is one lock-protected slice of the key space
type memoryShard struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// Memory is an in-process backend. It is the default for tests and for
// callers that only need state for the lifetime of the process.
type Memory struct {
	shards    []memoryShard
	shardMask uint64

	mu     sync.RWMutex
	closed bool
}

// MemoryOption configures a Memory backend
type MemoryOption func(*Memory)

// WithShardCount sets the shard count, rounded up to a power of two
func WithShardCount(count int) MemoryOption {
	return func(m *Memory) {
		if count > 0 {
			n := nextPowerOf2(count)
			m.shards = make([]memoryShard, n)
			m.shardMask = uint64(n - 1)
		}
	}
}

// NewMemory creates an empty in-memory backend
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		shards:    make([]memoryShard, defaultMemoryShards),
		shardMask: defaultMemoryShards - 1,
	}
	for _, opt := range opts {
		opt(m)
	}
	for i := range m.shards {
		m.shards[i].data = make(map[string][]byte)
	}
	return m
}

func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

func (m *Memory) shardFor(key string) *memoryShard {
	return &m.shards[xxhash.Sum64String(key)&m.shardMask]
}

func (m *Memory) checkOpen() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

// Set stores a copy of value
func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	if err := m.checkOpen(); err != nil {
		return err
	}

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	sh := m.shardFor(key)
	sh.mu.Lock()
	sh.data[key] = valueCopy
	sh.mu.Unlock()
	return nil
}

// Get returns a copy of the stored value
func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := m.checkOpen(); err != nil {
		return nil, false, err
	}

	sh := m.shardFor(key)
	sh.mu.RLock()
	value, ok := sh.data[key]
	sh.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	return valueCopy, true, nil
}

// Delete removes key if present
func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := m.checkOpen(); err != nil {
		return err
	}

	sh := m.shardFor(key)
	sh.mu.Lock()
	delete(sh.data, key)
	sh.mu.Unlock()
	return nil
}

// DeleteMany removes every key in keys
func (m *Memory) DeleteMany(ctx context.Context, keys []string) error {
	if err := m.checkOpen(); err != nil {
		return err
	}

	for _, key := range keys {
		sh := m.shardFor(key)
		sh.mu.Lock()
		delete(sh.data, key)
		sh.mu.Unlock()
	}
	return nil
}

// ListAllKeys returns all keys across shards in no particular order
func (m *Memory) ListAllKeys(ctx context.Context) ([]string, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	var keys []string
	for i := range m.shards {
		sh := &m.shards[i]
		sh.mu.RLock()
		for key := range sh.data {
			keys = append(keys, key)
		}
		sh.mu.RUnlock()
	}
	return keys, nil
}

// Len returns the number of stored keys
func (m *Memory) Len() int {
	n := 0
	for i := range m.shards {
		sh := &m.shards[i]
		sh.mu.RLock()
		n += len(sh.data)
		sh.mu.RUnlock()
	}
	return n
}

// Close marks the backend closed and drops its data
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for i := range m.shards {
		sh := &m.shards[i]
		sh.mu.Lock()
		sh.data = make(map[string][]byte)
		sh.mu.Unlock()
	}
	return nil
}
