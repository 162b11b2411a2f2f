package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runConformance exercises the Backend contract. Every key it writes starts
// with keyPrefix so it can run against shared databases.
func runConformance(t *testing.T, open func(t *testing.T) Backend, keyPrefix string) {
	ctx := context.Background()

	// ownKeys filters ListAllKeys down to keys written by this suite
	ownKeys := func(t *testing.T, b Backend) []string {
		all, err := b.ListAllKeys(ctx)
		require.NoError(t, err)
		var keys []string
		for _, k := range all {
			if strings.HasPrefix(k, keyPrefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		return keys
	}

	t.Run("SetGet", func(t *testing.T) {
		b := open(t)
		key := keyPrefix + "set-get"

		require.NoError(t, b.Set(ctx, key, []byte(`{"value":1}`)))

		value, found, err := b.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte(`{"value":1}`), value)
	})

	t.Run("GetAbsent", func(t *testing.T) {
		b := open(t)

		value, found, err := b.Get(ctx, keyPrefix+"missing")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, value)
	})

	t.Run("SetReplaces", func(t *testing.T) {
		b := open(t)
		key := keyPrefix + "replace"

		require.NoError(t, b.Set(ctx, key, []byte("first")))
		require.NoError(t, b.Set(ctx, key, []byte("second")))

		value, found, err := b.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte("second"), value)
	})

	t.Run("DeleteIdempotent", func(t *testing.T) {
		b := open(t)
		key := keyPrefix + "delete"

		require.NoError(t, b.Set(ctx, key, []byte("x")))
		require.NoError(t, b.Delete(ctx, key))
		require.NoError(t, b.Delete(ctx, key))

		_, found, err := b.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("DeleteMany", func(t *testing.T) {
		b := open(t)

		for i := 0; i < 5; i++ {
			require.NoError(t, b.Set(ctx, fmt.Sprintf("%sbulk-%d", keyPrefix, i), []byte("x")))
		}

		err := b.DeleteMany(ctx, []string{
			keyPrefix + "bulk-0",
			keyPrefix + "bulk-2",
			keyPrefix + "bulk-4",
			keyPrefix + "bulk-absent",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{keyPrefix + "bulk-1", keyPrefix + "bulk-3"}, ownKeys(t, b))

		require.NoError(t, b.DeleteMany(ctx, nil))
	})

	t.Run("ListAllKeys", func(t *testing.T) {
		b := open(t)
		assert.Empty(t, ownKeys(t, b))

		require.NoError(t, b.Set(ctx, keyPrefix+"b", []byte("2")))
		require.NoError(t, b.Set(ctx, keyPrefix+"a", []byte("1")))
		assert.Equal(t, []string{keyPrefix + "a", keyPrefix + "b"}, ownKeys(t, b))
	})

	t.Run("ConcurrentWrites", func(t *testing.T) {
		b := open(t)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, b.Set(ctx, fmt.Sprintf("%sconcurrent-%d", keyPrefix, i), []byte("x")))
			}(i)
		}
		wg.Wait()

		assert.Len(t, ownKeys(t, b), 8)
	})
}

func TestMemory_Conformance(t *testing.T) {
	runConformance(t, func(t *testing.T) Backend {
		b := NewMemory()
		t.Cleanup(func() { _ = b.Close() })
		return b
	}, "test_")
}

func TestPebble_Conformance(t *testing.T) {
	runConformance(t, func(t *testing.T) Backend {
		b, err := OpenPebble(filepath.Join(t.TempDir(), "db"), PebbleOptions{})
		require.NoError(t, err)
		t.Cleanup(func() { assert.NoError(t, b.Close()) })
		return b
	}, "test_")
}

func TestSQLite_Conformance(t *testing.T) {
	runConformance(t, func(t *testing.T) Backend {
		b, err := OpenSQLite(filepath.Join(t.TempDir(), "store.db"))
		require.NoError(t, err)
		t.Cleanup(func() { assert.NoError(t, b.Close()) })
		return b
	}, "test_")
}

func TestRedis_Conformance(t *testing.T) {
	addr := os.Getenv("LOCALSTORE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LOCALSTORE_TEST_REDIS_ADDR not set")
	}

	runConformance(t, func(t *testing.T) Backend {
		ctx := context.Background()
		b, err := OpenRedis(ctx, RedisOptions{Addr: addr})
		require.NoError(t, err)

		// Each subtest gets its own keyspace slice on the shared server
		prefix := "localstore-test-" + uuid.NewString() + ":"
		scoped := &prefixedBackend{Backend: b, prefix: prefix}
		t.Cleanup(func() {
			keys, err := b.ListAllKeys(ctx)
			if err == nil {
				var mine []string
				for _, k := range keys {
					if strings.HasPrefix(k, prefix) {
						mine = append(mine, k)
					}
				}
				_ = b.DeleteMany(ctx, mine)
			}
			_ = b.Close()
		})
		return scoped
	}, "test_")
}

// prefixedBackend isolates a test inside a shared Redis
type prefixedBackend struct {
	Backend
	prefix string
}

func (p *prefixedBackend) Set(ctx context.Context, key string, value []byte) error {
	return p.Backend.Set(ctx, p.prefix+key, value)
}

func (p *prefixedBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return p.Backend.Get(ctx, p.prefix+key)
}

func (p *prefixedBackend) Delete(ctx context.Context, key string) error {
	return p.Backend.Delete(ctx, p.prefix+key)
}

func (p *prefixedBackend) DeleteMany(ctx context.Context, keys []string) error {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = p.prefix + k
	}
	return p.Backend.DeleteMany(ctx, prefixed)
}

func (p *prefixedBackend) ListAllKeys(ctx context.Context) ([]string, error) {
	all, err := p.Backend.ListAllKeys(ctx)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, k := range all {
		if strings.HasPrefix(k, p.prefix) {
			keys = append(keys, strings.TrimPrefix(k, p.prefix))
		}
	}
	return keys, nil
}

func (p *prefixedBackend) Close() error {
	return nil
}

func TestMemory_ClosedBackend(t *testing.T) {
	ctx := context.Background()
	b := NewMemory()
	require.NoError(t, b.Set(ctx, "k", []byte("v")))
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	assert.ErrorIs(t, b.Set(ctx, "k", []byte("v")), ErrClosed)
	_, _, err := b.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, b.Delete(ctx, "k"), ErrClosed)
	assert.ErrorIs(t, b.DeleteMany(ctx, []string{"k"}), ErrClosed)
	_, err = b.ListAllKeys(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	b := NewMemory(WithShardCount(3))

	value := []byte("original")
	require.NoError(t, b.Set(ctx, "k", value))
	value[0] = 'X'

	got, found, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("original"), got)

	got[0] = 'Y'
	again, _, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
	assert.Equal(t, 1, b.Len())
}

func TestNextPowerOf2(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {16, 16}, {17, 32},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextPowerOf2(tt.in), "nextPowerOf2(%d)", tt.in)
	}
}

func TestPebble_ClosedBackend(t *testing.T) {
	ctx := context.Background()
	b, err := OpenPebble(filepath.Join(t.TempDir(), "db"), PebbleOptions{Sync: true})
	require.NoError(t, err)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	assert.ErrorIs(t, b.Set(ctx, "k", []byte("v")), ErrClosed)
	_, err = b.ListAllKeys(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSQLite_ClosedBackend(t *testing.T) {
	ctx := context.Background()
	b, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	assert.ErrorIs(t, b.Set(ctx, "k", []byte("v")), ErrClosed)
	_, _, err = b.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, b.Delete(ctx, "k"), ErrClosed)
	assert.ErrorIs(t, b.DeleteMany(ctx, []string{"k"}), ErrClosed)
	_, err = b.ListAllKeys(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPebble_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "db")

	b, err := OpenPebble(dir, PebbleOptions{Sync: true})
	require.NoError(t, err)
	require.NoError(t, b.Set(ctx, "app_theme", []byte(`"dark"`)))
	require.NoError(t, b.Close())

	reopened, err := OpenPebble(dir, PebbleOptions{})
	require.NoError(t, err)
	defer reopened.Close()

	value, found, err := reopened.Get(ctx, "app_theme")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte(`"dark"`), value)
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "store.db")

	b, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, b.Set(ctx, "app_theme", []byte(`"dark"`)))
	require.NoError(t, b.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	value, found, err := reopened.Get(ctx, "app_theme")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte(`"dark"`), value)
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite("  ")
	assert.Error(t, err)
}

func TestOpenPebble_EmptyDir(t *testing.T) {
	_, err := OpenPebble("", PebbleOptions{})
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	for _, name := range []string{"memory", "PEBBLE", " sqlite ", "redis"} {
		_, err := ParseKind(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseKind("etcd")
	assert.Error(t, err)
}
