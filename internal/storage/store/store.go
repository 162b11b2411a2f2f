// Package store is the storage engine: it wraps values in timestamped
// envelopes, keeps them under a private namespace of a shared key-value
// backend, and implements lazy expiration, bulk purge and usage reporting.
//
// The engine keeps no per-entry state between calls; the backend is the only
// source of truth. Multi-key operations enumerate the namespace and then act
// per key, so they are not atomic with respect to concurrent writers.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/flowmesh/localstore/internal/logger"
	"github.com/flowmesh/localstore/internal/storage/backend"
	"github.com/flowmesh/localstore/internal/storage/envelope"
	"github.com/flowmesh/localstore/internal/storage/namespace"
	"github.com/flowmesh/localstore/internal/tracing"
	"github.com/rs/zerolog"
)

// DefaultPrefix is the namespace prefix used when none is configured
const DefaultPrefix = "localstore_"

// Store is a namespaced view over a backend
type Store struct {
	backend  backend.Backend
	router   *namespace.Router
	schemas  *schemaRegistry
	observer Observer
	now      func() time.Time
	log      zerolog.Logger
}

// Option configures a Store
type Option func(*Store) error

// WithClock replaces the wall clock used for timestamps and expiry checks
func WithClock(now func() time.Time) Option {
	return func(s *Store) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		s.now = now
		return nil
	}
}

// WithObserver registers an observer for engine events
func WithObserver(o Observer) Option {
	return func(s *Store) error {
		if o == nil {
			return fmt.Errorf("observer cannot be nil")
		}
		s.observer = o
		return nil
	}
}

// WithSchema requires values stored under logical keys starting with
// keyPrefix to satisfy a JSON schema. The longest matching prefix wins.
func WithSchema(keyPrefix string, schemaDefinition []byte) Option {
	return func(s *Store) error {
		if err := s.schemas.register(keyPrefix, schemaDefinition); err != nil {
			return fmt.Errorf("schema for prefix %q: %w", keyPrefix, err)
		}
		return nil
	}
}

// New creates a Store over b using prefix as its namespace
func New(b backend.Backend, prefix string, opts ...Option) (*Store, error) {
	if b == nil {
		return nil, fmt.Errorf("backend cannot be nil")
	}
	router, err := namespace.New(prefix)
	if err != nil {
		return nil, err
	}

	s := &Store{
		backend:  b,
		router:   router,
		schemas:  newSchemaRegistry(),
		observer: nopObserver{},
		now:      time.Now,
		log:      logger.WithComponent("store").With().Str("namespace", prefix).Logger(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Prefix returns the namespace prefix
func (s *Store) Prefix() string {
	return s.router.Prefix()
}

// RegisterSchema adds or replaces a value schema after construction
func (s *Store) RegisterSchema(keyPrefix string, schemaDefinition []byte) error {
	return WithSchema(keyPrefix, schemaDefinition)(s)
}

func validateKey(key string) error {
	if key == "" {
		return InvalidKeyError{Key: key, Reason: "key cannot be empty"}
	}
	return nil
}

// finish reports an operation to the observer
func (s *Store) finish(op string, start time.Time, err error) {
	s.observer.OperationCompleted(op, time.Since(start), err)
}

// Put writes value under key, replacing any previous entry
func (s *Store) Put(ctx context.Context, key string, value any, options PutOptions) (err error) {
	ctx, span := startSpan(ctx, OpPut, s.Prefix(), key)
	start := time.Now()
	defer func() {
		endSpan(span, err)
		s.finish(OpPut, start, err)
	}()

	if err := validateKey(key); err != nil {
		return err
	}
	if options.TTL < 0 {
		return InvalidTTLError{TTL: options.TTL}
	}

	data, entry, err := envelope.Encode(value, s.now(), options.TTL)
	if err != nil {
		return err
	}
	if err := s.schemas.validate(key, entry.Value); err != nil {
		return err
	}

	physicalKey := s.router.PhysicalKey(key)
	if err := s.backend.Set(ctx, physicalKey, data); err != nil {
		return BackendError{Op: "set", Key: physicalKey, Err: err}
	}
	return nil
}

// Get returns the value stored under key. found is false when the key is
// absent, expired, or holds data that is not a valid envelope. Expired
// entries are deleted as a side effect.
func (s *Store) Get(ctx context.Context, key string) (value json.RawMessage, found bool, err error) {
	ctx, span := startSpan(ctx, OpGet, s.Prefix(), key)
	start := time.Now()
	defer func() {
		endSpan(span, err)
		s.finish(OpGet, start, err)
	}()

	if err := validateKey(key); err != nil {
		return nil, false, err
	}

	physicalKey := s.router.PhysicalKey(key)
	data, ok, err := s.backend.Get(ctx, physicalKey)
	if err != nil {
		return nil, false, BackendError{Op: "get", Key: physicalKey, Err: err}
	}
	if !ok {
		return nil, false, nil
	}

	entry, err := envelope.Decode(data)
	if err != nil {
		s.reportDecodeFailure(OpGet, physicalKey, err)
		return nil, false, nil
	}

	if entry.Expired(s.now()) {
		span.SetAttributes(attribute.Bool(tracing.AttrExpired, true))
		if err := s.backend.Delete(ctx, physicalKey); err != nil {
			return nil, false, BackendError{Op: "delete", Key: physicalKey, Err: err}
		}
		s.observer.ExpiredRemoved(OpGet, 1)
		s.log.Debug().Str("key", key).Msg("Removed expired entry on read")
		return nil, false, nil
	}

	span.SetAttributes(attribute.Bool(tracing.AttrFound, true))
	return entry.Value, true, nil
}

// GetAs reads key and unmarshals its value into T
func GetAs[T any](ctx context.Context, s *Store, key string) (T, bool, error) {
	var zero T

	raw, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return zero, false, err
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false, ValueTypeError{Key: key, Err: err}
	}
	return v, true, nil
}

// Remove deletes key. Removing an absent key is not an error.
func (s *Store) Remove(ctx context.Context, key string) (err error) {
	ctx, span := startSpan(ctx, OpRemove, s.Prefix(), key)
	start := time.Now()
	defer func() {
		endSpan(span, err)
		s.finish(OpRemove, start, err)
	}()

	if err := validateKey(key); err != nil {
		return err
	}

	physicalKey := s.router.PhysicalKey(key)
	if err := s.backend.Delete(ctx, physicalKey); err != nil {
		return BackendError{Op: "delete", Key: physicalKey, Err: err}
	}
	return nil
}

// Clear deletes every entry in the namespace and nothing outside it
func (s *Store) Clear(ctx context.Context) (err error) {
	ctx, span := startSpan(ctx, OpClear, s.Prefix(), "")
	start := time.Now()
	defer func() {
		endSpan(span, err)
		s.finish(OpClear, start, err)
	}()

	keys, err := s.listOwnedKeys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	if err := s.backend.DeleteMany(ctx, keys); err != nil {
		return BackendError{Op: "delete_many", Err: err}
	}
	s.log.Debug().Int("count", len(keys)).Msg("Cleared namespace")
	return nil
}

// Info computes usage for the namespace. It never deletes anything.
func (s *Store) Info(ctx context.Context) (info Info, err error) {
	ctx, span := startSpan(ctx, OpInfo, s.Prefix(), "")
	start := time.Now()
	defer func() {
		endSpan(span, err)
		s.finish(OpInfo, start, err)
	}()

	keys, err := s.listOwnedKeys(ctx)
	if err != nil {
		return Info{}, err
	}

	now := s.now()
	for _, physicalKey := range keys {
		data, ok, err := s.backend.Get(ctx, physicalKey)
		if err != nil {
			return Info{}, BackendError{Op: "get", Key: physicalKey, Err: err}
		}
		// Deleted between listing and reading
		if !ok {
			continue
		}

		info.TotalItems++
		info.TotalSize += int64(len(data))

		entry, err := envelope.Decode(data)
		if err != nil {
			s.reportDecodeFailure(OpInfo, physicalKey, err)
			continue
		}
		if entry.Expired(now) {
			info.ExpiredItems++
		}
	}

	span.SetAttributes(
		attribute.Int(tracing.AttrItemCount, info.TotalItems),
		attribute.Int64(tracing.AttrBytes, info.TotalSize),
	)
	s.observer.InfoComputed(info.TotalItems, info.TotalSize, info.ExpiredItems)
	return info, nil
}

// PurgeExpired deletes every expired entry and returns how many were removed.
// Entries that fail to decode are left in place.
func (s *Store) PurgeExpired(ctx context.Context) (removed int, err error) {
	ctx, span := startSpan(ctx, OpPurgeExpired, s.Prefix(), "")
	start := time.Now()
	defer func() {
		endSpan(span, err)
		s.finish(OpPurgeExpired, start, err)
	}()

	keys, err := s.listOwnedKeys(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	var expired []string
	for _, physicalKey := range keys {
		data, ok, err := s.backend.Get(ctx, physicalKey)
		if err != nil {
			return 0, BackendError{Op: "get", Key: physicalKey, Err: err}
		}
		if !ok {
			continue
		}

		entry, err := envelope.Decode(data)
		if err != nil {
			s.reportDecodeFailure(OpPurgeExpired, physicalKey, err)
			continue
		}
		if entry.Expired(now) {
			expired = append(expired, physicalKey)
		}
	}

	if len(expired) == 0 {
		return 0, nil
	}
	if err := s.backend.DeleteMany(ctx, expired); err != nil {
		return 0, BackendError{Op: "delete_many", Err: err}
	}

	span.SetAttributes(attribute.Int(tracing.AttrRemovedCount, len(expired)))
	s.observer.ExpiredRemoved(OpPurgeExpired, len(expired))
	s.log.Debug().Int("removed", len(expired)).Int("scanned", len(keys)).Msg("Purged expired entries")
	return len(expired), nil
}

func (s *Store) listOwnedKeys(ctx context.Context) ([]string, error) {
	keys, err := s.router.ListOwnedKeys(ctx, s.backend)
	if err != nil {
		return nil, BackendError{Op: "list_keys", Err: err}
	}
	return keys, nil
}

func (s *Store) reportDecodeFailure(op, physicalKey string, err error) {
	s.observer.DecodeFailed(op, physicalKey, err)

	var decodeErr envelope.DecodeError
	reason := err.Error()
	if errors.As(err, &decodeErr) {
		reason = decodeErr.Reason
	}
	s.log.Warn().
		Err(err).
		Str("op", op).
		Str("physical_key", physicalKey).
		Str("reason", reason).
		Msg("Ignoring malformed entry")
}
