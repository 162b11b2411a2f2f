// Package namespace maps logical keys onto physical backend keys under a
// fixed prefix, so one engine can find and clear only its own entries in a
// shared key space.
package namespace

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// KeyLister enumerates every key in a backend
type KeyLister interface {
	ListAllKeys(ctx context.Context) ([]string, error)
}

// Router owns the keys that start with its prefix
type Router struct {
	prefix string
}

// New creates a router for prefix. The prefix must be non-empty, otherwise
// the router would claim every key in the backend.
func New(prefix string) (*Router, error) {
	if prefix == "" {
		return nil, fmt.Errorf("namespace prefix cannot be empty")
	}
	return &Router{prefix: prefix}, nil
}

// Prefix returns the namespace prefix
func (r *Router) Prefix() string {
	return r.prefix
}

// PhysicalKey returns the backend key for a logical key
func (r *Router) PhysicalKey(logicalKey string) string {
	return r.prefix + logicalKey
}

// LogicalKey strips the prefix from a physical key it owns
func (r *Router) LogicalKey(physicalKey string) (string, bool) {
	if !r.Owns(physicalKey) {
		return "", false
	}
	return physicalKey[len(r.prefix):], true
}

// Owns reports whether physicalKey belongs to this namespace
func (r *Router) Owns(physicalKey string) bool {
	return strings.HasPrefix(physicalKey, r.prefix)
}

// ListOwnedKeys lists all backend keys and keeps the ones in this namespace.
// The cost is proportional to the backend's total key count.
func (r *Router) ListOwnedKeys(ctx context.Context, lister KeyLister) ([]string, error) {
	all, err := lister.ListAllKeys(ctx)
	if err != nil {
		return nil, err
	}

	owned := make([]string, 0, len(all))
	for _, key := range all {
		if r.Owns(key) {
			owned = append(owned, key)
		}
	}
	sort.Strings(owned)
	return owned, nil
}
