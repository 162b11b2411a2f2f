package store

import (
	"context"
	"encoding/json"
)

// PreferencePrefix namespaces user preferences inside the store
const PreferencePrefix = "pref_"

// SetPreference stores a non-expiring user preference
func (s *Store) SetPreference(ctx context.Context, name string, value any) error {
	return s.Put(ctx, PreferencePrefix+name, value, DefaultPutOptions())
}

// Preference reads a user preference
func (s *Store) Preference(ctx context.Context, name string) (json.RawMessage, bool, error) {
	return s.Get(ctx, PreferencePrefix+name)
}
