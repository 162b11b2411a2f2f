// Package envelope wraps stored values with their write time and optional
// expiration instant, and converts them to and from the JSON form persisted
// by a backend.
package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"time"
	"unicode/utf8"
)

// Entry is a decoded envelope
type Entry struct {
	// Value is the caller payload as raw JSON
	Value json.RawMessage
	// StoredAt is when the entry was written (millisecond precision)
	StoredAt time.Time
	// ExpiresAt is the expiration instant (nil = never expires)
	ExpiresAt *time.Time
}

// Expired reports whether the entry has an expiration strictly before now
func (e Entry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// wire is the persisted layout. Timestamps are epoch milliseconds; a nil
// ExpiresAt is omitted so that absence is distinct from zero.
type wire struct {
	Value     json.RawMessage `json:"value"`
	StoredAt  *int64          `json:"storedAt"`
	ExpiresAt *int64          `json:"expiresAt,omitempty"`
}

// Encode serializes value into an envelope stamped with now. A positive ttl
// sets the expiration to now+ttl; zero or negative leaves it unset.
func Encode(value any, now time.Time, ttl time.Duration) ([]byte, Entry, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, Entry{}, EncodeError{Err: err}
	}
	// json.Marshal replaces invalid UTF-8 with U+FFFD, which would not
	// round-trip
	if err := checkUTF8(reflect.ValueOf(value)); err != nil {
		return nil, Entry{}, EncodeError{Err: err}
	}
	if !utf8.Valid(payload) {
		return nil, Entry{}, EncodeError{Err: ErrInvalidUTF8}
	}

	storedAtMs := now.UnixMilli()
	w := wire{
		Value:    payload,
		StoredAt: &storedAtMs,
	}
	entry := Entry{
		Value:    payload,
		StoredAt: time.UnixMilli(storedAtMs),
	}

	if ttl > 0 {
		expiresAtMs := storedAtMs + ttl.Milliseconds()
		expiresAt := time.UnixMilli(expiresAtMs)
		w.ExpiresAt = &expiresAtMs
		entry.ExpiresAt = &expiresAt
	}

	data, err := json.Marshal(w)
	if err != nil {
		return nil, Entry{}, EncodeError{Err: err}
	}
	return data, entry, nil
}

// Decode parses persisted bytes back into an Entry
func Decode(data []byte) (Entry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Entry{}, DecodeError{Reason: "empty data"}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var w wire
	if err := dec.Decode(&w); err != nil {
		return Entry{}, DecodeError{Reason: "invalid JSON object", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Entry{}, DecodeError{Reason: "trailing data after envelope"}
	}

	if len(w.Value) == 0 {
		return Entry{}, DecodeError{Reason: "missing value"}
	}
	if w.StoredAt == nil {
		return Entry{}, DecodeError{Reason: "missing storedAt"}
	}

	entry := Entry{
		Value:    w.Value,
		StoredAt: time.UnixMilli(*w.StoredAt),
	}
	if w.ExpiresAt != nil {
		expiresAt := time.UnixMilli(*w.ExpiresAt)
		entry.ExpiresAt = &expiresAt
	}
	return entry, nil
}
