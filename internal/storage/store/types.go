package store

import (
	"time"
)

// Operation names used for logs, spans and metrics
const (
	OpPut          = "put"
	OpGet          = "get"
	OpRemove       = "remove"
	OpClear        = "clear"
	OpInfo         = "info"
	OpPurgeExpired = "purge_expired"
)

// PutOptions specifies options for Put operations
type PutOptions struct {
	// TTL is the time-to-live duration (0 = no expiration)
	TTL time.Duration
}

// DefaultPutOptions returns default put options
func DefaultPutOptions() PutOptions {
	return PutOptions{
		TTL: 0, // No expiration by default
	}
}

// TTLMinutes converts a whole number of minutes into a TTL
func TTLMinutes(minutes int) time.Duration {
	return time.Duration(minutes) * time.Minute
}

// Info is an aggregate snapshot of the namespace
type Info struct {
	// TotalItems counts owned entries, including ones that fail to decode
	TotalItems int `json:"totalItems"`
	// TotalSize is the sum of the stored byte lengths
	TotalSize int64 `json:"totalSize"`
	// ExpiredItems counts decodable entries whose expiration has passed
	ExpiredItems int `json:"expiredItems"`
}
