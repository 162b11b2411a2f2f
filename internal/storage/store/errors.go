package store

import (
	"fmt"
	"time"
)

// BackendError indicates the underlying key-value medium failed
type BackendError struct {
	Op  string
	Key string
	Err error
}

func (e BackendError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("backend %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("backend %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e BackendError) Unwrap() error {
	return e.Err
}

// InvalidKeyError indicates an invalid key was provided
type InvalidKeyError struct {
	Key    string
	Reason string
}

func (e InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid key %q: %s", e.Key, e.Reason)
}

// InvalidTTLError indicates a negative TTL was provided
type InvalidTTLError struct {
	TTL time.Duration
}

func (e InvalidTTLError) Error() string {
	return fmt.Sprintf("invalid ttl %s: must not be negative", e.TTL)
}

// SchemaValidationError indicates a value failed the JSON schema registered
// for its key prefix
type SchemaValidationError struct {
	Key          string
	SchemaPrefix string
	Err          error
}

func (e SchemaValidationError) Error() string {
	return fmt.Sprintf("value for key %s violates schema for prefix %q: %v", e.Key, e.SchemaPrefix, e.Err)
}

func (e SchemaValidationError) Unwrap() error {
	return e.Err
}

// ValueTypeError indicates a stored value does not fit the requested Go type
type ValueTypeError struct {
	Key string
	Err error
}

func (e ValueTypeError) Error() string {
	return fmt.Sprintf("value for key %s has unexpected type: %v", e.Key, e.Err)
}

func (e ValueTypeError) Unwrap() error {
	return e.Err
}
