package envelope

import "fmt"

// EncodeError indicates a value could not be serialized into an envelope
type EncodeError struct {
	Err error
}

func (e EncodeError) Error() string {
	return fmt.Sprintf("failed to encode envelope: %v", e.Err)
}

func (e EncodeError) Unwrap() error {
	return e.Err
}

// DecodeError indicates persisted bytes are not a well-formed envelope
type DecodeError struct {
	Reason string
	Err    error
}

func (e DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed envelope: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed envelope: %s", e.Reason)
}

func (e DecodeError) Unwrap() error {
	return e.Err
}
