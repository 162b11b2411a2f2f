package store

import "time"

// Observer receives engine events. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	// OperationCompleted is called once per public operation
	OperationCompleted(op string, duration time.Duration, err error)

	// DecodeFailed reports a stored value that is not a valid envelope
	DecodeFailed(op, physicalKey string, err error)

	// ExpiredRemoved reports entries physically deleted because they expired
	ExpiredRemoved(op string, count int)

	// InfoComputed reports the result of Info
	InfoComputed(totalItems int, totalSize int64, expiredItems int)
}

type nopObserver struct{}

func (nopObserver) OperationCompleted(string, time.Duration, error) {}
func (nopObserver) DecodeFailed(string, string, error)              {}
func (nopObserver) ExpiredRemoved(string, int)                      {}
func (nopObserver) InfoComputed(int, int64, int)                    {}
