package hnsw

import (
	"errors"
	"fmt"
)

// Sentinel errors for the core's own failure kinds. Storage-shaped failures
// (missing records, unavailable backends) are defined in pkg/storage and
// wrapped by StoreError when they surface through the core.
var (
	ErrDimensionMismatch = errors.New("hnsw: vector dimension mismatch")
	ErrInvalidConfig     = errors.New("hnsw: invalid config")
	ErrEmptyVector       = errors.New("hnsw: empty vector")
)

// StoreError wraps a failure with the operation that produced it, so callers
// can log or branch on Op without parsing message strings.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("hnsw: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
