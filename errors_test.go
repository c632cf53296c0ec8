package hnsw

import (
	"errors"
	"testing"
)

func TestWrapErrorNil(t *testing.T) {
	if err := wrapError("op", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestStoreErrorIsAndUnwrap(t *testing.T) {
	err := wrapError("insert", ErrDimensionMismatch)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected errors.Is to match sentinel, got %v", err)
	}

	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("expected errors.As to find *StoreError")
	}
	if se.Op != "insert" {
		t.Fatalf("expected op=insert, got %q", se.Op)
	}
}
