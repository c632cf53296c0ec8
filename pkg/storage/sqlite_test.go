package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestSQLiteStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dir := t.TempDir()
	s, err := OpenSQLiteStorage(context.Background(), filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open sqlite storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoragePointRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStorage(t)

	id, err := s.NewPoint(ctx, Point{1.5, 2.5, 3.5}, map[string]string{"tag": "a"})
	if err != nil {
		t.Fatalf("new point: %v", err)
	}

	got, err := s.GetPoint(ctx, id)
	if err != nil {
		t.Fatalf("get point: %v", err)
	}
	if len(got) != 3 || got[0] != 1.5 {
		t.Fatalf("unexpected point: %+v", got)
	}

	md, err := s.GetMetadata(ctx, id)
	if err != nil || md["tag"] != "a" {
		t.Fatalf("unexpected metadata: %+v err=%v", md, err)
	}

	size, err := s.GetDataSize(ctx)
	if err != nil || size != 1 {
		t.Fatalf("expected data size 1, got %d err=%v", size, err)
	}
}

func TestSQLiteStorageNeighborsAndEntryPoint(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStorage(t)

	a, _ := s.NewPoint(ctx, Point{0, 0}, nil)
	b, _ := s.NewPoint(ctx, Point{1, 1}, nil)

	node := LayerNode{b: 1.41}
	if err := s.UpsertNeighbors(ctx, 0, a, node); err != nil {
		t.Fatalf("upsert neighbors: %v", err)
	}
	got, err := s.GetNeighbors(ctx, 0, a)
	if err != nil || got[b] != 1.41 {
		t.Fatalf("unexpected neighbors: %+v err=%v", got, err)
	}

	if err := s.SetEntryPoint(ctx, a, 2); err != nil {
		t.Fatalf("set entry point: %v", err)
	}
	id, top, ok, err := s.GetEntryPoint(ctx)
	if err != nil || !ok || id != a || top != 2 {
		t.Fatalf("unexpected entry point: id=%d top=%d ok=%v err=%v", id, top, ok, err)
	}

	if err := s.NewNeighbor(ctx, a, 3); err != nil {
		t.Fatalf("new neighbor: %v", err)
	}
	n, err := s.GetNumLayers(ctx)
	if err != nil || n != 4 {
		t.Fatalf("expected num_layers=4, got %d err=%v", n, err)
	}
}

func TestSQLiteStorageMissingPoint(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStorage(t)
	if _, err := s.GetPoint(ctx, 42); err != ErrMissingRecord {
		t.Fatalf("expected ErrMissingRecord, got %v", err)
	}
}
