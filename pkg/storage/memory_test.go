package storage

import (
	"context"
	"testing"
)

func TestMemoryStorageNewPointAssignsIDs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	id1, err := s.NewPoint(ctx, Point{1, 2}, nil)
	if err != nil {
		t.Fatalf("new point: %v", err)
	}
	id2, err := s.NewPoint(ctx, Point{3, 4}, map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("new point: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected distinct ids, got %d and %d", id1, id2)
	}

	size, err := s.GetDataSize(ctx)
	if err != nil || size != 2 {
		t.Fatalf("expected datasize 2, got %d err=%v", size, err)
	}

	md, err := s.GetMetadata(ctx, id2)
	if err != nil || md["k"] != "v" {
		t.Fatalf("expected metadata k=v, got %+v err=%v", md, err)
	}
}

func TestMemoryStorageMissingRecord(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	if _, err := s.GetPoint(ctx, 999); err != ErrMissingRecord {
		t.Fatalf("expected ErrMissingRecord, got %v", err)
	}
}

func TestMemoryStorageNeighborsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	a, _ := s.NewPoint(ctx, Point{0, 0}, nil)
	b, _ := s.NewPoint(ctx, Point{1, 1}, nil)

	node := LayerNode{b: 1.41}
	if err := s.UpsertNeighbors(ctx, 0, a, node); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.GetNeighbors(ctx, 0, a)
	if err != nil {
		t.Fatalf("get neighbors: %v", err)
	}
	if got[b] != 1.41 {
		t.Fatalf("expected neighbor distance 1.41, got %+v", got)
	}

	// mutating the returned map must not affect stored state.
	got[b] = 99
	got2, _ := s.GetNeighbors(ctx, 0, a)
	if got2[b] != 1.41 {
		t.Fatalf("expected stored copy to be unaffected, got %+v", got2)
	}
}

func TestMemoryStorageEntryPointAndNumLayers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	if _, _, ok, err := s.GetEntryPoint(ctx); err != nil || ok {
		t.Fatalf("expected no entry point initially, ok=%v err=%v", ok, err)
	}

	if err := s.SetEntryPoint(ctx, 5, 2); err != nil {
		t.Fatalf("set entry point: %v", err)
	}
	id, top, ok, err := s.GetEntryPoint(ctx)
	if err != nil || !ok || id != 5 || top != 2 {
		t.Fatalf("unexpected entry point state: id=%d top=%d ok=%v err=%v", id, top, ok, err)
	}

	if err := s.NewNeighbor(ctx, 5, 3); err != nil {
		t.Fatalf("new neighbor: %v", err)
	}
	n, err := s.GetNumLayers(ctx)
	if err != nil || n != 4 {
		t.Fatalf("expected num_layers=4 after level=3, got %d err=%v", n, err)
	}

	// a lower level must not decrease num_layers.
	if err := s.NewNeighbor(ctx, 5, 1); err != nil {
		t.Fatalf("new neighbor: %v", err)
	}
	n, _ = s.GetNumLayers(ctx)
	if n != 4 {
		t.Fatalf("expected num_layers to stay 4, got %d", n)
	}
}

func TestMemoryStorageGetPointsBatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	a, _ := s.NewPoint(ctx, Point{1}, nil)
	b, _ := s.NewPoint(ctx, Point{2}, nil)

	got, err := s.GetPoints(ctx, []PointID{a, b})
	if err != nil {
		t.Fatalf("get points: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 points, got %d", len(got))
	}

	if _, err := s.GetPoints(ctx, []PointID{a, b, 999}); err != ErrMissingRecord {
		t.Fatalf("expected ErrMissingRecord for unknown id, got %v", err)
	}
}
