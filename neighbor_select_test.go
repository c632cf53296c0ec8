package hnsw

import (
	"context"
	"testing"
)

func TestSelectNeighborsDiversity(t *testing.T) {
	// q at origin; a and b nearly collinear with q (both should not both
	// survive if a third, more diverse candidate exists), c orthogonal.
	points := map[uint64][]float32{
		1: {1, 0},   // dist 1 from q
		2: {1.1, 0}, // dist ~1.1 from q, close to 1 too
		3: {0, 1},   // dist 1 from q, orthogonal to both
	}
	q := []float32{0, 0}
	cands := []candidate{
		{id: 1, dist: L2Distance(q, points[1])},
		{id: 2, dist: L2Distance(q, points[2])},
		{id: 3, dist: L2Distance(q, points[3])},
	}

	chosen := selectNeighbors(context.Background(), L2Distance, points, cands, 2)
	if len(chosen) != 2 {
		t.Fatalf("expected 2 neighbors, got %d: %+v", len(chosen), chosen)
	}
	ids := map[uint64]bool{chosen[0].id: true, chosen[1].id: true}
	if !ids[1] {
		t.Fatalf("expected id=1 (nearest) to be selected, got %+v", chosen)
	}
	if ids[2] {
		t.Fatalf("expected id=2 to be rejected as non-diverse (too close to id=1), got %+v", chosen)
	}
	if !ids[3] {
		t.Fatalf("expected id=3 (diverse) to be selected, got %+v", chosen)
	}
}

func TestSelectNeighborsRespectsM(t *testing.T) {
	points := map[uint64][]float32{
		1: {1, 0},
		2: {0, 1},
		3: {-1, 0},
		4: {0, -1},
	}
	q := []float32{0, 0}
	var cands []candidate
	for id, v := range points {
		cands = append(cands, candidate{id: id, dist: L2Distance(q, v)})
	}
	chosen := selectNeighbors(context.Background(), L2Distance, points, cands, 2)
	if len(chosen) != 2 {
		t.Fatalf("expected exactly 2 neighbors (M=2), got %d", len(chosen))
	}
}

func TestSelectNeighborsEmpty(t *testing.T) {
	if got := selectNeighbors(context.Background(), L2Distance, nil, nil, 3); got != nil {
		t.Fatalf("expected nil for empty candidates, got %+v", got)
	}
}
