package hnsw

import "testing"

func TestMinCandidatesOrdering(t *testing.T) {
	c := newMinCandidates()
	c.Push(1, 5.0)
	c.Push(2, 1.0)
	c.Push(3, 3.0)

	id, dist, ok := c.Pop()
	if !ok || id != 2 || dist != 1.0 {
		t.Fatalf("expected id=2 dist=1.0, got id=%v dist=%v ok=%v", id, dist, ok)
	}
	id, _, _ = c.Pop()
	if id != 3 {
		t.Fatalf("expected id=3 next, got %v", id)
	}
}

func TestMaxResultsEviction(t *testing.T) {
	r := newMaxResults(2)
	r.Push(1, 5.0)
	r.Push(2, 3.0)
	r.Push(3, 1.0) // should evict id=1 (farthest)

	if r.Len() != 2 {
		t.Fatalf("expected len 2, got %d", r.Len())
	}
	worst, ok := r.Farthest()
	if !ok || worst != 3.0 {
		t.Fatalf("expected worst=3.0, got %v", worst)
	}

	drained := r.Drain()
	if len(drained) != 2 || drained[0].id != 3 || drained[1].id != 2 {
		t.Fatalf("unexpected drain order: %+v", drained)
	}
}

func TestMaxResultsIgnoresFartherThanCap(t *testing.T) {
	r := newMaxResults(1)
	r.Push(1, 1.0)
	r.Push(2, 5.0) // farther than current sole entry, should not replace it

	worst, _ := r.Farthest()
	if worst != 1.0 {
		t.Fatalf("expected farthest to remain 1.0, got %v", worst)
	}
}
