package hnsw

import "container/heap"

// candidate pairs a point id with its distance from the current query.
type candidate struct {
	id   uint64
	dist float64
}

// minItems is a container/heap.Interface ordering by ascending distance,
// the nearest candidate first.
type minItems []candidate

func (h minItems) Len() int            { return len(h) }
func (h minItems) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h minItems) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minItems) Push(x any)         { *h = append(*h, x.(candidate)) }
func (h *minItems) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// maxItems is a container/heap.Interface ordering by descending distance,
// the farthest candidate first — used to bound a result set's size.
type maxItems []candidate

func (h maxItems) Len() int            { return len(h) }
func (h maxItems) Less(i, j int) bool  { return h[i].dist > h[j].dist }
func (h maxItems) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxItems) Push(x any)         { *h = append(*h, x.(candidate)) }
func (h *maxItems) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// minCandidates is a min-heap of candidates, used by search_layer to hold
// the frontier of points still to be explored.
type minCandidates struct {
	items minItems
}

func newMinCandidates() *minCandidates {
	return &minCandidates{items: minItems{}}
}

func (c *minCandidates) Push(id uint64, dist float64) {
	heap.Push(&c.items, candidate{id: id, dist: dist})
}

func (c *minCandidates) Pop() (uint64, float64, bool) {
	if len(c.items) == 0 {
		return 0, 0, false
	}
	top := heap.Pop(&c.items).(candidate)
	return top.id, top.dist, true
}

func (c *minCandidates) Peek() (float64, bool) {
	if len(c.items) == 0 {
		return 0, false
	}
	return c.items[0].dist, true
}

func (c *minCandidates) Len() int { return len(c.items) }

// maxResults is a bounded max-heap: once it holds cap items, pushing a
// closer candidate evicts the current farthest one. It is used by
// search_layer to hold the best-so-far result set.
type maxResults struct {
	items maxItems
	cap   int
}

func newMaxResults(capacity int) *maxResults {
	return &maxResults{items: maxItems{}, cap: capacity}
}

func (r *maxResults) Push(id uint64, dist float64) {
	if r.cap <= 0 {
		return
	}
	if len(r.items) < r.cap {
		heap.Push(&r.items, candidate{id: id, dist: dist})
		return
	}
	if len(r.items) > 0 && dist < r.items[0].dist {
		r.items[0] = candidate{id: id, dist: dist}
		heap.Fix(&r.items, 0)
	}
}

// Farthest returns the current worst (largest) distance held, if any.
func (r *maxResults) Farthest() (float64, bool) {
	if len(r.items) == 0 {
		return 0, false
	}
	return r.items[0].dist, true
}

func (r *maxResults) Len() int { return len(r.items) }

// Drain empties the heap and returns its contents sorted nearest-first.
func (r *maxResults) Drain() []candidate {
	out := make([]candidate, len(r.items))
	copy(out, r.items)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	// items came out of a max-heap (farthest-first when popped); simplest
	// correct ordering is a plain sort, since Drain is not on the hot path.
	sortCandidates(out)
	r.items = r.items[:0]
	return out
}

func sortCandidates(cs []candidate) {
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && cs[j].dist < cs[j-1].dist; j-- {
			cs[j], cs[j-1] = cs[j-1], cs[j]
		}
	}
}
