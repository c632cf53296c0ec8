package hnsw

import "context"

// selectNeighbors implements the simple (non-extended) diversity heuristic
// from the HNSW paper: candidates are considered nearest-first, and a
// candidate is admitted only if it is closer to the reference point than to
// every neighbor already admitted. This spreads the chosen set across
// directions instead of clustering it around the single nearest candidate.
func selectNeighbors(
	ctx context.Context,
	dist func(a, b []float32) float64,
	points map[uint64][]float32,
	candidates []candidate,
	m int,
) []candidate {
	if m <= 0 || len(candidates) == 0 {
		return nil
	}

	ordered := make([]candidate, len(candidates))
	copy(ordered, candidates)
	sortCandidates(ordered)

	selected := make([]candidate, 0, m)
	for _, e := range ordered {
		if len(selected) >= m {
			break
		}
		eVec, ok := points[e.id]
		if !ok {
			continue
		}

		admit := true
		for _, r := range selected {
			rVec, ok := points[r.id]
			if !ok {
				continue
			}
			if dist(eVec, rVec) <= e.dist {
				admit = false
				break
			}
		}
		if admit {
			selected = append(selected, e)
		}
	}
	return selected
}
