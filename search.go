package hnsw

import (
	"context"

	"github.com/annstore/hnswkv/pkg/storage"
)

// searchLayer is the greedy best-first traversal primitive: starting from
// entryPoints, it explores layer and returns the ef closest points found to
// query, nearest first. Each expansion fetches the expanded node's neighbor
// list with one call and the vectors of all its unvisited neighbors with
// one batched GetPoints call, rather than one call per neighbor.
func searchLayer(
	ctx context.Context,
	store storage.Storage,
	dist func(a, b []float32) float64,
	query []float32,
	entryPoints []candidate,
	layer int,
	ef int,
) ([]candidate, error) {
	visited := make(map[uint64]bool, ef*4)
	frontier := newMinCandidates()
	results := newMaxResults(ef)

	for _, ep := range entryPoints {
		visited[ep.id] = true
		frontier.Push(ep.id, ep.dist)
		results.Push(ep.id, ep.dist)
	}

	for frontier.Len() > 0 {
		currID, currDist, _ := frontier.Pop()

		if worst, ok := results.Farthest(); ok && results.Len() >= ef && currDist > worst {
			break
		}

		node, err := store.GetNeighbors(ctx, layer, currID)
		if err != nil {
			return nil, wrapError("search_layer.get_neighbors", err)
		}

		var toFetch []uint64
		for nbID := range node {
			if !visited[nbID] {
				toFetch = append(toFetch, nbID)
			}
		}
		if len(toFetch) == 0 {
			continue
		}

		points, err := store.GetPoints(ctx, toFetch)
		if err != nil {
			return nil, wrapError("search_layer.get_points", err)
		}

		for _, nbID := range toFetch {
			if visited[nbID] {
				continue
			}
			visited[nbID] = true

			vec, ok := points[nbID]
			if !ok {
				continue
			}
			d := dist(query, vec)

			worst, hasWorst := results.Farthest()
			if results.Len() < ef || !hasWorst || d < worst {
				frontier.Push(nbID, d)
				results.Push(nbID, d)
			}
		}
	}

	return results.Drain(), nil
}
