package hnsw

import (
	"context"
	"testing"

	"github.com/annstore/hnswkv/pkg/storage"
)

func TestSearchLayerFindsNearest(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()

	ids := make([]uint64, 0, 5)
	vecs := [][]float32{{0, 0}, {1, 0}, {2, 0}, {0, 5}, {0, 10}}
	for _, v := range vecs {
		id, err := store.NewPoint(ctx, v, nil)
		if err != nil {
			t.Fatalf("new point: %v", err)
		}
		ids = append(ids, id)
	}

	// chain them all together at layer 0 so search_layer can traverse.
	for i, id := range ids {
		node := storage.LayerNode{}
		for j, other := range ids {
			if i == j {
				continue
			}
			node[other] = L2Distance(vecs[i], vecs[j])
		}
		if err := store.UpsertNeighbors(ctx, 0, id, node); err != nil {
			t.Fatalf("upsert neighbors: %v", err)
		}
	}

	query := []float32{0, 1}
	entry := []candidate{{id: ids[4], dist: L2Distance(query, vecs[4])}}
	results, err := searchLayer(ctx, store, L2Distance, query, entry, 0, 2)
	if err != nil {
		t.Fatalf("search_layer: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(results), results)
	}
	if results[0].id != ids[0] {
		t.Fatalf("expected nearest to be id=%d (origin), got %+v", ids[0], results[0])
	}
}
