package hnsw

import (
	"context"
	"math"
	"math/rand"

	"github.com/annstore/hnswkv/pkg/storage"
)

// Index is an HNSW approximate nearest-neighbor index over a Storage
// backend. It holds no graph state itself — every field below is either
// fixed configuration or a helper derived from it. Index does not lock
// internally: callers must serialize Insert calls themselves.
type Index struct {
	store storage.Storage
	cfg   Config
	dist  func(a, b []float32) float64
	rng   *rand.Rand
}

// New constructs an Index over store using cfg. cfg is validated; a nil
// Logger is replaced with NopLogger, and no other field is defaulted.
func New(store storage.Storage, cfg Config) (*Index, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = NopLogger()
	}
	return &Index{
		store: store,
		cfg:   cfg,
		dist:  distanceFunc(cfg.Distance),
		rng:   rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Result is one hit returned by KnnSearch: a point id, its distance from
// the query in the index's native DistanceKind units, and the point's
// metadata sidecar (nil if none was stored).
type Result struct {
	ID       storage.PointID
	Distance float64
	Metadata map[string]string
}

func (idx *Index) drawLevel() int {
	u := idx.rng.Float64()
	for u == 0 {
		u = idx.rng.Float64()
	}
	return int(math.Floor(-math.Log(u) * idx.cfg.ML))
}

// Insert adds q to the index with optional metadata and returns its
// assigned id, per the level-draw / descent / build-layers algorithm.
func (idx *Index) Insert(ctx context.Context, q []float32, metadata map[string]string) (storage.PointID, error) {
	if len(q) == 0 {
		return 0, wrapError("insert", ErrEmptyVector)
	}

	priorSize, err := idx.store.GetDataSize(ctx)
	if err != nil {
		return 0, wrapError("insert.get_data_size", err)
	}

	var (
		ep         storage.PointID
		epTopLayer int
		hasEP      bool
		epDist     float64
	)
	if priorSize > 0 {
		ep, epTopLayer, hasEP, err = idx.store.GetEntryPoint(ctx)
		if err != nil {
			return 0, wrapError("insert.get_entry_point", err)
		}
		if hasEP {
			epVec, err := idx.store.GetPoint(ctx, ep)
			if err != nil {
				return 0, wrapError("insert.get_entry_vector", err)
			}
			if err := checkDims(q, epVec); err != nil {
				return 0, wrapError("insert", err)
			}
			epDist = idx.dist(q, epVec)
		}
	}

	id, err := idx.store.NewPoint(ctx, q, metadata)
	if err != nil {
		return 0, wrapError("insert.new_point", err)
	}

	level := idx.drawLevel()
	for lc := 0; lc <= level; lc++ {
		if err := idx.store.UpsertNeighbors(ctx, lc, id, storage.LayerNode{}); err != nil {
			return 0, wrapError("insert.seed_layer", err)
		}
	}
	if err := idx.store.NewNeighbor(ctx, id, level); err != nil {
		return 0, wrapError("insert.new_neighbor", err)
	}

	if priorSize == 0 || !hasEP {
		if err := idx.store.SetEntryPoint(ctx, id, level); err != nil {
			return 0, wrapError("insert.set_entry_point", err)
		}
		return id, nil
	}

	curr := candidate{id: ep, dist: epDist}
	for layer := epTopLayer; layer > level; layer-- {
		results, err := searchLayer(ctx, idx.store, idx.dist, q, []candidate{curr}, layer, 1)
		if err != nil {
			return 0, wrapError("insert.descend", err)
		}
		if len(results) > 0 {
			curr = results[0]
		}
	}

	entrySet := []candidate{curr}
	startLayer := epTopLayer
	if level < startLayer {
		startLayer = level
	}

	for lc := startLayer; lc >= 0; lc-- {
		w, err := searchLayer(ctx, idx.store, idx.dist, q, entrySet, lc, idx.cfg.EfConstruction)
		if err != nil {
			return 0, wrapError("insert.build_layer", err)
		}

		capAt := idx.cfg.MMax
		if lc == 0 {
			capAt = idx.cfg.MMax0
		}

		candidateIDs := make([]uint64, 0, len(w))
		for _, c := range w {
			candidateIDs = append(candidateIDs, c.id)
		}
		candidatePoints, err := idx.store.GetPoints(ctx, candidateIDs)
		if err != nil {
			return 0, wrapError("insert.get_candidate_points", err)
		}

		chosen := selectNeighbors(ctx, idx.dist, candidatePoints, w, idx.cfg.M)

		newNode := make(storage.LayerNode, len(chosen))
		for _, c := range chosen {
			newNode[c.id] = c.dist
		}

		// Gather every write this layer needs to make — the new node's own
		// adjacency plus each chosen neighbor's updated (and possibly
		// pruned) adjacency — into one batch, instead of one round trip
		// per node.
		batch := make(map[storage.PointID]storage.LayerNode, len(chosen)+1)
		batch[id] = newNode

		for _, c := range chosen {
			updated, err := idx.neighborUpdateAfterLink(ctx, lc, c.id, id, c.dist, capAt)
			if err != nil {
				return 0, err
			}
			batch[c.id] = updated
		}

		if err := idx.store.UpsertNeighborsBatch(ctx, lc, batch); err != nil {
			return 0, wrapError("insert.upsert_batch", err)
		}

		if len(w) > 0 {
			entrySet = []candidate{w[0]}
		}
	}

	if level > epTopLayer {
		if err := idx.store.SetEntryPoint(ctx, id, level); err != nil {
			return 0, wrapError("insert.promote_entry_point", err)
		}
	}

	return id, nil
}

// neighborUpdateAfterLink computes n's adjacency at layer after adding the
// reverse edge n -> self, pruning back down to capAt if it grows past it.
// It only reads; the caller is responsible for writing the result as part
// of a single batched upsert, maintaining I1 by folding the reverse edge
// into the same write as any pruning it triggers.
func (idx *Index) neighborUpdateAfterLink(ctx context.Context, layer int, n, self storage.PointID, d float64, capAt int) (storage.LayerNode, error) {
	node, err := idx.store.GetNeighbors(ctx, layer, n)
	if err != nil {
		return nil, wrapError("insert.get_neighbor_node", err)
	}
	node[self] = d

	if len(node) <= capAt {
		return node, nil
	}

	cands := make([]candidate, 0, len(node))
	ids := make([]uint64, 0, len(node))
	for nbID, nbDist := range node {
		cands = append(cands, candidate{id: nbID, dist: nbDist})
		ids = append(ids, nbID)
	}
	points, err := idx.store.GetPoints(ctx, ids)
	if err != nil {
		return nil, wrapError("insert.get_prune_points", err)
	}

	chosen := selectNeighbors(ctx, idx.dist, points, cands, capAt)
	pruned := make(storage.LayerNode, len(chosen))
	for _, c := range chosen {
		pruned[c.id] = c.dist
	}
	return pruned, nil
}

// GetVector returns the stored vector and metadata sidecar for id.
func (idx *Index) GetVector(ctx context.Context, id storage.PointID) ([]float32, map[string]string, error) {
	v, err := idx.store.GetPoint(ctx, id)
	if err != nil {
		return nil, nil, wrapError("get_vector", err)
	}
	md, err := idx.store.GetMetadata(ctx, id)
	if err != nil {
		return nil, nil, wrapError("get_vector", err)
	}
	return v, md, nil
}

// KnnSearch returns the K nearest points to q, each with its metadata
// sidecar. On an empty index it returns (nil, nil), not an error.
func (idx *Index) KnnSearch(ctx context.Context, q []float32, k int, ef int) ([]Result, error) {
	if len(q) == 0 {
		return nil, wrapError("knn_search", ErrEmptyVector)
	}

	size, err := idx.store.GetDataSize(ctx)
	if err != nil {
		return nil, wrapError("knn_search.get_data_size", err)
	}
	if size == 0 {
		return nil, nil
	}

	ep, epTopLayer, hasEP, err := idx.store.GetEntryPoint(ctx)
	if err != nil {
		return nil, wrapError("knn_search.get_entry_point", err)
	}
	if !hasEP {
		return nil, nil
	}

	epVec, err := idx.store.GetPoint(ctx, ep)
	if err != nil {
		return nil, wrapError("knn_search.get_entry_vector", err)
	}
	if err := checkDims(q, epVec); err != nil {
		return nil, wrapError("knn_search", err)
	}

	curr := candidate{id: ep, dist: idx.dist(q, epVec)}
	for layer := epTopLayer; layer > 0; layer-- {
		results, err := searchLayer(ctx, idx.store, idx.dist, q, []candidate{curr}, layer, 1)
		if err != nil {
			return nil, wrapError("knn_search.descend", err)
		}
		if len(results) > 0 {
			curr = results[0]
		}
	}

	effEf := ef
	if effEf <= 0 {
		effEf = idx.cfg.EfSearch
	}
	if effEf < k {
		effEf = k
	}

	w, err := searchLayer(ctx, idx.store, idx.dist, q, []candidate{curr}, 0, effEf)
	if err != nil {
		return nil, wrapError("knn_search.search_layer0", err)
	}

	if k > len(w) {
		k = len(w)
	}
	out := make([]Result, k)
	for i := 0; i < k; i++ {
		md, err := idx.store.GetMetadata(ctx, w[i].id)
		if err != nil {
			return nil, wrapError("knn_search.get_metadata", err)
		}
		out[i] = Result{ID: w[i].id, Distance: w[i].dist, Metadata: md}
	}
	return out, nil
}
