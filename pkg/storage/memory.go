package storage

import (
	"context"
	"sync"
)

// MemoryStorage is an in-process, map-backed Storage implementation. It is
// the reference backend: no I/O, no serialization, just guarded maps.
type MemoryStorage struct {
	mu sync.RWMutex

	points    map[PointID]Point
	metadata  map[PointID]map[string]string
	neighbors map[int]map[PointID]LayerNode // layer -> id -> node
	nextID    PointID

	entryPoint   PointID
	entryTop     int
	hasEntry     bool
	numLayers    int
	dataSize     int64
}

// NewMemoryStorage returns an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		points:    make(map[PointID]Point),
		metadata:  make(map[PointID]map[string]string),
		neighbors: make(map[int]map[PointID]LayerNode),
	}
}

func (s *MemoryStorage) NewPoint(_ context.Context, vec Point, metadata map[string]string) (PointID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	cp := make(Point, len(vec))
	copy(cp, vec)
	s.points[id] = cp
	if metadata != nil {
		s.metadata[id] = metadata
	}
	s.dataSize++
	return id, nil
}

func (s *MemoryStorage) GetPoint(_ context.Context, id PointID) (Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.points[id]
	if !ok {
		return nil, ErrMissingRecord
	}
	return v, nil
}

func (s *MemoryStorage) GetPoints(_ context.Context, ids []PointID) (map[PointID]Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[PointID]Point, len(ids))
	for _, id := range ids {
		v, ok := s.points[id]
		if !ok {
			return nil, ErrMissingRecord
		}
		out[id] = v
	}
	return out, nil
}

func (s *MemoryStorage) GetMetadata(_ context.Context, id PointID) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.points[id]; !ok {
		return nil, ErrMissingRecord
	}
	return s.metadata[id], nil
}

func (s *MemoryStorage) GetNeighbors(_ context.Context, layer int, id PointID) (LayerNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	layerMap, ok := s.neighbors[layer]
	if !ok {
		return LayerNode{}, nil
	}
	node, ok := layerMap[id]
	if !ok {
		return LayerNode{}, nil
	}
	out := make(LayerNode, len(node))
	for k, v := range node {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStorage) GetNeighborsBatch(_ context.Context, layer int, ids []PointID) (map[PointID]LayerNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[PointID]LayerNode, len(ids))
	layerMap := s.neighbors[layer]
	for _, id := range ids {
		node, ok := layerMap[id]
		if !ok {
			out[id] = LayerNode{}
			continue
		}
		cp := make(LayerNode, len(node))
		for k, v := range node {
			cp[k] = v
		}
		out[id] = cp
	}
	return out, nil
}

func (s *MemoryStorage) UpsertNeighbors(_ context.Context, layer int, id PointID, node LayerNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	layerMap, ok := s.neighbors[layer]
	if !ok {
		layerMap = make(map[PointID]LayerNode)
		s.neighbors[layer] = layerMap
	}
	cp := make(LayerNode, len(node))
	for k, v := range node {
		cp[k] = v
	}
	layerMap[id] = cp
	return nil
}

func (s *MemoryStorage) UpsertNeighborsBatch(_ context.Context, layer int, nodes map[PointID]LayerNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	layerMap, ok := s.neighbors[layer]
	if !ok {
		layerMap = make(map[PointID]LayerNode)
		s.neighbors[layer] = layerMap
	}
	for id, node := range nodes {
		cp := make(LayerNode, len(node))
		for k, v := range node {
			cp[k] = v
		}
		layerMap[id] = cp
	}
	return nil
}

func (s *MemoryStorage) NewNeighbor(_ context.Context, _ PointID, level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if level+1 > s.numLayers {
		s.numLayers = level + 1
	}
	return nil
}

func (s *MemoryStorage) GetEntryPoint(_ context.Context) (PointID, int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.entryPoint, s.entryTop, s.hasEntry, nil
}

func (s *MemoryStorage) SetEntryPoint(_ context.Context, id PointID, topLayer int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entryPoint = id
	s.entryTop = topLayer
	s.hasEntry = true
	return nil
}

func (s *MemoryStorage) GetNumLayers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.numLayers, nil
}

func (s *MemoryStorage) GetDataSize(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataSize, nil
}

func (s *MemoryStorage) Close() error { return nil }
