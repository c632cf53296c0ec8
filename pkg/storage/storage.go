// Package storage defines the typed key-value contract the hnsw core uses
// to read and write graph state, and ships four implementations of it:
// an in-memory reference backend, a local SQLite file, a Redis instance,
// and a JSON-RPC key-value contract client in the style of an Arweave /
// HollowDB smart contract.
package storage

import (
	"context"
	"errors"
)

// ErrMissingRecord is returned when a requested point does not exist
// (MemoryStorage.GetMetadata also returns it for an unknown point id). An
// absent neighbor list is not an error: GetNeighbors returns an empty
// LayerNode. An absent metadata entry is returned as nil.
var ErrMissingRecord = errors.New("storage: missing record")

// ErrUnavailable is wrapped into the error a backend returns when it cannot
// be opened or connected to; ChainStorage also wraps it into every failed
// websocket read or write. Other I/O failures are returned without it.
var ErrUnavailable = errors.New("storage: unavailable")

// PointID identifies a stored vector. IDs are dense and assigned by NewPoint.
type PointID = uint64

// Point is a stored vector.
type Point = []float32

// LayerNode is one point's adjacency list at a single layer: neighbor id to
// a cached distance, so callers don't have to recompute it on read.
type LayerNode map[PointID]float64

// Storage is the abstract contract the core index is built against. Every
// method may involve network or disk I/O and accepts a context so callers
// can bound or cancel it.
type Storage interface {
	// NewPoint stores vec and its metadata (which may be nil) and returns
	// a freshly assigned PointID. It increments datasize by one.
	NewPoint(ctx context.Context, vec Point, metadata map[string]string) (PointID, error)

	// GetPoint returns the stored vector for id, or ErrMissingRecord.
	GetPoint(ctx context.Context, id PointID) (Point, error)

	// GetPoints returns the stored vectors for every id in ids, in a
	// single round trip where the backend supports it.
	GetPoints(ctx context.Context, ids []PointID) (map[PointID]Point, error)

	// GetMetadata returns the metadata sidecar for id, which may be nil.
	GetMetadata(ctx context.Context, id PointID) (map[string]string, error)

	// GetNeighbors returns the adjacency list of id at the given layer.
	// A point with no recorded neighbors at that layer returns an empty,
	// non-nil LayerNode.
	GetNeighbors(ctx context.Context, layer int, id PointID) (LayerNode, error)

	// GetNeighborsBatch returns the adjacency lists of every id in ids at
	// the given layer, in a single round trip where the backend supports
	// it.
	GetNeighborsBatch(ctx context.Context, layer int, ids []PointID) (map[PointID]LayerNode, error)

	// UpsertNeighbors replaces id's adjacency list at layer with node.
	UpsertNeighbors(ctx context.Context, layer int, id PointID, node LayerNode) error

	// UpsertNeighborsBatch replaces the adjacency lists of every id in
	// nodes at layer, in a single round trip where the backend supports
	// it.
	UpsertNeighborsBatch(ctx context.Context, layer int, nodes map[PointID]LayerNode) error

	// NewNeighbor records that id was assigned the given top level during
	// insertion, bumping the stored num_layers counter to
	// max(num_layers, level+1). It is called once per insert, not once
	// per layer.
	NewNeighbor(ctx context.Context, id PointID, level int) error

	// GetEntryPoint returns the current graph entry point and its top
	// layer. ok is false on an empty graph.
	GetEntryPoint(ctx context.Context) (id PointID, topLayer int, ok bool, err error)

	// SetEntryPoint updates the graph entry point and its top layer.
	SetEntryPoint(ctx context.Context, id PointID, topLayer int) error

	// GetNumLayers returns the current num_layers counter.
	GetNumLayers(ctx context.Context) (int, error)

	// GetDataSize returns the number of stored points.
	GetDataSize(ctx context.Context) (int64, error)

	// Close releases any resources the backend holds.
	Close() error
}
