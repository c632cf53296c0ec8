// Package hnsw implements a Hierarchical Navigable Small World approximate
// nearest-neighbor index over a pluggable Storage backend.
//
// The index itself holds no graph state in memory: every point, adjacency
// list, and scalar counter lives behind the storage.Storage interface, so
// the same Index logic runs unchanged over an in-memory map, a local
// SQLite file, a Redis instance, or a remote key-value contract. Callers
// are responsible for serializing writes; Index does not lock internally.
package hnsw
