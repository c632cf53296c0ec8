package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a RedisStorage backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix namespaces every key this backend writes, so one Redis
	// instance can host more than one index.
	KeyPrefix string
}

// DefaultRedisConfig returns a config pointing at a local Redis instance.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:      "localhost:6379",
		DB:        0,
		KeyPrefix: "hnswkv",
	}
}

// RedisStorage is a remote Storage backend over a Redis instance. Points
// and per-layer adjacency are stored as protobuf-wire-encoded strings and
// metadata as JSON strings, all under prefixed keys; the scalar counters
// live in one hash.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// OpenRedisStorage connects to Redis per cfg and verifies the connection
// with a Ping before returning.
func OpenRedisStorage(ctx context.Context, cfg RedisConfig) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("storage: connect redis: %w: %w", ErrUnavailable, err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "hnswkv"
	}
	return &RedisStorage{client: client, prefix: prefix}, nil
}

func (s *RedisStorage) pointKey(id PointID) string    { return fmt.Sprintf("%s:point:%d", s.prefix, id) }
func (s *RedisStorage) metaKey(id PointID) string      { return fmt.Sprintf("%s:meta:%d", s.prefix, id) }
func (s *RedisStorage) neighborKey(layer int, id PointID) string {
	return fmt.Sprintf("%s:nbr:%d:%d", s.prefix, layer, id)
}
func (s *RedisStorage) countersKey() string { return s.prefix + ":counters" }

func (s *RedisStorage) NewPoint(ctx context.Context, vec Point, metadata map[string]string) (PointID, error) {
	id, err := s.client.HIncrBy(ctx, s.countersKey(), "next_id", 1).Result()
	if err != nil {
		return 0, fmt.Errorf("storage: new point: %w", err)
	}
	id-- // HIncrBy returns the post-increment value; ids are 0-based.
	pointID := PointID(id)

	requestID := uuid.NewString()
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.pointKey(pointID), EncodePoint(vec), 0)
	if metadata != nil {
		payload, err := encodeMetadataJSON(metadata)
		if err != nil {
			return 0, fmt.Errorf("storage: new point: %w", err)
		}
		pipe.Set(ctx, s.metaKey(pointID), payload, 0)
	}
	pipe.HIncrBy(ctx, s.countersKey(), "data_size", 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("storage: new point (request=%s): %w", requestID, err)
	}
	return pointID, nil
}

func (s *RedisStorage) GetPoint(ctx context.Context, id PointID) (Point, error) {
	data, err := s.client.Get(ctx, s.pointKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrMissingRecord
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get point: %w", err)
	}
	return DecodePoint(data)
}

func (s *RedisStorage) GetPoints(ctx context.Context, ids []PointID) (map[PointID]Point, error) {
	if len(ids) == 0 {
		return map[PointID]Point{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.pointKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("storage: get points batch: %w", err)
	}
	out := make(map[PointID]Point, len(ids))
	for i, v := range vals {
		if v == nil {
			return nil, ErrMissingRecord
		}
		str, ok := v.(string)
		if !ok {
			return nil, ErrMissingRecord
		}
		p, err := DecodePoint([]byte(str))
		if err != nil {
			return nil, fmt.Errorf("storage: get points batch: %w", err)
		}
		out[ids[i]] = p
	}
	return out, nil
}

func (s *RedisStorage) GetMetadata(ctx context.Context, id PointID) (map[string]string, error) {
	payload, err := s.client.Get(ctx, s.metaKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get metadata: %w", err)
	}
	return decodeMetadataJSON(payload)
}

func (s *RedisStorage) GetNeighbors(ctx context.Context, layer int, id PointID) (LayerNode, error) {
	data, err := s.client.Get(ctx, s.neighborKey(layer, id)).Bytes()
	if err == redis.Nil {
		return LayerNode{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get neighbors: %w", err)
	}
	return DecodeLayerNode(data)
}

func (s *RedisStorage) GetNeighborsBatch(ctx context.Context, layer int, ids []PointID) (map[PointID]LayerNode, error) {
	if len(ids) == 0 {
		return map[PointID]LayerNode{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.neighborKey(layer, id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("storage: get neighbors batch: %w", err)
	}
	out := make(map[PointID]LayerNode, len(ids))
	for i, v := range vals {
		if v == nil {
			out[ids[i]] = LayerNode{}
			continue
		}
		str, ok := v.(string)
		if !ok {
			out[ids[i]] = LayerNode{}
			continue
		}
		node, err := DecodeLayerNode([]byte(str))
		if err != nil {
			return nil, fmt.Errorf("storage: get neighbors batch: %w", err)
		}
		out[ids[i]] = node
	}
	return out, nil
}

func (s *RedisStorage) UpsertNeighbors(ctx context.Context, layer int, id PointID, node LayerNode) error {
	if err := s.client.Set(ctx, s.neighborKey(layer, id), EncodeLayerNode(node), 0).Err(); err != nil {
		return fmt.Errorf("storage: upsert neighbors: %w", err)
	}
	return nil
}

// UpsertNeighborsBatch writes every entry in nodes through a single
// pipeline, matching the batching guidance that remote backends should
// prefer one round trip over many.
func (s *RedisStorage) UpsertNeighborsBatch(ctx context.Context, layer int, nodes map[PointID]LayerNode) error {
	if len(nodes) == 0 {
		return nil
	}
	requestID := uuid.NewString()
	pipe := s.client.Pipeline()
	for id, node := range nodes {
		pipe.Set(ctx, s.neighborKey(layer, id), EncodeLayerNode(node), 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storage: upsert neighbors batch (request=%s): %w", requestID, err)
	}
	return nil
}

func (s *RedisStorage) NewNeighbor(ctx context.Context, _ PointID, level int) error {
	// Lua-free max-update: read-modify-write under WATCH would be the
	// textbook-correct approach, but the single-writer assumption the
	// core makes means a plain read, compare, and write is sufficient here.
	current, err := s.client.HGet(ctx, s.countersKey(), "num_layers").Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("storage: new neighbor: %w", err)
	}
	n := 0
	if current != "" {
		n, _ = strconv.Atoi(current)
	}
	if level+1 > n {
		n = level + 1
	}
	if err := s.client.HSet(ctx, s.countersKey(), "num_layers", n).Err(); err != nil {
		return fmt.Errorf("storage: new neighbor: %w", err)
	}
	return nil
}

func (s *RedisStorage) GetEntryPoint(ctx context.Context) (PointID, int, bool, error) {
	vals, err := s.client.HMGet(ctx, s.countersKey(), "entry_point", "entry_top_layer").Result()
	if err != nil {
		return 0, 0, false, fmt.Errorf("storage: get entry point: %w", err)
	}
	if vals[0] == nil {
		return 0, 0, false, nil
	}
	idStr, _ := vals[0].(string)
	topStr, _ := vals[1].(string)
	id, _ := strconv.ParseUint(idStr, 10, 64)
	top, _ := strconv.Atoi(topStr)
	return PointID(id), top, true, nil
}

func (s *RedisStorage) SetEntryPoint(ctx context.Context, id PointID, topLayer int) error {
	err := s.client.HSet(ctx, s.countersKey(), map[string]interface{}{
		"entry_point":     strconv.FormatUint(id, 10),
		"entry_top_layer": strconv.Itoa(topLayer),
	}).Err()
	if err != nil {
		return fmt.Errorf("storage: set entry point: %w", err)
	}
	return nil
}

func (s *RedisStorage) GetNumLayers(ctx context.Context) (int, error) {
	v, err := s.client.HGet(ctx, s.countersKey(), "num_layers").Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("storage: get num layers: %w", err)
	}
	n, _ := strconv.Atoi(v)
	return n, nil
}

func (s *RedisStorage) GetDataSize(ctx context.Context) (int64, error) {
	v, err := s.client.HGet(ctx, s.countersKey(), "data_size").Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("storage: get data size: %w", err)
	}
	n, _ := strconv.ParseInt(v, 10, 64)
	return n, nil
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}
