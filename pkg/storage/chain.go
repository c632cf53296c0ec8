package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ChainStorage is a remote Storage backend over a JSON-RPC-over-websocket
// key-value smart contract, in the style of an Arweave/Warp HollowDB
// instance: every read or write is one "get"/"put" contract call, so this
// backend is the starkest illustration of "any Storage call may be remote."
type ChainStorage struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	timeout time.Duration
	nextID  int64
}

// chainRPCRequest mirrors the JSON-RPC 2.0 envelope the contract gateway
// expects.
type chainRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int64         `json:"id"`
}

type chainRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *chainRPCError  `json:"error,omitempty"`
	ID      int64           `json:"id"`
}

type chainRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// OpenChainStorage dials endpoint (a ws:// or wss:// contract gateway URL).
func OpenChainStorage(endpoint string) (*ChainStorage, error) {
	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: connect chain: %w: %w", ErrUnavailable, err)
	}
	return &ChainStorage{conn: conn, timeout: 30 * time.Second}, nil
}

func (c *ChainStorage) call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := atomic.AddInt64(&c.nextID, 1)
	req := chainRPCRequest{JSONRPC: "2.0", Method: method, Params: params, ID: id}

	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(deadline)
		c.conn.SetReadDeadline(deadline)
	}

	if err := c.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("storage: chain write: %w: %w", ErrUnavailable, err)
	}

	var resp chainRPCResponse
	if err := c.conn.ReadJSON(&resp); err != nil {
		return nil, fmt.Errorf("storage: chain read: %w: %w", ErrUnavailable, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("storage: chain rpc error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	return resp.Result, nil
}

// contractGet fetches the raw value stored under key, or nil if absent.
func (c *ChainStorage) contractGet(ctx context.Context, key string) ([]byte, error) {
	result, err := c.call(ctx, "contract_get", key)
	if err != nil {
		return nil, err
	}
	var encoded *string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return nil, fmt.Errorf("storage: chain decode get result: %w", err)
	}
	if encoded == nil {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(*encoded)
}

// contractPut writes value under key, tagged with a freshly generated
// request id on every call. This backend never resubmits a write.
func (c *ChainStorage) contractPut(ctx context.Context, key string, value []byte) error {
	requestID := uuid.NewString()
	encoded := base64.StdEncoding.EncodeToString(value)
	_, err := c.call(ctx, "contract_put", key, encoded, requestID)
	return err
}

func (c *ChainStorage) pointKey(id PointID) string { return fmt.Sprintf("point:%d", id) }
func (c *ChainStorage) metaKey(id PointID) string  { return fmt.Sprintf("meta:%d", id) }
func (c *ChainStorage) neighborKey(layer int, id PointID) string {
	return fmt.Sprintf("nbr:%d:%d", layer, id)
}

const chainCountersKey = "counters"

type chainCounters struct {
	NextID        uint64 `json:"next_id"`
	EntryPoint    uint64 `json:"entry_point"`
	EntryTopLayer int    `json:"entry_top_layer"`
	HasEntry      bool   `json:"has_entry"`
	NumLayers     int    `json:"num_layers"`
	DataSize      int64  `json:"data_size"`
}

func (c *ChainStorage) getCounters(ctx context.Context) (chainCounters, error) {
	raw, err := c.contractGet(ctx, chainCountersKey)
	if err != nil {
		return chainCounters{}, fmt.Errorf("storage: get counters: %w", err)
	}
	if raw == nil {
		return chainCounters{}, nil
	}
	var counters chainCounters
	if err := json.Unmarshal(raw, &counters); err != nil {
		return chainCounters{}, fmt.Errorf("storage: decode counters: %w", err)
	}
	return counters, nil
}

func (c *ChainStorage) putCounters(ctx context.Context, counters chainCounters) error {
	raw, err := json.Marshal(counters)
	if err != nil {
		return fmt.Errorf("storage: encode counters: %w", err)
	}
	return c.contractPut(ctx, chainCountersKey, raw)
}

func (c *ChainStorage) NewPoint(ctx context.Context, vec Point, metadata map[string]string) (PointID, error) {
	counters, err := c.getCounters(ctx)
	if err != nil {
		return 0, err
	}
	id := PointID(counters.NextID)

	if err := c.contractPut(ctx, c.pointKey(id), EncodePoint(vec)); err != nil {
		return 0, fmt.Errorf("storage: new point: %w", err)
	}
	if metadata != nil {
		payload, err := encodeMetadataJSON(metadata)
		if err != nil {
			return 0, fmt.Errorf("storage: new point: %w", err)
		}
		if err := c.contractPut(ctx, c.metaKey(id), []byte(payload)); err != nil {
			return 0, fmt.Errorf("storage: new point: %w", err)
		}
	}

	counters.NextID++
	counters.DataSize++
	if err := c.putCounters(ctx, counters); err != nil {
		return 0, fmt.Errorf("storage: new point: %w", err)
	}
	return id, nil
}

func (c *ChainStorage) GetPoint(ctx context.Context, id PointID) (Point, error) {
	raw, err := c.contractGet(ctx, c.pointKey(id))
	if err != nil {
		return nil, fmt.Errorf("storage: get point: %w", err)
	}
	if raw == nil {
		return nil, ErrMissingRecord
	}
	return DecodePoint(raw)
}

// GetPoints fetches each id with its own contract_get call: the chain
// gateway exposes no native batch-read RPC, so this backend cannot avoid
// the per-item round trip the rest of the package tries to batch away.
func (c *ChainStorage) GetPoints(ctx context.Context, ids []PointID) (map[PointID]Point, error) {
	out := make(map[PointID]Point, len(ids))
	for _, id := range ids {
		p, err := c.GetPoint(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = p
	}
	return out, nil
}

func (c *ChainStorage) GetMetadata(ctx context.Context, id PointID) (map[string]string, error) {
	raw, err := c.contractGet(ctx, c.metaKey(id))
	if err != nil {
		return nil, fmt.Errorf("storage: get metadata: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	return decodeMetadataJSON(string(raw))
}

func (c *ChainStorage) GetNeighbors(ctx context.Context, layer int, id PointID) (LayerNode, error) {
	raw, err := c.contractGet(ctx, c.neighborKey(layer, id))
	if err != nil {
		return nil, fmt.Errorf("storage: get neighbors: %w", err)
	}
	if raw == nil {
		return LayerNode{}, nil
	}
	return DecodeLayerNode(raw)
}

func (c *ChainStorage) GetNeighborsBatch(ctx context.Context, layer int, ids []PointID) (map[PointID]LayerNode, error) {
	out := make(map[PointID]LayerNode, len(ids))
	for _, id := range ids {
		node, err := c.GetNeighbors(ctx, layer, id)
		if err != nil {
			return nil, err
		}
		out[id] = node
	}
	return out, nil
}

func (c *ChainStorage) UpsertNeighbors(ctx context.Context, layer int, id PointID, node LayerNode) error {
	if err := c.contractPut(ctx, c.neighborKey(layer, id), EncodeLayerNode(node)); err != nil {
		return fmt.Errorf("storage: upsert neighbors: %w", err)
	}
	return nil
}

func (c *ChainStorage) UpsertNeighborsBatch(ctx context.Context, layer int, nodes map[PointID]LayerNode) error {
	for id, node := range nodes {
		if err := c.UpsertNeighbors(ctx, layer, id, node); err != nil {
			return err
		}
	}
	return nil
}

func (c *ChainStorage) NewNeighbor(ctx context.Context, _ PointID, level int) error {
	counters, err := c.getCounters(ctx)
	if err != nil {
		return err
	}
	if level+1 > counters.NumLayers {
		counters.NumLayers = level + 1
	}
	return c.putCounters(ctx, counters)
}

func (c *ChainStorage) GetEntryPoint(ctx context.Context) (PointID, int, bool, error) {
	counters, err := c.getCounters(ctx)
	if err != nil {
		return 0, 0, false, err
	}
	return PointID(counters.EntryPoint), counters.EntryTopLayer, counters.HasEntry, nil
}

func (c *ChainStorage) SetEntryPoint(ctx context.Context, id PointID, topLayer int) error {
	counters, err := c.getCounters(ctx)
	if err != nil {
		return err
	}
	counters.EntryPoint = id
	counters.EntryTopLayer = topLayer
	counters.HasEntry = true
	return c.putCounters(ctx, counters)
}

func (c *ChainStorage) GetNumLayers(ctx context.Context) (int, error) {
	counters, err := c.getCounters(ctx)
	if err != nil {
		return 0, err
	}
	return counters.NumLayers, nil
}

func (c *ChainStorage) GetDataSize(ctx context.Context) (int64, error) {
	counters, err := c.getCounters(ctx)
	if err != nil {
		return 0, err
	}
	return counters.DataSize, nil
}

func (c *ChainStorage) Close() error {
	return c.conn.Close()
}
