package storage

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

func float32bits(v float32) uint32     { return math.Float32bits(v) }
func float32frombits(b uint32) float32 { return math.Float32frombits(b) }
func float64bits(v float64) uint64     { return math.Float64bits(v) }
func float64frombits(b uint64) float64 { return math.Float64frombits(b) }

// Wire field numbers for the point/adjacency codec shared by every backend
// that does not keep values as native in-process structures.
const (
	fieldVectorEntry   = 1 // repeated float (fixed32) entries of a Point
	fieldNeighborID    = 1 // repeated varint id within a LayerNode message
	fieldNeighborDist  = 2 // repeated fixed64 distance, parallel to the ids
)

// EncodePoint serializes a Point as a repeated fixed32 field, matching the
// wire shape protoc would generate for `repeated float vector = 1;`.
func EncodePoint(p Point) []byte {
	var buf []byte
	for _, v := range p {
		buf = protowire.AppendTag(buf, fieldVectorEntry, protowire.Fixed32Type)
		buf = protowire.AppendFixed32(buf, float32bits(v))
	}
	return buf
}

// DecodePoint parses bytes produced by EncodePoint back into a Point.
func DecodePoint(data []byte) (Point, error) {
	var out Point
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("storage: decode point: %w", protowire.ParseError(n))
		}
		data = data[n:]
		if num != fieldVectorEntry || typ != protowire.Fixed32Type {
			return nil, fmt.Errorf("storage: decode point: unexpected field %d type %d", num, typ)
		}
		bits, n := protowire.ConsumeFixed32(data)
		if n < 0 {
			return nil, fmt.Errorf("storage: decode point: %w", protowire.ParseError(n))
		}
		data = data[n:]
		out = append(out, float32frombits(bits))
	}
	return out, nil
}

// EncodeLayerNode serializes a LayerNode as parallel repeated varint ids
// and repeated fixed64 distances, matching
// `repeated uint64 ids = 1; repeated double dists = 2;`.
func EncodeLayerNode(node LayerNode) []byte {
	ids := make([]PointID, 0, len(node))
	for id := range node {
		ids = append(ids, id)
	}

	var buf []byte
	for _, id := range ids {
		buf = protowire.AppendTag(buf, fieldNeighborID, protowire.VarintType)
		buf = protowire.AppendVarint(buf, id)
	}
	for _, id := range ids {
		buf = protowire.AppendTag(buf, fieldNeighborDist, protowire.Fixed64Type)
		buf = protowire.AppendFixed64(buf, float64bits(node[id]))
	}
	return buf
}

// DecodeLayerNode parses bytes produced by EncodeLayerNode back into a
// LayerNode.
func DecodeLayerNode(data []byte) (LayerNode, error) {
	var ids []PointID
	var dists []float64

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("storage: decode layer node: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldNeighborID && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("storage: decode layer node: %w", protowire.ParseError(n))
			}
			data = data[n:]
			ids = append(ids, v)
		case num == fieldNeighborDist && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return nil, fmt.Errorf("storage: decode layer node: %w", protowire.ParseError(n))
			}
			data = data[n:]
			dists = append(dists, float64frombits(v))
		default:
			return nil, fmt.Errorf("storage: decode layer node: unexpected field %d type %d", num, typ)
		}
	}

	if len(ids) != len(dists) {
		return nil, fmt.Errorf("storage: decode layer node: id/distance count mismatch (%d vs %d)", len(ids), len(dists))
	}
	node := make(LayerNode, len(ids))
	for i, id := range ids {
		node[id] = dists[i]
	}
	return node, nil
}
