package storage

import "testing"

func TestEncodeDecodePointRoundTrip(t *testing.T) {
	p := Point{1.5, -2.25, 0, 3.125}
	data := EncodePoint(p)
	got, err := DecodePoint(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(p) {
		t.Fatalf("expected %v, got %v", p, got)
	}
	for i := range p {
		if got[i] != p[i] {
			t.Fatalf("expected %v, got %v", p, got)
		}
	}
}

func TestEncodeDecodeLayerNodeRoundTrip(t *testing.T) {
	node := LayerNode{1: 0.5, 2: 1.25, 100: 3.0}
	data := EncodeLayerNode(node)
	got, err := DecodeLayerNode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(node) {
		t.Fatalf("expected %d entries, got %d", len(node), len(got))
	}
	for id, dist := range node {
		if got[id] != dist {
			t.Fatalf("expected %v for id %d, got %v", dist, id, got[id])
		}
	}
}

func TestDecodeEmptyLayerNode(t *testing.T) {
	got, err := DecodeLayerNode(nil)
	if err != nil {
		t.Fatalf("decode empty: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty node, got %+v", got)
	}
}
