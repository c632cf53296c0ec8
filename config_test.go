package hnsw

import "testing"

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestConfigValidateRejectsBadM(t *testing.T) {
	cfg := DefaultConfig()
	cfg.M = 1
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for M<=1")
	}
}

func TestConfigValidateRejectsNonPositiveEf(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EfConstruction = 0
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for non-positive ef_construction")
	}

	cfg = DefaultConfig()
	cfg.EfSearch = -1
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for non-positive ef_search")
	}
}
