package hnsw

import (
	"bytes"
	"strings"
	"testing"
)

func TestDefaultLoggerRespectsMinLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelWarn)

	logger.Info("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing logged below min level, got %q", buf.String())
	}

	logger.Warn("should appear", "key", "value")
	if !strings.Contains(buf.String(), "should appear") {
		t.Fatalf("expected message to be logged, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "key=value") {
		t.Fatalf("expected keyvals to be rendered, got %q", buf.String())
	}
}

func TestLoggerWithCarriesKeyvals(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelDebug).With("component", "index")

	logger.Debug("hello")
	if !strings.Contains(buf.String(), "component=index") {
		t.Fatalf("expected derived keyvals in output, got %q", buf.String())
	}
}

func TestNopLoggerDoesNothing(t *testing.T) {
	logger := NopLogger()
	logger.Info("anything")
	logger.With("a", "b").Error("anything else")
}
