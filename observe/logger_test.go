package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line is not JSON: %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestLogger_StructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)
	ctx := context.Background()

	logger.Info(ctx, "cache hit", Field{Key: "key", Value: "abc123"})

	entries := logLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e["msg"] != "cache hit" {
		t.Errorf("unexpected msg: %v", e["msg"])
	}
	if e["level"] != "info" {
		t.Errorf("unexpected level: %v", e["level"])
	}
	if e["key"] != "abc123" {
		t.Errorf("unexpected field: %v", e["key"])
	}
	if e["timestamp"] == nil {
		t.Error("missing timestamp")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)
	ctx := context.Background()

	logger.Debug(ctx, "dropped")
	logger.Info(ctx, "dropped")
	logger.Warn(ctx, "kept")
	logger.Error(ctx, "kept")

	if got := len(logLines(t, &buf)); got != 2 {
		t.Errorf("expected 2 entries after filtering, got %d", got)
	}
}

func TestLogger_WithTask(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)

	scoped := logger.WithTask(TaskMeta{Name: "uglify", Task: "minify", Version: "2"})
	scoped.Debug(context.Background(), "cache miss")

	entries := logLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e["cache.name"] != "uglify" {
		t.Errorf("missing cache.name: %v", e)
	}
	if e["cache.task"] != "minify" {
		t.Errorf("missing cache.task: %v", e)
	}
	if e["cache.version"] != "2" {
		t.Errorf("missing cache.version: %v", e)
	}

	// The base logger is unchanged.
	buf.Reset()
	logger.Debug(context.Background(), "plain")
	e = logLines(t, &buf)[0]
	if _, ok := e["cache.name"]; ok {
		t.Error("WithTask leaked attributes into the base logger")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
