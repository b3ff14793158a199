package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func newJSONLogger(level string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg := &Config{Level: level, Format: "json", Output: "stdout"}
	return NewWithWriter(cfg, "test", &buf), &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid json line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	cfg := &Config{
		Level:  "invalid-level",
		Format: "json",
		Output: "stdout",
	}
	l := New(cfg, "test")
	if l == nil {
		t.Fatal("expected logger to be created even with invalid level")
	}
}

func TestNewFromEnv(t *testing.T) {
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("LOG_FORMAT", "json")
	defer os.Unsetenv("LOG_LEVEL")
	defer os.Unsetenv("LOG_FORMAT")

	l := NewFromEnv("env-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestLogCategoryAndLevel(t *testing.T) {
	l, buf := newJSONLogger("debug")

	l.Log("saved", CategoryCache, LevelInfo, Fields("cache_key", "monet:page:1"))
	l.Log("queued", CategoryOffline, LevelWarn)
	l.Log("boom", CategoryAPI, LevelError)
	l.Log("probe", CategoryNetwork, LevelDebug)

	lines := decodeLines(t, buf)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}

	tests := []struct {
		category string
		level    string
	}{
		{"cache", "info"},
		{"offline", "warn"},
		{"api", "error"},
		{"network", "debug"},
	}
	for i, tc := range tests {
		if lines[i]["category"] != tc.category {
			t.Errorf("line %d: expected category %q, got %v", i, tc.category, lines[i]["category"])
		}
		if lines[i]["level"] != tc.level {
			t.Errorf("line %d: expected level %q, got %v", i, tc.level, lines[i]["level"])
		}
	}
	if lines[0]["cache_key"] != "monet:page:1" {
		t.Errorf("expected cache_key field, got %v", lines[0]["cache_key"])
	}
}

func TestLogRespectsLevel(t *testing.T) {
	l, buf := newJSONLogger("warn")
	l.Log("hidden", CategoryGeneral, LevelInfo)
	l.Log("shown", CategoryGeneral, LevelError)

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0]["message"] != "shown" {
		t.Errorf("unexpected message %v", lines[0]["message"])
	}
}

func TestLogNilReceiver(t *testing.T) {
	var l *Logger
	l.Log("ignored", CategoryGeneral, LevelError)
}

func TestNopDiscards(t *testing.T) {
	Nop().Log("nothing", CategoryUI, LevelError)
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
	}{
		{"api", CategoryAPI},
		{" Cache ", CategoryCache},
		{"OFFLINE", CategoryOffline},
		{"bogus", CategoryGeneral},
		{"", CategoryGeneral},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := ParseCategory(tc.in); got != tc.want {
				t.Errorf("ParseCategory(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	if LevelWarn.String() != "warn" {
		t.Errorf("unexpected %q", LevelWarn.String())
	}
	if Level(42).String() != "unknown" {
		t.Errorf("unexpected %q", Level(42).String())
	}
}

func TestWithComponentAndContext(t *testing.T) {
	l, buf := newJSONLogger("info")
	ctx := ContextWithRequestID(context.Background(), "req-1")
	l.WithComponent("handler").WithContext(ctx).Info("hello")

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0]["component"] != "handler" {
		t.Errorf("expected component=handler, got %v", lines[0]["component"])
	}
	if lines[0]["request_id"] != "req-1" {
		t.Errorf("expected request_id=req-1, got %v", lines[0]["request_id"])
	}
}

func TestInitSetsGlobal(t *testing.T) {
	cfg := Config{Level: "info", Format: "console", Output: "stdout"}
	Init(&cfg)
	if GetGlobalLogger() == nil {
		t.Fatal("expected global logger to be set after Init")
	}
}

func TestGetGlobalLoggerDefault(t *testing.T) {
	globalLogger = nil
	if GetGlobalLogger() == nil {
		t.Fatal("expected default global logger to be created")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"bad level", Config{Level: "loud"}, true},
		{"bad format", Config{Format: "xml"}, true},
		{"bad output", Config{Output: "file"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			cfg.ApplyDefaults()
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestFieldsHelpers(t *testing.T) {
	f := Fields("a", 1, "b", "two", 3, "ignored")
	if f["a"] != 1 || f["b"] != "two" {
		t.Errorf("unexpected fields %v", f)
	}
	if len(f) != 2 {
		t.Errorf("expected 2 fields, got %d", len(f))
	}
	m := MergeWithError(nil, os.ErrNotExist)
	if m[FieldError] == "" {
		t.Error("expected error field")
	}
}
