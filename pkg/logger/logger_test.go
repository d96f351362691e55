package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newBufferLogger(cfg Config) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Logger{config: cfg, logger: log.New(&buf, "", 0)}, &buf
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{TraceLevel, "TRACE"},
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(999), "UNKNOWN"},
	}

	for _, test := range tests {
		if result := test.level.String(); result != test.expected {
			t.Errorf("Level.String() = %v, expected %v", result, test.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    Level
		wantErr bool
	}{
		{"trace", TraceLevel, false},
		{"DEBUG", DebugLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{" error ", ErrorLevel, false},
		{"loud", InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tt.name, got, tt.want)
		}
	}
}

func TestLoggerPrettyFormatting(t *testing.T) {
	l, _ := newBufferLogger(Config{Level: InfoLevel, Component: "metaguard"})

	entry := LogEntry{
		Time:      time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		Level:     "INFO",
		Message:   "conflicts detected",
		Component: "metaguard",
		Fields:    map[string]interface{}{"org": "dev@example.com", "count": 2},
	}

	result := l.formatPretty(entry, false)
	expected := "2025-01-01 12:00:00 [INFO] metaguard: conflicts detected {count=2, org=dev@example.com}"
	if result != expected {
		t.Errorf("formatPretty() = %q, expected %q", result, expected)
	}

	colored := l.formatPretty(entry, true)
	if !strings.Contains(colored, "\033[32mINFO\033[0m") {
		t.Errorf("expected colored level, got %q", colored)
	}
}

func TestLoggerNoOpIndicator(t *testing.T) {
	l, buf := newBufferLogger(Config{Level: InfoLevel, NoOp: true})
	l.Log(InfoLevel, "dry run")
	if !strings.Contains(buf.String(), "[NO-OP] dry run") {
		t.Errorf("missing no-op indicator: %s", buf.String())
	}
}

func TestLoggerJSONFormatting(t *testing.T) {
	l, buf := newBufferLogger(Config{Level: InfoLevel, JSON: true, Component: "metaguard"})

	l.Log(InfoLevel, "snapshot loaded", String("selection", "manifest/package.xml"))

	var parsed LogEntry
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &parsed); err != nil {
		t.Fatalf("Log() produced invalid JSON: %v\nOutput: %s", err, buf.String())
	}
	if parsed.Message != "snapshot loaded" || parsed.Level != "INFO" || parsed.Component != "metaguard" {
		t.Errorf("unexpected entry: %+v", parsed)
	}
	if parsed.Fields["selection"] != "manifest/package.xml" {
		t.Errorf("missing field: %+v", parsed.Fields)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(Config{Level: WarnLevel})

	l.Log(InfoLevel, "info message")
	l.Log(DebugLevel, "debug message")
	l.Log(WarnLevel, "warn message")
	l.Log(ErrorLevel, "error message")

	output := buf.String()
	for _, hidden := range []string{"info message", "debug message"} {
		if strings.Contains(output, hidden) {
			t.Errorf("%q should be filtered out", hidden)
		}
	}
	for _, shown := range []string{"warn message", "error message"} {
		if !strings.Contains(output, shown) {
			t.Errorf("%q should appear", shown)
		}
	}
}

func TestFieldConstructors(t *testing.T) {
	if f := String("key", "value"); f.Key != "key" || f.Value != "value" {
		t.Errorf("String() = %+v", f)
	}
	if f := Int("count", 42); f.Key != "count" || f.Value != 42 {
		t.Errorf("Int() = %+v", f)
	}
	if f := Bool("enabled", true); f.Key != "enabled" || f.Value != true {
		t.Errorf("Bool() = %+v", f)
	}
	if f := Duration("elapsed", 1500*time.Millisecond); f.Value != "1.5s" {
		t.Errorf("Duration() = %+v", f)
	}
	if f := Err(errors.New("boom")); f.Key != "error" || f.Value != "boom" {
		t.Errorf("Err() = %+v", f)
	}
	if f := Err(nil); f.Value != "<nil>" {
		t.Errorf("Err(nil) = %+v", f)
	}
}

func TestConvenienceFunctionsAndSetOutput(t *testing.T) {
	if err := Initialize(Config{Level: InfoLevel, Component: "metaguard"}); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	var buf bytes.Buffer
	SetOutput(&buf)

	Info("info visible")
	Warn("warn visible")
	Error("error visible")
	Debug("debug hidden")
	Trace("trace hidden")

	output := buf.String()
	for _, want := range []string{"info visible", "warn visible", "error visible"} {
		if !strings.Contains(output, want) {
			t.Errorf("missing %q in %s", want, output)
		}
	}
	if strings.Contains(output, "hidden") {
		t.Errorf("debug/trace should be filtered: %s", output)
	}
}

func TestFallbackLogging(t *testing.T) {
	original := defaultLogger
	defaultLogger = nil
	defer func() { defaultLogger = original }()

	// Must not panic before Initialize.
	Info("fallback message")
	Debug("dropped")
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "metaguard.log")
	if err := Initialize(Config{Level: InfoLevel, UseColor: true, Component: "metaguard", File: FileConfig{Path: path, MaxSizeMB: 1}}); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	SetOutput(&bytes.Buffer{})

	Info("written to file", String("org", "dev@example.com"))
	if err := Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	content := string(raw)
	if !strings.Contains(content, "[INFO] metaguard: written to file {org=dev@example.com}") {
		t.Errorf("unexpected file content: %q", content)
	}
	if strings.Contains(content, "\033[") {
		t.Errorf("file content must not contain color codes: %q", content)
	}
}
