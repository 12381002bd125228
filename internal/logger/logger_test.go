package logger

import (
	"os"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for raw, want := range cases {
		if got := parseLevel(raw); got != want {
			t.Errorf("parseLevel(%q) = %v want %v", raw, got, want)
		}
	}
}

func TestZapLoggerWritesObjectField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := New(zap.New(core).Sugar())

	log.WarnObj("fetch failed", "fetch_error", map[string]any{"city": "Tokyo"})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Message != "fetch failed" || entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("unexpected entry %+v", entries[0])
	}
	if _, ok := entries[0].ContextMap()["fetch_error"]; !ok {
		t.Fatalf("missing fetch_error field: %v", entries[0].ContextMap())
	}
}

func TestEnsureFallsBackToNop(t *testing.T) {
	if _, ok := Ensure(nil).(NopLogger); !ok {
		t.Fatalf("expected NopLogger")
	}
	if _, ok := New(nil).(NopLogger); !ok {
		t.Fatalf("expected NopLogger for nil sugared logger")
	}
}

func TestSinkSelectsStream(t *testing.T) {
	if sink("stderr") != os.Stderr {
		t.Fatalf("stderr sink not selected")
	}
	if sink("") != os.Stdout || sink("bogus") != os.Stdout {
		t.Fatalf("expected stdout by default")
	}
}
