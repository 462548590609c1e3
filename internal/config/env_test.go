package config

import (
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("EHR_TEST_STR", "value")
	if got := EnvOrDefault("EHR_TEST_STR", "fallback"); got != "value" {
		t.Fatalf("expected value, got %s", got)
	}
	if got := EnvOrDefault("EHR_TEST_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %s", got)
	}
}

func TestEnvOrDefaultInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("EHR_TEST_INT", "not-a-number")
	if got := EnvOrDefaultInt("EHR_TEST_INT", 7); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
	t.Setenv("EHR_TEST_INT", "12")
	if got := EnvOrDefaultInt("EHR_TEST_INT", 7); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	t.Setenv("EHR_TEST_BOOL", "true")
	if !EnvOrDefaultBool("EHR_TEST_BOOL", false) {
		t.Fatal("expected true")
	}
	t.Setenv("EHR_TEST_BOOL", "maybe")
	if EnvOrDefaultBool("EHR_TEST_BOOL", false) {
		t.Fatal("expected fallback false for unparsable value")
	}
}

func TestEnvOrDefaultMillis(t *testing.T) {
	t.Setenv("EHR_TEST_MS", "250")
	if got := EnvOrDefaultMillis("EHR_TEST_MS", time.Second); got != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %v", got)
	}
	t.Setenv("EHR_TEST_MS", "-5")
	if got := EnvOrDefaultMillis("EHR_TEST_MS", time.Second); got != time.Second {
		t.Fatalf("expected fallback 1s for negative value, got %v", got)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
