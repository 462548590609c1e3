// Package config holds the environment helpers and logger construction shared
// by the worker, gateway and CLI binaries.
package config

import (
	"os"
	"strconv"
	"time"
)

// EnvOrDefault returns the value of key, or defaultVal when unset or empty.
func EnvOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func EnvOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func EnvOrDefaultFloat(key string, defaultVal float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return defaultVal
}

// EnvOrDefaultBool accepts anything strconv.ParseBool does ("1", "true", "TRUE", ...).
func EnvOrDefaultBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

// EnvOrDefaultMillis reads an integer millisecond count and returns it as a duration.
func EnvOrDefaultMillis(key string, defaultVal time.Duration) time.Duration {
	ms := EnvOrDefaultInt(key, int(defaultVal/time.Millisecond))
	if ms <= 0 {
		return defaultVal
	}
	return time.Duration(ms) * time.Millisecond
}
