package config

import (
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnv returns the environment variable value for key, or def if unset or empty.
func GetEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetEnvInt returns the environment variable value for key parsed as int, or def if unset or invalid.
func GetEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

// GetEnvFloat returns the environment variable value for key parsed as a finite float64,
// or def if unset, invalid, NaN or infinite.
func GetEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return def
}

// GetEnvBool returns the environment variable value for key parsed with strconv.ParseBool,
// or def if unset or invalid.
func GetEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return b
		}
	}
	return def
}

// GetEnvDuration returns the environment variable value for key parsed as time.Duration, or def if unset or invalid.
func GetEnvDuration(key string, def time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return def
}

// GetEnvList splits a comma separated variable into trimmed, non-empty items.
// def is returned when the variable is unset or contains no items.
func GetEnvList(key string, def []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// GetEnvFloatMap parses "key=value" pairs separated by commas, e.g.
// "OKX:BTC-USDT=1.5e9,OKX:ETH-USDT=6e8". Malformed pairs are skipped.
func GetEnvFloatMap(key string) map[string]float64 {
	out := make(map[string]float64)
	for _, pair := range GetEnvList(key, nil) {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(k))] = f
	}
	return out
}
