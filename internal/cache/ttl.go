package cache

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// TTL bounds and environment variables.
const (
	// DefaultTTLSeconds is one day; database content rarely changes faster.
	DefaultTTLSeconds = 86400

	MinTTLSeconds = 60
	MaxTTLSeconds = 30 * 86400

	EnvTTLSeconds   = "LCAPROMMIS_CACHE_TTL_SECONDS"
	EnvCacheEnabled = "LCAPROMMIS_CACHE_ENABLED"
	EnvCacheDir     = "LCAPROMMIS_CACHE_DIR"

	hoursPerDay = 24
)

// ErrInvalidTTL is returned for a TTL outside the allowed range.
var ErrInvalidTTL = fmt.Errorf("TTL must be between %d and %d seconds", MinTTLSeconds, MaxTTLSeconds)

// TTLFromEnv returns the TTL override, or def when unset or invalid.
func TTLFromEnv(def int) int {
	v := os.Getenv(EnvTTLSeconds)
	if v == "" {
		return def
	}
	ttl, err := ParseTTL(v)
	if err != nil {
		return def
	}
	return ttl
}

// EnabledFromEnv returns the enabled override, or def when unset or invalid.
func EnabledFromEnv(def bool) bool {
	v := os.Getenv(EnvCacheEnabled)
	if v == "" {
		return def
	}
	enabled, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return enabled
}

// DirFromEnv returns the directory override or "".
func DirFromEnv() string {
	return os.Getenv(EnvCacheDir)
}

// ParseTTL accepts integer seconds ("3600") or a duration ("12h", "90m").
func ParseTTL(s string) (int, error) {
	seconds, err := strconv.Atoi(s)
	if err != nil {
		d, derr := time.ParseDuration(s)
		if derr != nil {
			return 0, fmt.Errorf("invalid TTL format: %w", derr)
		}
		seconds = int(d.Seconds())
	}
	if seconds < MinTTLSeconds || seconds > MaxTTLSeconds {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidTTL, seconds)
	}
	return seconds, nil
}

// FormatDuration renders d as "45s", "30m", "5h20m" or "2d3h".
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.0fm", d.Minutes())
	case d < hoursPerDay*time.Hour:
		h, m := int(d.Hours()), int(d.Minutes())%60
		if m == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh%dm", h, m)
	}
	days, h := int(d.Hours())/hoursPerDay, int(d.Hours())%hoursPerDay
	if h == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%dh", days, h)
}
