// Package config resolves the immutable service configuration from CLI
// flags, prefixed environment variables, a JSON config file, and built-in
// defaults, in that order of precedence
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"unfurl/internal/platform/logger"
)

// Conf is a namespaced view over environment variables (e.g. "UNFURL_")
// Use New() for global access, or Prefix("UNFURL_") for module scopes.
type Conf struct{ prefix string }

// New creates a root Conf (no prefix)
func New() Conf { return Conf{} }

// Prefix creates a child Conf with an additional prefix, e.g. cfg.Prefix("UNFURL_")
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

// key composes the fully-qualified env var name
func (c Conf) key(k string) string { return c.prefix + k }

// Lookup returns the trimmed value and whether the key is set non-empty
func (c Conf) Lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(c.key(key)))
	return v, v != ""
}

// MustString panics if the given key is missing or empty
func (c Conf) MustString(key string) string {
	v, ok := c.Lookup(key)
	if !ok {
		logger.Get().Panic().Str("key", c.key(key)).Msg("missing required env")
	}
	return v
}

// MayString returns the value or def if missing/empty
func (c Conf) MayString(key, def string) string {
	if v, ok := c.Lookup(key); ok {
		return v
	}
	return def
}

// MayInt returns the value or def if missing/empty; logs and returns def if invalid
func (c Conf) MayInt(key string, def int) int {
	s, ok := c.Lookup(key)
	if !ok {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Int("default", def).Msg("invalid int; using default")
	return def
}

// MayInt64 returns the value or def if missing/empty; logs and returns def if invalid
func (c Conf) MayInt64(key string, def int64) int64 {
	s, ok := c.Lookup(key)
	if !ok {
		return def
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Int64("default", def).Msg("invalid int; using default")
	return def
}

// MayBool returns the value or def if missing/empty; logs and returns def if invalid
func (c Conf) MayBool(key string, def bool) bool {
	s, ok := c.Lookup(key)
	if !ok {
		return def
	}
	if v, err := strconv.ParseBool(s); err == nil {
		return v
	}
	logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Bool("default", def).Msg("invalid bool; using default")
	return def
}

// MayDuration returns the value or def if missing/empty; logs and returns def if invalid
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	s, ok := c.Lookup(key)
	if !ok {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Dur("default", def).Msg("invalid duration; using default")
	return def
}
