// Package raw provides a minimal env reader used during bootstrap.
// It intentionally has NO dependency on the logger package to avoid import cycles
package raw

import (
	"os"
	"strconv"
	"strings"
)

// Conf is a namespaced view over environment variables (e.g. "UNFURL_", "LOG_")
type Conf struct{ prefix string }

// New returns a root Conf (no prefix)
func New() Conf { return Conf{} }

// Prefix returns a child Conf with an additional prefix (e.g. "LOG_")
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

// key composes the fully-qualified env var
func (c Conf) key(k string) string { return c.prefix + k }

// Lookup returns the trimmed env var and whether it was set to a non-empty value
func (c Conf) Lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(c.key(key)))
	return v, v != ""
}

// Get returns the trimmed env var or the provided default if empty
func (c Conf) Get(key, def string) string {
	if v, ok := c.Lookup(key); ok {
		return v
	}
	return def
}

// GetBool parses a bool-like env ("1|true|yes") with default fallback
func (c Conf) GetBool(key string, def bool) bool {
	v, ok := c.Lookup(key)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return def
}

// GetInt parses an integer with default fallback; non-numeric -> def
func (c Conf) GetInt(key string, def int) int {
	v, ok := c.Lookup(key)
	if !ok {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return def
}

// GetInt64 parses a 64-bit integer with default fallback; non-numeric -> def
func (c Conf) GetInt64(key string, def int64) int64 {
	v, ok := c.Lookup(key)
	if !ok {
		return def
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	return def
}
