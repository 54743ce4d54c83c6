package config

import (
	"fmt"
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching will be disabled.
// Methods lists the HTTP methods to cache.  TTL bounds how long a retired
// listing stays in Redis.  KeyStrategy determines which parts of the request
// contribute to the cache key.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string // path, method_path or path_query
	Prefix       string
	MaxBodyBytes int
}

// loadCache reads CACHE_*.  All methods are upper-cased.
func loadCache() (CacheConfig, error) {
	cc := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  strings.ToLower(envStr("CACHE_KEY_STRATEGY", "path")),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1048576),
	}
	if !oneOf(cc.KeyStrategy, "path", "method_path", "path_query") {
		return cc, fmt.Errorf("invalid CACHE_KEY_STRATEGY %q", cc.KeyStrategy)
	}
	if cc.Enabled && cc.TTL <= 0 {
		return cc, fmt.Errorf("invalid CACHE_TTL %s", cc.TTL)
	}
	return cc, nil
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
