package config

import (
	"fmt"
	"strings"
	"time"
)

// RateLimitConfig controls the token bucket guarding the login route.
// Client codes are short shared secrets, so the defaults favour a small
// burst per caller IP.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration // bucket expiry, at least five refill intervals
	KeyStrategy    string        // ip, route, client, ip_client, ip_route or ip_client_route
	Prefix         string
	Debug          bool // log rejections and expose X-RateLimit-Key
}

var rateKeyStrategies = []string{"ip", "route", "client", "ip_client", "ip_route", "ip_client_route"}

// loadRateLimit reads RATE_LIMIT_*. RATE_LIMIT_BURST and
// RATE_LIMIT_REFILL_EVERY are shorthands for a bucket refilled one token at
// a time.
func loadRateLimit() (RateLimitConfig, error) {
	rl := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 10),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 2*time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    strings.ToLower(envStr("RATE_LIMIT_KEY_STRATEGY", "ip_route")),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if !oneOf(rl.KeyStrategy, rateKeyStrategies...) {
		return rl, fmt.Errorf("invalid RATE_LIMIT_KEY_STRATEGY %q: want one of %s",
			rl.KeyStrategy, strings.Join(rateKeyStrategies, ", "))
	}
	if b := envInt("RATE_LIMIT_BURST", 0); b > 0 {
		rl.Capacity = b
	}
	if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
		rl.RefillTokens = 1
		rl.RefillInterval = every
	}
	if rl.Enabled && (rl.Capacity < 1 || rl.RefillTokens < 1 || rl.RefillInterval <= 0) {
		return rl, fmt.Errorf("rate limit needs a positive capacity, refill and interval (got %d, %d, %s)",
			rl.Capacity, rl.RefillTokens, rl.RefillInterval)
	}
	rl.TTL = max(rl.TTL, 5*rl.RefillInterval)
	return rl, nil
}
