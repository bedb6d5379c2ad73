package config

import "time"

// RateLimitConfig drives the Redis token bucket in front of the API.
// Each client key starts with Capacity tokens and regains Refill tokens
// every Every.  Scope picks the key: "ip", "ip_route" or "user_route".
// The user falls back to the client IP for anonymous requests.
type RateLimitConfig struct {
	Enabled  bool
	Capacity int
	Refill   int
	Every    time.Duration
	TTL      time.Duration
	Scope    string
	Prefix   string
}

func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:  envBool("RATE_LIMIT_ENABLED", true),
		Capacity: envInt("RATE_LIMIT_CAPACITY", 60),
		Refill:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		Every:    envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:      envDur("RATE_LIMIT_TTL", 10*time.Minute),
		Scope:    envStr("RATE_LIMIT_SCOPE", "ip_route"),
		Prefix:   envStr("RATE_LIMIT_PREFIX", "rl"),
	}
	cfg.Capacity = max(cfg.Capacity, 1)
	cfg.Refill = max(cfg.Refill, 1)
	if cfg.Every <= 0 {
		cfg.Every = time.Second
	}
	// an idle bucket must outlive a full refill or it resets early
	cfg.TTL = max(cfg.TTL, 5*cfg.Every)
	return cfg
}

// CacheConfig drives the response cache of the public catalogue.
// Responses larger than MaxBody bytes are served but not stored.
type CacheConfig struct {
	Enabled bool
	Methods map[string]bool
	TTL     time.Duration
	Prefix  string
	MaxBody int
}

func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled: envBool("CACHE_ENABLED", true),
		Methods: envSet("CACHE_METHODS", "GET"),
		TTL:     envDur("CACHE_TTL", 30*time.Second),
		Prefix:  envStr("CACHE_PREFIX", "cache"),
		MaxBody: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return cfg
}
