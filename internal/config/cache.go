package config

import "time"

// CacheConfig defines settings for the browse response cache.  When
// Enabled is false or no Redis client is available, caching is a no-op.
// TTL bounds how long listings may show a stale quantity_available; it
// is deliberately short since availability changes at every settlement.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: envBool("CACHE_ENABLED", true),
		TTL:     parseDur(getenv("CACHE_TTL", "15s")),
		Prefix:  getenv("CACHE_PREFIX", "cache"),
	}
}
