package config

import "time"

// CacheConfig drives the Redis response cache in front of the public tier
// catalogue and the rendered review PDF cache.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration // catalogue responses
    ExportTTL    time.Duration // rendered review PDFs
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables with defaults.
func LoadCacheConfig() CacheConfig {
    cfg := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        TTL:          envDur("CACHE_TTL", 5*time.Minute),
        ExportTTL:    envDur("CACHE_EXPORT_TTL", 24*time.Hour),
        Prefix:       envStr("CACHE_PREFIX", "cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 64<<10),
    }
    if cfg.TTL <= 0 || cfg.ExportTTL <= 0 {
        cfg.Enabled = false
    }
    return cfg
}
