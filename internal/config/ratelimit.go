package config

import (
    "strings"
    "time"
)

// Limiter scopes. Each scope is a separate bucket family in Redis.
const (
    LimitAuth   = "auth"   // login and refresh
    LimitSubmit = "submit" // upload, checkout and the contractor application form
)

// RateLimitConfig configures one token bucket.
type RateLimitConfig struct {
    Scope          string
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string // ip, user, route, ip_route
    Prefix         string
    Debug          bool
}

// Credential guessing gets a small bucket keyed by client address; the
// submission endpoints allow bursts per route.
var limitDefaults = map[string]RateLimitConfig{
    LimitAuth:   {Capacity: 5, RefillTokens: 1, RefillInterval: 12 * time.Second, KeyStrategy: "ip"},
    LimitSubmit: {Capacity: 10, RefillTokens: 1, RefillInterval: 6 * time.Second, KeyStrategy: "ip_route"},
}

// LoadRateLimitConfig reads RATE_LIMIT_<SCOPE>_* and falls back to the
// shared RATE_LIMIT_* variables, then to the scope defaults.
func LoadRateLimitConfig(scope string) RateLimitConfig {
    def, ok := limitDefaults[scope]
    if !ok {
        def = limitDefaults[LimitSubmit]
    }
    up := "RATE_LIMIT_" + strings.ToUpper(scope) + "_"
    pick := func(name string) string {
        if v := envStr(up+name, ""); v != "" {
            return up + name
        }
        return "RATE_LIMIT_" + name
    }
    cfg := RateLimitConfig{
        Scope:          scope,
        Enabled:        envBool(pick("ENABLED"), true),
        Capacity:       envInt(pick("CAPACITY"), def.Capacity),
        RefillTokens:   envInt(pick("REFILL_TOKENS"), def.RefillTokens),
        RefillInterval: envDur(pick("REFILL_INTERVAL"), def.RefillInterval),
        TTL:            envDur(pick("TTL"), 10*time.Minute),
        KeyStrategy:    envStr(pick("KEY_STRATEGY"), def.KeyStrategy),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl") + ":" + scope,
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    if cfg.Capacity < 1 {
        cfg.Capacity = 1
    }
    if cfg.RefillTokens < 1 {
        cfg.RefillTokens = 1
    }
    if cfg.RefillInterval <= 0 {
        cfg.RefillInterval = time.Second
    }
    // a bucket must outlive a full refill or idle keys reset to capacity early
    if full := time.Duration(cfg.Capacity/cfg.RefillTokens+1) * cfg.RefillInterval; cfg.TTL < full {
        cfg.TTL = full
    }
    return cfg
}
