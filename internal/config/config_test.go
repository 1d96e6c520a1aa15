package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestLoadRateLimitConfigClampsTTL(t *testing.T) {
    t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "10s")
    t.Setenv("RATE_LIMIT_TTL", "1s")
    t.Setenv("RATE_LIMIT_CAPACITY", "0")

    cfg := LoadRateLimitConfig(LimitSubmit)
    assert.Equal(t, 1, cfg.Capacity)
    assert.Equal(t, 20*time.Second, cfg.TTL)
    assert.Equal(t, "rl:submit", cfg.Prefix)
}

func TestLoadRateLimitConfigScopes(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "50")
    t.Setenv("RATE_LIMIT_AUTH_CAPACITY", "3")

    auth := LoadRateLimitConfig(LimitAuth)
    assert.Equal(t, 3, auth.Capacity)
    assert.Equal(t, "ip", auth.KeyStrategy)
    assert.Equal(t, 12*time.Second, auth.RefillInterval)

    submit := LoadRateLimitConfig(LimitSubmit)
    assert.Equal(t, 50, submit.Capacity)
    assert.Equal(t, "ip_route", submit.KeyStrategy)
}

func TestRedisOptions(t *testing.T) {
    t.Setenv("REDIS_HOST", "cache.internal")
    t.Setenv("REDIS_PORT", "6380")
    t.Setenv("REDIS_TLS", "yes")
    opt, err := LoadRedisConfig().Options()
    require.NoError(t, err)
    assert.Equal(t, "cache.internal:6380", opt.Addr)
    assert.NotNil(t, opt.TLSConfig)

    opt, err = RedisConfig{URL: "redis://:pw@10.0.0.5:6379/2"}.Options()
    require.NoError(t, err)
    assert.Equal(t, "10.0.0.5:6379", opt.Addr)
    assert.Equal(t, 2, opt.DB)
    assert.Equal(t, "pw", opt.Password)

    _, err = RedisConfig{URL: "http://nope"}.Options()
    assert.Error(t, err)
}

func TestCacheDisabledByZeroTTL(t *testing.T) {
    t.Setenv("CACHE_TTL", "0s")
    assert.False(t, LoadCacheConfig().Enabled)
}

func TestEnvHelpersFallBack(t *testing.T) {
    t.Setenv("X_DUR", "nope")
    t.Setenv("X_BOOL", "off")
    assert.Equal(t, 3*time.Second, envDur("X_DUR", 3*time.Second))
    assert.False(t, envBool("X_BOOL", true))
    assert.Equal(t, 7, envInt("X_MISSING", 7))
}

func TestLoadReadsReviewPortalSettings(t *testing.T) {
    for k, v := range map[string]string{
        "APP_ENV": "test", "APP_PORT": "8080",
        "DB_USER": "u", "DB_HOST": "h", "DB_PORT": "3306", "DB_NAME": "scripts",
        "JWT_SECRET": "s", "ACCESS_TOKEN_TTL_MIN": "15", "REFRESH_TOKEN_TTL_DAYS": "7", "BCRYPT_COST": "4",
        "ADMIN_EMAIL": "Admin@Example.com", "ADMIN_PASSWORD_HASH": "$2a$04$x",
        "AUTOSAVE_DEBOUNCE": "500ms", "CORS_ORIGINS": "https://a.test, https://b.test",
    } {
        t.Setenv(k, v)
    }
    cfg := Load()
    assert.Equal(t, "admin@example.com", cfg.AdminEmail)
    assert.Equal(t, 500*time.Millisecond, cfg.AutosaveDebounce)
    assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSOrigins)
    assert.False(t, cfg.Stripe.Enabled())
    assert.Equal(t, "uploads", cfg.Storage.LocalDir)
}
