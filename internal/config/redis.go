package config

import (
    "context"
    "crypto/tls"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisConfig locates the Redis instance behind the rate limiter and the
// caches. URL (redis:// or rediss://) wins over the discrete fields.
type RedisConfig struct {
    URL      string
    Addr     string
    Password string
    DB       int
    TLS      bool
}

// LoadRedisConfig reads REDIS_URL, or REDIS_ADDR / REDIS_HOST+REDIS_PORT with
// REDIS_PASSWORD, REDIS_DB and REDIS_TLS.
func LoadRedisConfig() RedisConfig {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
        addr = host + ":" + port
    }
    return RedisConfig{
        URL:      envStr("REDIS_URL", ""),
        Addr:     addr,
        Password: envStr("REDIS_PASSWORD", ""),
        DB:       envInt("REDIS_DB", 0),
        TLS:      envBool("REDIS_TLS", false),
    }
}

// Options converts the config into client options.
func (c RedisConfig) Options() (*redis.Options, error) {
    if c.URL != "" {
        opt, err := redis.ParseURL(c.URL)
        if err != nil {
            return nil, fmt.Errorf("REDIS_URL: %w", err)
        }
        return opt, nil
    }
    opt := &redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB}
    if c.TLS {
        opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    return opt, nil
}

// NewRedisClient connects and pings. It returns nil when Redis is not
// configured correctly or not reachable; callers then run without the
// limiter and the caches.
func NewRedisClient() *redis.Client {
    opt, err := LoadRedisConfig().Options()
    if err != nil {
        return nil
    }
    client := redis.NewClient(opt)
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
