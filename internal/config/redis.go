package config

// Redis backs the response cache, the rate limiter, the pending-upload ledger
// and the per-user submit lock.  When the server cannot be reached at startup
// NewRedisClient returns nil and each of those features degrades on its own:
// caching and rate limiting turn into pass-through middleware, the ledger is
// skipped and submissions rely on the in-process guard only.

import (
	"context"
	"crypto/tls"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from the environment:
//   REDIS_HOST and REDIS_PORT, or REDIS_ADDR (host:port)
//   REDIS_PASSWORD, REDIS_DB (default 0), REDIS_TLS ("true" or "1")
func RedisOptions() *redis.Options {
	addr := os.Getenv("REDIS_ADDR")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	var tlsConf *tls.Config
	if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	return &redis.Options{
		Addr:      addr,
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        envInt("REDIS_DB", 0),
		TLSConfig: tlsConf,
	}
}

// NewRedisClient connects with RedisOptions and pings the server.  The
// returned client is nil if the ping fails.
func NewRedisClient() *redis.Client {
	opts := RedisOptions()
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, running without cache/ratelimit/ledger", "addr", opts.Addr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}
