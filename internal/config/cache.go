package config

import (
	"net/http"
	"strings"
	"time"
)

// CacheConfig drives the Redis response cache in front of the public
// listing and hero endpoints.  All keys share Prefix so a listing write can
// purge the namespace with one SCAN.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool // cacheable HTTP methods
	TTL          time.Duration
	KeyStrategy  string // route, method_route, method_route_query or route_query
	Prefix       string
	MaxBodyBytes int // larger responses are not cached
}

func LoadCacheConfig() CacheConfig {
	methods := map[string]bool{}
	for _, m := range strings.Split(envStr("CACHE_METHODS", http.MethodGet), ",") {
		if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
			methods[m] = true
		}
	}
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      methods,
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}
