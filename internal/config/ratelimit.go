package config

import "time"

// RateLimitConfig parameterises the Redis token bucket in front of the auth
// endpoints.  The public contact form gets its own bucket of
// ContactCapacity tokens (see WithCapacity).
type RateLimitConfig struct {
	Enabled         bool
	Capacity        int
	ContactCapacity int
	RefillTokens    int
	RefillInterval  time.Duration
	TTL             time.Duration // idle buckets expire after this
	KeyStrategy     string        // ip, user, route or a combination like ip_route
	Prefix          string
	Debug           bool
}

// LoadRateLimitConfig reads RATE_LIMIT_*.  RATE_LIMIT_BURST and
// RATE_LIMIT_REFILL_EVERY are shorthands for "capacity" and "one token per
// interval".  Values are clamped so the bucket always refills and never
// expires between two refills.
func LoadRateLimitConfig() RateLimitConfig {
	c := RateLimitConfig{
		Enabled:         envBool("RATE_LIMIT_ENABLED", true),
		Capacity:        envInt("RATE_LIMIT_CAPACITY", 60),
		ContactCapacity: envInt("RATE_LIMIT_CONTACT_CAPACITY", 5),
		RefillTokens:    envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval:  envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:             envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:     envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:          envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:           envBool("RATE_LIMIT_DEBUG", false),
	}
	if burst := envInt("RATE_LIMIT_BURST", 0); burst > 0 {
		c.Capacity = burst
	}
	if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
		c.RefillTokens, c.RefillInterval = 1, every
	}

	c.Capacity = max(c.Capacity, 1)
	c.ContactCapacity = max(c.ContactCapacity, 1)
	c.RefillTokens = max(c.RefillTokens, 1)
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	c.TTL = max(c.TTL, 5*c.RefillInterval)
	return c
}

// WithCapacity returns a copy with a different bucket size under a sub
// prefix, e.g. "rl:contact".
func (c RateLimitConfig) WithCapacity(capacity int, prefix string) RateLimitConfig {
	c.Capacity = capacity
	c.Prefix = c.Prefix + ":" + prefix
	return c
}
