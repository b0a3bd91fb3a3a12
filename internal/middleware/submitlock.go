package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/reshamsu/dlink-colombo/internal/logging"
)

var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// SubmitLock lets a dashboard user run one listing submission at a time.
// A second submit while the first is still uploading gets 409 Conflict.
// The lock expires after ttl in case the holder dies.  Without Redis the
// middleware is a pass-through.
func SubmitLock(rdb *redis.Client, prefix string, ttl time.Duration) echo.MiddlewareFunc {
	if rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := prefix + ":" + userKey(c)
			token := uuid.NewString()

			ok, err := rdb.SetNX(ctx, key, token, ttl).Result()
			if err != nil {
				logging.FromContext(ctx).Warn("submit lock unavailable", "key", key, "error", err)
				return next(c)
			}
			if !ok {
				return c.JSON(http.StatusConflict, echo.Map{"error": "a submission is already in progress"})
			}
			defer func() {
				rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
				defer cancel()
				_ = releaseScript.Run(rctx, rdb, []string{key}, token).Err()
			}()
			return next(c)
		}
	}
}
