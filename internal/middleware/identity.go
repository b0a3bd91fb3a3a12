package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated dashboard user set by JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
	switch v := c.Get(CtxUserID).(type) {
	case uint64:
		return v, v != 0
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		return n, err == nil && n != 0
	}
	return 0, false
}

// userKey identifies the caller in rate-limit and lock keys; "anon" for
// public requests.
func userKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
