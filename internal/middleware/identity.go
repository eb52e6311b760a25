package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// actorKey identifies the caller for rate-limit and cache keys: the
// decimal user ID set by JWTAuth, or "anon".
func actorKey(c echo.Context) string {
	switch v := c.Get(ContextUserID).(type) {
	case uint64:
		if v != 0 {
			return strconv.FormatUint(v, 10)
		}
	case string:
		if v != "" {
			return v
		}
	}
	return "anon"
}
